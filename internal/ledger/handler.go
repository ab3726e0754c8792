package ledger

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/arcadia-retail/arcadia/internal/auth"
	"github.com/arcadia-retail/arcadia/internal/platform/httpx"
)

type Handler struct {
	logger  *slog.Logger
	service *Service
	authz   auth.Middleware
}

func NewHandler(logger *slog.Logger, service *Service, authz auth.Middleware) *Handler {
	return &Handler{logger: logger, service: service, authz: authz}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.authz.RequireAny("ledger.read")).Get("/journals", h.List)
	r.With(h.authz.RequireAny("ledger.read")).Get("/journals/{id}", h.Get)
	r.With(h.authz.RequireAny("ledger.post")).Post("/journals", h.PostManual)
	r.With(h.authz.RequireAny("ledger.void")).Post("/journals/{id}/void", h.Void)
	r.With(h.authz.RequireAny("ledger.read")).Get("/accounts", h.ListAccounts)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	entries, err := h.service.List(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error("list journals", slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpx.OK(w, entries)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid entry id")
		return
	}
	entry, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, "get journal", err)
		return
	}
	httpx.OK(w, entry)
}

func (h *Handler) PostManual(w http.ResponseWriter, r *http.Request) {
	var input PostingInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	input.CreatedBy = auth.PrincipalFromContext(r.Context()).UserID
	entry, err := h.service.PostManual(r.Context(), input)
	if err != nil {
		h.respondError(w, "post journal", err)
		return
	}
	httpx.Created(w, entry)
}

func (h *Handler) Void(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid entry id")
		return
	}
	var input VoidInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	input.EntryID = id
	input.ActorID = auth.PrincipalFromContext(r.Context()).UserID
	entry, err := h.service.Void(r.Context(), input)
	if err != nil {
		h.respondError(w, "void journal", err)
		return
	}
	httpx.OK(w, entry)
}

func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.service.ListAccounts(r.Context())
	if err != nil {
		h.logger.Error("list accounts", slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpx.OK(w, accounts)
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrEntryNotFound), errors.Is(err, ErrAccountNotFound):
		httpx.Fail(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrAlreadyPosted):
		httpx.Fail(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrUnbalanced), errors.Is(err, ErrTooFewLines), errors.Is(err, ErrInvalidOrigin), errors.Is(err, ErrInvalidStatus):
		httpx.Fail(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, "internal error")
	}
}
