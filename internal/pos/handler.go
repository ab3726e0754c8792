package pos

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/arcadia-retail/arcadia/internal/auth"
	"github.com/arcadia-retail/arcadia/internal/ledger"
	"github.com/arcadia-retail/arcadia/internal/platform/httpx"
)

type Handler struct {
	logger    *slog.Logger
	service   *Service
	authz     auth.Middleware
	validator *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service, authz auth.Middleware) *Handler {
	return &Handler{logger: logger, service: service, authz: authz, validator: validator.New()}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.authz.RequireAny("pos.session")).Post("/sessions", h.OpenSession)
	r.With(h.authz.RequireAny("pos.session")).Post("/sessions/{id}/close", h.CloseSession)
	r.With(h.authz.RequireAny("pos.read")).Get("/sessions", h.ListSessions)
	r.With(h.authz.RequireAny("pos.read")).Get("/sessions/{id}", h.GetSession)

	r.With(h.authz.RequireAny("pos.sell")).Post("/sales", h.PostSale)
	r.With(h.authz.RequireAny("pos.read")).Get("/sales/{id}", h.GetSale)

	r.With(h.authz.RequireAny("pos.reconcile")).Post("/reconciliations", h.Reconcile)
	r.With(h.authz.RequireAny("pos.verify")).Post("/reconciliations/{sessionID}/verify", h.Verify)
	r.With(h.authz.RequireAny("pos.read")).Get("/reconciliations/{sessionID}", h.GetReconciliation)
}

func (h *Handler) OpenSession(w http.ResponseWriter, r *http.Request) {
	var req OpenSessionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	cashier := auth.PrincipalFromContext(r.Context()).UserID
	session, err := h.service.OpenSession(r.Context(), cashier, req)
	if err != nil {
		h.respondError(w, "open session", err)
		return
	}
	httpx.Created(w, session)
}

func (h *Handler) CloseSession(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid session id")
		return
	}
	actor := auth.PrincipalFromContext(r.Context()).UserID
	session, err := h.service.CloseSession(r.Context(), id, actor)
	if err != nil {
		h.respondError(w, "close session", err)
		return
	}
	httpx.OK(w, session)
}

func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	var req ListSessionsRequest
	q := r.URL.Query()
	if raw := q.Get("branch_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.Fail(w, http.StatusBadRequest, "invalid branch id")
			return
		}
		req.BranchID = &id
	}
	if raw := q.Get("status"); raw != "" {
		status := SessionStatus(raw)
		req.Status = &status
	}
	req.Limit, _ = strconv.Atoi(q.Get("limit"))
	req.Offset, _ = strconv.Atoi(q.Get("offset"))
	sessions, err := h.service.ListSessions(r.Context(), req)
	if err != nil {
		h.logger.Error("list sessions", slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpx.OK(w, sessions)
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid session id")
		return
	}
	session, err := h.service.GetSession(r.Context(), id)
	if err != nil {
		h.respondError(w, "get session", err)
		return
	}
	httpx.OK(w, session)
}

func (h *Handler) PostSale(w http.ResponseWriter, r *http.Request) {
	var req PostSaleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	cashier := auth.PrincipalFromContext(r.Context()).UserID
	sale, err := h.service.PostSale(r.Context(), cashier, req)
	if err != nil {
		h.respondError(w, "post sale", err)
		return
	}
	httpx.Created(w, sale)
}

func (h *Handler) GetSale(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid sale id")
		return
	}
	sale, err := h.service.GetSale(r.Context(), id)
	if err != nil {
		h.respondError(w, "get sale", err)
		return
	}
	httpx.OK(w, sale)
}

func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	var req ReconcileRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	actor := auth.PrincipalFromContext(r.Context()).UserID
	recon, err := h.service.Reconcile(r.Context(), actor, req)
	if err != nil {
		h.respondError(w, "reconcile session", err)
		return
	}
	httpx.Created(w, recon)
}

func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	sessionID, err := strconv.ParseInt(chi.URLParam(r, "sessionID"), 10, 64)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid session id")
		return
	}
	verifier := auth.PrincipalFromContext(r.Context()).UserID
	recon, err := h.service.Verify(r.Context(), sessionID, verifier)
	if err != nil {
		h.respondError(w, "verify reconciliation", err)
		return
	}
	httpx.OK(w, recon)
}

func (h *Handler) GetReconciliation(w http.ResponseWriter, r *http.Request) {
	sessionID, err := strconv.ParseInt(chi.URLParam(r, "sessionID"), 10, 64)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid session id")
		return
	}
	recon, err := h.service.GetReconciliation(r.Context(), sessionID)
	if err != nil {
		h.respondError(w, "get reconciliation", err)
		return
	}
	httpx.OK(w, recon)
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, ErrSaleNotFound), errors.Is(err, ErrReconNotFound):
		httpx.Fail(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrSessionStillOpen), errors.Is(err, ErrAlreadyReconciled), errors.Is(err, ErrAlreadyVerified), errors.Is(err, ledger.ErrAlreadyPosted):
		httpx.Fail(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrSessionClosed), errors.Is(err, ErrSessionNotClosed):
		httpx.Fail(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, "internal error")
	}
}
