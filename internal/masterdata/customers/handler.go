package customers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/arcadia-retail/arcadia/internal/auth"
	"github.com/arcadia-retail/arcadia/internal/platform/httpx"
)

type customerRequest struct {
	Name     string  `json:"name" validate:"required,max=150"`
	Phone    *string `json:"phone,omitempty" validate:"omitempty,max=30"`
	Email    *string `json:"email,omitempty" validate:"omitempty,email"`
	TaxPIN   *string `json:"tax_pin,omitempty" validate:"omitempty,max=30"`
	IsActive bool    `json:"is_active"`
}

type Handler struct {
	logger    *slog.Logger
	repo      Repository
	authz     auth.Middleware
	validator *validator.Validate
}

func NewHandler(logger *slog.Logger, repo Repository, authz auth.Middleware) *Handler {
	return &Handler{logger: logger, repo: repo, authz: authz, validator: validator.New()}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.authz.RequireAny("masterdata.read")).Get("/", h.List)
	r.With(h.authz.RequireAny("masterdata.read")).Get("/{id}", h.Get)
	r.With(h.authz.RequireAny("masterdata.write")).Post("/", h.Create)
	r.With(h.authz.RequireAny("masterdata.write")).Put("/{id}", h.Update)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	items, total, err := h.repo.List(r.Context(), q.Get("search"), limit, offset)
	if err != nil {
		h.logger.Error("list customers", slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpx.OK(w, map[string]any{"items": items, "total": total})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid customer id")
		return
	}
	customer, err := h.repo.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, "get customer", err)
		return
	}
	httpx.OK(w, customer)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req customerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	customer, err := h.repo.Create(r.Context(), Customer{
		Name: req.Name, Phone: req.Phone, Email: req.Email, TaxPIN: req.TaxPIN, IsActive: req.IsActive,
	})
	if err != nil {
		h.respondError(w, "create customer", err)
		return
	}
	httpx.Created(w, customer)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid customer id")
		return
	}
	var req customerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	customer := Customer{ID: id, Name: req.Name, Phone: req.Phone, Email: req.Email, TaxPIN: req.TaxPIN, IsActive: req.IsActive}
	if err := h.repo.Update(r.Context(), customer); err != nil {
		h.respondError(w, "update customer", err)
		return
	}
	httpx.OK(w, customer)
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Fail(w, http.StatusNotFound, err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, "internal error")
	}
}
