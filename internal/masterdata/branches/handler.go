package branches

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

type branchRequest struct {
	Code     string  `json:"code" validate:"required,max=20"`
	Name     string  `json:"name" validate:"required,max=100"`
	Address  *string `json:"address,omitempty"`
	Phone    *string `json:"phone,omitempty"`
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
		h.logger.Error("list branches", slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpx.OK(w, map[string]any{"items": items, "total": total})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid branch id")
		return
	}
	branch, err := h.repo.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, "get branch", err)
		return
	}
	httpx.OK(w, branch)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req branchRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	branch, err := h.repo.Create(r.Context(), Branch{
		Code: req.Code, Name: req.Name, Address: req.Address, Phone: req.Phone, IsActive: req.IsActive,
	})
	if err != nil {
		h.respondError(w, "create branch", err)
		return
	}
	httpx.Created(w, branch)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid branch id")
		return
	}
	var req branchRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	branch := Branch{ID: id, Code: req.Code, Name: req.Name, Address: req.Address, Phone: req.Phone, IsActive: req.IsActive}
	if err := h.repo.Update(r.Context(), branch); err != nil {
		h.respondError(w, "update branch", err)
		return
	}
	httpx.OK(w, branch)
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Fail(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrDuplicateCode):
		httpx.Fail(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, "internal error")
	}
}
