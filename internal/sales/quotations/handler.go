package quotations

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/arcadia-retail/arcadia/internal/auth"
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
	r.With(h.authz.RequireAny("sales.read")).Get("/", h.List)
	r.With(h.authz.RequireAny("sales.read")).Get("/{id}", h.Get)
	r.With(h.authz.RequireAny("sales.write")).Post("/", h.Create)
	r.With(h.authz.RequireAny("sales.write")).Put("/{id}", h.Update)
	r.With(h.authz.RequireAny("sales.write")).Post("/{id}/submit", h.Submit)
	r.With(h.authz.RequireAny("sales.approve")).Post("/{id}/approve", h.Approve)
	r.With(h.authz.RequireAny("sales.approve")).Post("/{id}/reject", h.Reject)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	actor := auth.PrincipalFromContext(r.Context()).UserID
	quotation, err := h.service.Create(r.Context(), req, actor)
	if err != nil {
		h.respondError(w, "create quotation", err)
		return
	}
	httpx.Created(w, quotation)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid quotation id")
		return
	}
	var req UpdateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	actor := auth.PrincipalFromContext(r.Context()).UserID
	quotation, err := h.service.Update(r.Context(), id, req, actor)
	if err != nil {
		h.respondError(w, "update quotation", err)
		return
	}
	httpx.OK(w, quotation)
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	h.statusAction(w, r, "submit quotation", h.service.Submit)
}

func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	h.statusAction(w, r, "approve quotation", h.service.Approve)
}

func (h *Handler) statusAction(w http.ResponseWriter, r *http.Request, op string, fn func(ctx context.Context, id, actorID int64) (Quotation, error)) {
	id, err := pathID(r)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid quotation id")
		return
	}
	actor := auth.PrincipalFromContext(r.Context()).UserID
	quotation, err := fn(r.Context(), id, actor)
	if err != nil {
		h.respondError(w, op, err)
		return
	}
	httpx.OK(w, quotation)
}

func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid quotation id")
		return
	}
	var body struct {
		Reason string `json:"reason" validate:"required"`
	}
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(body); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	actor := auth.PrincipalFromContext(r.Context()).UserID
	quotation, err := h.service.Reject(r.Context(), id, actor, body.Reason)
	if err != nil {
		h.respondError(w, "reject quotation", err)
		return
	}
	httpx.OK(w, quotation)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid quotation id")
		return
	}
	quotation, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, "get quotation", err)
		return
	}
	httpx.OK(w, quotation)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	req, err := listRequestFromQuery(r)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	quotations, total, err := h.service.List(r.Context(), req)
	if err != nil {
		h.logger.Error("list quotations", slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpx.OK(w, map[string]any{"items": quotations, "total": total})
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Fail(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidStatus):
		httpx.Fail(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ErrBadLine):
		httpx.Fail(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, "internal error")
	}
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func listRequestFromQuery(r *http.Request) (ListRequest, error) {
	var req ListRequest
	q := r.URL.Query()
	for key, target := range map[string]**int64{"branch_id": &req.BranchID, "customer_id": &req.CustomerID} {
		if raw := q.Get(key); raw != "" {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return ListRequest{}, errors.New("invalid " + key)
			}
			*target = &id
		}
	}
	if raw := q.Get("status"); raw != "" {
		status := Status(raw)
		req.Status = &status
	}
	for key, target := range map[string]**time.Time{"date_from": &req.DateFrom, "date_to": &req.DateTo} {
		if raw := q.Get(key); raw != "" {
			t, err := time.Parse("2006-01-02", raw)
			if err != nil {
				return ListRequest{}, errors.New("invalid " + key)
			}
			*target = &t
		}
	}
	req.Limit, _ = strconv.Atoi(q.Get("limit"))
	req.Offset, _ = strconv.Atoi(q.Get("offset"))
	return req, nil
}
