package procurement

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
	r.With(h.authz.RequireAny("procurement.read")).Get("/", h.List)
	r.With(h.authz.RequireAny("procurement.read")).Get("/{id}", h.Get)
	r.With(h.authz.RequireAny("procurement.write")).Post("/", h.Create)
	r.With(h.authz.RequireAny("procurement.pay")).Post("/payments", h.RecordPayment)
	r.With(h.authz.RequireAny("procurement.read")).Get("/{id}/payments", h.Payments)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreatePurchaseRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	actor := auth.PrincipalFromContext(r.Context()).UserID
	purchase, err := h.service.Create(r.Context(), req, actor)
	if err != nil {
		h.respondError(w, "create purchase", err)
		return
	}
	httpx.Created(w, purchase)
}

func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	var req RecordPaymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	actor := auth.PrincipalFromContext(r.Context()).UserID
	payment, err := h.service.RecordPayment(r.Context(), req, actor)
	if err != nil {
		h.respondError(w, "record payment", err)
		return
	}
	httpx.Created(w, payment)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid purchase id")
		return
	}
	purchase, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, "get purchase", err)
		return
	}
	httpx.OK(w, purchase)
}

func (h *Handler) Payments(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid purchase id")
		return
	}
	payments, err := h.service.Payments(r.Context(), id)
	if err != nil {
		h.respondError(w, "list payments", err)
		return
	}
	httpx.OK(w, payments)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	var req ListPurchasesRequest
	q := r.URL.Query()
	if raw := q.Get("branch_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.Fail(w, http.StatusBadRequest, "invalid branch id")
			return
		}
		req.BranchID = &id
	}
	if raw := q.Get("supplier_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.Fail(w, http.StatusBadRequest, "invalid supplier id")
			return
		}
		req.SupplierID = &id
	}
	if raw := q.Get("status"); raw != "" {
		status := PurchaseStatus(raw)
		req.Status = &status
	}
	req.Limit, _ = strconv.Atoi(q.Get("limit"))
	req.Offset, _ = strconv.Atoi(q.Get("offset"))
	purchases, total, err := h.service.List(r.Context(), req)
	if err != nil {
		h.logger.Error("list purchases", slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpx.OK(w, map[string]any{"items": purchases, "total": total})
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrPurchaseNotFound):
		httpx.Fail(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrAlreadySettled):
		httpx.Fail(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ErrOverpayment), errors.Is(err, ErrBadAssetItem):
		httpx.Fail(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, "internal error")
	}
}
