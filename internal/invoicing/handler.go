package invoicing

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/arcadia-retail/arcadia/internal/auth"
	"github.com/arcadia-retail/arcadia/internal/platform/httpx"
	"github.com/arcadia-retail/arcadia/internal/pos"
	"github.com/arcadia-retail/arcadia/internal/sales/quotations"
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
	r.With(h.authz.RequireAny("sales.write")).Post("/convert", h.Convert)
	r.With(h.authz.RequireAny("sales.write")).Post("/{id}/void", h.Void)
	r.With(h.authz.RequireAny("sales.receive")).Post("/receipts", h.AddReceipt)
	r.With(h.authz.RequireAny("sales.receive")).Post("/receipts/sale", h.SaleReceipt)
	r.With(h.authz.RequireAny("sales.read")).Get("/{id}/receipts", h.Receipts)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateInvoiceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	actor := auth.PrincipalFromContext(r.Context()).UserID
	invoice, err := h.service.Create(r.Context(), req, actor)
	if err != nil {
		h.respondError(w, "create invoice", err)
		return
	}
	httpx.Created(w, invoice)
}

func (h *Handler) Convert(w http.ResponseWriter, r *http.Request) {
	var req ConvertQuotationRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	actor := auth.PrincipalFromContext(r.Context()).UserID
	invoice, err := h.service.ConvertQuotation(r.Context(), req, actor)
	if err != nil {
		h.respondError(w, "convert quotation", err)
		return
	}
	httpx.Created(w, invoice)
}

func (h *Handler) AddReceipt(w http.ResponseWriter, r *http.Request) {
	var req AddReceiptRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	actor := auth.PrincipalFromContext(r.Context()).UserID
	receipt, err := h.service.AddReceipt(r.Context(), req, actor)
	if err != nil {
		h.respondError(w, "add receipt", err)
		return
	}
	httpx.Created(w, receipt)
}

func (h *Handler) SaleReceipt(w http.ResponseWriter, r *http.Request) {
	var req IssueSaleReceiptRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	actor := auth.PrincipalFromContext(r.Context()).UserID
	receipt, err := h.service.IssueSaleReceipt(r.Context(), req, actor)
	if err != nil {
		h.respondError(w, "issue sale receipt", err)
		return
	}
	httpx.Created(w, receipt)
}

func (h *Handler) Void(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid invoice id")
		return
	}
	actor := auth.PrincipalFromContext(r.Context()).UserID
	invoice, err := h.service.Void(r.Context(), id, actor)
	if err != nil {
		h.respondError(w, "void invoice", err)
		return
	}
	httpx.OK(w, invoice)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid invoice id")
		return
	}
	invoice, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, "get invoice", err)
		return
	}
	httpx.OK(w, invoice)
}

func (h *Handler) Receipts(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid invoice id")
		return
	}
	receipts, err := h.service.Receipts(r.Context(), id)
	if err != nil {
		h.respondError(w, "list receipts", err)
		return
	}
	httpx.OK(w, receipts)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	var req ListInvoicesRequest
	q := r.URL.Query()
	if raw := q.Get("branch_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.Fail(w, http.StatusBadRequest, "invalid branch id")
			return
		}
		req.BranchID = &id
	}
	if raw := q.Get("customer_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.Fail(w, http.StatusBadRequest, "invalid customer id")
			return
		}
		req.CustomerID = &id
	}
	if raw := q.Get("status"); raw != "" {
		status := InvoiceStatus(raw)
		req.Status = &status
	}
	req.Limit, _ = strconv.Atoi(q.Get("limit"))
	req.Offset, _ = strconv.Atoi(q.Get("offset"))
	invoices, total, err := h.service.List(r.Context(), req)
	if err != nil {
		h.logger.Error("list invoices", slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpx.OK(w, map[string]any{"items": invoices, "total": total})
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrInvoiceNotFound), errors.Is(err, ErrReceiptNotFound),
		errors.Is(err, quotations.ErrNotFound), errors.Is(err, pos.ErrSaleNotFound):
		httpx.Fail(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrQuotationNotApproved), errors.Is(err, ErrInvoiceVoid),
		errors.Is(err, ErrInvoiceAlreadySettled), errors.Is(err, ErrInvoiceHasPayments):
		httpx.Fail(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ErrOverpayment), errors.Is(err, ErrBadLine):
		httpx.Fail(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, "internal error")
	}
}
