package assets

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/arcadia-retail/arcadia/internal/auth"
	"github.com/arcadia-retail/arcadia/internal/platform/httpx"
	"github.com/arcadia-retail/arcadia/internal/procurement"
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
	r.With(h.authz.RequireAny("assets.read")).Get("/", h.List)
	r.With(h.authz.RequireAny("assets.read")).Get("/{id}", h.Get)
	r.With(h.authz.RequireAny("assets.read")).Get("/{id}/schedule", h.Schedule)
	r.With(h.authz.RequireAny("assets.write")).Post("/capitalize/{purchaseID}", h.Capitalize)
	r.With(h.authz.RequireAny("assets.depreciate")).Post("/depreciation/{period}", h.RunDepreciation)
}

func (h *Handler) Capitalize(w http.ResponseWriter, r *http.Request) {
	purchaseID, err := strconv.ParseInt(chi.URLParam(r, "purchaseID"), 10, 64)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid purchase id")
		return
	}
	actor := auth.PrincipalFromContext(r.Context()).UserID
	report, err := h.service.Capitalize(r.Context(), purchaseID, actor)
	if err != nil {
		h.respondError(w, "capitalize purchase", err)
		return
	}
	httpx.Created(w, report)
}

func (h *Handler) RunDepreciation(w http.ResponseWriter, r *http.Request) {
	period := chi.URLParam(r, "period")
	actor := auth.PrincipalFromContext(r.Context()).UserID
	report, err := h.service.RunDepreciation(r.Context(), period, actor)
	if err != nil {
		h.respondError(w, "run depreciation", err)
		return
	}
	httpx.OK(w, report)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid asset id")
		return
	}
	asset, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, "get asset", err)
		return
	}
	httpx.OK(w, asset)
}

func (h *Handler) Schedule(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid asset id")
		return
	}
	schedule, err := h.service.Schedule(r.Context(), id)
	if err != nil {
		h.respondError(w, "get schedule", err)
		return
	}
	httpx.OK(w, schedule)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	var branchID *int64
	if raw := r.URL.Query().Get("branch_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.Fail(w, http.StatusBadRequest, "invalid branch id")
			return
		}
		branchID = &id
	}
	assets, err := h.service.List(r.Context(), branchID)
	if err != nil {
		h.logger.Error("list assets", slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpx.OK(w, assets)
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrAssetNotFound), errors.Is(err, procurement.ErrPurchaseNotFound):
		httpx.Fail(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrNoAssetItems), errors.Is(err, ErrBadPeriod):
		httpx.Fail(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNothingToPost), errors.Is(err, ErrPeriodAlreadyPosted):
		httpx.Fail(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, "internal error")
	}
}
