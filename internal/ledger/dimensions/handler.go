package dimensions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/singleflight"

	"github.com/arcadia-retail/arcadia/internal/auth"
	"github.com/arcadia-retail/arcadia/internal/platform/httpx"
)

type Handler struct {
	logger  *slog.Logger
	service *Service
	authz   auth.Middleware

	balanceGroup singleflight.Group
}

func NewHandler(logger *slog.Logger, service *Service, authz auth.Middleware) *Handler {
	return &Handler{logger: logger, service: service, authz: authz}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.authz.RequireAny("ledger.read")).Get("/", h.List)
	r.With(h.authz.RequireAny("ledger.admin")).Post("/", h.Create)
	r.With(h.authz.RequireAny("ledger.read")).Get("/{id}/values", h.ListValues)
	r.With(h.authz.RequireAny("ledger.admin")).Post("/{id}/values", h.CreateValue)
	r.With(h.authz.RequireAny("ledger.read")).Get("/accounts/{accountID}/requirements", h.Requirements)
	r.With(h.authz.RequireAny("ledger.admin")).Post("/requirements", h.AddRequirement)
	r.With(h.authz.RequireAny("ledger.admin")).Post("/templates", h.CreateTemplate)
	r.With(h.authz.RequireAny("ledger.admin")).Post("/templates/{id}/apply", h.ApplyTemplate)
	r.With(h.authz.RequireAny("ledger.read")).Get("/{id}/balances", h.Balances)
}

type createDimensionRequest struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	dims, err := h.service.ListDimensions(r.Context())
	if err != nil {
		h.logger.Error("list dimensions", slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpx.OK(w, dims)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createDimensionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	dim, err := h.service.CreateDimension(r.Context(), req.Code, req.Name)
	if err != nil {
		h.respondError(w, "create dimension", err)
		return
	}
	httpx.Created(w, dim)
}

func (h *Handler) ListValues(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid dimension id")
		return
	}
	values, err := h.service.ListValues(r.Context(), id)
	if err != nil {
		h.respondError(w, "list values", err)
		return
	}
	httpx.OK(w, values)
}

func (h *Handler) CreateValue(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid dimension id")
		return
	}
	var value Value
	if err := httpx.DecodeJSON(r, &value); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	value.DimensionID = id
	created, err := h.service.CreateValue(r.Context(), value)
	if err != nil {
		h.respondError(w, "create value", err)
		return
	}
	httpx.Created(w, created)
}

func (h *Handler) Requirements(w http.ResponseWriter, r *http.Request) {
	accountID, err := strconv.ParseInt(chi.URLParam(r, "accountID"), 10, 64)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid account id")
		return
	}
	reqs, err := h.service.RequirementsForAccount(r.Context(), accountID)
	if err != nil {
		h.respondError(w, "list requirements", err)
		return
	}
	httpx.OK(w, reqs)
}

func (h *Handler) AddRequirement(w http.ResponseWriter, r *http.Request) {
	var req Requirement
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	created, err := h.service.AddRequirement(r.Context(), req)
	if err != nil {
		h.respondError(w, "add requirement", err)
		return
	}
	httpx.Created(w, created)
}

func (h *Handler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	var tpl Template
	if err := httpx.DecodeJSON(r, &tpl); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	created, err := h.service.CreateTemplate(r.Context(), tpl)
	if err != nil {
		h.respondError(w, "create template", err)
		return
	}
	httpx.Created(w, created)
}

func (h *Handler) ApplyTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid template id")
		return
	}
	var sel AccountSelector
	if err := httpx.DecodeJSON(r, &sel); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	actor := auth.PrincipalFromContext(r.Context()).UserID
	report, err := h.service.ApplyTemplate(r.Context(), id, sel, actor)
	if err != nil {
		h.respondError(w, "apply template", err)
		return
	}
	httpx.OK(w, report)
}

func (h *Handler) Balances(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid dimension id")
		return
	}
	filter := BalanceFilter{DimensionID: id}
	q := r.URL.Query()
	if raw := q.Get("account_id"); raw != "" {
		accountID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.Fail(w, http.StatusBadRequest, "invalid account id")
			return
		}
		filter.AccountID = &accountID
	}
	for param, target := range map[string]**time.Time{"date_from": &filter.DateFrom, "date_to": &filter.DateTo} {
		if raw := q.Get(param); raw != "" {
			ts, err := time.Parse("2006-01-02", raw)
			if err != nil {
				httpx.Fail(w, http.StatusBadRequest, "invalid "+param)
				return
			}
			*target = &ts
		}
	}

	// Balance scans are the expensive read here; identical concurrent
	// requests share one query.
	key := balanceKey(filter)
	result, err, _ := h.singleflightBalances(r.Context(), key, filter)
	if err != nil {
		h.respondError(w, "dimension balances", err)
		return
	}
	httpx.OK(w, result)
}

func (h *Handler) singleflightBalances(ctx context.Context, key string, filter BalanceFilter) ([]Balance, error, bool) {
	resultChan := h.balanceGroup.DoChan(key, func() (any, error) {
		return h.service.Balances(ctx, filter)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err(), false
	case res := <-resultChan:
		balances, _ := res.Val.([]Balance)
		return balances, res.Err, res.Shared
	}
}

func balanceKey(f BalanceFilter) string {
	key := fmt.Sprintf("dim=%d", f.DimensionID)
	if f.AccountID != nil {
		key += fmt.Sprintf(":acct=%d", *f.AccountID)
	}
	if f.DateFrom != nil {
		key += ":from=" + f.DateFrom.Format("2006-01-02")
	}
	if f.DateTo != nil {
		key += ":to=" + f.DateTo.Format("2006-01-02")
	}
	return key
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrDimensionNotFound), errors.Is(err, ErrTemplateNotFound):
		httpx.Fail(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrRequirementExists):
		httpx.Fail(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrEmptySelector):
		httpx.Fail(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, "internal error")
	}
}
