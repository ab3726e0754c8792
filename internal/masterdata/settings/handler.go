package settings

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
	r.With(h.authz.RequireAny("settings.read")).Get("/", h.List)
	r.With(h.authz.RequireAny("settings.write")).Put("/", h.Set)
	r.With(h.authz.RequireAny("settings.read")).Get("/pos-bank-account", h.POSBankAccount)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	branchID, err := optionalBranch(r)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid branch id")
		return
	}
	out, err := h.service.List(r.Context(), branchID)
	if err != nil {
		h.logger.Error("list settings", slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpx.OK(w, out)
}

func (h *Handler) Set(w http.ResponseWriter, r *http.Request) {
	var setting Setting
	if err := httpx.DecodeJSON(r, &setting); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	actor := auth.PrincipalFromContext(r.Context()).UserID
	setting.UpdatedBy = &actor
	saved, err := h.service.Set(r.Context(), setting)
	if err != nil {
		h.logger.Error("set setting", slog.Any("error", err))
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	httpx.OK(w, saved)
}

func (h *Handler) POSBankAccount(w http.ResponseWriter, r *http.Request) {
	branchID, err := optionalBranch(r)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid branch id")
		return
	}
	var branch int64
	if branchID != nil {
		branch = *branchID
	}
	accountID, err := h.service.POSBankAccount(r.Context(), branch)
	if err != nil {
		if errors.Is(err, ErrSettingNotFound) {
			httpx.Fail(w, http.StatusNotFound, "pos default bank account not configured")
			return
		}
		h.logger.Error("pos bank account", slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpx.OK(w, map[string]int64{"account_id": accountID})
}

func optionalBranch(r *http.Request) (*int64, error) {
	raw := r.URL.Query().Get("branch_id")
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
