package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/arcadia-retail/arcadia/internal/assets"
	"github.com/arcadia-retail/arcadia/internal/auth"
	"github.com/arcadia-retail/arcadia/internal/invoicing"
	"github.com/arcadia-retail/arcadia/internal/ledger"
	"github.com/arcadia-retail/arcadia/internal/ledger/dimensions"
	"github.com/arcadia-retail/arcadia/internal/masterdata/branches"
	"github.com/arcadia-retail/arcadia/internal/masterdata/customers"
	"github.com/arcadia-retail/arcadia/internal/masterdata/products"
	"github.com/arcadia-retail/arcadia/internal/masterdata/settings"
	"github.com/arcadia-retail/arcadia/internal/pos"
	"github.com/arcadia-retail/arcadia/internal/procurement"
	"github.com/arcadia-retail/arcadia/internal/sales/quotations"
	"github.com/arcadia-retail/arcadia/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger *slog.Logger
	Config *Config
	Authn  auth.Middleware

	AuthHandler       *auth.Handler
	LedgerHandler     *ledger.Handler
	DimensionsHandler *dimensions.Handler
	POSHandler        *pos.Handler
	QuotationsHandler *quotations.Handler
	InvoicingHandler  *invoicing.Handler
	PurchasesHandler  *procurement.Handler
	AssetsHandler     *assets.Handler
	BranchesHandler   *branches.Handler
	ProductsHandler   *products.Handler
	CustomersHandler  *customers.Handler
	SettingsHandler   *settings.Handler
	JobHandler        *jobs.Handler
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
		Authn:  params.Authn,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)

	r.Route("/api/v1", func(r chi.Router) {
		params.LedgerHandler.MountRoutes(r)
		r.Route("/dimensions", params.DimensionsHandler.MountRoutes)
		r.Route("/pos", params.POSHandler.MountRoutes)
		r.Route("/quotations", params.QuotationsHandler.MountRoutes)
		r.Route("/invoices", params.InvoicingHandler.MountRoutes)
		r.Route("/purchases", params.PurchasesHandler.MountRoutes)
		r.Route("/assets", params.AssetsHandler.MountRoutes)
		r.Route("/branches", params.BranchesHandler.MountRoutes)
		r.Route("/products", params.ProductsHandler.MountRoutes)
		r.Route("/customers", params.CustomersHandler.MountRoutes)
		r.Route("/settings", params.SettingsHandler.MountRoutes)
	})

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	return r
}
