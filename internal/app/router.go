package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tradewind-erp/tradewind/internal/auth"
	"github.com/tradewind-erp/tradewind/internal/ledger"
	"github.com/tradewind-erp/tradewind/internal/maintenance"
	"github.com/tradewind-erp/tradewind/internal/masterdata/categories"
	"github.com/tradewind-erp/tradewind/internal/masterdata/customers"
	"github.com/tradewind-erp/tradewind/internal/masterdata/locations"
	"github.com/tradewind-erp/tradewind/internal/masterdata/products"
	"github.com/tradewind-erp/tradewind/internal/masterdata/suppliers"
	"github.com/tradewind-erp/tradewind/internal/observability"
	"github.com/tradewind-erp/tradewind/internal/purchasing"
	"github.com/tradewind-erp/tradewind/internal/sales"
	"github.com/tradewind-erp/tradewind/internal/settings"
	"github.com/tradewind-erp/tradewind/internal/stock"
	"github.com/tradewind-erp/tradewind/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger *slog.Logger
	Config *Config
	Pool   *pgxpool.Pool

	Auth auth.Middleware

	ProductsHandler    *products.Handler
	CategoriesHandler  *categories.Handler
	SuppliersHandler   *suppliers.Handler
	CustomersHandler   *customers.Handler
	LocationsHandler   *locations.Handler
	StockHandler       *stock.Handler
	LedgerHandler      *ledger.Handler
	PurchasingHandler  *purchasing.Handler
	SalesHandler       *sales.Handler
	SettingsHandler    *settings.Handler
	MaintenanceHandler *maintenance.Handler
	JobHandler         *jobs.Handler

	Metrics *observability.Metrics
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if params.Pool != nil {
			if err := params.Pool.Ping(r.Context()); err != nil {
				params.Logger.Error("healthz ping", slog.Any("error", err))
				http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api", func(api chi.Router) {
		api.Use(params.Auth.Authenticate)

		group := func(path, perm string, mount func(chi.Router)) {
			api.Route(path, func(r chi.Router) {
				r.Use(params.Auth.RequireAny(perm+".read", perm+".write"))
				mount(r)
			})
		}

		group("/products", "products", params.ProductsHandler.Routes)
		group("/categories", "categories", params.CategoriesHandler.Routes)
		group("/suppliers", "suppliers", params.SuppliersHandler.Routes)
		group("/customers", "customers", params.CustomersHandler.Routes)
		group("/locations", "locations", params.LocationsHandler.Routes)
		group("/inventory", "inventory", func(r chi.Router) {
			params.StockHandler.Routes(r)
			params.LedgerHandler.Routes(r)
		})
		group("/purchases", "purchases", params.PurchasingHandler.Routes)
		group("/sales", "sales", params.SalesHandler.Routes)
		group("/settings", "settings", params.SettingsHandler.Routes)
		api.Route("/maintenance", func(r chi.Router) {
			r.Use(params.Auth.RequireAny("admin.write"))
			params.MaintenanceHandler.Routes(r)
		})
		if params.JobHandler != nil {
			api.Route("/jobs", params.JobHandler.MountRoutes)
		}
	})

	return r
}
