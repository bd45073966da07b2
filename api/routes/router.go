package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/marianocruz/pos-inventory-backend/api/controllers"
	"github.com/marianocruz/pos-inventory-backend/api/middleware"
	"github.com/marianocruz/pos-inventory-backend/pkg/logger"
)

// Deps carries everything the router mounts.
type Deps struct {
	Logger     *logger.Logger
	Inventory  *controllers.InventoryController
	Deployment *controllers.DeploymentController
	Health     *controllers.HealthController
	// Registry serves /metrics; nil disables the endpoint.
	Registry *prometheus.Registry
}

// New assembles the HTTP surface.
func New(deps Deps) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID(deps.Logger))
	r.Use(middleware.Logging(deps.Logger))
	r.Use(middleware.Recoverer(deps.Logger))

	r.Get("/ping", controllers.Ping)
	if deps.Health != nil {
		r.Get("/health/live", deps.Health.GetLive)
		r.Get("/health/ready", deps.Health.GetReady)
	}
	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		if deps.Inventory != nil {
			r.Route("/inventory", func(r chi.Router) {
				r.Post("/deductions", deps.Inventory.PostDeduction)
				r.Post("/deductions/{transactionID}/compensate", deps.Inventory.PostCompensation)
				r.Post("/availability/check", deps.Inventory.PostAvailabilityCheck)
				r.Post("/deliveries", deps.Inventory.PostDelivery)
				r.Get("/movements/{transactionID}", deps.Inventory.GetMovements)
				if deps.Health != nil {
					r.Get("/health/{storeID}", deps.Health.GetStoreHealth)
				}
			})
		}
		if deps.Deployment != nil {
			r.Route("/recipes", func(r chi.Router) {
				r.Post("/deployments", deps.Deployment.PostDeploy)
				r.Post("/deployments/validate", deps.Deployment.PostValidate)
			})
		}
	})

	return r
}
