package controllers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/marianocruz/pos-inventory-backend/api/responses"
	"github.com/marianocruz/pos-inventory-backend/api/validators"
	"github.com/marianocruz/pos-inventory-backend/internal/health"
	"github.com/marianocruz/pos-inventory-backend/pkg/logger"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// HealthController exposes store health plus process liveness/readiness.
type HealthController struct {
	svc   health.Service
	db    pinger
	cache pinger
	logg  *logger.Logger
}

func NewHealthController(svc health.Service, db, cache pinger, logg *logger.Logger) (*HealthController, error) {
	if svc == nil {
		return nil, fmt.Errorf("health service required")
	}
	return &HealthController{svc: svc, db: db, cache: cache, logg: logg}, nil
}

// GetStoreHealth handles GET /inventory/health/{storeID}.
func (c *HealthController) GetStoreHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	storeID, err := validators.ParseUUID(chi.URLParam(r, "storeID"), "storeID")
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}

	report, err := c.svc.CheckStore(ctx, storeID)
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	responses.WriteSuccess(w, report)
}

// GetLive handles GET /health/live: the process is up.
func (c *HealthController) GetLive(w http.ResponseWriter, r *http.Request) {
	responses.WriteSuccess(w, map[string]string{"status": "ok"})
}

// GetReady handles GET /health/ready: dependencies answer.
func (c *HealthController) GetReady(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	deps := map[string]string{}
	healthy := true

	if c.db != nil {
		if err := c.db.Ping(ctx); err != nil {
			deps["database"] = err.Error()
			healthy = false
		} else {
			deps["database"] = "ok"
		}
	}
	if c.cache != nil {
		if err := c.cache.Ping(ctx); err != nil {
			deps["cache"] = err.Error()
			healthy = false
		} else {
			deps["cache"] = "ok"
		}
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	responses.WriteSuccessStatus(w, status, deps)
}
