package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/marianocruz/pos-inventory-backend/internal/health"
	"github.com/marianocruz/pos-inventory-backend/pkg/db/models"
	"github.com/marianocruz/pos-inventory-backend/pkg/enums"
	"github.com/marianocruz/pos-inventory-backend/pkg/logger"
)

type storeSource interface {
	ListStoreIDs(ctx context.Context) ([]uuid.UUID, error)
}

type tickLock interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	LockKey(name string) string
}

// storeTableSource monitors every active store.
type storeTableSource struct {
	db *gorm.DB
}

func (s storeTableSource) ListStoreIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := s.db.WithContext(ctx).
		Model(&models.Store{}).
		Where("is_active = ?", true).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("listing monitored stores: %w", err)
	}
	return ids, nil
}

// Service sweeps every monitored store on a fixed interval. A Redis lock keeps
// concurrent replicas from running the same sweep.
type Service struct {
	logg     *logger.Logger
	stores   storeSource
	checker  health.Service
	lock     tickLock
	interval time.Duration
}

func NewService(logg *logger.Logger, stores storeSource, checker health.Service, lock tickLock, interval time.Duration) (*Service, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if stores == nil {
		return nil, fmt.Errorf("store source required")
	}
	if checker == nil {
		return nil, fmt.Errorf("health checker required")
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Service{logg: logg, stores: stores, checker: checker, lock: lock, interval: interval}, nil
}

// Run blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Service) sweep(ctx context.Context) {
	if !s.acquire(ctx) {
		s.logg.Debug(ctx, "health sweep held by another instance")
		return
	}

	storeIDs, err := s.stores.ListStoreIDs(ctx)
	if err != nil {
		s.logg.Error(ctx, "failed to list monitored stores", err)
		return
	}

	for _, storeID := range storeIDs {
		report, err := s.checker.CheckStore(ctx, storeID)
		if err != nil {
			s.logg.Error(s.logg.WithStoreID(ctx, storeID.String()), "store health check failed", err)
			continue
		}
		s.report(ctx, report)
	}
}

func (s *Service) report(ctx context.Context, report health.Report) {
	ctx = s.logg.WithStoreID(ctx, report.StoreID.String())
	for _, check := range report.Checks {
		if check.Status == enums.HealthStatusHealthy {
			continue
		}
		ctx = s.logg.WithField(ctx, check.Name, check.Message)
	}
	switch report.OverallStatus {
	case enums.HealthStatusHealthy:
		s.logg.Debug(ctx, "store healthy")
	case enums.HealthStatusWarning:
		s.logg.Warn(ctx, "store health degraded")
	default:
		s.logg.Error(ctx, "store health critical", fmt.Errorf("status %s", report.OverallStatus))
	}
}

func (s *Service) acquire(ctx context.Context) bool {
	if s.lock == nil {
		return true
	}
	// TTL slightly under the interval so a crashed holder frees the lock
	// before the next tick.
	ttl := s.interval - s.interval/10
	ok, err := s.lock.SetNX(ctx, s.lock.LockKey("health-worker"), "1", ttl)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "health sweep lock unavailable, running unlocked")
		return true
	}
	return ok
}
