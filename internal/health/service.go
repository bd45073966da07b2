package health

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/marianocruz/pos-inventory-backend/pkg/enums"
	apperrors "github.com/marianocruz/pos-inventory-backend/pkg/errors"
	"github.com/marianocruz/pos-inventory-backend/pkg/logger"
)

// The monitor only reads; each collaborator interface below is the minimal
// slice of the owning package's repository it needs.

type versionProber interface {
	HasVersionColumn(ctx context.Context) (bool, error)
}

type idempotencyProber interface {
	Count(ctx context.Context) (int64, error)
}

type compensationProber interface {
	Count(ctx context.Context) (int64, error)
}

type duplicateMappingCounter interface {
	CountDuplicateActive(ctx context.Context, storeID uuid.UUID) (int64, error)
}

type movementCounter interface {
	CountByStoreSince(ctx context.Context, storeID uuid.UUID, movementType enums.MovementType, since time.Time) (int64, error)
	CountLeakedByStore(ctx context.Context, storeID uuid.UUID) (int64, error)
}

type crossStoreCounter interface {
	CountCrossStoreMappings(ctx context.Context, storeID uuid.UUID) (int64, error)
}

type cachePinger interface {
	Ping(ctx context.Context) error
}

// Check is one named probe outcome.
type Check struct {
	Name    string             `json:"name"`
	Status  enums.HealthStatus `json:"status"`
	Message string             `json:"message,omitempty"`
}

// Report is the store-level health summary.
type Report struct {
	StoreID       uuid.UUID          `json:"store_id"`
	OverallStatus enums.HealthStatus `json:"overall_status"`
	Checks        []Check            `json:"checks"`
	GeneratedAt   time.Time          `json:"generated_at"`
}

// Service runs the integrity probes for one store.
type Service interface {
	CheckStore(ctx context.Context, storeID uuid.UUID) (Report, error)
}

// Deps carries the monitor's read-only collaborators. Cache may be nil when
// Redis is not deployed; that probe then reports a warning.
type Deps struct {
	Stocks        versionProber
	Idempotency   idempotencyProber
	Compensations compensationProber
	Conversions   duplicateMappingCounter
	Movements     movementCounter
	Deployments   crossStoreCounter
	Cache         cachePinger
	Logger        *logger.Logger
	// SuccessRateWindow bounds the sale/compensation ratio probe.
	SuccessRateWindow time.Duration
}

type service struct {
	deps Deps
	now  func() time.Time
}

// NewService wires the health monitor.
func NewService(deps Deps) (Service, error) {
	if deps.Stocks == nil || deps.Idempotency == nil || deps.Compensations == nil ||
		deps.Conversions == nil || deps.Movements == nil || deps.Deployments == nil {
		return nil, fmt.Errorf("all datastore probes are required")
	}
	if deps.SuccessRateWindow <= 0 {
		deps.SuccessRateWindow = time.Hour
	}
	return &service{deps: deps, now: time.Now}, nil
}

// CheckStore never fails on a probe error; a probe that cannot run reports
// critical instead, so the worker loop and the endpoint always get a report.
func (s *service) CheckStore(ctx context.Context, storeID uuid.UUID) (Report, error) {
	if storeID == uuid.Nil {
		return Report{}, apperrors.New(apperrors.CodeValidation, "store id is required")
	}
	if s.deps.Logger != nil {
		ctx = s.deps.Logger.WithStoreID(ctx, storeID.String())
	}

	report := Report{
		StoreID:       storeID,
		OverallStatus: enums.HealthStatusHealthy,
		GeneratedAt:   s.now().UTC(),
	}
	checks := []Check{
		s.checkVersionColumn(ctx),
		s.checkIdempotency(ctx),
		s.checkCompensationLog(ctx),
		s.checkDuplicateMappings(ctx, storeID),
		s.checkCrossStoreIsolation(ctx, storeID),
		s.checkSuccessRate(ctx, storeID),
	}
	for _, check := range checks {
		report.Checks = append(report.Checks, check)
		report.OverallStatus = report.OverallStatus.Worst(check.Status)
	}
	if report.OverallStatus != enums.HealthStatusHealthy && s.deps.Logger != nil {
		s.deps.Logger.Warn(s.deps.Logger.WithField(ctx, "status", report.OverallStatus.String()),
			"store health degraded")
	}
	return report, nil
}

func (s *service) checkVersionColumn(ctx context.Context) Check {
	check := Check{Name: "optimistic_locking", Status: enums.HealthStatusHealthy}
	present, err := s.deps.Stocks.HasVersionColumn(ctx)
	if err != nil {
		check.Status = enums.HealthStatusCritical
		check.Message = fmt.Sprintf("cannot probe version column: %v", err)
		return check
	}
	if !present {
		check.Status = enums.HealthStatusCritical
		check.Message = "stock table is missing the version column; writes are unguarded"
	}
	return check
}

func (s *service) checkIdempotency(ctx context.Context) Check {
	check := Check{Name: "idempotency", Status: enums.HealthStatusHealthy}
	if _, err := s.deps.Idempotency.Count(ctx); err != nil {
		check.Status = enums.HealthStatusCritical
		check.Message = fmt.Sprintf("idempotency table unreachable: %v", err)
		return check
	}
	if s.deps.Cache == nil {
		check.Status = enums.HealthStatusWarning
		check.Message = "idempotency cache not configured; replays fall back to the database"
		return check
	}
	if err := s.deps.Cache.Ping(ctx); err != nil {
		check.Status = enums.HealthStatusWarning
		check.Message = fmt.Sprintf("idempotency cache unreachable: %v", err)
	}
	return check
}

func (s *service) checkCompensationLog(ctx context.Context) Check {
	check := Check{Name: "compensation_log", Status: enums.HealthStatusHealthy}
	if _, err := s.deps.Compensations.Count(ctx); err != nil {
		check.Status = enums.HealthStatusCritical
		check.Message = fmt.Sprintf("compensation log unreachable: %v", err)
	}
	return check
}

func (s *service) checkDuplicateMappings(ctx context.Context, storeID uuid.UUID) Check {
	check := Check{Name: "conversion_mappings", Status: enums.HealthStatusHealthy}
	dupes, err := s.deps.Conversions.CountDuplicateActive(ctx, storeID)
	if err != nil {
		check.Status = enums.HealthStatusCritical
		check.Message = fmt.Sprintf("cannot probe conversion mappings: %v", err)
		return check
	}
	if dupes > 0 {
		check.Status = enums.HealthStatusCritical
		check.Message = fmt.Sprintf("%d ingredient(s) have more than one active mapping", dupes)
	}
	return check
}

func (s *service) checkCrossStoreIsolation(ctx context.Context, storeID uuid.UUID) Check {
	check := Check{Name: "store_isolation", Status: enums.HealthStatusHealthy}
	leakedMappings, err := s.deps.Deployments.CountCrossStoreMappings(ctx, storeID)
	if err != nil {
		check.Status = enums.HealthStatusCritical
		check.Message = fmt.Sprintf("cannot probe recipe mappings: %v", err)
		return check
	}
	leakedMovements, err := s.deps.Movements.CountLeakedByStore(ctx, storeID)
	if err != nil {
		check.Status = enums.HealthStatusCritical
		check.Message = fmt.Sprintf("cannot probe movement isolation: %v", err)
		return check
	}
	if leakedMappings > 0 || leakedMovements > 0 {
		check.Status = enums.HealthStatusCritical
		check.Message = fmt.Sprintf("cross-store references found: %d mappings, %d movements",
			leakedMappings, leakedMovements)
	}
	return check
}

func (s *service) checkSuccessRate(ctx context.Context, storeID uuid.UUID) Check {
	check := Check{Name: "deduction_success_rate", Status: enums.HealthStatusHealthy}
	since := s.now().Add(-s.deps.SuccessRateWindow)
	sales, err := s.deps.Movements.CountByStoreSince(ctx, storeID, enums.MovementTypeSale, since)
	if err != nil {
		check.Status = enums.HealthStatusCritical
		check.Message = fmt.Sprintf("cannot probe sale movements: %v", err)
		return check
	}
	comps, err := s.deps.Movements.CountByStoreSince(ctx, storeID, enums.MovementTypeCompensation, since)
	if err != nil {
		check.Status = enums.HealthStatusCritical
		check.Message = fmt.Sprintf("cannot probe compensation movements: %v", err)
		return check
	}
	total := sales + comps
	if total == 0 {
		check.Message = "no deduction activity in window"
		return check
	}
	rate := float64(sales) / float64(total) * 100
	check.Message = fmt.Sprintf("%.1f%% of movements were clean sales", rate)
	switch {
	case rate >= 95:
	case rate >= 80:
		check.Status = enums.HealthStatusWarning
	default:
		check.Status = enums.HealthStatusCritical
	}
	return check
}
