package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/marianocruz/pos-inventory-backend/pkg/enums"
)

type fakeProbes struct {
	versionPresent bool
	versionErr     error
	idemErr        error
	compErr        error
	dupes          int64
	dupeErr        error
	sales          int64
	comps          int64
	moveErr        error
	leakedMoves    int64
	crossMappings  int64
	pingErr        error
	noCache        bool
}

func (f *fakeProbes) HasVersionColumn(ctx context.Context) (bool, error) {
	return f.versionPresent, f.versionErr
}

func (f *fakeProbes) Count(ctx context.Context) (int64, error) {
	if f.idemErr != nil {
		return 0, f.idemErr
	}
	return 0, f.compErr
}

func (f *fakeProbes) CountDuplicateActive(ctx context.Context, storeID uuid.UUID) (int64, error) {
	return f.dupes, f.dupeErr
}

func (f *fakeProbes) CountByStoreSince(ctx context.Context, storeID uuid.UUID, movementType enums.MovementType, since time.Time) (int64, error) {
	if f.moveErr != nil {
		return 0, f.moveErr
	}
	if movementType == enums.MovementTypeSale {
		return f.sales, nil
	}
	return f.comps, nil
}

func (f *fakeProbes) CountLeakedByStore(ctx context.Context, storeID uuid.UUID) (int64, error) {
	return f.leakedMoves, nil
}

func (f *fakeProbes) CountCrossStoreMappings(ctx context.Context, storeID uuid.UUID) (int64, error) {
	return f.crossMappings, nil
}

func (f *fakeProbes) Ping(ctx context.Context) error { return f.pingErr }

func newHealthService(t *testing.T, probes *fakeProbes) Service {
	t.Helper()
	deps := Deps{
		Stocks:            probes,
		Idempotency:       probes,
		Compensations:     probes,
		Conversions:       probes,
		Movements:         probes,
		Deployments:       probes,
		SuccessRateWindow: time.Hour,
	}
	if !probes.noCache {
		deps.Cache = probes
	}
	svc, err := NewService(deps)
	if err != nil {
		t.Fatalf("NewService error: %v", err)
	}
	return svc
}

func checkByName(t *testing.T, report Report, name string) Check {
	t.Helper()
	for _, check := range report.Checks {
		if check.Name == name {
			return check
		}
	}
	t.Fatalf("check %q not in report: %+v", name, report.Checks)
	return Check{}
}

func TestCheckStoreAllHealthy(t *testing.T) {
	svc := newHealthService(t, &fakeProbes{versionPresent: true, sales: 100, comps: 2})
	report, err := svc.CheckStore(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("CheckStore error: %v", err)
	}
	if report.OverallStatus != enums.HealthStatusHealthy {
		t.Fatalf("expected healthy, got %s: %+v", report.OverallStatus, report.Checks)
	}
	if len(report.Checks) != 6 {
		t.Fatalf("expected 6 checks, got %d", len(report.Checks))
	}
}

func TestCheckStoreMissingVersionColumnIsCritical(t *testing.T) {
	svc := newHealthService(t, &fakeProbes{versionPresent: false})
	report, err := svc.CheckStore(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("CheckStore error: %v", err)
	}
	if report.OverallStatus != enums.HealthStatusCritical {
		t.Fatalf("expected critical, got %s", report.OverallStatus)
	}
	if checkByName(t, report, "optimistic_locking").Status != enums.HealthStatusCritical {
		t.Fatal("version column check should be critical")
	}
}

func TestCheckStoreDuplicateMappingsAreCritical(t *testing.T) {
	svc := newHealthService(t, &fakeProbes{versionPresent: true, dupes: 2})
	report, _ := svc.CheckStore(context.Background(), uuid.New())
	if checkByName(t, report, "conversion_mappings").Status != enums.HealthStatusCritical {
		t.Fatal("duplicate active mappings must be critical")
	}
}

func TestCheckStoreCrossStoreLeakIsCritical(t *testing.T) {
	svc := newHealthService(t, &fakeProbes{versionPresent: true, crossMappings: 1})
	report, _ := svc.CheckStore(context.Background(), uuid.New())
	if checkByName(t, report, "store_isolation").Status != enums.HealthStatusCritical {
		t.Fatal("cross-store mapping must be critical")
	}
}

func TestCheckStoreSuccessRateGrading(t *testing.T) {
	tests := []struct {
		name  string
		sales int64
		comps int64
		want  enums.HealthStatus
	}{
		{"no activity", 0, 0, enums.HealthStatusHealthy},
		{"clean", 99, 1, enums.HealthStatusHealthy},
		{"degraded", 85, 15, enums.HealthStatusWarning},
		{"broken", 10, 10, enums.HealthStatusCritical},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := newHealthService(t, &fakeProbes{versionPresent: true, sales: tc.sales, comps: tc.comps})
			report, err := svc.CheckStore(context.Background(), uuid.New())
			if err != nil {
				t.Fatalf("CheckStore error: %v", err)
			}
			if got := checkByName(t, report, "deduction_success_rate").Status; got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestCheckStoreCacheOutageIsWarningOnly(t *testing.T) {
	svc := newHealthService(t, &fakeProbes{versionPresent: true, pingErr: errors.New("redis down")})
	report, _ := svc.CheckStore(context.Background(), uuid.New())
	if got := checkByName(t, report, "idempotency").Status; got != enums.HealthStatusWarning {
		t.Fatalf("cache outage should be a warning, got %s", got)
	}
	if report.OverallStatus != enums.HealthStatusWarning {
		t.Fatalf("expected warning overall, got %s", report.OverallStatus)
	}
}

func TestCheckStoreProbeErrorNeverFailsTheReport(t *testing.T) {
	svc := newHealthService(t, &fakeProbes{versionPresent: true, moveErr: errors.New("db down")})
	report, err := svc.CheckStore(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("probe errors must be absorbed into the report: %v", err)
	}
	if report.OverallStatus != enums.HealthStatusCritical {
		t.Fatalf("expected critical, got %s", report.OverallStatus)
	}
}

func TestCheckStoreRequiresStoreID(t *testing.T) {
	svc := newHealthService(t, &fakeProbes{versionPresent: true})
	if _, err := svc.CheckStore(context.Background(), uuid.Nil); err == nil {
		t.Fatal("nil store id must be rejected")
	}
}
