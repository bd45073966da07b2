package enums

// HealthStatus grades a health check outcome.
type HealthStatus string

const (
	HealthStatusHealthy  HealthStatus = "healthy"
	HealthStatusWarning  HealthStatus = "warning"
	HealthStatusCritical HealthStatus = "critical"
)

// String implements fmt.Stringer.
func (h HealthStatus) String() string {
	return string(h)
}

// IsValid reports whether the value is a known HealthStatus.
func (h HealthStatus) IsValid() bool {
	switch h {
	case HealthStatusHealthy, HealthStatusWarning, HealthStatusCritical:
		return true
	}
	return false
}

func (h HealthStatus) rank() int {
	switch h {
	case HealthStatusCritical:
		return 2
	case HealthStatusWarning:
		return 1
	default:
		return 0
	}
}

// Worst returns the more severe of two statuses.
func (h HealthStatus) Worst(other HealthStatus) HealthStatus {
	if other.rank() > h.rank() {
		return other
	}
	return h
}
