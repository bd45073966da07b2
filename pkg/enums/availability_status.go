package enums

// AvailabilityStatus tags a deployed recipe ingredient with its stock posture.
type AvailabilityStatus string

const (
	AvailabilityStatusAvailable  AvailabilityStatus = "available"
	AvailabilityStatusLowStock   AvailabilityStatus = "low_stock"
	AvailabilityStatusOutOfStock AvailabilityStatus = "out_of_stock"
)

// String implements fmt.Stringer.
func (a AvailabilityStatus) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AvailabilityStatus.
func (a AvailabilityStatus) IsValid() bool {
	switch a {
	case AvailabilityStatusAvailable, AvailabilityStatusLowStock, AvailabilityStatusOutOfStock:
		return true
	}
	return false
}

// ForStock classifies a stock level against its reorder threshold.
func ForStock(stockQty float64, threshold int) AvailabilityStatus {
	switch {
	case stockQty <= 0:
		return AvailabilityStatusOutOfStock
	case stockQty <= float64(threshold):
		return AvailabilityStatusLowStock
	default:
		return AvailabilityStatusAvailable
	}
}
