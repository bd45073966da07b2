package enums

// ReferenceType identifies the upstream record a movement points back at.
type ReferenceType string

const (
	ReferenceTypeTransaction ReferenceType = "transaction"
	ReferenceTypeDelivery    ReferenceType = "delivery"
	ReferenceTypeDeployment  ReferenceType = "deployment"
)

// String implements fmt.Stringer.
func (r ReferenceType) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ReferenceType.
func (r ReferenceType) IsValid() bool {
	switch r {
	case ReferenceTypeTransaction, ReferenceTypeDelivery, ReferenceTypeDeployment:
		return true
	}
	return false
}
