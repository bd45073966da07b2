package validators

import (
	"fmt"

	"github.com/google/uuid"

	apperrors "github.com/marianocruz/pos-inventory-backend/pkg/errors"
)

// ParseUUID validates a path or body parameter as a UUID.
func ParseUUID(value, name string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, apperrors.Wrap(apperrors.CodeValidation, err,
			fmt.Sprintf("%s must be a valid uuid", name))
	}
	return parsed, nil
}
