package dto

import (
	"clinicledger/internal/core/apperror"
	"clinicledger/internal/core/id"
)

// ParseID parses a path or query id, naming field in the validation error.
func ParseID(s, field string) (id.ID, error) {
	v, err := id.Parse(s)
	if err != nil || id.IsNil(v) {
		return id.Nil(), apperror.NewValidation("invalid id").
			WithDetail("field", field).
			WithDetail("value", s)
	}
	return v, nil
}
