package services

import (
	"errors"
)

// Error kinds surfaced to callers. Wrap with fmt.Errorf("%w: ...") and
// classify with errors.Is. Uniqueness conflicts (gorm.ErrDuplicatedKey) are
// consumed internally by the slug allocator and the trigram dictionary and
// never escape this package.
var (
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrValidation = errors.New("validation failed")
)
