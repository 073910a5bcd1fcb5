package services

import (
	"errors"
	"fmt"

	"campuslink/internal/utils"

	"gorm.io/gorm"
)

// SlugAllocator derives unique URL-safe slugs from display names. It does
// not pre-check for free slugs: each attempt is a single atomic insert, and
// a uniqueness violation just advances the numeric suffix. Racing allocators
// on the same base name converge to distinct suffixes with no check-then-act
// window. The loop is unbounded on purpose; the collision space is too.
type SlugAllocator struct{}

// Allocate slugifies name and calls insert with "base", then "base-1",
// "base-2", ... until insert stops failing with gorm.ErrDuplicatedKey.
// Any other insert error aborts. Rename re-derivation uses the identical
// path; the allocator never needs the previous slug.
func (SlugAllocator) Allocate(name string, insert func(slug string) error) (string, error) {
	base := utils.Slugify(name)
	if base == "" {
		return "", fmt.Errorf("%w: name %q produces an empty slug", ErrValidation, name)
	}

	slug := base
	for n := 1; ; n++ {
		err := insert(slug)
		if err == nil {
			return slug, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return "", err
		}
		slug = fmt.Sprintf("%s-%d", base, n)
	}
}
