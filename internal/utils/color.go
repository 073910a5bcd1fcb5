package utils

import (
	"fmt"
	"math/rand"
	"regexp"
)

var hexColor = regexp.MustCompile(`^#[A-Fa-f0-9]{6}$`)

// IsHexColor reports whether s is a "#RRGGBB" color code.
func IsHexColor(s string) bool {
	return hexColor.MatchString(s)
}

// RandomColor returns a random "#RRGGBB" color, used for bulk-created tags.
func RandomColor() string {
	return fmt.Sprintf("#%06X", rand.Intn(0x1000000))
}
