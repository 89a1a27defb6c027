package payroll

import (
	"strings"
)

// Category is a validated PRSI class or NIC category letter ("A", "J", ...).
type Category string

// NormalizeCategory turns free-form OCR text such as " a1 " or "AX" into its
// leading letter. ok is false when nothing usable is present.
func NormalizeCategory(raw string) (Category, bool) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return "", false
	}
	c := s[0]
	if c < 'A' || c > 'Z' {
		return "", false
	}
	return Category(c), true
}

func (c Category) String() string { return string(c) }
