// Package normalize cleans raw text pulled off listing pages into canonical
// field values.
package normalize

import "strings"

// CleanQuota strips a single trailing percent sign from an employment-grade
// value such as "80%" or "60-100%". A nil input stays nil and any other string
// without a trailing "%" is returned unchanged.
func CleanQuota(raw *string) *string {
	if raw == nil {
		return nil
	}
	cleaned := strings.TrimSuffix(*raw, "%")
	return &cleaned
}

// CleanText trims the value and collapses internal whitespace runs, including
// non-breaking spaces, into a single space.
func CleanText(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return strings.Join(strings.Fields(s), " ")
}

// Ptr returns a pointer to s.
func Ptr(s string) *string {
	return &s
}
