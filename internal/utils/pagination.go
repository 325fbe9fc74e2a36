// Package utils provides small, generic helper functions used across
// different layers of the application. These utilities are independent
// of domain or business logic.
package utils

import "strconv"

// Page bounds applied to list queries before they are forwarded downstream.
const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// AtoiDefault converts a string to an int using strconv.Atoi.
// If the string is empty or cannot be parsed as an integer,
// it returns the provided default value instead.
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// Clamp bounds n to [lo, hi].
func Clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

// PageAndLimit parses raw page/limit query values. page is at least 1 and
// limit is within [1, MaxPageLimit].
func PageAndLimit(rawPage, rawLimit string) (page, limit int) {
	page = AtoiDefault(rawPage, 1)
	if page < 1 {
		page = 1
	}
	limit = Clamp(AtoiDefault(rawLimit, DefaultPageLimit), 1, MaxPageLimit)
	return page, limit
}
