// Package apperr defines the closed error taxonomy shared by every layer of the
// gateway and its total mapping onto HTTP status codes.
//
// Codes live in three namespaces:
//   - SYS_*: transport and infrastructure failures
//   - AUT_*: authentication and authorization
//   - BUS_*: domain / business rule outcomes
//
// Clients branch on the code, never on the message.
package apperr

import "net/http"

// Code is a stable, machine-readable error identifier.
type Code string

// Category groups codes by namespace.
type Category string

const (
	CategorySystem   Category = "system"
	CategoryAuth     Category = "auth"
	CategoryBusiness Category = "business"
)

// System codes.
const (
	CodeInternal         Code = "SYS_001"
	CodeDatabase         Code = "SYS_002"
	CodeNetwork          Code = "SYS_003"
	CodeUnavailable      Code = "SYS_004"
	CodeRateLimited      Code = "SYS_005"
	CodeMethodNotAllowed Code = "SYS_006"
)

// Auth codes.
const (
	CodeUnauthorized       Code = "AUT_001"
	CodeForbidden          Code = "AUT_002"
	CodeTokenExpired       Code = "AUT_003"
	CodeInvalidCredentials Code = "AUT_004"
)

// Business codes.
const (
	CodeValidation    Code = "BUS_001"
	CodeNotFound      Code = "BUS_002"
	CodeDuplicate     Code = "BUS_003"
	CodeRuleViolation Code = "BUS_004"
)

type def struct {
	status   int
	category Category
	message  string
}

// catalog is never mutated after package init.
var catalog = map[Code]def{
	CodeInternal:         {http.StatusInternalServerError, CategorySystem, "internal server error"},
	CodeDatabase:         {http.StatusInternalServerError, CategorySystem, "database error"},
	CodeNetwork:          {http.StatusBadGateway, CategorySystem, "network error"},
	CodeUnavailable:      {http.StatusServiceUnavailable, CategorySystem, "service temporarily unavailable"},
	CodeRateLimited:      {http.StatusTooManyRequests, CategorySystem, "rate limit exceeded"},
	CodeMethodNotAllowed: {http.StatusMethodNotAllowed, CategorySystem, "method not allowed"},

	CodeUnauthorized:       {http.StatusUnauthorized, CategoryAuth, "authentication required"},
	CodeForbidden:          {http.StatusForbidden, CategoryAuth, "insufficient permissions"},
	CodeTokenExpired:       {http.StatusUnauthorized, CategoryAuth, "token expired"},
	CodeInvalidCredentials: {http.StatusUnauthorized, CategoryAuth, "invalid credentials"},

	CodeValidation:    {http.StatusBadRequest, CategoryBusiness, "invalid input"},
	CodeNotFound:      {http.StatusNotFound, CategoryBusiness, "resource not found"},
	CodeDuplicate:     {http.StatusConflict, CategoryBusiness, "resource already exists"},
	CodeRuleViolation: {http.StatusBadRequest, CategoryBusiness, "business rule violation"},
}

// Codes returns every defined code in a stable order.
func Codes() []Code {
	return []Code{
		CodeInternal, CodeDatabase, CodeNetwork, CodeUnavailable, CodeRateLimited, CodeMethodNotAllowed,
		CodeUnauthorized, CodeForbidden, CodeTokenExpired, CodeInvalidCredentials,
		CodeValidation, CodeNotFound, CodeDuplicate, CodeRuleViolation,
	}
}

// Known reports whether c is part of the taxonomy.
func Known(c Code) bool {
	_, ok := catalog[c]
	return ok
}

// StatusOf returns the HTTP status for c. Unknown codes map to 500 so the
// function is total.
func StatusOf(c Code) int {
	if d, ok := catalog[c]; ok {
		return d.status
	}
	return http.StatusInternalServerError
}

// CategoryOf returns the namespace of c, defaulting to system.
func CategoryOf(c Code) Category {
	if d, ok := catalog[c]; ok {
		return d.category
	}
	return CategorySystem
}

// DefaultMessage returns the human-readable fallback message for c.
func DefaultMessage(c Code) string {
	if d, ok := catalog[c]; ok {
		return d.message
	}
	return catalog[CodeInternal].message
}

// CodeForStatus picks the canonical code for a bare HTTP status. It is used
// when an upstream reports only a status and no code.
func CodeForStatus(status int) Code {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity, http.StatusRequestEntityTooLarge:
		return CodeValidation
	case http.StatusUnauthorized:
		return CodeUnauthorized
	case http.StatusForbidden:
		return CodeForbidden
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusConflict:
		return CodeDuplicate
	case http.StatusMethodNotAllowed:
		return CodeMethodNotAllowed
	case http.StatusTooManyRequests:
		return CodeRateLimited
	case http.StatusBadGateway:
		return CodeNetwork
	case http.StatusRequestTimeout, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return CodeUnavailable
	}
	if status >= 400 && status < 500 {
		return CodeRuleViolation
	}
	return CodeInternal
}
