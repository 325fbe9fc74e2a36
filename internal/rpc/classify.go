package rpc

import (
	"strings"

	"github.com/parkgolf/golf-bff/internal/apperr"
)

// Classify maps a failure onto the taxonomy. It is total and deterministic:
// every input, including nil, yields exactly one (code, status) pair.
//
// Timeout and connection failures both resolve to SYS_004, which always
// carries 503.
func Classify(f *Failure) (apperr.Code, int) {
	c := classifyCode(f)
	return c, apperr.StatusOf(c)
}

// ToError converts f into the typed error the HTTP layer serializes.
func ToError(f *Failure) *apperr.Error {
	c, _ := Classify(f)
	if f == nil {
		return apperr.New(c, "")
	}
	msg := apperr.DefaultMessage(c)
	if f.Kind == KindUpstream && f.Message != "" {
		msg = f.Message
	}
	e := apperr.Wrap(f, c, msg)
	if f.Kind == KindUpstream && len(f.Details) > 0 {
		e = e.WithDetails(f.Details)
	}
	if len(f.Stack) > 0 {
		e = e.WithStack(f.Stack)
	}
	return e
}

func classifyCode(f *Failure) apperr.Code {
	if f == nil {
		return apperr.CodeInternal
	}
	switch f.Kind {
	case KindTimeout, KindConnection, KindCanceled:
		return apperr.CodeUnavailable
	case KindUpstream:
		return classifyUpstream(f)
	default:
		return apperr.CodeInternal
	}
}

// classifyUpstream resolves a downstream error in order of trust: a
// taxonomy code, a legacy catalogue code, a bare HTTP status, and finally
// keywords in the message. Keyword matching only picks a bucket when
// everything structured is missing. An error that says nothing usable is a
// downstream fault, SYS_001.
func classifyUpstream(f *Failure) apperr.Code {
	code := strings.ToUpper(strings.TrimSpace(f.Code))
	if c := apperr.Code(code); apperr.Known(c) {
		return c
	}
	if c, ok := legacyCodes[code]; ok {
		return c
	}
	if f.Status >= 400 && f.Status < 600 {
		return apperr.CodeForStatus(f.Status)
	}
	msg := strings.ToLower(f.Message)
	for _, kw := range messageKeywords {
		for _, needle := range kw.needles {
			if strings.Contains(msg, needle) {
				return kw.code
			}
		}
	}
	return apperr.CodeInternal
}

// messageKeywords is evaluated in order; more specific phrases come first.
var messageKeywords = []struct {
	code    apperr.Code
	needles []string
}{
	{apperr.CodeNotFound, []string{"not found", "does not exist", "no such"}},
	{apperr.CodeTokenExpired, []string{"expired"}},
	{apperr.CodeInvalidCredentials, []string{"invalid credentials", "wrong password", "incorrect password"}},
	{apperr.CodeUnauthorized, []string{"unauthorized", "unauthenticated", "invalid token"}},
	{apperr.CodeForbidden, []string{"forbidden", "permission", "not allowed", "privileges"}},
	{apperr.CodeDuplicate, []string{"duplicate", "already exists", "already registered", "conflict"}},
	{apperr.CodeValidation, []string{"invalid", "required", "must be", "validation"}},
}

// legacyCodes maps the downstream services' own catalogue onto the gateway
// taxonomy. Codes that collide with gateway SYS_* codes never reach this
// table because known codes pass through first.
var legacyCodes = map[string]apperr.Code{
	"AUTH_001": apperr.CodeInvalidCredentials,
	"AUTH_002": apperr.CodeTokenExpired,
	"AUTH_003": apperr.CodeUnauthorized,
	"AUTH_004": apperr.CodeTokenExpired,
	"AUTH_005": apperr.CodeForbidden,
	"AUTH_006": apperr.CodeForbidden,
	"AUTH_007": apperr.CodeUnauthorized,

	"USER_001": apperr.CodeNotFound,
	"USER_002": apperr.CodeDuplicate,
	"USER_003": apperr.CodeDuplicate,
	"USER_004": apperr.CodeForbidden,

	"ADMIN_001": apperr.CodeNotFound,
	"ADMIN_002": apperr.CodeDuplicate,
	"ADMIN_003": apperr.CodeForbidden,
	"ADMIN_004": apperr.CodeValidation,

	"BOOK_001": apperr.CodeNotFound,
	"BOOK_002": apperr.CodeDuplicate,
	"BOOK_003": apperr.CodeRuleViolation,
	"BOOK_004": apperr.CodeRuleViolation,
	"BOOK_005": apperr.CodeRuleViolation,
	"BOOK_006": apperr.CodeValidation,
	"BOOK_007": apperr.CodeRuleViolation,

	"COURSE_001": apperr.CodeNotFound,
	"COURSE_002": apperr.CodeNotFound,
	"COURSE_003": apperr.CodeNotFound,
	"COURSE_004": apperr.CodeNotFound,
	"COURSE_005": apperr.CodeNotFound,
	"COURSE_006": apperr.CodeNotFound,
	"COURSE_007": apperr.CodeRuleViolation,

	"NOTI_001": apperr.CodeNotFound,
	"NOTI_002": apperr.CodeInternal,
	"NOTI_003": apperr.CodeNotFound,
	"NOTI_004": apperr.CodeValidation,
	"NOTI_005": apperr.CodeInternal,

	"VAL_001": apperr.CodeValidation,
	"VAL_002": apperr.CodeValidation,
	"VAL_003": apperr.CodeValidation,
	"VAL_004": apperr.CodeValidation,
	"VAL_005": apperr.CodeValidation,

	"EXT_001": apperr.CodeUnavailable,
	"EXT_002": apperr.CodeUnavailable,
	"EXT_003": apperr.CodeNetwork,
	"EXT_004": apperr.CodeNetwork,
	"EXT_005": apperr.CodeNetwork,

	"DB_001": apperr.CodeDuplicate,
	"DB_002": apperr.CodeNotFound,
	"DB_003": apperr.CodeRuleViolation,
	"DB_004": apperr.CodeDatabase,
}
