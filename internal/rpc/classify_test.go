package rpc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parkgolf/golf-bff/internal/apperr"
)

func TestClassify_Kinds(t *testing.T) {
	cases := []struct {
		name   string
		f      *Failure
		code   apperr.Code
		status int
	}{
		{"nil", nil, apperr.CodeInternal, 500},
		{"timeout", &Failure{Kind: KindTimeout}, apperr.CodeUnavailable, 503},
		{"connection", &Failure{Kind: KindConnection}, apperr.CodeUnavailable, 503},
		{"canceled", &Failure{Kind: KindCanceled}, apperr.CodeUnavailable, 503},
		{"unknown", &Failure{Kind: KindUnknown}, apperr.CodeInternal, 500},
		{"out of range kind", &Failure{Kind: FailureKind(42)}, apperr.CodeInternal, 500},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, status := Classify(tc.f)
			assert.Equal(t, tc.code, code)
			assert.Equal(t, tc.status, status)
		})
	}
}

func TestClassify_Upstream(t *testing.T) {
	cases := []struct {
		name string
		f    Failure
		code apperr.Code
	}{
		{"taxonomy code", Failure{Code: "BUS_003"}, apperr.CodeDuplicate},
		{"lower-case taxonomy code", Failure{Code: " aut_002 "}, apperr.CodeForbidden},
		{"legacy auth", Failure{Code: "AUTH_001"}, apperr.CodeInvalidCredentials},
		{"legacy booking", Failure{Code: "BOOK_002"}, apperr.CodeDuplicate},
		{"legacy db", Failure{Code: "DB_004"}, apperr.CodeDatabase},
		{"legacy external", Failure{Code: "EXT_003"}, apperr.CodeNetwork},
		{"code wins over status", Failure{Code: "BUS_002", Status: 500}, apperr.CodeNotFound},
		{"status only", Failure{Status: 404}, apperr.CodeNotFound},
		{"status 409", Failure{Status: 409}, apperr.CodeDuplicate},
		{"status 503", Failure{Status: 503}, apperr.CodeUnavailable},
		{"status wins over keywords", Failure{Status: 403, Message: "not found"}, apperr.CodeForbidden},
		{"keyword not found", Failure{Message: "Course not found"}, apperr.CodeNotFound},
		{"keyword expired", Failure{Message: "Token expired"}, apperr.CodeTokenExpired},
		{"keyword credentials", Failure{Message: "Invalid credentials"}, apperr.CodeInvalidCredentials},
		{"keyword unauthorized", Failure{Message: "Unauthorized access"}, apperr.CodeUnauthorized},
		{"keyword permission", Failure{Message: "No permission to cancel"}, apperr.CodeForbidden},
		{"keyword duplicate", Failure{Message: "Booking already exists"}, apperr.CodeDuplicate},
		{"keyword invalid", Failure{Message: "date is required"}, apperr.CodeValidation},
		{"unrecognized code falls through", Failure{Code: "WHAT_999", Message: "slot is full"}, apperr.CodeInternal},
		{"generic framework error", Failure{Message: "Internal server error"}, apperr.CodeInternal},
		{"empty", Failure{}, apperr.CodeInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := tc.f
			f.Kind = KindUpstream
			code, status := Classify(&f)
			assert.Equal(t, tc.code, code)
			assert.Equal(t, apperr.StatusOf(tc.code), status)
		})
	}
}

func TestClassify_UnstructuredRepliesAreServerFaults(t *testing.T) {
	cases := []struct {
		name  string
		reply string
	}{
		{"framework default error", `{"err":{"status":"error","message":"Internal server error"},"isDisposed":true}`},
		{"bare failure flag", `{"success":false}`},
		{"failure with plain message", `{"success":false,"message":"something broke"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, f, err := decodeReply([]byte(tc.reply))
			require.NoError(t, err)
			require.NotNil(t, f)
			code, status := Classify(f)
			assert.Equal(t, apperr.CodeInternal, code)
			assert.Equal(t, 500, status)
		})
	}
}

func TestClassify_TotalAndDeterministic(t *testing.T) {
	kinds := []FailureKind{KindUnknown, KindTimeout, KindConnection, KindUpstream, KindCanceled}
	codes := []string{"", "SYS_001", "AUTH_009", "BOOK_001", "garbage"}
	statuses := []int{0, 200, 400, 401, 418, 500, 599, 700}
	for _, k := range kinds {
		for _, c := range codes {
			for _, s := range statuses {
				f := &Failure{Kind: k, Code: c, Status: s, Message: "x"}
				code1, status1 := Classify(f)
				code2, status2 := Classify(f)
				assert.True(t, apperr.Known(code1), "%v %q %d", k, c, s)
				assert.Equal(t, apperr.StatusOf(code1), status1)
				assert.Equal(t, code1, code2)
				assert.Equal(t, status1, status2)
			}
		}
	}
}

func TestToError(t *testing.T) {
	t.Run("timeout hides internal message", func(t *testing.T) {
		f := &Failure{Kind: KindTimeout, Message: "courses.list did not reply within 10s"}
		e := ToError(f)
		assert.Equal(t, apperr.CodeUnavailable, e.Code)
		assert.Equal(t, apperr.DefaultMessage(apperr.CodeUnavailable), e.Message)
		assert.True(t, errors.Is(e, f))
	})
	t.Run("upstream keeps message", func(t *testing.T) {
		e := ToError(&Failure{Kind: KindUpstream, Code: "BOOK_003", Message: "Slot is full"})
		assert.Equal(t, apperr.CodeRuleViolation, e.Code)
		assert.Equal(t, "Slot is full", e.Message)
	})
	t.Run("nil", func(t *testing.T) {
		e := ToError(nil)
		assert.Equal(t, apperr.CodeInternal, e.Code)
	})
}
