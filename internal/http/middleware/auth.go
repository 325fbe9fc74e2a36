// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file extracts the bearer token that is forwarded to downstream
// services. The gateway never verifies tokens; that is the auth service's
// job. Claims are read unverified and only ever label log lines.
package middleware

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/parkgolf/golf-bff/internal/apperr"
)

const (
	tokenKey = "token"
	roleKey  = "role"
)

// RequireBearer rejects requests without a well-formed
// "Authorization: Bearer <token>" header with AUT_001, before any
// downstream call is made.
func RequireBearer() gin.HandlerFunc {
	return func(c *gin.Context) {
		tok, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			_ = c.Error(apperr.Unauthorized("missing or malformed bearer token"))
			c.Abort()
			return
		}
		attachToken(c, tok)
		c.Next()
	}
}

// OptionalBearer forwards a bearer token when one is present and never rejects.
func OptionalBearer() gin.HandlerFunc {
	return func(c *gin.Context) {
		if tok, ok := bearerToken(c.GetHeader("Authorization")); ok {
			attachToken(c, tok)
		}
		c.Next()
	}
}

// Token returns the bearer token of the request, or "".
func Token(c *gin.Context) string { return c.GetString(tokenKey) }

// roleClaim returns the unverified role claim of the request, or "".
func roleClaim(c *gin.Context) string { return c.GetString(roleKey) }

// UserID returns the unverified subject claim of the request, or "".
func UserID(c *gin.Context) string { return c.GetString(userIDKey) }

func bearerToken(h string) (string, bool) {
	scheme, tok, ok := strings.Cut(strings.TrimSpace(h), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	tok = strings.TrimSpace(tok)
	if tok == "" || strings.ContainsAny(tok, " \t") {
		return "", false
	}
	return tok, true
}

func attachToken(c *gin.Context, tok string) {
	c.Set(tokenKey, tok)

	sub, role := peekClaims(tok)
	if sub == "" {
		return
	}
	c.Set(userIDKey, sub)
	if role != "" {
		c.Set(roleKey, role)
	}
	setLogger(c, LoggerFrom(c).With().Str("user_id", sub).Logger())
}

// peekClaims reads sub and role without verifying the signature. Opaque
// tokens yield empty strings.
func peekClaims(tok string) (sub, role string) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tok, claims); err != nil {
		return "", ""
	}
	sub, _ = claims.GetSubject()
	if sub == "" {
		// Tokens issued by the auth service carry a numeric "userId".
		switch v := claims["userId"].(type) {
		case string:
			sub = v
		case float64:
			if v == float64(int64(v)) {
				sub = strconv.FormatInt(int64(v), 10)
			}
		}
	}
	role, _ = claims["role"].(string)
	return sub, role
}

