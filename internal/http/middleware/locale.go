// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file negotiates the response language. Downstream services localize
// their messages, so the gateway only picks a supported tag and forwards it
// with every bus request.
package middleware

import (
	"github.com/gin-gonic/gin"
	"golang.org/x/text/language"
)

const localeKey = "locale"

// Supported lists the languages downstream services localize into, the
// first being the default.
var Supported = []language.Tag{language.Korean, language.English}

// Locale negotiates a supported language from the "lang" query parameter,
// then Accept-Language, defaulting to Supported[0].
func Locale() gin.HandlerFunc {
	matcher := language.NewMatcher(Supported)
	return func(c *gin.Context) {
		_, idx := language.MatchStrings(matcher, c.Query("lang"), c.GetHeader("Accept-Language"))
		base, _ := Supported[idx].Base()
		c.Set(localeKey, base.String())
		c.Next()
	}
}

// LocaleFrom returns the negotiated locale ("ko", "en"), or the default when
// Locale did not run.
func LocaleFrom(c *gin.Context) string {
	if s := c.GetString(localeKey); s != "" {
		return s
	}
	base, _ := Supported[0].Base()
	return base.String()
}
