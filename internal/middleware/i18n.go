// internal/middleware/i18n.go
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/text/language"
)

const defaultLocale = "en"

// Bare and Simplified Chinese fall back to the Traditional Chinese bundle,
// the only Chinese locale shipped.
var (
	localeTags = []language.Tag{
		language.English,
		language.MustParse("zh-Hant-TW"),
		language.Chinese,
	}
	tagLocales    = []string{defaultLocale, "zh_TW", "zh_TW"}
	localeMatcher = language.NewMatcher(localeTags)
)

// I18nMiddleware stores the caller's locale under "lang", chosen from the
// Accept-Language list by preference weight.
func I18nMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("lang", resolveLocale(c.GetHeader("Accept-Language")))
		c.Next()
	}
}

func resolveLocale(header string) string {
	header = strings.ReplaceAll(strings.TrimSpace(header), "_", "-")
	if header == "" {
		return defaultLocale
	}
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return defaultLocale
	}
	_, idx, confidence := localeMatcher.Match(tags...)
	if confidence == language.No || idx < 0 || idx >= len(tagLocales) {
		return defaultLocale
	}
	return tagLocales[idx]
}
