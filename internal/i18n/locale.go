package i18n

import (
	"context"
	"net/http"

	"golang.org/x/text/language"
)

const DefaultLocale = "es"

// The first tag is the fallback when nothing in Accept-Language matches.
var matcher = language.NewMatcher([]language.Tag{
	language.Spanish,
	language.English,
})

type ctxKey struct{}

func LocaleFromRequest(r *http.Request) string {
	if r == nil {
		return DefaultLocale
	}
	return NormalizeLocale(r.Header.Get("Accept-Language"))
}

// NormalizeLocale reduces an Accept-Language header to one of the
// supported base languages.
func NormalizeLocale(header string) string {
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return DefaultLocale
	}
	tag, _, _ := matcher.Match(tags...)
	base, _ := tag.Base()
	if _, ok := catalogs[base.String()]; !ok {
		return DefaultLocale
	}
	return base.String()
}

func WithLocale(ctx context.Context, locale string) context.Context {
	return context.WithValue(ctx, ctxKey{}, locale)
}

func FromContext(ctx context.Context) string {
	if locale, ok := ctx.Value(ctxKey{}).(string); ok && locale != "" {
		return locale
	}
	return DefaultLocale
}
