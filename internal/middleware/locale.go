package middleware

import (
	"context"
	"net/http"
	"strings"

	"golang.org/x/text/language"
)

type localeContextKey struct{}
type countryContextKey struct{}

var (
	LocaleKey  = localeContextKey{}
	CountryKey = countryContextKey{}
)

// CountryLookup resolves ISO country codes for an IP address.
type CountryLookup func(ip string) (string, error)

var supportedLocales = language.NewMatcher([]language.Tag{
	language.English, // first entry is the fallback
	language.Indonesian,
	language.Spanish,
	language.Japanese,
})

// Locale detects the requester's locale and country and stores both in the
// request context. The values end up in task metadata at submission time;
// no copy translation happens server-side.
func Locale(defaultLocale string, lookup CountryLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			country := resolveCountry(r, lookup)
			locale := detectLocale(r, defaultLocale)
			ctx := context.WithValue(r.Context(), LocaleKey, locale)
			if country != "" {
				ctx = context.WithValue(ctx, CountryKey, strings.ToUpper(country))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func detectLocale(r *http.Request, fallback string) string {
	if v := r.Header.Get("X-Locale"); v != "" {
		return matchLocale(v)
	}
	if header := r.Header.Get("Accept-Language"); header != "" {
		if tags, _, err := language.ParseAcceptLanguage(header); err == nil && len(tags) > 0 {
			_, idx, _ := supportedLocales.Match(tags...)
			return localeAt(idx)
		}
	}
	if fallback != "" {
		return fallback
	}
	return "en"
}

func matchLocale(value string) string {
	tag, err := language.Parse(value)
	if err != nil {
		return "en"
	}
	_, idx, _ := supportedLocales.Match(tag)
	return localeAt(idx)
}

func localeAt(idx int) string {
	switch idx {
	case 1:
		return "id"
	case 2:
		return "es"
	case 3:
		return "ja"
	default:
		return "en"
	}
}

// LocaleFromContext returns the detected locale, or empty.
func LocaleFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(LocaleKey).(string); ok {
		return v
	}
	return ""
}

// CountryFromContext returns the resolved ISO country code, or empty.
func CountryFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(CountryKey).(string); ok {
		return v
	}
	return ""
}

func resolveCountry(r *http.Request, lookup CountryLookup) string {
	if lookup == nil {
		return ""
	}
	ip := clientIPForRateLimit(r)
	if ip == "" {
		return ""
	}
	country, err := lookup(ip)
	if err != nil {
		return ""
	}
	return country
}
