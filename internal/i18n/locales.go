package i18n

import (
	"strings"
)

// FallbackLocale is used when a project configures no locales at all.
const FallbackLocale = "ru"

const (
	settingsKey      = "locales"
	defaultLocaleKey = "default_locale"
	localesKey       = "locales"
)

// Locales is the canonical locale configuration of a project.
type Locales struct {
	Default string   `json:"default_locale"`
	Codes   []string `json:"locales"`
}

// Contains reports whether code (normalized) is configured.
func (l Locales) Contains(code string) bool {
	code = Normalize(code)
	for _, candidate := range l.Codes {
		if candidate == code {
			return true
		}
	}
	return false
}

// Settings renders the locales back into the shape stored under
// settings["locales"].
func (l Locales) Settings() map[string]any {
	codes := make([]string, len(l.Codes))
	copy(codes, l.Codes)
	return map[string]any{
		defaultLocaleKey: l.Default,
		localesKey:       codes,
	}
}

// Normalize trims and lower-cases a locale code.
func Normalize(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

// Resolver normalizes and resolves project locales against a fallback code.
type Resolver struct {
	fallback string
}

// NewResolver builds a resolver. An empty fallback selects FallbackLocale.
func NewResolver(fallback string) Resolver {
	fallback = Normalize(fallback)
	if fallback == "" {
		fallback = FallbackLocale
	}
	return Resolver{fallback: fallback}
}

// Fallback returns the locale used when nothing is configured.
func (r Resolver) Fallback() string {
	if r.fallback == "" {
		return FallbackLocale
	}
	return r.fallback
}

// EnsureLocales normalizes settings["locales"] in place and returns the
// canonical configuration. Calling it on its own output is a no-op.
func (r Resolver) EnsureLocales(settings map[string]any) Locales {
	var raw map[string]any
	if settings != nil {
		raw = asMap(settings[settingsKey])
	}

	defaultLocale := Normalize(asString(raw[defaultLocaleKey]))
	if defaultLocale == "" {
		defaultLocale = r.Fallback()
	}

	codes := asStrings(raw[localesKey])
	if len(codes) == 0 {
		codes = []string{defaultLocale}
	}

	locales := Locales{
		Default: defaultLocale,
		Codes:   withDefaultFirst(defaultLocale, dedupe(codes)),
	}
	if settings != nil {
		settings[settingsKey] = locales.Settings()
	}
	return locales
}

// ResolveLocale returns requested when the project configures it, otherwise
// the project's default locale.
func (r Resolver) ResolveLocale(settings map[string]any, requested string) string {
	locales := r.EnsureLocales(settings)
	if normalized := Normalize(requested); normalized != "" && locales.Contains(normalized) {
		return normalized
	}
	return locales.Default
}

// SanitizeLocales canonicalizes a locale list submitted by a settings editor.
// An empty list collapses to the fallback locale and an empty default picks
// the first configured code.
func (r Resolver) SanitizeLocales(defaultLocale string, codes []string) Locales {
	normalized := dedupe(codes)
	if len(normalized) == 0 {
		normalized = []string{r.Fallback()}
	}
	def := Normalize(defaultLocale)
	if def == "" {
		def = normalized[0]
	}
	return Locales{Default: def, Codes: withDefaultFirst(def, normalized)}
}

// Content carries the three payload tiers of a block.
type Content struct {
	Config       map[string]any
	Defaults     map[string]any
	Translations map[string]map[string]any
}

// PayloadForLocale picks the translation for locale when it is not the
// default and is non-empty, then the base config, then the definition
// defaults. The returned map is shared with src; callers copy before mutating.
func (r Resolver) PayloadForLocale(src Content, locale string, settings map[string]any) map[string]any {
	locales := r.EnsureLocales(settings)
	locale = Normalize(locale)
	if locale != "" && locale != locales.Default {
		if translated := lookupTranslation(src.Translations, locale); len(translated) > 0 {
			return translated
		}
	}
	if len(src.Config) > 0 {
		return src.Config
	}
	if len(src.Defaults) > 0 {
		return src.Defaults
	}
	return map[string]any{}
}

var defaultResolver = NewResolver(FallbackLocale)

// EnsureLocales uses the package resolver with FallbackLocale.
func EnsureLocales(settings map[string]any) Locales {
	return defaultResolver.EnsureLocales(settings)
}

// ResolveLocale uses the package resolver with FallbackLocale.
func ResolveLocale(settings map[string]any, requested string) string {
	return defaultResolver.ResolveLocale(settings, requested)
}

// SanitizeLocales uses the package resolver with FallbackLocale.
func SanitizeLocales(defaultLocale string, codes []string) Locales {
	return defaultResolver.SanitizeLocales(defaultLocale, codes)
}

// PayloadForLocale uses the package resolver with FallbackLocale.
func PayloadForLocale(src Content, locale string, settings map[string]any) map[string]any {
	return defaultResolver.PayloadForLocale(src, locale, settings)
}

func lookupTranslation(translations map[string]map[string]any, locale string) map[string]any {
	if len(translations) == 0 {
		return nil
	}
	if payload, ok := translations[locale]; ok {
		return payload
	}
	for code, payload := range translations {
		if Normalize(code) == locale {
			return payload
		}
	}
	return nil
}

func dedupe(codes []string) []string {
	out := make([]string, 0, len(codes))
	seen := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		normalized := Normalize(code)
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	return out
}

func withDefaultFirst(def string, codes []string) []string {
	for _, code := range codes {
		if code == def {
			return codes
		}
	}
	return append([]string{def}, codes...)
}

func asMap(value any) map[string]any {
	switch typed := value.(type) {
	case map[string]any:
		return typed
	case map[string]string:
		out := make(map[string]any, len(typed))
		for k, v := range typed {
			out[k] = v
		}
		return out
	default:
		return nil
	}
}

func asString(value any) string {
	if s, ok := value.(string); ok {
		return s
	}
	return ""
}

func asStrings(value any) []string {
	switch typed := value.(type) {
	case []string:
		return typed
	case []any:
		out := make([]string, 0, len(typed))
		for _, item := range typed {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
