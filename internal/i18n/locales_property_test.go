//go:build property
// +build property

package i18n_test

import (
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/goliatone/go-renderly/internal/i18n"
)

func TestLocaleProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	codeGen := gen.RegexMatch(`^ ?[a-zA-Z]{2} ?$`)

	properties.Property("ensure locales is idempotent and keeps the default", prop.ForAll(
		func(def string, codes []string) bool {
			settings := map[string]any{"locales": map[string]any{"default_locale": def, "locales": codes}}
			first := i18n.EnsureLocales(settings)
			second := i18n.EnsureLocales(settings)
			return reflect.DeepEqual(first, second) && first.Contains(first.Default)
		},
		codeGen,
		gen.SliceOf(codeGen),
	))

	properties.Property("config-only blocks render the default payload for any locale", prop.ForAll(
		func(requested string, headline string) bool {
			settings := map[string]any{"locales": map[string]any{"default_locale": "ru", "locales": []string{"ru", "en", "de"}}}
			src := i18n.Content{Config: map[string]any{"headline": headline}}
			got := i18n.PayloadForLocale(src, requested, settings)
			want := i18n.PayloadForLocale(src, "ru", settings)
			return reflect.DeepEqual(got, want)
		},
		codeGen,
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
