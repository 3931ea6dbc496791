package renderly

import (
	"github.com/goliatone/go-renderly/internal/blocks"
	"github.com/goliatone/go-renderly/internal/i18n"
)

// FallbackLocale is used when neither config nor project settings name a
// default locale.
const FallbackLocale = i18n.FallbackLocale

func (m *Module) resolver() i18n.Resolver {
	if m.ready() != nil {
		return i18n.NewResolver(FallbackLocale)
	}
	return m.container.Resolver()
}

// EnsureLocales normalises the locale configuration held in settings and
// writes the canonical shape back.
func (m *Module) EnsureLocales(settings map[string]any) Locales {
	return m.resolver().EnsureLocales(settings)
}

// ResolveLocale picks requested when the project supports it, otherwise the
// project's default locale.
func (m *Module) ResolveLocale(settings map[string]any, requested string) string {
	return m.resolver().ResolveLocale(settings, requested)
}

// SanitizeLocales normalises a locale settings payload.
func (m *Module) SanitizeLocales(defaultLocale string, codes []string) Locales {
	return m.resolver().SanitizeLocales(defaultLocale, codes)
}

// BlockPayloadForLocale returns the payload block renders with in locale:
// its translation, then its config, then the definition defaults.
func (m *Module) BlockPayloadForLocale(block *BlockInstance, locale string, settings map[string]any) map[string]any {
	return m.resolver().PayloadForLocale(blocks.FromInstance(block).Content(), locale, settings)
}
