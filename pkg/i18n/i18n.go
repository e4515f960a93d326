// Package i18n provides localized user-visible strings. Catalogs are
// embedded YAML files keyed by message name; substitutions use $1..$9
// placeholders the way extension message catalogs do.
package i18n

import (
	"embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var localeFS embed.FS

// FallbackLocale is used for keys missing from the active catalog.
const FallbackLocale = "en"

// Provider resolves message keys against a locale catalog with an
// English fallback.
type Provider struct {
	locale   string
	messages map[string]string
	fallback map[string]string
}

// NewProvider loads the catalog for the given locale. Unknown locales
// are not an error; every lookup then serves the fallback catalog.
func NewProvider(locale string) (*Provider, error) {
	fallback, err := loadCatalog(FallbackLocale)
	if err != nil {
		return nil, fmt.Errorf("failed to load fallback catalog: %w", err)
	}

	messages := fallback
	if locale != "" && locale != FallbackLocale {
		if m, err := loadCatalog(locale); err == nil {
			messages = m
		}
	}

	return &Provider{locale: locale, messages: messages, fallback: fallback}, nil
}

// Locale returns the locale this provider was created for.
func (p *Provider) Locale() string {
	return p.locale
}

// GetMessage returns the localized string for key with $1..$9
// placeholders replaced by the given substitutions. A key missing from
// both catalogs returns the key itself, so a missed translation is
// visible instead of silent.
func (p *Provider) GetMessage(key string, subs ...string) string {
	msg, ok := p.messages[key]
	if !ok {
		msg, ok = p.fallback[key]
	}
	if !ok {
		return key
	}
	for i, sub := range subs {
		msg = strings.ReplaceAll(msg, fmt.Sprintf("$%d", i+1), sub)
	}
	return msg
}

func loadCatalog(locale string) (map[string]string, error) {
	data, err := localeFS.ReadFile("locales/" + locale + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("no catalog for locale %q: %w", locale, err)
	}
	catalog := make(map[string]string)
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse catalog %q: %w", locale, err)
	}
	return catalog, nil
}
