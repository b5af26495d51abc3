// Package i18n localizes the runtime's default user-facing copy.
package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// BaseLocale is the canonical source locale.
const BaseLocale = "en-US"

var supported = []language.Tag{
	language.MustParse("en-US"),
	language.MustParse("pt-BR"),
}

var matcher = language.NewMatcher(supported)

var defaultCatalog = buildCatalog()

func buildCatalog() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(supported[0]))
	entries := map[string]map[string]string{
		"en-US": {
			"boundary.error.title":   "Application Error",
			"boundary.error.detail":  "Something went wrong rendering this page.",
			"boundary.catch.title":   "Unexpected Response",
			"boundary.missing.route": "No view registered for this route.",
		},
		"pt-BR": {
			"boundary.error.title":   "Erro na aplicação",
			"boundary.error.detail":  "Algo deu errado ao renderizar esta página.",
			"boundary.catch.title":   "Resposta inesperada",
			"boundary.missing.route": "Nenhuma view registrada para esta rota.",
		},
	}
	for locale, messages := range entries {
		tag := language.MustParse(locale)
		for key, value := range messages {
			if err := b.SetString(tag, key, value); err != nil {
				panic(err)
			}
		}
	}
	return b
}

// Match resolves an Accept-Language header to a supported tag.
func Match(acceptLanguage string) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return supported[0]
	}
	_, index, _ := matcher.Match(tags...)
	return supported[index]
}

// Localizer resolves message keys for one locale.
type Localizer struct {
	printer *message.Printer
}

// NewLocalizer creates a localizer for tag.
func NewLocalizer(tag language.Tag) *Localizer {
	return &Localizer{printer: message.NewPrinter(tag, message.Catalog(defaultCatalog))}
}

// Sprintf resolves a message key, falling back to the key itself when no
// translation exists.
func (l *Localizer) Sprintf(key string, args ...any) string {
	if l == nil || l.printer == nil {
		return key
	}
	return l.printer.Sprintf(key, args...)
}
