// Package i18n localizes column labels and UI strings. Message files are
// embedded; unknown languages fall back to English and unknown keys fall
// back to the key itself, so new dataset columns degrade gracefully.
package i18n

import (
	"embed"
	"encoding/json"
	"fmt"

	goi18n "github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed lang/*.json
var langFS embed.FS

// Languages lists the supported language tags, default first.
var Languages = []string{"en", "de", "fr", "it"}

// Translator holds the loaded message bundle.
type Translator struct {
	bundle *goi18n.Bundle
}

// New loads the embedded message files.
func New() (*Translator, error) {
	bundle := goi18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)
	for _, lang := range Languages {
		if _, err := bundle.LoadMessageFileFS(langFS, "lang/"+lang+".json"); err != nil {
			return nil, fmt.Errorf("load %s messages: %w", lang, err)
		}
	}
	return &Translator{bundle: bundle}, nil
}

// Localizer returns a localizer for the given language, falling back to
// English for unknown languages and untranslated keys.
func (t *Translator) Localizer(lang string) *Localizer {
	return &Localizer{loc: goi18n.NewLocalizer(t.bundle, lang, "en")}
}

// Localizer resolves message keys for one language.
type Localizer struct {
	loc *goi18n.Localizer
}

// Get resolves key to its localized message, or returns the key unchanged
// when no message exists.
func (l *Localizer) Get(key string) string {
	msg, err := l.loc.Localize(&goi18n.LocalizeConfig{MessageID: key})
	if err != nil {
		return key
	}
	return msg
}
