package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslator_Get(t *testing.T) {
	tr, err := New()
	require.NoError(t, err)

	tests := []struct {
		name string
		lang string
		key  string
		want string
	}{
		{name: "english label", lang: "en", key: "Marke", want: "Make"},
		{name: "german label", lang: "de", key: "TG_Code", want: "Typengenehmigungsnummer"},
		{name: "french fuel code", lang: "fr", key: "fuel.B", want: "Essence"},
		{name: "italian drive code", lang: "it", key: "drive.A", want: "Integrale"},
		{name: "unknown language falls back to english", lang: "xx", key: "Treibstoff", want: "Fuel"},
		{name: "unknown key falls back to itself", lang: "en", key: "Sowas_Gibts_Nicht", want: "Sowas_Gibts_Nicht"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tr.Localizer(tt.lang).Get(tt.key))
		})
	}
}

func TestTranslator_AllLanguagesCarryUIKeys(t *testing.T) {
	tr, err := New()
	require.NoError(t, err)

	keys := []string{"ui.title", "ui.search", "ui.compare", "ui.refresh", "ui.no_data"}
	for _, lang := range Languages {
		loc := tr.Localizer(lang)
		for _, key := range keys {
			assert.NotEqual(t, key, loc.Get(key), "missing %s message for %s", key, lang)
		}
	}
}
