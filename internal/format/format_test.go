package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fahrzeugdaten/internal/i18n"
	"fahrzeugdaten/internal/record"
)

func newFormatter(t *testing.T) *Formatter {
	t.Helper()
	tr, err := i18n.New()
	require.NoError(t, err)
	return New(tr)
}

func TestFormatter_Value(t *testing.T) {
	f := newFormatter(t)

	tests := []struct {
		name   string
		column string
		raw    string
		lang   string
		want   string
	}{
		{name: "empty placeholder", column: "Getriebe", raw: "(leer)", lang: "en", want: ""},
		{name: "homologation date", column: "Homologationsdatum", raw: "19990401", lang: "en", want: "01.04.1999"},
		{name: "unparseable date passes through", column: "Homologationsdatum", raw: "n/a", lang: "en", want: "n/a"},
		{name: "power in kw and ps", column: "Leistung", raw: "103", lang: "en", want: "103 kW / 140.0 PS"},
		{name: "non numeric power passes through", column: "Leistung", raw: "k.A.", lang: "en", want: "k.A."},
		{name: "drive code english", column: "Antrieb", raw: "V", lang: "en", want: "Front"},
		{name: "drive code german", column: "Antrieb", raw: "A", lang: "de", want: "Allrad"},
		{name: "unknown drive code passes through", column: "Antrieb", raw: "X", lang: "en", want: "X"},
		{name: "fuel code french", column: "Treibstoff", raw: "B", lang: "fr", want: "Essence"},
		{name: "spelled out fuel passes through", column: "Treibstoff", raw: "Diesel", lang: "en", want: "Diesel"},
		{name: "weight gets unit", column: "Leergewicht_von", raw: "1452", lang: "en", want: "1452 kg"},
		{name: "speed gets unit", column: "Vmax_bis", raw: "185", lang: "en", want: "185 km/h"},
		{name: "noise gets unit", column: "Fahrgeräusch", raw: "71", lang: "en", want: "71 dbA"},
		{name: "plain column untouched", column: "Typ", raw: "V70", lang: "en", want: "V70"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.Value(tt.column, tt.raw, tt.lang))
		})
	}
}

func TestFormatter_Datasheet(t *testing.T) {
	f := newFormatter(t)

	rec := &record.Record{
		Code: "1VB906",
		Fields: map[string]string{
			"TG_Code":            "1VB906",
			"Marke":              "VOLVO",
			"Typ":                "V70",
			"Homologationsdatum": "19990401",
			"Leistung":           "103",
			"Leergewicht_von":    "1452",
		},
	}

	fields := f.Datasheet(rec, "en")
	require.NotEmpty(t, fields)

	// Display order puts the code first, then make and type.
	assert.Equal(t, "TG_Code", fields[0].Key)
	assert.Equal(t, "Type approval number", fields[0].Label)
	assert.Equal(t, "1VB906", fields[0].Value)
	assert.Equal(t, "Marke", fields[1].Key)
	assert.Equal(t, "Typ", fields[2].Key)

	// No leading or trailing dividers, none doubled.
	assert.False(t, fields[0].Divider)
	assert.False(t, fields[len(fields)-1].Divider)
	for i := 1; i < len(fields); i++ {
		assert.False(t, fields[i-1].Divider && fields[i].Divider)
	}

	// Absent columns are skipped entirely.
	for _, field := range fields {
		assert.NotEqual(t, "Getriebe", field.Key)
	}
}

func TestFormatter_DatasheetLocalizedLabels(t *testing.T) {
	f := newFormatter(t)

	rec := &record.Record{
		Code:   "1VB906",
		Fields: map[string]string{"TG_Code": "1VB906", "Treibstoff": "D"},
	}

	fields := f.Datasheet(rec, "it")
	var fuel *Field
	for i := range fields {
		if fields[i].Key == "Treibstoff" {
			fuel = &fields[i]
		}
	}
	require.NotNil(t, fuel)
	assert.Equal(t, "Carburante", fuel.Label)
	assert.Equal(t, "Diesel", fuel.Value)
}
