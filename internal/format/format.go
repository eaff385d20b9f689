// Package format turns raw dataset values into display values: date and
// power conversion, unit suffixes, code expansion and localized labels,
// laid out in the datasheet order.
package format

import (
	"fmt"
	"strconv"
	"time"

	"fahrzeugdaten/internal/i18n"
	"fahrzeugdaten/internal/record"
)

// Field is one rendered datasheet line. Divider fields separate sections and
// carry no key, label or value.
type Field struct {
	Key     string `json:"key,omitempty"`
	Label   string `json:"label,omitempty"`
	Value   string `json:"value,omitempty"`
	Divider bool   `json:"divider,omitempty"`
}

// Formatter renders records for display.
type Formatter struct {
	translator *i18n.Translator
}

// New creates a formatter.
func New(tr *i18n.Translator) *Formatter {
	return &Formatter{translator: tr}
}

// Datasheet renders the record in display order with localized labels.
// Columns the record does not carry are skipped, and section dividers
// never lead, trail or double up.
func (f *Formatter) Datasheet(rec *record.Record, lang string) []Field {
	loc := f.translator.Localizer(lang)

	var fields []Field
	pendingDivider := false
	for _, column := range record.DisplayOrder {
		if column == record.Divider {
			pendingDivider = len(fields) > 0
			continue
		}
		if _, ok := rec.Fields[column]; !ok {
			continue
		}
		if pendingDivider {
			fields = append(fields, Field{Divider: true})
			pendingDivider = false
		}
		fields = append(fields, Field{
			Key:   column,
			Label: loc.Get(column),
			Value: f.value(column, rec.Get(column), loc),
		})
	}
	return fields
}

// Value renders a single column value for display.
func (f *Formatter) Value(column, raw, lang string) string {
	return f.value(column, raw, f.translator.Localizer(lang))
}

func (f *Formatter) value(column, raw string, loc *i18n.Localizer) string {
	if raw == "" || raw == record.EmptyPlaceholder {
		return ""
	}

	switch column {
	case record.ColumnHomologationDate:
		return formatDate(raw)
	case record.ColumnPower:
		return formatPower(raw)
	case record.ColumnDrive:
		return expandCode("drive.", raw, loc)
	case record.ColumnFuel:
		return expandCode("fuel.", raw, loc)
	}

	if unit, ok := record.Units[column]; ok {
		return raw + " " + unit
	}
	return raw
}

// formatDate turns the dataset's YYYYMMDD into DD.MM.YYYY, leaving anything
// unparseable untouched.
func formatDate(raw string) string {
	t, err := time.Parse(record.DateInputLayout, raw)
	if err != nil {
		return raw
	}
	return t.Format(record.DateDisplayLayout)
}

// formatPower shows engine power in both kW and PS.
func formatPower(raw string) string {
	kw, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return raw
	}
	return fmt.Sprintf("%s kW / %.1f PS", raw, kw*record.KWToPS)
}

// expandCode resolves single-letter drive and fuel codes to localized
// words. Unknown codes pass through unchanged.
func expandCode(prefix, raw string, loc *i18n.Localizer) string {
	if len(raw) != 1 {
		return raw
	}
	key := prefix + raw
	if msg := loc.Get(key); msg != key {
		return msg
	}
	return raw
}
