// Package export renders records for download: a plain-text datasheet, CSV
// and JSON, plus side-by-side comparison of several records.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"fahrzeugdaten/internal/format"
	"fahrzeugdaten/internal/i18n"
	"fahrzeugdaten/internal/record"
)

// Comparison bounds.
const (
	MinCompare = 2
	MaxCompare = 4
)

// ErrCompareCount is returned when the number of records to compare is out
// of bounds.
var ErrCompareCount = fmt.Errorf("comparison needs between %d and %d records", MinCompare, MaxCompare)

// Exporter renders records using a display formatter.
type Exporter struct {
	formatter  *format.Formatter
	translator *i18n.Translator
}

// New creates an exporter.
func New(f *format.Formatter, tr *i18n.Translator) *Exporter {
	return &Exporter{formatter: f, translator: tr}
}

// Text writes the datasheet as aligned label/value lines, with blank lines
// between sections.
func (e *Exporter) Text(w io.Writer, rec *record.Record, lang string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, field := range e.formatter.Datasheet(rec, lang) {
		if field.Divider {
			fmt.Fprintln(tw)
			continue
		}
		fmt.Fprintf(tw, "%s:\t%s\n", field.Label, field.Value)
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("write text datasheet: %w", err)
	}
	return nil
}

// CSV writes the datasheet as label,value rows.
func (e *Exporter) CSV(w io.Writer, rec *record.Record, lang string) error {
	cw := csv.NewWriter(w)
	for _, field := range e.formatter.Datasheet(rec, lang) {
		if field.Divider {
			continue
		}
		if err := cw.Write([]string{field.Label, field.Value}); err != nil {
			return fmt.Errorf("write csv datasheet: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("write csv datasheet: %w", err)
	}
	return nil
}

// jsonDatasheet is the JSON export shape.
type jsonDatasheet struct {
	Code   string         `json:"code"`
	Fields []format.Field `json:"fields"`
}

// JSON writes the datasheet as a JSON document.
func (e *Exporter) JSON(w io.Writer, rec *record.Record, lang string) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	doc := jsonDatasheet{Code: rec.Code, Fields: e.formatter.Datasheet(rec, lang)}
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("write json datasheet: %w", err)
	}
	return nil
}

// CompareText writes a side-by-side comparison table, one column per record.
func (e *Exporter) CompareText(w io.Writer, records []record.Record, lang string) error {
	rows, err := e.compareRows(records, lang)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, row := range rows {
		for i, cell := range row {
			if i > 0 {
				fmt.Fprint(tw, "\t")
			}
			fmt.Fprint(tw, cell)
		}
		fmt.Fprintln(tw)
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("write comparison: %w", err)
	}
	return nil
}

// CompareCSV writes the comparison table as CSV.
func (e *Exporter) CompareCSV(w io.Writer, records []record.Record, lang string) error {
	rows, err := e.compareRows(records, lang)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write comparison csv: %w", err)
	}
	return nil
}

// compareRows builds the comparison table: a header row with the codes, then
// one row per display column any of the records carries.
func (e *Exporter) compareRows(records []record.Record, lang string) ([][]string, error) {
	if len(records) < MinCompare || len(records) > MaxCompare {
		return nil, ErrCompareCount
	}

	loc := e.translator.Localizer(lang)
	header := []string{""}
	for _, rec := range records {
		header = append(header, rec.Code)
	}

	rows := [][]string{header}
	for _, column := range record.DisplayOrder {
		if column == record.Divider || column == record.ColumnCode {
			continue
		}
		carried := false
		for _, rec := range records {
			if _, ok := rec.Fields[column]; ok {
				carried = true
				break
			}
		}
		if !carried {
			continue
		}

		row := []string{loc.Get(column)}
		for _, rec := range records {
			row = append(row, e.formatter.Value(column, rec.Get(column), lang))
		}
		rows = append(rows, row)
	}
	return rows, nil
}
