// Package record models one line of the ASTRA type-approval data file.
//
// The upstream file is tab-separated, windows-1252 encoded, one record per
// line, first line a header. The exact column set is owned by the data
// provider, so the model is header-driven: a record is its TG-Code plus a
// column→value map, and the column list travels with each imported snapshot.
// Field metadata (units, display order, normalized columns) lives in
// fields.go and only applies to columns that are actually present.
package record

import (
	"regexp"
	"strings"
	"unicode"
)

// Record is one row of the data file keyed by its type-approval code.
type Record struct {
	// Code is the TG-Code, the type-approval identifier issued by ASTRA.
	Code string
	// Fields maps cleaned column names to raw values, TG-Code included.
	Fields map[string]string
}

// Get returns the raw value for a cleaned column name, or "" when absent.
func (r Record) Get(column string) string {
	return r.Fields[column]
}

// Brand returns the vehicle make, if present.
func (r Record) Brand() string { return r.Fields[ColumnBrand] }

// Type returns the vehicle type designation, if present.
func (r Record) Type() string { return r.Fields[ColumnType] }

// Snapshot is the full content of one imported file: the cleaned column list
// in file order plus all records in file order.
type Snapshot struct {
	Columns []string
	Records []Record
}

var identifierUnsafe = regexp.MustCompile(`[ /.\-+()]+`)

// CleanIdentifier turns an upstream column header into a name safe to use as
// an SQL identifier and as a stable map key: runs of separator characters
// become single underscores, and a leading digit gets an underscore prefix.
func CleanIdentifier(name string) string {
	name = identifierUnsafe.ReplaceAllString(name, "_")
	name = strings.Trim(name, "_")
	if name != "" && unicode.IsDigit(rune(name[0])) {
		name = "_" + name
	}
	return name
}

// SideTableName derives the lookup-table name for a normalized column.
// Pluralization follows the German column names (Marke → Marken).
func SideTableName(column string) string {
	clean := CleanIdentifier(column)
	if clean == "" {
		return ""
	}
	switch {
	case strings.HasSuffix(clean, "e"):
		return clean + "n"
	case strings.HasSuffix(clean, "s"):
		return clean + "es"
	default:
		return clean + "s"
	}
}
