package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"fahrzeugdaten/internal/record"
)

// parseResult is the outcome of parsing one source file.
type parseResult struct {
	snapshot    *record.Snapshot
	rowsRead    int
	rowsSkipped int
}

// parseFile reads the tab-delimited, windows-1252 encoded source file at
// path. The header row defines the columns; measurement columns the
// application never displays are dropped. Rows with a wrong column count or
// an empty TG-Code are skipped with a warning.
func parseFile(path string, logger *slog.Logger) (*parseResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open source file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(transform.NewReader(f, charmap.Windows1252.NewDecoder()))
	r.Comma = '\t'
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read source file header: %w", err)
	}

	// keep[i] holds the cleaned column name for source column i, or "" when
	// the column is dropped.
	keep := make([]string, len(header))
	var columns []string
	codeIdx := -1
	for i, raw := range header {
		name := record.CleanIdentifier(raw)
		if name == "" || record.OmittedColumns[name] {
			continue
		}
		keep[i] = name
		columns = append(columns, name)
		if name == record.ColumnCode {
			codeIdx = i
		}
	}
	if codeIdx < 0 {
		return nil, fmt.Errorf("source file header has no %s column", record.CodeColumn)
	}

	result := &parseResult{snapshot: &record.Snapshot{Columns: columns}}
	line := 1
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			result.rowsSkipped++
			logger.Warn("skipping unreadable source row", "line", line, "error", err)
			continue
		}

		result.rowsRead++
		if len(row) != len(header) {
			result.rowsSkipped++
			logger.Warn("skipping source row with wrong column count",
				"line", line, "columns", len(row), "expected", len(header))
			continue
		}
		if row[codeIdx] == "" {
			result.rowsSkipped++
			logger.Warn("skipping source row without type-approval code", "line", line)
			continue
		}

		fields := make(map[string]string, len(columns))
		for i, value := range row {
			if keep[i] == "" || value == "" {
				continue
			}
			fields[keep[i]] = value
		}
		result.snapshot.Records = append(result.snapshot.Records, record.Record{
			Code:   row[codeIdx],
			Fields: fields,
		})
	}

	return result, nil
}
