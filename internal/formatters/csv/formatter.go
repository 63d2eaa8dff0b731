// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package csv

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"rollcall/internal/formatters"
	"rollcall/internal/formatters/shared"
	"rollcall/internal/roster"
)

// utf8BOM lets spreadsheet applications detect UTF-8 names.
const utf8BOM = "\uFEFF"

// Formatter implements CSV output formatting
type Formatter struct{}

// NewFormatter creates a new CSV formatter
func NewFormatter() *Formatter {
	return &Formatter{}
}

func (f *Formatter) Name() string {
	return "csv"
}

func (f *Formatter) Description() string {
	return "Comma-separated values for spreadsheet import"
}

func (f *Formatter) FileExtension() string {
	return ".csv"
}

func (f *Formatter) Format(students []roster.Student, options formatters.FormatterOptions) (string, error) {
	var buf bytes.Buffer
	if options.ByteOrderMark {
		buf.WriteString(utf8BOM)
	}

	w := csv.NewWriter(&buf)
	if err := w.Write(shared.Header(options)); err != nil {
		return "", fmt.Errorf("error writing CSV header: %w", err)
	}

	for _, s := range students {
		row := shared.Row(s, options)
		for i := range row {
			row[i] = sanitizeFormulaInjection(row[i])
		}
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("error writing CSV row for %s: %w", s.IdentifierFull, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("error flushing CSV: %w", err)
	}
	return buf.String(), nil
}

// sanitizeFormulaInjection keeps spreadsheets from evaluating OCR text that
// happens to start with a formula character.
func sanitizeFormulaInjection(field string) string {
	if len(field) == 0 {
		return field
	}
	switch field[0] {
	case '=', '+', '-', '@':
		return "'" + field
	}
	return field
}

// Register the formatter during package initialization
func init() {
	formatters.Register(NewFormatter())
}
