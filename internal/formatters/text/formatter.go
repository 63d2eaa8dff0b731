// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package text

import (
	"fmt"
	"strings"

	"rollcall/internal/formatters"
	"rollcall/internal/formatters/shared"
	"rollcall/internal/roster"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
)

// Formatter renders an aligned, colored table for terminals.
type Formatter struct {
	colors map[string]*color.Color
}

// NewFormatter creates a new text formatter
func NewFormatter() *Formatter {
	return &Formatter{
		colors: map[string]*color.Color{
			"green":  color.New(color.FgGreen),
			"yellow": color.New(color.FgYellow),
			"red":    color.New(color.FgRed),
			"faint":  color.New(color.Faint),
			"header": color.New(color.FgWhite, color.Bold),
		},
	}
}

func (f *Formatter) Name() string {
	return "text"
}

func (f *Formatter) Description() string {
	return "Aligned table for terminal review"
}

func (f *Formatter) FileExtension() string {
	return ".txt"
}

func (f *Formatter) Format(students []roster.Student, options formatters.FormatterOptions) (string, error) {
	if options.NoColor {
		color.NoColor = true
	}

	if len(students) == 0 {
		return "No student identifiers found.\n", nil
	}

	header := []string{"ID", "NAME", "SURNAME", "GIVEN", "CONF"}
	if options.IncludeSourceFile {
		header = append(header, "FILE")
	}

	rows := make([][]string, 0, len(students))
	for _, s := range students {
		name := s.FullName
		if name == "" {
			name = "(no name)"
		}
		row := []string{s.IdentifierFull, name, s.Surname, s.GivenName, fmt.Sprintf("%.2f", s.Confidence)}
		if options.IncludeSourceFile {
			row = append(row, s.SourceFile)
		}
		rows = append(rows, row)
	}

	widths := columnWidths(header, rows)

	var b strings.Builder
	b.WriteString(f.paint("header", options, formatRow(header, widths)))
	b.WriteString("\n")
	for i, row := range rows {
		line := formatRow(row, widths)
		b.WriteString(f.paint(f.levelColor(students[i]), options, line))
		b.WriteString("\n")
	}

	if options.Verbose {
		unnamed := 0
		for _, s := range students {
			if !s.HasName() {
				unnamed++
			}
		}
		fmt.Fprintf(&b, "\n%d students, %d without a name\n", len(students), unnamed)
	}

	return b.String(), nil
}

func (f *Formatter) levelColor(s roster.Student) string {
	if !s.HasName() {
		return "faint"
	}
	switch shared.GetConfidenceLevel(s.Confidence) {
	case "HIGH":
		return "green"
	case "MEDIUM":
		return "yellow"
	default:
		return "red"
	}
}

func (f *Formatter) paint(name string, options formatters.FormatterOptions, s string) string {
	if options.NoColor {
		return s
	}
	return f.colors[name].Sprint(s)
}

// columnWidths measures display width so that full-width characters take
// two cells.
func columnWidths(header []string, rows [][]string) []int {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}
	return widths
}

func formatRow(cells []string, widths []int) string {
	parts := make([]string, len(cells))
	for i, cell := range cells {
		if i == len(cells)-1 {
			parts[i] = cell
			continue
		}
		parts[i] = runewidth.FillRight(cell, widths[i])
	}
	return strings.Join(parts, "  ")
}

// Register the formatter during package initialization
func init() {
	formatters.Register(NewFormatter())
}
