// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package writer saves extracted rosters to the output directory, either as
// one merged list or as one list per scanned sheet.
package writer

import (
	"fmt"
	"os"
	"path/filepath"

	"rollcall/internal/formatters"
	_ "rollcall/internal/formatters/csv"
	_ "rollcall/internal/formatters/json"
	_ "rollcall/internal/formatters/text"
	_ "rollcall/internal/formatters/yaml"
	"rollcall/internal/observability"
	"rollcall/internal/paths"
	"rollcall/internal/roster"
)

// MergedBaseName is the file name, without extension, of merged output.
const MergedBaseName = "attendance_list"

// SplitSuffix is appended to the sheet's base name in split mode.
const SplitSuffix = "_result"

// Writer writes formatted rosters below OutputDir.
type Writer struct {
	outputDir string
	format    string
	options   formatters.FormatterOptions
	observer  *observability.StandardObserver
}

// New creates a writer for format. CSV output always carries a UTF-8 BOM.
func New(outputDir, format string, includeSourceFile bool, observer *observability.StandardObserver) (*Writer, error) {
	if outputDir == "" {
		return nil, fmt.Errorf("output directory cannot be empty")
	}
	if err := paths.ValidatePath(outputDir); err != nil {
		return nil, err
	}
	if _, ok := formatters.Get(format); !ok {
		return nil, fmt.Errorf("unsupported format '%s'", format)
	}
	if observer == nil {
		observer = observability.NewStandardObserver(observability.ObservabilityOff, os.Stderr)
	}

	return &Writer{
		outputDir: filepath.Clean(outputDir),
		format:    format,
		options: formatters.FormatterOptions{
			IncludeSourceFile: includeSourceFile,
			ByteOrderMark:     format == "csv",
			NoColor:           true,
		},
		observer: observer,
	}, nil
}

// WriteMerged writes every student to a single file and returns its path.
func (w *Writer) WriteMerged(students []roster.Student) (string, error) {
	path := filepath.Join(w.outputDir, MergedBaseName+w.extension())
	if err := w.write(path, students); err != nil {
		return "", err
	}
	return path, nil
}

// WriteSplit writes one file per source sheet and returns the paths
// written. Sheets without students are skipped.
func (w *Writer) WriteSplit(results []roster.FileResult) ([]string, error) {
	var written []string
	used := make(map[string]string)

	for _, r := range results {
		if len(r.Students) == 0 {
			continue
		}

		name := paths.BaseName(r.SourceFile) + SplitSuffix
		if prev, clash := used[name]; clash && prev != r.SourceFile {
			return written, fmt.Errorf("output name %s%s is shared by %s and %s", name, w.extension(), prev, r.SourceFile)
		}
		used[name] = r.SourceFile

		path := filepath.Join(w.outputDir, name+w.extension())
		if err := w.write(path, r.Students); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

func (w *Writer) extension() string {
	return formatters.GetFormatInfo(w.format).Extension
}

func (w *Writer) write(path string, students []roster.Student) error {
	finishTiming := w.observer.StartTiming("writer", "write_file", path)

	content, err := formatters.Export(w.format, students, w.options)
	if err == nil {
		err = os.MkdirAll(w.outputDir, 0o755)
	}
	if err == nil {
		err = os.WriteFile(path, []byte(content), 0o644)
	}

	finishTiming(err == nil, map[string]interface{}{"record_count": len(students)})
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
