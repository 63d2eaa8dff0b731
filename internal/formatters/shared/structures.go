// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package shared

import (
	"strconv"

	"rollcall/internal/formatters"
	"rollcall/internal/roster"
)

// Column names of tabular output, in order. SourceFileColumn is appended
// when requested.
var Columns = []string{"surname", "name", "full_name", "student_id_full", "student_id_num", "confidence"}

const SourceFileColumn = "file_name"

// Response is the top-level structure for JSON/YAML output
type Response struct {
	Results []Record        `json:"results" yaml:"results"`
	Summary *roster.Summary `json:"summary,omitempty" yaml:"summary,omitempty"`
}

// Record is one student in JSON/YAML output
type Record struct {
	Surname         string  `json:"surname" yaml:"surname"`
	Name            string  `json:"name" yaml:"name"`
	FullName        string  `json:"full_name" yaml:"full_name"`
	StudentIDFull   string  `json:"student_id_full" yaml:"student_id_full"`
	StudentIDNum    string  `json:"student_id_num" yaml:"student_id_num"`
	Confidence      float64 `json:"confidence" yaml:"confidence"`
	ConfidenceLevel string  `json:"confidence_level" yaml:"confidence_level"`
	FileName        string  `json:"file_name,omitempty" yaml:"file_name,omitempty"`
}

// Header returns the column names for the given options.
func Header(options formatters.FormatterOptions) []string {
	header := append([]string(nil), Columns...)
	if options.IncludeSourceFile {
		header = append(header, SourceFileColumn)
	}
	return header
}

// Row returns the tabular fields of a student, matching Header.
func Row(s roster.Student, options formatters.FormatterOptions) []string {
	row := []string{
		s.Surname,
		s.GivenName,
		s.FullName,
		s.IdentifierFull,
		s.IdentifierNum,
		FormatConfidence(s.Confidence),
	}
	if options.IncludeSourceFile {
		row = append(row, s.SourceFile)
	}
	return row
}

// FormatConfidence prints the shortest representation that round-trips.
func FormatConfidence(c float64) string {
	return strconv.FormatFloat(c, 'f', -1, 64)
}

// GetConfidenceLevel buckets an OCR confidence for display.
func GetConfidenceLevel(confidence float64) string {
	switch {
	case confidence >= 0.9:
		return "HIGH"
	case confidence >= 0.6:
		return "MEDIUM"
	default:
		return "LOW"
	}
}

// ConvertToResponse builds the JSON/YAML document.
func ConvertToResponse(students []roster.Student, options formatters.FormatterOptions) Response {
	records := make([]Record, 0, len(students))
	for _, s := range students {
		r := Record{
			Surname:         s.Surname,
			Name:            s.GivenName,
			FullName:        s.FullName,
			StudentIDFull:   s.IdentifierFull,
			StudentIDNum:    s.IdentifierNum,
			Confidence:      s.Confidence,
			ConfidenceLevel: GetConfidenceLevel(s.Confidence),
		}
		if options.IncludeSourceFile {
			r.FileName = s.SourceFile
		}
		records = append(records, r)
	}

	resp := Response{Results: records}
	if options.Verbose {
		summary := roster.Summary{Students: len(students)}
		for _, s := range students {
			if !s.HasName() {
				summary.Unnamed++
			}
		}
		resp.Summary = &summary
	}
	return resp
}
