// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package roster

// Student is one extracted attendance record.
//
// Records are built once per extraction call and never mutated afterwards.
type Student struct {
	Surname        string  `json:"surname" yaml:"surname"`
	GivenName      string  `json:"name" yaml:"name"`
	FullName       string  `json:"full_name" yaml:"full_name"`
	IdentifierFull string  `json:"student_id_full" yaml:"student_id_full"` // e.g. "px-1234567"
	IdentifierNum  string  `json:"student_id_num" yaml:"student_id_num"`   // digits only
	Confidence     float64 `json:"confidence" yaml:"confidence"`           // of the identifier token
	SourceFile     string  `json:"file_name,omitempty" yaml:"file_name,omitempty"`
}

// HasName reports whether any name text was located for the record.
func (s Student) HasName() bool {
	return s.FullName != ""
}

// FileResult groups the records extracted from one input file.
type FileResult struct {
	SourceFile string    `json:"file_name"`
	Students   []Student `json:"students"`
	Pages      int       `json:"pages"`
	Error      string    `json:"error,omitempty"`
}

// Flatten concatenates the students of all results in order.
func Flatten(results []FileResult) []Student {
	var all []Student
	for _, r := range results {
		all = append(all, r.Students...)
	}
	return all
}

// Summary counts records for reporting.
type Summary struct {
	Files    int `json:"files"`
	Failed   int `json:"failed"`
	Students int `json:"students"`
	Unnamed  int `json:"unnamed"`
}

// Summarize tallies a batch of file results.
func Summarize(results []FileResult) Summary {
	var s Summary
	for _, r := range results {
		s.Files++
		if r.Error != "" {
			s.Failed++
		}
		for _, st := range r.Students {
			s.Students++
			if !st.HasName() {
				s.Unnamed++
			}
		}
	}
	return s
}
