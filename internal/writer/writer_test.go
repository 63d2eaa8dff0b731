// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package writer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"rollcall/internal/roster"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResults() []roster.FileResult {
	return []roster.FileResult{
		{SourceFile: "sheet1.png", Students: []roster.Student{
			{Surname: "山田", GivenName: "太郎", FullName: "山田 太郎", IdentifierFull: "px-01", IdentifierNum: "01", Confidence: 0.9, SourceFile: "sheet1.png"},
		}},
		{SourceFile: "empty.png"},
		{SourceFile: "scans/sheet2.pdf", Students: []roster.Student{
			{FullName: "Jane Doe", IdentifierFull: "px-02", IdentifierNum: "02", Confidence: 0.7, SourceFile: "sheet2.pdf"},
		}},
	}
}

func TestWriteMerged(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	w, err := New(dir, "csv", false, nil)
	require.NoError(t, err)

	path, err := w.WriteMerged(roster.Flatten(sampleResults()))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "attendance_list.csv"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)

	assert.True(t, strings.HasPrefix(content, "\uFEFF"), "CSV output must start with a BOM")
	assert.NotContains(t, content, "file_name")
	assert.Contains(t, content, "山田,太郎,山田 太郎,px-01,01,0.9")
	assert.Contains(t, content, ",,Jane Doe,px-02,02,0.7")
}

func TestWriteSplit(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir, "csv", false, nil)
	require.NoError(t, err)

	written, err := w.WriteSplit(sampleResults())
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "sheet1_result.csv"),
		filepath.Join(dir, "sheet2_result.csv"),
	}, written)

	_, err = os.Stat(filepath.Join(dir, "empty_result.csv"))
	assert.True(t, os.IsNotExist(err), "sheets without students must not produce a file")

	data, err := os.ReadFile(written[1])
	require.NoError(t, err)
	assert.Contains(t, string(data), "px-02")
	assert.NotContains(t, string(data), "px-01")
}

func TestWriteSplitNameClash(t *testing.T) {
	w, err := New(t.TempDir(), "json", false, nil)
	require.NoError(t, err)

	results := []roster.FileResult{
		{SourceFile: "a/sheet.png", Students: []roster.Student{{IdentifierFull: "px-1"}}},
		{SourceFile: "a/sheet.pdf", Students: []roster.Student{{IdentifierFull: "px-2"}}},
	}
	written, err := w.WriteSplit(results)
	require.Error(t, err)
	assert.Len(t, written, 1)
}

func TestNewRejectsBadArguments(t *testing.T) {
	_, err := New("", "csv", false, nil)
	assert.Error(t, err)

	_, err = New("../escape", "csv", false, nil)
	assert.Error(t, err)

	_, err = New(t.TempDir(), "sarif", false, nil)
	assert.Error(t, err)
}

func TestJSONExtension(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir, "json", false, nil)
	require.NoError(t, err)

	path, err := w.WriteMerged(nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "attendance_list.json"), path)
}
