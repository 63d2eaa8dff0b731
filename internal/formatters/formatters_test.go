// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package formatters_test

import (
	encjson "encoding/json"
	"strings"
	"testing"

	"rollcall/internal/formatters"
	_ "rollcall/internal/formatters/csv"
	_ "rollcall/internal/formatters/json"
	_ "rollcall/internal/formatters/text"
	_ "rollcall/internal/formatters/yaml"
	"rollcall/internal/roster"
)

var students = []roster.Student{
	{Surname: "山田", GivenName: "太郎", FullName: "山田 太郎", IdentifierFull: "px-0000001", IdentifierNum: "0000001", Confidence: 0.98, SourceFile: "a.png"},
	{FullName: "Taro Yamada", IdentifierFull: "px-0000002", IdentifierNum: "0000002", Confidence: 0.5, SourceFile: "a.png"},
	{FullName: "=HYPERLINK(x)", IdentifierFull: "px-0000003", IdentifierNum: "0000003", Confidence: 0.75, SourceFile: "b.png"},
}

func TestRegistryHasAllFormats(t *testing.T) {
	got := strings.Join(formatters.List(), ",")
	if got != "csv,json,text,yaml" {
		t.Errorf("List() = %s", got)
	}
	if _, err := formatters.Export("sarif", students, formatters.FormatterOptions{}); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestCSV(t *testing.T) {
	out, err := formatters.Export("csv", students, formatters.FormatterOptions{})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d:\n%s", len(lines), out)
	}
	if lines[0] != "surname,name,full_name,student_id_full,student_id_num,confidence" {
		t.Errorf("header = %q", lines[0])
	}
	if lines[1] != "山田,太郎,山田 太郎,px-0000001,0000001,0.98" {
		t.Errorf("row = %q", lines[1])
	}
	if lines[3] != ",,'=HYPERLINK(x),px-0000003,0000003,0.75" {
		t.Errorf("formula not neutralised: %q", lines[3])
	}
}

func TestCSVWithBOMAndSourceFile(t *testing.T) {
	out, err := formatters.Export("csv", students[:1], formatters.FormatterOptions{ByteOrderMark: true, IncludeSourceFile: true})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if !strings.HasPrefix(out, "\uFEFFsurname,") {
		t.Errorf("missing BOM: %q", out[:10])
	}
	if !strings.Contains(out, ",confidence,file_name\n") || !strings.Contains(out, ",0.98,a.png\n") {
		t.Errorf("file_name column missing:\n%s", out)
	}
}

func TestJSON(t *testing.T) {
	out, err := formatters.Export("json", students, formatters.FormatterOptions{Verbose: true})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	var doc struct {
		Results []map[string]interface{} `json:"results"`
		Summary struct {
			Students int `json:"students"`
		} `json:"summary"`
	}
	if err := encjson.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(doc.Results) != 3 || doc.Summary.Students != 3 {
		t.Fatalf("unexpected document: %s", out)
	}
	first := doc.Results[0]
	if first["surname"] != "山田" || first["confidence_level"] != "HIGH" {
		t.Errorf("first record = %v", first)
	}
	if _, ok := first["file_name"]; ok {
		t.Error("file_name must be omitted unless requested")
	}
}

func TestYAMLEmpty(t *testing.T) {
	out, err := formatters.Export("yaml", nil, formatters.FormatterOptions{})
	if err != nil || out != "results: []\n" {
		t.Errorf("Export = %q, %v", out, err)
	}

	out, err = formatters.Export("yaml", students[:1], formatters.FormatterOptions{})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if !strings.Contains(out, "student_id_full: px-0000001") {
		t.Errorf("unexpected YAML:\n%s", out)
	}
}

func TestTextAlignsWideCharacters(t *testing.T) {
	out, err := formatters.Export("text", students[:2], formatters.FormatterOptions{NoColor: true})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows:\n%s", out)
	}
	// "山田 太郎" is 9 cells wide and the NAME column 11, so two pad cells precede the separator
	col := func(line string) int { return strings.Index(line, "px-") }
	if col(lines[1]) != 0 || col(lines[2]) != 0 {
		t.Errorf("ID column misaligned:\n%s", out)
	}
	if !strings.Contains(lines[1], "山田 太郎    ") {
		t.Errorf("wide name not padded to column width:\n%s", out)
	}
}

func TestGetFormatInfo(t *testing.T) {
	info := formatters.GetFormatInfo("csv")
	if info.Extension != ".csv" || !strings.HasPrefix(info.MimeType, "text/csv") {
		t.Errorf("info = %+v", info)
	}
	_, mime, name, err := formatters.ExportForWeb("json", students, formatters.FormatterOptions{})
	if err != nil || mime != "application/json" || name != "results.json" {
		t.Errorf("ExportForWeb = %q %q %v", mime, name, err)
	}
}
