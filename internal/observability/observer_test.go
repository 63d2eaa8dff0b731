// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package observability

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestLogOperationDebugWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	o := NewStandardObserver(ObservabilityDebug, &buf)

	finish := o.StartTiming("extractor", "extract", "sheet.png")
	finish(true, map[string]interface{}{"records": 3})

	var rec map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("expected a JSON line, got %q: %v", buf.String(), err)
	}
	if rec["component"] != "extractor" || rec["file_path"] != "sheet.png" {
		t.Errorf("unexpected record: %v", rec)
	}
	if rec["records"] != float64(3) {
		t.Errorf("metadata not merged: %v", rec)
	}
	if id, _ := rec["request_id"].(string); !strings.HasPrefix(id, "req-") {
		t.Errorf("request_id = %q", id)
	}
}

func TestLogOperationLevels(t *testing.T) {
	var buf bytes.Buffer

	NewStandardObserver(ObservabilityOff, &buf).LogOperation(StandardObservabilityData{Operation: "x", Success: false})
	if buf.Len() != 0 {
		t.Errorf("off level wrote %q", buf.String())
	}

	metrics := NewStandardObserver(ObservabilityMetrics, &buf)
	metrics.LogOperation(StandardObservabilityData{Operation: "ok", Success: true})
	if buf.Len() != 0 {
		t.Errorf("metrics level should skip successes, wrote %q", buf.String())
	}
	metrics.LogOperation(StandardObservabilityData{Operation: "recognize", Success: false, Error: "boom"})
	if !strings.Contains(buf.String(), `"error":"boom"`) {
		t.Errorf("metrics level should log failures, got %q", buf.String())
	}

	var nilObserver *StandardObserver
	nilObserver.LogOperation(StandardObservabilityData{})
}

func TestDebugObserverSteps(t *testing.T) {
	var buf bytes.Buffer
	d := NewDebugObserver(&buf)
	if d.StandardObserver.DebugObserver != d {
		t.Fatal("debug observer should be linked from the standard observer")
	}

	done := d.StartStep("ocr", "recognize", "a.png")
	d.LogDetail("ocr", "42 tokens")
	done(true, "")

	out := buf.String()
	for _, want := range []string{"> ocr: recognize (a.png)", "  - ocr: 42 tokens", "< ocr: recognize ok"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
