// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package help

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestSystem() (*System, *bytes.Buffer) {
	var buf bytes.Buffer
	h := NewSystem(true)
	h.SetOutput(&buf)
	h.SetFormats([]string{"csv", "json"})
	h.RegisterSource(SourceInfo{Name: "tokens", Description: "Pre-recognized token files", Extensions: []string{".json"}})
	h.RegisterSource(SourceInfo{Name: "textract", Description: "Amazon Textract", Extensions: []string{".pdf"}, Manual: true, Notes: "AWS credentials"})
	return h, &buf
}

func TestShowGeneralHelp(t *testing.T) {
	h, buf := newTestSystem()
	h.ShowGeneralHelp()

	out := buf.String()
	assert.Contains(t, out, "USAGE:")
	assert.Contains(t, out, "--prefix")
	assert.Contains(t, out, "Output format: csv, json")
	assert.NotContains(t, out, "\x1b[", "no ANSI escapes with colors disabled")
}

func TestShowSourcesHelp(t *testing.T) {
	h, buf := newTestSystem()
	h.ShowSourcesHelp()

	out := buf.String()
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("textract")), bytes.Index(buf.Bytes(), []byte("tokens")))
	assert.Contains(t, out, "Amazon Textract (only with --source)")
}

func TestShowSourceHelp(t *testing.T) {
	h, buf := newTestSystem()
	assert.True(t, h.ShowSourceHelp("TEXTRACT"))
	assert.Contains(t, buf.String(), "AWS credentials")

	buf.Reset()
	assert.False(t, h.ShowSourceHelp("nope"))
	assert.Contains(t, buf.String(), "not found")
}
