// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package sources

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"rollcall/internal/config"
	"rollcall/internal/ocr"
	"rollcall/internal/ocr/tokenfile"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry(t *testing.T) {
	r := NewRegistry(config.Default().OCR, nil)

	assert.Equal(t, []string{"pdfimage", "pdftext", "tesseract", "textract", "tokens"}, r.List())
	assert.True(t, r.Supports("sheet.json"))
	assert.True(t, r.Supports("sheet.pdf"))
	assert.True(t, r.Supports("sheet.JPG"))
	assert.False(t, r.Supports("sheet.docx"))
	assert.True(t, r.Accepts("textract", "sheet.png"))
	assert.False(t, r.Accepts("textract", "sheet.json"))
}

func TestAutoReadsTokenFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sheet.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"words":[{"content":"px-01","rec_score":0.9,"points":[[0,0],[1,0],[1,1],[0,1]]}]}`), 0o644))

	docs, err := NewRegistry(config.Default().OCR, nil).Recognize(context.Background(), "auto", path)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "px-01", docs[0].Tokens[0].Content)
}

func TestAutoRejectsStrayJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"theme":"dark"}`), 0o644))

	_, err := NewRegistry(config.Default().OCR, nil).Recognize(context.Background(), "auto", path)
	require.Error(t, err)
	assert.ErrorIs(t, err, tokenfile.ErrUnrecognized)
	assert.NotErrorIs(t, err, ocr.ErrNoTokens, "a stray file must be reported, not counted as an empty sheet")
}
