// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package textract

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"rollcall/internal/ocr"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	calls  int
	errs   []error
	output *textract.DetectDocumentTextOutput
}

func (f *fakeClient) DetectDocumentText(ctx context.Context, params *textract.DetectDocumentTextInput, optFns ...func(*textract.Options)) (*textract.DetectDocumentTextOutput, error) {
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return nil, err
	}
	return f.output, nil
}

func word(text string, conf float32, left, top, width, height float32) types.Block {
	return types.Block{
		BlockType:  types.BlockTypeWord,
		Text:       aws.String(text),
		Confidence: aws.Float32(conf),
		Geometry: &types.Geometry{
			BoundingBox: &types.BoundingBox{Left: left, Top: top, Width: width, Height: height},
			Polygon: []types.Point{
				{X: left, Y: top},
				{X: left + width, Y: top},
				{X: left + width, Y: top + height},
				{X: left, Y: top + height},
			},
		},
	}
}

func writePNG(t *testing.T, w, h int) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, w, h))))
	path := filepath.Join(t.TempDir(), "sheet.png")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func TestDocumentsScalesWords(t *testing.T) {
	blocks := []types.Block{
		{BlockType: types.BlockTypeLine, Text: aws.String("山田 px-01")},
		word("山田", 98, 0.25, 0.5, 0.25, 0.25),
		word("px-01", 90, 0.5, 0.5, 0.25, 0.25),
	}

	docs := Documents(blocks, "a.png", 200, 100)
	require.Len(t, docs, 1)
	require.Len(t, docs[0].Tokens, 2, "LINE blocks are ignored")

	tok := docs[0].Tokens[0]
	assert.Equal(t, "山田", tok.Content)
	assert.InDelta(t, 0.98, tok.Confidence, 1e-6)
	assert.Equal(t, ocr.Rect(50, 50, 100, 75), tok.Box)
}

func TestDocumentsGroupsPages(t *testing.T) {
	second := word("px-02", 99, 0, 0, 0.5, 0.5)
	second.Page = aws.Int32(2)

	docs := Documents([]types.Block{word("px-01", 99, 0, 0, 0.5, 0.5), second}, "a.pdf", 10, 10)
	require.Len(t, docs, 2)
	assert.Equal(t, 2, docs[1].Page)
	assert.Equal(t, "px-02", docs[1].Tokens[0].Content)
}

func TestRecognizeRetriesThrottling(t *testing.T) {
	client := &fakeClient{
		errs:   []error{errors.New("ThrottlingException: Rate exceeded")},
		output: &textract.DetectDocumentTextOutput{Blocks: []types.Block{word("px-01", 95, 0, 0, 0.5, 0.5)}},
	}
	src := NewWithClient(client, Config{}, nil)
	src.retry.InitialInterval = 0
	src.retry.Jitter = false

	docs, err := src.Recognize(context.Background(), writePNG(t, 40, 20))
	require.NoError(t, err)
	assert.Equal(t, 2, client.calls)
	assert.Equal(t, ocr.Rect(0, 0, 20, 10), docs[0].Tokens[0].Box)
}

func TestRecognizeDoesNotRetryInvalidDocuments(t *testing.T) {
	client := &fakeClient{errs: []error{errors.New("UnsupportedDocumentException")}}
	src := NewWithClient(client, Config{}, nil)

	_, err := src.Recognize(context.Background(), writePNG(t, 4, 4))
	require.Error(t, err)
	assert.Equal(t, 1, client.calls)
}

func TestExtensions(t *testing.T) {
	src := NewWithClient(&fakeClient{}, Config{RequestsPerSecond: 2, Burst: 3}, nil)
	assert.Contains(t, src.Extensions(), ".pdf")
	assert.Contains(t, src.Extensions(), ".png")
	assert.Equal(t, 3, src.limiter.Burst())
}
