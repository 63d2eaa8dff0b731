// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package tesseract recognizes scanned sheets with a local Tesseract
// install. The engine is only compiled in with the "ocr" build tag:
//
//	go build -tags ocr ./cmd
//
// Without the tag every call returns ErrOCRNotEnabled.
package tesseract

import (
	"context"
	"errors"
	"fmt"
	"os"

	"rollcall/internal/observability"
	"rollcall/internal/ocr"
	"rollcall/internal/ocr/imagefile"
)

// Name is the registry name of the source.
const Name = "tesseract"

// ErrOCRNotEnabled is returned when the binary was built without Tesseract.
var ErrOCRNotEnabled = errors.New("tesseract support not enabled; rebuild with -tags ocr")

// DefaultLanguages are used when the configuration names none.
var DefaultLanguages = []string{"jpn", "eng"}

// Source runs Tesseract on image files.
type Source struct {
	Languages []string
	observer  *observability.StandardObserver
}

// New creates a Tesseract source. observer may be nil.
func New(languages []string, observer *observability.StandardObserver) *Source {
	if len(languages) == 0 {
		languages = DefaultLanguages
	}
	return &Source{Languages: languages, observer: observer}
}

func (s *Source) Name() string         { return Name }
func (s *Source) Extensions() []string { return imagefile.Extensions }

// Recognize reads an image file and returns its words as a single page.
func (s *Source) Recognize(ctx context.Context, path string) ([]ocr.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	info, err := imagefile.Inspect(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if info.Rotated() {
		s.observer.LogOperation(observability.StandardObservabilityData{
			Component: "tesseract",
			Operation: "rotated_image",
			FilePath:  path,
			Success:   false,
			Error:     fmt.Sprintf("EXIF orientation %d; recognition may miss rotated text", info.Orientation),
		})
	}

	tokens, err := s.RecognizeImage(ctx, data)
	if err != nil {
		return nil, err
	}
	return []ocr.Document{{Source: path, Page: 1, Tokens: tokens}}, nil
}

// RecognizeImage runs OCR on encoded image bytes.
func (s *Source) RecognizeImage(ctx context.Context, data []byte) ([]ocr.Token, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	finishTiming := s.observer.StartTiming("tesseract", "recognize_image", "")
	tokens, err := recognize(data, s.Languages)
	finishTiming(err == nil, map[string]interface{}{"token_count": len(tokens)})
	return tokens, err
}
