// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package tokenfile reads OCR results that were produced elsewhere and saved
// as JSON.
package tokenfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"rollcall/internal/ocr"
)

// Name is the registry name of the source.
const Name = "tokens"

// MaxFileSize bounds how much JSON is read from a single token file.
const MaxFileSize = 50 * 1024 * 1024

type word struct {
	Content    string       `json:"content"`
	RecScore   *float64     `json:"rec_score"`
	Confidence *float64     `json:"confidence"`
	Points     [][2]float64 `json:"points"`
	Box        []ocr.Point  `json:"box"`
}

type page struct {
	Words []word `json:"words"`
}

// Source loads tokens from a JSON file. Three shapes are accepted:
//
//	{"words": [{"content": "...", "rec_score": 0.9, "points": [[x,y],...]}]}
//	{"pages": [{"words": [...]}, ...]}
//	[{"content": "...", "confidence": 0.9, "box": [{"x":..,"y":..},...]}]
type Source struct{}

// New creates a token file source.
func New() *Source {
	return &Source{}
}

func (s *Source) Name() string         { return Name }
func (s *Source) Extensions() []string { return []string{".json"} }

// Recognize parses path. Malformed boxes are kept as-is so that the
// extractor reports them.
func (s *Source) Recognize(ctx context.Context, path string) ([]ocr.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.Size() > MaxFileSize {
		return nil, fmt.Errorf("token file too large: %d bytes (max %d)", info.Size(), MaxFileSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data, path)
}

// ErrUnrecognized is returned for a JSON object that has neither a "words"
// nor a "pages" key.
var ErrUnrecognized = errors.New("unrecognized token file")

// Parse decodes token JSON. source is recorded on every returned Document.
func Parse(data []byte, source string) ([]ocr.Document, error) {
	var doc struct {
		Words *[]word `json:"words"`
		Pages *[]page `json:"pages"`
	}

	var pages []page
	if err := json.Unmarshal(data, &doc); err == nil {
		switch {
		case doc.Pages != nil && len(*doc.Pages) > 0:
			pages = *doc.Pages
		case doc.Words != nil:
			pages = []page{{Words: *doc.Words}}
		case doc.Pages != nil:
			pages = []page{{}}
		default:
			return nil, fmt.Errorf("%w %s: expected a words or pages key", ErrUnrecognized, source)
		}
	} else {
		var words []word
		if arrErr := json.Unmarshal(data, &words); arrErr != nil {
			return nil, fmt.Errorf("invalid token file %s: %w", source, err)
		}
		pages = []page{{Words: words}}
	}

	docs := make([]ocr.Document, 0, len(pages))
	for i, p := range pages {
		tokens := make([]ocr.Token, 0, len(p.Words))
		for _, w := range p.Words {
			tokens = append(tokens, w.token())
		}
		docs = append(docs, ocr.Document{Source: source, Page: i + 1, Tokens: tokens})
	}
	return docs, nil
}

func (w word) token() ocr.Token {
	t := ocr.Token{Content: w.Content, Box: w.Box}
	switch {
	case w.RecScore != nil:
		t.Confidence = *w.RecScore
	case w.Confidence != nil:
		t.Confidence = *w.Confidence
	}
	if len(w.Points) > 0 {
		t.Box = make([]ocr.Point, len(w.Points))
		for i, p := range w.Points {
			t.Box[i] = ocr.Point{X: p[0], Y: p[1]}
		}
	}
	return t
}
