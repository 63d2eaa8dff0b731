// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package pdftext reads word tokens from the text layer of PDFs produced by
// scanners that already ran OCR, or by form generators.
package pdftext

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"rollcall/internal/observability"
	"rollcall/internal/ocr"

	"github.com/ledongthuc/pdf"
)

// Name is the registry name of the source.
const Name = "pdftext"

// MaxPages bounds the pages read from a single document.
const MaxPages = 50

// wordGapFactor is the horizontal gap, relative to the font size, that
// separates two words on a row.
const wordGapFactor = 0.2

// textConfidence is assigned to every text-layer token.
const textConfidence = 1.0

// Source reads the PDF text layer.
type Source struct {
	observer *observability.StandardObserver
}

// New creates a text-layer source. observer may be nil.
func New(observer *observability.StandardObserver) *Source {
	return &Source{observer: observer}
}

func (s *Source) Name() string         { return Name }
func (s *Source) Extensions() []string { return []string{".pdf"} }

// Recognize returns one Document per page. A PDF without a text layer
// yields ErrNoTokens so that auto selection can fall back to image OCR.
func (s *Source) Recognize(ctx context.Context, path string) ([]ocr.Document, error) {
	finishTiming := s.observer.StartTiming("pdftext", "recognize", path)

	f, r, err := pdf.Open(path)
	if err != nil {
		finishTiming(false, nil)
		return nil, fmt.Errorf("error opening PDF: %w", err)
	}
	defer f.Close()

	docs, total, err := readPages(ctx, r, path)
	finishTiming(err == nil, map[string]interface{}{"pages": len(docs), "token_count": total})
	if err != nil {
		return nil, err
	}
	if total == 0 {
		return nil, ocr.ErrNoTokens
	}
	return docs, nil
}

func readPages(ctx context.Context, r *pdf.Reader, path string) ([]ocr.Document, int, error) {
	pages := min(r.NumPage(), MaxPages)
	docs := make([]ocr.Document, 0, pages)
	total := 0

	for i := 1; i <= pages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}

		rows, err := p.GetTextByRow()
		if err != nil {
			return nil, 0, fmt.Errorf("page %d: %w", i, err)
		}

		_, height := mediaBox(p.V)
		var tokens []ocr.Token
		for _, row := range rows {
			if row == nil {
				continue
			}
			tokens = append(tokens, Words(row.Content, height)...)
		}
		total += len(tokens)
		docs = append(docs, ocr.Document{Source: path, Page: i, Tokens: tokens})
	}
	return docs, total, nil
}

// Words merges the glyph runs of one text row into word tokens. PDF y grows
// upward from the baseline, so boxes are flipped against pageHeight into
// image coordinates.
func Words(row []pdf.Text, pageHeight float64) []ocr.Token {
	glyphs := make([]pdf.Text, 0, len(row))
	for _, t := range row {
		if t.S != "" {
			glyphs = append(glyphs, t)
		}
	}
	sort.SliceStable(glyphs, func(i, j int) bool { return glyphs[i].X < glyphs[j].X })

	var (
		tokens []ocr.Token
		word   []pdf.Text
	)
	flush := func() {
		if tok, ok := wordToken(word, pageHeight); ok {
			tokens = append(tokens, tok)
		}
		word = word[:0]
	}

	for _, g := range glyphs {
		if strings.TrimFunc(g.S, unicode.IsSpace) == "" {
			flush()
			continue
		}
		if n := len(word); n > 0 {
			prev := word[n-1]
			gap := g.X - (prev.X + prev.W)
			if gap > wordGapFactor*max(prev.FontSize, g.FontSize) {
				flush()
			}
		}
		word = append(word, g)
	}
	flush()
	return tokens
}

func wordToken(word []pdf.Text, pageHeight float64) (ocr.Token, bool) {
	if len(word) == 0 {
		return ocr.Token{}, false
	}

	var b strings.Builder
	left, right := word[0].X, word[0].X
	baseline, size := word[0].Y, 0.0
	for _, g := range word {
		b.WriteString(g.S)
		right = max(right, g.X+g.W)
		baseline = min(baseline, g.Y)
		size = max(size, g.FontSize)
	}

	content := strings.TrimSpace(b.String())
	if content == "" {
		return ocr.Token{}, false
	}
	top := pageHeight - (baseline + size)
	bottom := pageHeight - baseline
	return ocr.Token{
		Content:    content,
		Confidence: textConfidence,
		Box:        ocr.Rect(left, top, right, bottom),
	}, true
}

// mediaBox returns the page width and height, or zeros when the page does
// not carry its own MediaBox.
func mediaBox(page pdf.Value) (float64, float64) {
	box := page.Key("MediaBox")
	if box.Kind() != pdf.Array || box.Len() != 4 {
		return 0, 0
	}
	w := box.Index(2).Float64() - box.Index(0).Float64()
	h := box.Index(3).Float64() - box.Index(1).Float64()
	return w, h
}

// PageSize reports the size of the first page of an in-memory PDF.
func PageSize(data []byte) (width, height float64, err error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, 0, fmt.Errorf("error opening PDF: %w", err)
	}
	if r.NumPage() == 0 {
		return 0, 0, fmt.Errorf("PDF has no pages")
	}
	width, height = mediaBox(r.Page(1).V)
	if width <= 0 || height <= 0 {
		return 0, 0, fmt.Errorf("page 1 has no MediaBox")
	}
	return width, height, nil
}
