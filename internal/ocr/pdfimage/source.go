// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package pdfimage recognizes scanned PDFs that carry each page as an
// embedded image and no text layer.
package pdfimage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"rollcall/internal/observability"
	"rollcall/internal/ocr"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Name is the registry name of the source.
const Name = "pdfimage"

// ImageRecognizer runs OCR on a single encoded image.
type ImageRecognizer interface {
	RecognizeImage(ctx context.Context, data []byte) ([]ocr.Token, error)
}

// Image is one embedded image pulled from a page.
type Image struct {
	Page     int
	FileType string
	Data     []byte
}

// readableTypes are the embedded image encodings the OCR engines decode.
var readableTypes = map[string]bool{"png": true, "jpg": true, "jpeg": true, "tif": true, "tiff": true}

// Source extracts page images with pdfcpu and hands them to an image engine.
type Source struct {
	engine    ImageRecognizer
	pdfConfig *model.Configuration
	extract   func(rs io.ReadSeeker, conf *model.Configuration) ([]Image, error)
	observer  *observability.StandardObserver
}

// New creates a source that recognizes images with engine. observer may be nil.
func New(engine ImageRecognizer, observer *observability.StandardObserver) *Source {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &Source{
		engine:    engine,
		pdfConfig: conf,
		extract:   extractImages,
		observer:  observer,
	}
}

func (s *Source) Name() string         { return Name }
func (s *Source) Extensions() []string { return []string{".pdf"} }

// Recognize returns one Document per page that holds a readable image. When
// a page holds several images, their tokens are concatenated in object
// order; coordinates stay in each image's own pixel space.
func (s *Source) Recognize(ctx context.Context, path string) ([]ocr.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	finishTiming := s.observer.StartTiming("pdfimage", "extract_images", path)
	images, err := s.extract(f, s.pdfConfig)
	finishTiming(err == nil, map[string]interface{}{"images": len(images)})
	if err != nil {
		return nil, fmt.Errorf("error extracting images from PDF: %w", err)
	}

	byPage := make(map[int][]ocr.Token)
	var pages []int
	for _, img := range images {
		if !readableTypes[strings.ToLower(img.FileType)] {
			continue
		}
		tokens, err := s.engine.RecognizeImage(ctx, img.Data)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", img.Page, err)
		}
		if _, seen := byPage[img.Page]; !seen {
			pages = append(pages, img.Page)
		}
		byPage[img.Page] = append(byPage[img.Page], tokens...)
	}

	if len(pages) == 0 {
		return nil, ocr.ErrNoTokens
	}
	sort.Ints(pages)

	docs := make([]ocr.Document, 0, len(pages))
	for _, p := range pages {
		docs = append(docs, ocr.Document{Source: path, Page: p, Tokens: byPage[p]})
	}
	return docs, nil
}

func extractImages(rs io.ReadSeeker, conf *model.Configuration) ([]Image, error) {
	pages, err := api.ExtractImagesRaw(rs, nil, conf)
	if err != nil {
		return nil, err
	}

	var images []Image
	for _, byObj := range pages {
		objNrs := make([]int, 0, len(byObj))
		for nr := range byObj {
			objNrs = append(objNrs, nr)
		}
		sort.Ints(objNrs)

		for _, nr := range objNrs {
			img := byObj[nr]
			var buf bytes.Buffer
			if _, err := io.Copy(&buf, img); err != nil {
				return nil, fmt.Errorf("page %d image %d: %w", img.PageNr, nr, err)
			}
			images = append(images, Image{Page: img.PageNr, FileType: img.FileType, Data: buf.Bytes()})
		}
	}
	return images, nil
}
