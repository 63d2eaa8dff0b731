// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package sources assembles the OCR source registry for a run.
package sources

import (
	"context"
	"sync"

	"rollcall/internal/config"
	"rollcall/internal/observability"
	"rollcall/internal/ocr"
	"rollcall/internal/ocr/pdfimage"
	"rollcall/internal/ocr/pdftext"
	"rollcall/internal/ocr/tesseract"
	"rollcall/internal/ocr/textract"
	"rollcall/internal/ocr/tokenfile"
)

// NewRegistry registers every source. Registration order is the auto
// fallback order: a PDF is read from its text layer first and from its
// embedded images second. Textract uploads files to AWS, so it is only used
// when selected by name; its client is created on first use.
func NewRegistry(cfg config.OCRConfig, observer *observability.StandardObserver) *ocr.Registry {
	engine := tesseract.New(cfg.Tesseract.Languages, observer)

	r := ocr.NewRegistry()
	r.Register(tokenfile.New())
	r.Register(pdftext.New(observer))
	r.Register(engine)
	r.Register(pdfimage.New(engine, observer))
	r.RegisterManual(&lazyTextract{
		cfg: textract.Config{
			Region:            cfg.Textract.Region,
			RequestsPerSecond: cfg.Textract.RequestsPerSecond,
			Burst:             cfg.Textract.Burst,
		},
		observer: observer,
	})
	return r
}

// lazyTextract defers loading AWS credentials until a file is sent.
type lazyTextract struct {
	cfg      textract.Config
	observer *observability.StandardObserver
	once     sync.Once
	src      *textract.Source
	err      error
}

func (l *lazyTextract) Name() string { return textract.Name }

func (l *lazyTextract) Extensions() []string {
	return textract.NewWithClient(nil, l.cfg, nil).Extensions()
}

func (l *lazyTextract) Recognize(ctx context.Context, path string) ([]ocr.Document, error) {
	l.once.Do(func() {
		l.src, l.err = textract.New(ctx, l.cfg, l.observer)
	})
	if l.err != nil {
		return nil, l.err
	}
	return l.src.Recognize(ctx, path)
}
