// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package textract recognizes scanned sheets with Amazon Textract.
package textract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"rollcall/internal/observability"
	"rollcall/internal/ocr"
	"rollcall/internal/ocr/imagefile"
	"rollcall/internal/ocr/pdftext"
	"rollcall/internal/resilience"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"
	"golang.org/x/time/rate"
)

// Name is the registry name of the source.
const Name = "textract"

// MaxDocumentBytes is the synchronous DetectDocumentText payload limit.
const MaxDocumentBytes = 10 * 1024 * 1024

// fallbackPageSize is used when the page size cannot be read. Textract
// geometry is normalized, so only the aspect ratio matters.
const fallbackPageSize = 1000.0

// API is the part of the Textract client the source needs.
type API interface {
	DetectDocumentText(ctx context.Context, params *textract.DetectDocumentTextInput, optFns ...func(*textract.Options)) (*textract.DetectDocumentTextOutput, error)
}

// Config controls request pacing.
type Config struct {
	Region            string
	RequestsPerSecond float64
	Burst             int
}

// Source sends files to DetectDocumentText.
type Source struct {
	client   API
	limiter  *rate.Limiter
	retry    resilience.RetryConfig
	breaker  *resilience.Breaker
	observer *observability.StandardObserver
}

// New loads the default AWS credential chain and creates a Textract source.
func New(ctx context.Context, cfg Config, observer *observability.StandardObserver) (*Source, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewWithClient(textract.NewFromConfig(awsCfg), cfg, observer), nil
}

// NewWithClient creates a source around an existing client.
func NewWithClient(client API, cfg Config, observer *observability.StandardObserver) *Source {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := max(cfg.Burst, 1)

	return &Source{
		client:   client,
		limiter:  rate.NewLimiter(limit, burst),
		retry:    resilience.RemoteOCRRetryConfig(),
		breaker:  resilience.NewBreaker("textract", 5, 30*time.Second),
		observer: observer,
	}
}

func (s *Source) Name() string { return Name }

func (s *Source) Extensions() []string {
	return append(append([]string{}, imagefile.Extensions...), ".pdf")
}

// Recognize uploads the file and converts WORD blocks into tokens.
// Synchronous Textract reads single-page PDFs only.
func (s *Source) Recognize(ctx context.Context, path string) ([]ocr.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) > MaxDocumentBytes {
		return nil, resilience.NewPermanentError("", fmt.Errorf("%s is %d bytes, Textract accepts at most %d", path, len(data), MaxDocumentBytes))
	}

	width, height := pageSize(path, data)

	finishTiming := s.observer.StartTiming("textract", "detect_document_text", path)
	out, err := s.detect(ctx, data)
	if err != nil {
		finishTiming(false, map[string]interface{}{"error_type": resilience.ClassifyError(err).Type.String()})
		return nil, fmt.Errorf("textract API call failed: %w", err)
	}

	docs := Documents(out.Blocks, path, width, height)
	tokens := 0
	for _, d := range docs {
		tokens += len(d.Tokens)
	}
	finishTiming(true, map[string]interface{}{"token_count": tokens})
	return docs, nil
}

func (s *Source) detect(ctx context.Context, data []byte) (*textract.DetectDocumentTextOutput, error) {
	input := &textract.DetectDocumentTextInput{
		Document: &types.Document{Bytes: data},
	}

	return resilience.RetryWithResult(ctx, s.retry, func(ctx context.Context) (*textract.DetectDocumentTextOutput, error) {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		var out *textract.DetectDocumentTextOutput
		err := s.breaker.Execute(ctx, func(ctx context.Context) error {
			var callErr error
			out, callErr = s.client.DetectDocumentText(ctx, input)
			return callErr
		})
		return out, err
	})
}

func pageSize(path string, data []byte) (float64, float64) {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		if w, h, err := pdftext.PageSize(data); err == nil {
			return w, h
		}
		return fallbackPageSize, fallbackPageSize
	}
	if info, err := imagefile.Inspect(data); err == nil && info.Width > 0 && info.Height > 0 {
		return float64(info.Width), float64(info.Height)
	}
	return fallbackPageSize, fallbackPageSize
}

// Documents groups WORD blocks by page and scales their normalized geometry
// to width x height.
func Documents(blocks []types.Block, source string, width, height float64) []ocr.Document {
	byPage := make(map[int][]ocr.Token)
	maxPage := 1

	for _, b := range blocks {
		if b.BlockType != types.BlockTypeWord || b.Text == nil || b.Geometry == nil {
			continue
		}
		page := 1
		if b.Page != nil {
			page = int(*b.Page)
		}
		maxPage = max(maxPage, page)

		byPage[page] = append(byPage[page], ocr.Token{
			Content:    aws.ToString(b.Text),
			Confidence: float64(aws.ToFloat32(b.Confidence)) / 100.0,
			Box:        scaleGeometry(b.Geometry, width, height),
		})
	}

	docs := make([]ocr.Document, 0, maxPage)
	for p := 1; p <= maxPage; p++ {
		docs = append(docs, ocr.Document{Source: source, Page: p, Tokens: byPage[p]})
	}
	return docs
}

func scaleGeometry(g *types.Geometry, width, height float64) []ocr.Point {
	if len(g.Polygon) == 4 {
		box := make([]ocr.Point, 4)
		for i, p := range g.Polygon {
			box[i] = ocr.Point{X: float64(p.X) * width, Y: float64(p.Y) * height}
		}
		return box
	}
	if bb := g.BoundingBox; bb != nil {
		left := float64(bb.Left) * width
		top := float64(bb.Top) * height
		return ocr.Rect(left, top, left+float64(bb.Width)*width, top+float64(bb.Height)*height)
	}
	return nil
}
