// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package ocr

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// Document is the token snapshot of a single recognized page.
type Document struct {
	Source string  `json:"source"`
	Page   int     `json:"page"`
	Tokens []Token `json:"tokens"`
}

// Source turns a file on disk into recognized pages.
type Source interface {
	// Name identifies the source in configuration and logs (e.g. "tesseract").
	Name() string

	// Extensions lists the lower-case file extensions the source can read.
	Extensions() []string

	// Recognize returns one Document per page of the file.
	Recognize(ctx context.Context, path string) ([]Document, error)
}

// AutoSource selects a source by file extension.
const AutoSource = "auto"

var (
	// ErrUnsupportedFile is returned when no registered source reads the file type.
	ErrUnsupportedFile = errors.New("unsupported file type")

	// ErrNoTokens is returned by sources that found nothing to recognize.
	ErrNoTokens = errors.New("no tokens recognized")
)

// Registry holds the OCR sources available to a run.
type Registry struct {
	sources map[string]Source
	// preferred source per extension for auto selection, in fallback order
	byExt map[string][]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sources: make(map[string]Source),
		byExt:   make(map[string][]string),
	}
}

// Register adds a source. Sources registered earlier win auto selection for
// an extension; later ones are used as fallbacks when the earlier source
// returns ErrNoTokens.
func (r *Registry) Register(s Source) {
	r.sources[s.Name()] = s
	for _, ext := range s.Extensions() {
		ext = strings.ToLower(ext)
		r.byExt[ext] = append(r.byExt[ext], s.Name())
	}
}

// RegisterManual adds a source that is only used when selected by name.
func (r *Registry) RegisterManual(s Source) {
	r.sources[s.Name()] = s
}

// Get retrieves a source by name.
func (r *Registry) Get(name string) (Source, bool) {
	s, ok := r.sources[name]
	return s, ok
}

// List returns the registered source names in sorted order.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.sources))
	for name := range r.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Supports reports whether any registered source reads path.
func (r *Registry) Supports(path string) bool {
	return len(r.byExt[strings.ToLower(filepath.Ext(path))]) > 0
}

// Accepts reports whether sourceName would read path.
func (r *Registry) Accepts(sourceName, path string) bool {
	if sourceName == "" || sourceName == AutoSource {
		return r.Supports(path)
	}
	s, ok := r.Get(sourceName)
	if !ok {
		return false
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range s.Extensions() {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}

// Recognize runs the named source on path. With AutoSource (or an empty
// name) the sources registered for the file extension are tried in order
// until one yields tokens.
func (r *Registry) Recognize(ctx context.Context, sourceName, path string) ([]Document, error) {
	if sourceName != "" && sourceName != AutoSource {
		s, ok := r.Get(sourceName)
		if !ok {
			return nil, fmt.Errorf("unknown OCR source '%s'. Available sources: %s", sourceName, strings.Join(r.List(), ", "))
		}
		return s.Recognize(ctx, path)
	}

	ext := strings.ToLower(filepath.Ext(path))
	candidates := r.byExt[ext]
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, ext)
	}

	var lastErr error
	for _, name := range candidates {
		docs, err := r.sources[name].Recognize(ctx, path)
		if err == nil && countTokens(docs) > 0 {
			return docs, nil
		}
		if err == nil {
			err = ErrNoTokens
		}
		lastErr = fmt.Errorf("%s: %w", name, err)
		if !errors.Is(err, ErrNoTokens) {
			return nil, lastErr
		}
	}
	return nil, lastErr
}

func countTokens(docs []Document) int {
	n := 0
	for _, d := range docs {
		n += len(d.Tokens)
	}
	return n
}
