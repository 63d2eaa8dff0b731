// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package extractor associates student identifiers with the names written
// next to them on a scanned attendance sheet.
//
// Extraction is a pure function of the token snapshot: an Extractor holds
// only compiled configuration and is safe for concurrent use.
package extractor

import (
	"fmt"
	"regexp"

	"rollcall/internal/ocr"
	"rollcall/internal/roster"

	"golang.org/x/text/unicode/norm"
)

// Extractor turns OCR tokens into student records.
type Extractor struct {
	cfg      Config
	search   *regexp.Regexp // unanchored prefix + digits
	validate *regexp.Regexp // anchored IdentifierPattern, used with StrictPattern
	exclude  *regexp.Regexp // nil when no exclusion pattern is configured
}

var nonDigits = regexp.MustCompile(`\D`)

// New compiles cfg. It returns a *ConfigurationError when a required value
// is missing or a pattern does not compile.
func New(cfg Config) (*Extractor, error) {
	cfg = cfg.withDefaults()

	if cfg.IdentifierPrefix == "" {
		return nil, configError("identifier_prefix", "must be set", nil)
	}
	if cfg.IdentifierPattern == "" {
		return nil, configError("identifier_pattern", "must be set", nil)
	}
	if cfg.ConfidenceThreshold < 0 || cfg.ConfidenceThreshold > 1 {
		return nil, configError("confidence_threshold", fmt.Sprintf("%v is outside [0, 1]", cfg.ConfidenceThreshold), nil)
	}
	if cfg.LineTolerance < 0 {
		return nil, configError("line_tolerance", "must be positive", nil)
	}
	if cfg.MaxGapFactor < 0 {
		return nil, configError("max_gap_factor", "must be positive", nil)
	}
	if cfg.MaxNameTokens < 0 {
		return nil, configError("max_name_tokens", "must be at least 1", nil)
	}

	validate, err := regexp.Compile(`^(?:` + cfg.IdentifierPattern + `)$`)
	if err != nil {
		return nil, configError("identifier_pattern", "does not compile", err)
	}

	var exclude *regexp.Regexp
	if cfg.NameExclusionPattern != "" {
		exclude, err = regexp.Compile(cfg.NameExclusionPattern)
		if err != nil {
			return nil, configError("name_exclusion_pattern", "does not compile", err)
		}
	}

	return &Extractor{
		cfg:      cfg,
		search:   regexp.MustCompile(regexp.QuoteMeta(cfg.IdentifierPrefix) + `\d+`),
		validate: validate,
		exclude:  exclude,
	}, nil
}

// Config returns the effective configuration, defaults applied.
func (e *Extractor) Config() Config {
	return e.cfg
}

// Extract returns one record per distinct identifier found in tokens, in the
// order the identifiers first appear. sourceFile is copied onto every record.
//
// A token whose box does not have four points fails the whole call with an
// *ocr.BoxError. Identifiers without a locatable name still produce a record.
func (e *Extractor) Extract(tokens []ocr.Token, sourceFile string) ([]roster.Student, error) {
	if err := ocr.ValidateAll(tokens); err != nil {
		return nil, err
	}
	return e.extractPage(e.prepare(tokens), sourceFile, make(map[string]struct{})), nil
}

// ExtractDocuments extracts every page of a file. Geometry is only compared
// within a page. Deduplication spans the whole file unless DedupPerPage is set.
func (e *Extractor) ExtractDocuments(docs []ocr.Document, sourceFile string) ([]roster.Student, error) {
	for _, doc := range docs {
		if err := ocr.ValidateAll(doc.Tokens); err != nil {
			return nil, fmt.Errorf("page %d: %w", doc.Page, err)
		}
	}

	seen := make(map[string]struct{})
	var students []roster.Student
	for _, doc := range docs {
		if e.cfg.DedupPerPage {
			seen = make(map[string]struct{})
		}
		students = append(students, e.extractPage(e.prepare(doc.Tokens), sourceFile, seen)...)
	}
	return students, nil
}

func (e *Extractor) extractPage(tokens []ocr.Token, sourceFile string, seen map[string]struct{}) []roster.Student {
	matches := e.detect(tokens)
	if len(matches) == 0 {
		return nil
	}

	index := newTokenIndex(tokens, e.eligibleForName)

	students := make([]roster.Student, 0, len(matches))
	for _, m := range matches {
		if _, dup := seen[m.identifier]; dup {
			continue
		}
		seen[m.identifier] = struct{}{}

		surname, given, full := parseName(e.locateName(tokens, index, m))

		students = append(students, roster.Student{
			Surname:        surname,
			GivenName:      given,
			FullName:       full,
			IdentifierFull: m.identifier,
			IdentifierNum:  nonDigits.ReplaceAllString(m.identifier, ""),
			Confidence:     tokens[m.token].Confidence,
			SourceFile:     sourceFile,
		})
	}
	return students
}

// prepare returns the tokens to match against, NFKC-folded when configured.
// The caller's slice is never modified.
func (e *Extractor) prepare(tokens []ocr.Token) []ocr.Token {
	if !e.cfg.NormalizeWidth {
		return tokens
	}
	folded := make([]ocr.Token, len(tokens))
	for i, t := range tokens {
		t.Content = norm.NFKC.String(t.Content)
		folded[i] = t
	}
	return folded
}
