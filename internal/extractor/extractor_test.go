// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package extractor

import (
	"errors"
	"testing"

	"rollcall/internal/ocr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.IdentifierPrefix = "px-"
	cfg.IdentifierPattern = `px-\d{7}`
	return cfg
}

func newTestExtractor(t *testing.T) *Extractor {
	t.Helper()
	e, err := New(testConfig())
	require.NoError(t, err)
	return e
}

// tok places a token on the line spanning y 100..130 unless overridden.
func tok(content string, left, right float64, conf float64) ocr.Token {
	return ocr.Token{Content: content, Confidence: conf, Box: ocr.Rect(left, 100, right, 130)}
}

func TestNewConfigurationErrors(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*Config)
		field string
	}{
		{"empty prefix", func(c *Config) { c.IdentifierPrefix = "" }, "identifier_prefix"},
		{"empty pattern", func(c *Config) { c.IdentifierPattern = "" }, "identifier_pattern"},
		{"bad pattern", func(c *Config) { c.IdentifierPattern = `px-(\d+` }, "identifier_pattern"},
		{"bad exclusion", func(c *Config) { c.NameExclusionPattern = `[` }, "name_exclusion_pattern"},
		{"threshold above one", func(c *Config) { c.ConfidenceThreshold = 1.5 }, "confidence_threshold"},
		{"negative tolerance", func(c *Config) { c.LineTolerance = -1 }, "line_tolerance"},
		{"negative gap", func(c *Config) { c.MaxGapFactor = -2 }, "max_gap_factor"},
		{"negative name tokens", func(c *Config) { c.MaxNameTokens = -1 }, "max_name_tokens"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.edit(&cfg)

			e, err := New(cfg)
			require.Error(t, err)
			assert.Nil(t, e)

			var cfgErr *ConfigurationError
			require.True(t, errors.As(err, &cfgErr), "expected *ConfigurationError, got %T", err)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestNewAppliesDefaults(t *testing.T) {
	e, err := New(Config{IdentifierPrefix: "px-", IdentifierPattern: `px-\d+`})
	require.NoError(t, err)

	cfg := e.Config()
	assert.Equal(t, DefaultLineTolerance, cfg.LineTolerance)
	assert.Equal(t, DefaultMaxGapFactor, cfg.MaxGapFactor)
	assert.Equal(t, DefaultMaxNameTokens, cfg.MaxNameTokens)
	assert.Empty(t, cfg.NameExclusionPattern)
}

func TestExtractEmbeddedName(t *testing.T) {
	e := newTestExtractor(t)

	students, err := e.Extract([]ocr.Token{
		tok("山田太郎(px-0000001)", 0, 300, 0.9),
	}, "sheet1.png")
	require.NoError(t, err)
	require.Len(t, students, 1)

	s := students[0]
	assert.Equal(t, "px-0000001", s.IdentifierFull)
	assert.Equal(t, "0000001", s.IdentifierNum)
	assert.Equal(t, "山田太郎", s.FullName)
	assert.Empty(t, s.Surname)
	assert.Empty(t, s.GivenName)
	assert.Equal(t, 0.9, s.Confidence)
	assert.Equal(t, "sheet1.png", s.SourceFile)
}

func TestExtractEmbeddedNameWithSpace(t *testing.T) {
	e := newTestExtractor(t)

	students, err := e.Extract([]ocr.Token{
		tok("山田 太郎 ( px-0000001)", 0, 300, 0.9),
	}, "")
	require.NoError(t, err)
	require.Len(t, students, 1)

	assert.Equal(t, "山田", students[0].Surname)
	assert.Equal(t, "太郎", students[0].GivenName)
	assert.Equal(t, "山田 太郎", students[0].FullName)
}

func TestExtractSpatialName(t *testing.T) {
	e := newTestExtractor(t)

	students, err := e.Extract([]ocr.Token{
		tok("山田", 0, 50, 0.95),
		tok("px-0000002", 120, 220, 0.8),
	}, "")
	require.NoError(t, err)
	require.Len(t, students, 1)

	assert.Equal(t, "山田", students[0].FullName)
	assert.Equal(t, 0.8, students[0].Confidence, "confidence comes from the identifier token")
}

func TestExtractSpatialTwoTokens(t *testing.T) {
	e := newTestExtractor(t)

	// input order deliberately scrambled
	students, err := e.Extract([]ocr.Token{
		tok("px-0000003", 300, 400, 0.9),
		tok("太郎", 150, 250, 0.9),
		tok("山田", 40, 120, 0.9),
		tok("Room", 0, 30, 0.9),
	}, "")
	require.NoError(t, err)
	require.Len(t, students, 1)

	assert.Equal(t, "山田", students[0].Surname)
	assert.Equal(t, "太郎", students[0].GivenName)
	assert.Equal(t, "山田 太郎", students[0].FullName)
}

func TestExtractGapStopsAccumulation(t *testing.T) {
	e := newTestExtractor(t)

	// height 30, so the maximum gap is 150
	students, err := e.Extract([]ocr.Token{
		tok("山田", 0, 40, 0.9),
		tok("px-0000004", 200, 300, 0.9),
	}, "")
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.False(t, students[0].HasName())

	// second part is too far from the first
	students, err = e.Extract([]ocr.Token{
		tok("Dept", 0, 20, 0.9),
		tok("太郎", 200, 260, 0.9),
		tok("px-0000005", 300, 400, 0.9),
	}, "")
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, "太郎", students[0].FullName)
}

func TestExtractLineTolerance(t *testing.T) {
	e := newTestExtractor(t)

	// identifier center 115, height 30, band is 24
	above := ocr.Token{Content: "佐藤", Confidence: 0.9, Box: ocr.Rect(0, 60, 80, 90)}   // center 75
	nearby := ocr.Token{Content: "鈴木", Confidence: 0.9, Box: ocr.Rect(0, 82, 80, 112)} // center 97

	students, err := e.Extract([]ocr.Token{above, tok("px-0000006", 120, 220, 0.9)}, "")
	require.NoError(t, err)
	assert.Empty(t, students[0].FullName)

	students, err = e.Extract([]ocr.Token{nearby, tok("px-0000006", 120, 220, 0.9)}, "")
	require.NoError(t, err)
	assert.Equal(t, "鈴木", students[0].FullName)
}

func TestExtractSkipsExcludedAndIdentifierTokens(t *testing.T) {
	e := newTestExtractor(t)

	students, err := e.Extract([]ocr.Token{
		tok("山田", 0, 40, 0.9),
		tok("No.", 50, 80, 0.9),
		tok("px-0000007", 100, 200, 0.9),
		tok("px-0000008", 210, 300, 0.9),
	}, "")
	require.NoError(t, err)
	require.Len(t, students, 2)

	assert.Equal(t, "山田", students[0].FullName)
	assert.Empty(t, students[1].FullName, "identifier tokens are never name parts")
}

func TestExtractTieKeepsInputOrder(t *testing.T) {
	e := newTestExtractor(t)
	cfg := e.Config()
	cfg.MaxNameTokens = 1
	e, err := New(cfg)
	require.NoError(t, err)

	students, err := e.Extract([]ocr.Token{
		tok("first", 20, 60, 0.9),
		tok("second", 10, 60, 0.9),
		tok("px-0000009", 100, 200, 0.9),
	}, "")
	require.NoError(t, err)
	assert.Equal(t, "first", students[0].FullName)
}

func TestExtractConfidenceThreshold(t *testing.T) {
	e := newTestExtractor(t)

	students, err := e.Extract([]ocr.Token{
		tok("山田(px-0000010)", 0, 200, 0.49),
		tok("佐藤(px-0000011)", 0, 200, 0.5),
	}, "")
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, "px-0000011", students[0].IdentifierFull)
}

func TestExtractDeduplicatesFirstWins(t *testing.T) {
	e := newTestExtractor(t)

	students, err := e.Extract([]ocr.Token{
		tok("山田(px-0000012)", 0, 200, 0.7),
		tok("佐藤(px-0000013)", 0, 200, 0.9),
		tok("鈴木(px-0000012)", 0, 200, 0.99),
	}, "")
	require.NoError(t, err)
	require.Len(t, students, 2)

	assert.Equal(t, "px-0000012", students[0].IdentifierFull)
	assert.Equal(t, "山田", students[0].FullName)
	assert.Equal(t, 0.7, students[0].Confidence)
	assert.Equal(t, "px-0000013", students[1].IdentifierFull)
}

func TestExtractLowConfidenceDuplicateDoesNotShadow(t *testing.T) {
	e := newTestExtractor(t)

	students, err := e.Extract([]ocr.Token{
		tok("山田(px-0000014)", 0, 200, 0.1),
		tok("佐藤(px-0000014)", 0, 200, 0.9),
	}, "")
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, "佐藤", students[0].FullName)
}

func TestExtractPatternDoesNotFilterByDefault(t *testing.T) {
	e := newTestExtractor(t)

	// five digits do not satisfy px-\d{7}, the record is still emitted
	students, err := e.Extract([]ocr.Token{
		tok("山田", 0, 50, 0.9),
		tok("px-12345", 120, 220, 0.9),
	}, "")
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, "px-12345", students[0].IdentifierFull)
	assert.Equal(t, "12345", students[0].IdentifierNum)
	assert.Equal(t, "山田", students[0].FullName)
}

func TestExtractStrictPattern(t *testing.T) {
	cfg := testConfig()
	cfg.StrictPattern = true
	e, err := New(cfg)
	require.NoError(t, err)

	// eight digits do not satisfy px-\d{7}
	students, err := e.Extract([]ocr.Token{
		tok("px-12345678", 0, 200, 0.9),
		tok("px-1234567", 0, 200, 0.9),
	}, "")
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, "px-1234567", students[0].IdentifierFull)
}

func TestExtractFirstMatchPerToken(t *testing.T) {
	e := newTestExtractor(t)

	students, err := e.Extract([]ocr.Token{
		tok("px-0000015 px-0000016", 0, 300, 0.9),
	}, "")
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, "px-0000015", students[0].IdentifierFull)
}

func TestExtractMalformedBoxFailsWholeCall(t *testing.T) {
	e := newTestExtractor(t)

	students, err := e.Extract([]ocr.Token{
		tok("山田(px-0000017)", 0, 200, 0.9),
		{Content: "stray", Confidence: 0.9, Box: []ocr.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}}},
	}, "")
	require.Error(t, err)
	assert.Nil(t, students)

	var boxErr *ocr.BoxError
	require.ErrorAs(t, err, &boxErr)
	assert.Equal(t, 1, boxErr.Index)
	assert.Equal(t, 3, boxErr.Points)
}

func TestExtractNoIdentifiers(t *testing.T) {
	e := newTestExtractor(t)

	students, err := e.Extract([]ocr.Token{tok("Attendance", 0, 200, 0.99)}, "")
	require.NoError(t, err)
	assert.Empty(t, students)

	students, err = e.Extract(nil, "")
	require.NoError(t, err)
	assert.Empty(t, students)
}

func TestExtractNormalizeWidth(t *testing.T) {
	cfg := testConfig()
	cfg.NormalizeWidth = true
	e, err := New(cfg)
	require.NoError(t, err)

	students, err := e.Extract([]ocr.Token{
		tok("山田　太郎（px-０００００１８）", 0, 300, 0.9),
	}, "")
	require.NoError(t, err)
	require.Len(t, students, 1)

	assert.Equal(t, "px-0000018", students[0].IdentifierFull)
	assert.Equal(t, "0000018", students[0].IdentifierNum)
	assert.Equal(t, "山田 太郎", students[0].FullName)

	// without folding the full-width digits are not an identifier
	students, err = newTestExtractor(t).Extract([]ocr.Token{
		tok("山田　太郎（px-０００００１８）", 0, 300, 0.9),
	}, "")
	require.NoError(t, err)
	assert.Empty(t, students)
}

func TestExtractDocumentsDedupAcrossPages(t *testing.T) {
	e := newTestExtractor(t)

	docs := []ocr.Document{
		{Page: 1, Tokens: []ocr.Token{tok("山田", 0, 50, 0.9), tok("px-0000019", 100, 200, 0.9)}},
		{Page: 2, Tokens: []ocr.Token{
			tok("px-0000019", 100, 200, 0.9),
			tok("佐藤", 0, 50, 0.9),
			tok("px-0000020", 300, 400, 0.9),
		}},
	}

	students, err := e.ExtractDocuments(docs, "roll.pdf")
	require.NoError(t, err)
	require.Len(t, students, 2)
	assert.Equal(t, "山田", students[0].FullName)
	assert.Equal(t, "px-0000020", students[1].IdentifierFull)

	docs[1].Tokens[1].Box = nil
	_, err = e.ExtractDocuments(docs, "roll.pdf")
	var boxErr *ocr.BoxError
	require.ErrorAs(t, err, &boxErr)
}

func TestExtractDocumentsDedupPerPage(t *testing.T) {
	cfg := testConfig()
	cfg.DedupPerPage = true
	e, err := New(cfg)
	require.NoError(t, err)

	docs := []ocr.Document{
		{Page: 1, Tokens: []ocr.Token{tok("山田(px-0000019)", 0, 200, 0.9)}},
		{Page: 2, Tokens: []ocr.Token{
			tok("山田(px-0000019)", 0, 200, 0.8),
			tok("佐藤(px-0000019)", 0, 200, 0.9),
		}},
	}

	students, err := e.ExtractDocuments(docs, "roll.pdf")
	require.NoError(t, err)
	require.Len(t, students, 2, "one row per page, still deduplicated within a page")
	assert.Equal(t, 0.9, students[0].Confidence)
	assert.Equal(t, 0.8, students[1].Confidence)
	assert.Equal(t, "山田", students[1].FullName)
}

func TestExtractUniqueIdentifiers(t *testing.T) {
	e := newTestExtractor(t)

	var tokens []ocr.Token
	for i := 0; i < 50; i++ {
		id := []string{"px-0000001", "px-0000002", "px-0000003"}[i%3]
		tokens = append(tokens, tok(id, float64(i*10), float64(i*10+5), float64(i%10)/10))
	}

	students, err := e.Extract(tokens, "")
	require.NoError(t, err)

	seen := map[string]bool{}
	for _, s := range students {
		assert.False(t, seen[s.IdentifierFull], "duplicate %s", s.IdentifierFull)
		seen[s.IdentifierFull] = true
		assert.GreaterOrEqual(t, s.Confidence, 0.5)
	}
}
