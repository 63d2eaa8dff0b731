// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package extractor

// DefaultNameExclusionPattern matches symbols that never appear in a name.
const DefaultNameExclusionPattern = `[!@#$%^&*(),.?":{}|<>]`

const (
	DefaultConfidenceThreshold = 0.5
	DefaultLineTolerance       = 0.8
	DefaultMaxGapFactor        = 5.0
	DefaultMaxNameTokens       = 2
)

// Config holds everything an Extractor needs. It is copied at construction;
// later changes to the caller's value have no effect.
type Config struct {
	// IdentifierPrefix is the literal text in front of the digits, e.g. "px-".
	IdentifierPrefix string `yaml:"identifier_prefix" json:"identifier_prefix"`

	// IdentifierPattern describes a whole identifier (e.g. `px-\d{7}`). It is
	// anchored at both ends when compiled and only filters matches when
	// StrictPattern is set.
	IdentifierPattern string `yaml:"identifier_pattern" json:"identifier_pattern"`

	// StrictPattern drops identifiers that do not match IdentifierPattern.
	StrictPattern bool `yaml:"strict_pattern" json:"strict_pattern"`

	// NameExclusionPattern disqualifies a token from being part of a name.
	// Empty disables the check.
	NameExclusionPattern string `yaml:"name_exclusion_pattern" json:"name_exclusion_pattern"`

	// ConfidenceThreshold is the minimum confidence of an identifier token.
	ConfidenceThreshold float64 `yaml:"confidence_threshold" json:"confidence_threshold"`

	// LineTolerance is the vertical band, as a multiple of the identifier
	// height, within which a token counts as being on the same line.
	// Zero selects DefaultLineTolerance.
	LineTolerance float64 `yaml:"line_tolerance" json:"line_tolerance"`

	// MaxGapFactor bounds the horizontal gap between consecutive name parts,
	// as a multiple of the identifier height. Zero selects DefaultMaxGapFactor.
	MaxGapFactor float64 `yaml:"max_gap_factor" json:"max_gap_factor"`

	// MaxNameTokens caps how many tokens to the left are joined into a name.
	// Zero selects DefaultMaxNameTokens.
	MaxNameTokens int `yaml:"max_name_tokens" json:"max_name_tokens"`

	// NormalizeWidth applies NFKC to token content before matching, folding
	// full-width digits, letters and brackets to ASCII.
	NormalizeWidth bool `yaml:"normalize_width" json:"normalize_width"`

	// DedupPerPage restarts deduplication on every page of a multi-page
	// file, so the same student can appear once per page.
	DedupPerPage bool `yaml:"dedup_per_page" json:"dedup_per_page"`
}

// DefaultConfig returns the tunable defaults. IdentifierPrefix and
// IdentifierPattern are deliberately left empty and must be supplied.
func DefaultConfig() Config {
	return Config{
		NameExclusionPattern: DefaultNameExclusionPattern,
		ConfidenceThreshold:  DefaultConfidenceThreshold,
		LineTolerance:        DefaultLineTolerance,
		MaxGapFactor:         DefaultMaxGapFactor,
		MaxNameTokens:        DefaultMaxNameTokens,
	}
}

func (c Config) withDefaults() Config {
	if c.LineTolerance == 0 {
		c.LineTolerance = DefaultLineTolerance
	}
	if c.MaxGapFactor == 0 {
		c.MaxGapFactor = DefaultMaxGapFactor
	}
	if c.MaxNameTokens == 0 {
		c.MaxNameTokens = DefaultMaxNameTokens
	}
	return c
}
