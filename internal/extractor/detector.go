// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package extractor

import "rollcall/internal/ocr"

// identifierMatch is an identifier found inside a token.
type identifierMatch struct {
	token      int    // index into the page's tokens
	identifier string // matched text, prefix included
	start      int    // byte offset of the match in the token content
}

// detect scans tokens in order and keeps the first identifier of each token
// whose confidence clears the threshold. With StrictPattern the identifier
// must also match IdentifierPattern.
// Duplicates are kept here; dedup happens when records are built.
func (e *Extractor) detect(tokens []ocr.Token) []identifierMatch {
	var matches []identifierMatch
	for i, t := range tokens {
		loc := e.search.FindStringIndex(t.Content)
		if loc == nil {
			continue
		}
		if t.Confidence < e.cfg.ConfidenceThreshold {
			continue
		}
		id := t.Content[loc[0]:loc[1]]
		if e.cfg.StrictPattern && !e.validate.MatchString(id) {
			continue
		}
		matches = append(matches, identifierMatch{token: i, identifier: id, start: loc[0]})
	}
	return matches
}
