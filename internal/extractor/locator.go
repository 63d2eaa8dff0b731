// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package extractor

import (
	"strings"

	"rollcall/internal/ocr"
)

// locateName returns the raw name text for one identifier, or "" when none
// is found. A name written in front of the identifier inside the same token
// wins over tokens to its left.
func (e *Extractor) locateName(tokens []ocr.Token, index *tokenIndex, m identifierMatch) string {
	if raw := embeddedName(tokens[m.token].Content, m.start); raw != "" {
		return raw
	}
	return e.spatialName(tokens, index, m.token)
}

// embeddedName returns the text in front of the identifier, minus one
// opening bracket that wraps the identifier.
func embeddedName(content string, start int) string {
	pre := strings.TrimSpace(content[:start])
	if strings.HasSuffix(pre, "(") {
		pre = strings.TrimSpace(strings.TrimSuffix(pre, "("))
	}
	return pre
}

// spatialName collects up to MaxNameTokens tokens on the identifier's line,
// walking leftwards from its left edge and stopping at the first gap wider
// than MaxGapFactor identifier heights.
func (e *Extractor) spatialName(tokens []ocr.Token, index *tokenIndex, idIdx int) string {
	id := tokens[idIdx]
	height := id.Height()
	leftX := id.LeftX()

	candidates := index.leftOf(tokens, leftX, id.VerticalCenter(), e.cfg.LineTolerance*height)

	maxGap := e.cfg.MaxGapFactor * height
	boundary := leftX
	var picked []int
	for _, i := range candidates {
		if i == idIdx {
			continue
		}
		t := tokens[i]
		if boundary-t.RightX() > maxGap {
			break
		}
		picked = append([]int{i}, picked...)
		boundary = t.LeftX()
		if len(picked) >= e.cfg.MaxNameTokens {
			break
		}
	}

	if len(picked) == 0 {
		return ""
	}

	parts := make([]string, len(picked))
	for j, i := range picked {
		parts[j] = tokens[i].Content
	}
	return strings.Join(parts, " ")
}

// eligibleForName filters tokens before they enter the spatial index.
func (e *Extractor) eligibleForName(t ocr.Token) bool {
	if e.exclude != nil && e.exclude.MatchString(t.Content) {
		return false
	}
	return !strings.Contains(t.Content, e.cfg.IdentifierPrefix)
}
