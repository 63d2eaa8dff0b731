// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package extractor

import (
	"cmp"
	"slices"

	"rollcall/internal/ocr"

	"github.com/tidwall/rtree"
)

// tokenIndex is an R-tree over the tokens that may be part of a name. Each
// token is stored as the point (RightX, VerticalCenter), which is all the
// same-line and left-of tests look at.
type tokenIndex struct {
	tree rtree.RTreeG[int]
	minX float64
}

func newTokenIndex(tokens []ocr.Token, eligible func(ocr.Token) bool) *tokenIndex {
	ix := &tokenIndex{}
	first := true
	for i, t := range tokens {
		if !eligible(t) {
			continue
		}
		p := [2]float64{t.RightX(), t.VerticalCenter()}
		ix.tree.Insert(p, p, i)
		if first || p[0] < ix.minX {
			ix.minX = p[0]
			first = false
		}
	}
	return ix
}

// leftOf returns the indexed tokens whose right edge lies strictly left of
// maxX and whose vertical center is strictly within band of center, ordered
// by right edge descending. Ties keep token order.
func (ix *tokenIndex) leftOf(tokens []ocr.Token, maxX, center, band float64) []int {
	if ix.tree.Len() == 0 || maxX <= ix.minX {
		return nil
	}

	var hits []int
	ix.tree.Search(
		[2]float64{ix.minX, center - band},
		[2]float64{maxX, center + band},
		func(_, _ [2]float64, i int) bool {
			hits = append(hits, i)
			return true
		},
	)

	// The tree query is inclusive; apply the strict bounds here.
	kept := hits[:0]
	for _, i := range hits {
		t := tokens[i]
		if t.RightX() < maxX && abs(t.VerticalCenter()-center) < band {
			kept = append(kept, i)
		}
	}

	slices.SortFunc(kept, func(a, b int) int {
		if c := cmp.Compare(tokens[b].RightX(), tokens[a].RightX()); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	return kept
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
