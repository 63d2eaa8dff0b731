// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package ocr

import (
	"fmt"
	"math"
)

// Point is a corner of a token's bounding quadrilateral in image coordinates
// (y grows downward).
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Token is one OCR-recognized text span.
//
// Box holds the four corners of the quadrilateral in a consistent winding
// order: top-left, top-right, bottom-right, bottom-left. Boxes are not
// assumed to be axis aligned.
type Token struct {
	Content    string  `json:"content" yaml:"content"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
	Box        []Point `json:"box" yaml:"box"`
}

// BoxError reports a token whose box does not have exactly four points.
type BoxError struct {
	Index  int
	Points int
}

func (e *BoxError) Error() string {
	return fmt.Sprintf("token %d: bounding box has %d points, want 4", e.Index, e.Points)
}

// Validate checks the token's geometry. idx is only used for error reporting.
func (t Token) Validate(idx int) error {
	if len(t.Box) != 4 {
		return &BoxError{Index: idx, Points: len(t.Box)}
	}
	return nil
}

// ValidateAll returns the first geometry violation in tokens.
func ValidateAll(tokens []Token) error {
	for i, t := range tokens {
		if err := t.Validate(i); err != nil {
			return err
		}
	}
	return nil
}

// VerticalCenter averages the y of the first and third corners.
func (t Token) VerticalCenter() float64 {
	return (t.Box[0].Y + t.Box[2].Y) / 2
}

// Height is the vertical distance between the first and third corners.
func (t Token) Height() float64 {
	return math.Abs(t.Box[2].Y - t.Box[0].Y)
}

// LeftX is the smallest x over all corners.
func (t Token) LeftX() float64 {
	x := t.Box[0].X
	for _, p := range t.Box[1:] {
		x = math.Min(x, p.X)
	}
	return x
}

// RightX is the largest x over all corners.
func (t Token) RightX() float64 {
	x := t.Box[0].X
	for _, p := range t.Box[1:] {
		x = math.Max(x, p.X)
	}
	return x
}

// Rect builds an axis-aligned four-point box from its extents.
func Rect(left, top, right, bottom float64) []Point {
	return []Point{
		{X: left, Y: top},
		{X: right, Y: top},
		{X: right, Y: bottom},
		{X: left, Y: bottom},
	}
}
