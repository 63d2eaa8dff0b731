// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package extractor

import (
	"strings"
	"unicode/utf8"
)

var parenStripper = strings.NewReplacer("(", "", ")", "")

// parseName splits raw name text into surname, given name and full name.
//
// Mostly-ASCII names are returned whole as the full name. Other names are
// split on whitespace (U+3000 included): the first part is the surname and
// the rest, concatenated, the given name. A name without whitespace cannot
// be split and is returned as the full name only.
func parseName(raw string) (surname, given, full string) {
	clean := parenStripper.Replace(strings.TrimSpace(raw))
	if clean == "" {
		return "", "", ""
	}

	if isAlphabetic(clean) {
		return "", "", clean
	}

	parts := strings.Fields(clean)
	if len(parts) < 2 {
		return "", "", clean
	}

	surname = parts[0]
	given = strings.Join(parts[1:], "")
	return surname, given, surname + " " + given
}

// isAlphabetic reports whether ASCII letters make up more than half the
// characters of s.
func isAlphabetic(s string) bool {
	total := utf8.RuneCountInString(s)
	if total == 0 {
		return false
	}
	letters := 0
	for _, r := range s {
		if ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') {
			letters++
		}
	}
	return letters*2 > total
}
