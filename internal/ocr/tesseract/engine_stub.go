// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

//go:build !ocr

package tesseract

import "rollcall/internal/ocr"

// Enabled reports whether Tesseract was compiled in.
const Enabled = false

func recognize([]byte, []string) ([]ocr.Token, error) {
	return nil, ErrOCRNotEnabled
}
