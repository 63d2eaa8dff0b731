// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package imagefile inspects scanned sheet images before they are sent to an
// OCR engine.
package imagefile

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"path/filepath"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// Extensions lists the image types every image-reading source accepts.
var Extensions = []string{".jpg", ".jpeg", ".png", ".bmp", ".tif", ".tiff"}

// OrientationNormal is the EXIF orientation of an unrotated image.
const OrientationNormal = 1

// Info describes an image file.
type Info struct {
	Format      string
	Width       int
	Height      int
	Orientation int
}

// Rotated reports whether the EXIF data asks viewers to rotate or flip the
// image. OCR engines read raw pixels, so such scans often recognize poorly.
func (i Info) Rotated() bool {
	return i.Orientation != OrientationNormal
}

// IsImage reports whether path has an image extension.
func IsImage(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extensions {
		if e == ext {
			return true
		}
	}
	return false
}

// Inspect decodes the image header and any EXIF orientation tag.
func Inspect(data []byte) (Info, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Info{}, fmt.Errorf("unrecognized image data: %w", err)
	}

	info := Info{
		Format:      format,
		Width:       cfg.Width,
		Height:      cfg.Height,
		Orientation: OrientationNormal,
	}

	// Missing EXIF is the common case for scanner output.
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return info, nil
	}
	if tag, err := x.Get(exif.Orientation); err == nil {
		if v, err := tag.Int(0); err == nil && v >= 1 && v <= 8 {
			info.Orientation = v
		}
	}
	return info, nil
}
