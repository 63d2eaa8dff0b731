// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package paths

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// MaxInputSize caps the size of a single scanned sheet.
const MaxInputSize = 100 * 1024 * 1024

// SkippedFile is an input that will not be processed.
type SkippedFile struct {
	Path   string
	Reason string
}

// Inputs is the outcome of resolving the command line input.
type Inputs struct {
	Files   []string
	Skipped []SkippedFile
}

// CollectInputs expands a file, directory or glob into the files to read.
// Directories are walked recursively. supported decides which extensions
// are kept; files it rejects are skipped silently when walking and reported
// when named explicitly.
func CollectInputs(input string, supported func(path string) bool) (*Inputs, error) {
	if err := ValidatePath(input); err != nil {
		return nil, err
	}

	result := &Inputs{}

	info, statErr := os.Stat(input)
	switch {
	case statErr == nil && info.IsDir():
		err := filepath.WalkDir(input, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != input && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if supported(path) {
				result.addFile(path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("error walking %s: %w", input, err)
		}

	case statErr == nil:
		if !supported(input) {
			result.Skipped = append(result.Skipped, SkippedFile{Path: input, Reason: "unsupported file type"})
			break
		}
		result.addFile(input)

	case strings.ContainsAny(input, "*?["):
		matches, err := filepath.Glob(input)
		if err != nil {
			return nil, fmt.Errorf("invalid glob pattern: %w", err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no files match pattern: %s", input)
		}
		for _, m := range matches {
			if fi, err := os.Stat(m); err != nil || fi.IsDir() {
				continue
			}
			if supported(m) {
				result.addFile(m)
			}
		}

	default:
		return nil, fmt.Errorf("path does not exist or is not accessible: %w", statErr)
	}

	sort.Strings(result.Files)
	return result, nil
}

func (in *Inputs) addFile(path string) {
	info, err := os.Stat(path)
	if err != nil {
		in.Skipped = append(in.Skipped, SkippedFile{Path: path, Reason: err.Error()})
		return
	}
	if info.Size() > MaxInputSize {
		in.Skipped = append(in.Skipped, SkippedFile{
			Path:   path,
			Reason: fmt.Sprintf("file too large (max size: %dMB)", MaxInputSize/(1024*1024)),
		})
		return
	}
	in.Files = append(in.Files, path)
}
