// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"bytes"
	"strings"
	"testing"

	"rollcall/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setOf(names ...string) func(string) bool {
	set := make(map[string]bool)
	for _, n := range names {
		set[n] = true
	}
	return func(name string) bool { return set[name] }
}

func TestResolveConfigurationFlagsWin(t *testing.T) {
	cfg := config.Default()
	cfg.Extraction.IdentifierPrefix = "file-"
	cfg.Defaults.Format = "json"

	flags := &configFlags{prefix: "px-", threshold: 0.7, output: "out", split: true}
	err := resolveConfiguration(cfg, flags, setOf("prefix", "threshold", "o", "split"))
	require.NoError(t, err)

	assert.Equal(t, "px-", cfg.Extraction.IdentifierPrefix)
	assert.Equal(t, 0.7, cfg.Extraction.ConfidenceThreshold)
	assert.Equal(t, "out", cfg.Defaults.Output)
	assert.Equal(t, config.ModeSplit, cfg.Defaults.Mode)
	assert.Equal(t, "json", cfg.Defaults.Format, "unset flags keep the configured value")
}

func TestResolveConfigurationUnsetFlagsKeepConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Extraction.ConfidenceThreshold = 0.9

	flags := &configFlags{threshold: 0.5}
	require.NoError(t, resolveConfiguration(cfg, flags, setOf()))
	assert.Equal(t, 0.9, cfg.Extraction.ConfidenceThreshold)
	assert.Equal(t, "", cfg.Defaults.Mode)
}

func TestResolveConfigurationErrors(t *testing.T) {
	tests := []struct {
		name  string
		flags configFlags
		set   []string
	}{
		{"merge and split", configFlags{merge: true, split: true}, []string{"merge", "split"}},
		{"unknown format", configFlags{format: "sarif"}, []string{"format"}},
		{"threshold out of range", configFlags{threshold: 1.5}, []string{"threshold"}},
		{"output traversal", configFlags{output: "../out"}, []string{"output"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flags := tt.flags
			err := resolveConfiguration(config.Default(), &flags, setOf(tt.set...))
			assert.Error(t, err)
		})
	}
}

func TestPromptMode(t *testing.T) {
	tests := map[string]string{
		"1\n":   config.ModeMerge,
		" 1 \n": config.ModeMerge,
		"2\n":   config.ModeSplit,
		"x\n":   config.ModeSplit,
		"":      config.ModeSplit,
	}
	for input, want := range tests {
		var out bytes.Buffer
		got := promptMode(bufio.NewReader(strings.NewReader(input)), &out)
		assert.Equal(t, want, got, "input %q", input)
		assert.Contains(t, out.String(), "Select [1/2]")
	}
}

func TestPromptInputPathStripsQuotes(t *testing.T) {
	var out bytes.Buffer
	path, err := promptInputPath(bufio.NewReader(strings.NewReader("\"scans/week 1\"\n")), &out)
	require.NoError(t, err)
	assert.Equal(t, "scans/week 1", path)

	path, err = promptInputPath(bufio.NewReader(strings.NewReader("sheet.png")), &out)
	require.NoError(t, err)
	assert.Equal(t, "sheet.png", path)
}

func TestListProfiles(t *testing.T) {
	cfg := config.Default()
	cfg.Profiles["lecture"] = config.Profile{Description: "Lecture hall sheets"}
	cfg.Profiles["lab"] = config.Profile{}

	var out bytes.Buffer
	listProfiles(&out, cfg, "rollcall.yaml")
	assert.Equal(t, "Available profiles:\n  - lab\n  - lecture: Lecture hall sheets\n", out.String())

	out.Reset()
	listProfiles(&out, cfg, "")
	assert.Contains(t, out.String(), "No configuration file found")
}
