// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"rollcall/internal/extractor"
	"rollcall/internal/paths"

	"gopkg.in/yaml.v3"
)

// Output modes.
const (
	ModeMerge = "merge"
	ModeSplit = "split"
)

// Config represents the application configuration
type Config struct {
	// Default settings
	Defaults struct {
		Format  string `yaml:"format"`
		Output  string `yaml:"output"`
		Mode    string `yaml:"mode"` // merge, split or empty to ask
		Source  string `yaml:"source"`
		Workers int    `yaml:"workers"`
		Debug   bool   `yaml:"debug"`
		Quiet   bool   `yaml:"quiet"`
		NoColor bool   `yaml:"no_color"`
	} `yaml:"defaults"`

	// Identifier and name matching
	Extraction extractor.Config `yaml:"extraction"`

	OCR OCRConfig `yaml:"ocr"`

	Web struct {
		Port           string   `yaml:"port"`
		AllowedOrigins []string `yaml:"allowed_origins"`
		MaxUploadMB    int64    `yaml:"max_upload_mb"`
	} `yaml:"web"`

	Database struct {
		DSN   string `yaml:"dsn"`
		Table string `yaml:"table"`
	} `yaml:"database"`

	// Profiles for different sheet templates
	Profiles map[string]Profile `yaml:"profiles"`
}

// OCRConfig configures the OCR sources.
type OCRConfig struct {
	Tesseract struct {
		Languages []string `yaml:"languages"`
	} `yaml:"tesseract"`
	Textract struct {
		Region            string  `yaml:"region"`
		RequestsPerSecond float64 `yaml:"requests_per_second"`
		Burst             int     `yaml:"burst"`
	} `yaml:"textract"`
}

// Profile overrides selected settings for one sheet template. Unset fields
// keep the value from the defaults.
type Profile struct {
	Description string              `yaml:"description"`
	Format      string              `yaml:"format"`
	Mode        string              `yaml:"mode"`
	Source      string              `yaml:"source"`
	Extraction  ExtractionOverrides `yaml:"extraction"`
}

// ExtractionOverrides holds optional replacements for extractor settings.
type ExtractionOverrides struct {
	IdentifierPrefix     *string  `yaml:"identifier_prefix"`
	IdentifierPattern    *string  `yaml:"identifier_pattern"`
	StrictPattern        *bool    `yaml:"strict_pattern"`
	NameExclusionPattern *string  `yaml:"name_exclusion_pattern"`
	ConfidenceThreshold  *float64 `yaml:"confidence_threshold"`
	LineTolerance        *float64 `yaml:"line_tolerance"`
	MaxGapFactor         *float64 `yaml:"max_gap_factor"`
	MaxNameTokens        *int     `yaml:"max_name_tokens"`
	NormalizeWidth       *bool    `yaml:"normalize_width"`
	DedupPerPage         *bool    `yaml:"dedup_per_page"`
}

// Default returns the built-in configuration. The identifier prefix and
// pattern are intentionally empty.
func Default() *Config {
	cfg := &Config{Profiles: make(map[string]Profile)}
	cfg.Defaults.Format = "csv"
	cfg.Defaults.Output = "results"
	cfg.Defaults.Source = "auto"
	cfg.Extraction = extractor.DefaultConfig()
	cfg.OCR.Tesseract.Languages = []string{"jpn", "eng"}
	cfg.OCR.Textract.RequestsPerSecond = 1
	cfg.OCR.Textract.Burst = 1
	cfg.Web.Port = "8080"
	cfg.Web.AllowedOrigins = []string{"*"}
	cfg.Web.MaxUploadMB = 32
	cfg.Database.Table = "attendance_records"
	return cfg
}

// LoadConfig loads configuration from the specified file path. An empty
// path yields the defaults with environment overrides applied. JSON files
// are accepted as well, since JSON is valid YAML.
func LoadConfig(configPath string) (*Config, error) {
	config := Default()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
		if config.Profiles == nil {
			config.Profiles = make(map[string]Profile)
		}
	}

	if err := ApplyEnv(config, os.LookupEnv); err != nil {
		return nil, err
	}

	if err := ValidateConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}

// ApplyEnv overrides configuration from ROLLCALL_* environment variables.
func ApplyEnv(config *Config, lookup func(string) (string, bool)) error {
	if v, ok := lookup("ROLLCALL_IDENTIFIER_PREFIX"); ok {
		config.Extraction.IdentifierPrefix = v
	}
	if v, ok := lookup("ROLLCALL_IDENTIFIER_PATTERN"); ok {
		config.Extraction.IdentifierPattern = v
	}
	if v, ok := lookup("ROLLCALL_NAME_EXCLUSION_PATTERN"); ok {
		config.Extraction.NameExclusionPattern = v
	}
	if v, ok := lookup("ROLLCALL_CONFIDENCE_THRESHOLD"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid ROLLCALL_CONFIDENCE_THRESHOLD: %w", err)
		}
		config.Extraction.ConfidenceThreshold = f
	}
	if v, ok := lookup("ROLLCALL_DATABASE_DSN"); ok {
		config.Database.DSN = v
	}
	if v, ok := lookup("ROLLCALL_TEXTRACT_REGION"); ok {
		config.OCR.Textract.Region = v
	}
	return nil
}

// FindConfigFile looks for a configuration file in standard locations
func FindConfigFile() string {
	candidates := []string{"rollcall.yaml", "rollcall.yml", "config.yaml", "config.yml"}

	dir := paths.GetConfigDir()
	candidates = append(candidates, filepath.Join(dir, "config.yaml"), filepath.Join(dir, "config.yml"))

	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".rollcall.yaml"), filepath.Join(home, ".rollcall.yml"))
	}

	for _, c := range candidates {
		if fileExists(c) {
			return c
		}
	}
	return ""
}

// fileExists checks if a file exists and is not a directory
func fileExists(filename string) bool {
	info, err := os.Stat(filename)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// ListProfiles returns the profile names in sorted order.
func (c *Config) ListProfiles() []string {
	profiles := make([]string, 0, len(c.Profiles))
	for name := range c.Profiles {
		profiles = append(profiles, name)
	}
	sort.Strings(profiles)
	return profiles
}

// GetProfile returns a profile by name, or nil if not found
func (c *Config) GetProfile(name string) *Profile {
	if profile, exists := c.Profiles[name]; exists {
		return &profile
	}
	return nil
}

// ApplyProfile copies the profile's settings over the defaults.
func (c *Config) ApplyProfile(name string) error {
	p := c.GetProfile(name)
	if p == nil {
		available := strings.Join(c.ListProfiles(), ", ")
		if available == "" {
			available = "none"
		}
		return fmt.Errorf("profile '%s' not found. Available profiles: %s", name, available)
	}

	if p.Format != "" {
		c.Defaults.Format = p.Format
	}
	if p.Mode != "" {
		c.Defaults.Mode = p.Mode
	}
	if p.Source != "" {
		c.Defaults.Source = p.Source
	}

	o := p.Extraction
	e := &c.Extraction
	if o.IdentifierPrefix != nil {
		e.IdentifierPrefix = *o.IdentifierPrefix
	}
	if o.IdentifierPattern != nil {
		e.IdentifierPattern = *o.IdentifierPattern
	}
	if o.StrictPattern != nil {
		e.StrictPattern = *o.StrictPattern
	}
	if o.NameExclusionPattern != nil {
		e.NameExclusionPattern = *o.NameExclusionPattern
	}
	if o.ConfidenceThreshold != nil {
		e.ConfidenceThreshold = *o.ConfidenceThreshold
	}
	if o.LineTolerance != nil {
		e.LineTolerance = *o.LineTolerance
	}
	if o.MaxGapFactor != nil {
		e.MaxGapFactor = *o.MaxGapFactor
	}
	if o.MaxNameTokens != nil {
		e.MaxNameTokens = *o.MaxNameTokens
	}
	if o.NormalizeWidth != nil {
		e.NormalizeWidth = *o.NormalizeWidth
	}
	if o.DedupPerPage != nil {
		e.DedupPerPage = *o.DedupPerPage
	}

	return ValidateConfig(c)
}

// ValidateConfig checks values that can be verified without compiling
// patterns. Pattern errors surface from extractor.New.
func ValidateConfig(config *Config) error {
	switch config.Defaults.Mode {
	case "", ModeMerge, ModeSplit:
	default:
		return fmt.Errorf("invalid mode '%s': must be '%s' or '%s'", config.Defaults.Mode, ModeMerge, ModeSplit)
	}

	if config.Defaults.Workers < 0 {
		return fmt.Errorf("invalid workers %d: must not be negative", config.Defaults.Workers)
	}

	if t := config.Extraction.ConfidenceThreshold; t < 0 || t > 1 {
		return fmt.Errorf("invalid confidence_threshold %v: must be within [0, 1]", t)
	}

	if config.Web.MaxUploadMB < 0 {
		return fmt.Errorf("invalid max_upload_mb %d", config.Web.MaxUploadMB)
	}

	if err := paths.ValidatePath(config.Defaults.Output); err != nil {
		return fmt.Errorf("invalid output directory: %w", err)
	}

	return nil
}

// LoadConfigOrDefault loads configuration from configFile (or searches standard locations
// when configFile is empty). If loading fails, it returns a default configuration.
// This is the shared helper used by both the CLI and the web server.
func LoadConfigOrDefault(configFile string) *Config {
	configPath := configFile
	if configPath == "" {
		configPath = FindConfigFile()
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		cfg = Default()
	}
	return cfg
}
