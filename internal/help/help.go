// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package help

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
)

// SourceInfo describes an OCR source for the help output.
type SourceInfo struct {
	Name        string   // Name used with --source (e.g., "tesseract")
	Description string   // One line summary
	Extensions  []string // File extensions the source reads
	Manual      bool     // Only used when selected with --source
	Notes       string   // Requirements such as build tags or credentials
}

// System manages help content for the application
type System struct {
	sources map[string]SourceInfo
	formats []string
	noColor bool
	colors  map[string]*color.Color
	out     io.Writer
}

// NewSystem creates a new help system
func NewSystem(noColor bool) *System {
	if noColor {
		color.NoColor = true
	}

	return &System{
		sources: make(map[string]SourceInfo),
		noColor: noColor,
		out:     os.Stdout,
		colors: map[string]*color.Color{
			"title":    color.New(color.FgWhite, color.Bold),
			"subtitle": color.New(color.FgCyan, color.Bold),
			"header":   color.New(color.FgYellow, color.Bold),
			"item":     color.New(color.FgGreen),
			"emphasis": color.New(color.FgHiWhite, color.Bold),
			"negative": color.New(color.FgRed),
			"warning":  color.New(color.FgYellow),
			"example":  color.New(color.FgCyan),
		},
	}
}

// SetOutput redirects help output, mostly for tests.
func (h *System) SetOutput(w io.Writer) {
	h.out = w
}

// RegisterSource adds an OCR source to the help content.
func (h *System) RegisterSource(info SourceInfo) {
	h.sources[strings.ToLower(info.Name)] = info
}

// SetFormats records the available output formats.
func (h *System) SetFormats(formats []string) {
	h.formats = append([]string(nil), formats...)
}

// ShowGeneralHelp displays general help information
func (h *System) ShowGeneralHelp() {
	out := h.out
	h.colors["title"].Fprintln(out, "rollcall - attendance sheet extraction")
	fmt.Fprintln(out, "======================================")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Reads scanned attendance sheets, finds student identifiers and the names")
	fmt.Fprintln(out, "written next to them, and writes the list of students found.")
	fmt.Fprintln(out)

	h.colors["header"].Fprintln(out, "USAGE:")
	fmt.Fprintln(out, "  rollcall [options] <file|dir|glob>...")
	fmt.Fprintln(out, "  rollcall --web [--port <port>]")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "  Inputs may be images (jpg, png, bmp, tiff), PDFs or token files (json).")
	fmt.Fprintln(out, "  Directories are read recursively.")
	fmt.Fprintln(out)

	h.colors["header"].Fprintln(out, "OPTIONS:")
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  --output, -o\t<dir>\tDirectory for the result files (default: results)")
	fmt.Fprintln(w, "  --merge\t\tWrite one attendance_list file for all sheets")
	fmt.Fprintln(w, "  --split\t\tWrite one <sheet>_result file per sheet")
	fmt.Fprintf(w, "  --format\t<format>\tOutput format: %s (default: csv)\n", h.formatList())
	fmt.Fprintln(w, "  --file-column\t\tAdd the file_name column to the output")
	fmt.Fprintln(w, "  --prefix\t<text>\tIdentifier prefix printed on the sheet (e.g. px-)")
	fmt.Fprintln(w, "  --pattern\t<regex>\tFull-format identifier pattern (filters matches when strict_pattern is set)")
	fmt.Fprintln(w, "  --exclude\t<regex>\tTokens matching this pattern are never part of a name")
	fmt.Fprintln(w, "  --threshold\t<0-1>\tMinimum OCR confidence of an identifier (default: 0.5)")
	fmt.Fprintln(w, "  --normalize-width\t\tFold full-width characters before matching")
	fmt.Fprintln(w, "  --source\t<name>\tOCR source to use, or auto to pick by file type (default: auto)")
	fmt.Fprintln(w, "  --workers\t<n>\tNumber of sheets read in parallel (default: CPU count, max 8)")
	fmt.Fprintln(w, "  --config\t<file>\tPath to configuration file (YAML)")
	fmt.Fprintln(w, "  --profile\t<name>\tProfile to apply from the configuration file")
	fmt.Fprintln(w, "  --list-profiles\t\tList profiles in the configuration file")
	fmt.Fprintln(w, "  --db-dsn\t<dsn>\tAlso store the records in PostgreSQL")
	fmt.Fprintln(w, "  --debug\t\tLog every step as JSON on stderr")
	fmt.Fprintln(w, "  --quiet\t\tSuppress progress output")
	fmt.Fprintln(w, "  --no-color\t\tDisable colored output")
	fmt.Fprintln(w, "  --web\t\tStart the web server instead of reading files")
	fmt.Fprintln(w, "  --port\t<port>\tPort for the web server (default: 8080)")
	fmt.Fprintln(w, "  --ui-dir\t<dir>\tBuilt front end served by the web server at /")
	fmt.Fprintln(w, "  --version\t\tShow version information")
	fmt.Fprintln(w, "  --help\t\tShow this help message")
	fmt.Fprintln(w, "  --help sources\t\tList the OCR sources")
	w.Flush()

	fmt.Fprintln(out)
	h.colors["header"].Fprintln(out, "EXAMPLES:")
	h.colors["example"].Fprintln(out, "  rollcall --prefix px- --merge scans/")
	h.colors["example"].Fprintln(out, "  rollcall --prefix px- --pattern '^px-\\d{7}$' --split 'sheets/*.pdf'")
	h.colors["example"].Fprintln(out, "  rollcall --profile lecture --format json sheet.png")
	h.colors["example"].Fprintln(out, "  rollcall --prefix px- --source textract sheet.pdf")
	h.colors["example"].Fprintln(out, "  rollcall --web --port 9000 --ui-dir ./frontend/dist")

	fmt.Fprintln(out)
	h.colors["header"].Fprintln(out, "CONFIGURATION:")
	fmt.Fprintln(out, "  Project config: rollcall.yaml or config.yaml (in current directory)")
	fmt.Fprintln(out, "  Default config: ~/.config/rollcall/config.yaml or ~/.rollcall.yaml")
	fmt.Fprintln(out, "  Environment: ROLLCALL_CONFIG_DIR, ROLLCALL_IDENTIFIER_PREFIX, ROLLCALL_IDENTIFIER_PATTERN,")
	fmt.Fprintln(out, "               ROLLCALL_CONFIDENCE_THRESHOLD, ROLLCALL_DATABASE_DSN")
}

// ShowSourcesHelp lists the registered OCR sources.
func (h *System) ShowSourcesHelp() {
	out := h.out
	h.colors["title"].Fprintln(out, "OCR Sources")
	fmt.Fprintln(out, "===========")
	fmt.Fprintln(out)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	h.colors["header"].Fprintln(w, "  SOURCE\tFILES\tDESCRIPTION")
	h.colors["header"].Fprintln(w, "  ------\t-----\t-----------")

	names := make([]string, 0, len(h.sources))
	for name := range h.sources {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		info := h.sources[name]
		desc := info.Description
		if info.Manual {
			desc += " (only with --source)"
		}
		fmt.Fprint(w, "  ")
		h.colors["emphasis"].Fprint(w, info.Name)
		fmt.Fprintf(w, "\t%s\t%s\n", strings.Join(info.Extensions, " "), desc)
	}
	w.Flush()

	fmt.Fprintln(out)
	fmt.Fprintln(out, "With --source auto the first source registered for a file type is used;")
	fmt.Fprintln(out, "a PDF without a text layer falls back to OCR of its embedded images.")
}

// ShowSourceHelp displays details for one source.
func (h *System) ShowSourceHelp(name string) bool {
	out := h.out
	info, ok := h.sources[strings.ToLower(name)]
	if !ok {
		h.colors["negative"].Fprintf(out, "Error: OCR source '%s' not found.\n", name)
		fmt.Fprintln(out, "Use 'rollcall --help sources' to see the available sources.")
		return false
	}

	h.colors["title"].Fprintf(out, "%s source\n", info.Name)
	fmt.Fprintln(out, strings.Repeat("=", len(info.Name)+7))
	fmt.Fprintln(out)
	fmt.Fprintln(out, info.Description)
	fmt.Fprintln(out)
	h.colors["header"].Fprintln(out, "FILES:")
	fmt.Fprintf(out, "  %s\n", strings.Join(info.Extensions, ", "))
	if info.Notes != "" {
		fmt.Fprintln(out)
		h.colors["header"].Fprintln(out, "REQUIREMENTS:")
		h.colors["warning"].Fprintf(out, "  %s\n", info.Notes)
	}
	return true
}

func (h *System) formatList() string {
	if len(h.formats) == 0 {
		return "csv"
	}
	return strings.Join(h.formats, ", ")
}
