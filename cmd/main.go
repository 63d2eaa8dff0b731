// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"rollcall/internal/config"
	"rollcall/internal/extractor"
	"rollcall/internal/formatters"
	"rollcall/internal/help"
	"rollcall/internal/observability"
	"rollcall/internal/ocr"
	"rollcall/internal/ocr/pdfimage"
	"rollcall/internal/ocr/pdftext"
	"rollcall/internal/ocr/sources"
	"rollcall/internal/ocr/tesseract"
	"rollcall/internal/ocr/textract"
	"rollcall/internal/ocr/tokenfile"
	"rollcall/internal/parallel"
	"rollcall/internal/paths"
	"rollcall/internal/roster"
	"rollcall/internal/security"
	"rollcall/internal/store"
	"rollcall/internal/version"
	"rollcall/internal/web"
	"rollcall/internal/writer"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"golang.org/x/term"
)

// configFlags holds command line flag values
type configFlags struct {
	output         string
	format         string
	source         string
	workers        int
	prefix         string
	pattern        string
	exclude        string
	threshold      float64
	normalizeWidth bool
	merge          bool
	split          bool
	fileColumn     bool
	debug          bool
	quiet          bool
	noColor        bool
	dbDSN          string
	port           string
	uiDir          string
}

// resolveConfiguration copies explicitly set flags over the loaded
// configuration. isSet reports whether a flag appeared on the command line.
func resolveConfiguration(cfg *config.Config, flags *configFlags, isSet func(string) bool) error {
	if flags.merge && flags.split {
		return fmt.Errorf("--merge and --split cannot be used together")
	}
	if flags.merge {
		cfg.Defaults.Mode = config.ModeMerge
	}
	if flags.split {
		cfg.Defaults.Mode = config.ModeSplit
	}

	if isSet("output") || isSet("o") {
		cfg.Defaults.Output = flags.output
	}
	if isSet("format") {
		cfg.Defaults.Format = flags.format
	}
	if isSet("source") {
		cfg.Defaults.Source = flags.source
	}
	if isSet("workers") {
		cfg.Defaults.Workers = flags.workers
	}
	if isSet("debug") {
		cfg.Defaults.Debug = flags.debug
	}
	if isSet("quiet") {
		cfg.Defaults.Quiet = flags.quiet
	}
	if isSet("no-color") {
		cfg.Defaults.NoColor = flags.noColor
	}

	if isSet("prefix") {
		cfg.Extraction.IdentifierPrefix = flags.prefix
	}
	if isSet("pattern") {
		cfg.Extraction.IdentifierPattern = flags.pattern
	}
	if isSet("exclude") {
		cfg.Extraction.NameExclusionPattern = flags.exclude
	}
	if isSet("threshold") {
		cfg.Extraction.ConfidenceThreshold = flags.threshold
	}
	if isSet("normalize-width") {
		cfg.Extraction.NormalizeWidth = flags.normalizeWidth
	}

	if isSet("db-dsn") {
		cfg.Database.DSN = flags.dbDSN
	}
	if isSet("port") {
		cfg.Web.Port = flags.port
	}

	if cfg.Defaults.Format == "" {
		cfg.Defaults.Format = "csv"
	}
	if _, ok := formatters.Get(cfg.Defaults.Format); !ok {
		return fmt.Errorf("unsupported format '%s'. Available formats: %s",
			cfg.Defaults.Format, strings.Join(formatters.List(), ", "))
	}

	return config.ValidateConfig(cfg)
}

// loadConfiguration loads the configuration file or returns default config
func loadConfiguration(configFile string) (*config.Config, string, error) {
	configPath := configFile
	if configPath == "" {
		configPath = config.FindConfigFile()
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		if configFile != "" {
			return nil, configPath, err
		}
		fmt.Fprintf(os.Stderr, "Warning: Error loading config file: %v\n", err)
		fmt.Fprintf(os.Stderr, "Using default configuration\n")
		cfg = config.Default()
	}
	return cfg, configPath, nil
}

// listProfiles prints the profiles of the loaded configuration
func listProfiles(out io.Writer, cfg *config.Config, configPath string) {
	if configPath == "" {
		fmt.Fprintln(out, "No configuration file found. No profiles available.")
		return
	}

	profiles := cfg.ListProfiles()
	if len(profiles) == 0 {
		fmt.Fprintln(out, "No profiles defined in configuration file.")
		return
	}

	fmt.Fprintln(out, "Available profiles:")
	for _, name := range profiles {
		profile := cfg.GetProfile(name)
		if profile != nil && profile.Description != "" {
			fmt.Fprintf(out, "  - %s: %s\n", name, profile.Description)
		} else {
			fmt.Fprintf(out, "  - %s\n", name)
		}
	}
}

// isFlagSet checks if a flag was explicitly set on the command line
func isFlagSet(name string) bool {
	found := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// isInteractive reports whether stdin is a terminal
func isInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// promptInputPath asks for the input when none was given on the command line.
func promptInputPath(in *bufio.Reader, out io.Writer) (string, error) {
	fmt.Fprintln(out, ">>> Please enter the path to the image(s) or folder:")
	fmt.Fprint(out, "Path: ")
	line, err := in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.Trim(strings.TrimSpace(line), `"'`), nil
}

// promptMode asks how results should be saved. Anything but "1" selects split.
func promptMode(in *bufio.Reader, out io.Writer) string {
	fmt.Fprintln(out, "\nProcessing complete.")
	fmt.Fprintln(out, "How would you like to save the results?")
	fmt.Fprintf(out, "1. Merge all into one file (%s)\n", writer.MergedBaseName)
	fmt.Fprintln(out, "2. Split into separate files per sheet")
	fmt.Fprint(out, "Select [1/2]: ")

	line, _ := in.ReadString('\n')
	if strings.TrimSpace(line) == "1" {
		return config.ModeMerge
	}
	return config.ModeSplit
}

// newHelpSystem describes the OCR sources of registry.
func newHelpSystem(noColor bool, registry *ocr.Registry) *help.System {
	h := help.NewSystem(noColor)
	h.SetFormats(formatters.List())

	descriptions := map[string]help.SourceInfo{
		tokenfile.Name: {Description: "Token files produced by an external OCR engine"},
		pdftext.Name:   {Description: "Words of the PDF text layer, confidence 1.0"},
		tesseract.Name: {Description: "Local Tesseract OCR of scanned images", Notes: "Build with -tags ocr and install libtesseract"},
		pdfimage.Name:  {Description: "Tesseract OCR of the images embedded in a scanned PDF", Notes: "Build with -tags ocr and install libtesseract"},
		textract.Name:  {Description: "Amazon Textract; files are sent to AWS", Manual: true, Notes: "AWS credentials and region (ocr.textract.region)"},
	}
	for _, name := range registry.List() {
		info := descriptions[name]
		info.Name = name
		if s, ok := registry.Get(name); ok {
			info.Extensions = s.Extensions()
		}
		h.RegisterSource(info)
	}
	return h
}

// printProgress renders a single progress line on stderr
func printProgress(completed, total int, currentFile string) {
	fmt.Fprintf(os.Stderr, "\rProcessing: %d/%d %-40.40s", completed, total, paths.BaseName(currentFile))
	if completed == total {
		fmt.Fprintln(os.Stderr)
	}
}

// saveToStore writes the run to PostgreSQL and returns the run id
func saveToStore(ctx context.Context, cfg *config.Config, students []roster.Student) (string, error) {
	s, err := store.Open(ctx, cfg.Database.DSN, cfg.Database.Table)
	if err != nil {
		return "", err
	}
	defer s.Close()

	if err := s.Migrate(ctx); err != nil {
		return "", err
	}

	runID := uuid.NewString()
	if err := s.SaveStudents(ctx, runID, students); err != nil {
		return "", err
	}
	return runID, nil
}

// handleWebMode validates web mode flags and starts the web server
func handleWebMode(ctx context.Context, cfg *config.Config, args []string, processor *parallel.ParallelProcessor, observer *observability.StandardObserver, uiDir string) error {
	if len(args) > 0 {
		return fmt.Errorf("--web flag cannot be used with file arguments\n"+
			"Web mode starts a server - use the web interface to upload files\n"+
			"Troubleshooting: Remove file arguments and access http://localhost:%s after startup", cfg.Web.Port)
	}
	for _, name := range []string{"output", "o", "merge", "split", "format", "db-dsn"} {
		if isFlagSet(name) {
			return fmt.Errorf("--%s cannot be used with --web", name)
		}
	}

	server := web.NewWebServer(web.Options{
		Port:           cfg.Web.Port,
		AllowedOrigins: cfg.Web.AllowedOrigins,
		MaxUploadMB:    int(cfg.Web.MaxUploadMB),
		StaticDir:      uiDir,
		Processor:      processor,
		Observer:       observer,
	})
	return server.Start(ctx)
}

func main() {
	os.Exit(run())
}

func run() int {
	flags := &configFlags{}
	flag.StringVar(&flags.output, "output", "results", "Directory for the result files")
	flag.StringVar(&flags.output, "o", "results", "Directory for the result files (shorthand)")
	flag.StringVar(&flags.format, "format", "", "Output format: csv, json, yaml, text (default: csv)")
	flag.StringVar(&flags.source, "source", "", "OCR source, or auto to select by file type (default: auto)")
	flag.IntVar(&flags.workers, "workers", 0, "Number of sheets read in parallel (default: CPU count)")
	flag.StringVar(&flags.prefix, "prefix", "", "Identifier prefix printed on the sheet")
	flag.StringVar(&flags.pattern, "pattern", "", "Full-format identifier pattern")
	flag.StringVar(&flags.exclude, "exclude", "", "Pattern of tokens never used as name parts")
	flag.Float64Var(&flags.threshold, "threshold", extractor.DefaultConfidenceThreshold, "Minimum OCR confidence of an identifier")
	flag.BoolVar(&flags.normalizeWidth, "normalize-width", false, "Fold full-width characters before matching")
	flag.BoolVar(&flags.merge, "merge", false, "Merge all results into one file")
	flag.BoolVar(&flags.split, "split", false, "Save a separate file for each sheet")
	flag.BoolVar(&flags.fileColumn, "file-column", false, "Add the file_name column to the output")
	flag.BoolVar(&flags.debug, "debug", false, "Enable debug logging")
	flag.BoolVar(&flags.quiet, "quiet", false, "Suppress progress output")
	flag.BoolVar(&flags.noColor, "no-color", false, "Disable colored output")
	flag.StringVar(&flags.dbDSN, "db-dsn", "", "PostgreSQL DSN to store the records in")
	flag.StringVar(&flags.port, "port", "8080", "Port for web server")
	flag.StringVar(&flags.uiDir, "ui-dir", "", "Directory of the built front end served in web mode")
	configFile := flag.String("config", "", "Path to configuration file (YAML)")
	profileName := flag.String("profile", "", "Profile name to use from config file")
	showProfiles := flag.Bool("list-profiles", false, "List available profiles in config file")
	webMode := flag.Bool("web", false, "Start web server mode instead of reading files")
	showVersion := flag.Bool("version", false, "Show version information")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: rollcall [options] <file|dir|glob>...")
		fmt.Fprintln(os.Stderr, "Run 'rollcall --help' for the list of options.")
	}
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Info())
		return 0
	}

	cfg, configPath, err := loadConfiguration(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if *showProfiles {
		listProfiles(os.Stdout, cfg, configPath)
		return 0
	}

	if *profileName != "" {
		if err := cfg.ApplyProfile(*profileName); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
	}

	if err := resolveConfiguration(cfg, flags, isFlagSet); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	interactive := isInteractive()
	noColor := cfg.Defaults.NoColor || !term.IsTerminal(int(os.Stdout.Fd()))
	if noColor {
		color.NoColor = true
	}

	var observer *observability.StandardObserver
	switch {
	case cfg.Defaults.Debug:
		observer = observability.NewDebugObserver(os.Stderr).StandardObserver
	case cfg.Defaults.Quiet:
		observer = observability.NewStandardObserver(observability.ObservabilityOff, os.Stderr)
	default:
		observer = observability.NewStandardObserver(observability.ObservabilityMetrics, os.Stderr)
	}

	registry := sources.NewRegistry(cfg.OCR, observer)

	if *showHelp {
		h := newHelpSystem(noColor, registry)
		if topic := flag.Arg(0); topic != "" {
			if topic == "sources" {
				h.ShowSourcesHelp()
				return 0
			}
			if !h.ShowSourceHelp(topic) {
				return 1
			}
			return 0
		}
		h.ShowGeneralHelp()
		return 0
	}

	ext, err := extractor.New(cfg.Extraction)
	if err != nil {
		var cfgErr *extractor.ConfigurationError
		if errors.As(err, &cfgErr) {
			fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
			fmt.Fprintln(os.Stderr, "Set the identifier prefix with --prefix, ROLLCALL_IDENTIFIER_PREFIX or extraction.identifier_prefix")
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}

	if src := cfg.Defaults.Source; src != "" && src != ocr.AutoSource {
		if _, ok := registry.Get(src); !ok {
			fmt.Fprintf(os.Stderr, "Error: unknown OCR source '%s'. Available sources: %s\n", src, strings.Join(registry.List(), ", "))
			return 1
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	processor := parallel.NewParallelProcessor(cfg.Defaults.Workers, registry, ext, cfg.Defaults.Source, observer)

	if *webMode {
		if err := handleWebMode(ctx, cfg, flag.Args(), processor, observer, flags.uiDir); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	stdin := bufio.NewReader(os.Stdin)

	inputs := flag.Args()
	if len(inputs) == 0 {
		if !interactive {
			fmt.Fprintln(os.Stderr, "Error: no input given. Usage: rollcall [options] <file|dir|glob>...")
			return 1
		}
		path, err := promptInputPath(stdin, os.Stdout)
		if err != nil || path == "" {
			fmt.Fprintln(os.Stderr, "Error: no input given")
			return 1
		}
		inputs = []string{path}
	}

	accepts := func(path string) bool {
		return registry.Accepts(cfg.Defaults.Source, path)
	}
	var files []string
	for _, input := range inputs {
		collected, err := paths.CollectInputs(input, accepts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		for _, skipped := range collected.Skipped {
			fmt.Fprintf(os.Stderr, "Skipping %s: %s\n", skipped.Path, skipped.Reason)
		}
		files = append(files, collected.Files...)
	}

	if len(files) == 0 {
		fmt.Println("No valid image files found.")
		return 0
	}

	quiet := cfg.Defaults.Quiet
	if !quiet {
		fmt.Printf("Found %d files to process.\n", len(files))
	}

	var progress parallel.ProgressCallback
	if !quiet && term.IsTerminal(int(os.Stderr.Fd())) {
		progress = printProgress
	}

	results, stats, err := processor.ProcessFiles(ctx, files, progress)
	if err != nil {
		fmt.Fprintf(os.Stderr, "\nError: %v\n", err)
		return 1
	}

	for _, r := range results {
		if r.Error != "" {
			color.New(color.FgRed).Fprintf(os.Stderr, "Error processing %s: %s\n", r.SourceFile, r.Error)
		}
	}

	mode := cfg.Defaults.Mode
	if mode == "" {
		mode = config.ModeMerge
		if interactive {
			mode = promptMode(stdin, os.Stdout)
		}
	}

	w, err := writer.New(cfg.Defaults.Output, cfg.Defaults.Format, flags.fileColumn, observer)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	students := roster.Flatten(results)
	if mode == config.ModeMerge {
		path, err := w.WriteMerged(students)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		fmt.Printf("saved to %s\n", path)
	} else {
		written, err := w.WriteSplit(results)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		fmt.Printf("Saved %d %s files to %s\n", len(written), strings.ToUpper(cfg.Defaults.Format), cfg.Defaults.Output)
	}

	if cfg.Database.DSN != "" {
		runID, err := saveToStore(ctx, cfg, students)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to store records: %v\n", err)
			return 1
		}
		if !quiet {
			fmt.Printf("Stored %d records in %s as run %s\n", len(students), security.MaskDSN(cfg.Database.DSN), runID)
		}
	}

	summary := roster.Summarize(results)
	if !quiet {
		fmt.Printf("%d students from %d files (%d without a name) in %v\n",
			summary.Students, summary.Files, summary.Unnamed, stats.TotalDuration.Round(time.Millisecond))
	}
	if summary.Failed > 0 {
		return 1
	}
	return 0
}
