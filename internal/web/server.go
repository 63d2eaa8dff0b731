// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"rollcall/internal/formatters"
	_ "rollcall/internal/formatters/csv"
	_ "rollcall/internal/formatters/json"
	_ "rollcall/internal/formatters/text"
	_ "rollcall/internal/formatters/yaml"
	"rollcall/internal/observability"
	"rollcall/internal/parallel"
	"rollcall/internal/roster"
	"rollcall/internal/version"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// maxFileSize bounds a single uploaded file.
const maxFileSize = 100 << 20

// portAttempts is how many consecutive ports Start tries.
const portAttempts = 10

// Options configures the server.
type Options struct {
	Port           string
	AllowedOrigins []string
	MaxUploadMB    int
	// StaticDir, when set, is served at / (a built front end).
	StaticDir string
	Processor *parallel.ParallelProcessor
	Observer  *observability.StandardObserver
}

// WebServer represents the web server instance
type WebServer struct {
	opts   Options
	server *http.Server
}

// AnalyzeResponse is returned by /api/analyze.
type AnalyzeResponse struct {
	Success bool             `json:"success"`
	Results []roster.Student `json:"results"`
	Files   []FileStatus     `json:"files,omitempty"`
	Errors  []string         `json:"errors,omitempty"`
	Summary *roster.Summary  `json:"summary,omitempty"`
	Error   string           `json:"error,omitempty"`
}

// FileStatus reports how one uploaded file was processed.
type FileStatus struct {
	Name     string `json:"name"`
	Students int    `json:"students"`
	Pages    int    `json:"pages"`
	Error    string `json:"error,omitempty"`
}

// ExportRequest is the body of the export endpoints.
type ExportRequest struct {
	Students []roster.Student `json:"students"`
}

// NewWebServer creates a new web server instance
func NewWebServer(opts Options) *WebServer {
	if opts.Port == "" {
		opts.Port = "8080"
	}
	if opts.MaxUploadMB <= 0 {
		opts.MaxUploadMB = 32
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	return &WebServer{opts: opts}
}

// Handler builds the router.
func (ws *WebServer) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: ws.opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))

	r.Get("/health", ws.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/analyze", ws.handleAnalyze)
		r.Post("/export", ws.handleExport)
		r.Post("/export/download", ws.handleExportDownload)
	})

	if ws.opts.StaticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(ws.opts.StaticDir)))
	}
	return r
}

// Start listens on the configured port, or on one of the following ports
// when it is busy, and serves until ctx is done.
func (ws *WebServer) Start(ctx context.Context) error {
	listener, port, err := ws.listen()
	if err != nil {
		return err
	}

	ws.server = ws.createSecureServer()
	fmt.Printf("rollcall web API started on port %s\n", port)
	fmt.Printf("Local:     http://localhost:%s\n", port)

	errCh := make(chan error, 1)
	go func() {
		errCh <- ws.server.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return ws.server.Shutdown(shutdownCtx)
	}
}

func (ws *WebServer) listen() (net.Listener, string, error) {
	base, err := parsePort(ws.opts.Port)
	if err != nil {
		return nil, "", err
	}

	var lastError error
	for i := 0; i < portAttempts; i++ {
		port := fmt.Sprintf("%d", base+i)
		listener, err := net.Listen("tcp", ":"+port)
		if err == nil {
			return listener, port, nil
		}
		lastError = err
		if i == 0 {
			fmt.Printf("Port %s is not available, trying alternative ports...\n", port)
		}
	}
	return nil, "", fmt.Errorf("could not find an available port in range %d-%d: %w", base, base+portAttempts-1, lastError)
}

func parsePort(port string) (int, error) {
	var p int
	if _, err := fmt.Sscanf(port, "%d", &p); err != nil || p <= 0 || p > 65535 {
		return 0, fmt.Errorf("invalid port '%s'", port)
	}
	return p, nil
}

// Stop stops the web server
func (ws *WebServer) Stop() error {
	if ws.server != nil {
		return ws.server.Close()
	}
	return nil
}

func (ws *WebServer) createSecureServer() *http.Server {
	return &http.Server{
		Handler:           ws.Handler(),
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       2 * time.Minute,
		// OCR of a batch of uploads can take a while
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}
}

// handleHealth provides a health check endpoint with version information
func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	versionInfo := version.Full()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "rollcall-web",
		"version":   versionInfo["version"],
		"build_info": map[string]interface{}{
			"version":    versionInfo["version"],
			"commit":     versionInfo["commit"],
			"build_date": versionInfo["buildDate"],
			"go_version": versionInfo["goVersion"],
			"platform":   versionInfo["platform"],
		},
	})
}

// handleAnalyze runs OCR and extraction on the uploaded sheets. A file that
// fails is reported in Errors and does not fail the request.
func (ws *WebServer) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if ws.opts.Processor == nil {
		ws.sendErrorWithStatus(w, "Extraction is not configured", http.StatusServiceUnavailable)
		return
	}

	limit := int64(ws.opts.MaxUploadMB) << 20
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		ws.sendError(w, "Failed to parse form data")
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		ws.sendError(w, "No files uploaded")
		return
	}

	tempDir, err := os.MkdirTemp("", "rollcall_upload_*")
	if err != nil {
		ws.sendErrorWithStatus(w, "Failed to create temporary directory", http.StatusInternalServerError)
		return
	}
	defer os.RemoveAll(tempDir)

	paths := make([]string, 0, len(files))
	for i, fh := range files {
		path, err := saveUpload(fh, tempDir, i)
		if err != nil {
			ws.sendError(w, err.Error())
			return
		}
		paths = append(paths, path)
	}

	results, _, err := ws.opts.Processor.ProcessFiles(r.Context(), paths, nil)
	if err != nil {
		ws.sendErrorWithStatus(w, fmt.Sprintf("Processing interrupted: %v", err), http.StatusServiceUnavailable)
		return
	}

	resp := AnalyzeResponse{Success: true, Results: roster.Flatten(results)}
	if resp.Results == nil {
		resp.Results = []roster.Student{}
	}
	for i, res := range results {
		status := FileStatus{Name: files[i].Filename, Students: len(res.Students), Pages: res.Pages}
		if res.Error != "" {
			status.Error = res.Error
			resp.Errors = append(resp.Errors, fmt.Sprintf("%s: %s", sanitizeUserInput(files[i].Filename, 200), res.Error))
		}
		resp.Files = append(resp.Files, status)
	}
	summary := roster.Summarize(results)
	resp.Summary = &summary

	ws.opts.Observer.LogOperation(observability.StandardObservabilityData{
		Component:   "web",
		Operation:   "analyze",
		RequestID:   middleware.GetReqID(r.Context()),
		Success:     true,
		RecordCount: summary.Students,
		Metadata:    map[string]interface{}{"files": summary.Files, "failed": summary.Failed},
	})

	writeJSON(w, http.StatusOK, resp)
}

// saveUpload copies an upload into its own directory so that the stored
// file keeps the original base name, which becomes the records' file_name.
func saveUpload(fh *multipart.FileHeader, tempDir string, index int) (string, error) {
	name := filepath.Base(filepath.Clean("/" + strings.ReplaceAll(fh.Filename, "\\", "/")))
	if name == "/" || name == "." {
		return "", fmt.Errorf("invalid file name %q", sanitizeUserInput(fh.Filename, 200))
	}

	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open file %s: %v", sanitizeUserInput(fh.Filename, 200), err)
	}
	defer src.Close()

	dir := filepath.Join(tempDir, fmt.Sprintf("%d", index))
	if err := os.Mkdir(dir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create temporary file: %v", err)
	}
	path := filepath.Join(dir, name)
	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file: %v", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, io.LimitReader(src, maxFileSize)); err != nil {
		return "", fmt.Errorf("failed to copy file content: %v", err)
	}
	return path, nil
}

// handleExport returns the CSV text of the posted students, without BOM.
func (ws *WebServer) handleExport(w http.ResponseWriter, r *http.Request) {
	req, ok := ws.decodeExport(w, r)
	if !ok {
		return
	}

	content, err := formatters.Export("csv", req.Students, formatters.FormatterOptions{})
	if err != nil {
		ws.sendErrorWithStatus(w, fmt.Sprintf("Failed to format results: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"csv": content})
}

// handleExportDownload streams the posted students as an attachment. CSV
// is the default; ?format= selects any registered formatter.
func (ws *WebServer) handleExportDownload(w http.ResponseWriter, r *http.Request) {
	req, ok := ws.decodeExport(w, r)
	if !ok {
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}
	if _, exists := formatters.Get(format); !exists {
		ws.sendError(w, fmt.Sprintf("Unsupported format '%s'. Available formats: %s", sanitizeUserInput(format, 50), strings.Join(formatters.List(), ", ")))
		return
	}

	content, mimeType, filename, err := formatters.ExportForWeb(format, req.Students, formatters.FormatterOptions{
		ByteOrderMark: format == "csv",
		NoColor:       true,
	})
	if err != nil {
		ws.sendErrorWithStatus(w, fmt.Sprintf("Failed to format results: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, content)
}

func (ws *WebServer) decodeExport(w http.ResponseWriter, r *http.Request) (ExportRequest, bool) {
	var req ExportRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 10<<20))
	if err := dec.Decode(&req); err != nil {
		ws.sendError(w, "Invalid JSON in request body")
		return req, false
	}
	return req, true
}

// sendError sends an error response with enhanced error information
func (ws *WebServer) sendError(w http.ResponseWriter, message string) {
	ws.sendErrorWithStatus(w, message, http.StatusBadRequest)
}

// sendErrorWithStatus sends an error response with a specific HTTP status code
func (ws *WebServer) sendErrorWithStatus(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, statusCode, AnalyzeResponse{
		Success: false,
		Error:   enhanceErrorMessage(message, statusCode),
	})
}

// enhanceErrorMessage adds troubleshooting information to error messages
func enhanceErrorMessage(message string, statusCode int) string {
	switch {
	case strings.Contains(message, "Failed to parse form data"):
		return message + "\nTroubleshooting: Upload sheets as multipart/form-data using the 'files' field name"
	case strings.Contains(message, "No files uploaded"):
		return message + "\nTroubleshooting: Select one or more scanned sheets before submitting"
	case statusCode == http.StatusInternalServerError:
		return message + "\nTroubleshooting: Check server logs for detailed error information"
	default:
		return message
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.Encode(v)
}

// sanitizeUserInput removes dangerous characters from user input for safe
// output and caps it at maxLength runes
func sanitizeUserInput(input string, maxLength int) string {
	sanitized := strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		switch r {
		case '<', '>', '"', '\'', '&':
			return -1
		}
		return r
	}, input)

	if runes := []rune(sanitized); len(runes) > maxLength {
		sanitized = string(runes[:maxLength]) + "..."
	}
	return sanitized
}
