package grocery

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/zombor/grocery-saver/internal/scanning"
)

const (
	// maxUploadSize handles high-resolution phone photos; it matches the Azure Read limit
	maxUploadSize = int64(50 << 20)
	maxJSONSize   = int64(1 << 20)
)

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

func writeJSONError(w http.ResponseWriter, code int, message string) {
	setCORSHeaders(w)
	writeJSON(w, code, map[string]string{"error": message})
}

// writeLookupError answers 404 with notFound for missing records and logs
// anything else as a 500
func writeLookupError(w http.ResponseWriter, err error, notFound, action string) {
	if errors.Is(err, ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
		writeJSONError(w, http.StatusNotFound, notFound)
		return
	}
	slog.Error("Error "+action, "error", err)
	writeJSONError(w, http.StatusInternalServerError, "Internal server error")
}

// writeServiceError maps service errors onto HTTP statuses; fallback is used
// for errors the client cannot fix, typically an upstream provider failure
func writeServiceError(w http.ResponseWriter, err error, fallback int) {
	var invalid *scanning.InvalidJSONError
	switch {
	case errors.As(err, &invalid):
		setCORSHeaders(w)
		writeJSON(w, http.StatusBadGateway, map[string]string{
			"error": "AI did not return valid JSON",
			"raw":   invalid.Raw,
		})
	case errors.Is(err, ErrNotFound):
		writeJSONError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, ErrEmptyList), errors.Is(err, ErrUnsupportedType):
		writeJSONError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, scanning.ErrNoText), errors.Is(err, scanning.ErrReadFailed):
		writeJSONError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, scanning.ErrReadTimeout), errors.Is(err, context.DeadlineExceeded):
		writeJSONError(w, http.StatusGatewayTimeout, err.Error())
	default:
		writeJSONError(w, fallback, err.Error())
	}
}

// handleIndex serves the HTML interface
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

// handleStaticCSS serves the CSS file
func (s *Server) handleStaticCSS(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "text/css")
	w.Write(appCSS)
}

// handleStaticJS serves the JavaScript file
func (s *Server) handleStaticJS(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/javascript")
	w.Write(appJS)
}

// handleControllers serves controller JavaScript files with correct MIME type
func (s *Server) handleControllers(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)

	fileServer := http.FileServer(http.FS(getControllersFS()))

	if strings.HasSuffix(r.URL.Path, ".js") {
		w.Header().Set("Content-Type", "application/javascript")
	}
	// Strip the /static/controllers/ prefix to get just the filename
	r.URL.Path = strings.TrimPrefix(r.URL.Path, "/static/controllers/")
	if r.URL.Path == "" {
		r.URL.Path = "/"
	}
	fileServer.ServeHTTP(w, r)
}

// handleAnalyzeText classifies a manually entered grocery list
func (s *Server) handleAnalyzeText(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}

	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONSize)).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	} else {
		req.Text = r.FormValue("text")
	}

	analysis, err := s.service.AnalyzeText(r.Context(), req.Text)
	if err != nil {
		slog.Error("Error analyzing grocery list", "error", err)
		writeServiceError(w, err, http.StatusBadGateway)
		return
	}

	writeJSON(w, http.StatusCreated, analysis)
}

// handleListAnalyses returns all analyses, newest first
func (s *Server) handleListAnalyses(w http.ResponseWriter, r *http.Request) {
	analyses, err := s.service.ListAnalyses()
	if err != nil {
		slog.Error("Error listing analyses", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	// Ensure we always return an array, not nil
	if analyses == nil {
		analyses = []*Analysis{}
	}
	writeJSON(w, http.StatusOK, analyses)
}

// handleGetAnalysis returns a single analysis
func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	analysis, err := s.service.GetAnalysis(id)
	if err != nil {
		writeLookupError(w, err, "Analysis not found", "getting analysis")
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

// handleDeleteAnalysis deletes an analysis and its receipt
func (s *Server) handleDeleteAnalysis(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.service.DeleteAnalysis(id); err != nil {
		writeLookupError(w, err, "Analysis not found", "deleting analysis "+id)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleGetReport renders an analysis as HTML, or markdown with ?format=md
func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if format := r.URL.Query().Get("format"); format == "md" || format == "markdown" {
		report, err := s.service.Report(id)
		if err != nil {
			writeLookupError(w, err, "Analysis not found", "rendering report "+id)
			return
		}
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		io.WriteString(w, report)
		return
	}

	page, err := s.service.ReportHTML(id)
	if err != nil {
		writeLookupError(w, err, "Analysis not found", "rendering report "+id)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(page)
}

// handleHistory returns totals over all analyses
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.service.History()
	if err != nil {
		slog.Error("Error building history", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, history)
}

// detectContentType picks the upload's MIME type from the part header, the
// file extension, or finally by sniffing the bytes
func detectContentType(declared, filename string, data []byte) string {
	contentType := normalizeContentType(declared)
	if contentType != "" && contentType != "application/octet-stream" {
		return contentType
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".pdf":
		return "application/pdf"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	}

	return normalizeContentType(http.DetectContentType(data))
}

// handleScanReceipt handles receipt upload and OCR
func (s *Server) handleScanReceipt(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize+(1<<20))
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		errorMsg := "Error parsing form"
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			errorMsg = "File is too large. Maximum size is 50MB. Please compress or resize your image."
		}
		writeJSONError(w, http.StatusBadRequest, errorMsg)
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		slog.Error("Error getting file from form", "error", err)
		errorMsg := "No file provided"
		if errors.Is(err, http.ErrMissingFile) {
			errorMsg = "No file was selected. Please choose a file to upload."
		}
		writeJSONError(w, http.StatusBadRequest, errorMsg)
		return
	}
	defer f.Close()

	if header.Size > maxUploadSize {
		writeJSONError(w, http.StatusBadRequest, "File is too large. Maximum size is 50MB. Please compress or resize your image.")
		return
	}

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		writeJSONError(w, http.StatusInternalServerError, "Error reading file. Please try again.")
		return
	}

	contentType := detectContentType(header.Header.Get("Content-Type"), header.Filename, data)

	scan, err := s.service.ScanReceipt(r.Context(), header.Filename, data, contentType)
	if err != nil {
		slog.Error("Error scanning receipt", "filename", header.Filename, "error", err)
		writeServiceError(w, err, http.StatusBadGateway)
		return
	}

	writeJSON(w, http.StatusCreated, scan)
}

// handleGetScan returns a single receipt scan
func (s *Server) handleGetScan(w http.ResponseWriter, r *http.Request) {
	scan, err := s.service.GetScan(r.PathValue("id"))
	if err != nil {
		writeLookupError(w, err, "Receipt not found", "getting receipt")
		return
	}
	writeJSON(w, http.StatusOK, scan)
}

// handleGetScanFile returns the uploaded file for a receipt
func (s *Server) handleGetScanFile(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := s.service.GetScanFile(r.PathValue("id"))
	if err != nil {
		writeLookupError(w, err, "File not found", "getting receipt file")
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Write(data)
}

// handleDeleteScan deletes a receipt scan, its file and its analysis
func (s *Server) handleDeleteScan(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.service.DeleteScan(id); err != nil {
		writeLookupError(w, err, "Receipt not found", "deleting receipt "+id)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleAnalyzeScan classifies a scanned receipt, optionally with user-edited text
func (s *Server) handleAnalyzeScan(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONSize)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	analysis, err := s.service.AnalyzeScan(r.Context(), r.PathValue("id"), req.Text)
	if err != nil {
		slog.Error("Error analyzing receipt", "id", r.PathValue("id"), "error", err)
		writeServiceError(w, err, http.StatusBadGateway)
		return
	}

	writeJSON(w, http.StatusCreated, analysis)
}
