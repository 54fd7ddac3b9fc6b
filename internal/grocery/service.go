package grocery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zombor/grocery-saver/internal/scanning"
)

var (
	// ErrEmptyList is returned when there is nothing to analyze
	ErrEmptyList = errors.New("please enter your grocery list")
	// ErrUnsupportedType is returned for uploads that are not an image or PDF
	ErrUnsupportedType = errors.New("unsupported file type. Supported formats: JPG, PNG, PDF, HEIC, HEIF")
)

const (
	// DefaultCurrency is the label printed in front of amounts
	DefaultCurrency = "Rs."
	// DefaultOCRTimeout bounds a whole OCR read, including provider polling
	DefaultOCRTimeout = 2 * time.Minute
)

var supportedContentTypes = map[string]bool{
	"image/jpeg":      true,
	"image/jpg":       true,
	"image/png":       true,
	"application/pdf": true,
	"image/heic":      true,
	"image/heif":      true,
}

// IDGenerator generates unique IDs for scans and analyses
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// defaultIDGenerator generates random UUIDs
type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	return uuid.NewString()
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service handles grocery analyses and receipt scans
type Service struct {
	db          DB
	reader      scanning.Reader
	classifier  scanning.Classifier
	storage     Storage
	idGenerator IDGenerator
	timeSource  TimeSource
	currency    string
	ocrTimeout  time.Duration

	// mu guards the scan/analysis links across AnalyzeScan and the deletes
	mu sync.Mutex
}

// NewService creates a new Service with default ID generator and time source
func NewService(db DB, reader scanning.Reader, classifier scanning.Classifier, storage Storage) *Service {
	return NewServiceWithDeps(db, reader, classifier, storage, &defaultIDGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, reader scanning.Reader, classifier scanning.Classifier, storage Storage, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		db:          db,
		reader:      reader,
		classifier:  classifier,
		storage:     storage,
		idGenerator: idGen,
		timeSource:  timeSrc,
		currency:    DefaultCurrency,
		ocrTimeout:  DefaultOCRTimeout,
	}
}

// WithCurrency sets the currency label stored on new analyses
func (s *Service) WithCurrency(currency string) *Service {
	if currency != "" {
		s.currency = currency
	}
	return s
}

// WithOCRTimeout sets the deadline for reading a single receipt
func (s *Service) WithOCRTimeout(timeout time.Duration) *Service {
	if timeout > 0 {
		s.ocrTimeout = timeout
	}
	return s
}

// Currency returns the configured currency label
func (s *Service) Currency() string {
	return s.currency
}

// sanitizeFilename cleans up a filename by removing special characters and truncating length
func sanitizeFilename(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))

	// Remove special characters, keep only alphanumeric, spaces, hyphens, and underscores
	reg := regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	base = reg.ReplaceAllString(base, "")

	reg = regexp.MustCompile(`\s+`)
	base = strings.TrimSpace(reg.ReplaceAllString(base, " "))

	maxLen := 50
	if len(base) > maxLen {
		base = base[:maxLen]
	}
	if base == "" {
		base = "receipt"
	}

	reg = regexp.MustCompile(`[^a-z0-9.]`)
	return base + reg.ReplaceAllString(ext, "")
}

// AnalyzeText classifies a manually entered grocery list and saves the analysis
func (s *Service) AnalyzeText(ctx context.Context, text string) (*Analysis, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyList
	}

	now := s.timeSource.Now()
	analysis, err := s.classify(ctx, text)
	if err != nil {
		return nil, err
	}
	analysis.ID = s.idGenerator.Generate()
	analysis.Source = SourceText
	analysis.CreatedAt = now
	analysis.UpdatedAt = now

	if err := s.db.SaveAnalysis(analysis); err != nil {
		return nil, fmt.Errorf("saving analysis: %w", err)
	}
	return analysis, nil
}

// classify runs the classifier and builds an unsaved analysis
func (s *Service) classify(ctx context.Context, text string) (*Analysis, error) {
	classification, err := s.classifier.Classify(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("classifying items: %w", err)
	}

	items := itemsFromClassification(classification)
	suggestions := classification.Suggestions
	if suggestions == nil {
		suggestions = []string{}
	}

	return &Analysis{
		Input:       text,
		Items:       items,
		Suggestions: suggestions,
		Summary:     Summarize(items),
		Currency:    s.currency,
	}, nil
}

// ScanReceipt stores an uploaded receipt, reads it with OCR, cleans the text and saves the scan
func (s *Service) ScanReceipt(ctx context.Context, filename string, data []byte, contentType string) (*Scan, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("receipt file is empty")
	}
	contentType = normalizeContentType(contentType)
	if !supportedContentTypes[contentType] {
		return nil, fmt.Errorf("%w (got %s)", ErrUnsupportedType, contentType)
	}

	id := s.idGenerator.Generate()
	now := s.timeSource.Now()

	// Sanitize filename to clean up phone-generated long filenames
	savedPath, err := s.storage.Save(fmt.Sprintf("%s_%s", id, sanitizeFilename(filename)), data)
	if err != nil {
		return nil, fmt.Errorf("saving file: %w", err)
	}

	rawText, err := s.readText(ctx, data, contentType)
	if err != nil {
		slog.Error("Failed to read receipt",
			"filename", filename,
			"content_type", contentType,
			"file_size", len(data),
			"error", err,
		)
		s.removeFile(savedPath)
		return nil, fmt.Errorf("reading receipt: %w", err)
	}

	cleaned, err := s.classifier.CleanText(ctx, rawText)
	if err != nil {
		slog.Error("Failed to clean receipt text", "filename", filename, "error", err)
		s.removeFile(savedPath)
		return nil, fmt.Errorf("cleaning receipt text: %w", err)
	}

	scan := &Scan{
		ID:          id,
		Filename:    savedPath,
		ContentType: contentType,
		RawText:     rawText,
		CleanedText: cleaned,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.db.SaveScan(scan); err != nil {
		s.removeFile(savedPath)
		return nil, fmt.Errorf("saving scan to database: %w", err)
	}

	return scan, nil
}

func (s *Service) readText(ctx context.Context, data []byte, contentType string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.ocrTimeout)
	defer cancel()

	text, err := s.reader.ReadText(ctx, data, contentType)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(err, scanning.ErrReadTimeout) {
		return "", fmt.Errorf("%w after %s: %w", scanning.ErrReadTimeout, s.ocrTimeout, err)
	}
	return text, err
}

// normalizeContentType lowercases a MIME type and drops any parameters
func normalizeContentType(contentType string) string {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = strings.TrimSpace(contentType[:i])
	}
	return contentType
}

func (s *Service) removeFile(name string) {
	if err := s.storage.Delete(name); err != nil {
		slog.Warn("Failed to delete file", "filename", name, "error", err)
	}
}

// AnalyzeScan classifies a scan's cleaned text, or text when the user edited it.
// Re-analyzing a scan replaces its previous analysis.
func (s *Service) AnalyzeScan(ctx context.Context, scanID string, text string) (*Analysis, error) {
	scan, err := s.db.GetScan(scanID)
	if err != nil {
		return nil, fmt.Errorf("getting scan: %w", err)
	}

	if strings.TrimSpace(text) == "" {
		text = scan.CleanedText
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyList
	}

	analysis, err := s.classify(ctx, text)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Reload so a concurrent analyze or delete of the same scan is seen
	scan, err = s.db.GetScan(scanID)
	if err != nil {
		return nil, fmt.Errorf("getting scan: %w", err)
	}

	now := s.timeSource.Now()
	analysis.Source = SourceReceipt
	analysis.ScanID = scan.ID
	analysis.UpdatedAt = now

	previous, err := s.previousAnalysis(scan)
	switch {
	case err == nil:
		analysis.ID = previous.ID
		analysis.CreatedAt = previous.CreatedAt
	case errors.Is(err, ErrNotFound):
		analysis.ID = s.idGenerator.Generate()
		analysis.CreatedAt = now
	default:
		return nil, fmt.Errorf("getting previous analysis: %w", err)
	}

	if err := s.db.SaveAnalysis(analysis); err != nil {
		return nil, fmt.Errorf("saving analysis: %w", err)
	}

	scan.CleanedText = text
	scan.AnalysisID = analysis.ID
	scan.UpdatedAt = now
	if err := s.db.SaveScan(scan); err != nil {
		return nil, fmt.Errorf("updating scan: %w", err)
	}

	return analysis, nil
}

func (s *Service) previousAnalysis(scan *Scan) (*Analysis, error) {
	if scan.AnalysisID == "" {
		return nil, ErrNotFound
	}
	return s.db.GetAnalysis(scan.AnalysisID)
}

// GetAnalysis retrieves an analysis by ID
func (s *Service) GetAnalysis(id string) (*Analysis, error) {
	analysis, err := s.db.GetAnalysis(id)
	if err != nil {
		return nil, fmt.Errorf("getting analysis: %w", err)
	}
	return analysis, nil
}

// ListAnalyses returns all analyses, newest first
func (s *Service) ListAnalyses() ([]*Analysis, error) {
	analyses, err := s.db.ListAnalyses()
	if err != nil {
		return nil, fmt.Errorf("listing analyses: %w", err)
	}
	sort.SliceStable(analyses, func(i, j int) bool {
		if analyses[i].CreatedAt.Equal(analyses[j].CreatedAt) {
			return analyses[i].ID > analyses[j].ID
		}
		return analyses[i].CreatedAt.After(analyses[j].CreatedAt)
	})
	return analyses, nil
}

// DeleteAnalysis removes an analysis together with the scan and file it came from
func (s *Service) DeleteAnalysis(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	analysis, err := s.db.GetAnalysis(id)
	if err != nil {
		return fmt.Errorf("getting analysis for deletion: %w", err)
	}

	// Rows go first so a failure never leaves a scan pointing at a deleted file
	var filename string
	if analysis.ScanID != "" {
		if scan, err := s.db.GetScan(analysis.ScanID); err == nil {
			if err := s.db.DeleteScan(scan.ID); err != nil {
				return fmt.Errorf("deleting scan from database: %w", err)
			}
			filename = scan.Filename
		} else {
			slog.Warn("Scan for analysis is missing", "analysis_id", id, "scan_id", analysis.ScanID, "error", err)
		}
	}

	if err := s.db.DeleteAnalysis(id); err != nil {
		return fmt.Errorf("deleting analysis from database: %w", err)
	}
	if filename != "" {
		s.removeFile(filename)
	}
	return nil
}

// GetScan retrieves a receipt scan by ID
func (s *Service) GetScan(id string) (*Scan, error) {
	scan, err := s.db.GetScan(id)
	if err != nil {
		return nil, fmt.Errorf("getting scan: %w", err)
	}
	return scan, nil
}

// DeleteScan removes a scan, its file and any analysis made from it
func (s *Service) DeleteScan(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	scan, err := s.db.GetScan(id)
	if err != nil {
		return fmt.Errorf("getting scan for deletion: %w", err)
	}

	if scan.AnalysisID != "" {
		if err := s.db.DeleteAnalysis(scan.AnalysisID); err != nil && !errors.Is(err, ErrNotFound) {
			return fmt.Errorf("deleting analysis from database: %w", err)
		}
	}

	if err := s.db.DeleteScan(id); err != nil {
		return fmt.Errorf("deleting scan from database: %w", err)
	}
	s.removeFile(scan.Filename)
	return nil
}

// GetScanFile retrieves the uploaded file for a scan
func (s *Service) GetScanFile(id string) ([]byte, string, error) {
	scan, err := s.db.GetScan(id)
	if err != nil {
		return nil, "", fmt.Errorf("getting scan: %w", err)
	}

	data, err := s.storage.Get(scan.Filename)
	if err != nil {
		return nil, "", fmt.Errorf("getting receipt file: %w", err)
	}

	return data, scan.ContentType, nil
}

// History totals every stored analysis
func (s *Service) History() (*History, error) {
	analyses, err := s.db.ListAnalyses()
	if err != nil {
		return nil, fmt.Errorf("listing analyses: %w", err)
	}

	h := &History{Count: len(analyses)}
	for _, a := range analyses {
		h.TotalSpent += a.Summary.TotalSpent
		h.EssentialsTotal += a.Summary.EssentialsTotal
		h.NonEssentialsTotal += a.Summary.NonEssentialsTotal
	}
	return h, nil
}

// Report renders an analysis as markdown
func (s *Service) Report(id string) (string, error) {
	analysis, err := s.GetAnalysis(id)
	if err != nil {
		return "", err
	}
	return RenderMarkdown(analysis), nil
}

// ReportHTML renders an analysis as an HTML page
func (s *Service) ReportHTML(id string) ([]byte, error) {
	analysis, err := s.GetAnalysis(id)
	if err != nil {
		return nil, err
	}
	return RenderHTML(analysis)
}
