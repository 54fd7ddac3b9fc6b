package scanning

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	defaultReadPollInterval = 1 * time.Second
	defaultReadPollAttempts = 60
)

// AzureRead implements the Reader interface using the Azure Computer Vision
// Read v3.2 API. Submitting returns an operation URL that is polled until the
// analysis succeeds or fails.
type AzureRead struct {
	endpoint     string
	key          string
	client       *http.Client
	pollInterval time.Duration
	pollAttempts int
}

// AzureReadOption configures an AzureRead
type AzureReadOption func(*AzureRead)

// WithPollInterval sets the delay between status polls
func WithPollInterval(d time.Duration) AzureReadOption {
	return func(a *AzureRead) {
		if d > 0 {
			a.pollInterval = d
		}
	}
}

// WithPollAttempts sets how many times the operation is polled before giving up
func WithPollAttempts(n int) AzureReadOption {
	return func(a *AzureRead) {
		if n > 0 {
			a.pollAttempts = n
		}
	}
}

// WithHTTPClient replaces the HTTP client used for submitting and polling
func WithHTTPClient(c *http.Client) AzureReadOption {
	return func(a *AzureRead) {
		if c != nil {
			a.client = c
		}
	}
}

// NewAzureRead creates a new AzureRead Reader.
// endpoint is the Cognitive Services resource, e.g. https://xxx.cognitiveservices.azure.com/
func NewAzureRead(endpoint, key string, opts ...AzureReadOption) (*AzureRead, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("azure ocr endpoint is required")
	}
	if key == "" {
		return nil, fmt.Errorf("azure ocr key is required")
	}
	if !strings.HasSuffix(endpoint, "/") {
		endpoint += "/"
	}

	a := &AzureRead{
		endpoint:     endpoint,
		key:          key,
		client:       &http.Client{Timeout: 60 * time.Second},
		pollInterval: defaultReadPollInterval,
		pollAttempts: defaultReadPollAttempts,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

type readSubmitResponse struct {
	OperationLocation string `json:"operationLocation"`
}

type readResult struct {
	Status        string `json:"status"`
	AnalyzeResult struct {
		ReadResults []struct {
			Page  int `json:"page"`
			Lines []struct {
				Text string `json:"text"`
			} `json:"lines"`
		} `json:"readResults"`
	} `json:"analyzeResult"`
}

// ReadText submits the document and polls until the text is available
func (a *AzureRead) ReadText(ctx context.Context, data []byte, contentType string) (string, error) {
	// The Read API accepts PDF, JPEG, PNG, BMP and TIFF natively; HEIC needs converting
	if isHEICFormat(data) || isHEICMimeType(contentType) {
		converted, err := toPNG(data, contentType)
		if err != nil {
			return "", err
		}
		data = converted
	}

	opLocation, err := a.submit(ctx, data)
	if err != nil {
		return "", err
	}

	for attempt := 0; attempt < a.pollAttempts; attempt++ {
		result, err := a.poll(ctx, opLocation)
		if err != nil {
			return "", err
		}

		switch strings.ToLower(result.Status) {
		case "succeeded":
			return joinReadLines(result)
		case "failed":
			return "", ErrReadFailed
		}

		slog.Debug("Waiting for OCR result", "status", result.Status, "attempt", attempt+1)
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("polling ocr result: %w", ctx.Err())
		case <-time.After(a.pollInterval):
		}
	}

	return "", ErrReadTimeout
}

func (a *AzureRead) submit(ctx context.Context, data []byte) (string, error) {
	url := a.endpoint + "vision/v3.2/read/analyze"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", a.key)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling azure read API: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("azure read API error (status %d): %s", resp.StatusCode, string(body))
	}

	if loc := resp.Header.Get("Operation-Location"); loc != "" {
		return loc, nil
	}
	var sub readSubmitResponse
	if len(body) > 0 && json.Unmarshal(body, &sub) == nil && sub.OperationLocation != "" {
		return sub.OperationLocation, nil
	}
	return "", ErrNoOperationLocation
}

func (a *AzureRead) poll(ctx context.Context, opLocation string) (*readResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, opLocation, nil)
	if err != nil {
		return nil, fmt.Errorf("creating poll request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", a.key)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("polling azure read API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("azure read API error (status %d): %s", resp.StatusCode, string(body))
	}

	var result readResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding poll response: %w", err)
	}
	return &result, nil
}

func joinReadLines(result *readResult) (string, error) {
	var lines []string
	for _, page := range result.AnalyzeResult.ReadResults {
		for _, line := range page.Lines {
			if txt := strings.TrimSpace(line.Text); txt != "" {
				lines = append(lines, txt)
			}
		}
	}
	if len(lines) == 0 {
		return "", ErrNoText
	}
	return strings.Join(lines, "\n"), nil
}

// Close is a no-op for the HTTP client
func (a *AzureRead) Close() error {
	return nil
}
