package scanning

import (
	"context"
	"errors"
	"time"
)

// completionTimeout bounds a single text prompt to a language model. OCR
// calls are bounded by the caller's deadline instead.
const completionTimeout = 60 * time.Second

var (
	// ErrNoOperationLocation is returned when the OCR service accepts a
	// document but does not say where to poll for the result
	ErrNoOperationLocation = errors.New("ocr did not return an operation location")
	// ErrReadFailed is returned when the OCR service reports a failed operation
	ErrReadFailed = errors.New("ocr failed to process the receipt")
	// ErrReadTimeout is returned when polling gives up before the OCR finished
	ErrReadTimeout = errors.New("ocr timed out while reading the receipt")
	// ErrNoText is returned when OCR finished but recognized nothing
	ErrNoText = errors.New("no text found on this receipt")
	// ErrInvalidJSON is returned when a language model reply is not the expected JSON
	ErrInvalidJSON = errors.New("model did not return valid JSON")
)

// ItemData is a single grocery line as returned by a classifier
type ItemData struct {
	Item     string  `json:"item"`
	Quantity float64 `json:"quantity"`
	Price    float64 `json:"price"` // line total in major currency units
}

// Classification is the split of a grocery list into essentials and non-essentials
type Classification struct {
	Essentials    []ItemData `json:"essentials"`
	NonEssentials []ItemData `json:"non_essentials"`
	Suggestions   []string   `json:"suggestions"`
}

// Reader extracts plain text from a receipt image or PDF
type Reader interface {
	// ReadText returns the receipt text, one recognized line per line
	ReadText(ctx context.Context, data []byte, contentType string) (string, error)
	// Close releases resources held by the reader
	Close() error
}

// Classifier turns receipt text into a classified grocery list
type Classifier interface {
	// CleanText reduces raw OCR text to an "Item - Quantity - Price" list
	CleanText(ctx context.Context, rawText string) (string, error)
	// Classify splits a grocery list into essentials and non-essentials
	Classify(ctx context.Context, groceryText string) (*Classification, error)
	// Close releases resources held by the classifier
	Close() error
}

// InvalidJSONError carries the raw model reply that failed to parse
type InvalidJSONError struct {
	Raw string
	Err error
}

func (e *InvalidJSONError) Error() string {
	return ErrInvalidJSON.Error() + ": " + e.Err.Error()
}

func (e *InvalidJSONError) Unwrap() []error {
	return []error{ErrInvalidJSON, e.Err}
}
