package scanning

import (
	"context"
	"fmt"
	"strings"
)

// Completer sends a single system + user prompt to a language model and
// returns the text of its reply
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
	Close() error
}

// LLMClassifier implements Classifier on top of any Completer
type LLMClassifier struct {
	completer Completer
}

// NewLLMClassifier creates a classifier backed by the given completer
func NewLLMClassifier(c Completer) *LLMClassifier {
	return &LLMClassifier{completer: c}
}

// CleanText asks the model to extract purchased items from raw OCR text
func (l *LLMClassifier) CleanText(ctx context.Context, rawText string) (string, error) {
	if strings.TrimSpace(rawText) == "" {
		return "", ErrNoText
	}
	reply, err := l.completer.Complete(ctx, cleanSystemPrompt, buildCleanPrompt(rawText))
	if err != nil {
		return "", fmt.Errorf("preprocessing ocr text: %w", err)
	}
	text := cleanCompletion(reply)
	if text == "" {
		return "", fmt.Errorf("preprocessing ocr text: empty reply")
	}
	return text, nil
}

// Classify asks the model to split the list into essentials and non-essentials
func (l *LLMClassifier) Classify(ctx context.Context, groceryText string) (*Classification, error) {
	reply, err := l.completer.Complete(ctx, classifySystemPrompt, buildClassifyPrompt(groceryText))
	if err != nil {
		return nil, fmt.Errorf("classifying items: %w", err)
	}
	return parseClassificationJSON(reply)
}

// Close closes the underlying completer
func (l *LLMClassifier) Close() error {
	return l.completer.Close()
}
