package scanning

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Ollama implements both the Reader and Completer interfaces using a local Ollama server
type Ollama struct {
	baseURL     string
	model       string
	visionModel string
	client      *http.Client
	// promptTimeout bounds Complete; ReadText runs until the caller's deadline
	promptTimeout time.Duration
}

// NewOllama creates a new Ollama instance.
// model is used for text prompts; visionModel (e.g. llava, qwen2-vl) transcribes receipts.
func NewOllama(baseURL, modelName, visionModel string) (*Ollama, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if modelName == "" {
		modelName = "llama3.1"
	}
	if visionModel == "" {
		visionModel = "llava"
	}

	return &Ollama{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		model:       modelName,
		visionModel: visionModel,
		// Vision models on local hardware can take minutes; the caller's
		// context is the real bound
		client:        &http.Client{},
		promptTimeout: completionTimeout,
	}, nil
}

// ollamaChatRequest represents the request body for Ollama's chat API
type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  map[string]any  `json:"options,omitempty"`
}

type ollamaMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

// ollamaChatResponse represents the response from Ollama's chat API
type ollamaChatResponse struct {
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
}

// ReadText transcribes the receipt with the configured vision model
func (o *Ollama) ReadText(ctx context.Context, data []byte, contentType string) (string, error) {
	pngData, err := toPNG(data, contentType)
	if err != nil {
		return "", err
	}

	text, err := o.chat(ctx, ollamaChatRequest{
		Model: o.visionModel,
		Messages: []ollamaMessage{
			{Role: "system", Content: transcribeSystemPrompt},
			{
				Role:    "user",
				Content: transcribePrompt,
				Images:  []string{base64.StdEncoding.EncodeToString(pngData)},
			},
		},
	})
	if err != nil {
		return "", err
	}

	text = cleanCompletion(text)
	if text == "" {
		return "", ErrNoText
	}
	return text, nil
}

// Complete sends a text prompt to the configured model
func (o *Ollama) Complete(ctx context.Context, system, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.promptTimeout)
	defer cancel()

	return o.chat(ctx, ollamaChatRequest{
		Model: o.model,
		Messages: []ollamaMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
	})
}

func (o *Ollama) chat(ctx context.Context, reqBody ollamaChatRequest) (string, error) {
	reqBody.Stream = false
	reqBody.Options = map[string]any{"temperature": 0.2}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/api/chat", o.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling ollama API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("ollama API error (status %d): %s", resp.StatusCode, string(body))
	}

	var chatResp ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}

	return chatResp.Message.Content, nil
}

// Close closes the Ollama client (no-op for HTTP client)
func (o *Ollama) Close() error {
	return nil
}
