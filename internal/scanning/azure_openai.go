package scanning

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultAzureOpenAIAPIVersion is used when no api-version is configured
const DefaultAzureOpenAIAPIVersion = "2024-02-01"

// AzureOpenAI implements the Completer interface using an Azure OpenAI chat deployment
type AzureOpenAI struct {
	endpoint    string
	key         string
	deployment  string
	apiVersion  string
	temperature float64
	client      *http.Client
}

// NewAzureOpenAI creates a new AzureOpenAI Completer
func NewAzureOpenAI(endpoint, key, deployment, apiVersion string) (*AzureOpenAI, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("azure openai endpoint is required")
	}
	if key == "" {
		return nil, fmt.Errorf("azure openai key is required")
	}
	if deployment == "" {
		return nil, fmt.Errorf("azure openai deployment is required")
	}
	if apiVersion == "" {
		apiVersion = DefaultAzureOpenAIAPIVersion
	}

	return &AzureOpenAI{
		endpoint:    strings.TrimSuffix(endpoint, "/"),
		key:         key,
		deployment:  deployment,
		apiVersion:  apiVersion,
		temperature: 0.2,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (a *AzureOpenAI) url() string {
	return fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		a.endpoint, url.PathEscape(a.deployment), url.QueryEscape(a.apiVersion))
}

// Complete sends the prompt to the chat completions endpoint
func (a *AzureOpenAI) Complete(ctx context.Context, system, prompt string) (string, error) {
	reqBody := chatCompletionRequest{
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
		Temperature: a.temperature,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url(), bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", a.key)

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling azure openai API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("azure openai API error (status %d): %s", resp.StatusCode, string(body))
	}

	var chatResp chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("no response from azure openai")
	}

	return chatResp.Choices[0].Message.Content, nil
}

// Close is a no-op for the HTTP client
func (a *AzureOpenAI) Close() error {
	return nil
}
