package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/zombor/grocery-saver/internal/scanning"
)

// providerConfig selects and configures the OCR and classification backends
type providerConfig struct {
	ocr string
	llm string

	azureOCREndpoint string
	azureOCRKey      string
	pollInterval     time.Duration
	pollAttempts     int

	azureOpenAIEndpoint   string
	azureOpenAIKey        string
	azureOpenAIDeployment string
	azureOpenAIAPIVersion string

	geminiKey   string
	geminiModel string

	ollamaURL         string
	ollamaModel       string
	ollamaVisionModel string

	tesseractLang string
}

// applyEnvFallbacks fills unset credentials from the provider's usual env vars
func (c *providerConfig) applyEnvFallbacks() {
	fallback := func(v *string, key string) {
		if *v == "" {
			*v = os.Getenv(key)
		}
	}
	fallback(&c.azureOCREndpoint, "AZURE_OCR_ENDPOINT")
	fallback(&c.azureOCRKey, "AZURE_OCR_KEY")
	fallback(&c.azureOpenAIEndpoint, "AZURE_OPENAI_ENDPOINT")
	fallback(&c.azureOpenAIKey, "AZURE_OPENAI_KEY")
	fallback(&c.azureOpenAIDeployment, "AZURE_OPENAI_DEPLOYMENT")
	fallback(&c.azureOpenAIAPIVersion, "AZURE_OPENAI_API_VERSION")
	fallback(&c.geminiKey, "GEMINI_API_KEY")
}

func (c *providerConfig) newReader() (scanning.Reader, error) {
	switch c.ocr {
	case "azure":
		return scanning.NewAzureRead(c.azureOCREndpoint, c.azureOCRKey,
			scanning.WithPollInterval(c.pollInterval),
			scanning.WithPollAttempts(c.pollAttempts),
		)
	case "tesseract":
		return scanning.NewTesseract(splitList(c.tesseractLang)...), nil
	case "gemini":
		if c.geminiKey == "" {
			return nil, fmt.Errorf("gemini API key is required. Set --gemini-key flag or GEMINI_API_KEY environment variable")
		}
		return scanning.NewGemini(c.geminiKey, c.geminiModel)
	case "ollama":
		return scanning.NewOllama(c.ollamaURL, c.ollamaModel, c.ollamaVisionModel)
	default:
		return nil, fmt.Errorf("invalid OCR provider %q, valid: azure, tesseract, gemini or ollama", c.ocr)
	}
}

func (c *providerConfig) newClassifier() (scanning.Classifier, error) {
	var completer scanning.Completer
	var err error
	switch c.llm {
	case "rules":
		return scanning.NewRules(), nil
	case "azure":
		completer, err = scanning.NewAzureOpenAI(c.azureOpenAIEndpoint, c.azureOpenAIKey, c.azureOpenAIDeployment, c.azureOpenAIAPIVersion)
	case "gemini":
		if c.geminiKey == "" {
			return nil, fmt.Errorf("gemini API key is required. Set --gemini-key flag or GEMINI_API_KEY environment variable")
		}
		completer, err = scanning.NewGemini(c.geminiKey, c.geminiModel)
	case "ollama":
		completer, err = scanning.NewOllama(c.ollamaURL, c.ollamaModel, c.ollamaVisionModel)
	default:
		return nil, fmt.Errorf("invalid classifier %q, valid: azure, gemini, ollama or rules", c.llm)
	}
	if err != nil {
		return nil, err
	}
	return scanning.NewLLMClassifier(completer), nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
