package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/grocery-saver/internal/grocery"
	"github.com/zombor/grocery-saver/internal/scanning"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	// A missing .env file is fine; real environment variables still apply
	_ = godotenv.Load()

	fs := ff.NewFlagSet("grocery-saver")
	var (
		port        = fs.IntLong("port", 8080, "HTTP server port")
		dbPath      = fs.StringLong("db", "grocery-saver.db", "Database file path")
		storagePath = fs.StringLong("storage", "./uploads", "Receipt storage directory path")
		currency    = fs.StringLong("currency", grocery.DefaultCurrency, "Currency label printed before amounts")
		_           = fs.StringLong("config", "", "Config file path (optional)")
		authUser    = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass    = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		showVersion = fs.BoolLong("version", "Show version information")
	)

	var cfg providerConfig
	fs.StringVar(&cfg.ocr, 0, "ocr", "azure", "OCR provider: 'azure', 'tesseract', 'gemini' or 'ollama'")
	fs.StringVar(&cfg.llm, 0, "llm", "azure", "Classifier: 'azure', 'gemini', 'ollama' or 'rules'")
	fs.StringVar(&cfg.azureOCREndpoint, 0, "azure-ocr-endpoint", "", "Azure Computer Vision endpoint (or set AZURE_OCR_ENDPOINT)")
	fs.StringVar(&cfg.azureOCRKey, 0, "azure-ocr-key", "", "Azure Computer Vision key (or set AZURE_OCR_KEY)")
	fs.DurationVar(&cfg.pollInterval, 0, "ocr-poll-interval", time.Second, "Delay between Azure Read result polls")
	fs.IntVar(&cfg.pollAttempts, 0, "ocr-poll-attempts", 60, "Azure Read result polls before giving up")
	var ocrTimeout time.Duration
	fs.DurationVar(&ocrTimeout, 0, "ocr-timeout", grocery.DefaultOCRTimeout, "Overall deadline for reading one receipt")
	fs.StringVar(&cfg.azureOpenAIEndpoint, 0, "azure-openai-endpoint", "", "Azure OpenAI endpoint (or set AZURE_OPENAI_ENDPOINT)")
	fs.StringVar(&cfg.azureOpenAIKey, 0, "azure-openai-key", "", "Azure OpenAI key (or set AZURE_OPENAI_KEY)")
	fs.StringVar(&cfg.azureOpenAIDeployment, 0, "azure-openai-deployment", "", "Azure OpenAI deployment name (or set AZURE_OPENAI_DEPLOYMENT)")
	fs.StringVar(&cfg.azureOpenAIAPIVersion, 0, "azure-openai-api-version", "", "Azure OpenAI API version (or set AZURE_OPENAI_API_VERSION)")
	fs.StringVar(&cfg.geminiKey, 0, "gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
	fs.StringVar(&cfg.geminiModel, 0, "gemini-model", "gemini-2.5-flash", "Google Gemini model name")
	fs.StringVar(&cfg.ollamaURL, 0, "ollama-url", "http://localhost:11434", "Ollama API base URL")
	fs.StringVar(&cfg.ollamaModel, 0, "ollama-model", "llama3.1", "Ollama text model used for classification")
	fs.StringVar(&cfg.ollamaVisionModel, 0, "ollama-vision-model", "llava", "Ollama vision model used for OCR (e.g., llava, qwen2-vl)")
	fs.StringVar(&cfg.tesseractLang, 0, "tesseract-lang", "eng", "Comma-separated Tesseract languages")

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("GROCERY_SAVER"),
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.PlainParser),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		if errors.Is(err, ff.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Check version flag after parsing
	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	cfg.applyEnvFallbacks()

	// Initialize database
	slog.Info("Initializing database...")
	db, err := grocery.NewBoltDB(*dbPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	slog.Info("Initializing OCR...", "provider", cfg.ocr)
	reader, err := cfg.newReader()
	if err != nil {
		slog.Error("Failed to initialize OCR", "provider", cfg.ocr, "error", err)
		os.Exit(1)
	}
	defer reader.Close()

	slog.Info("Initializing classifier...", "provider", cfg.llm)
	classifier, err := cfg.newClassifier()
	if err != nil {
		slog.Error("Failed to initialize classifier", "provider", cfg.llm, "error", err)
		os.Exit(1)
	}
	defer classifier.Close()

	// Initialize storage
	slog.Info("Initializing storage...")
	store, err := grocery.NewLocalStorage(*storagePath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}

	service := grocery.NewService(db, reader, classifier, store).
		WithCurrency(*currency).
		WithOCRTimeout(ocrTimeout)

	basicAuth := grocery.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	}
	server := grocery.NewServer(service, basicAuth)

	addr := fmt.Sprintf(":%d", *port)
	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Start(addr)
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr), "version", version)
	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	// Wait for interrupt signal or a server failure
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sigChan:
	case err := <-errChan:
		if err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
		return
	}

	slog.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Graceful shutdown failed", "error", err)
	}
}
