package translate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	// DefaultLLMModel is the chat model used when none is configured.
	DefaultLLMModel = "gpt-4"
	// DefaultLLMTimeout bounds a single chat completion request.
	DefaultLLMTimeout = 60 * time.Second
)

// LLMConfig configures the chat-completion backend.
type LLMConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
	// RequestsPerSecond limits outgoing requests; zero disables the limiter.
	RequestsPerSecond float64
	Logger            *logrus.Logger
}

// CompletionRequest is a single system+user prompt sent to the model.
type CompletionRequest struct {
	Operation   string
	System      string
	User        string
	Temperature float64
	MaxTokens   int
}

// LLMClient is the primary backend: contextual translation plus the other
// prompt-driven capabilities (short-text detection, pronunciation, tasks).
// A client built without an API key is valid but reports every call as
// ErrProviderUnavailable.
type LLMClient struct {
	client  *openai.Client
	model   string
	limiter *rate.Limiter
	logger  *logrus.Logger
}

// NewLLMClient creates the chat-completion client.
func NewLLMClient(cfg LLMConfig) *LLMClient {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Model == "" {
		cfg.Model = DefaultLLMModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultLLMTimeout
	}

	c := &LLMClient{model: cfg.Model, logger: cfg.Logger}
	if cfg.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	if cfg.APIKey == "" {
		cfg.Logger.Warn("No LLM API key configured, primary backend disabled")
		return c
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithRequestTimeout(cfg.Timeout),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := openai.NewClient(opts...)
	c.client = &client

	cfg.Logger.WithFields(logrus.Fields{
		"model":    cfg.Model,
		"base_url": cfg.BaseURL,
	}).Info("Created LLM client")
	return c
}

// Name implements Translator.
func (c *LLMClient) Name() string { return "openai" }

// Available reports whether the client has credentials.
func (c *LLMClient) Available() bool { return c != nil && c.client != nil }

// Complete sends one prompt and returns the trimmed text of the first choice.
// This is the only place provider responses are inspected; everything above it
// sees a plain string or an error.
func (c *LLMClient) Complete(ctx context.Context, req CompletionRequest) (out string, err error) {
	if !c.Available() {
		return "", unavailable(c.Name())
	}

	startTime := time.Now()
	defer func() {
		RecordBackendRequest(c.Name(), req.Operation, time.Since(startTime), len(req.User), err)
	}()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", requestFailed(c.Name(), fmt.Errorf("rate limiter: %w", err))
		}
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	messages = append(messages, openai.UserMessage(req.User))

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.model),
		Messages:    messages,
		Temperature: openai.Float(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		c.logger.WithError(err).WithFields(logrus.Fields{
			"operation": req.Operation,
			"model":     c.model,
		}).Error("LLM request failed")
		return "", requestFailed(c.Name(), err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", emptyResult(c.Name())
	}

	out = strings.TrimSpace(resp.Choices[0].Message.Content)
	if out == "" {
		return "", emptyResult(c.Name())
	}

	c.logger.WithFields(logrus.Fields{
		"operation":   req.Operation,
		"duration_ms": time.Since(startTime).Milliseconds(),
	}).Debug("LLM request completed")
	return out, nil
}

// TranslationInstruction builds the system prompt for contextual translation.
// The hint names the source language only when the caller supplied one.
func TranslationInstruction(sourceLang, targetLang string) string {
	hint := ""
	if !IsAuto(sourceLang) {
		hint = fmt.Sprintf(" The source language is %s.", sourceLang)
	}
	return fmt.Sprintf("You are a helpful translator. Translate the user's text into %s and preserve meaning.%s"+
		" Only return the translated text without extra commentary.", targetLang, hint)
}

// Translate implements Translator.
func (c *LLMClient) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	return c.Complete(ctx, CompletionRequest{
		Operation:   "translate",
		System:      TranslationInstruction(sourceLang, targetLang),
		User:        text,
		Temperature: 0.2,
		MaxTokens:   1000,
	})
}

// DetectLanguage asks the model for the ISO 639-1 code of a short text.
// An "und" answer is returned as ErrDetectionFailed.
func (c *LLMClient) DetectLanguage(ctx context.Context, text string) (string, error) {
	out, err := c.Complete(ctx, CompletionRequest{
		Operation: "detect",
		User: "Return only the 2-letter ISO 639-1 language code for the following text." +
			" If you cannot determine, return 'und'.\n\nText:\n" + text,
		Temperature: 0,
		MaxTokens:   4,
	})
	if err != nil {
		return "", err
	}
	code := strings.ToLower(strings.Trim(strings.TrimSpace(out), "'\"."))
	if code == "" || code == UndeterminedLanguage {
		return "", ErrDetectionFailed
	}
	return code, nil
}

// Pronounce returns a one-line pronunciation guide for text in targetLang.
func (c *LLMClient) Pronounce(ctx context.Context, text, targetLang string) (string, error) {
	return c.Complete(ctx, CompletionRequest{
		Operation: "pronounce",
		User: fmt.Sprintf("Provide a short pronunciation guide (simple phonetic or IPA) for the following text in %s. "+
			"Return only the pronunciation on one line.\n\nText:\n%s", targetLang, text),
		Temperature: 0,
		MaxTokens:   60,
	})
}

// CheckHealth reports whether the client is configured. It does not spend a
// completion on the check.
func (c *LLMClient) CheckHealth(ctx context.Context) error {
	if !c.Available() {
		return unavailable(c.Name())
	}
	return nil
}
