package translate

import (
	"context"
	"strings"
	"time"

	"github.com/bregydoc/gtranslate"
	"github.com/sirupsen/logrus"
)

// DefaultGoogleTries is how many attempts gtranslate makes per request.
const DefaultGoogleTries = 2

// GoogleClient implements the Translator interface over the public Google
// Translate web endpoint. It is the default secondary backend: no credentials,
// "auto" source supported.
type GoogleClient struct {
	tries  int
	delay  time.Duration
	logger *logrus.Logger

	// translateFn is swapped in tests.
	translateFn func(text string, params gtranslate.TranslationParams) (string, error)
}

// NewGoogleClient creates a new Google Translate client.
func NewGoogleClient(tries int, logger *logrus.Logger) *GoogleClient {
	if tries <= 0 {
		tries = DefaultGoogleTries
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &GoogleClient{
		tries:       tries,
		delay:       500 * time.Millisecond,
		logger:      logger,
		translateFn: gtranslate.TranslateWithParams,
	}
}

// Name implements Translator.
func (c *GoogleClient) Name() string { return "google" }

// Translate translates text. gtranslate has no context support, so the call
// runs in its own goroutine and is abandoned when ctx ends.
func (c *GoogleClient) Translate(ctx context.Context, text, sourceLang, targetLang string) (out string, err error) {
	if IsAuto(sourceLang) {
		sourceLang = AutoLanguage
	}
	c.logger.WithFields(logrus.Fields{
		"source_lang": sourceLang,
		"target_lang": targetLang,
		"text_length": len(text),
	}).Debug("Translating text with Google")

	startTime := time.Now()
	defer func() {
		RecordBackendRequest(c.Name(), "translate", time.Since(startTime), len(text), err)
	}()

	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		s, err := c.translateFn(text, gtranslate.TranslationParams{
			From:  sourceLang,
			To:    targetLang,
			Tries: c.tries,
			Delay: c.delay,
		})
		done <- result{text: s, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", requestFailed(c.Name(), ctx.Err())
	case r := <-done:
		if r.err != nil {
			c.logger.WithError(r.err).Error("Google translation failed")
			return "", requestFailed(c.Name(), r.err)
		}
		out = strings.TrimSpace(r.text)
		if out == "" {
			return "", emptyResult(c.Name())
		}
		c.logger.WithFields(logrus.Fields{
			"target_lang": targetLang,
			"duration_ms": time.Since(startTime).Milliseconds(),
		}).Debug("Google translation completed")
		return out, nil
	}
}

// CheckHealth translates a single word.
func (c *GoogleClient) CheckHealth(ctx context.Context) error {
	_, err := c.Translate(ctx, "hello", "en", "fr")
	return err
}
