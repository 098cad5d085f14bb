package service

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/dasmlab/polyglot/pkg/detect"
	"github.com/dasmlab/polyglot/pkg/pipeline"
	"github.com/dasmlab/polyglot/pkg/translate"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

// tagBackend tags text with the target language and strips its own tag when
// translating back.
type tagBackend struct {
	failOn string

	mu    sync.Mutex
	calls int
}

func (b *tagBackend) Name() string { return "tag" }

func (b *tagBackend) CheckHealth(context.Context) error { return nil }

func (b *tagBackend) Translate(_ context.Context, text, source, target string) (string, error) {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()
	if b.failOn != "" && strings.Contains(text, b.failOn) {
		return "", &translate.ProviderError{Provider: "tag", Kind: translate.ErrProviderRequestFailed, Err: errors.New("boom")}
	}
	if prefix := "[" + source + "]"; source != "" && strings.HasPrefix(text, prefix) {
		return strings.TrimPrefix(text, prefix), nil
	}
	return "[" + target + "]" + text, nil
}

type downBackend struct{}

func (downBackend) Name() string { return "down" }

func (downBackend) CheckHealth(context.Context) error {
	return &translate.ProviderError{Provider: "down", Kind: translate.ErrProviderUnavailable}
}

func (downBackend) Translate(context.Context, string, string, string) (string, error) {
	return "", &translate.ProviderError{Provider: "down", Kind: translate.ErrProviderUnavailable}
}

type fixedIdentifier struct {
	code string
}

func (f fixedIdentifier) Detect(context.Context, string) (string, bool) {
	return f.code, f.code != ""
}

func (f fixedIdentifier) Candidates(_ context.Context, _ string, topN int) []detect.Candidate {
	all := []detect.Candidate{{Code: f.code, Probability: 0.9}, {Code: "xx", Probability: 0.1}}
	if topN < len(all) {
		all = all[:topN]
	}
	return all
}

func newTestPipeline(backend translate.Translator, detected string) *pipeline.Pipeline {
	return pipeline.New(pipeline.Deps{
		Primary:  backend,
		Detector: fixedIdentifier{code: detected},
		Logger:   quietLogger(),
	}, pipeline.Options{ChunkSize: 20})
}

type stubCompleter struct {
	reply string
	err   error

	mu   sync.Mutex
	last translate.CompletionRequest
}

func (c *stubCompleter) Complete(_ context.Context, req translate.CompletionRequest) (string, error) {
	c.mu.Lock()
	c.last = req
	c.mu.Unlock()
	return c.reply, c.err
}
