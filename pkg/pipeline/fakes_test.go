package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/dasmlab/polyglot/pkg/translate"
)

type fakeCall struct {
	text, source, target string
}

// fakeBackend "translates" by tagging text with the target language and
// undoes its own tag when asked to translate back, so round trips are exact.
type fakeBackend struct {
	name  string
	fail  func(text string) bool
	empty bool
	delay func(text string) time.Duration

	mu    sync.Mutex
	calls []fakeCall
}

func (f *fakeBackend) Name() string { return f.name }

func (f *fakeBackend) CheckHealth(context.Context) error { return nil }

func (f *fakeBackend) Translate(ctx context.Context, text, source, target string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, fakeCall{text: text, source: source, target: target})
	f.mu.Unlock()

	if f.delay != nil {
		select {
		case <-ctx.Done():
			return "", &translate.ProviderError{Provider: f.name, Kind: translate.ErrProviderRequestFailed, Err: ctx.Err()}
		case <-time.After(f.delay(text)):
		}
	}
	if f.fail != nil && f.fail(text) {
		return "", &translate.ProviderError{Provider: f.name, Kind: translate.ErrProviderRequestFailed, Err: errors.New("boom")}
	}
	if f.empty {
		return "  ", nil
	}
	if prefix := "[" + source + "]"; source != "" && strings.HasPrefix(text, prefix) {
		return strings.TrimPrefix(text, prefix), nil
	}
	return "[" + target + "]" + text, nil
}

func (f *fakeBackend) Calls() []fakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fakeCall(nil), f.calls...)
}

func failOn(texts ...string) func(string) bool {
	return func(text string) bool {
		for _, t := range texts {
			if strings.Contains(text, t) {
				return true
			}
		}
		return false
	}
}

func failAll(string) bool { return true }

type stubDetector func(text string) string

func (d stubDetector) Detect(_ context.Context, text string) (string, bool) {
	code := d(text)
	return code, code != ""
}

func always(code string) stubDetector {
	return func(string) string { return code }
}

type stubPronouncer struct {
	err error
}

func (s stubPronouncer) Pronounce(_ context.Context, text, targetLang string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "/" + text + "/", nil
}
