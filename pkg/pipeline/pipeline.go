// Package pipeline turns the raw backends into the translation operations the
// service exposes: backend selection with fallback, glossary substitution,
// long-text chunking, back-translation confidence and batch translation.
//
// None of the operations return errors. Backend failures are logged, counted
// and folded into an absent translation so one bad item never aborts a caller.
package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dasmlab/polyglot/pkg/translate"
)

// LanguageDetector resolves the language of a text. ok is false when no
// language could be determined.
type LanguageDetector interface {
	Detect(ctx context.Context, text string) (code string, ok bool)
}

// Pronouncer produces a short pronunciation guide for text in a language.
type Pronouncer interface {
	Pronounce(ctx context.Context, text, targetLang string) (string, error)
}

// Deps are the collaborators a Pipeline calls. Any of them may be nil; a
// missing backend is simply skipped.
type Deps struct {
	Primary    translate.Translator
	Secondary  translate.Translator
	Detector   LanguageDetector
	Pronouncer Pronouncer
	Logger     *logrus.Logger
}

// Options tune pipeline behaviour.
type Options struct {
	// ChunkSize is the long-text chunk limit in characters.
	ChunkSize int
	// Concurrency bounds parallel backend work in long-text and batch calls.
	// 1 keeps the calls strictly sequential.
	Concurrency int
	// CallTimeout bounds each backend call; zero leaves it to the backend.
	CallTimeout time.Duration
}

// Result is the outcome of a single translation. Translated is nil when every
// backend failed.
type Result struct {
	Translated     *string `json:"translated"`
	DetectedSource string  `json:"detected_source"`
}

// OK reports whether a translation was produced.
func (r Result) OK() bool { return r.Translated != nil }

// Text returns the translation or "".
func (r Result) Text() string {
	if r.Translated == nil {
		return ""
	}
	return *r.Translated
}

// Pipeline is safe for concurrent use.
type Pipeline struct {
	primary    translate.Translator
	secondary  translate.Translator
	detector   LanguageDetector
	pronouncer Pronouncer
	opts       Options
	logger     *logrus.Logger
}

// New creates a Pipeline.
func New(deps Deps, opts Options) *Pipeline {
	if deps.Logger == nil {
		deps.Logger = logrus.New()
	}
	if opts.ChunkSize < 1 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Pipeline{
		primary:    deps.Primary,
		secondary:  deps.Secondary,
		detector:   deps.Detector,
		pronouncer: deps.Pronouncer,
		opts:       opts,
		logger:     deps.Logger,
	}
}

// Detect resolves the language of text, returning "und" when nothing could
// be determined.
func (p *Pipeline) Detect(ctx context.Context, text string) string {
	if p.detector == nil || strings.TrimSpace(text) == "" {
		return translate.UndeterminedLanguage
	}
	code, ok := p.detector.Detect(ctx, text)
	if !ok || code == "" {
		return translate.UndeterminedLanguage
	}
	return code
}

// Translate translates text into targetLang. The primary backend is tried
// first; if it fails or returns nothing the secondary is tried. The source
// hint reaches the primary only when sourceLang is explicit, while the
// secondary gets sourceLang or "auto".
//
// DetectedSource is sourceLang when explicit, else the detected language.
func (p *Pipeline) Translate(ctx context.Context, text, targetLang, sourceLang string) Result {
	detected := sourceLang
	if translate.IsAuto(sourceLang) {
		sourceLang = ""
		detected = p.Detect(ctx, text)
	}

	logger := p.logger.WithFields(logrus.Fields{
		"target_lang": targetLang,
		"source_lang": detected,
		"text_length": len(text),
	})

	var primaryErr error
	if p.primary != nil {
		out, err := p.call(ctx, p.primary, text, sourceLang, targetLang)
		if err == nil {
			return Result{Translated: &out, DetectedSource: detected}
		}
		primaryErr = err
		logger.WithError(err).WithFields(logrus.Fields{
			"backend": p.primary.Name(),
			"kind":    translate.ErrorKind(err),
		}).Warn("Primary backend failed, falling back")
	}

	if p.secondary != nil {
		if primaryErr != nil {
			translate.RecordFallback(primaryErr)
		}
		secondarySource := sourceLang
		if secondarySource == "" {
			secondarySource = translate.AutoLanguage
		}
		out, err := p.call(ctx, p.secondary, text, secondarySource, targetLang)
		if err == nil {
			return Result{Translated: &out, DetectedSource: detected}
		}
		logger.WithError(err).WithFields(logrus.Fields{
			"backend": p.secondary.Name(),
			"kind":    translate.ErrorKind(err),
		}).Warn("Secondary backend failed")
	}

	logger.Error("No backend produced a translation")
	return Result{DetectedSource: detected}
}

// call runs one backend and treats an empty answer as a failure.
func (p *Pipeline) call(ctx context.Context, t translate.Translator, text, sourceLang, targetLang string) (string, error) {
	if p.opts.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.CallTimeout)
		defer cancel()
	}
	out, err := t.Translate(ctx, text, sourceLang, targetLang)
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", &translate.ProviderError{Provider: t.Name(), Kind: translate.ErrEmptyResult}
	}
	return out, nil
}
