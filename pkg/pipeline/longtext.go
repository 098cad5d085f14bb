package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/dasmlab/polyglot/pkg/translate"
)

// ProgressFunc is called after each chunk is translated.
type ProgressFunc func(done, total int)

var errChunkFailed = errors.New("chunk translation failed")

// TranslateLongText applies the glossary, chunks text and translates every
// chunk, joining the translations with blank lines. It is all or nothing:
// the first chunk that fails aborts the call, chunks not yet started are
// never sent, and the result carries no translation along with the language
// reported for the failing chunk. On success DetectedSource is sourceLang when
// explicit, else the language detected once over the whole text.
func (p *Pipeline) TranslateLongText(ctx context.Context, text, targetLang, sourceLang string, glossary Glossary) Result {
	return p.TranslateLongTextWithProgress(ctx, text, targetLang, sourceLang, glossary, nil)
}

// TranslateLongTextWithProgress is TranslateLongText reporting progress to fn.
func (p *Pipeline) TranslateLongTextWithProgress(ctx context.Context, text, targetLang, sourceLang string,
	glossary Glossary, fn ProgressFunc) Result {

	detected := sourceLang
	if translate.IsAuto(sourceLang) {
		detected = p.Detect(ctx, text)
	}
	chunks := ChunkText(text, p.opts.ChunkSize)
	if len(chunks) == 0 {
		empty := ""
		return Result{Translated: &empty, DetectedSource: detected}
	}

	logger := p.logger.WithFields(logrus.Fields{
		"chunks":      len(chunks),
		"target_lang": targetLang,
		"concurrency": p.opts.Concurrency,
	})
	logger.Debug("Translating long text")

	var (
		results   = make([]Result, len(chunks))
		attempted = make([]bool, len(chunks))
		done      atomic.Int64
		failOnce  sync.Once
		failed    = -1
	)

	runOrdered(ctx, len(chunks), p.opts.Concurrency, true, func(ctx context.Context, i int) error {
		attempted[i] = true
		chunk := ApplyGlossary(chunks[i], glossary)
		if strings.TrimSpace(chunk) == "" {
			// Nothing to translate; keep blank chunks as they are.
			results[i] = Result{Translated: &chunk, DetectedSource: detected}
		} else {
			results[i] = p.Translate(ctx, chunk, targetLang, sourceLang)
		}
		if !results[i].OK() {
			translate.RecordChunk("failed")
			failOnce.Do(func() { failed = i })
			return errChunkFailed
		}
		translate.RecordChunk("translated")
		n := done.Add(1)
		if fn != nil {
			fn(int(n), len(chunks))
		}
		return nil
	})

	if failed >= 0 {
		skipped := 0
		for _, a := range attempted {
			if !a {
				skipped++
				translate.RecordChunk("skipped")
			}
		}
		logger.WithFields(logrus.Fields{
			"failed_chunk": failed,
			"skipped":      skipped,
		}).Error("Long text translation aborted")
		return Result{DetectedSource: results[failed].DetectedSource}
	}

	parts := make([]string, len(results))
	for i, r := range results {
		parts[i] = r.Text()
	}
	joined := strings.Join(parts, paragraphSeparator)
	return Result{Translated: &joined, DetectedSource: detected}
}
