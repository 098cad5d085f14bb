package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dasmlab/polyglot/pkg/pipeline"
	"github.com/dasmlab/polyglot/pkg/translate"
)

// DefaultJobTimeout bounds a whole document job.
const DefaultJobTimeout = 10 * time.Minute

// LongTextTranslator is the part of the pipeline document jobs need.
type LongTextTranslator interface {
	Translate(ctx context.Context, text, targetLang, sourceLang string) pipeline.Result
	TranslateLongTextWithProgress(ctx context.Context, text, targetLang, sourceLang string,
		glossary pipeline.Glossary, fn pipeline.ProgressFunc) pipeline.Result
}

// JobProcessor translates document jobs.
type JobProcessor struct {
	translator     LongTextTranslator
	languageMapper *translate.LanguageMapper
	logger         *logrus.Logger
	timeout        time.Duration
}

// NewJobProcessor creates a new job processor.
func NewJobProcessor(translator LongTextTranslator, languageMapper *translate.LanguageMapper, logger *logrus.Logger) *JobProcessor {
	if languageMapper == nil {
		languageMapper = translate.NewLanguageMapper()
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &JobProcessor{
		translator:     translator,
		languageMapper: languageMapper,
		logger:         logger,
		timeout:        DefaultJobTimeout,
	}
}

// ProcessJob translates the job's title and body. The body goes through
// long-text translation, so progress advances per chunk and a failed chunk
// fails the whole job.
func (p *JobProcessor) ProcessJob(job *DocumentJob) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	startTime := time.Now()
	logger := p.logger.WithFields(logrus.Fields{
		"job_id":     job.ID,
		"request_id": job.RequestID,
	})
	logger.Info("Starting document job")

	job.UpdateStatus(JobStatusProcessing, "Starting translation...")

	sourceLang := p.languageMapper.ToBackendCode(job.SourceLang)
	targetLang := p.languageMapper.ToBackendCode(job.TargetLang)

	var translatedTitle string
	if job.Title != "" {
		job.UpdateProgress(5, "Translating title...")
		res := p.translator.Translate(ctx, pipeline.ApplyGlossary(job.Title, job.Glossary), targetLang, sourceLang)
		if !res.OK() {
			logger.Error("Title translation failed")
			job.SetError(fmt.Errorf("title: %w", ErrTranslationFailed), res.DetectedSource)
			return
		}
		translatedTitle = res.Text()
	}

	job.UpdateProgress(10, "Translating content...")
	res := p.translator.TranslateLongTextWithProgress(ctx, job.Text, targetLang, sourceLang, job.Glossary,
		func(done, total int) {
			// Content spans 10% to 90%.
			percent := 10 + int32(float64(done)/float64(total)*80)
			job.UpdateProgress(percent, fmt.Sprintf("Translated chunk %d/%d", done, total))
		})
	if !res.OK() {
		logger.WithField("detected", res.DetectedSource).Error("Document translation failed")
		job.SetError(fmt.Errorf("content: %w", ErrTranslationFailed), res.DetectedSource)
		return
	}

	job.SetResult(translatedTitle, res.Text(), res.DetectedSource)

	logger.WithFields(logrus.Fields{
		"detected":       res.DetectedSource,
		"inference_time": time.Since(startTime).Seconds(),
	}).Info("Document job completed")
}
