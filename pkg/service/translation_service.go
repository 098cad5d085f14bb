package service

import (
	"context"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dasmlab/polyglot/pkg/detect"
	"github.com/dasmlab/polyglot/pkg/pipeline"
	"github.com/dasmlab/polyglot/pkg/translate"
)

// DefaultMaxBatchSize caps the texts accepted in one batch request.
const DefaultMaxBatchSize = 100

// LanguageIdentifier detects languages and ranks candidates.
type LanguageIdentifier interface {
	Detect(ctx context.Context, text string) (string, bool)
	Candidates(ctx context.Context, text string, topN int) []detect.Candidate
}

// Deps wires a TranslationService.
type Deps struct {
	Pipeline *pipeline.Pipeline
	Detector LanguageIdentifier
	Jobs     *JobQueue
	Tasks    *TaskProcessor
	Sessions *SessionStore
	// Backends are probed by CheckReady.
	Backends []translate.Translator
	Logger   *logrus.Logger
	// Glossary applies to every request; request glossaries override its entries.
	Glossary pipeline.Glossary

	// BackTranslation is the batch default when a request does not say.
	BackTranslation bool
	MaxBatchSize    int
}

// TranslationService is the transport-independent API shared by the gRPC
// and HTTP surfaces. Caller mistakes return errors wrapping
// ErrInvalidRequest; translation failures are reported in-band.
type TranslationService struct {
	pipeline        *pipeline.Pipeline
	detector        LanguageIdentifier
	jobs            *JobQueue
	tasks           *TaskProcessor
	sessions        *SessionStore
	backends        []translate.Translator
	languageMapper  *translate.LanguageMapper
	glossary        pipeline.Glossary
	logger          *logrus.Logger
	backTranslation bool
	maxBatchSize    int
}

// NewTranslationService creates a new TranslationService instance.
func NewTranslationService(deps Deps) *TranslationService {
	if deps.Logger == nil {
		deps.Logger = logrus.New()
	}
	if deps.MaxBatchSize <= 0 {
		deps.MaxBatchSize = DefaultMaxBatchSize
	}
	return &TranslationService{
		pipeline:        deps.Pipeline,
		detector:        deps.Detector,
		jobs:            deps.Jobs,
		tasks:           deps.Tasks,
		sessions:        deps.Sessions,
		backends:        deps.Backends,
		languageMapper:  translate.NewLanguageMapper(),
		glossary:        deps.Glossary,
		logger:          deps.Logger,
		backTranslation: deps.BackTranslation,
		maxBatchSize:    deps.MaxBatchSize,
	}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

// glossaryFor merges the service glossary with a request glossary.
func (s *TranslationService) glossaryFor(req map[string]string) pipeline.Glossary {
	if len(s.glossary) == 0 {
		return pipeline.Glossary(req)
	}
	merged := maps.Clone(s.glossary)
	maps.Copy(merged, req)
	return merged
}

// Translate translates a single text.
func (s *TranslationService) Translate(ctx context.Context, req *TranslateRequest) (*TranslateResponse, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, invalid("text is required")
	}
	if strings.TrimSpace(req.TargetLang) == "" {
		return nil, invalid("target_lang is required")
	}

	sourceLang := s.languageMapper.ToBackendCode(req.SourceLang)
	targetLang := s.languageMapper.ToBackendCode(req.TargetLang)

	s.logger.WithFields(logrus.Fields{
		"source_lang": sourceLang,
		"target_lang": targetLang,
		"text_length": len(req.Text),
		"long_text":   req.LongText,
	}).Debug("Translate request received")

	glossary := s.glossaryFor(req.Glossary)
	var res pipeline.Result
	if req.LongText || len(glossary) > 0 {
		res = s.pipeline.TranslateLongText(ctx, req.Text, targetLang, sourceLang, glossary)
	} else {
		res = s.pipeline.Translate(ctx, req.Text, targetLang, sourceLang)
	}

	resp := &TranslateResponse{
		Success:        res.OK(),
		Translated:     res.Translated,
		DetectedSource: res.DetectedSource,
		CompletedAt:    time.Now(),
	}
	if !res.OK() {
		resp.Message = "no translation backend produced a result"
	}
	return resp, nil
}

// TranslateBatch translates every text independently.
func (s *TranslationService) TranslateBatch(ctx context.Context, req *BatchRequest) (*BatchResponse, error) {
	if strings.TrimSpace(req.TargetLang) == "" {
		return nil, invalid("target_lang is required")
	}
	if len(req.Texts) > s.maxBatchSize {
		return nil, invalid("batch of %d texts exceeds the limit of %d", len(req.Texts), s.maxBatchSize)
	}

	backTranslation := s.backTranslation
	if req.BackTranslation != nil {
		backTranslation = *req.BackTranslation
	}

	items := s.pipeline.BatchTranslate(ctx, req.Texts,
		s.languageMapper.ToBackendCode(req.TargetLang),
		s.languageMapper.ToBackendCode(req.SourceLang),
		pipeline.BatchOptions{
			Glossary:            s.glossaryFor(req.Glossary),
			Pronunciation:       req.Pronunciation,
			SkipBackTranslation: !backTranslation,
		})

	s.logger.WithFields(logrus.Fields{
		"items":       len(items),
		"target_lang": req.TargetLang,
	}).Info("Batch translated")
	return &BatchResponse{Items: items}, nil
}

// DetectLanguage detects the language of a text.
func (s *TranslationService) DetectLanguage(ctx context.Context, req *DetectRequest) (*DetectResponse, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, invalid("text is required")
	}
	if req.TopN < 0 {
		return nil, invalid("top_n must not be negative")
	}

	resp := &DetectResponse{Language: translate.UndeterminedLanguage}
	if s.detector == nil {
		return resp, nil
	}
	if code, ok := s.detector.Detect(ctx, req.Text); ok {
		resp.Language, resp.Detected = code, true
	}
	if req.TopN > 0 {
		resp.Candidates = s.detector.Candidates(ctx, req.Text, req.TopN)
	}
	return resp, nil
}

// SubmitDocument queues a document job.
func (s *TranslationService) SubmitDocument(ctx context.Context, req *DocumentRequest) (*DocumentResponse, error) {
	if s.jobs == nil {
		return nil, fmt.Errorf("document jobs are not enabled")
	}
	doc := *req
	doc.Glossary = s.glossaryFor(req.Glossary)
	id, err := s.jobs.CreateJob(doc)
	if err != nil {
		return nil, err
	}
	return &DocumentResponse{JobID: id}, nil
}

// GetJob returns the current state of a document job.
func (s *TranslationService) GetJob(ctx context.Context, req *JobRequest) (*JobSnapshot, error) {
	if req.JobID == "" {
		return nil, invalid("job_id is required")
	}
	if s.jobs == nil {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, req.JobID)
	}
	job, err := s.jobs.GetJob(req.JobID)
	if err != nil {
		return nil, err
	}
	snap := job.Snapshot()
	return &snap, nil
}

// ProcessTask runs a translate-then-process task.
func (s *TranslationService) ProcessTask(ctx context.Context, req *TaskRequest) (*TaskResult, error) {
	if s.tasks == nil {
		return nil, fmt.Errorf("%w: task processing needs a configured LLM", translate.ErrProviderUnavailable)
	}
	return s.tasks.Process(ctx, *req)
}

// CreateSession starts a conversation session.
func (s *TranslationService) CreateSession(ctx context.Context) (string, error) {
	if s.sessions == nil {
		return "", fmt.Errorf("sessions are not enabled")
	}
	return s.sessions.Create(), nil
}

// History returns a session's conversation history.
func (s *TranslationService) History(ctx context.Context, req *HistoryRequest) (*HistoryResponse, error) {
	if s.sessions == nil {
		return nil, invalid("sessions are not enabled")
	}
	entries, ok := s.sessions.History(req.SessionID)
	if !ok {
		return nil, fmt.Errorf("%w: session %s", ErrSessionNotFound, req.SessionID)
	}
	return &HistoryResponse{SessionID: req.SessionID, Entries: entries}, nil
}

// ClearHistory empties a session's conversation history.
func (s *TranslationService) ClearHistory(ctx context.Context, req *HistoryRequest) error {
	if s.sessions == nil || !s.sessions.Clear(req.SessionID) {
		return fmt.Errorf("%w: session %s", ErrSessionNotFound, req.SessionID)
	}
	return nil
}

// CheckReady probes every backend. The service is ready when at least one
// backend answers.
func (s *TranslationService) CheckReady(ctx context.Context) *ReadyResponse {
	resp := &ReadyResponse{Backends: make(map[string]string, len(s.backends))}
	for _, b := range s.backends {
		if err := b.CheckHealth(ctx); err != nil {
			s.logger.WithError(err).WithField("backend", b.Name()).Warn("Backend health check failed")
			resp.Backends[b.Name()] = translate.ErrorKind(err)
			continue
		}
		resp.Backends[b.Name()] = "ok"
		resp.Ready = true
	}
	return resp
}
