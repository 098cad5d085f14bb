// Package app assembles the backends, detector, pipeline and service layer
// from a loaded Config. The server and the CLI share it.
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dasmlab/polyglot/pkg/config"
	"github.com/dasmlab/polyglot/pkg/detect"
	"github.com/dasmlab/polyglot/pkg/pipeline"
	"github.com/dasmlab/polyglot/pkg/service"
	"github.com/dasmlab/polyglot/pkg/translate"
)

// App holds the wired components.
type App struct {
	Config    *config.Config
	Logger    *logrus.Logger
	LLM       *translate.LLMClient
	Secondary translate.Translator
	Detector  *detect.Detector
	Pipeline  *pipeline.Pipeline
	Sessions  *service.SessionStore
	Jobs      *service.JobQueue
	Service   *service.TranslationService
	// Glossary is the default glossary loaded from pipeline.glossary_file.
	Glossary pipeline.Glossary
}

// New builds every component. Only configuration mistakes fail here; a
// missing API key or an unreachable engine is logged and handled at call time.
func New(cfg *config.Config, logger *logrus.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger}

	if cfg.LLM.Enabled {
		a.LLM = translate.NewLLMClient(translate.LLMConfig{
			APIKey:            cfg.LLM.APIKey,
			BaseURL:           cfg.LLM.BaseURL,
			Model:             cfg.LLM.Model,
			Timeout:           cfg.LLM.Timeout,
			RequestsPerSecond: cfg.LLM.RequestsPerSecond,
			Logger:            logger,
		})
	}

	engine, err := translate.ParseEngineType(cfg.Fallback.Engine)
	if err != nil {
		return nil, err
	}
	a.Secondary, err = translate.NewTranslator(translate.Config{
		Engine:  engine,
		BaseURL: cfg.Fallback.URL,
		APIKey:  cfg.Fallback.APIKey,
		Timeout: cfg.Fallback.Timeout,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}

	if cfg.Pipeline.GlossaryFile != "" {
		a.Glossary, err = pipeline.LoadGlossaryFile(cfg.Pipeline.GlossaryFile)
		if err != nil {
			return nil, fmt.Errorf("load glossary: %w", err)
		}
		logger.WithFields(logrus.Fields{
			"path":    cfg.Pipeline.GlossaryFile,
			"entries": len(a.Glossary),
		}).Info("Loaded default glossary")
	}

	a.Detector = detect.New(newStatistical(cfg.Detector.Engine), detect.Options{
		ShortText:         a.shortTextDetector(),
		ShortTextMaxWords: cfg.Detector.ShortTextMaxWords,
		Logger:            logger,
	})

	deps := pipeline.Deps{
		Secondary: a.Secondary,
		Detector:  a.Detector,
		Logger:    logger,
	}
	backends := []translate.Translator{}
	if a.llmReady() {
		deps.Primary = a.LLM
		deps.Pronouncer = a.LLM
		backends = append(backends, a.LLM)
	}
	backends = append(backends, a.Secondary)

	a.Pipeline = pipeline.New(deps, pipeline.Options{
		ChunkSize:   cfg.Pipeline.ChunkSize,
		Concurrency: cfg.Pipeline.Concurrency,
		CallTimeout: cfg.Pipeline.CallTimeout,
	})

	a.Sessions = service.NewSessionStore(cfg.Sessions.MaxHistory, logger)
	a.Jobs = service.NewJobQueue(logger)
	a.Jobs.SetProcessor(service.NewJobProcessor(a.Pipeline, nil, logger))

	var tasks *service.TaskProcessor
	if a.llmReady() {
		tasks = service.NewTaskProcessor(a.Pipeline, a.LLM, a.Sessions, logger)
	}

	a.Service = service.NewTranslationService(service.Deps{
		Pipeline:        a.Pipeline,
		Detector:        a.Detector,
		Jobs:            a.Jobs,
		Tasks:           tasks,
		Sessions:        a.Sessions,
		Backends:        backends,
		Logger:          logger,
		Glossary:        a.Glossary,
		BackTranslation: cfg.Pipeline.BackTranslation,
		MaxBatchSize:    cfg.Pipeline.MaxBatchSize,
	})

	logger.WithFields(logrus.Fields{
		"primary":     a.llmReady(),
		"secondary":   a.Secondary.Name(),
		"detector":    cfg.Detector.Engine,
		"chunk_size":  cfg.Pipeline.ChunkSize,
		"concurrency": cfg.Pipeline.Concurrency,
	}).Info("Translation pipeline ready")
	return a, nil
}

func (a *App) llmReady() bool {
	return a.LLM != nil && a.LLM.Available()
}

// shortTextDetector returns nil unless the LLM may answer short-text detection.
func (a *App) shortTextDetector() detect.ShortText {
	if !a.Config.Detector.LLMShortText || !a.llmReady() {
		return nil
	}
	return a.LLM
}

func newStatistical(engine string) detect.Statistical {
	if strings.EqualFold(engine, "whatlang") {
		return detect.NewWhatlang()
	}
	return detect.NewLingua()
}

// RunCleanup evicts idle sessions and finished jobs every interval until ctx ends.
func (a *App) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			sessions := a.Sessions.CleanupExpiredSessions(a.Config.Sessions.MaxIdle)
			jobs := a.Jobs.CleanupOldJobs(a.Config.Jobs.MaxAge)
			if sessions > 0 || jobs > 0 {
				a.Logger.WithFields(logrus.Fields{
					"sessions": sessions,
					"jobs":     jobs,
				}).Debug("Cleanup evicted expired entries")
			}
		case <-ctx.Done():
			return
		}
	}
}
