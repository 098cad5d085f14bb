package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dasmlab/polyglot/pkg/pipeline"
	"github.com/dasmlab/polyglot/pkg/translate"
)

// CulturalNotesDelimiter separates the task answer from cultural notes in the
// model's reply.
const CulturalNotesDelimiter = "\n---CULTURAL_NOTES---\n"

// Built-in task names.
const (
	TaskSummarize      = "summarize"
	TaskSentiment      = "sentiment"
	TaskImproveWriting = "improve"
)

var taskTemplates = map[string]string{
	TaskSummarize: "You are a translator-assistant. Summarize the following text translated from {source_lang} " +
		"into {target_lang}. Provide a concise summary.",
	TaskSentiment: "You are a translator-assistant. Translate from {source_lang} to {target_lang} " +
		"and provide a brief sentiment analysis.",
	TaskImproveWriting: "You are a translator-assistant. Translate from {source_lang} to {target_lang} " +
		"and improve the writing to be clearer and more professional.",
}

var taskAliases = map[string]string{
	"summarize":         TaskSummarize,
	"summary":           TaskSummarize,
	"analyze sentiment": TaskSentiment,
	"sentiment":         TaskSentiment,
	"improve writing":   TaskImproveWriting,
	"improve":           TaskImproveWriting,
}

var culturalNoteInstruction = "When relevant, provide brief cultural context or register notes " +
	"(formality, idioms, cultural references). ALWAYS append the cultural notes separated from the main " +
	"response using the exact delimiter: " + CulturalNotesDelimiter

var englishIndicators = map[string]bool{
	"my": true, "name": true, "is": true, "i": true, "am": true, "the": true, "hello": true,
}

var (
	// ErrInvalidRequest marks caller mistakes: missing text, unknown task.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrTranslationFailed is returned when no backend produced a translation.
	ErrTranslationFailed = errors.New("translation failed")
)

// Completer sends a prompt to the language model.
type Completer interface {
	Complete(ctx context.Context, req translate.CompletionRequest) (string, error)
}

// Translator is the part of the pipeline the service layer drives.
type Translator interface {
	Translate(ctx context.Context, text, targetLang, sourceLang string) pipeline.Result
	Detect(ctx context.Context, text string) string
}

// TaskRequest asks for text to be translated and then processed by the model.
type TaskRequest struct {
	SessionID  string `json:"session_id"`
	Text       string `json:"text"`
	TargetLang string `json:"target_lang"`
	SourceLang string `json:"source_lang"`
	// Task names a built-in task; Template, when set, overrides it and may
	// use {source_lang} and {target_lang}.
	Task     string `json:"task"`
	Template string `json:"template"`
	// Reverse also translates the translation back into the source language.
	Reverse bool `json:"reverse"`
}

// TaskResult is the outcome of a processed task.
type TaskResult struct {
	Detected           string  `json:"detected"`
	Translated         string  `json:"translated"`
	Result             string  `json:"result"`
	CulturalNotes      *string `json:"cultural_notes"`
	ReverseTranslation *string `json:"reverse_translation,omitempty"`
}

// TaskProcessor runs the two-stage flow: translate the user's text, then hand
// the translation to the model under a task prompt.
type TaskProcessor struct {
	translator Translator
	completer  Completer
	sessions   *SessionStore
	logger     *logrus.Logger
}

// NewTaskProcessor creates a TaskProcessor. sessions may be nil to skip history.
func NewTaskProcessor(translator Translator, completer Completer, sessions *SessionStore, logger *logrus.Logger) *TaskProcessor {
	if logger == nil {
		logger = logrus.New()
	}
	return &TaskProcessor{
		translator: translator,
		completer:  completer,
		sessions:   sessions,
		logger:     logger,
	}
}

// TaskTemplate returns the prompt template for a built-in task name. Both the
// short names and the display names ("Analyze Sentiment") are accepted.
func TaskTemplate(name string) (string, bool) {
	key, ok := taskAliases[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return "", false
	}
	return taskTemplates[key], true
}

// RenderTemplate fills the language placeholders of a task template.
func RenderTemplate(template, sourceLang, targetLang string) string {
	return strings.NewReplacer("{source_lang}", sourceLang, "{target_lang}", targetLang).Replace(template)
}

// SplitCulturalNotes separates the answer from the notes at the first delimiter.
func SplitCulturalNotes(reply string) (string, *string) {
	reply = strings.TrimSpace(reply)
	main, notes, found := strings.Cut(reply, CulturalNotesDelimiter)
	if !found {
		return reply, nil
	}
	notes = strings.TrimSpace(notes)
	return strings.TrimSpace(main), &notes
}

// looksEnglish reports whether a short text contains common English words.
// Statistical detectors often misread greetings such as "My name is Ana".
func looksEnglish(text string) bool {
	words := strings.Fields(strings.ToLower(text))
	if len(words) == 0 || len(words) > 6 {
		return false
	}
	for _, w := range words {
		if englishIndicators[strings.Trim(w, ".,!?;:'\"")] {
			return true
		}
	}
	return false
}

// Process runs a task and records it in the session history.
func (p *TaskProcessor) Process(ctx context.Context, req TaskRequest) (*TaskResult, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, fmt.Errorf("%w: text is required", ErrInvalidRequest)
	}
	template := req.Template
	if template == "" {
		var ok bool
		if template, ok = TaskTemplate(req.Task); !ok {
			return nil, fmt.Errorf("%w: unknown task %q", ErrInvalidRequest, req.Task)
		}
	}
	targetLang := req.TargetLang
	if translate.IsAuto(targetLang) {
		targetLang = "en"
	}

	logger := p.logger.WithFields(logrus.Fields{
		"session_id":  req.SessionID,
		"target_lang": targetLang,
		"task":        req.Task,
	})

	// Detect once here; the resolved code goes to Translate as the source.
	sourceLang := req.SourceLang
	if translate.IsAuto(sourceLang) {
		detected := p.translator.Detect(ctx, req.Text)
		switch {
		case detected != "en" && looksEnglish(req.Text):
			logger.WithField("detected", detected).Debug("Short English text, overriding detection")
			sourceLang = "en"
		case detected != translate.UndeterminedLanguage:
			sourceLang = detected
		}
	}

	res := p.translator.Translate(ctx, req.Text, targetLang, sourceLang)
	if !res.OK() {
		logger.Error("Task translation step failed")
		return nil, ErrTranslationFailed
	}
	translated := res.Text()

	system := RenderTemplate(template, res.DetectedSource, targetLang) + "\n\n" + culturalNoteInstruction
	reply, err := p.completer.Complete(ctx, translate.CompletionRequest{
		Operation:   "task",
		System:      system,
		User:        translated,
		Temperature: 0.7,
		MaxTokens:   400,
	})
	if err != nil {
		logger.WithError(err).WithField("kind", translate.ErrorKind(err)).Error("Task completion failed")
		return nil, fmt.Errorf("task completion: %w", err)
	}
	answer, notes := SplitCulturalNotes(reply)

	result := &TaskResult{
		Detected:      res.DetectedSource,
		Translated:    translated,
		Result:        answer,
		CulturalNotes: notes,
	}

	if req.Reverse && res.DetectedSource != translate.UndeterminedLanguage {
		back := p.translator.Translate(ctx, translated, res.DetectedSource, targetLang)
		if back.OK() {
			result.ReverseTranslation = back.Translated
		} else {
			logger.Warn("Reverse translation failed")
		}
	}

	if p.sessions != nil && req.SessionID != "" {
		p.sessions.Append(req.SessionID, ConversationEntry{
			User:               req.Text,
			Source:             res.DetectedSource,
			Translated:         translated,
			Assistant:          answer,
			CulturalNotes:      notes,
			ReverseTranslation: result.ReverseTranslation,
			CreatedAt:          time.Now(),
		})
	}

	logger.WithFields(logrus.Fields{
		"detected":   res.DetectedSource,
		"with_notes": notes != nil,
	}).Info("Task processed")
	return result, nil
}
