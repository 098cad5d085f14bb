package service

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/dasmlab/polyglot/pkg/pipeline"
)

func TestSplitCulturalNotes(t *testing.T) {
	main, notes := SplitCulturalNotes("Processed summary.\n---CULTURAL_NOTES---\nInformal register preferred.\n")
	if main != "Processed summary." {
		t.Errorf("main = %q", main)
	}
	if notes == nil || *notes != "Informal register preferred." {
		t.Errorf("notes = %v", notes)
	}

	main, notes = SplitCulturalNotes("  no notes here ")
	if main != "no notes here" || notes != nil {
		t.Errorf("got %q, %v", main, notes)
	}
}

func TestTaskTemplate(t *testing.T) {
	for _, name := range []string{"Summarize", "summarize", "Analyze Sentiment", "Improve Writing", "improve"} {
		if _, ok := TaskTemplate(name); !ok {
			t.Errorf("TaskTemplate(%q) not found", name)
		}
	}
	if _, ok := TaskTemplate("dance"); ok {
		t.Error("unknown task should not resolve")
	}
	got := RenderTemplate("from {source_lang} to {target_lang}", "es", "en")
	if got != "from es to en" {
		t.Errorf("RenderTemplate = %q", got)
	}
}

func TestLooksEnglish(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"My name is Ana", true},
		{"Hello!", true},
		{"Hola mundo", false},
		{"this sentence is far too long to count as short", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := looksEnglish(tt.text); got != tt.want {
			t.Errorf("looksEnglish(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestTaskProcessor_Process(t *testing.T) {
	backend := &tagBackend{}
	sessions := NewSessionStore(0, quietLogger())
	completer := &stubCompleter{reply: "Processed summary text.\n---CULTURAL_NOTES---\nNote: informal register."}
	proc := NewTaskProcessor(newTestPipeline(backend, "es"), completer, sessions, quietLogger())

	res, err := proc.Process(context.Background(), TaskRequest{
		SessionID:  "s1",
		Text:       "Hola mundo",
		TargetLang: "en",
		SourceLang: "auto",
		Task:       "Summarize",
		Reverse:    true,
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.Detected != "es" || res.Translated != "[en]Hola mundo" {
		t.Errorf("result = %+v", res)
	}
	if res.Result != "Processed summary text." || res.CulturalNotes == nil || *res.CulturalNotes != "Note: informal register." {
		t.Errorf("result = %+v", res)
	}
	if res.ReverseTranslation == nil || *res.ReverseTranslation != "Hola mundo" {
		t.Errorf("reverse = %v", res.ReverseTranslation)
	}

	if completer.last.User != "[en]Hola mundo" {
		t.Errorf("completer got user prompt %q", completer.last.User)
	}
	if !strings.Contains(completer.last.System, "from es into en") || !strings.Contains(completer.last.System, CulturalNotesDelimiter) {
		t.Errorf("system prompt = %q", completer.last.System)
	}

	history, _ := sessions.History("s1")
	if len(history) != 1 || history[0].User != "Hola mundo" || history[0].Assistant != "Processed summary text." {
		t.Errorf("history = %+v", history)
	}
}

func TestTaskProcessor_ShortEnglishOverride(t *testing.T) {
	backend := &tagBackend{}
	completer := &stubCompleter{reply: "ok"}
	proc := NewTaskProcessor(newTestPipeline(backend, "de"), completer, nil, quietLogger())

	res, err := proc.Process(context.Background(), TaskRequest{
		Text:       "My name is Ana",
		TargetLang: "fr",
		Template:   "Translate from {source_lang} to {target_lang}.",
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Detected != "en" {
		t.Errorf("detected = %q, want en", res.Detected)
	}
	if !strings.HasPrefix(completer.last.System, "Translate from en to fr.") {
		t.Errorf("system prompt = %q", completer.last.System)
	}
}

// countingIdentifier reports a fixed language and counts detections.
type countingIdentifier struct {
	code  string
	calls atomic.Int32
}

func (c *countingIdentifier) Detect(context.Context, string) (string, bool) {
	c.calls.Add(1)
	return c.code, true
}

func TestTaskProcessor_DetectsOnce(t *testing.T) {
	detector := &countingIdentifier{code: "es"}
	backend := &tagBackend{}
	p := pipeline.New(pipeline.Deps{Primary: backend, Detector: detector, Logger: quietLogger()}, pipeline.Options{})
	proc := NewTaskProcessor(p, &stubCompleter{reply: "ok"}, nil, quietLogger())

	res, err := proc.Process(context.Background(), TaskRequest{Text: "Buenos días a todos", TargetLang: "en", Task: "summarize"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Detected != "es" {
		t.Errorf("detected = %q", res.Detected)
	}
	if n := detector.calls.Load(); n != 1 {
		t.Errorf("text detected %d times, want 1", n)
	}
}

func TestTaskProcessor_Errors(t *testing.T) {
	completer := &stubCompleter{reply: "ok"}
	proc := NewTaskProcessor(newTestPipeline(&tagBackend{}, "es"), completer, nil, quietLogger())

	if _, err := proc.Process(context.Background(), TaskRequest{Text: " ", Task: "summarize"}); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("blank text: %v", err)
	}
	if _, err := proc.Process(context.Background(), TaskRequest{Text: "hola", Task: "dance"}); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("unknown task: %v", err)
	}

	failing := NewTaskProcessor(newTestPipeline(&tagBackend{failOn: "hola"}, "es"), completer, nil, quietLogger())
	if _, err := failing.Process(context.Background(), TaskRequest{Text: "hola", Task: "summarize"}); !errors.Is(err, ErrTranslationFailed) {
		t.Errorf("translation failure: %v", err)
	}

	broken := &stubCompleter{err: errors.New("model down")}
	proc = NewTaskProcessor(newTestPipeline(&tagBackend{}, "es"), broken, nil, quietLogger())
	if _, err := proc.Process(context.Background(), TaskRequest{Text: "hola", Task: "summarize"}); err == nil {
		t.Error("expected completion error")
	}
}
