package service

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dasmlab/polyglot/pkg/translate"
)

func newTestQueue(backend translate.Translator) *JobQueue {
	queue := NewJobQueue(quietLogger())
	queue.SetProcessor(NewJobProcessor(newTestPipeline(backend, "en"), nil, quietLogger()))
	return queue
}

func TestJobQueue_CompletesDocument(t *testing.T) {
	queue := newTestQueue(&tagBackend{})

	text := strings.Repeat("word ", 3) + "\n\n" + "second paragraph"
	id, err := queue.CreateJob(DocumentRequest{
		RequestID:  "req-1",
		Title:      "Title",
		Text:       text,
		SourceLang: "EN",
		TargetLang: "fr-CA",
	})
	if err != nil {
		t.Fatal(err)
	}
	queue.Wait()

	job, err := queue.GetJob(id)
	if err != nil {
		t.Fatal(err)
	}
	snap := job.Snapshot()
	if snap.Status != JobStatusCompleted || snap.ProgressPercent != 100 {
		t.Fatalf("snapshot = %+v", snap)
	}
	if snap.TranslatedTitle != "[fr]Title" {
		t.Errorf("title = %q", snap.TranslatedTitle)
	}
	want := "[fr]word word word\n\n[fr]second paragraph"
	if snap.TranslatedText != want {
		t.Errorf("text = %q, want %q", snap.TranslatedText, want)
	}
	if snap.DetectedSource != "en" || snap.RequestID != "req-1" || snap.StartedAt == nil || snap.CompletedAt == nil {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestJobQueue_FailedChunkFailsJob(t *testing.T) {
	queue := newTestQueue(&tagBackend{failOn: "broken"})

	id, err := queue.CreateJob(DocumentRequest{Text: "fine\n\nbroken part", TargetLang: "de"})
	if err != nil {
		t.Fatal(err)
	}
	queue.Wait()

	job, _ := queue.GetJob(id)
	snap := job.Snapshot()
	if snap.Status != JobStatusFailed || snap.TranslatedText != "" || snap.Error == "" {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestJobQueue_Validation(t *testing.T) {
	queue := NewJobQueue(quietLogger())
	if _, err := queue.CreateJob(DocumentRequest{TargetLang: "fr"}); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("missing text: %v", err)
	}
	if _, err := queue.CreateJob(DocumentRequest{Text: "hi"}); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("missing target: %v", err)
	}
	if _, err := queue.GetJob("nope"); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("unknown job: %v", err)
	}
}

func TestJobQueue_CleanupOldJobs(t *testing.T) {
	queue := newTestQueue(&tagBackend{})
	id, _ := queue.CreateJob(DocumentRequest{Text: "hello", TargetLang: "es"})
	queue.Wait()

	if n := queue.CleanupOldJobs(time.Hour); n != 0 {
		t.Errorf("removed %d recent jobs", n)
	}
	time.Sleep(5 * time.Millisecond)
	if n := queue.CleanupOldJobs(time.Millisecond); n != 1 {
		t.Errorf("removed %d, want 1", n)
	}
	if _, err := queue.GetJob(id); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("job should be gone: %v", err)
	}
}

func TestJobQueue_QueuedWithoutProcessor(t *testing.T) {
	queue := NewJobQueue(quietLogger())
	id, err := queue.CreateJob(DocumentRequest{Text: "hello", TargetLang: "es"})
	if err != nil {
		t.Fatal(err)
	}
	job, _ := queue.GetJob(id)
	if s := job.Snapshot().Status; s != JobStatusQueued {
		t.Errorf("status = %s", s)
	}
	if n := queue.CleanupOldJobs(0); n != 0 {
		t.Error("unfinished jobs must not be cleaned up")
	}
}
