package service

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/dasmlab/polyglot/pkg/pipeline"
	"github.com/dasmlab/polyglot/pkg/translate"
)

// JobStatus represents the status of a document job.
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

var (
	// ErrJobNotFound is returned for unknown or expired job IDs.
	ErrJobNotFound = errors.New("job not found")
	// ErrSessionNotFound is returned for unknown or expired session IDs.
	ErrSessionNotFound = errors.New("session not found")
)

// DocumentRequest submits a long document for asynchronous translation.
type DocumentRequest struct {
	RequestID  string            `json:"request_id"`
	Title      string            `json:"title"`
	Text       string            `json:"text"`
	SourceLang string            `json:"source_lang"`
	TargetLang string            `json:"target_lang"`
	Glossary   map[string]string `json:"glossary,omitempty"`
}

// DocumentJob is an asynchronous document translation.
type DocumentJob struct {
	ID        string
	RequestID string
	CreatedAt time.Time

	Title      string
	Text       string
	SourceLang string
	TargetLang string
	Glossary   pipeline.Glossary

	mu              sync.RWMutex
	status          JobStatus
	startedAt       *time.Time
	completedAt     *time.Time
	err             string
	translatedTitle string
	translatedText  string
	detectedSource  string
	progressPercent int32
	progressMessage string
}

// JobSnapshot is a consistent copy of a job's state.
type JobSnapshot struct {
	JobID           string     `json:"job_id"`
	RequestID       string     `json:"request_id,omitempty"`
	Status          JobStatus  `json:"status"`
	ProgressPercent int32      `json:"progress_percent"`
	ProgressMessage string     `json:"progress_message"`
	CreatedAt       time.Time  `json:"created_at"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	Error           string     `json:"error,omitempty"`
	DetectedSource  string     `json:"detected_source,omitempty"`
	TranslatedTitle string     `json:"translated_title,omitempty"`
	TranslatedText  string     `json:"translated_text,omitempty"`
}

// JobQueue tracks document jobs and hands them to a processor.
type JobQueue struct {
	jobs      map[string]*DocumentJob
	jobsMu    sync.RWMutex
	logger    *logrus.Logger
	processor *JobProcessor
	running   sync.WaitGroup
}

// NewJobQueue creates a new job queue.
func NewJobQueue(logger *logrus.Logger) *JobQueue {
	if logger == nil {
		logger = logrus.New()
	}
	return &JobQueue{
		jobs:   make(map[string]*DocumentJob),
		logger: logger,
	}
}

// SetProcessor sets the job processor for this queue.
func (q *JobQueue) SetProcessor(processor *JobProcessor) {
	q.processor = processor
}

// CreateJob validates req, stores a queued job and starts it when a
// processor is set.
func (q *JobQueue) CreateJob(req DocumentRequest) (string, error) {
	if strings.TrimSpace(req.Text) == "" {
		return "", fmt.Errorf("%w: text is required", ErrInvalidRequest)
	}
	if strings.TrimSpace(req.TargetLang) == "" {
		return "", fmt.Errorf("%w: target_lang is required", ErrInvalidRequest)
	}

	job := &DocumentJob{
		ID:         uuid.New().String(),
		RequestID:  req.RequestID,
		CreatedAt:  time.Now(),
		Title:      req.Title,
		Text:       req.Text,
		SourceLang: req.SourceLang,
		TargetLang: req.TargetLang,
		Glossary:   pipeline.Glossary(req.Glossary),
		status:     JobStatusQueued,
	}

	q.jobsMu.Lock()
	q.jobs[job.ID] = job
	q.jobsMu.Unlock()

	q.logger.WithFields(logrus.Fields{
		"job_id":      job.ID,
		"request_id":  req.RequestID,
		"text_length": len(req.Text),
	}).Info("Created document job")

	if q.processor != nil {
		q.running.Add(1)
		go func() {
			defer q.running.Done()
			q.processor.ProcessJob(job)
		}()
	}
	return job.ID, nil
}

// GetJob retrieves a job by ID.
func (q *JobQueue) GetJob(jobID string) (*DocumentJob, error) {
	q.jobsMu.RLock()
	defer q.jobsMu.RUnlock()

	job, exists := q.jobs[jobID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	return job, nil
}

// Wait blocks until every started job has finished.
func (q *JobQueue) Wait() {
	q.running.Wait()
}

// UpdateStatus moves the job to status with a progress message.
func (j *DocumentJob) UpdateStatus(status JobStatus, message string) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.status = status
	j.progressMessage = message

	now := time.Now()
	switch status {
	case JobStatusProcessing:
		if j.startedAt == nil {
			j.startedAt = &now
		}
	case JobStatusCompleted, JobStatusFailed:
		if j.completedAt == nil {
			j.completedAt = &now
		}
	}
}

// UpdateProgress updates the progress of a job.
func (j *DocumentJob) UpdateProgress(percent int32, message string) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.progressPercent = percent
	j.progressMessage = message
}

// SetError marks the job failed.
func (j *DocumentJob) SetError(err error, detected string) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.err = err.Error()
	j.status = JobStatusFailed
	j.detectedSource = detected
	now := time.Now()
	j.completedAt = &now
	translate.RecordJob(string(JobStatusFailed))
}

// SetResult marks the job completed with its translation.
func (j *DocumentJob) SetResult(title, text, detected string) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.translatedTitle = title
	j.translatedText = text
	j.detectedSource = detected
	j.status = JobStatusCompleted
	now := time.Now()
	j.completedAt = &now
	j.progressPercent = 100
	translate.RecordJob(string(JobStatusCompleted))
}

// Snapshot returns a copy of the job state.
func (j *DocumentJob) Snapshot() JobSnapshot {
	j.mu.RLock()
	defer j.mu.RUnlock()

	return JobSnapshot{
		JobID:           j.ID,
		RequestID:       j.RequestID,
		Status:          j.status,
		ProgressPercent: j.progressPercent,
		ProgressMessage: j.progressMessage,
		CreatedAt:       j.CreatedAt,
		StartedAt:       j.startedAt,
		CompletedAt:     j.completedAt,
		Error:           j.err,
		DetectedSource:  j.detectedSource,
		TranslatedTitle: j.translatedTitle,
		TranslatedText:  j.translatedText,
	}
}

func (j *DocumentJob) finishedBefore(t time.Time) bool {
	j.mu.RLock()
	defer j.mu.RUnlock()

	if j.status != JobStatusCompleted && j.status != JobStatusFailed {
		return false
	}
	return j.completedAt != nil && j.completedAt.Before(t)
}

// CleanupOldJobs removes finished jobs older than maxAge and returns how many
// were removed.
func (q *JobQueue) CleanupOldJobs(maxAge time.Duration) int {
	q.jobsMu.Lock()
	defer q.jobsMu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for id, job := range q.jobs {
		if job.finishedBefore(cutoff) {
			delete(q.jobs, id)
			removed++
		}
	}

	if removed > 0 {
		q.logger.WithFields(logrus.Fields{
			"removed":   removed,
			"remaining": len(q.jobs),
		}).Info("Cleaned up old document jobs")
	}
	return removed
}
