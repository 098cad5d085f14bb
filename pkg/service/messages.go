package service

import (
	"time"

	"github.com/dasmlab/polyglot/pkg/detect"
	"github.com/dasmlab/polyglot/pkg/pipeline"
)

// TranslateRequest translates one text. A glossary or LongText routes the
// text through chunked long-text translation.
type TranslateRequest struct {
	Text       string            `json:"text"`
	TargetLang string            `json:"target_lang"`
	SourceLang string            `json:"source_lang,omitempty"`
	Glossary   map[string]string `json:"glossary,omitempty"`
	LongText   bool              `json:"long_text,omitempty"`
}

// TranslateResponse reports a translation in-band: Success is false and
// Translated nil when every backend failed.
type TranslateResponse struct {
	Success        bool      `json:"success"`
	Translated     *string   `json:"translated"`
	DetectedSource string    `json:"detected_source"`
	Message        string    `json:"message,omitempty"`
	CompletedAt    time.Time `json:"completed_at"`
}

// BatchRequest translates several texts independently.
type BatchRequest struct {
	Texts         []string          `json:"texts"`
	TargetLang    string            `json:"target_lang"`
	SourceLang    string            `json:"source_lang,omitempty"`
	Glossary      map[string]string `json:"glossary,omitempty"`
	Pronunciation bool              `json:"pronunciation,omitempty"`
	// BackTranslation overrides the server default when set.
	BackTranslation *bool `json:"back_translation,omitempty"`
}

// BatchResponse holds one item per input text, in input order.
type BatchResponse struct {
	Items []pipeline.BatchItem `json:"items"`
}

// DetectRequest asks for the language of a text and optionally the top
// candidates of the probability distribution.
type DetectRequest struct {
	Text string `json:"text"`
	TopN int    `json:"top_n,omitempty"`
}

// DetectResponse carries "und" in Language when nothing was detected.
type DetectResponse struct {
	Language   string             `json:"language"`
	Detected   bool               `json:"detected"`
	Candidates []detect.Candidate `json:"candidates,omitempty"`
}

// DocumentResponse returns the ID of a submitted document job.
type DocumentResponse struct {
	JobID string `json:"job_id"`
}

// JobRequest looks up a document job.
type JobRequest struct {
	JobID string `json:"job_id"`
}

// ReadyResponse reports backend health.
type ReadyResponse struct {
	Ready    bool              `json:"ready"`
	Backends map[string]string `json:"backends"`
}

// HistoryRequest addresses a session's conversation history.
type HistoryRequest struct {
	SessionID string `json:"session_id"`
}

// HistoryResponse lists a session's entries, oldest first.
type HistoryResponse struct {
	SessionID string              `json:"session_id"`
	Entries   []ConversationEntry `json:"entries"`
}
