// Package detect identifies the language of a piece of text.
//
// A Detector combines a statistical engine (lingua-go or whatlanggo) with an
// optional LLM-backed detector that is consulted first for very short inputs,
// where n-gram statistics are unreliable. Detection never fails loudly: every
// internal error is logged and reported as "no result".
package detect

import (
	"context"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/dasmlab/polyglot/pkg/translate"
)

// DefaultShortTextMaxWords is the largest whitespace token count routed to the
// short-text detector.
const DefaultShortTextMaxWords = 6

// Candidate is one entry of a language probability distribution.
type Candidate struct {
	Code        string  `json:"code"`
	Probability float64 `json:"probability"`
}

// Statistical is an offline language classifier.
type Statistical interface {
	Name() string
	// Detect returns the ISO 639-1 code of text, or false when the text
	// cannot be classified.
	Detect(text string) (string, bool)
	// Candidates returns the probability distribution over languages, highest first.
	Candidates(text string) []Candidate
}

// ShortText is a detector for inputs too short for statistics, usually an LLM.
type ShortText interface {
	DetectLanguage(ctx context.Context, text string) (string, error)
}

// Options configures a Detector.
type Options struct {
	// ShortText is consulted first for inputs of at most ShortTextMaxWords tokens.
	// Nil disables the short-text path.
	ShortText         ShortText
	ShortTextMaxWords int
	Logger            *logrus.Logger
}

// Detector is the language detector used by the pipeline.
type Detector struct {
	stat     Statistical
	short    ShortText
	maxWords int
	logger   *logrus.Logger
}

// New creates a Detector over the given statistical engine.
func New(stat Statistical, opts Options) *Detector {
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	if opts.ShortTextMaxWords <= 0 {
		opts.ShortTextMaxWords = DefaultShortTextMaxWords
	}
	return &Detector{
		stat:     stat,
		short:    opts.ShortText,
		maxWords: opts.ShortTextMaxWords,
		logger:   opts.Logger,
	}
}

// Detect returns the language code of text. The bool is false when neither
// path produced a code; callers substitute translate.UndeterminedLanguage.
func (d *Detector) Detect(ctx context.Context, text string) (string, bool) {
	if d.short != nil && len(strings.Fields(text)) <= d.maxWords {
		code, err := d.short.DetectLanguage(ctx, text)
		code = strings.ToLower(strings.TrimSpace(code))
		if err == nil && code != "" && code != translate.UndeterminedLanguage {
			translate.RecordDetection("llm", true)
			return code, true
		}
		translate.RecordDetection("llm", false)
		d.logger.WithFields(logrus.Fields{
			"error_kind": translate.ErrorKind(err),
		}).Debug("Short-text detection gave no result, using statistical detector")
	}

	if d.stat == nil {
		return "", false
	}
	code, ok := d.stat.Detect(text)
	translate.RecordDetection("statistical", ok)
	if !ok {
		d.logger.WithFields(logrus.Fields{
			"engine":      d.stat.Name(),
			"text_length": len(text),
			"error_kind":  translate.ErrorKind(translate.ErrDetectionFailed),
		}).Debug("Statistical detector could not classify text")
		return "", false
	}
	return code, true
}

// DetectOrUnd is Detect with the "und" sentinel substituted for no result.
func (d *Detector) DetectOrUnd(ctx context.Context, text string) string {
	if code, ok := d.Detect(ctx, text); ok {
		return code
	}
	return translate.UndeterminedLanguage
}

// Candidates returns up to topN candidates from the statistical engine,
// highest probability first. It returns an empty slice when nothing matches.
func (d *Detector) Candidates(ctx context.Context, text string, topN int) []Candidate {
	if d.stat == nil || topN <= 0 {
		return []Candidate{}
	}
	all := d.stat.Candidates(text)
	out := make([]Candidate, 0, min(topN, len(all)))
	for _, c := range all {
		if c.Code == "" || c.Probability <= 0 {
			continue
		}
		p := c.Probability
		if p > 1 {
			p = 1
		}
		out = append(out, Candidate{Code: c.Code, Probability: p})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Probability > out[j].Probability })
	if len(out) > topN {
		out = out[:topN]
	}
	return out
}
