package detect

import (
	"strings"

	"github.com/pemistahl/lingua-go"
)

// Lingua is the default statistical engine. It is expensive to build; create
// one per process and share it.
type Lingua struct {
	detector lingua.LanguageDetector
}

// NewLingua builds a lingua-go detector. With no languages it loads all of them.
func NewLingua(languages ...lingua.Language) *Lingua {
	builder := lingua.NewLanguageDetectorBuilder()
	var detector lingua.LanguageDetector
	if len(languages) < 2 {
		detector = builder.FromAllLanguages().Build()
	} else {
		detector = builder.FromLanguages(languages...).Build()
	}
	return &Lingua{detector: detector}
}

func (l *Lingua) Name() string { return "lingua" }

func (l *Lingua) Detect(text string) (string, bool) {
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	lang, ok := l.detector.DetectLanguageOf(text)
	if !ok {
		return "", false
	}
	return isoCode(lang), true
}

func (l *Lingua) Candidates(text string) []Candidate {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	values := l.detector.ComputeLanguageConfidenceValues(text)
	out := make([]Candidate, 0, len(values))
	for _, v := range values {
		out = append(out, Candidate{Code: isoCode(v.Language()), Probability: v.Value()})
	}
	return out
}

func isoCode(lang lingua.Language) string {
	return strings.ToLower(lang.IsoCode639_1().String())
}
