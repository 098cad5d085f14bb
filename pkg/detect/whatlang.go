package detect

import (
	"strings"

	"github.com/abadojack/whatlanggo"
)

// Whatlang is a lightweight trigram engine with a small memory footprint. It
// only reports its single best guess, so Candidates has at most one entry.
type Whatlang struct {
	options whatlanggo.Options
}

// NewWhatlang creates the engine.
func NewWhatlang() *Whatlang {
	return &Whatlang{}
}

func (w *Whatlang) Name() string { return "whatlang" }

func (w *Whatlang) Detect(text string) (string, bool) {
	info, ok := w.detect(text)
	if !ok {
		return "", false
	}
	return info.Lang.Iso6391(), true
}

func (w *Whatlang) Candidates(text string) []Candidate {
	info, ok := w.detect(text)
	if !ok {
		return nil
	}
	return []Candidate{{Code: info.Lang.Iso6391(), Probability: info.Confidence}}
}

func (w *Whatlang) detect(text string) (whatlanggo.Info, bool) {
	if strings.TrimSpace(text) == "" {
		return whatlanggo.Info{}, false
	}
	info := whatlanggo.DetectWithOptions(text, w.options)
	if info.Lang < 0 || info.Lang.Iso6391() == "" {
		return info, false
	}
	return info, true
}
