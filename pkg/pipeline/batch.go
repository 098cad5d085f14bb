package pipeline

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/dasmlab/polyglot/pkg/translate"
)

// BatchOptions select the per-item extras of BatchTranslate.
type BatchOptions struct {
	Glossary Glossary
	// Pronunciation asks the pronouncer for a guide to each translation.
	Pronunciation bool
	// SkipBackTranslation scores items against the translation itself
	// instead of spending a second backend call per item.
	SkipBackTranslation bool
}

// BatchItem is the outcome for one batch input. Optional fields are nil when
// the step was not run or failed.
type BatchItem struct {
	Original        string  `json:"original"`
	Detected        string  `json:"detected"`
	Translated      *string `json:"translated"`
	BackTranslation *string `json:"back_translation"`
	Confidence      float64 `json:"confidence"`
	Pronunciation   *string `json:"pronunciation"`
}

// BatchTranslate translates every text independently and returns one item
// per input, in input order. A failing item never affects the others.
//
// Each translation is back-translated into the explicit source language, or
// the detected one, to score it. A failed back-translation leaves the
// confidence at 0.
func (p *Pipeline) BatchTranslate(ctx context.Context, texts []string, targetLang, sourceLang string, opts BatchOptions) []BatchItem {
	items := make([]BatchItem, len(texts))
	runOrdered(ctx, len(texts), p.opts.Concurrency, false, func(ctx context.Context, i int) error {
		items[i] = p.batchItem(ctx, texts[i], targetLang, sourceLang, opts)
		translate.RecordBatchItem(items[i].Translated != nil)
		return nil
	})
	return items
}

func (p *Pipeline) batchItem(ctx context.Context, text, targetLang, sourceLang string, opts BatchOptions) BatchItem {
	item := BatchItem{Original: text}

	res := p.Translate(ctx, ApplyGlossary(text, opts.Glossary), targetLang, sourceLang)
	item.Detected = res.DetectedSource
	if !res.OK() {
		return item
	}
	item.Translated = res.Translated
	translated := *res.Translated

	switch backLang := backTranslationTarget(sourceLang, res.DetectedSource); {
	case opts.SkipBackTranslation:
		item.Confidence = TranslationConfidence(text, translated, "")
	case backLang == "":
		p.logger.WithField("detected", res.DetectedSource).Debug("Source language unknown, skipping back-translation")
	default:
		back := p.Translate(ctx, translated, backLang, targetLang)
		if back.OK() {
			item.BackTranslation = back.Translated
			item.Confidence = TranslationConfidence(text, translated, back.Text())
		}
	}

	if opts.Pronunciation && p.pronouncer != nil {
		pron, err := p.pronouncer.Pronounce(ctx, translated, targetLang)
		if err != nil {
			p.logger.WithError(err).WithFields(logrus.Fields{
				"target_lang": targetLang,
			}).Warn("Pronunciation failed")
		} else if pron != "" {
			item.Pronunciation = &pron
		}
	}
	return item
}

// backTranslationTarget is the explicit source language when given, else the
// detected one. "" means there is nothing sensible to translate back into.
func backTranslationTarget(sourceLang, detected string) string {
	if !translate.IsAuto(sourceLang) {
		return sourceLang
	}
	if detected == "" || detected == translate.UndeterminedLanguage {
		return ""
	}
	return detected
}
