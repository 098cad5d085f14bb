package pipeline

import (
	"math"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// TranslationConfidence scores a translation in [0,1].
//
// With a back-translation the score is the character similarity between the
// original and the round-tripped text, which measures how much meaning
// survived. Without one it compares the original and the translation
// directly; across languages that similarity is usually low and is only a
// weak signal, not a fidelity measure.
func TranslationConfidence(original, translated, backTranslated string) (score float64) {
	defer func() {
		if recover() != nil {
			score = 0
		}
	}()

	cmp := translated
	if backTranslated != "" {
		cmp = backTranslated
	}
	ratio := difflib.NewMatcher(strings.Split(original, ""), strings.Split(cmp, "")).Ratio()
	if math.IsNaN(ratio) {
		return 0
	}
	return math.Max(0, math.Min(1, ratio))
}
