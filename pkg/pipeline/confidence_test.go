package pipeline

import "testing"

func TestTranslationConfidence(t *testing.T) {
	tests := []struct {
		name                  string
		original, trans, back string
		want                  float64
	}{
		{"perfect round trip", "hello world", "hola mundo", "hello world", 1},
		{"nothing in common", "abc", "xyz", "", 0},
		{"both empty", "", "", "", 1},
		{"identical direct", "same", "same", "", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TranslationConfidence(tt.original, tt.trans, tt.back); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTranslationConfidence_Bounds(t *testing.T) {
	inputs := [][3]string{
		{"The weather is nice today", "Hace buen tiempo hoy", "The weather is good today"},
		{"short", "un texto mucho más largo que el original", ""},
		{"", "algo", ""},
		{"something", "", ""},
		{"日本語のテキスト", "Japanese text", "日本語テキスト"},
	}
	for _, in := range inputs {
		got := TranslationConfidence(in[0], in[1], in[2])
		if got < 0 || got > 1 {
			t.Errorf("TranslationConfidence(%q, %q, %q) = %v out of [0,1]", in[0], in[1], in[2], got)
		}
	}
}

func TestTranslationConfidence_PrefersBackTranslation(t *testing.T) {
	back := TranslationConfidence("The weather is nice", "Hace buen tiempo", "The weather is nice!")
	direct := TranslationConfidence("The weather is nice", "Hace buen tiempo", "")
	if back <= direct {
		t.Errorf("back-translation score %v should beat direct score %v", back, direct)
	}
}
