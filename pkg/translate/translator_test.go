package translate

import (
	"errors"
	"testing"
)

func TestLanguageMapper_ToBackendCode(t *testing.T) {
	lm := NewLanguageMapper()
	cases := map[string]string{
		"EN":    "en",
		"fr-CA": "fr",
		"en_US": "en",
		"zh-cn": "zh",
		"ZH-TW": "zh",
		"auto":  "auto",
		"":      "",
		" es ":  "es",
	}
	for in, want := range cases {
		if got := lm.ToBackendCode(in); got != want {
			t.Errorf("ToBackendCode(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestIsAuto(t *testing.T) {
	for _, s := range []string{"", "auto", "AUTO"} {
		if !IsAuto(s) {
			t.Errorf("IsAuto(%q) = false", s)
		}
	}
	if IsAuto("en") {
		t.Error("IsAuto(en) = true")
	}
}

func TestErrorKind(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{unavailable("openai"), "unavailable"},
		{requestFailed("google", errors.New("boom")), "request_failed"},
		{emptyResult("google"), "empty"},
		{ErrDetectionFailed, "detection_failed"},
		{errors.New("other"), "error"},
	}
	for _, c := range cases {
		if got := ErrorKind(c.err); got != c.want {
			t.Errorf("ErrorKind(%v) = %q, want %q", c.err, got, c.want)
		}
	}
}

func TestProviderError_UnwrapsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := requestFailed("libretranslate", cause)
	if !errors.Is(err, cause) {
		t.Error("cause not reachable through errors.Is")
	}
	if !errors.Is(err, ErrProviderRequestFailed) {
		t.Error("kind not reachable through errors.Is")
	}
	var pe *ProviderError
	if !errors.As(err, &pe) || pe.Provider != "libretranslate" {
		t.Errorf("errors.As gave %+v", pe)
	}
}

func TestParseEngineType(t *testing.T) {
	for in, want := range map[string]EngineType{
		"":               EngineGoogle,
		"Google":         EngineGoogle,
		"libretranslate": EngineLibreTranslate,
		"LIBRE":          EngineLibreTranslate,
	} {
		got, err := ParseEngineType(in)
		if err != nil || got != want {
			t.Errorf("ParseEngineType(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseEngineType("argos"); err == nil {
		t.Error("expected error for unknown engine")
	}
}

func TestNewTranslator(t *testing.T) {
	tr, err := NewTranslator(Config{Engine: EngineLibreTranslate, BaseURL: "http://example.invalid"})
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if tr.Name() != "libretranslate" {
		t.Errorf("got %q", tr.Name())
	}
	tr, err = NewTranslator(Config{})
	if err != nil || tr.Name() != "google" {
		t.Errorf("default engine: %v, %v", tr, err)
	}
	if _, err := NewTranslator(Config{Engine: "nope"}); err == nil {
		t.Error("expected error for unknown engine")
	}
}
