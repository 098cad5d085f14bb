package pipeline

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestApplyGlossary(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		glossary Glossary
		want     string
	}{
		{"basic", "the cat sleeps", Glossary{"cat": "gato"}, "the gato sleeps"},
		{"case insensitive", "The CAT and the Cat", Glossary{"cat": "gato"}, "The gato and the gato"},
		{"capitalised key", "say HELLO", Glossary{"Hello": "Hola"}, "say Hola"},
		{"whole words only", "concatenate scat cat.", Glossary{"cat": "gato"}, "concatenate scat gato."},
		{"longest first", "I love New York and new things", Glossary{"new": "nuevo", "new york": "NYC"}, "I love NYC and nuevo things"},
		{"single pass", "a b", Glossary{"a": "b", "b": "c"}, "b c"},
		{"unicode boundary", "un café, des cafés", Glossary{"café": "coffee"}, "un coffee, des cafés"},
		{"empty glossary", "unchanged text", Glossary{}, "unchanged text"},
		{"nil glossary", "unchanged text", nil, "unchanged text"},
		{"empty replacement keeps word", "keep the word", Glossary{"the": ""}, "keep the word"},
		{"empty folded falls back to exact", "The end", Glossary{"the": "", "The": "El"}, "El end"},
		{"empty text", "", Glossary{"a": "b"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ApplyGlossary(tt.text, tt.glossary); got != tt.want {
				t.Errorf("ApplyGlossary(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestApplyGlossary_Idempotent(t *testing.T) {
	g := Glossary{"kubernetes": "Kubernetes", "k8s cluster": "Kubernetes cluster", "pod": "Pod"}
	text := "Deploy the pod to the k8s cluster running kubernetes."
	once := ApplyGlossary(text, g)
	twice := ApplyGlossary(once, g)
	if once != twice {
		t.Errorf("not idempotent: %q then %q", once, twice)
	}
	if once != "Deploy the Pod to the Kubernetes cluster running Kubernetes." {
		t.Errorf("got %q", once)
	}
}

func TestParseGlossary(t *testing.T) {
	g, err := ParseGlossary([]byte(`{"cat": "gato", "New York": "Nueva York"}`), "json")
	if err != nil {
		t.Fatalf("json: %v", err)
	}
	if g["cat"] != "gato" || g["New York"] != "Nueva York" {
		t.Errorf("json glossary = %v", g)
	}

	g, err = ParseGlossary([]byte("cat: gato\ndog: perro\n"), "yaml")
	if err != nil {
		t.Fatalf("yaml: %v", err)
	}
	if len(g) != 2 || g["dog"] != "perro" {
		t.Errorf("yaml glossary = %v", g)
	}

	g, err = ParseGlossary([]byte("cat: gato"), "")
	if err != nil || g["cat"] != "gato" {
		t.Errorf("auto-detected yaml = %v, %v", g, err)
	}

	g, err = ParseGlossary(nil, "json")
	if err != nil || len(g) != 0 {
		t.Errorf("empty json = %v, %v", g, err)
	}
}

func TestParseGlossary_Errors(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		format string
	}{
		{"json not an object", `["cat"]`, "json"},
		{"json non-string value", `{"cat": 3}`, "json"},
		{"yaml list", "- cat\n- dog\n", "yaml"},
		{"yaml nested", "cat:\n  es: gato\n", "yaml"},
		{"yaml null", "cat:\n", "yaml"},
		{"unknown format", "cat: gato", "toml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseGlossary([]byte(tt.data), tt.format)
			var perr *GlossaryParseError
			if !errors.As(err, &perr) {
				t.Fatalf("got %v, want *GlossaryParseError", err)
			}
		})
	}
}

func TestLoadGlossaryFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "terms.yaml")
	if err := os.WriteFile(path, []byte("pod: Pod\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	g, err := LoadGlossaryFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if g["pod"] != "Pod" {
		t.Errorf("got %v", g)
	}

	if _, err := LoadGlossaryFile(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}
