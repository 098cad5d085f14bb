package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// Glossary maps a term to the text that must replace it before translation.
// Terms match case-insensitively as whole words.
type Glossary map[string]string

// GlossaryParseError reports glossary input that is not a flat string mapping.
type GlossaryParseError struct {
	Format string
	Err    error
}

func (e *GlossaryParseError) Error() string {
	return fmt.Sprintf("parse %s glossary: %v", e.Format, e.Err)
}

func (e *GlossaryParseError) Unwrap() error { return e.Err }

// ApplyGlossary replaces every whole-word occurrence of a glossary term in
// text. All terms are matched in a single left-to-right pass, so replacement
// text is never re-matched. Where terms overlap at a position the longest term
// wins, which lets multi-word terms take priority over their parts.
//
// A match is looked up case-insensitively first, then by exact case; a match
// with no entry is left untouched.
func ApplyGlossary(text string, g Glossary) string {
	if len(g) == 0 || text == "" {
		return text
	}
	terms := sortedTerms(g)
	if len(terms) == 0 {
		return text
	}
	folded := foldedIndex(g)

	var b strings.Builder
	b.Grow(len(text))
	for i := 0; i < len(text); {
		if isBoundary(text, i) {
			if n, ok := matchTerm(text, i, terms); ok {
				word := text[i : i+n]
				b.WriteString(lookup(g, folded, word))
				i += n
				continue
			}
		}
		_, size := utf8.DecodeRuneInString(text[i:])
		b.WriteString(text[i : i+size])
		i += size
	}
	return b.String()
}

// sortedTerms returns the non-empty terms, longest first, ties broken
// lexically so the pass is deterministic.
func sortedTerms(g Glossary) []string {
	terms := make([]string, 0, len(g))
	for t := range g {
		if t != "" {
			terms = append(terms, t)
		}
	}
	sort.Slice(terms, func(i, j int) bool {
		li, lj := utf8.RuneCountInString(terms[i]), utf8.RuneCountInString(terms[j])
		if li != lj {
			return li > lj
		}
		return terms[i] < terms[j]
	})
	return terms
}

// foldedIndex maps lower-cased terms to replacements. When several keys fold
// to the same form, the key that is already lower case wins, then the
// lexically smallest.
func foldedIndex(g Glossary) map[string]string {
	keys := make([]string, 0, len(g))
	for k := range g {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	idx := make(map[string]string, len(g))
	for _, k := range keys {
		lk := strings.ToLower(k)
		if _, taken := idx[lk]; taken && k != lk {
			continue
		}
		idx[lk] = g[k]
	}
	return idx
}

// lookup tries the case-insensitive key, then the exact key. An empty
// replacement counts as missing, so the word is kept.
func lookup(g Glossary, folded map[string]string, word string) string {
	if repl := folded[strings.ToLower(word)]; repl != "" {
		return repl
	}
	if repl := g[word]; repl != "" {
		return repl
	}
	return word
}

// matchTerm returns the byte length of the first term (in priority order)
// that matches text at i case-insensitively and ends on a word boundary.
func matchTerm(text string, i int, terms []string) (int, bool) {
	for _, term := range terms {
		n, ok := foldPrefix(text[i:], term)
		if ok && isBoundary(text, i+n) {
			return n, true
		}
	}
	return 0, false
}

// foldPrefix reports whether s starts with term under simple case folding
// and returns the byte length of the matching prefix of s.
func foldPrefix(s, term string) (int, bool) {
	n := 0
	for _, tr := range term {
		if n >= len(s) {
			return 0, false
		}
		sr, size := utf8.DecodeRuneInString(s[n:])
		if !equalFoldRune(sr, tr) {
			return 0, false
		}
		n += size
	}
	return n, true
}

func equalFoldRune(a, b rune) bool {
	if a == b {
		return true
	}
	for r := unicode.SimpleFold(a); r != a; r = unicode.SimpleFold(r) {
		if r == b {
			return true
		}
	}
	return false
}

// isBoundary reports whether byte offset i sits between a word and a non-word
// character (or the edge of text).
func isBoundary(text string, i int) bool {
	before, after := false, false
	if i > 0 {
		r, _ := utf8.DecodeLastRuneInString(text[:i])
		before = isWordRune(r)
	}
	if i < len(text) {
		r, _ := utf8.DecodeRuneInString(text[i:])
		after = isWordRune(r)
	}
	return before != after
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r)
}

// ParseGlossary decodes a flat term->replacement mapping. format is "json",
// "yaml" or "" to accept either.
func ParseGlossary(data []byte, format string) (Glossary, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	switch format {
	case "json":
		return parseJSONGlossary(data)
	case "yaml", "yml":
		return parseYAMLGlossary(data)
	case "":
		if g, err := parseJSONGlossary(data); err == nil {
			return g, nil
		}
		return parseYAMLGlossary(data)
	default:
		return nil, &GlossaryParseError{Format: format, Err: fmt.Errorf("unsupported format")}
	}
}

// LoadGlossaryFile reads a glossary file, choosing the format from its extension.
func LoadGlossaryFile(path string) (Glossary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read glossary: %w", err)
	}
	return ParseGlossary(data, strings.TrimPrefix(filepath.Ext(path), "."))
}

func parseJSONGlossary(data []byte) (Glossary, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Glossary{}, nil
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &GlossaryParseError{Format: "json", Err: err}
	}
	g := make(Glossary, len(raw))
	for k, v := range raw {
		s, ok := v.(string)
		if !ok {
			return nil, &GlossaryParseError{Format: "json", Err: fmt.Errorf("term %q: replacement must be a string", k)}
		}
		g[k] = s
	}
	return g, nil
}

func parseYAMLGlossary(data []byte) (Glossary, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &GlossaryParseError{Format: "yaml", Err: err}
	}
	if len(doc.Content) == 0 {
		return Glossary{}, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, &GlossaryParseError{Format: "yaml", Err: fmt.Errorf("line %d: expected a mapping", root.Line)}
	}
	g := make(Glossary, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		k, v := root.Content[i], root.Content[i+1]
		if k.Kind != yaml.ScalarNode || v.Kind != yaml.ScalarNode || v.Tag == "!!null" {
			return nil, &GlossaryParseError{Format: "yaml", Err: fmt.Errorf("line %d: term and replacement must be scalars", k.Line)}
		}
		g[k.Value] = v.Value
	}
	return g, nil
}
