package pipeline

import (
	"strings"
	"unicode/utf8"
)

// DefaultChunkSize is the chunk limit, in characters, used when none is configured.
const DefaultChunkSize = 3000

const paragraphSeparator = "\n\n"

// Chunk is a piece of chunked text together with the separator that followed
// it in the original ("\n\n" between paragraphs, "" inside a hard split and
// after the last chunk).
type Chunk struct {
	Text string
	Sep  string
}

// ChunkText splits text into pieces of at most maxChars characters. Whole
// paragraphs are packed greedily; a paragraph longer than maxChars is cut
// into maxChars-sized slices.
func ChunkText(text string, maxChars int) []string {
	chunks := SplitChunks(text, maxChars)
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Text
	}
	return out
}

// SplitChunks is ChunkText keeping the separators, so JoinChunks(SplitChunks(t, n)) == t.
func SplitChunks(text string, maxChars int) []Chunk {
	if maxChars < 1 {
		maxChars = DefaultChunkSize
	}
	if text == "" {
		return []Chunk{}
	}

	paragraphs := strings.Split(text, paragraphSeparator)
	packed := make([]string, 0, len(paragraphs))
	current := paragraphs[0]
	currentLen := utf8.RuneCountInString(current)
	for _, p := range paragraphs[1:] {
		pLen := utf8.RuneCountInString(p)
		if currentLen+len(paragraphSeparator)+pLen <= maxChars {
			current += paragraphSeparator + p
			currentLen += len(paragraphSeparator) + pLen
			continue
		}
		packed = append(packed, current)
		current, currentLen = p, pLen
	}
	packed = append(packed, current)

	out := make([]Chunk, 0, len(packed))
	for i, c := range packed {
		sep := paragraphSeparator
		if i == len(packed)-1 {
			sep = ""
		}
		out = append(out, hardSplit(c, maxChars, sep)...)
	}
	return out
}

// hardSplit cuts s into slices of exactly maxChars runes; the last slice
// carries sep.
func hardSplit(s string, maxChars int, sep string) []Chunk {
	if utf8.RuneCountInString(s) <= maxChars {
		return []Chunk{{Text: s, Sep: sep}}
	}
	runes := []rune(s)
	out := make([]Chunk, 0, len(runes)/maxChars+1)
	for start := 0; start < len(runes); start += maxChars {
		end := min(start+maxChars, len(runes))
		c := Chunk{Text: string(runes[start:end])}
		if end == len(runes) {
			c.Sep = sep
		}
		out = append(out, c)
	}
	return out
}

// JoinChunks reassembles chunks with their original separators.
func JoinChunks(chunks []Chunk) string {
	var b strings.Builder
	for _, c := range chunks {
		b.WriteString(c.Text)
		b.WriteString(c.Sep)
	}
	return b.String()
}
