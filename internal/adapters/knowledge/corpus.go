// Package knowledge builds the trusted similarity index from a plain-text
// corpus file.
package knowledge

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

// SeedCorpus is written when the configured source file does not exist.
const SeedCorpus = `=== Example trusted medical knowledge base ===
Cough and fever are common in viral infections such as flu or COVID-19.
Headache and fatigue can be due to dehydration or tension.
`

const (
	DocumentSeparator = "==="
	ChunkSize         = 500
	ChunkOverlap      = 50
)

// LoadCorpus reads path, creating it with SeedCorpus first if missing, and
// returns its chunks.
func LoadCorpus(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		if err := os.WriteFile(path, []byte(SeedCorpus), 0o644); err != nil {
			return nil, fmt.Errorf("write seed corpus: %w", err)
		}
		raw = []byte(SeedCorpus)
	} else if err != nil {
		return nil, fmt.Errorf("read corpus: %w", err)
	}

	return SplitCorpus(string(raw), ChunkSize, ChunkOverlap), nil
}

// SplitCorpus splits text into documents on DocumentSeparator and each
// document into chunks of at most size runes overlapping by overlap runes.
// Blank documents are dropped.
func SplitCorpus(text string, size, overlap int) []string {
	var chunks []string
	for _, doc := range strings.Split(text, DocumentSeparator) {
		doc = strings.TrimSpace(doc)
		if doc == "" {
			continue
		}
		chunks = append(chunks, chunk(doc, size, overlap)...)
	}
	return chunks
}

func chunk(doc string, size, overlap int) []string {
	if overlap >= size {
		overlap = 0
	}
	runes := []rune(doc)
	if len(runes) <= size {
		return []string{doc}
	}

	var out []string
	step := size - overlap
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		if c := strings.TrimSpace(string(runes[start:end])); c != "" {
			out = append(out, c)
		}
		if end == len(runes) {
			break
		}
	}
	return out
}
