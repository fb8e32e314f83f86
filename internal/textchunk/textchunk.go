// Package textchunk splits long text into bounded, sentence-aligned
// segments so generation inputs stay within the model's context window.
package textchunk

import (
	"strings"
	"sync"

	"github.com/neurosnap/sentences"
	"github.com/neurosnap/sentences/english"
)

var (
	tokenizerOnce sync.Once
	tokenizer     *sentences.DefaultSentenceTokenizer
	tokenizerErr  error
)

func sentenceTokenizer() (*sentences.DefaultSentenceTokenizer, error) {
	tokenizerOnce.Do(func() {
		tokenizer, tokenizerErr = english.NewSentenceTokenizer(nil)
	})
	return tokenizer, tokenizerErr
}

// Sentences splits text at sentence boundaries using the trained punkt
// model for English.
func Sentences(text string) ([]string, error) {
	tok, err := sentenceTokenizer()
	if err != nil {
		return nil, err
	}

	var out []string
	for _, s := range tok.Tokenize(text) {
		trimmed := strings.TrimSpace(s.Text)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out, nil
}

// Split packs sentences greedily into chunks of at most chunkSize
// characters. A sentence is never split, so a single sentence longer than
// chunkSize becomes an oversized chunk of its own. The final partial chunk
// is always emitted when non-empty. Output is deterministic for a given
// input and bound.
func Split(text string, chunkSize int) ([]string, error) {
	sents, err := Sentences(text)
	if err != nil {
		return nil, err
	}

	var chunks []string
	var current strings.Builder

	for _, sentence := range sents {
		if current.Len()+len(sentence) <= chunkSize {
			current.WriteString(sentence)
			current.WriteString(" ")
			continue
		}
		if chunk := strings.TrimSpace(current.String()); chunk != "" {
			chunks = append(chunks, chunk)
		}
		current.Reset()
		current.WriteString(sentence)
		current.WriteString(" ")
	}

	if chunk := strings.TrimSpace(current.String()); chunk != "" {
		chunks = append(chunks, chunk)
	}

	return chunks, nil
}
