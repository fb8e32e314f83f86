package model

import (
	"encoding/binary"
	"io"
	"math"
	"os"
	"strings"
)

const (
	// Sentencepiece control tokens in the llama vocabulary.
	TokenBOS = 1
	TokenEOS = 2
)

// Tokenizer is a scored byte-pair vocabulary loaded from a binary
// tokenizer file.
type Tokenizer struct {
	vocab  []string
	scores []float32
	lookup map[string]int
	maxLen uint32
}

// LoadTokenizer reads vocab strings and merge scores from a binary file.
func LoadTokenizer(path string) (*Tokenizer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var maxLen uint32
	if err := binary.Read(f, binary.LittleEndian, &maxLen); err != nil {
		return nil, err
	}

	t := &Tokenizer{
		vocab:  make([]string, 0, 32000),
		scores: make([]float32, 0, 32000),
		maxLen: maxLen,
	}
	for {
		var score float32
		if err := binary.Read(f, binary.LittleEndian, &score); err == io.EOF {
			break
		} else if err != nil {
			return nil, err
		}

		var n int32
		if err := binary.Read(f, binary.LittleEndian, &n); err != nil {
			return nil, err
		}
		buf := make([]byte, n)
		if _, err := io.ReadFull(f, buf); err != nil {
			return nil, err
		}

		t.scores = append(t.scores, score)
		t.vocab = append(t.vocab, string(buf))
	}

	t.lookup = make(map[string]int, len(t.vocab))
	for i, v := range t.vocab {
		t.lookup[v] = i
	}
	return t, nil
}

// NewTokenizer builds a tokenizer from an in-memory vocabulary. Used by
// tests and by callers that ship their own vocab.
func NewTokenizer(vocab []string, scores []float32) *Tokenizer {
	t := &Tokenizer{vocab: vocab, scores: scores, lookup: make(map[string]int, len(vocab))}
	for i, v := range vocab {
		t.lookup[v] = i
	}
	return t
}

func (t *Tokenizer) VocabSize() int { return len(t.vocab) }

// Encode tokenizes text by greedy byte-pair merging: start from single
// characters, repeatedly merge the adjacent pair with the best score.
// Unknown characters are skipped rather than failing the whole prompt.
func (t *Tokenizer) Encode(text string, bos bool) []int {
	var tokens []int
	if bos {
		tokens = append(tokens, TokenBOS)
	}
	for _, ch := range text {
		if id, ok := t.lookup[string(ch)]; ok {
			tokens = append(tokens, id)
		}
	}

	for len(tokens) > 1 {
		bestScore := float32(math.Inf(-1))
		bestID := -1
		bestIdx := -1

		for i := 0; i < len(tokens)-1; i++ {
			merged := t.vocab[tokens[i]] + t.vocab[tokens[i+1]]
			if id, ok := t.lookup[merged]; ok && t.scores[id] > bestScore {
				bestScore = t.scores[id]
				bestID = id
				bestIdx = i
			}
		}

		if bestIdx == -1 {
			break
		}
		tokens[bestIdx] = bestID
		tokens = append(tokens[:bestIdx+1], tokens[bestIdx+2:]...)
	}

	return tokens
}

// Decode concatenates token strings, dropping control tokens and the
// sentencepiece leading-space convention after BOS.
func (t *Tokenizer) Decode(tokens []int) string {
	var sb strings.Builder
	prev := -1
	for _, tok := range tokens {
		if tok == TokenBOS || tok == TokenEOS {
			prev = tok
			continue
		}
		if tok < 0 || tok >= len(t.vocab) {
			continue
		}
		piece := t.vocab[tok]
		if prev == TokenBOS && strings.HasPrefix(piece, " ") {
			piece = piece[1:]
		}
		sb.WriteString(piece)
		prev = tok
	}
	return sb.String()
}
