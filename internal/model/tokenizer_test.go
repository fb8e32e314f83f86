package model

import "testing"

func testVocabulary() *Tokenizer {
	vocab := []string{"<unk>", "<s>", "</s>", "a", "b", "c", "ab", "abc"}
	scores := []float32{0, 0, 0, -1, -1, -1, -0.5, -0.2}
	return NewTokenizer(vocab, scores)
}

func TestEncodeMergesPairs(t *testing.T) {
	tok := testVocabulary()

	tokens := tok.Encode("abc", false)
	// "a"+"b" merges to "ab", then "ab"+"c" to "abc".
	if len(tokens) != 1 || tok.vocab[tokens[0]] != "abc" {
		t.Errorf("Encode(abc) = %v, want single abc token", tokens)
	}
}

func TestEncodeWithBOS(t *testing.T) {
	tok := testVocabulary()

	tokens := tok.Encode("c", true)
	if len(tokens) != 2 || tokens[0] != TokenBOS {
		t.Errorf("Encode with BOS = %v", tokens)
	}
}

func TestEncodeSkipsUnknownRunes(t *testing.T) {
	tok := testVocabulary()

	tokens := tok.Encode("a!c", false)
	if got := tok.Decode(tokens); got != "ac" {
		t.Errorf("Decode(Encode(a!c)) = %q, want %q", got, "ac")
	}
}

func TestDecodeDropsControlTokens(t *testing.T) {
	tok := testVocabulary()

	got := tok.Decode([]int{TokenBOS, 3, 4, TokenEOS})
	if got != "ab" {
		t.Errorf("Decode = %q, want %q", got, "ab")
	}
}

func TestRoundTrip(t *testing.T) {
	tok := testVocabulary()

	for _, text := range []string{"a", "ab", "abc", "cba", "abcabc"} {
		if got := tok.Decode(tok.Encode(text, false)); got != text {
			t.Errorf("round trip of %q produced %q", text, got)
		}
	}
}
