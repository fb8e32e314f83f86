package qa

import (
	"context"
	"strings"
	"testing"
)

// scriptedBackend replies with one canned completion per call, in order.
type scriptedBackend struct {
	prompts   []string
	responses []string
}

func (s *scriptedBackend) Generate(_ context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	resp := s.responses[0]
	if len(s.responses) > 1 {
		s.responses = s.responses[1:]
	}
	return resp, nil
}

func TestParsePairs(t *testing.T) {
	raw := "###qa_pairs:\nQuestion: What is X?\nAnswer: X is Y.\nQuestion: What is Z?\nAnswer: Z is W."

	pairs := ParsePairs(raw)
	if len(pairs) != 2 {
		t.Fatalf("expected 2 pairs, got %d: %v", len(pairs), pairs)
	}
	if pairs["What is X?"] != "X is Y." {
		t.Errorf("first pair = %q", pairs["What is X?"])
	}
	if pairs["What is Z?"] != "Z is W." {
		t.Errorf("second pair = %q", pairs["What is Z?"])
	}
}

func TestParsePairsLastMarkerWins(t *testing.T) {
	raw := "###qa_pairs:\nQuestion: old?\nAnswer: stale.\n" +
		"###qa_pairs:\nQuestion: fresh?\nAnswer: current."

	pairs := ParsePairs(raw)
	if len(pairs) != 1 {
		t.Fatalf("expected 1 pair, got %d: %v", len(pairs), pairs)
	}
	if pairs["fresh?"] != "current." {
		t.Errorf("pair = %v", pairs)
	}
}

func TestParsePairsSkipsMalformedFragments(t *testing.T) {
	raw := "###qa_pairs:\nQuestion: has no answer marker at all\nQuestion: What works?\nAnswer: This one."

	pairs := ParsePairs(raw)
	if len(pairs) != 1 {
		t.Fatalf("expected 1 pair, got %d: %v", len(pairs), pairs)
	}
	if pairs["What works?"] != "This one." {
		t.Errorf("pair = %v", pairs)
	}
}

func TestParsePairsNoMarker(t *testing.T) {
	raw := "Question: Still parsed?\nAnswer: Yes, the whole text is scanned."

	pairs := ParsePairs(raw)
	if pairs["Still parsed?"] != "Yes, the whole text is scanned." {
		t.Errorf("pair = %v", pairs)
	}
}

func TestSynthesizeMergesChunks(t *testing.T) {
	// Two sentences that cannot share a 40-character chunk, so the backend
	// is called once per chunk.
	text := "The first topic is covered here fully. The second topic follows in its own part."

	backend := &scriptedBackend{responses: []string{
		"###qa_pairs:\nQuestion: What is topic one?\nAnswer: The first.",
		"###qa_pairs:\nQuestion: What is topic two?\nAnswer: The second.",
	}}

	pairs, err := Synthesize(context.Background(), backend, text, 40, 1)
	if err != nil {
		t.Fatalf("synthesize failed: %v", err)
	}

	if len(backend.prompts) != 2 {
		t.Fatalf("expected 2 generation calls, got %d", len(backend.prompts))
	}
	if len(pairs) != 2 {
		t.Fatalf("expected 2 pairs, got %d: %v", len(pairs), pairs)
	}
	if pairs["What is topic one?"] != "The first." || pairs["What is topic two?"] != "The second." {
		t.Errorf("pairs = %v", pairs)
	}
}

func TestSynthesizeDuplicateQuestionLastWins(t *testing.T) {
	text := "The first topic is covered here fully. The second topic follows in its own part."

	backend := &scriptedBackend{responses: []string{
		"###qa_pairs:\nQuestion: Shared question?\nAnswer: early answer.",
		"###qa_pairs:\nQuestion: Shared question?\nAnswer: late answer.",
	}}

	pairs, err := Synthesize(context.Background(), backend, text, 40, 2)
	if err != nil {
		t.Fatalf("synthesize failed: %v", err)
	}
	if len(pairs) != 1 {
		t.Fatalf("expected 1 pair, got %d: %v", len(pairs), pairs)
	}
	if pairs["Shared question?"] != "late answer." {
		t.Errorf("pair = %v", pairs)
	}
}

func TestSynthesizePromptEmbedsChunk(t *testing.T) {
	text := "Only one chunk of text here."

	backend := &scriptedBackend{responses: []string{"###qa_pairs:"}}

	if _, err := Synthesize(context.Background(), backend, text, 1000, 4); err != nil {
		t.Fatalf("synthesize failed: %v", err)
	}
	if len(backend.prompts) != 1 {
		t.Fatalf("expected 1 call, got %d", len(backend.prompts))
	}
	p := backend.prompts[0]
	if !strings.Contains(p, "###context:Only one chunk of text here.") {
		t.Errorf("chunk not embedded in prompt:\n%s", p)
	}
	if !strings.Contains(p, "Question: <Generated Question>") || !strings.Contains(p, PairsMarker) {
		t.Errorf("output format or marker missing from prompt:\n%s", p)
	}
}
