// Package qa bulk-produces question/answer pairs covering a document by
// chunking it and prompting the model once per chunk.
package qa

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/rs/zerolog/log"

	"tutor-llm/internal/generate"
	"tutor-llm/internal/textchunk"
)

// PairsMarker precedes the generated question/answer list in the raw
// model output.
const PairsMarker = "###qa_pairs:"

const synthesisTemplate = `
###context:%s
###instruction:
Generate a set of distinct questions that comprehensively cover every concept in the context while still reducing the number of questions generated.
- Do NOT number the questions.
- Do NOT include numbering formats like 1., 2., 3. at the start of any question.
- Ensure each question is unique and does not repeat concepts.
- Separate each question with a question mark (?), ensuring proper readability.

After generating the questions, provide detailed and accurate answers for each of them.
- Ensure the answers are well-structured and informative.
- Maintain clarity and completeness in the responses.

###output_format:
Question: <Generated Question>
Answer: <Generated Answer>

###length: Generate as many questions as required to fully understand the content.
` + PairsMarker + `
`

// Synthesize chunks the document, prompts the backend once per chunk in
// fixed-size sequential batches, and folds every parsed pair into one
// mapping from question to answer. A question text seen twice keeps the
// later answer. Memory is reclaimed after each batch; batching paces the
// work, it is not concurrency.
func Synthesize(ctx context.Context, backend generate.Backend, text string, chunkSize, batchSize int) (map[string]string, error) {
	chunks, err := textchunk.Split(text, chunkSize)
	if err != nil {
		return nil, err
	}
	if batchSize <= 0 {
		batchSize = 1
	}

	pairs := make(map[string]string)

	for i := 0; i < len(chunks); i += batchSize {
		end := i + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		log.Info().
			Int("batch", i/batchSize+1).
			Int("batches", (len(chunks)+batchSize-1)/batchSize).
			Msg("Processing batch")

		responses := make([]string, 0, end-i)
		for _, chunk := range chunks[i:end] {
			raw, err := backend.Generate(ctx, fmt.Sprintf(synthesisTemplate, chunk))
			if err != nil {
				return nil, err
			}
			responses = append(responses, raw)
		}

		for _, raw := range responses {
			for q, a := range ParsePairs(raw) {
				pairs[q] = a
			}
		}

		runtime.GC()
	}

	log.Info().Int("questions", len(pairs)).Msg("Synthesis complete")
	return pairs, nil
}

// ParsePairs parses the tail after the LAST pairs marker: fragments split
// on "Question:", each fragment containing "Answer:" split once into the
// (question, answer) pair, both trimmed. Fragments without "Answer:" are
// skipped rather than reported.
func ParsePairs(raw string) map[string]string {
	tail := raw
	if idx := strings.LastIndex(raw, PairsMarker); idx >= 0 {
		tail = raw[idx+len(PairsMarker):]
	}

	pairs := make(map[string]string)
	for _, fragment := range strings.Split(strings.TrimSpace(tail), "Question:") {
		if !strings.Contains(fragment, "Answer:") {
			continue
		}
		parts := strings.SplitN(fragment, "Answer:", 2)
		question := strings.TrimSpace(parts[0])
		answer := strings.TrimSpace(parts[1])
		pairs[question] = answer
	}
	return pairs
}
