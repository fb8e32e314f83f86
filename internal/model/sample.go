package model

import "sort"

// SampleParams mirrors the decoding knobs of the original pipeline.
// Temperature and TopP are carried for completeness but are inert when
// Greedy is set; TopK restricts the candidate set before selection, which
// under greedy decoding cannot change the argmax.
type SampleParams struct {
	Greedy      bool
	Temperature float64
	TopP        float64
	TopK        int
}

// Sample selects the next token from logits. Only greedy selection is
// implemented; the pipeline never samples.
func Sample(logits []float32, p SampleParams) int {
	candidates := make([]int, len(logits))
	for i := range candidates {
		candidates[i] = i
	}

	if p.TopK > 0 && p.TopK < len(candidates) {
		sort.Slice(candidates, func(i, j int) bool {
			return logits[candidates[i]] > logits[candidates[j]]
		})
		candidates = candidates[:p.TopK]
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if logits[c] > logits[best] {
			best = c
		}
	}
	return best
}
