package compress

import (
	"math"
	"testing"
	"time"

	"tutor-llm/internal/model"
)

// tinyModel builds a one-layer model with deterministic weights so the
// compression passes have real linear layers to chew on.
func tinyModel() *model.Model {
	params := model.Params{
		Dim:       4,
		HiddenDim: 6,
		NLayers:   1,
		NHeads:    2,
		NKvHeads:  2,
		VocabSize: 8,
		SeqLen:    8,
	}
	m := model.NewUninitialized(params)
	for _, layer := range m.LinearLayers() {
		for i := range layer.Data {
			// Spread of magnitudes, alternating sign, no ties.
			layer.Data[i] = float32(i+1) * 0.01
			if i%2 == 1 {
				layer.Data[i] = -layer.Data[i]
			}
		}
	}
	return m
}

func TestPruneZeroesSmallestMagnitudes(t *testing.T) {
	m := tinyModel()
	amount := 0.25

	before := make(map[string][]float32)
	for _, layer := range m.LinearLayers() {
		orig := make([]float32, len(layer.Data))
		copy(orig, layer.Data)
		before[layer.Name] = orig
	}

	Prune(m, amount, 3, 0)

	for _, layer := range m.LinearLayers() {
		orig := before[layer.Name]
		k := int(math.Floor(amount * float64(len(orig))))

		zeros := 0
		for _, w := range layer.Data {
			if w == 0 {
				zeros++
			}
		}
		if zeros < k {
			t.Errorf("%s: %d zeros, want at least %d", layer.Name, zeros, k)
		}

		// The surviving weights must be exactly the larger-magnitude ones:
		// every zeroed entry's original magnitude must not exceed any
		// survivor's magnitude.
		var maxZeroed, minKept float64 = 0, math.Inf(1)
		for i, w := range layer.Data {
			mag := math.Abs(float64(orig[i]))
			if w == 0 {
				if mag > maxZeroed {
					maxZeroed = mag
				}
			} else if mag < minKept {
				minKept = mag
			}
		}
		if maxZeroed > minKept {
			t.Errorf("%s: zeroed magnitude %f exceeds kept magnitude %f", layer.Name, maxZeroed, minKept)
		}
	}
}

func TestPruneZeroAmountIsNoop(t *testing.T) {
	m := tinyModel()
	orig := make([]float32, len(m.LinearLayers()[0].Data))
	copy(orig, m.LinearLayers()[0].Data)

	Prune(m, 0, 5, time.Millisecond)

	for i, w := range m.LinearLayers()[0].Data {
		if w != orig[i] {
			t.Fatalf("weight %d changed with zero prune amount", i)
		}
	}
}

func TestPruneReturnsSameModel(t *testing.T) {
	m := tinyModel()
	if got := Prune(m, 0.1, 2, 0); got != m {
		t.Error("Prune must return the same model reference")
	}
}

func TestLowRankFullRankReconstruction(t *testing.T) {
	m := tinyModel()

	before := make(map[string][]float32)
	for _, layer := range m.LinearLayers() {
		orig := make([]float32, len(layer.Data))
		copy(orig, layer.Data)
		before[layer.Name] = orig
	}

	// Rank at least min(rows, cols) for every layer reproduces each matrix.
	if _, err := LowRank(m, 6); err != nil {
		t.Fatalf("low rank failed: %v", err)
	}

	for _, layer := range m.LinearLayers() {
		orig := before[layer.Name]
		for i, w := range layer.Data {
			if diff := math.Abs(float64(w - orig[i])); diff > 1e-4 {
				t.Errorf("%s[%d]: |%f - %f| = %g exceeds tolerance", layer.Name, i, w, orig[i], diff)
			}
		}
	}
}

func TestLowRankErrorNonIncreasing(t *testing.T) {
	var prevErr float64 = math.Inf(1)
	for rank := 1; rank <= 4; rank++ {
		m := tinyModel()
		orig := make([]float32, len(m.LinearLayers()[0].Data))
		copy(orig, m.LinearLayers()[0].Data)

		if _, err := LowRank(m, rank); err != nil {
			t.Fatalf("low rank failed at rank %d: %v", rank, err)
		}

		var frob float64
		for i, w := range m.LinearLayers()[0].Data {
			d := float64(w - orig[i])
			frob += d * d
		}
		frob = math.Sqrt(frob)

		if frob > prevErr+1e-6 {
			t.Errorf("rank %d: reconstruction error %g grew from %g", rank, frob, prevErr)
		}
		prevErr = frob
	}
}

func TestLowRankZeroRankIsNoop(t *testing.T) {
	m := tinyModel()
	orig := make([]float32, len(m.LinearLayers()[0].Data))
	copy(orig, m.LinearLayers()[0].Data)

	if _, err := LowRank(m, 0); err != nil {
		t.Fatalf("low rank failed: %v", err)
	}
	for i, w := range m.LinearLayers()[0].Data {
		if w != orig[i] {
			t.Fatalf("weight %d changed with zero rank", i)
		}
	}
}
