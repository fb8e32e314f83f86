package compress

import (
	"math"
	"runtime"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"tutor-llm/internal/model"
)

// Prune zeroes the amount-fraction smallest-magnitude weights of every
// linear layer, processing layers in batches of batchSize to bound the
// scratch memory held at once. Between batches the garbage collector is
// invoked and the loop pauses for delay, a throughput throttle rather than
// a correctness requirement. The model is mutated in place and returned.
func Prune(m *model.Model, amount float64, batchSize int, delay time.Duration) *model.Model {
	if amount <= 0 {
		return m
	}
	if amount > 1 {
		amount = 1
	}
	if batchSize <= 0 {
		batchSize = 1
	}

	layers := m.LinearLayers()
	log.Info().Float64("amount", amount).Int("layers", len(layers)).Msg("Applying pruning")

	for i := 0; i < len(layers); i += batchSize {
		end := i + batchSize
		if end > len(layers) {
			end = len(layers)
		}

		for _, layer := range layers[i:end] {
			pruneLayer(layer.Data, amount)
		}

		runtime.GC()
		time.Sleep(delay)

		log.Debug().
			Int("batch", i/batchSize+1).
			Int("batches", (len(layers)+batchSize-1)/batchSize).
			Msg("Pruned batch")
	}

	return m
}

// pruneLayer zeroes every weight whose magnitude is at or below the k-th
// smallest magnitude, k = floor(amount * n). Ties at the threshold may
// zero slightly more than the requested fraction.
func pruneLayer(weights []float32, amount float64) {
	k := int(math.Floor(amount * float64(len(weights))))
	if k == 0 {
		return
	}

	mags := make([]float64, len(weights))
	for i, w := range weights {
		mags[i] = math.Abs(float64(w))
	}
	sort.Float64s(mags)
	threshold := mags[k-1]

	for i, w := range weights {
		if math.Abs(float64(w)) <= threshold {
			weights[i] = 0
		}
	}
}
