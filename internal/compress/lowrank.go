package compress

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/mat"

	"tutor-llm/internal/model"
)

// LowRank replaces every linear layer's weight matrix with its best rank-r
// approximation via singular value decomposition. The decomposition runs
// in float64 regardless of the model's float32 storage, which keeps the
// factorization numerically stable. Bias handling is untouched (the model
// has none). The model is mutated in place and returned.
func LowRank(m *model.Model, rank int) (*model.Model, error) {
	if rank <= 0 {
		return m, nil
	}

	layers := m.LinearLayers()
	log.Info().Int("rank", rank).Int("layers", len(layers)).Msg("Applying low-rank factorization")

	for _, layer := range layers {
		if err := lowRankLayer(layer, rank); err != nil {
			return nil, fmt.Errorf("low-rank factorization of %s failed: %w", layer.Name, err)
		}
	}
	return m, nil
}

func lowRankLayer(layer model.Linear, rank int) error {
	rows, cols := layer.Rows, layer.Cols
	if r := min(rows, cols); rank > r {
		rank = r
	}

	dense := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			dense.Set(i, j, float64(layer.Data[i*cols+j]))
		}
	}

	var svd mat.SVD
	if ok := svd.Factorize(dense, mat.SVDThin); !ok {
		return fmt.Errorf("SVD did not converge (%dx%d)", rows, cols)
	}

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	values := svd.Values(nil)

	// Truncate to the leading rank singular triplets and reconstruct
	// U_r * diag(S_r) * V_rᵀ.
	ur := u.Slice(0, rows, 0, rank)
	vr := v.Slice(0, cols, 0, rank)
	sr := mat.NewDiagDense(rank, values[:rank])

	var us, approx mat.Dense
	us.Mul(ur, sr)
	approx.Mul(&us, vr.T())

	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			layer.Data[i*cols+j] = float32(approx.At(i, j))
		}
	}
	return nil
}
