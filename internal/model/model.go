package model

import (
	"encoding/binary"
	"fmt"
	"os"
)

// Params is the transformer shape header stored at the front of a
// checkpoint file (llama2.c layout, little endian int32s).
type Params struct {
	Dim       int32
	HiddenDim int32
	NLayers   int32
	NHeads    int32
	NKvHeads  int32
	VocabSize int32
	SeqLen    int32
}

// Weights holds all model parameters as flat float32 slices. Per-layer
// matrices are stored row major, layer after layer. The slices are mutated
// in place by the compression passes.
type Weights struct {
	TokenEmbedding []float32 // (vocab, dim)
	RmsAtt         []float32 // (layers, dim)
	RmsFfn         []float32 // (layers, dim)
	Wq             []float32 // (layers, dim, dim)
	Wk             []float32 // (layers, kv_dim, dim)
	Wv             []float32 // (layers, kv_dim, dim)
	Wo             []float32 // (layers, dim, dim)
	W1             []float32 // (layers, hidden, dim)
	W2             []float32 // (layers, dim, hidden)
	W3             []float32 // (layers, hidden, dim)
	RmsFinal       []float32 // (dim)
}

// Linear is a named view over one linear layer's weight matrix. Data
// aliases the backing weight slice, so writes through it modify the model.
type Linear struct {
	Name string
	Rows int
	Cols int
	Data []float32
}

// Model is the loaded causal LM: shape, parameters and scratch state for
// the forward pass. Not safe for concurrent use; callers sequence
// compression and generation.
type Model struct {
	Params  Params
	Weights *Weights
	state   *runState
}

func newWeights(p Params) *Weights {
	dim := int(p.Dim)
	hidden := int(p.HiddenDim)
	kvDim := int(p.Dim) * int(p.NKvHeads) / int(p.NHeads)
	layers := int(p.NLayers)
	vocab := int(p.VocabSize)

	return &Weights{
		TokenEmbedding: make([]float32, vocab*dim),
		RmsAtt:         make([]float32, layers*dim),
		RmsFfn:         make([]float32, layers*dim),
		Wq:             make([]float32, layers*dim*dim),
		Wk:             make([]float32, layers*dim*kvDim),
		Wv:             make([]float32, layers*dim*kvDim),
		Wo:             make([]float32, layers*dim*dim),
		W1:             make([]float32, layers*hidden*dim),
		W2:             make([]float32, layers*dim*hidden),
		W3:             make([]float32, layers*hidden*dim),
		RmsFinal:       make([]float32, dim),
	}
}

// New builds a model around caller-provided weights. Weight slices must
// match the shapes implied by params.
func New(params Params, w *Weights) *Model {
	return &Model{Params: params, Weights: w, state: newRunState(params)}
}

// NewUninitialized allocates a model of the given shape with zero weights.
func NewUninitialized(params Params) *Model {
	return New(params, newWeights(params))
}

// LoadCheckpoint reads the shape header and weight tensors from a binary
// checkpoint file.
func LoadCheckpoint(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var params Params
	if err := binary.Read(f, binary.LittleEndian, &params); err != nil {
		return nil, fmt.Errorf("failed to read checkpoint header: %w", err)
	}
	if params.Dim <= 0 || params.NLayers <= 0 || params.VocabSize <= 0 {
		return nil, fmt.Errorf("invalid checkpoint header: %+v", params)
	}

	w := newWeights(params)
	tensors := [][]float32{
		w.TokenEmbedding,
		w.RmsAtt,
		w.Wq, w.Wk, w.Wv, w.Wo,
		w.RmsFfn,
		w.W1, w.W2, w.W3,
		w.RmsFinal,
	}
	for _, t := range tensors {
		if err := binary.Read(f, binary.LittleEndian, t); err != nil {
			return nil, fmt.Errorf("failed to read checkpoint tensors: %w", err)
		}
	}

	return &Model{Params: params, Weights: w, state: newRunState(params)}, nil
}

// LinearLayers enumerates every linear layer's weight matrix, in layer
// order. This is the surface the compression passes operate on; embeddings
// and norm vectors are not included.
func (m *Model) LinearLayers() []Linear {
	p := m.Params
	dim := int(p.Dim)
	hidden := int(p.HiddenDim)
	kvDim := dim * int(p.NKvHeads) / int(p.NHeads)
	w := m.Weights

	var layers []Linear
	for l := 0; l < int(p.NLayers); l++ {
		slice := func(t []float32, rows, cols int) []float32 {
			return t[l*rows*cols : (l+1)*rows*cols]
		}
		layers = append(layers,
			Linear{Name: fmt.Sprintf("layers.%d.attn.wq", l), Rows: dim, Cols: dim, Data: slice(w.Wq, dim, dim)},
			Linear{Name: fmt.Sprintf("layers.%d.attn.wk", l), Rows: kvDim, Cols: dim, Data: slice(w.Wk, kvDim, dim)},
			Linear{Name: fmt.Sprintf("layers.%d.attn.wv", l), Rows: kvDim, Cols: dim, Data: slice(w.Wv, kvDim, dim)},
			Linear{Name: fmt.Sprintf("layers.%d.attn.wo", l), Rows: dim, Cols: dim, Data: slice(w.Wo, dim, dim)},
			Linear{Name: fmt.Sprintf("layers.%d.ffn.w1", l), Rows: hidden, Cols: dim, Data: slice(w.W1, hidden, dim)},
			Linear{Name: fmt.Sprintf("layers.%d.ffn.w2", l), Rows: dim, Cols: hidden, Data: slice(w.W2, dim, hidden)},
			Linear{Name: fmt.Sprintf("layers.%d.ffn.w3", l), Rows: hidden, Cols: dim, Data: slice(w.W3, hidden, dim)},
		)
	}
	return layers
}

// Reset clears the KV cache so a new sequence can be decoded.
func (m *Model) Reset() {
	m.state.reset()
}
