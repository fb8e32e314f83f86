package model

import (
	"math"
	"sync"
)

const rmsEps = 1e-5

// runState holds the scratch buffers and KV cache for autoregressive
// decoding of a single sequence.
type runState struct {
	x, xb, xb2 []float32
	hb, hb2    []float32
	q, k, v    []float32
	att        []float32
	logits     []float32
	keyCache   []float32
	valueCache []float32
}

func newRunState(p Params) *runState {
	dim := int(p.Dim)
	hidden := int(p.HiddenDim)
	kvDim := dim * int(p.NKvHeads) / int(p.NHeads)
	layers := int(p.NLayers)
	seq := int(p.SeqLen)

	return &runState{
		x:          make([]float32, dim),
		xb:         make([]float32, dim),
		xb2:        make([]float32, dim),
		hb:         make([]float32, hidden),
		hb2:        make([]float32, hidden),
		q:          make([]float32, dim),
		k:          make([]float32, kvDim),
		v:          make([]float32, kvDim),
		att:        make([]float32, int(p.NHeads)*seq),
		logits:     make([]float32, int(p.VocabSize)),
		keyCache:   make([]float32, layers*seq*kvDim),
		valueCache: make([]float32, layers*seq*kvDim),
	}
}

func (s *runState) reset() {
	for i := range s.keyCache {
		s.keyCache[i] = 0
	}
	for i := range s.valueCache {
		s.valueCache[i] = 0
	}
}

// Forward runs one decoding step for token at position pos and returns the
// logits over the vocabulary. The returned slice is reused across calls.
func (m *Model) Forward(token, pos int) []float32 {
	p := m.Params
	s := m.state
	w := m.Weights
	x := s.x

	dim := int(p.Dim)
	hidden := int(p.HiddenDim)
	heads := int(p.NHeads)
	kvDim := dim * int(p.NKvHeads) / int(p.NHeads)
	kvMul := heads / int(p.NKvHeads)
	headSize := dim / heads
	seq := int(p.SeqLen)

	copy(x, w.TokenEmbedding[token*dim:(token+1)*dim])

	for l := 0; l < int(p.NLayers); l++ {
		rmsNorm(s.xb, x, w.RmsAtt[l*dim:(l+1)*dim])

		matmul(s.q, s.xb, w.Wq[l*dim*dim:(l+1)*dim*dim])
		matmul(s.k, s.xb, w.Wk[l*dim*kvDim:(l+1)*dim*kvDim])
		matmul(s.v, s.xb, w.Wv[l*dim*kvDim:(l+1)*dim*kvDim])

		// RoPE rotation on query and key pairs.
		rope(s.q, pos, headSize)
		rope(s.k, pos, headSize)

		loff := l * seq * kvDim
		copy(s.keyCache[loff+pos*kvDim:loff+(pos+1)*kvDim], s.k)
		copy(s.valueCache[loff+pos*kvDim:loff+(pos+1)*kvDim], s.v)

		var wg sync.WaitGroup
		wg.Add(heads)
		for h := 0; h < heads; h++ {
			go func(h int) {
				defer wg.Done()

				q := s.q[h*headSize : (h+1)*headSize]
				att := s.att[h*seq : (h+1)*seq]
				kvHead := h / kvMul

				for t := 0; t <= pos; t++ {
					k := s.keyCache[loff+t*kvDim+kvHead*headSize:][:headSize]
					var score float32
					for i := range q {
						score += q[i] * k[i]
					}
					att[t] = score / float32(math.Sqrt(float64(headSize)))
				}

				softmax(att[:pos+1])

				xb := s.xb[h*headSize : (h+1)*headSize]
				for i := range xb {
					xb[i] = 0
				}
				for t := 0; t <= pos; t++ {
					v := s.valueCache[loff+t*kvDim+kvHead*headSize:][:headSize]
					a := att[t]
					for i := range xb {
						xb[i] += a * v[i]
					}
				}
			}(h)
		}
		wg.Wait()

		matmul(s.xb2, s.xb, w.Wo[l*dim*dim:(l+1)*dim*dim])
		accum(x, s.xb2)

		rmsNorm(s.xb, x, w.RmsFfn[l*dim:(l+1)*dim])

		matmul(s.hb, s.xb, w.W1[l*hidden*dim:(l+1)*hidden*dim])
		matmul(s.hb2, s.xb, w.W3[l*hidden*dim:(l+1)*hidden*dim])

		// SwiGLU
		for i := 0; i < hidden; i++ {
			val := s.hb[i]
			val *= 1.0 / (1.0 + float32(math.Exp(float64(-val))))
			s.hb[i] = val * s.hb2[i]
		}

		matmul(s.xb, s.hb, w.W2[l*dim*hidden:(l+1)*dim*hidden])
		accum(x, s.xb)
	}

	rmsNorm(x, x, w.RmsFinal)
	matmul(s.logits, x, w.TokenEmbedding)
	return s.logits
}

func rope(vec []float32, pos, headSize int) {
	for i := 0; i+1 < len(vec); i += 2 {
		headDim := i % headSize
		freq := 1.0 / math.Pow(10000.0, float64(headDim)/float64(headSize))
		val := float64(pos) * freq
		fcr := float32(math.Cos(val))
		fci := float32(math.Sin(val))

		v0, v1 := vec[i], vec[i+1]
		vec[i] = v0*fcr - v1*fci
		vec[i+1] = v0*fci + v1*fcr
	}
}

// matmul computes xout = w * x where w is (d, n) row major.
func matmul(xout, x, w []float32) {
	n := len(x)
	d := len(w) / n
	for i := 0; i < d; i++ {
		var val float32
		row := w[i*n : (i+1)*n]
		for j, xv := range x {
			val += row[j] * xv
		}
		xout[i] = val
	}
}

func accum(a, b []float32) {
	for i := range a {
		a[i] += b[i]
	}
}

func rmsNorm(dest, src, weight []float32) {
	var ss float32
	for _, v := range src {
		ss += v * v
	}
	ss = ss/float32(len(src)) + rmsEps
	ss = 1 / float32(math.Sqrt(float64(ss)))
	for i, v := range src {
		dest[i] = weight[i] * (ss * v)
	}
}

func softmax(x []float32) {
	if len(x) == 0 {
		return
	}
	maxVal := x[0]
	for _, v := range x[1:] {
		if v > maxVal {
			maxVal = v
		}
	}
	var sum float32
	for i, v := range x {
		x[i] = float32(math.Exp(float64(v - maxVal)))
		sum += x[i]
	}
	for i := range x {
		x[i] /= sum
	}
}
