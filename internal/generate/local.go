package generate

import (
	"context"
	"fmt"

	"tutor-llm/internal/config"
	"tutor-llm/internal/model"
)

// Local decodes against the in-process model. One prompt in, one
// completion out, synchronously; there is no batching across prompts.
type Local struct {
	rt     *model.Runtime
	params model.SampleParams
	maxNew int
}

func NewLocal(rt *model.Runtime, cfg *config.GenerateConfig) *Local {
	return &Local{
		rt: rt,
		params: model.SampleParams{
			Greedy:      true,
			Temperature: cfg.Temperature,
			TopP:        cfg.TopP,
			TopK:        cfg.TopK,
		},
		maxNew: cfg.MaxNewTokens,
	}
}

// Generate runs greedy decoding until EOS or the new-token budget is
// spent. The returned text includes the prompt.
func (l *Local) Generate(ctx context.Context, prompt string) (string, error) {
	m := l.rt.Model
	tok := l.rt.Tokenizer

	promptTokens := tok.Encode(prompt, true)
	if len(promptTokens) == 0 {
		return "", fmt.Errorf("prompt produced no tokens")
	}
	if len(promptTokens) >= int(m.Params.SeqLen) {
		return "", fmt.Errorf("prompt of %d tokens exceeds context length %d", len(promptTokens), m.Params.SeqLen)
	}

	m.Reset()
	tokens := make([]int, 0, len(promptTokens)+l.maxNew)
	tokens = append(tokens, promptTokens...)

	token := promptTokens[0]
	pos := 0
	for pos < int(m.Params.SeqLen)-1 && len(tokens) < len(promptTokens)+l.maxNew {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		logits := m.Forward(token, pos)

		var next int
		if pos < len(promptTokens)-1 {
			// Still feeding the prompt.
			next = promptTokens[pos+1]
		} else {
			next = model.Sample(logits, l.params)
			if next == model.TokenEOS || next == model.TokenBOS {
				break
			}
			tokens = append(tokens, next)
		}

		token = next
		pos++
	}

	return tok.Decode(tokens), nil
}
