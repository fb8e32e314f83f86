package generate

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"tutor-llm/internal/config"
)

// Remote offloads generation to a served model. An ollama server is used
// unless the config carries an API key, in which case an OpenAI-compatible
// endpoint is assumed.
type Remote struct {
	llm llms.Model
}

func NewRemote(cfg *config.LLMConfig) (*Remote, error) {
	log.Debug().Str("base_url", cfg.BaseURL).Str("model", cfg.Model).Msg("Initializing remote backend")

	var llm llms.Model
	var err error
	if cfg.Key != "" {
		llm, err = openai.New(
			openai.WithBaseURL(cfg.BaseURL),
			openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
			openai.WithModel(cfg.Model),
		)
	} else {
		llm, err = ollama.New(
			ollama.WithServerURL(cfg.BaseURL),
			ollama.WithModel(cfg.Model),
		)
	}
	if err != nil {
		return nil, err
	}
	return &Remote{llm: llm}, nil
}

func (r *Remote) Generate(ctx context.Context, prompt string) (string, error) {
	msgContent := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextContent{Text: prompt}},
		},
	}

	res, err := r.llm.GenerateContent(ctx, msgContent)
	if err != nil {
		return "", err
	}
	// OpenAI-compatible proxies can answer 200 with no choices on filtered
	// or empty completions.
	if len(res.Choices) == 0 {
		return "", fmt.Errorf("remote model returned no choices")
	}

	// Served models return only the completion; prepend the prompt so the
	// marker extraction downstream sees the same shape as local decoding.
	return prompt + res.Choices[0].Content, nil
}
