package model

import (
	"fmt"

	"github.com/rs/zerolog/log"
)

// Runtime bundles the loaded model, its tokenizer and the selected device.
// It is created once at startup and passed explicitly to everything that
// generates, replacing the process-wide globals of earlier iterations.
type Runtime struct {
	Model     *Model
	Tokenizer *Tokenizer
	Device    Device
}

// Initialize loads tokenizer and weights and selects the compute device.
// Any failure is returned to the caller; there is no recovery path.
func Initialize(checkpointPath, tokenizerPath string) (*Runtime, error) {
	device := DetectDevice()
	log.Info().Str("device", device.Kind).Int("threads", device.Threads).Msg("Selected compute device")

	tokenizer, err := LoadTokenizer(tokenizerPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load tokenizer: %w", err)
	}

	m, err := LoadCheckpoint(checkpointPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}

	log.Info().
		Int32("dim", m.Params.Dim).
		Int32("layers", m.Params.NLayers).
		Int32("vocab", m.Params.VocabSize).
		Msg("Model loaded")

	return &Runtime{Model: m, Tokenizer: tokenizer, Device: device}, nil
}
