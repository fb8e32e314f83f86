// Package vecstore keeps synthesized QA pairs in a chromem-go collection
// with ollama embeddings so stored questions can be searched by meaning.
package vecstore

import (
	"context"
	"fmt"
	"runtime"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"

	"tutor-llm/internal/config"
	"tutor-llm/internal/helper"
)

type Store struct {
	db         *chromem.DB
	collection *chromem.Collection
	embedder   *embeddings.EmbedderImpl
	cfg        *config.VectorDBConfig
	filePath   string
}

const compress = false

func NewEmbedder(cfg *config.LLMConfig) (*embeddings.EmbedderImpl, error) {
	log.Debug().Str("base_url", cfg.BaseURL).Str("model", cfg.Model).Msg("Initializing embedder")

	llm, err := ollama.New(
		ollama.WithServerURL(cfg.BaseURL),
		ollama.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, err
	}
	return embeddings.NewEmbedder(llm)
}

func New(cfg *config.VectorDBConfig, embedder *embeddings.EmbedderImpl) (*Store, error) {
	// Refusing here keeps a disabled store from ever materializing its
	// persistence directory on disk.
	if !cfg.Enabled {
		return nil, fmt.Errorf("vector database is disabled")
	}

	var db *chromem.DB
	var err error
	if cfg.InMemory {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(cfg.Path, compress)
		if err != nil {
			return nil, fmt.Errorf("failed to create vector database: %w", err)
		}
	}

	collection, err := db.GetOrCreateCollection(cfg.Collection, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create/get collection: %w", err)
	}

	return &Store{
		db:         db,
		collection: collection,
		embedder:   embedder,
		cfg:        cfg,
		filePath:   cfg.Path + "/" + cfg.Collection + ".chromem",
	}, nil
}

// AddPairs embeds and stores each QA pair as one document combining
// question and answer, with the question kept in metadata for display.
func (s *Store) AddPairs(ctx context.Context, pairs map[string]string, source string) error {
	if len(pairs) == 0 {
		return nil
	}

	docs := make([]chromem.Document, 0, len(pairs))
	for question, answer := range pairs {
		id, err := helper.GenerateUUID()
		if err != nil {
			return err
		}
		content := fmt.Sprintf("Question: %s\nAnswer: %s", question, answer)
		embedding, err := s.embedder.EmbedQuery(ctx, content)
		if err != nil {
			return fmt.Errorf("failed to embed pair: %w", err)
		}
		docs = append(docs, chromem.Document{
			ID:      id,
			Content: content,
			Metadata: map[string]string{
				"question": question,
				"source":   source,
			},
			Embedding: embedding,
		})
	}

	log.Info().Int("documents", len(docs)).Msg("Adding QA pairs to vector database")
	if err := s.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add documents: %w", err)
	}
	return nil
}

// Search returns the best matching stored pairs for a free-text query.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]chromem.Result, error) {
	if query == "" {
		return nil, fmt.Errorf("query must not be empty")
	}
	if n := s.collection.Count(); limit > n {
		limit = n
	}
	if limit == 0 {
		return nil, nil
	}

	embedding, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	return s.collection.QueryWithOptions(ctx, chromem.QueryOptions{
		QueryEmbedding: embedding,
		NResults:       limit,
	})
}

// Export writes the collection to an encrypted file, used with in-memory
// databases that would otherwise vanish at exit.
func (s *Store) Export(ctx context.Context) error {
	if s.cfg.EncryptionKey == "" {
		return fmt.Errorf("encryption key is required")
	}
	if err := s.db.ExportToFile(s.filePath, compress, s.cfg.EncryptionKey, s.cfg.Collection); err != nil {
		return fmt.Errorf("failed to export database: %w", err)
	}
	return nil
}
