package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"tutor-llm/internal/compress"
	"tutor-llm/internal/config"
	"tutor-llm/internal/generate"
	"tutor-llm/internal/helper"
	"tutor-llm/internal/hub"
	"tutor-llm/internal/model"
	"tutor-llm/internal/parser"
	"tutor-llm/internal/prompt"
	"tutor-llm/internal/qa"
	"tutor-llm/internal/store"
	"tutor-llm/internal/vecstore"
)

const configFilePath = "./configs/config.yaml"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	filePath := flag.String("file", "", "Path to a document to synthesize QA pairs from")
	contextFile := flag.String("context-file", "", "Path to a text file used as answering context")
	question := flag.String("question", "", "Question to answer from the context")
	hint := flag.Bool("hint", false, "Produce a hint instead of the answer")
	userAnswer := flag.String("user-answer", "", "User's answer to grade (feedback + verdict)")
	search := flag.String("search", "", "Search stored QA pairs")
	list := flag.Bool("list", false, "List QA pairs stored in the database")
	forceDownload := flag.Bool("force-download", false, "Re-download model artifacts")
	dryRun := flag.Bool("dry-run", false, "Dry run, do not save to database")
	pruneAmount := flag.Float64("prune", -1, "Fraction of weights to prune, overrides config")
	rank := flag.Int("rank", -1, "Low-rank factorization target, overrides config")
	flag.Parse()

	cfg, err := config.LoadConfig(configFilePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}
	overrideCompress(&cfg.Compress, *pruneAmount, *rank)
	log.Debug().Interface("config", cfg).Msg("Loaded config")

	ctx := context.Background()

	if *search != "" {
		searchQAPairs(ctx, cfg, *search)
		return
	}

	if *list {
		listQAPairs(ctx, cfg)
		return
	}

	backend := initBackend(cfg, *forceDownload)

	if *filePath != "" {
		synthesizeQAPairs(ctx, cfg, backend, *filePath, *dryRun)
		return
	}

	if *question != "" {
		askQuestion(ctx, backend, *contextFile, *question, *hint, *userAnswer)
		return
	}

	log.Fatal().Msg("Please provide a document with -file, a question with -question, or a query with -search")
}

// overrideCompress replaces the configured compression amounts with the
// flag values. Negative flag values mean the flag was not given; zero is a
// valid override that switches the pass off.
func overrideCompress(c *config.CompressConfig, pruneAmount float64, rank int) {
	if pruneAmount >= 0 {
		c.PruneAmount = pruneAmount
	}
	if rank >= 0 {
		c.Rank = rank
	}
}

// initBackend loads the model, applies the configured compression passes
// and wraps it in a generation backend. With a remote LLM configured the
// local model is skipped entirely.
func initBackend(cfg *config.Config, forceDownload bool) generate.Backend {
	if cfg.RemoteLLM.BaseURL != "" {
		backend, err := generate.NewRemote(&cfg.RemoteLLM)
		if err != nil {
			log.Fatal().Err(err).Msg("Error initializing remote backend")
		}
		return backend
	}

	token, err := cfg.HubToken()
	if err != nil {
		log.Fatal().Err(err).Msg("Missing hub credential")
	}

	downloader, err := hub.NewDownloader(&cfg.Hub, token)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing downloader")
	}

	checkpointPath, tokenizerPath, err := downloader.DownloadModel(forceDownload)
	if err != nil {
		log.Fatal().Err(err).Msg("Error downloading model")
	}

	rt, err := model.Initialize(checkpointPath, tokenizerPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing model")
	}

	// Compression runs to completion before the backend is handed out;
	// the runtime is not safe for concurrent compress and generate.
	if cfg.Compress.Rank > 0 {
		if _, err := compress.LowRank(rt.Model, cfg.Compress.Rank); err != nil {
			log.Fatal().Err(err).Msg("Error applying low-rank factorization")
		}
	}
	if cfg.Compress.PruneAmount > 0 {
		compress.Prune(rt.Model, cfg.Compress.PruneAmount, cfg.Compress.PruneBatchSize, cfg.Compress.PruneDelay())
	}

	return generate.NewLocal(rt, &cfg.Generate)
}

func askQuestion(ctx context.Context, backend generate.Backend, contextFile, question string, hint bool, userAnswer string) {
	var docContext string
	if contextFile != "" {
		data, err := os.ReadFile(contextFile)
		if err != nil {
			log.Fatal().Err(err).Msg("Error reading context file")
		}
		docContext = string(data)
	}

	if hint {
		response, err := prompt.Hint(ctx, backend, docContext, question)
		if err != nil {
			log.Fatal().Err(err).Msg("Error generating hint")
		}
		fmt.Printf("%s\n", response)
		return
	}

	if userAnswer != "" {
		feedback, err := prompt.Feedback(ctx, backend, docContext, question, userAnswer)
		if err != nil {
			log.Fatal().Err(err).Msg("Error generating feedback")
		}
		verdict, err := prompt.Verdict(ctx, backend, docContext, question, userAnswer, feedback)
		if err != nil {
			log.Fatal().Err(err).Msg("Error generating verdict")
		}

		log.Info().Msg("Feedback: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
		fmt.Printf("%s\n\n", feedback)
		log.Info().Msg("Verdict: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
		fmt.Printf("%s\n\n", verdict)
		return
	}

	response, err := prompt.Answer(ctx, backend, docContext, question)
	if err != nil {
		log.Fatal().Err(err).Msg("Error generating answer")
	}
	fmt.Printf("%s\n", response)
}

func synthesizeQAPairs(ctx context.Context, cfg *config.Config, backend generate.Backend, filePath string, dryRun bool) {
	text, err := parser.ExtractText(filePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error parsing document")
	}

	pairs, err := qa.Synthesize(ctx, backend, text, cfg.Synthesis.ChunkSize, cfg.Synthesis.BatchSize)
	if err != nil {
		log.Fatal().Err(err).Msg("Error synthesizing QA pairs")
	}

	helper.PrettyPrint(pairs)

	if dryRun {
		return
	}

	if cfg.Database.Enabled {
		db := store.Connect(&cfg.Database)
		defer db.Close()

		if err := store.Init(ctx, db); err != nil {
			log.Fatal().Err(err).Msg("Error initializing database")
		}
		if err := store.SaveAll(ctx, db, pairs, filePath); err != nil {
			log.Fatal().Err(err).Msg("Error storing QA pairs")
		}
		log.Info().Int("pairs", len(pairs)).Msg("Stored QA pairs in database")
	}

	if cfg.VectorDB.Enabled {
		if err := helper.CreateFolder(cfg.VectorDB.Path); err != nil {
			log.Fatal().Err(err).Msg("Error creating folder")
		}

		embedder, err := vecstore.NewEmbedder(&cfg.EmbedLLM)
		if err != nil {
			log.Fatal().Err(err).Msg("Error initializing embedder")
		}
		vs, err := vecstore.New(&cfg.VectorDB, embedder)
		if err != nil {
			log.Fatal().Err(err).Msg("Error creating vector database")
		}
		if err := vs.AddPairs(ctx, pairs, filePath); err != nil {
			log.Fatal().Err(err).Msg("Error adding QA pairs to vector database")
		}

		if cfg.VectorDB.InMemory {
			if err := vs.Export(ctx); err != nil {
				log.Fatal().Err(err).Msg("Error exporting collection")
			}
		}
	}
}

func listQAPairs(ctx context.Context, cfg *config.Config) {
	db := store.Connect(&cfg.Database)
	defer db.Close()

	pairs, err := store.List(ctx, db, "")
	if err != nil {
		log.Fatal().Err(err).Msg("Error listing QA pairs")
	}
	for _, pair := range pairs {
		fmt.Printf("Question: %s\nAnswer: %s\n\n", pair.Question, pair.Answer)
	}
}

func searchQAPairs(ctx context.Context, cfg *config.Config, query string) {
	if !cfg.VectorDB.Enabled {
		log.Fatal().Msg("Vector database is disabled, enable it in the config to search")
	}

	embedder, err := vecstore.NewEmbedder(&cfg.EmbedLLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}
	vs, err := vecstore.New(&cfg.VectorDB, embedder)
	if err != nil {
		log.Fatal().Err(err).Msg("Error creating vector database")
	}

	results, err := vs.Search(ctx, query, 5)
	if err != nil {
		log.Fatal().Err(err).Msg("Error querying")
	}

	log.Info().Msg("Query: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", query)

	for _, result := range results {
		fmt.Printf("%s\n(similarity %.3f)\n\n", result.Content, result.Similarity)
	}
}
