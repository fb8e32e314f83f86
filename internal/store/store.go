// Package store persists synthesized QA pairs in Postgres.
package store

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"tutor-llm/internal/config"
)

type QAPair struct {
	bun.BaseModel `bun:"table:qa_pairs,alias:qa"`
	ID            int64     `bun:"id,pk,autoincrement"`
	Question      string    `bun:"question,notnull,unique"`
	Answer        string    `bun:"answer,notnull"`
	Source        string    `bun:"source"`
	CreatedAt     time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

func Connect(cfg *config.DatabaseConfig) *bun.DB {
	dsn := cfg.URL + "?sslmode=disable"
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn), pgdriver.WithPassword(cfg.Key)))

	db := bun.NewDB(sqldb, pgdialect.New())
	if cfg.Debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

func Init(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*QAPair)(nil)).IfNotExists().Exec(ctx)
	return err
}

// SaveAll upserts pairs keyed by question text, so a regenerated question
// keeps its latest answer, matching the in-memory mapping semantics.
func SaveAll(ctx context.Context, db *bun.DB, pairs map[string]string, source string) error {
	if len(pairs) == 0 {
		return nil
	}

	rows := make([]QAPair, 0, len(pairs))
	for q, a := range pairs {
		rows = append(rows, QAPair{Question: q, Answer: a, Source: source})
	}

	_, err := db.NewInsert().
		Model(&rows).
		On("CONFLICT (question) DO UPDATE").
		Set("answer = EXCLUDED.answer").
		Set("source = EXCLUDED.source").
		Exec(ctx)
	return err
}

func List(ctx context.Context, db *bun.DB, source string) ([]QAPair, error) {
	var rows []QAPair
	q := db.NewSelect().Model(&rows).Order("id")
	if source != "" {
		q = q.Where("source = ?", source)
	}
	err := q.Scan(ctx)
	return rows, err
}
