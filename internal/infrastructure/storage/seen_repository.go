package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"MarketScanner/internal/domain"
	"MarketScanner/internal/ports"
)

const (
	seenTable  = "seen_articles"
	insertSize = 500
)

// SeenRepository persists article fingerprints.
type SeenRepository struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

var _ ports.SeenStore = (*SeenRepository)(nil)

// NewSeenRepository wires a sql.DB opened with driver.
func NewSeenRepository(db *sql.DB, driver string) *SeenRepository {
	return &SeenRepository{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(placeholders(driver)),
	}
}

// Load returns every stored fingerprint. A fresh database yields an empty set.
func (r *SeenRepository) Load(ctx context.Context) (domain.SeenSet, error) {
	query, args, err := r.builder.Select("fingerprint").From(seenTable).ToSql()
	if err != nil {
		return domain.SeenSet{}, fmt.Errorf("build select: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return domain.SeenSet{}, fmt.Errorf("query seen: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return domain.SeenSet{}, fmt.Errorf("scan fingerprint: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return domain.SeenSet{}, fmt.Errorf("rows iteration: %w", err)
	}

	return domain.NewSeenSet(ids...), nil
}

// Save stores every fingerprint of set in one transaction. Existing rows are
// kept, so the stored set only grows.
func (r *SeenRepository) Save(ctx context.Context, set domain.SeenSet) error {
	ids := set.IDs()
	if len(ids) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for start := 0; start < len(ids); start += insertSize {
		end := min(start+insertSize, len(ids))

		insert := r.builder.Insert(seenTable).Columns("fingerprint")
		for _, id := range ids[start:end] {
			insert = insert.Values(id)
		}
		query, args, err := insert.Suffix("ON CONFLICT (fingerprint) DO NOTHING").ToSql()
		if err != nil {
			return fmt.Errorf("build insert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert fingerprints: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seen set: %w", err)
	}
	return nil
}
