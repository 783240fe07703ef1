package main

import (
	"context"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/duke605/parse-loader/sqlquery"
	"github.com/jmoiron/sqlx"
)

type RecordsRepo struct {
	db          *sqlx.DB
	placeholder sq.PlaceholderFormat
}

func NewRecordsRepo(db *sqlx.DB, placeholder sq.PlaceholderFormat) *RecordsRepo {
	return &RecordsRepo{
		db:          db,
		placeholder: placeholder,
	}
}

func (repo *RecordsRepo) InsertMany(ctx context.Context, records []*Record) error {
	if len(records) == 0 {
		return nil
	}

	cols := records[0].GetColumns()
	builder := sq.Insert("records").Columns(cols...).PlaceholderFormat(repo.placeholder)
	for _, r := range records {
		builder = builder.Values(r.ToColumns(cols)...)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return err
	}

	start := time.Now()
	defer logQuery(ctx, "Inserting many records", start, "query", query)
	_, err = repo.db.ExecContext(ctx, query, args...)
	return err
}

func (repo *RecordsRepo) Count(ctx context.Context, where map[string]any) (int, error) {
	query, args, err := sq.Select("COUNT(*)").
		From("records").
		Where(sq.Eq(where)).
		PlaceholderFormat(repo.placeholder).
		ToSql()
	if err != nil {
		return 0, err
	}

	start := time.Now()
	defer logQuery(ctx, "Counting records", start, "query", query, "args", args)
	n := 0
	err = repo.db.GetContext(ctx, &n, query, args...)
	return n, err
}

// Query returns a pageable select over records matching every key/value pair in where,
// oldest first.
func (repo *RecordsRepo) Query(where map[string]any) (*sqlquery.Query[Record], error) {
	builder := sq.Select("id", "title", "COALESCE(note, '') AS note", "created_at").
		From("records").
		Where(sq.Eq(where)).
		OrderBy("created_at", "id").
		PlaceholderFormat(repo.placeholder)

	return sqlquery.New[Record](repo.db, builder, sqlquery.WithLogger(slog.Default()))
}

func logQuery(ctx context.Context, msg string, start time.Time, args ...interface{}) {
	args = append(args, "duration", time.Since(start))
	slog.DebugContext(ctx, msg, args...)
}
