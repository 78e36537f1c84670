// Package seriescache persists dated external series (market sentiment and
// auxiliary market indices) in a local DuckDB database, so batch runs can
// reuse them without refetching. A single process writes at a time.
package seriescache

import (
	"database/sql"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-forecast/internal/logger"
	"github.com/rxtech-lab/argo-forecast/internal/types"
	"github.com/rxtech-lab/argo-forecast/pkg/errors"
)

// IndexClose is one dated close observation of an external market index.
type IndexClose struct {
	Date  time.Time
	Close float64
}

// Store is a DuckDB-backed cache of dated rows.
type Store struct {
	db  *sql.DB
	log *logger.Logger
	sq  squirrel.StatementBuilderType
}

// NewStore opens (or creates) the cache database at the given path and
// ensures the schema exists.
func NewStore(path string, log *logger.Logger) (*Store, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeCacheQueryFailed, "failed to open series cache", err)
	}

	schema := `
		CREATE TABLE IF NOT EXISTS sentiment (
			date DATE NOT NULL,
			score DOUBLE NOT NULL,
			category INTEGER NOT NULL,
			positive INTEGER NOT NULL,
			negative INTEGER NOT NULL,
			neutral INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS index_close (
			name VARCHAR NOT NULL,
			date DATE NOT NULL,
			close DOUBLE NOT NULL
		);
	`

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()

		return nil, errors.Wrap(errors.ErrCodeCacheQueryFailed, "failed to create series cache schema", err)
	}

	return &Store{
		db:  db,
		log: log,
		sq:  squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// ReplaceSentiment overwrites the cached sentiment series with the given
// points. The series is replaced wholesale because the upstream index always
// returns its full history.
func (s *Store) ReplaceSentiment(points []types.SentimentPoint) error {
	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(errors.ErrCodeCacheWriteFailed, "failed to begin sentiment replace", err)
	}

	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM sentiment`); err != nil {
		return errors.Wrap(errors.ErrCodeCacheWriteFailed, "failed to clear sentiment cache", err)
	}

	for _, p := range points {
		query, args, err := s.sq.
			Insert("sentiment").
			Columns("date", "score", "category", "positive", "negative", "neutral").
			Values(p.Date, p.Score, int(p.Category), p.PositiveCount, p.NegativeCount, p.NeutralCount).
			ToSql()
		if err != nil {
			return errors.Wrap(errors.ErrCodeCacheWriteFailed, "failed to build sentiment insert", err)
		}

		if _, err := tx.Exec(query, args...); err != nil {
			return errors.Wrap(errors.ErrCodeCacheWriteFailed, "failed to insert sentiment row", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrCodeCacheWriteFailed, "failed to commit sentiment replace", err)
	}

	s.log.Debug("sentiment cache replaced", zap.Int("rows", len(points)))

	return nil
}

// LoadSentiment returns the cached sentiment series ordered by date.
func (s *Store) LoadSentiment() ([]types.SentimentPoint, error) {
	query, args, err := s.sq.
		Select("date", "score", "category", "positive", "negative", "neutral").
		From("sentiment").
		OrderBy("date ASC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeCacheQueryFailed, "failed to build sentiment select", err)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeCacheQueryFailed, "failed to query sentiment cache", err)
	}
	defer rows.Close()

	var points []types.SentimentPoint

	for rows.Next() {
		var p types.SentimentPoint

		var category int

		if err := rows.Scan(&p.Date, &p.Score, &category, &p.PositiveCount, &p.NegativeCount, &p.NeutralCount); err != nil {
			return nil, errors.Wrap(errors.ErrCodeCacheQueryFailed, "failed to scan sentiment row", err)
		}

		p.Category = types.SentimentCategory(category)
		p.Date = p.Date.UTC()
		points = append(points, p)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeCacheQueryFailed, "failed to iterate sentiment rows", err)
	}

	return points, nil
}

// LatestSentimentDate returns the newest cached sentiment date, if any.
func (s *Store) LatestSentimentDate() (optional.Option[time.Time], error) {
	return s.latestDate(s.sq.Select("MAX(date)").From("sentiment"))
}

// ReplaceIndexCloses overwrites the cached close series for a named index.
func (s *Store) ReplaceIndexCloses(name string, closes []IndexClose) error {
	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(errors.ErrCodeCacheWriteFailed, "failed to begin index replace", err)
	}

	defer func() { _ = tx.Rollback() }()

	deleteQuery, deleteArgs, err := s.sq.Delete("index_close").Where(squirrel.Eq{"name": name}).ToSql()
	if err != nil {
		return errors.Wrap(errors.ErrCodeCacheWriteFailed, "failed to build index delete", err)
	}

	if _, err := tx.Exec(deleteQuery, deleteArgs...); err != nil {
		return errors.Wrap(errors.ErrCodeCacheWriteFailed, "failed to clear index cache", err)
	}

	for _, c := range closes {
		query, args, err := s.sq.
			Insert("index_close").
			Columns("name", "date", "close").
			Values(name, c.Date, c.Close).
			ToSql()
		if err != nil {
			return errors.Wrap(errors.ErrCodeCacheWriteFailed, "failed to build index insert", err)
		}

		if _, err := tx.Exec(query, args...); err != nil {
			return errors.Wrap(errors.ErrCodeCacheWriteFailed, "failed to insert index row", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrCodeCacheWriteFailed, "failed to commit index replace", err)
	}

	s.log.Debug("index cache replaced", zap.String("name", name), zap.Int("rows", len(closes)))

	return nil
}

// LoadIndexCloses returns the cached close series for a named index ordered
// by date.
func (s *Store) LoadIndexCloses(name string) ([]IndexClose, error) {
	query, args, err := s.sq.
		Select("date", "close").
		From("index_close").
		Where(squirrel.Eq{"name": name}).
		OrderBy("date ASC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeCacheQueryFailed, "failed to build index select", err)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeCacheQueryFailed, "failed to query index cache", err)
	}
	defer rows.Close()

	var closes []IndexClose

	for rows.Next() {
		var c IndexClose

		if err := rows.Scan(&c.Date, &c.Close); err != nil {
			return nil, errors.Wrap(errors.ErrCodeCacheQueryFailed, "failed to scan index row", err)
		}

		c.Date = c.Date.UTC()
		closes = append(closes, c)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeCacheQueryFailed, "failed to iterate index rows", err)
	}

	return closes, nil
}

// LatestIndexDate returns the newest cached date for a named index, if any.
func (s *Store) LatestIndexDate(name string) (optional.Option[time.Time], error) {
	return s.latestDate(s.sq.Select("MAX(date)").From("index_close").Where(squirrel.Eq{"name": name}))
}

func (s *Store) latestDate(builder squirrel.SelectBuilder) (optional.Option[time.Time], error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return optional.None[time.Time](), errors.Wrap(errors.ErrCodeCacheQueryFailed, "failed to build latest-date query", err)
	}

	var latest sql.NullTime

	if err := s.db.QueryRow(query, args...).Scan(&latest); err != nil {
		return optional.None[time.Time](), errors.Wrap(errors.ErrCodeCacheQueryFailed, "failed to query latest date", err)
	}

	if !latest.Valid {
		return optional.None[time.Time](), nil
	}

	return optional.Some(latest.Time.UTC()), nil
}

// IsStale reports whether a cached series whose newest date is `latest` needs
// a refetch before use, given the allowed age in calendar days.
func IsStale(latest optional.Option[time.Time], maxAgeDays int, now time.Time) bool {
	if latest.IsNone() {
		return true
	}

	cutoff := now.UTC().AddDate(0, 0, -maxAgeDays)

	return latest.Unwrap().Before(cutoff)
}
