package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"github.com/jmoiron/sqlx"
	"github.com/kovalyov-valentin/read-later-bot/internal/model"
	"github.com/samber/lo"
	"time"
)

// Подписки на RSS ленты
type SourcePostgresStorage struct {
	db *sqlx.DB
}

func NewSourcePostgresStorage(db *sqlx.DB) *SourcePostgresStorage {
	return &SourcePostgresStorage{db: db}
}

func (s *SourcePostgresStorage) Sources(ctx context.Context) ([]model.Source, error) {
	conn, err := s.db.Connx(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	var sources []dbSource
	if err := conn.SelectContext(ctx, &sources, `SELECT id, name, feed_url, created_at FROM sources ORDER BY id`); err != nil {
		return nil, fmt.Errorf("select sources: %w", err)
	}

	return lo.Map(sources, func(source dbSource, _ int) model.Source {
		return model.Source(source)
	}), nil
}

func (s *SourcePostgresStorage) SourceByID(ctx context.Context, id int64) (*model.Source, error) {
	conn, err := s.db.Connx(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	var source dbSource
	if err := conn.GetContext(ctx, &source, `SELECT id, name, feed_url, created_at FROM sources WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select source: %w", err)
	}

	return (*model.Source)(&source), nil
}

func (s *SourcePostgresStorage) Add(ctx context.Context, source model.Source) (int64, error) {
	conn, err := s.db.Connx(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Close()

	if source.CreatedAt.IsZero() {
		source.CreatedAt = time.Now().UTC()
	}

	var id int64
	if err := conn.QueryRowxContext(
		ctx,
		`INSERT INTO sources (name, feed_url, created_at) VALUES ($1, $2, $3) RETURNING id`,
		source.Name,
		source.FeedURL,
		source.CreatedAt,
	).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert source: %w", err)
	}

	return id, nil
}

// false, если источника с таким id нет
func (s *SourcePostgresStorage) Delete(ctx context.Context, id int64) (bool, error) {
	conn, err := s.db.Connx(ctx)
	if err != nil {
		return false, err
	}
	defer conn.Close()

	res, err := conn.ExecContext(ctx, `DELETE FROM sources WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete source: %w", err)
	}

	return affected(res)
}

// Внутренняя модель, чтобы мапить строку таблицы на колонки
type dbSource struct {
	ID        int64     `db:"id"`
	Name      string    `db:"name"`
	FeedURL   string    `db:"feed_url"`
	CreatedAt time.Time `db:"created_at"`
}
