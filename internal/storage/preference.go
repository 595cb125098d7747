package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"github.com/jmoiron/sqlx"
	"time"
)

// Настройки в виде ключ-значение
type PreferencePostgresStorage struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewPreferencePostgresStorage(db *sqlx.DB) *PreferencePostgresStorage {
	return &PreferencePostgresStorage{
		db:  db,
		now: time.Now,
	}
}

// Значение настройки или def, если она еще не задана
func (s *PreferencePostgresStorage) Preference(ctx context.Context, key, def string) (string, error) {
	conn, err := s.db.Connx(ctx)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	var value string
	if err := conn.GetContext(ctx, &value, `SELECT value FROM preferences WHERE key = $1`, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return def, nil
		}
		return "", fmt.Errorf("select preference %s: %w", key, err)
	}

	return value, nil
}

func (s *PreferencePostgresStorage) SetPreference(ctx context.Context, key, value string) error {
	conn, err := s.db.Connx(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	if _, err := conn.ExecContext(
		ctx,
		`INSERT INTO preferences (key, value, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		key,
		value,
		s.now().UTC(),
	); err != nil {
		return fmt.Errorf("upsert preference %s: %w", key, err)
	}

	return nil
}
