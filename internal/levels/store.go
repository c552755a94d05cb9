package levels

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/playmatatu/minigames/internal/models"
	"github.com/playmatatu/minigames/internal/tangram"
)

// Store persists operator-authored levels in the levels table.
type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// List returns every enabled level, decoded and validated.
func (s *Store) List(ctx context.Context) ([]tangram.Level, error) {
	var rows []models.LevelRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, name, definition, enabled, created_at, updated_at
		FROM levels
		WHERE enabled = TRUE
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("list levels: %w", err)
	}

	out := make([]tangram.Level, 0, len(rows))
	for _, row := range rows {
		var level tangram.Level
		if err := json.Unmarshal(row.Definition, &level); err != nil {
			return nil, fmt.Errorf("decode level %d: %w", row.ID, err)
		}
		level.ID = row.ID
		if level.Name == "" {
			level.Name = row.Name
		}
		if err := level.Validate(); err != nil {
			return nil, err
		}
		out = append(out, level)
	}
	return out, nil
}

// Upsert validates and stores a level, replacing any previous definition with the same id.
func (s *Store) Upsert(ctx context.Context, level tangram.Level) error {
	if err := level.Validate(); err != nil {
		return err
	}
	def, err := json.Marshal(level)
	if err != nil {
		return fmt.Errorf("encode level %d: %w", level.ID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO levels (id, name, definition, enabled, created_at, updated_at)
		VALUES ($1, $2, $3, TRUE, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			definition = EXCLUDED.definition,
			enabled = TRUE,
			updated_at = NOW()
	`, level.ID, level.Name, def)
	if err != nil {
		return fmt.Errorf("upsert level %d: %w", level.ID, err)
	}
	return nil
}

// Disable hides a level from new sessions.
func (s *Store) Disable(ctx context.Context, id int) error {
	res, err := s.db.ExecContext(ctx, `UPDATE levels SET enabled = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("disable level %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrLevelNotFound
	}
	return nil
}
