// Package database archives finished games to postgres for audit and
// history. Archival is optional: a service without DATABASE_URL runs on the
// KV store alone.
package database

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/farhorizons/tabletop/internal/game"
)

//go:embed schema.sql
var schema embed.FS

type DB struct{ *pgxpool.Pool }

// Open connects and applies the schema. A configured-but-unreachable
// database is an error the caller treats as fatal.
func Open(ctx context.Context, dsn string) (*DB, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	db := &DB{pool}
	if err := db.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return db, nil
}

func (db *DB) migrate(ctx context.Context) error {
	sqlBytes, err := schema.ReadFile("schema.sql")
	if err != nil {
		return err
	}
	if _, err := db.Exec(ctx, string(sqlBytes)); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// ArchiveGame writes the final state, winners, scores, and the full action
// log in one transaction. Re-archiving the same game overwrites.
func (db *DB) ArchiveGame(ctx context.Context, g *game.GameState, winners []string, scores map[string]int) error {
	stateJSON, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("marshal final state: %w", err)
	}
	scoresJSON, err := json.Marshal(scores)
	if err != nil {
		return fmt.Errorf("marshal scores: %w", err)
	}

	tx, err := db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
        INSERT INTO archived_games (game_id, game_type, final_state, winners, scores)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (game_id) DO UPDATE
          SET final_state = EXCLUDED.final_state,
              winners = EXCLUDED.winners,
              scores = EXCLUDED.scores,
              finished_at = now()
    `, g.GameID, string(g.GameType), stateJSON, winners, scoresJSON)
	if err != nil {
		return fmt.Errorf("archive game %s: %w", g.GameID, err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM game_actions WHERE game_id = $1`, g.GameID); err != nil {
		return err
	}
	rows := make([][]interface{}, 0, len(g.Actions))
	for i, a := range g.Actions {
		actionJSON, err := json.Marshal(a)
		if err != nil {
			return fmt.Errorf("marshal action %d: %w", i, err)
		}
		rows = append(rows, []interface{}{g.GameID, i, actionJSON})
	}
	if len(rows) > 0 {
		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"game_actions"},
			[]string{"game_id", "idx", "action"},
			pgx.CopyFromRows(rows))
		if err != nil {
			return fmt.Errorf("archive actions for %s: %w", g.GameID, err)
		}
	}

	return tx.Commit(ctx)
}

func (db *DB) Close() { db.Pool.Close() }
