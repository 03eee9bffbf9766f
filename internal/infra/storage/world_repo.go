package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cosanostra-game/server/internal/domain/family"
	"github.com/cosanostra-game/server/internal/domain/player"
	"github.com/cosanostra-game/server/internal/engine"
)

// worldRow is the singleton world_state document.
type worldRow struct {
	Markets map[string]map[string]float64 `json:"markets"`
	Tick    int64                         `json:"tick"`
}

// SaveWorld upserts players and territories, rewrites families (disbanded
// ones disappear) and the world row, all in one transaction.
func (r *SQLRepository) SaveWorld(ctx context.Context, ws engine.WorldState) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin save: %w", err)
	}
	if err := r.saveWithTx(ctx, tx, ws, time.Now().UTC()); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit save: %w", err)
	}
	return nil
}

func (r *SQLRepository) saveWithTx(ctx context.Context, tx *sql.Tx, ws engine.WorldState, now time.Time) error {
	playerQ := fmt.Sprintf(`
		INSERT INTO players (player_id, name, payload, updated_at) VALUES (%s)
		ON CONFLICT (player_id) DO UPDATE SET
			name = excluded.name,
			payload = excluded.payload,
			updated_at = excluded.updated_at
	`, r.binds(4))
	for _, p := range ws.Players {
		payload, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("failed to marshal player %s: %w", p.ID, err)
		}
		if _, err := tx.ExecContext(ctx, playerQ, p.ID, p.Name, string(payload), now); err != nil {
			return fmt.Errorf("failed to upsert player %s: %w", p.ID, err)
		}
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM families"); err != nil {
		return fmt.Errorf("failed to clear families: %w", err)
	}
	familyQ := fmt.Sprintf("INSERT INTO families (family_id, payload, updated_at) VALUES (%s)", r.binds(3))
	for _, f := range ws.Families {
		payload, err := json.Marshal(f)
		if err != nil {
			return fmt.Errorf("failed to marshal family %s: %w", f.ID, err)
		}
		if _, err := tx.ExecContext(ctx, familyQ, f.ID, string(payload), now); err != nil {
			return fmt.Errorf("failed to insert family %s: %w", f.ID, err)
		}
	}

	territoryQ := fmt.Sprintf(`
		INSERT INTO territories (territory_id, payload, updated_at) VALUES (%s)
		ON CONFLICT (territory_id) DO UPDATE SET
			payload = excluded.payload,
			updated_at = excluded.updated_at
	`, r.binds(3))
	for _, t := range ws.Territories {
		payload, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("failed to marshal territory %s: %w", t.ID, err)
		}
		if _, err := tx.ExecContext(ctx, territoryQ, t.ID, string(payload), now); err != nil {
			return fmt.Errorf("failed to upsert territory %s: %w", t.ID, err)
		}
	}

	world, err := json.Marshal(worldRow{Markets: ws.Markets, Tick: ws.Tick})
	if err != nil {
		return fmt.Errorf("failed to marshal world state: %w", err)
	}
	worldQ := fmt.Sprintf(`
		INSERT INTO world_state (id, payload, updated_at) VALUES (%s)
		ON CONFLICT (id) DO UPDATE SET
			payload = excluded.payload,
			updated_at = excluded.updated_at
	`, r.binds(3))
	if _, err := tx.ExecContext(ctx, worldQ, 1, string(world), now); err != nil {
		return fmt.Errorf("failed to upsert world state: %w", err)
	}
	return nil
}

// LoadWorld reads every saved document back into a snapshot, with players,
// families and territories sorted by ID.
func (r *SQLRepository) LoadWorld(ctx context.Context) (engine.WorldState, error) {
	var ws engine.WorldState

	if err := r.loadDocs(ctx, "SELECT payload FROM players ORDER BY player_id", func(b []byte) error {
		var p player.Player
		if err := json.Unmarshal(b, &p); err != nil {
			return err
		}
		ws.Players = append(ws.Players, p)
		return nil
	}); err != nil {
		return ws, fmt.Errorf("failed to load players: %w", err)
	}

	if err := r.loadDocs(ctx, "SELECT payload FROM families ORDER BY family_id", func(b []byte) error {
		var f family.Family
		if err := json.Unmarshal(b, &f); err != nil {
			return err
		}
		ws.Families = append(ws.Families, f)
		return nil
	}); err != nil {
		return ws, fmt.Errorf("failed to load families: %w", err)
	}

	if err := r.loadDocs(ctx, "SELECT payload FROM territories ORDER BY territory_id", func(b []byte) error {
		var t family.Territory
		if err := json.Unmarshal(b, &t); err != nil {
			return err
		}
		ws.Territories = append(ws.Territories, t)
		return nil
	}); err != nil {
		return ws, fmt.Errorf("failed to load territories: %w", err)
	}

	var raw []byte
	err := r.db.QueryRowContext(ctx, "SELECT payload FROM world_state WHERE id = 1").Scan(&raw)
	switch {
	case err == sql.ErrNoRows:
	case err != nil:
		return ws, fmt.Errorf("failed to load world state: %w", err)
	default:
		var row worldRow
		if err := json.Unmarshal(raw, &row); err != nil {
			return ws, fmt.Errorf("failed to decode world state: %w", err)
		}
		ws.Markets = row.Markets
		ws.Tick = row.Tick
	}
	return ws, nil
}

// Empty reports whether nothing has been saved yet.
func (r *SQLRepository) Empty(ctx context.Context) (bool, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM world_state").Scan(&n); err != nil {
		return false, fmt.Errorf("failed to count world state: %w", err)
	}
	return n == 0, nil
}

func (r *SQLRepository) loadDocs(ctx context.Context, query string, fn func([]byte) error) error {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var b []byte
		if err := rows.Scan(&b); err != nil {
			return err
		}
		if err := fn(b); err != nil {
			return err
		}
	}
	return rows.Err()
}
