package storage

import (
	"context"
	"fmt"
	"time"
)

const eventColumns = "seq, id, timestamp, event_type, actor_id, target_id, payload"

// AppendEvent inserts an event into the immutable ledger.
func (r *SQLRepository) AppendEvent(ctx context.Context, event StoredEvent) error {
	payload := string(event.Payload)
	if payload == "" {
		payload = "null"
	}
	query := fmt.Sprintf(
		"INSERT INTO events (%s) VALUES (%s) ON CONFLICT (seq) DO NOTHING",
		eventColumns, r.binds(7),
	)
	_, err := r.db.ExecContext(ctx, query,
		int64(event.Seq),
		event.ID,
		event.Timestamp.UTC().UnixNano(),
		event.EventType,
		event.ActorID,
		event.TargetID,
		payload,
	)
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

// EventsByActor retrieves the latest events performed by or aimed at an actor.
func (r *SQLRepository) EventsByActor(ctx context.Context, actorID string, limit int) ([]StoredEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	query := fmt.Sprintf(`
		SELECT %s FROM events
		WHERE actor_id = %s OR target_id = %s
		ORDER BY seq DESC
		LIMIT %s
	`, eventColumns, r.bind(1), r.bind(2), r.bind(3))
	events, err := r.queryEvents(ctx, query, actorID, actorID, limit)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}
	return events, nil
}

// EventsSince retrieves events after seq in order, for replay.
func (r *SQLRepository) EventsSince(ctx context.Context, seq uint64, limit int) ([]StoredEvent, error) {
	if limit <= 0 {
		limit = 500
	}
	query := fmt.Sprintf(`
		SELECT %s FROM events
		WHERE seq > %s
		ORDER BY seq ASC
		LIMIT %s
	`, eventColumns, r.bind(1), r.bind(2))
	return r.queryEvents(ctx, query, int64(seq), limit)
}

// LastEventSeq returns the highest stored sequence number.
func (r *SQLRepository) LastEventSeq(ctx context.Context) (uint64, error) {
	var seq int64
	if err := r.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(seq), 0) FROM events").Scan(&seq); err != nil {
		return 0, fmt.Errorf("failed to read last event seq: %w", err)
	}
	return uint64(seq), nil
}

// queryEvents is a helper to execute queries and scan results.
func (r *SQLRepository) queryEvents(ctx context.Context, query string, args ...interface{}) ([]StoredEvent, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []StoredEvent
	for rows.Next() {
		var (
			e       StoredEvent
			seq     int64
			ts      int64
			payload []byte
		)
		if err := rows.Scan(&seq, &e.ID, &ts, &e.EventType, &e.ActorID, &e.TargetID, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.Seq = uint64(seq)
		e.Timestamp = time.Unix(0, ts).UTC()
		e.Payload = payload
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}
	return events, nil
}
