// Package sqlite provides a SQLite-backed analytics event store.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/louisbranch/marketplace/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/marketplace/internal/tracking"
	"github.com/louisbranch/marketplace/internal/tracking/storage/sqlite/migrations"
)

// Store persists analytics events in SQLite.
type Store struct {
	sqlDB *sql.DB
	newID func() string
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite event store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.Apply(context.Background(), sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB, newID: uuid.NewString}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// AppendEvent inserts one analytics event.
func (s *Store) AppendEvent(ctx context.Context, evt tracking.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	category := strings.TrimSpace(evt.Category)
	action := strings.TrimSpace(evt.Action)
	if category == "" {
		return fmt.Errorf("category is required")
	}
	if action == "" {
		return fmt.Errorf("action is required")
	}
	occurredAt := evt.Timestamp
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO analytics_events (id, category, action, occurred_at) VALUES (?, ?, ?, ?)`,
		s.newID(),
		category,
		action,
		toMillis(occurredAt),
	)
	if err != nil {
		return fmt.Errorf("insert analytics event: %w", err)
	}
	return nil
}

// ListEvents returns events for category in occurrence order. An empty
// category lists every event. A non-positive limit means no limit.
func (s *Store) ListEvents(ctx context.Context, category string, limit int) ([]tracking.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		limit = -1
	}
	category = strings.TrimSpace(category)
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT category, action, occurred_at
		   FROM analytics_events
		  WHERE ? = '' OR category = ?
		  ORDER BY occurred_at, rowid
		  LIMIT ?`,
		category,
		category,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list analytics events: %w", err)
	}
	defer rows.Close()

	var events []tracking.Event
	for rows.Next() {
		var (
			evt        tracking.Event
			occurredAt int64
		)
		if err := rows.Scan(&evt.Category, &evt.Action, &occurredAt); err != nil {
			return nil, fmt.Errorf("scan analytics event: %w", err)
		}
		evt.Timestamp = fromMillis(occurredAt)
		events = append(events, evt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate analytics events: %w", err)
	}
	return events, nil
}

// CountByAction returns how many events of category were recorded per action.
func (s *Store) CountByAction(ctx context.Context, category string) (map[string]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT action, COUNT(*) FROM analytics_events WHERE category = ? GROUP BY action`,
		strings.TrimSpace(category),
	)
	if err != nil {
		return nil, fmt.Errorf("count analytics events: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var (
			action string
			count  int
		)
		if err := rows.Scan(&action, &count); err != nil {
			return nil, fmt.Errorf("scan analytics count: %w", err)
		}
		counts[action] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate analytics counts: %w", err)
	}
	return counts, nil
}
