package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// SQLiteStore persists documents in a single sqlite file. Change
// notifications are delivered in process, so every replica must share the
// one store instance (a single relay node).
type SQLiteStore struct {
	db  *sql.DB
	mu  sync.Mutex
	hub *hub
}

func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite database: %w", err)
	}

	s := &SQLiteStore{db: db, hub: newHub()}
	if err := runMigrations(ctx, "sqlite", sqliteMigrator{db}); err != nil {
		_ = db.Close()
		return nil, err
	}
	log.Info().Str("path", path).Msg("[OpenSQLite] database ready")
	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Create(ctx context.Context, roomId string, doc Document) error {
	norm, err := Normalize(doc)
	if err != nil {
		return err
	}
	b, err := encodeDoc(norm)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO rooms (id, doc, updated_at) VALUES (?, ?, ?) ON CONFLICT(id) DO NOTHING",
		roomId, string(b), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert room %s: %w", roomId, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrExists, roomId)
	}
	s.hub.publish(roomId, norm)
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, roomId string) (Document, error) {
	return s.get(ctx, s.db, roomId)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLiteStore) get(ctx context.Context, q queryer, roomId string) (Document, error) {
	var raw string
	err := q.QueryRowContext(ctx, "SELECT doc FROM rooms WHERE id = ?", roomId).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, roomId)
	}
	if err != nil {
		return nil, fmt.Errorf("select room %s: %w", roomId, err)
	}
	return decodeDoc([]byte(raw))
}

func (s *SQLiteStore) Patch(ctx context.Context, roomId, path string, fields map[string]any) error {
	norm, err := Normalize(fields)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin patch: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	doc, err := s.get(ctx, tx, roomId)
	if err != nil {
		return err
	}
	next := ApplyPatch(doc, path, norm)
	b, err := encodeDoc(next)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "UPDATE rooms SET doc = ?, updated_at = ? WHERE id = ?",
		string(b), time.Now().UTC(), roomId); err != nil {
		return fmt.Errorf("update room %s: %w", roomId, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit patch: %w", err)
	}
	s.hub.publish(roomId, next)
	return nil
}

func (s *SQLiteStore) Subscribe(ctx context.Context, roomId string, onChange func(Document)) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.get(ctx, s.db, roomId)
	if err != nil {
		return nil, err
	}
	return s.hub.add(roomId, doc, onChange), nil
}

func (s *SQLiteStore) Delete(ctx context.Context, roomId string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx, "DELETE FROM rooms WHERE id = ?", roomId)
	if err != nil {
		return fmt.Errorf("delete room %s: %w", roomId, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, roomId)
	}
	s.hub.publish(roomId, nil)
	return nil
}

type sqliteMigrator struct {
	db *sql.DB
}

func (m sqliteMigrator) exec(ctx context.Context, query string, args ...any) error {
	_, err := m.db.ExecContext(ctx, query, args...)
	return err
}

func (m sqliteMigrator) applied(ctx context.Context) (map[string]bool, error) {
	rows, err := m.db.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	done := map[string]bool{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		done[v] = true
	}
	return done, rows.Err()
}

func (m sqliteMigrator) record(ctx context.Context, mig migration) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, mig.sql); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)",
		mig.version, time.Now().UTC()); err != nil {
		return err
	}
	return tx.Commit()
}
