package docstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// notifyChannel carries the id of every room that changed.
const notifyChannel = "room_changes"

// PostgresStore keeps one JSONB row per room and fans changes out with
// LISTEN/NOTIFY, so relays on several nodes can share it. A single
// connection outside the pool listens for the whole store; subscribers are
// served from the in-process hub.
type PostgresStore struct {
	pool *pgxpool.Pool
	hub  *hub

	// mu orders a subscriber's first read against listener reloads.
	mu sync.Mutex

	cancel context.CancelFunc
	done   chan struct{}
}

func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := runMigrations(ctx, "postgres", pgMigrator{pool}); err != nil {
		pool.Close()
		return nil, err
	}

	conn, err := listenConn(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, err
	}
	listenCtx, stop := context.WithCancel(context.Background())
	s := &PostgresStore{pool: pool, hub: newHub(), cancel: stop, done: make(chan struct{})}
	go s.listen(listenCtx, conn)

	log.Info().Msg("[OpenPostgres] database ready")
	return s, nil
}

// listenConn dials a connection of its own so LISTEN never holds a pool slot.
func listenConn(ctx context.Context, pool *pgxpool.Pool) (*pgx.Conn, error) {
	conn, err := pgx.ConnectConfig(ctx, pool.Config().ConnConfig.Copy())
	if err != nil {
		return nil, fmt.Errorf("dial listen connection: %w", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+notifyChannel); err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("listen: %w", err)
	}
	return conn, nil
}

// listen waits for notices and republishes the changed room to its hub
// subscribers. A dropped connection is redialed.
func (s *PostgresStore) listen(ctx context.Context, conn *pgx.Conn) {
	defer close(s.done)
	defer func() {
		if conn != nil {
			closeCtx, c := context.WithTimeout(context.Background(), 2*time.Second)
			defer c()
			_ = conn.Close(closeCtx)
		}
	}()

	const redialWait = time.Second
	for {
		if conn == nil {
			select {
			case <-ctx.Done():
				return
			case <-time.After(redialWait):
			}
			c, err := listenConn(ctx, s.pool)
			if err != nil {
				log.Warn().Err(err).Msg("[PostgresStore.listen] redial failed")
				continue
			}
			conn = c
			s.reloadAll(ctx)
		}

		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error().Err(err).Msg("[PostgresStore.listen] listen failed, redialing")
			_ = conn.Close(context.Background())
			conn = nil
			continue
		}
		s.reload(ctx, n.Payload)
	}
}

func (s *PostgresStore) reload(ctx context.Context, roomId string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hub.has(roomId) {
		return
	}
	doc, err := s.Get(ctx, roomId)
	if errors.Is(err, ErrNotFound) {
		s.hub.publish(roomId, nil)
		return
	}
	if err != nil {
		if ctx.Err() == nil {
			log.Warn().Err(err).Str("room", roomId).Msg("[PostgresStore.reload] reload failed")
		}
		return
	}
	s.hub.publish(roomId, doc)
}

// reloadAll catches subscribers up on notices missed while redialing.
func (s *PostgresStore) reloadAll(ctx context.Context) {
	for _, roomId := range s.hub.rooms() {
		s.reload(ctx, roomId)
	}
}

func (s *PostgresStore) Close() {
	s.cancel()
	<-s.done
	s.pool.Close()
}

func (s *PostgresStore) Create(ctx context.Context, roomId string, doc Document) error {
	norm, err := Normalize(doc)
	if err != nil {
		return err
	}
	b, err := encodeDoc(norm)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx,
		"INSERT INTO rooms (id, doc) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING", roomId, b)
	if err != nil {
		return fmt.Errorf("insert room %s: %w", roomId, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrExists, roomId)
	}
	return s.notify(ctx, roomId)
}

func (s *PostgresStore) Get(ctx context.Context, roomId string) (Document, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, "SELECT doc FROM rooms WHERE id = $1", roomId).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, roomId)
	}
	if err != nil {
		return nil, fmt.Errorf("select room %s: %w", roomId, err)
	}
	return decodeDoc(raw)
}

// Patch locks the row, merges in Go and notifies inside the same
// transaction, so listeners never read a document older than the notice.
func (s *PostgresStore) Patch(ctx context.Context, roomId, path string, fields map[string]any) error {
	norm, err := Normalize(fields)
	if err != nil {
		return err
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin patch: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var raw []byte
	err = tx.QueryRow(ctx, "SELECT doc FROM rooms WHERE id = $1 FOR UPDATE", roomId).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrNotFound, roomId)
	}
	if err != nil {
		return fmt.Errorf("lock room %s: %w", roomId, err)
	}
	doc, err := decodeDoc(raw)
	if err != nil {
		return err
	}
	b, err := encodeDoc(ApplyPatch(doc, path, norm))
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, "UPDATE rooms SET doc = $2, updated_at = now() WHERE id = $1", roomId, b); err != nil {
		return fmt.Errorf("update room %s: %w", roomId, err)
	}
	if _, err := tx.Exec(ctx, "SELECT pg_notify($1, $2)", notifyChannel, roomId); err != nil {
		return fmt.Errorf("notify room %s: %w", roomId, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit patch: %w", err)
	}
	return nil
}

func (s *PostgresStore) notify(ctx context.Context, roomId string) error {
	if _, err := s.pool.Exec(ctx, "SELECT pg_notify($1, $2)", notifyChannel, roomId); err != nil {
		return fmt.Errorf("notify room %s: %w", roomId, err)
	}
	return nil
}

// Subscribe reads the row once and then follows the store's listener.
func (s *PostgresStore) Subscribe(ctx context.Context, roomId string, onChange func(Document)) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	initial, err := s.Get(ctx, roomId)
	if err != nil {
		return nil, err
	}
	return s.hub.add(roomId, initial, onChange), nil
}

func (s *PostgresStore) Delete(ctx context.Context, roomId string) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM rooms WHERE id = $1", roomId)
	if err != nil {
		return fmt.Errorf("delete room %s: %w", roomId, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, roomId)
	}
	return s.notify(ctx, roomId)
}

type pgMigrator struct {
	pool *pgxpool.Pool
}

func (m pgMigrator) exec(ctx context.Context, sql string, args ...any) error {
	_, err := m.pool.Exec(ctx, sql, args...)
	return err
}

func (m pgMigrator) applied(ctx context.Context) (map[string]bool, error) {
	rows, err := m.pool.Query(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	versions, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}
	done := make(map[string]bool, len(versions))
	for _, v := range versions {
		done[v] = true
	}
	return done, nil
}

func (m pgMigrator) record(ctx context.Context, mig migration) error {
	return pgx.BeginFunc(ctx, m.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, mig.sql); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, "INSERT INTO schema_migrations (version, applied_at) VALUES ($1, now())", mig.version)
		return err
	})
}
