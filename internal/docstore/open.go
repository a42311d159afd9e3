package docstore

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Open returns the store for driver ("memory", "sqlite" or "postgres") and
// a func releasing it.
func Open(ctx context.Context, driver, sqlitePath, databaseURL string) (Store, func(), error) {
	switch driver {
	case "", "memory":
		return NewMemoryStore(), func() {}, nil
	case "sqlite":
		s, err := OpenSQLite(ctx, sqlitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {
			if err := s.Close(); err != nil {
				log.Warn().Err(err).Msg("[docstore.Open] sqlite close failed")
			}
		}, nil
	case "postgres":
		s, err := OpenPostgres(ctx, databaseURL)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", driver)
	}
}
