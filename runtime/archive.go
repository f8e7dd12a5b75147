package runtime

import (
	"context"
	"fmt"

	"github.com/sweetpotato0/ai-dispatch/config"
	"github.com/sweetpotato0/ai-dispatch/memory"
	"github.com/sweetpotato0/ai-dispatch/memory/store"
)

// openArchive connects the configured backend. Connection settings left blank
// fall back to the REDIS_*, POSTGRES_* and MONGODB_* variables. The returned
// close function is nil for backends without connections.
func openArchive(ctx context.Context, c config.ArchiveConfig) (memory.Archive, func(context.Context) error, error) {
	switch c.Backend {
	case "", config.ArchiveNone:
		return nil, nil, nil

	case config.ArchiveMemory:
		return store.NewInMemoryArchive(), nil, nil

	case config.ArchiveRedis:
		archive := store.NewRedisArchive(store.RedisConfigFromEnv(store.RedisConfig{
			Addr:     c.RedisAddr,
			Password: c.RedisPassword,
			DB:       c.RedisDB,
			Prefix:   c.RedisPrefix,
			MaxTurns: c.MaxTurns,
			TTL:      c.TTL,
		}))
		if err := archive.Ping(ctx); err != nil {
			_ = archive.Close()
			return nil, nil, fmt.Errorf("connect redis archive: %w", err)
		}
		return archive, func(context.Context) error { return archive.Close() }, nil

	case config.ArchivePostgres:
		archive, err := store.OpenPostgresArchive(ctx, store.PostgresDSN(c.PostgresDSN))
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres archive: %w", err)
		}
		return archive, func(context.Context) error { return archive.Close() }, nil

	case config.ArchiveMongo:
		archive, err := store.NewMongoArchive(ctx, store.MongoConfigFromEnv(store.MongoConfig{
			URI:      c.MongoURI,
			Database: c.MongoDatabase,
		}))
		if err != nil {
			return nil, nil, fmt.Errorf("connect mongo archive: %w", err)
		}
		return archive, archive.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown archive backend %q", c.Backend)
	}
}
