package users

import (
	"context"
	"errors"

	"github.com/campushub/auth-service/internal/config"
	"github.com/campushub/auth-service/internal/database"
	"github.com/campushub/auth-service/pkg/logger"
)

// Open connects the backend selected by USER_STORE and prepares its schema.
// The returned func releases its connections.
func Open(ctx context.Context, cfg *config.Config) (Repository, func(), error) {
	switch cfg.Users.Store {
	case "memory":
		logger.Warnf("using in-memory user directory; accounts are lost on restart")
		return NewMemoryRepository(), func() {}, nil

	case "postgres":
		if cfg.Postgres.URL == "" {
			return nil, nil, errors.New("DATABASE_URL is required for USER_STORE=postgres")
		}
		pool, err := database.ConnectPostgres(ctx, cfg.Postgres.URL, cfg.Postgres.Timeout)
		if err != nil {
			return nil, nil, err
		}
		repo := NewPostgresRepository(pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		logger.Infof("user directory: postgres")
		return repo, pool.Close, nil

	default:
		if cfg.MongoDB.URI == "" {
			return nil, nil, errors.New("MONGODB_URI is required for USER_STORE=mongo")
		}
		client, err := database.ConnectMongoWithRetry(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout, 5)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() { _ = client.Disconnect(context.Background()) }
		repo := NewMongoRepository(client.Database(cfg.MongoDB.Database))
		if err := repo.EnsureIndexes(ctx); err != nil {
			closeFn()
			return nil, nil, err
		}
		logger.Infof("user directory: mongo database=%s", cfg.MongoDB.Database)
		return repo, closeFn, nil
	}
}
