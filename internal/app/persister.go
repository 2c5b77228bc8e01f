package service

import (
	"context"
	"fmt"

	"github.com/okian/tatami/internal/adapters/persistence"
	"github.com/okian/tatami/internal/config"
)

// OpenPersister connects the backend selected by cfg.Persistence.
func OpenPersister(ctx context.Context, cfg *config.Config) (persistence.Persister, error) {
	switch cfg.Persistence {
	case config.BackendMemory, "":
		return persistence.NewMemory(), nil
	case config.BackendRedis:
		p, err := persistence.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, err
		}
		return p, nil
	case config.BackendPostgres:
		p, err := persistence.NewPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("%w: unknown persistence %q", config.ErrInvalidConfig, cfg.Persistence)
	}
}
