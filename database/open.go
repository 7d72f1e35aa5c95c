package database

import (
	"context"

	"github.com/VersatileFusion/sangshekkan/config"
	"github.com/VersatileFusion/sangshekkan/repository"
)

// Open selects the persistence binding from DATABASE_URL: MongoDB for
// mongodb:// URIs, PostgreSQL otherwise.
func Open(ctx context.Context, cfg config.Config) (repository.Store, error) {
	if cfg.UsesMongo() {
		store, err := OpenMongo(ctx, cfg.DatabaseURL, cfg.MongoDB)
		if err != nil {
			return nil, err
		}
		return store, nil
	}

	store, err := OpenPostgres(cfg.PostgresDSN())
	if err != nil {
		return nil, err
	}
	return store, nil
}
