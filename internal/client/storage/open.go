package storage

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/autoservice/internal/client/config"
)

// Open builds the Repository selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StorageConfig) (Repository, error) {
	switch cfg.Driver {
	case config.DriverSQLite, "":
		return OpenSQLite(ctx, cfg.DSN)
	case config.DriverRedis:
		return OpenRedis(ctx, cfg.DSN, cfg.Prefix)
	case config.DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
