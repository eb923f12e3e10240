// internal/storage/factory.go
package storage

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/midnightgrind/racedirector/internal/config"
	"github.com/midnightgrind/racedirector/internal/database"
	gormstorage "github.com/midnightgrind/racedirector/internal/storage/gorm"
	"github.com/midnightgrind/racedirector/internal/storage/memory"
)

// NewBackend creates a storage backend based on configuration
func NewBackend(cfg config.StorageConfig, log zerolog.Logger) (Backend, error) {
	switch cfg.Type {
	case "memory":
		return memory.New(cfg.Memory), nil
	case "postgres", "sqlite":
		dbCfg := cfg.DB
		dbCfg.Driver = cfg.Type
		mgr := database.NewManager(dbCfg, log.With().Str("component", "database").Logger())
		return gormstorage.New(gormstorage.Dependencies{Manager: mgr, Logger: log}), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStorage, cfg.Type)
	}
}
