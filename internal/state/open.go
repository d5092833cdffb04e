package state

import (
	"fmt"

	"nexo-alert/internal/config"
)

// Open builds the backend selected by cfg.Type.
func Open(cfg config.StoreConfig) (Backend, error) {
	switch cfg.Type {
	case "", "file":
		return NewFileBackend(cfg.Dir)
	case "memory":
		return NewMemoryBackend(), nil
	case "valkey":
		return NewValkeyBackend(cfg.Address, cfg.Password)
	case "sqlite":
		return NewSQLiteBackend(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown store type %q", cfg.Type)
	}
}
