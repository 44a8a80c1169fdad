package storage

import (
	"fmt"

	"github.com/campusar/wayfinder/internal/config"
	"github.com/campusar/wayfinder/internal/geo"
	"github.com/campusar/wayfinder/internal/logging"
	gormstorage "github.com/campusar/wayfinder/internal/storage/gorm"
	"github.com/campusar/wayfinder/internal/storage/memory"
	"github.com/campusar/wayfinder/internal/storage/postgres"
	sqlitestorage "github.com/campusar/wayfinder/internal/storage/sqlite"
)

// Options carries what the backends need beyond their own config section.
type Options struct {
	DB   config.DBConfig
	Geo  *geo.Georeference // optional, memory exports only
	Logs *logging.SlogManager
}

// NewBackend creates a storage backend based on configuration
func NewBackend(cfg config.StorageConfig, opts Options) (Backend, error) {
	switch cfg.Type {
	case "postgres":
		return postgres.New(opts.DB, gormstorage.Dependencies{LogManager: opts.Logs}), nil
	case "sqlite":
		b, err := sqlitestorage.New(sqlitestorage.Config{
			DumpInterval: cfg.SQLite.DumpInterval,
			DumpPath:     cfg.SQLite.DumpPath,
		}, opts.Logs)
		if err != nil {
			return nil, err
		}
		return b, nil
	case "memory", "":
		return memory.New(cfg.Memory, opts.Geo), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
