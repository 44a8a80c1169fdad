// Package postgres records sessions to a PostgreSQL/PostGIS database through
// the queue-batched GORM backend.
package postgres

import (
	"fmt"

	"github.com/campusar/wayfinder/internal/config"
	"github.com/campusar/wayfinder/internal/database"
	gormstorage "github.com/campusar/wayfinder/internal/storage/gorm"
)

// Backend is a GORM backend that opens its own postgres connection on Init.
type Backend struct {
	*gormstorage.Backend
	cfg config.DBConfig
}

// New creates a postgres backend. deps.DB, when set, is used instead of dialing cfg.
func New(cfg config.DBConfig, deps gormstorage.Dependencies) *Backend {
	return &Backend{
		Backend: gormstorage.New(deps),
		cfg:     cfg,
	}
}

// Init connects, validates the connection and starts the writer.
func (b *Backend) Init() error {
	if b.DB() == nil {
		db, err := database.OpenPostgres(b.cfg)
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return fmt.Errorf("failed to access sql interface: %w", err)
		}
		if err = sqlDB.Ping(); err != nil {
			return fmt.Errorf("failed to validate connection: %w", err)
		}
		sqlDB.SetMaxOpenConns(10)
		b.SetDB(db)
	}
	return b.Backend.Init()
}
