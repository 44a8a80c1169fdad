package roomdb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/campusar/wayfinder/internal/model"
	"github.com/campusar/wayfinder/pkg/core"
	"github.com/patrickmn/go-cache"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const importBatchSize = 200

// missing is cached for identities the table does not have.
type missing struct{}

// DBStore serves lookups from the rooms table through a TTL cache, so repeated
// holds on the same building do not hit the database.
type DBStore struct {
	db     *gorm.DB
	cache  *cache.Cache
	logger *slog.Logger
}

// NewDBStore migrates the rooms table and returns a store reading from it.
func NewDBStore(db *gorm.DB, ttl time.Duration, logger *slog.Logger) (*DBStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := db.AutoMigrate(&model.Room{}); err != nil {
		return nil, fmt.Errorf("failed to migrate rooms table: %w", err)
	}
	return &DBStore{
		db:     db,
		cache:  cache.New(ttl, 2*ttl),
		logger: logger.With("component", "roomdb"),
	}, nil
}

// Import upserts records and drops any cached answers.
func (s *DBStore) Import(ctx context.Context, records []core.DetailRecord) (int, error) {
	rows := make([]model.Room, 0, len(records))
	for _, r := range records {
		if r.RoomID.IsZero() {
			continue
		}
		rows = append(rows, model.RoomFromRecord(r))
	}
	if len(rows) == 0 {
		return 0, nil
	}

	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		CreateInBatches(&rows, importBatchSize).Error
	if err != nil {
		return 0, fmt.Errorf("failed to import rooms: %w", err)
	}
	s.cache.Flush()
	return len(rows), nil
}

// Lookup implements Store. Database errors are logged and reported as a miss.
func (s *DBStore) Lookup(id core.Identity) (core.DetailRecord, bool) {
	key := id.String()
	if v, ok := s.cache.Get(key); ok {
		if r, found := v.(core.DetailRecord); found {
			return r, true
		}
		return core.DetailRecord{}, false
	}

	var room model.Room
	err := s.db.Where("room_id = ?", key).Take(&room).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		s.cache.SetDefault(key, missing{})
		return core.DetailRecord{}, false
	case err != nil:
		s.logger.Warn("room lookup failed", "identity", id, "error", err)
		return core.DetailRecord{}, false
	}

	r := room.Record()
	s.cache.SetDefault(key, r)
	return r, true
}

// Count returns the number of rooms stored.
func (s *DBStore) Count() (int64, error) {
	var n int64
	if err := s.db.Model(&model.Room{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count rooms: %w", err)
	}
	return n, nil
}
