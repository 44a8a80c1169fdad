// internal/storage/storage_test.go
package storage_test

import (
	"errors"
	"testing"
	"time"

	"github.com/campusar/wayfinder/internal/config"
	"github.com/campusar/wayfinder/internal/entity"
	"github.com/campusar/wayfinder/internal/selection"
	"github.com/campusar/wayfinder/internal/storage"
	"github.com/campusar/wayfinder/internal/storage/memory"
	"github.com/campusar/wayfinder/internal/storage/postgres"
	sqlitestorage "github.com/campusar/wayfinder/internal/storage/sqlite"
	"github.com/campusar/wayfinder/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBackend_Types(t *testing.T) {
	b, err := storage.NewBackend(config.StorageConfig{}, storage.Options{})
	require.NoError(t, err)
	assert.IsType(t, &memory.Backend{}, b)
	_, ok := b.(storage.Exportable)
	assert.True(t, ok, "memory backend exports a file")

	b, err = storage.NewBackend(config.StorageConfig{Type: "postgres"}, storage.Options{})
	require.NoError(t, err)
	assert.IsType(t, &postgres.Backend{}, b)

	b, err = storage.NewBackend(config.StorageConfig{Type: "sqlite"}, storage.Options{})
	require.NoError(t, err)
	assert.IsType(t, &sqlitestorage.Backend{}, b)
	require.NoError(t, b.Close())

	_, err = storage.NewBackend(config.StorageConfig{Type: "mongodb"}, storage.Options{})
	assert.EqualError(t, err, "unknown storage type: mongodb")
}

type fakeBackend struct {
	entities     []core.EntityEvent
	measurements []core.MeasurementEvent
	err          error
}

func (f *fakeBackend) Init() error                            { return nil }
func (f *fakeBackend) Close() error                           { return nil }
func (f *fakeBackend) StartSession(*core.SessionInfo) error   { return nil }
func (f *fakeBackend) EndSession() error                      { return nil }
func (f *fakeBackend) RecordEntityEvent(e *core.EntityEvent) error {
	f.entities = append(f.entities, *e)
	return f.err
}
func (f *fakeBackend) RecordMeasurement(m *core.MeasurementEvent) error {
	f.measurements = append(f.measurements, *m)
	return f.err
}

func TestRecorder_EntityChanged(t *testing.T) {
	fb := &fakeBackend{}
	r := storage.NewRecorder(fb, nil)

	r.EntityChanged(entity.Change{
		Kind: entity.ChangeMoved,
		Entity: entity.Entity{
			Identity: "b204",
			Pose:     core.Pose{Position: core.Position3D{X: 1, Y: 0.03}},
			Visible:  true,
			State:    core.Tracking,
		},
	})

	require.Len(t, fb.entities, 1)
	e := fb.entities[0]
	assert.Equal(t, core.Identity("b204"), e.Identity)
	assert.Equal(t, "moved", e.Kind)
	assert.Equal(t, 1.0, e.Pose.Position.X)
	assert.True(t, e.Visible)
	assert.False(t, e.Time.IsZero())
	assert.Equal(t, int64(0), r.Failed())
}

func TestRecorder_Measured(t *testing.T) {
	fb := &fakeBackend{}
	r := storage.NewRecorder(fb, nil)
	at := time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)

	r.Measured(selection.Measurement{A: "b204", B: "c101", Units: 5, Meters: 500, Seconds: 357, Speed: 1.4, At: at})

	require.Len(t, fb.measurements, 1)
	m := fb.measurements[0]
	assert.Equal(t, core.Identity("c101"), m.B)
	assert.Equal(t, 500.0, m.Meters)
	assert.Equal(t, at, m.Time)
}

func TestRecorder_CountsFailures(t *testing.T) {
	fb := &fakeBackend{err: errors.New("disk full")}
	r := storage.NewRecorder(fb, nil)

	r.EntityChanged(entity.Change{Kind: entity.ChangeSpawned, Entity: entity.Entity{Identity: "b204"}})
	r.Measured(selection.Measurement{A: "b204", B: "c101"})

	assert.Equal(t, int64(2), r.Failed())
}

func TestRecorder_WithMemoryBackend(t *testing.T) {
	b := memory.New(config.MemoryConfig{OutputDir: t.TempDir()}, nil)
	require.NoError(t, b.StartSession(&core.SessionInfo{Tag: "hall"}))

	r := storage.NewRecorder(b, nil)
	r.EntityChanged(entity.Change{Kind: entity.ChangeSpawned, Entity: entity.Entity{Identity: "b204", Visible: true}})
	r.EntityChanged(entity.Change{Kind: entity.ChangeRetired, Entity: entity.Entity{Identity: "b204"}})

	rec, ok := b.GetEntity("b204")
	require.True(t, ok)
	assert.Len(t, rec.Events, 2)

	require.NoError(t, b.EndSession())
	var exp storage.Exportable = b
	assert.FileExists(t, exp.ExportedFilePath())
}
