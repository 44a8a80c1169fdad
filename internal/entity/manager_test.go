package entity

import (
	"testing"

	"github.com/campusar/wayfinder/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	changes []Change
}

func (r *recorder) EntityChanged(c Change) { r.changes = append(r.changes, c) }

func (r *recorder) kinds() []ChangeKind {
	out := make([]ChangeKind, len(r.changes))
	for i, c := range r.changes {
		out[i] = c.Kind
	}
	return out
}

func newManager(t *testing.T, opts Options) (*Manager, *recorder) {
	t.Helper()
	m, err := NewManager(opts, nil)
	require.NoError(t, err)
	rec := &recorder{}
	m.Subscribe(rec)
	return m, rec
}

func marker(id string, x, y, z float64, state core.TrackingState) core.MarkerEvent {
	return core.MarkerEvent{
		Identity: core.NewIdentity(id),
		Pose:     core.Pose{Position: core.Position3D{X: x, Y: y, Z: z}},
		State:    state,
	}
}

func TestOnMarkerAdded_SpawnsWithOffset(t *testing.T) {
	m, rec := newManager(t, Options{HeightOffset: 0.03, HideOnLoss: true})

	m.OnMarkerAdded(marker("B204", 1, 0, 2, core.Tracking))

	e, ok := m.Get("b204")
	require.True(t, ok)
	assert.Equal(t, core.Identity("b204"), e.Marker)
	assert.True(t, e.Visible)
	assert.InDelta(t, 0.03, e.Pose.Position.Y, 1e-9)
	assert.Equal(t, 1.0, e.Pose.Position.X)
	assert.Equal(t, []ChangeKind{ChangeSpawned}, rec.kinds())
}

func TestOnMarkerAdded_DuplicateIsUpdate(t *testing.T) {
	m, rec := newManager(t, Options{HideOnLoss: true})

	m.OnMarkerAdded(marker("B204", 0, 0, 0, core.Tracking))
	m.OnMarkerAdded(marker("b204", 5, 0, 0, core.Tracking))

	assert.Equal(t, 1, m.Len())
	pos, ok := m.Position("b204")
	require.True(t, ok)
	assert.Equal(t, 5.0, pos.X)
	assert.Equal(t, []ChangeKind{ChangeSpawned, ChangeMoved}, rec.kinds())
}

func TestOnMarkerAdded_LimitedStartsHidden(t *testing.T) {
	m, _ := newManager(t, Options{HideOnLoss: true})
	m.OnMarkerAdded(marker("C101", 0, 0, 0, core.TrackingLimited))

	e, ok := m.Get("c101")
	require.True(t, ok)
	assert.False(t, e.Visible)
	assert.Empty(t, m.Visible())
}

func TestOnMarkerAdded_EmptyIdentityDropped(t *testing.T) {
	m, rec := newManager(t, Options{})
	m.OnMarkerAdded(marker("  \uFEFF ", 0, 0, 0, core.Tracking))

	assert.Equal(t, 0, m.Len())
	assert.Empty(t, rec.changes)
}

func TestOnMarkerUpdated_UnknownIgnored(t *testing.T) {
	m, rec := newManager(t, Options{HideOnLoss: true})
	m.OnMarkerUpdated(marker("ghost", 1, 1, 1, core.Tracking))
	m.OnMarkerRemoved(marker("ghost", 1, 1, 1, core.TrackingNone))

	assert.Equal(t, 0, m.Len())
	assert.Empty(t, rec.changes)
}

func TestOnMarkerUpdated_HideOnLoss(t *testing.T) {
	m, rec := newManager(t, Options{HideOnLoss: true})
	m.OnMarkerAdded(marker("A1", 0, 0, 0, core.Tracking))

	m.OnMarkerUpdated(marker("A1", 9, 9, 9, core.TrackingLimited))
	e, _ := m.Get("a1")
	assert.False(t, e.Visible)
	assert.Equal(t, 0.0, e.Pose.Position.X, "hidden entity keeps its last pose")

	m.OnMarkerUpdated(marker("A1", 2, 0, 0, core.Tracking))
	e, _ = m.Get("a1")
	assert.True(t, e.Visible)
	assert.Equal(t, 2.0, e.Pose.Position.X)

	assert.Equal(t, []ChangeKind{
		ChangeSpawned, ChangeVisibility, ChangeVisibility, ChangeMoved,
	}, rec.kinds())
}

func TestSelectable(t *testing.T) {
	m, _ := newManager(t, Options{HideOnLoss: true})
	m.OnMarkerAdded(marker("A1", 0, 0, 0, core.Tracking))
	assert.True(t, m.Selectable("a1"))
	assert.False(t, m.Selectable("zz"))

	m.OnMarkerUpdated(marker("A1", 0, 0, 0, core.TrackingLimited))
	assert.False(t, m.Selectable("a1"))
	_, ok := m.Position("a1")
	assert.True(t, ok, "hidden entity still reports a position")
}

func TestOnMarkerUpdated_PolicyOffAlwaysVisible(t *testing.T) {
	m, _ := newManager(t, Options{HideOnLoss: false})
	m.OnMarkerAdded(marker("A1", 0, 0, 0, core.TrackingLimited))
	m.OnMarkerUpdated(marker("A1", 3, 0, 0, core.TrackingNone))

	e, _ := m.Get("a1")
	assert.True(t, e.Visible)
	assert.Equal(t, 3.0, e.Pose.Position.X)
}

func TestOnMarkerRemoved_HideOnLossKeepsEntity(t *testing.T) {
	m, rec := newManager(t, Options{HideOnLoss: true})
	m.OnMarkerAdded(marker("A1", 0, 0, 0, core.Tracking))
	m.OnMarkerRemoved(marker("A1", 0, 0, 0, core.TrackingNone))
	m.OnMarkerRemoved(marker("A1", 0, 0, 0, core.TrackingNone))

	e, ok := m.Get("a1")
	require.True(t, ok, "entity stays addressable")
	assert.False(t, e.Visible)
	assert.Equal(t, []ChangeKind{ChangeSpawned, ChangeVisibility}, rec.kinds())

	m.OnMarkerAdded(marker("A1", 4, 0, 0, core.Tracking))
	e, _ = m.Get("a1")
	assert.True(t, e.Visible, "re-add of a hidden entity shows it again")
	assert.Equal(t, 1, m.Len())
}

func TestOnMarkerRemoved_PolicyOffRetires(t *testing.T) {
	m, rec := newManager(t, Options{HideOnLoss: false})
	m.OnMarkerAdded(marker("A1", 0, 0, 0, core.Tracking))
	m.OnMarkerRemoved(marker("A1", 0, 0, 0, core.TrackingNone))

	_, ok := m.Get("a1")
	assert.False(t, ok)
	assert.Equal(t, 0, m.Len())
	assert.Equal(t, []ChangeKind{ChangeSpawned, ChangeRetired}, rec.kinds())

	m.OnMarkerAdded(marker("A1", 0, 0, 0, core.Tracking))
	assert.Equal(t, 1, m.Len(), "retired identity can spawn again")
}

func TestApplyFrame_Order(t *testing.T) {
	m, rec := newManager(t, Options{HideOnLoss: false})

	m.ApplyFrame(core.FrameBatch{
		Added:   []core.MarkerEvent{marker("A1", 0, 0, 0, core.Tracking)},
		Updated: []core.MarkerEvent{marker("A1", 1, 0, 0, core.Tracking), marker("A1", 2, 0, 0, core.Tracking)},
		Removed: []core.MarkerEvent{marker("B2", 0, 0, 0, core.TrackingNone)},
	})

	pos, ok := m.Position("a1")
	require.True(t, ok)
	assert.Equal(t, 2.0, pos.X, "last write wins")
	assert.Equal(t, []ChangeKind{ChangeSpawned, ChangeMoved, ChangeMoved}, rec.kinds())

	m.ApplyFrame(core.FrameBatch{
		Added:   []core.MarkerEvent{marker("B2", 0, 0, 0, core.Tracking)},
		Removed: []core.MarkerEvent{marker("B2", 0, 0, 0, core.TrackingNone)},
	})
	_, ok = m.Get("b2")
	assert.False(t, ok, "removed after added within the same frame")
}

func TestUniquenessUnderArbitrarySequences(t *testing.T) {
	ops := []func(m *Manager){
		func(m *Manager) { m.OnMarkerAdded(marker("X", 0, 0, 0, core.Tracking)) },
		func(m *Manager) { m.OnMarkerAdded(marker(" x ", 1, 0, 0, core.TrackingLimited)) },
		func(m *Manager) { m.OnMarkerUpdated(marker("X", 2, 0, 0, core.TrackingNone)) },
		func(m *Manager) { m.OnMarkerRemoved(marker("X", 0, 0, 0, core.TrackingNone)) },
	}

	for _, hide := range []bool{true, false} {
		m, _ := newManager(t, Options{HideOnLoss: hide})
		seed := uint32(7)
		for i := 0; i < 500; i++ {
			seed = seed*1103515245 + 12345
			ops[int(seed>>16)%len(ops)](m)
			require.LessOrEqual(t, m.Len(), 1)
		}
	}
}

func TestTrackedAndVisibleSorted(t *testing.T) {
	m, _ := newManager(t, Options{HideOnLoss: true})
	m.OnMarkerAdded(marker("C3", 0, 0, 0, core.Tracking))
	m.OnMarkerAdded(marker("A1", 0, 0, 0, core.Tracking))
	m.OnMarkerAdded(marker("B2", 0, 0, 0, core.TrackingLimited))

	assert.Equal(t, []core.Identity{"a1", "c3"}, m.Tracked())

	visible := m.Visible()
	require.Len(t, visible, 2)
	assert.Equal(t, core.Identity("a1"), visible[0].Identity)
	assert.Equal(t, core.Identity("c3"), visible[1].Identity)
}

func TestObserverFunc(t *testing.T) {
	m, err := NewManager(Options{}, nil)
	require.NoError(t, err)

	var got []string
	m.Subscribe(ObserverFunc(func(c Change) {
		got = append(got, c.Kind.String()+":"+c.Entity.Identity.String())
	}))
	m.OnMarkerAdded(marker("Lab", 0, 0, 0, core.Tracking))
	m.OnMarkerRemoved(marker("Lab", 0, 0, 0, core.TrackingNone))

	assert.Equal(t, []string{"spawned:lab", "retired:lab"}, got)
}
