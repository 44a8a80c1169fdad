// Package session composes the scene core and drives it from one goroutine.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/campusar/wayfinder/internal/config"
	"github.com/campusar/wayfinder/internal/details"
	"github.com/campusar/wayfinder/internal/entity"
	"github.com/campusar/wayfinder/internal/gesture"
	"github.com/campusar/wayfinder/internal/hud"
	"github.com/campusar/wayfinder/internal/queue"
	"github.com/campusar/wayfinder/internal/roomdb"
	"github.com/campusar/wayfinder/internal/selection"
	"github.com/campusar/wayfinder/internal/spatial"
	"github.com/campusar/wayfinder/internal/students"
	"github.com/campusar/wayfinder/pkg/core"
)

// Dependencies holds the collaborators a session is built from.
type Dependencies struct {
	Store     roomdb.Store
	Roster    *students.Roster // optional
	HUD       *hud.Console
	Observers []entity.Observer
	Logger    *slog.Logger
}

type inputKind int

const (
	inputFrame inputKind = iota
	inputPointer
	inputTap
	inputHold
	inputClear
)

// input is one queued item. Inputs of every kind share a queue so they are
// applied in arrival order.
type input struct {
	kind     inputKind
	frame    core.FrameBatch
	pointer  core.PointerEvent
	identity core.Identity
}

// StepResult summarizes one Step.
type StepResult struct {
	Frames   int
	Pointers int
	Intents  []gesture.Intent
}

// Session owns the entity manager, selection engine, gesture disambiguator and
// detail flow. Push methods are safe from any goroutine; Step is not.
type Session struct {
	id     string
	logger *slog.Logger

	manager  *entity.Manager
	index    *spatial.Index
	engine   *selection.Engine
	gestures *gesture.Disambiguator
	flow     *details.Flow
	hud      *hud.Console

	inputs *queue.Queue[input]

	entities atomic.Int64
	tracked  atomic.Int64
	slots    atomic.Pointer[[2]core.Identity]
}

// Stats is a view of the session as of the last Step.
type Stats struct {
	Entities int
	Tracked  int
	Pending  int
	SlotA    core.Identity
	SlotB    core.Identity
}

// New builds a session from deployment configuration.
func New(id string, scene config.SceneConfig, gc config.GestureConfig, deps Dependencies) (*Session, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	console := deps.HUD
	if console == nil {
		console = hud.NewConsole(nil)
	}

	s := &Session{
		id:     id,
		logger: logger.With("component", "session"),
		hud:    console,
		inputs: queue.New[input](),
	}
	s.slots.Store(&[2]core.Identity{})

	var err error
	s.manager, err = entity.NewManager(entity.Options{
		HeightOffset: scene.HeightOffset,
		HideOnLoss:   scene.HideOnLoss,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create entity manager: %w", err)
	}

	s.index = spatial.NewIndex(spatial.Projection{
		PixelsPerUnit: gc.PixelsPerUnit,
		Center:        core.ScreenPoint{X: gc.ScreenCenterX, Y: gc.ScreenCenterY},
	}, gc.PickRadiusPx)
	s.manager.Subscribe(s.index)
	for _, o := range deps.Observers {
		s.manager.Subscribe(o)
	}

	s.engine, err = selection.NewEngine(selection.Options{
		MetersPerUnit:     scene.MetersPerUnit,
		WalkingSpeed:      scene.WalkingSpeed,
		TapSameToDeselect: scene.TapSameToDeselect,
		ColorA:            scene.ColorA,
		ColorB:            scene.ColorB,
	}, s.manager, console, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create selection engine: %w", err)
	}

	s.gestures = gesture.New(gesture.Options{
		HoldDuration:    gc.HoldDuration,
		MoveTolerancePx: gc.MoveTolerancePx,
	}, s.index, logger)

	s.flow = details.NewFlow(deps.Store, deps.Roster, console, logger)

	return s, nil
}

func (s *Session) ID() string {
	return s.id
}

// PushFrame queues one tracker frame.
func (s *Session) PushFrame(b core.FrameBatch) {
	if b.Empty() {
		return
	}
	s.inputs.Push(input{kind: inputFrame, frame: b})
}

// PushPointer queues one raw pointer event.
func (s *Session) PushPointer(ev core.PointerEvent) {
	s.inputs.Push(input{kind: inputPointer, pointer: ev})
}

// PushTap queues a selection tap on id. It bypasses gesture disambiguation;
// hidden or unknown entities are ignored when the tap is applied.
func (s *Session) PushTap(id core.Identity) {
	s.inputs.Push(input{kind: inputTap, identity: id})
}

// PushHold queues a detail lookup that bypasses gesture disambiguation.
func (s *Session) PushHold(id core.Identity) {
	s.inputs.Push(input{kind: inputHold, identity: id})
}

// PushClear queues clearing the selection and closing the detail panel.
func (s *Session) PushClear() {
	s.inputs.Push(input{kind: inputClear})
}

// Pending returns the number of queued inputs.
func (s *Session) Pending() int {
	return s.inputs.Len()
}

// Step applies every queued input in order, fires a due hold, refreshes the
// selection link and the tracked-marker list.
func (s *Session) Step(now time.Time) StepResult {
	var res StepResult

	for _, in := range s.inputs.Drain() {
		switch in.kind {
		case inputFrame:
			res.Frames++
			s.manager.ApplyFrame(in.frame)
		case inputPointer:
			res.Pointers++
			res.Intents = append(res.Intents, s.apply(s.gestures.Handle(in.pointer))...)
		case inputTap:
			s.engine.Tap(in.identity)
		case inputHold:
			s.flow.Open(in.identity)
		case inputClear:
			s.engine.Clear()
			s.flow.Close()
		}
	}

	res.Intents = append(res.Intents, s.apply(s.gestures.Advance(now))...)
	s.engine.Refresh()
	tracked := s.manager.Tracked()
	s.hud.SetTracked(tracked)

	a, b := s.engine.Slots()
	s.entities.Store(int64(s.manager.Len()))
	s.tracked.Store(int64(len(tracked)))
	s.slots.Store(&[2]core.Identity{a.Identity(), b.Identity()})

	return res
}

func (s *Session) apply(intents []gesture.Intent) []gesture.Intent {
	for _, in := range intents {
		switch in.Kind {
		case gesture.IntentTap:
			s.engine.Tap(in.Identity)
		case gesture.IntentHold:
			s.flow.Open(in.Identity)
		}
	}
	return intents
}

// Run calls Step every interval until ctx is done.
func (s *Session) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("invalid refresh interval %s", interval)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("session running", "session", s.id, "interval", interval)
	for {
		select {
		case <-ctx.Done():
			s.Step(time.Now())
			s.logger.Info("session stopped", "session", s.id)
			return nil
		case now := <-ticker.C:
			s.Step(now)
		}
	}
}

// Close clears the selection and the detail panel. Call after Run returns.
func (s *Session) Close() {
	s.engine.Clear()
	s.flow.Close()
}

// LogAttrs returns attributes describing the session for log records. It is
// safe to call from any goroutine.
func (s *Session) LogAttrs() []slog.Attr {
	slots := s.slots.Load()
	return []slog.Attr{
		slog.String("session", s.id),
		slog.Int64("entities", s.entities.Load()),
		slog.String("selection", fmt.Sprintf("%s,%s", slots[0], slots[1])),
	}
}

// Stats is safe to call from any goroutine.
func (s *Session) Stats() Stats {
	st := Stats{
		Entities: int(s.entities.Load()),
		Tracked:  int(s.tracked.Load()),
		Pending:  s.inputs.Len(),
	}
	if slots := s.slots.Load(); slots != nil {
		st.SlotA, st.SlotB = slots[0], slots[1]
	}
	return st
}

// OnMeasurement forwards every published distance to hook.
func (s *Session) OnMeasurement(hook func(selection.Measurement)) {
	s.engine.OnMeasurement(hook)
}

// OnDetails forwards every opened detail panel to hook.
func (s *Session) OnDetails(hook func(details.Panel)) {
	s.flow.OnOpen(hook)
}

// The accessors below are for reading state between steps.

func (s *Session) Entities() *entity.Manager        { return s.manager }
func (s *Session) Selection() *selection.Engine     { return s.engine }
func (s *Session) Gestures() *gesture.Disambiguator { return s.gestures }
func (s *Session) Details() *details.Flow           { return s.flow }
func (s *Session) HUD() *hud.Console                { return s.hud }
func (s *Session) Index() *spatial.Index            { return s.index }
