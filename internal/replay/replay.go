// Package replay drives a session from a recorded command script on a
// deterministic clock, so a walk through the campus can be reproduced
// without a tracker or a touch screen.
package replay

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"time"

	"github.com/campusar/wayfinder/internal/dispatcher"
	"github.com/campusar/wayfinder/internal/session"
	"gopkg.in/yaml.v3"
)

const defaultTick = 16 * time.Millisecond

// ErrEmptyCommand is returned by Parse for an event without a command.
var ErrEmptyCommand = errors.New("replay event has no command")

// Script is a list of commands at offsets from the start of the replay.
type Script struct {
	Tag    string        `yaml:"tag"`
	Tick   time.Duration `yaml:"tick"`
	Events []Event       `yaml:"events"`
}

// Event is one command line. At is the offset from the replay start.
type Event struct {
	At      time.Duration `yaml:"at"`
	Command string        `yaml:"command"`
	Args    []string      `yaml:"args"`
}

// Duration is the offset of the last event.
func (s *Script) Duration() time.Duration {
	if len(s.Events) == 0 {
		return 0
	}
	return s.Events[len(s.Events)-1].At
}

// Parse decodes a YAML script. Events are ordered by offset; events at the same
// offset keep their file order.
func Parse(r io.Reader) (*Script, error) {
	var sc Script
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&sc); err != nil {
		return nil, fmt.Errorf("failed to decode replay script: %w", err)
	}

	if sc.Tick <= 0 {
		sc.Tick = defaultTick
	}
	for i, ev := range sc.Events {
		if ev.Command == "" {
			return nil, fmt.Errorf("event %d: %w", i, ErrEmptyCommand)
		}
		if ev.At < 0 {
			return nil, fmt.Errorf("event %d: negative offset %s", i, ev.At)
		}
	}
	slices.SortStableFunc(sc.Events, func(a, b Event) int {
		return cmp.Compare(a.At, b.At)
	})
	return &sc, nil
}

// LoadFile parses the script at path.
func LoadFile(path string) (*Script, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open replay script: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Dispatcher routes one command. *dispatcher.Dispatcher satisfies it.
type Dispatcher interface {
	Dispatch(e dispatcher.Event) (any, error)
}

// Stepper advances the scene to now. *session.Session satisfies it.
type Stepper interface {
	Step(now time.Time) session.StepResult
}

// Options tune Run.
type Options struct {
	// Start is the virtual time of offset zero.
	Start time.Time
	// Tail keeps stepping after the last event, e.g. to let a hold fire.
	Tail time.Duration
	// OnStep is called after every step with the wall time the step took.
	OnStep func(res session.StepResult, took time.Duration)
	Logger *slog.Logger
}

// Result summarizes a replay.
type Result struct {
	Dispatched int
	Failed     int
	Steps      int
	Intents    int
	End        time.Time
}

// Run dispatches every event at its offset and steps the scene once per tick
// in between. Command errors are logged and counted, not returned.
func Run(ctx context.Context, sc *Script, d Dispatcher, st Stepper, opts Options) (Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "replay")

	var res Result
	now := opts.Start

	step := func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		began := time.Now()
		out := st.Step(now)
		if opts.OnStep != nil {
			opts.OnStep(out, time.Since(began))
		}
		res.Steps++
		res.Intents += len(out.Intents)
		now = now.Add(sc.Tick)
		return nil
	}

	for _, ev := range sc.Events {
		at := opts.Start.Add(ev.At)
		for now.Before(at) {
			if err := step(); err != nil {
				res.End = now
				return res, err
			}
		}

		_, err := d.Dispatch(dispatcher.Event{Command: ev.Command, Args: ev.Args, Timestamp: at})
		res.Dispatched++
		if err != nil {
			res.Failed++
			logger.Warn("replay command failed", "command", ev.Command, "at", ev.At, "error", err)
		}
	}

	end := opts.Start.Add(sc.Duration() + opts.Tail)
	for {
		if err := step(); err != nil {
			res.End = now
			return res, err
		}
		if now.After(end) {
			break
		}
	}

	res.End = now
	logger.Info("replay finished", "events", res.Dispatched, "failed", res.Failed, "steps", res.Steps)
	return res, nil
}
