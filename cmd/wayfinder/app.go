package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/campusar/wayfinder/internal/config"
	"github.com/campusar/wayfinder/internal/database"
	"github.com/campusar/wayfinder/internal/dispatcher"
	"github.com/campusar/wayfinder/internal/entity"
	"github.com/campusar/wayfinder/internal/geo"
	"github.com/campusar/wayfinder/internal/hud"
	"github.com/campusar/wayfinder/internal/influx"
	"github.com/campusar/wayfinder/internal/logging"
	intOtel "github.com/campusar/wayfinder/internal/otel"
	"github.com/campusar/wayfinder/internal/parser"
	"github.com/campusar/wayfinder/internal/roomdb"
	"github.com/campusar/wayfinder/internal/session"
	"github.com/campusar/wayfinder/internal/storage"
	"github.com/campusar/wayfinder/internal/students"
	"github.com/campusar/wayfinder/internal/worker"
	"github.com/campusar/wayfinder/pkg/core"

	"github.com/google/uuid"
	"github.com/spf13/viper"
)

const appName = "wayfinder"

// app holds everything a subcommand may need. Fields are filled lazily by the
// open* methods and released by close in reverse order.
type app struct {
	configDir string
	logLevel  string
	logFile   bool

	startedAt time.Time
	logs      *logging.SlogManager
	logger    *slog.Logger
	logOut    io.Writer
	otel      *intOtel.Provider
	live      atomic.Pointer[session.Session]

	closers []func() error
}

func newApp() *app {
	return &app{
		startedAt: time.Now(),
		logs:      logging.NewSlogManager(),
	}
}

func (a *app) onClose(fn func() error) {
	a.closers = append(a.closers, fn)
}

// init loads configuration and sets up logging.
func (a *app) init(ctx context.Context) error {
	if a.configDir == "" {
		config.LoadDefaults()
	} else if err := config.Load(a.configDir); err != nil {
		return err
	}
	if a.logLevel == "" {
		a.logLevel = viper.GetString("logLevel")
	}

	var out io.Writer = os.Stderr
	if a.logFile {
		f, err := logging.OpenLogFile(viper.GetString("logsDir"), appName, a.startedAt)
		if err != nil {
			return err
		}
		a.onClose(f.Close)
		out = f
	}

	otelCfg := config.GetOTelConfig()
	if otelCfg.Enabled {
		p, err := intOtel.New(ctx, intOtel.Config{
			Enabled:      true,
			ServiceName:  otelCfg.ServiceName,
			SessionTag:   viper.GetString("sessionTag"),
			BatchTimeout: otelCfg.BatchTimeout,
			LogWriter:    otelWriter(out),
			Endpoint:     otelCfg.Endpoint,
			Insecure:     otelCfg.Insecure,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "otel disabled: %v\n", err)
		} else {
			a.otel = p
			a.onClose(func() error {
				sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return p.Shutdown(sctx)
			})
		}
	}

	opts := logging.Options{Context: a.sessionAttrs}
	if a.otel != nil {
		opts.Provider = a.otel.LoggerProvider()
	}
	if viper.GetBool("graylog.enabled") {
		sink, err := logging.NewGELFSink(viper.GetString("graylog.address"))
		if err != nil {
			fmt.Fprintf(os.Stderr, "graylog disabled: %v\n", err)
		} else {
			opts.Extra = append(opts.Extra, sink.Handler(a.logLevel))
			a.onClose(sink.Close)
		}
	}

	a.logOut = out
	a.logs.Setup(out, a.logLevel, opts)
	a.logger = a.logs.Logger()
	return nil
}

// otelWriter keeps pretty-printed OTel records out of the terminal.
func otelWriter(out io.Writer) io.Writer {
	if out == os.Stderr {
		return nil
	}
	return out
}

func (a *app) sessionAttrs() []slog.Attr {
	if s := a.live.Load(); s != nil {
		return s.LogAttrs()
	}
	return nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && a.logger != nil {
			a.logger.Warn("shutdown step failed", "error", err)
		}
	}
	a.closers = nil
}

// openStore returns the room detail store selected by data.source.
func (a *app) openStore(ctx context.Context) (roomdb.Store, error) {
	dc := config.GetDataConfig()
	if dc.Source != "db" {
		return roomdb.LoadFile(dc.RoomsCSV, a.logger)
	}

	mgr := database.NewManager(logging.NewZerolog(a.logOut, a.logLevel, "database"), "")
	if err := mgr.Connect(config.GetDBConfig()); err != nil {
		return nil, err
	}
	a.onClose(mgr.Close)

	store, err := roomdb.NewDBStore(mgr.DB, dc.CacheTTL, a.logger)
	if err != nil {
		return nil, err
	}
	if mgr.ShouldSaveLocal {
		// the fallback database starts empty; seed it from the CSV
		table, err := roomdb.LoadFile(dc.RoomsCSV, a.logger)
		if err != nil {
			return nil, err
		}
		if _, err := store.Import(ctx, table.Records()); err != nil {
			return nil, err
		}
	}
	return store, nil
}

// openRoster loads the student roster. A missing file disables roster features.
func (a *app) openRoster() *students.Roster {
	path := config.GetDataConfig().StudentsCSV
	if path == "" {
		return nil
	}
	roster, err := students.LoadFile(path, a.logger)
	if err != nil {
		a.logger.Warn("student roster unavailable", "path", path, "error", err)
		return nil
	}
	return roster
}

func (a *app) georeference() *geo.Georeference {
	gc := config.GetGeoConfig()
	if gc.OriginLon == 0 && gc.OriginLat == 0 {
		return nil
	}
	g, err := geo.NewGeoreference(gc.OriginLon, gc.OriginLat)
	if err != nil {
		a.logger.Warn("georeference disabled", "lon", gc.OriginLon, "lat", gc.OriginLat, "error", err)
		return nil
	}
	return g
}

// recording bundles the storage backend and telemetry of one session.
type recording struct {
	info      core.SessionInfo
	backend   storage.Backend
	recorder  *storage.Recorder
	influx    *influx.Manager
	telemetry *influx.Telemetry
}

func (r *recording) observers() []entity.Observer {
	obs := []entity.Observer{r.recorder}
	if r.telemetry != nil {
		obs = append(obs, r.telemetry)
	}
	return obs
}

// openRecording starts a storage session and, when enabled, influx telemetry.
func (a *app) openRecording(ctx context.Context, tag string) (*recording, error) {
	scene := config.GetSceneConfig()
	georef := a.georeference()

	r := &recording{info: core.SessionInfo{
		UUID:          uuid.NewString(),
		Tag:           tag,
		StartTime:     a.startedAt,
		MetersPerUnit: scene.MetersPerUnit,
		WalkingSpeed:  scene.WalkingSpeed,
		HideOnLoss:    scene.HideOnLoss,
	}}
	if georef != nil {
		r.info.Georeferenced = true
		r.info.OriginLon, r.info.OriginLat = georef.Origin()
	}

	backend, err := storage.NewBackend(config.GetStorageConfig(), storage.Options{
		DB:   config.GetDBConfig(),
		Geo:  georef,
		Logs: a.logs,
	})
	if err != nil {
		return nil, err
	}
	if err := backend.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize storage backend: %w", err)
	}
	a.onClose(backend.Close)
	if err := backend.StartSession(&r.info); err != nil {
		return nil, fmt.Errorf("failed to start recording: %w", err)
	}
	r.backend = backend
	r.recorder = storage.NewRecorder(backend, a.logger)
	a.logger.Info("recording session", "uuid", r.info.UUID, "storage", config.GetStorageConfig().Type)

	ic := config.GetInfluxConfig()
	if ic.Enabled {
		if dir := filepath.Dir(ic.BackupPath); dir != "" {
			_ = os.MkdirAll(dir, 0755)
		}
		m := influx.NewManager(logging.NewZerolog(a.logOut, a.logLevel, "influx"), ic.BackupPath)
		cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := m.Connect(cctx, ic)
		cancel()
		switch {
		case errors.Is(err, influx.ErrDisabled):
		case err != nil:
			a.logger.Warn("influx telemetry unavailable", "error", err)
		default:
			r.influx = m
			r.telemetry = influx.NewTelemetry(m, ic.Bucket, r.info.UUID)
			a.onClose(m.Close)
		}
	}
	return r, nil
}

// finish ends the storage session and reports where it went.
func (a *app) finish(r *recording) {
	if err := r.backend.EndSession(); err != nil {
		a.logger.Error("failed to end recording", "error", err)
		return
	}
	if exp, ok := r.backend.(storage.Exportable); ok && exp.ExportedFilePath() != "" {
		a.logger.Info("session exported", "path", exp.ExportedFilePath())
	}
	if r.recorder.Failed() > 0 {
		a.logger.Warn("some recording writes failed", "count", r.recorder.Failed())
	}
	if a.otel != nil && a.otel.Enabled() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.otel.Flush(ctx); err != nil {
			a.logger.Warn("otel flush failed", "error", err)
		}
	}
}

// scene is a wired session with its command dispatcher.
type scene struct {
	session    *session.Session
	dispatcher *dispatcher.Dispatcher
	worker     *worker.Manager
	console    *hud.Console
	recording  *recording
}

// openScene builds the full pipeline: data, recording, session and command handlers.
func (a *app) openScene(ctx context.Context, tag string, out io.Writer) (*scene, error) {
	store, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	rec, err := a.openRecording(ctx, tag)
	if err != nil {
		return nil, err
	}

	console := hud.NewConsole(out)
	s, err := session.New(rec.info.UUID, config.GetSceneConfig(), config.GetGestureConfig(), session.Dependencies{
		Store:     store,
		Roster:    a.openRoster(),
		HUD:       console,
		Observers: rec.observers(),
		Logger:    a.logger,
	})
	if err != nil {
		return nil, err
	}
	s.OnMeasurement(rec.recorder.Measured)
	if rec.telemetry != nil {
		s.OnMeasurement(rec.telemetry.Measured)
	}
	a.live.Store(s)

	d, err := dispatcher.New(logging.NewDispatcherLogger(logging.NewZerolog(a.logOut, a.logLevel, "dispatcher")))
	if err != nil {
		return nil, fmt.Errorf("failed to create dispatcher: %w", err)
	}
	w := worker.NewManager(worker.Dependencies{
		Session:    s,
		Parser:     parser.NewParser(a.logger),
		LogManager: a.logs,
		Backend:    rec.backend,
		Influx:     rec.influx,
	})
	w.RegisterHandlers(d)
	a.logger.Debug("scene ready", "session", s.ID(), "commands", d.Commands())

	return &scene{session: s, dispatcher: d, worker: w, console: console, recording: rec}, nil
}

// shutdown drains the dispatcher, closes the session and ends the recording.
func (a *app) shutdown(sc *scene) {
	sc.dispatcher.Close()
	sc.session.Close()
	a.finish(sc.recording)
	a.live.Store(nil)
	a.logger.Info("session closed",
		"frames", sc.worker.Frames(),
		"lastDBWrite", sc.worker.GetLastDBWriteDuration())
}
