package monitor

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/campusar/wayfinder/internal/influx"
	"github.com/campusar/wayfinder/internal/logging"
	"github.com/campusar/wayfinder/internal/session"
	"github.com/campusar/wayfinder/internal/worker"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	Session    *session.Session
	Worker     *worker.Manager
	LogManager *logging.SlogManager
	Influx     *influx.Manager // optional
	StatusFile string          // optional, rewritten on every report
	Interval   time.Duration
	Clock      func() time.Time
}

// Status is one report.
type Status struct {
	Time           time.Time `json:"time"`
	Session        string    `json:"session"`
	Entities       int       `json:"entities"`
	Tracked        int       `json:"tracked"`
	PendingInputs  int       `json:"pendingInputs"`
	PendingMarkers int       `json:"pendingMarkers"`
	Frames         int       `json:"frames"`
	SlotA          string    `json:"slotA,omitempty"`
	SlotB          string    `json:"slotB,omitempty"`
	LastWriteMs    float64   `json:"lastWriteMs"`
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	wg        sync.WaitGroup
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	return &Service{deps: deps}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetStatus collects the current status. It is safe to call while the session runs.
func (s *Service) GetStatus() Status {
	st := s.deps.Session.Stats()
	status := Status{
		Time:          s.deps.Clock(),
		Session:       s.deps.Session.ID(),
		Entities:      st.Entities,
		Tracked:       st.Tracked,
		PendingInputs: st.Pending,
		SlotA:         st.SlotA.String(),
		SlotB:         st.SlotB.String(),
	}
	if s.deps.Worker != nil {
		status.PendingMarkers = s.deps.Worker.PendingMarkers()
		status.Frames = s.deps.Worker.Frames()
		status.LastWriteMs = float64(s.deps.Worker.GetLastDBWriteDuration().Microseconds()) / 1000
	}
	return status
}

// Report writes one status to the status file and, when connected, to InfluxDB.
func (s *Service) Report() error {
	status := s.GetStatus()
	var errs []error

	if s.deps.StatusFile != "" {
		if err := writeStatusFile(s.deps.StatusFile, status); err != nil {
			errs = append(errs, err)
		}
	}

	if s.deps.Influx != nil {
		p := influxdb2_write.NewPoint("status",
			map[string]string{"session": status.Session},
			map[string]any{
				"entities":        status.Entities,
				"tracked":         status.Tracked,
				"pending_inputs":  status.PendingInputs,
				"pending_markers": status.PendingMarkers,
				"frames":          status.Frames,
				"last_write_ms":   status.LastWriteMs,
			},
			status.Time)
		if err := s.deps.Influx.WritePoint(influx.PerformanceBucket, p); err != nil {
			errs = append(errs, fmt.Errorf("failed to write status point: %w", err))
		}
	}
	return errors.Join(errs...)
}

func writeStatusFile(path string, status Status) error {
	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write status file: %w", err)
	}
	return os.Rename(tmp, path)
}

// Start starts the status monitor goroutine
func (s *Service) Start() error {
	if s.deps.Interval <= 0 {
		return fmt.Errorf("invalid monitor interval %s", s.deps.Interval)
	}

	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	stop := s.stopChan
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()

		logger := s.deps.LogManager.Logger()
		logger.Debug("Starting status monitor goroutine", "function", "startStatusMonitor",
			"interval", s.deps.Interval)

		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if err := s.Report(); err != nil {
					logger.Error("Error writing status", "error", err)
				}
			}
		}
	}()

	return nil
}

// Stop stops the status monitor and waits for the goroutine to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	if s.isRunning && s.stopChan != nil {
		close(s.stopChan)
		s.stopChan = nil
	}
	s.mu.Unlock()
	s.wg.Wait()
}
