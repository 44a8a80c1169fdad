// internal/storage/memory/export.go
package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/campusar/wayfinder/pkg/core"
)

// SessionExport is the root JSON structure
type SessionExport struct {
	UUID          string            `json:"uuid,omitempty"`
	Tag           string            `json:"tag"`
	StartTime     time.Time         `json:"startTime"`
	EndTime       time.Time         `json:"endTime"`
	MetersPerUnit float64           `json:"metersPerUnit"`
	WalkingSpeed  float64           `json:"walkingSpeed"`
	HideOnLoss    bool              `json:"hideOnLoss"`
	Origin        []float64         `json:"origin,omitempty"` // [lon, lat]
	Entities      []EntityJSON      `json:"entities"`
	Measurements  []MeasurementJSON `json:"measurements"`
}

// EntityJSON is one entity and its change history.
type EntityJSON struct {
	Identity string      `json:"identity"`
	Events   []EventJSON `json:"events"`
}

// EventJSON is one entity change. LonLat is set only for georeferenced sessions.
type EventJSON struct {
	Time        time.Time        `json:"time"`
	Kind        string           `json:"kind"`
	Position    core.Position3D  `json:"position"`
	Orientation core.Orientation `json:"orientation"`
	Visible     bool             `json:"visible"`
	State       string           `json:"state"`
	LonLat      []float64        `json:"lonLat,omitempty"`
}

// MeasurementJSON is one published distance.
type MeasurementJSON struct {
	Time    time.Time       `json:"time"`
	A       string          `json:"a"`
	B       string          `json:"b"`
	PosA    core.Position3D `json:"posA"`
	PosB    core.Position3D `json:"posB"`
	Meters  float64         `json:"meters"`
	Seconds float64         `json:"seconds"`
	Speed   float64         `json:"speed"`
}

// exportJSON writes the session data to a (optionally gzipped) JSON file
func (b *Backend) exportJSON() error {
	if b.session.EndTime.IsZero() {
		b.session.EndTime = time.Now()
	}
	export := b.buildExport()

	tag := strings.NewReplacer(" ", "_", ":", "_", "/", "_").Replace(b.session.Tag)
	if tag == "" {
		tag = "session"
	}
	timestamp := b.session.StartTime.Format("20060102_150405")

	filename := fmt.Sprintf("%s_%s.json", tag, timestamp)
	if b.cfg.CompressOutput {
		filename += ".gz"
	}

	outputPath := filepath.Join(b.cfg.OutputDir, filename)

	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var err error
	if b.cfg.CompressOutput {
		err = writeGzipJSON(outputPath, export)
	} else {
		err = writeJSON(outputPath, export)
	}
	if err != nil {
		return err
	}

	b.lastExportPath = outputPath
	return nil
}

func (b *Backend) buildExport() SessionExport {
	s := b.session
	export := SessionExport{
		UUID:          s.UUID,
		Tag:           s.Tag,
		StartTime:     s.StartTime,
		EndTime:       s.EndTime,
		MetersPerUnit: s.MetersPerUnit,
		WalkingSpeed:  s.WalkingSpeed,
		HideOnLoss:    s.HideOnLoss,
		Entities:      make([]EntityJSON, 0, len(b.order)),
		Measurements:  make([]MeasurementJSON, 0, len(b.measurements)),
	}
	if b.georef != nil {
		lon, lat := b.georef.Origin()
		export.Origin = []float64{lon, lat}
	}

	for _, id := range b.order {
		rec := b.entities[id]
		entity := EntityJSON{Identity: id.String(), Events: make([]EventJSON, 0, len(rec.Events))}
		for _, e := range rec.Events {
			ev := EventJSON{
				Time:        e.Time,
				Kind:        e.Kind,
				Position:    e.Pose.Position,
				Orientation: e.Pose.Orientation,
				Visible:     e.Visible,
				State:       e.State.String(),
			}
			if b.georef != nil {
				lon, lat := b.georef.LonLat(e.Pose.Position, s.MetersPerUnit)
				ev.LonLat = []float64{lon, lat}
			}
			entity.Events = append(entity.Events, ev)
		}
		export.Entities = append(export.Entities, entity)
	}

	for _, m := range b.measurements {
		export.Measurements = append(export.Measurements, MeasurementJSON{
			Time:    m.Time,
			A:       m.A.String(),
			B:       m.B.String(),
			PosA:    m.PosA,
			PosB:    m.PosB,
			Meters:  m.Meters,
			Seconds: m.Seconds,
			Speed:   m.Speed,
		})
	}

	return export
}

func writeJSON(path string, data SessionExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	return json.NewEncoder(f).Encode(data)
}

func writeGzipJSON(path string, data SessionExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gw := gzip.NewWriter(f)
	if err := json.NewEncoder(gw).Encode(data); err != nil {
		gw.Close()
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return gw.Close()
}
