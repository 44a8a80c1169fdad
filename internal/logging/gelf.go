package logging

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/Graylog2/go-gelf/gelf"
)

// GELFSink ships JSON log lines to a Graylog input over UDP.
type GELFSink struct {
	writer *gelf.Writer
}

// NewGELFSink dials the Graylog UDP input at addr.
func NewGELFSink(addr string) (*GELFSink, error) {
	w, err := gelf.NewWriter(addr)
	if err != nil {
		return nil, fmt.Errorf("failed to create GELF writer for %s: %w", addr, err)
	}
	w.Facility = "wayfinder"
	return &GELFSink{writer: w}, nil
}

// Handler returns a slog handler writing through the sink at the given level.
func (s *GELFSink) Handler(level string) slog.Handler {
	return slog.NewJSONHandler(s.writer, handlerOptions(parseLevel(level)))
}

func (s *GELFSink) Close() error {
	return s.writer.Close()
}

var _ io.Closer = (*GELFSink)(nil)
