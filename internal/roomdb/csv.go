package roomdb

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/campusar/wayfinder/internal/csvtable"
	"github.com/campusar/wayfinder/internal/util"
	"github.com/campusar/wayfinder/pkg/core"
)

// ErrNoHeader is returned for an empty room table.
var ErrNoHeader = csvtable.ErrNoHeader

const minColumns = 4

// SplitObjects turns the pipe-separated objects column into a list.
func SplitObjects(field string) []string {
	return util.SplitList(field, "|")
}

// Load reads room_id, seats, evacuation map and objects columns. Rows with too
// few columns or no identity are skipped; a later row for the same room wins.
func Load(r io.Reader, logger *slog.Logger) (*Table, error) {
	if logger == nil {
		logger = slog.Default()
	}
	rows, err := csvtable.NewReader(r)
	if err != nil {
		return nil, err
	}
	logger.Debug("room table separator detected", "separator", string(rows.Separator))

	table := NewTable()
	for {
		fields, line, err := rows.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			logger.Warn("skipping unreadable room row", "line", line, "error", err)
			continue
		}
		if len(fields) < minColumns {
			logger.Warn("skipping room row with too few columns", "line", line, "columns", len(fields))
			continue
		}

		id := core.NewIdentity(fields[0])
		if id.IsZero() {
			continue
		}
		table.Put(core.DetailRecord{
			RoomID:         id,
			SeatsAvailable: csvtable.SafeInt(fields[1]),
			EvacuationMap:  fields[2],
			Objects:        SplitObjects(fields[3]),
		})
	}

	logger.Info("room table loaded", "rooms", table.Len())
	return table, nil
}

// LoadFile opens path and loads it with Load.
func LoadFile(path string, logger *slog.Logger) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open room table: %w", err)
	}
	defer f.Close()
	return Load(f, logger)
}
