package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/campusar/wayfinder/internal/config"
	"github.com/campusar/wayfinder/internal/dispatcher"
	"github.com/campusar/wayfinder/internal/logging"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFeedLine(t *testing.T) {
	at := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		line    string
		ok      bool
		command string
		args    []string
	}{
		{"", false, "", nil},
		{"   ", false, "", nil},
		{"# comment", false, "", nil},
		{":FRAME:", true, ":FRAME:", []string{}},
		{" :TAP:;B204 ", true, ":TAP:", []string{"B204"}},
		{":MARKER:ADDED:;C101;3;0;4", true, ":MARKER:ADDED:", []string{"C101", "3", "0", "4"}},
	}
	for _, tt := range tests {
		ev, ok := parseFeedLine(tt.line, at)
		assert.Equal(t, tt.ok, ok, tt.line)
		if !ok {
			continue
		}
		assert.Equal(t, tt.command, ev.Command)
		assert.Equal(t, tt.args, ev.Args)
		assert.Equal(t, at, ev.Timestamp)
	}
}

func TestFeed(t *testing.T) {
	d, err := dispatcher.New(logging.NewDispatcherLogger(zerolog.Nop()))
	require.NoError(t, err)
	defer d.Close()

	var got []string
	d.Register(":TAP:", func(e dispatcher.Event) (any, error) {
		got = append(got, e.Args[0])
		return nil, nil
	})

	var failed []string
	input := strings.NewReader("# taps\n:TAP:;b204\n\n:NOPE:\n:TAP:;c101\n")
	err = feed(context.Background(), input, d, time.Now, func(cmd string, err error) {
		failed = append(failed, cmd)
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"b204", "c101"}, got)
	assert.Equal(t, []string{":NOPE:"}, failed)
}

func TestFeed_Cancelled(t *testing.T) {
	d, err := dispatcher.New(logging.NewDispatcherLogger(zerolog.Nop()))
	require.NoError(t, err)
	defer d.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = feed(ctx, strings.NewReader(":FRAME:\n"), d, time.Now, func(string, error) {})
	assert.ErrorIs(t, err, context.Canceled)
}

func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	rooms := filepath.Join(dir, "rooms.csv")
	require.NoError(t, os.WriteFile(rooms, []byte(
		"room_id;seats_available;evacuation_map;objects_present\n"+
			"B204;30;East stairs, exit 2;projector|whiteboard\n"), 0644))
	body := fmt.Sprintf(`{
		"logLevel": "error",
		"data": { "roomsCsv": %q, "studentsCsv": "" }
	}`, rooms)
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.FileName), []byte(body), 0644))
	return dir
}

func TestLookupCommand(t *testing.T) {
	t.Cleanup(viper.Reset)

	var out bytes.Buffer
	cmd := RootCommand(newApp())
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"lookup", "-c", writeTestConfig(t), " B204 ", "x9"})
	require.NoError(t, cmd.Execute())

	text := out.String()
	assert.Contains(t, text, "b204\nSeats available: 30\nEvacuation: East stairs, exit 2\nObjects: projector, whiteboard")
	assert.Contains(t, text, "x9\nSeats available: ?")
	assert.Contains(t, text, "Objects: (not found)")
}
