package main

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/campusar/wayfinder/internal/config"
	"github.com/campusar/wayfinder/internal/dispatcher"
	"github.com/campusar/wayfinder/internal/monitor"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// feedSeparator splits a feed line into command and arguments.
const feedSeparator = ";"

// parseFeedLine turns ":TAP:;B204" into an event. Blank lines and lines
// starting with # are skipped.
func parseFeedLine(line string, at time.Time) (dispatcher.Event, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return dispatcher.Event{}, false
	}
	parts := strings.Split(line, feedSeparator)
	return dispatcher.Event{
		Command:   strings.TrimSpace(parts[0]),
		Args:      parts[1:],
		Timestamp: at,
	}, true
}

// feed dispatches every line of r until EOF or ctx is done.
func feed(ctx context.Context, r io.Reader, d *dispatcher.Dispatcher, now func() time.Time, onErr func(cmd string, err error)) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		ev, ok := parseFeedLine(sc.Text(), now())
		if !ok {
			continue
		}
		if _, err := d.Dispatch(ev); err != nil {
			onErr(ev.Command, err)
		}
	}
	return sc.Err()
}

func serveCommand(a *app) *cobra.Command {
	var input string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the scene live, reading ';'-separated commands from stdin or a file",
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if input != "" && input != "-" {
				f, err := os.Open(input)
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}

			sc, err := a.openScene(cmd.Context(), viper.GetString("sessionTag"), cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer a.shutdown(sc)

			mon, err := a.startMonitor(sc)
			if err != nil {
				return err
			}
			defer mon.Stop()

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			if addr := config.GetMonitorConfig().MetricsAddr; addr != "" {
				metrics, err := monitor.NewMetrics(mon)
				if err != nil {
					return err
				}
				served := make(chan struct{})
				defer func() { <-served }()
				go func() {
					defer close(served)
					if err := metrics.Serve(ctx, addr); err != nil {
						a.logger.Error("metrics endpoint stopped", "addr", addr, "error", err)
					}
				}()
				a.logger.Info("serving metrics", "addr", addr)
			}

			runErr := make(chan error, 1)
			go func() {
				runErr <- sc.session.Run(ctx, config.GetSceneConfig().RefreshInterval)
			}()

			err = feed(ctx, r, sc.dispatcher, time.Now, func(command string, err error) {
				a.logger.Warn("command failed", "command", command, "error", err)
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Error("feed stopped", "error", err)
			}

			// let pending holds resolve before the final step
			if ctx.Err() == nil {
				select {
				case <-ctx.Done():
				case <-time.After(config.GetGestureConfig().HoldDuration):
				}
			}
			cancel()
			return <-runErr
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "-", "Command feed file, - for stdin")
	return cmd
}

// startMonitor reports scene status while serving. Reports go to the status
// file and, when InfluxDB is enabled, to the performance bucket.
func (a *app) startMonitor(sc *scene) (*monitor.Service, error) {
	mc := config.GetMonitorConfig()
	if mc.StatusFile != "" {
		if err := os.MkdirAll(filepath.Dir(mc.StatusFile), 0755); err != nil {
			return nil, err
		}
	}
	mon := monitor.NewService(monitor.Dependencies{
		Session:    sc.session,
		Worker:     sc.worker,
		LogManager: a.logs,
		Influx:     sc.recording.influx,
		StatusFile: mc.StatusFile,
		Interval:   mc.Interval,
	})
	if err := mon.Start(); err != nil {
		return nil, err
	}
	return mon, nil
}
