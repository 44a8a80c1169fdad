package main

import (
	"fmt"
	"time"

	"github.com/campusar/wayfinder/internal/config"
	"github.com/campusar/wayfinder/internal/replay"
	"github.com/campusar/wayfinder/internal/session"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func replayCommand(a *app) *cobra.Command {
	var tail time.Duration

	cmd := &cobra.Command{
		Use:   "replay <script.yaml>",
		Short: "Replay a recorded tracker and touch script on a virtual clock",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			script, err := replay.LoadFile(args[0])
			if err != nil {
				return err
			}
			tag := script.Tag
			if tag == "" {
				tag = viper.GetString("sessionTag")
			}

			sc, err := a.openScene(cmd.Context(), tag, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer a.shutdown(sc)

			if tail == 0 {
				tail = config.GetGestureConfig().HoldDuration + script.Tick
			}

			opts := replay.Options{Start: a.startedAt, Tail: tail, Logger: a.logger}
			if t := sc.recording.telemetry; t != nil {
				opts.OnStep = func(res session.StepResult, took time.Duration) {
					t.Stepped(res.Frames, res.Pointers, took)
				}
			}

			res, err := replay.Run(cmd.Context(), script, sc.dispatcher, sc.session, opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "replayed %d commands (%d failed) over %s in %d steps\n",
				res.Dispatched, res.Failed, res.End.Sub(a.startedAt).Round(time.Millisecond), res.Steps)
			return nil
		},
	}

	cmd.Flags().DurationVar(&tail, "tail", 0, "How long to keep stepping after the last command (default: hold duration plus one tick)")
	return cmd
}
