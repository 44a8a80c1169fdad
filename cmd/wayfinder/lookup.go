package main

import (
	"fmt"

	"github.com/campusar/wayfinder/internal/details"
	"github.com/campusar/wayfinder/pkg/core"
	"github.com/spf13/cobra"
)

func lookupCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <room>...",
		Short: "Print the detail panel a hold would open for each room",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			flow := details.NewFlow(store, a.openRoster(), nil, a.logger)

			out := cmd.OutOrStdout()
			for i, raw := range args {
				if i > 0 {
					fmt.Fprintln(out)
				}
				fmt.Fprintln(out, flow.Open(core.NewIdentity(raw)).String())
			}
			return nil
		},
	}
}
