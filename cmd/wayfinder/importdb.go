package main

import (
	"fmt"

	"github.com/campusar/wayfinder/internal/config"
	"github.com/campusar/wayfinder/internal/database"
	"github.com/campusar/wayfinder/internal/logging"
	"github.com/campusar/wayfinder/internal/roomdb"
	"github.com/spf13/cobra"
)

func importDBCommand(a *app) *cobra.Command {
	var sqlitePath string

	cmd := &cobra.Command{
		Use:   "importdb [rooms.csv]",
		Short: "Import the room CSV into the database (postgres, or sqlite when unreachable)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dc := config.GetDataConfig()
			path := dc.RoomsCSV
			if len(args) == 1 {
				path = args[0]
			}
			table, err := roomdb.LoadFile(path, a.logger)
			if err != nil {
				return err
			}

			mgr := database.NewManager(logging.NewZerolog(a.logOut, a.logLevel, "database"), sqlitePath)
			if err := mgr.Connect(config.GetDBConfig()); err != nil {
				return err
			}
			defer mgr.Close()
			if err := mgr.Setup(); err != nil {
				return err
			}

			store, err := roomdb.NewDBStore(mgr.DB, dc.CacheTTL, a.logger)
			if err != nil {
				return err
			}
			n, err := store.Import(cmd.Context(), table.Records())
			if err != nil {
				return err
			}
			total, err := store.Count()
			if err != nil {
				return err
			}

			target := "postgres"
			if mgr.ShouldSaveLocal {
				target = "sqlite " + sqlitePath
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d rooms into %s (%d total)\n", n, target, total)
			return nil
		},
	}

	cmd.Flags().StringVar(&sqlitePath, "sqlite", "./data/rooms.db", "SQLite file used when postgres is unreachable")
	return cmd
}
