package main

import (
	"errors"
	"fmt"

	"familytasks/internal/config"
	"familytasks/migrations"
	"familytasks/pkg/db"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the embedded schema migrations to Postgres",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Store.Driver != config.DriverPostgres {
			return errors.New("migrate needs store.driver=postgres")
		}
		pool, err := db.NewConnection(cfg.DB, log)
		if err != nil {
			return err
		}
		defer pool.Close()

		applied, err := db.ApplyMigrations(cmd.Context(), pool, migrations.FS, log)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, name := range applied {
			fmt.Fprintf(out, "✅ applied %s\n", name)
		}
		fmt.Fprintf(out, "%d migrations applied\n", len(applied))
		return nil
	},
}
