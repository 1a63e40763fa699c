package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/WALTAHHH/Always-Scheming-Terminal-sub000/internal/app"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.Application) error {
			if err := a.Migrate(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
			return nil
		})
	},
}

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Manage feed sources",
}

var sourcesSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Upsert the sources listed in the config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.Application) error {
			n, err := a.SyncSources(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "synced %d sources\n", n)
			return nil
		})
	},
}

func init() {
	sourcesCmd.AddCommand(sourcesSyncCmd)
	rootCmd.AddCommand(migrateCmd, sourcesCmd)
}
