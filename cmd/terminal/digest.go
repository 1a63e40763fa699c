package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/WALTAHHH/Always-Scheming-Terminal-sub000/internal/app"
	"github.com/WALTAHHH/Always-Scheming-Terminal-sub000/internal/usecase"
)

var digestHours int

var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Send the top stories to Telegram",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.Application) error {
			sent, err := a.Digest().Publish(ctx, usecase.StoriesQuery{Window: time.Duration(digestHours) * time.Hour})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sent %d stories\n", sent)
			return nil
		})
	},
}

func init() {
	digestCmd.Flags().IntVar(&digestHours, "hours", 24, "look-back window in hours")
	rootCmd.AddCommand(digestCmd)
}
