package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/WALTAHHH/Always-Scheming-Terminal-sub000/internal/app"
	"github.com/WALTAHHH/Always-Scheming-Terminal-sub000/internal/usecase"
)

var (
	storiesHours int
	storiesLimit int
	storiesTop   int
)

var storiesCmd = &cobra.Command{
	Use:   "stories",
	Short: "Print ranked story clusters",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.Application) error {
			ranked, err := a.Stories().Rank(ctx, usecase.StoriesQuery{
				Window: time.Duration(storiesHours) * time.Hour,
				Limit:  storiesLimit,
			})
			if err != nil {
				return err
			}
			if storiesTop > 0 && len(ranked) > storiesTop {
				ranked = ranked[:storiesTop]
			}
			printStories(cmd.OutOrStdout(), ranked)
			return nil
		})
	},
}

func printStories(w io.Writer, ranked []usecase.RankedStory) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SCORE\tTIER\tSIZE\tSOURCES\tTITLE")
	for _, s := range ranked {
		fmt.Fprintf(tw, "%.2f\t%s\t%d\t%d\t%s\n", s.Score, s.Tier, s.Cluster.Size(), len(s.Cluster.Sources), s.Cluster.Lead.Title)
	}
	_ = tw.Flush()
}

func init() {
	storiesCmd.Flags().IntVar(&storiesHours, "hours", 72, "look-back window in hours")
	storiesCmd.Flags().IntVar(&storiesLimit, "limit", 500, "maximum items loaded")
	storiesCmd.Flags().IntVar(&storiesTop, "top", 25, "maximum stories printed")
	rootCmd.AddCommand(storiesCmd)
}
