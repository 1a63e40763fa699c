package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/WALTAHHH/Always-Scheming-Terminal-sub000/internal/app"
	"github.com/WALTAHHH/Always-Scheming-Terminal-sub000/internal/domain"
)

var ingestSourceID string

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Fetch, store and tag items from every active source (or one with --source)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.Application) error {
			var results []domain.IngestResult
			if ingestSourceID != "" {
				result, err := a.Coordinator().IngestSource(ctx, ingestSourceID)
				if err != nil {
					return err
				}
				results = append(results, result)
			} else {
				all, err := a.Coordinator().IngestAll(ctx)
				if err != nil {
					return err
				}
				results = all
			}
			printResults(cmd.OutOrStdout(), results)
			return nil
		})
	},
}

func printResults(w io.Writer, results []domain.IngestResult) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SOURCE\tFETCHED\tINSERTED\tSTATUS\tDURATION")
	for _, r := range results {
		status := "ok"
		if !r.Success {
			status = r.ErrorText()
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%s\n", r.SourceName, r.Fetched, r.Inserted, status, r.Duration.Round(1e6))
	}
	_ = tw.Flush()
}

func init() {
	ingestCmd.Flags().StringVar(&ingestSourceID, "source", "", "ingest only the source with this id")
	rootCmd.AddCommand(ingestCmd)
}
