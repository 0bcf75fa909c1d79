package main

import (
	"fmt"
	"os"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/spf13/cobra"

	"feature-store-service/internal/core/services"
)

func newMaterializeCmd() *cobra.Command {
	var startStr, endStr string

	cmd := &cobra.Command{
		Use:   "materialize [view...]",
		Short: "Load a feature window from the offline store into the online store",
		Long: `Materializes the window [start, end) for the named feature views, or
for every online view of the project when no views are given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := parseTime(startStr)
			if err != nil {
				return err
			}
			end, err := parseTime(endStr)
			if err != nil {
				return err
			}

			p, err := newPlatform(cmd.Context())
			if err != nil {
				return err
			}
			defer p.Close()
			if err := p.connectOnline(cmd.Context()); err != nil {
				return err
			}

			results, err := runWithBar(func(progress services.Progress) ([]services.MaterializeResult, error) {
				return p.materialize.Materialize(cmd.Context(), flagProject, args, start, end, progress)
			})
			if err != nil {
				return err
			}

			printMaterializeResults(results)
			return nil
		},
	}

	cmd.Flags().StringVar(&startStr, "start", "", "window start, RFC3339 (required)")
	cmd.Flags().StringVar(&endStr, "end", "", "window end, RFC3339 (required)")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")

	return cmd
}

func newMaterializeIncrementalCmd() *cobra.Command {
	var endStr string

	cmd := &cobra.Command{
		Use:   "materialize-incremental [view...]",
		Short: "Materialize each view from where its last run stopped",
		RunE: func(cmd *cobra.Command, args []string) error {
			end := time.Now()
			if endStr != "" {
				parsed, err := parseTime(endStr)
				if err != nil {
					return err
				}
				end = parsed
			}

			p, err := newPlatform(cmd.Context())
			if err != nil {
				return err
			}
			defer p.Close()
			if err := p.connectOnline(cmd.Context()); err != nil {
				return err
			}

			results, err := runWithBar(func(progress services.Progress) ([]services.MaterializeResult, error) {
				return p.materialize.MaterializeIncremental(cmd.Context(), flagProject, args, end, progress)
			})
			if err != nil {
				return err
			}

			printMaterializeResults(results)
			return nil
		},
	}

	cmd.Flags().StringVar(&endStr, "end", "", "window end, RFC3339 (default now)")

	return cmd
}

// runWithBar drives a materialization with a progress bar over the
// views, one tick per completed view.
func runWithBar(run func(services.Progress) ([]services.MaterializeResult, error)) ([]services.MaterializeResult, error) {
	var bar *pb.ProgressBar
	progress := func(view string, done, total int) {
		if bar == nil {
			bar = pb.New(total)
			bar.SetWriter(os.Stderr)
			bar.Start()
		}
		bar.SetCurrent(int64(done))
	}

	results, err := run(progress)
	if bar != nil {
		bar.Finish()
	}
	return results, err
}

func printMaterializeResults(results []services.MaterializeResult) {
	for _, r := range results {
		fmt.Printf("%s: %d rows written covering [%s, %s)\n",
			r.View, r.RowsWritten, r.Start.Format(time.RFC3339), r.End.Format(time.RFC3339))
	}
	if len(results) == 0 {
		fmt.Println("nothing to materialize")
	}
}
