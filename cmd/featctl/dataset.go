package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"feature-store-service/internal/core/domain"
	"feature-store-service/internal/core/services"
)

func newDatasetCmd() *cobra.Command {
	var (
		features    []string
		service     string
		rowsFile    string
		entityQuery string
		tsColumn    string
		outPath     string
	)

	cmd := &cobra.Command{
		Use:   "dataset",
		Short: "Build a point-in-time training dataset as CSV",
		Long: `Builds a point-in-time correct dataset joining the requested features
onto entity rows, each row as of its own event timestamp.

Entity rows come from a JSON file (--rows-file) or from a SQL query
against the offline store (--entity-query). Features are "view:feature"
references or a feature service name.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := newPlatform(cmd.Context())
			if err != nil {
				return err
			}
			defer p.Close()

			var rows []domain.EntityRow
			if rowsFile != "" {
				if rows, err = readEntityRows(rowsFile); err != nil {
					return err
				}
			}

			dataset, err := p.historical.GetHistoricalFeatures(cmd.Context(), services.HistoricalRequest{
				Project:         flagProject,
				FeatureRefs:     features,
				ServiceName:     service,
				EntityRows:      rows,
				EntityQuery:     entityQuery,
				TimestampColumn: tsColumn,
			})
			if err != nil {
				return err
			}

			out := os.Stdout
			if outPath != "" && outPath != "-" {
				f, err := os.Create(outPath)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}
			if err := dataset.WriteCSV(out); err != nil {
				return err
			}

			fmt.Fprintf(os.Stderr, "dataset: %d rows, %d columns\n", len(dataset.Rows), len(dataset.Columns))
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&features, "features", nil, `feature references, e.g. "stats:amount_sum"`)
	cmd.Flags().StringVar(&service, "service", "", "feature service name (alternative to --features)")
	cmd.Flags().StringVar(&rowsFile, "rows-file", "", "JSON file with entity rows")
	cmd.Flags().StringVar(&entityQuery, "entity-query", "", "SQL query producing entity rows")
	cmd.Flags().StringVar(&tsColumn, "timestamp-column", "", "event timestamp column of the entity query")
	cmd.Flags().StringVarP(&outPath, "output", "o", "-", "output CSV path, - for stdout")

	return cmd
}
