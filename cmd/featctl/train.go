package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"feature-store-service/internal/core/domain"
	"feature-store-service/internal/core/services"
)

func newTrainCmd() *cobra.Command {
	var (
		model        string
		features     []string
		service      string
		label        string
		rowsFile     string
		entityQuery  string
		tsColumn     string
		runName      string
		epochs       int
		learningRate float64
		l2           float64
		testFraction float64
		seed         int64
		threshold    float64
	)

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a model on point-in-time features and register it",
		Long: `Builds a point-in-time dataset, fits a logistic regression model on
it and registers the result as a new version of --model. The label is a
passthrough column of the entity rows.`,
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

			result, err := p.training.Train(cmd.Context(), services.TrainRequest{
				Project:         flagProject,
				ModelName:       model,
				FeatureRefs:     features,
				ServiceName:     service,
				LabelColumn:     label,
				EntityRows:      rows,
				EntityQuery:     entityQuery,
				TimestampColumn: tsColumn,
				RunName:         runName,
				Epochs:          epochs,
				LearningRate:    learningRate,
				L2:              l2,
				TestFraction:    testFraction,
				Seed:            seed,
				Threshold:       threshold,
			})
			if err != nil {
				return err
			}

			version := result.Version
			fmt.Printf("registered %s version %d (%d rows: %d train, %d test)\n",
				result.Model.Name, version.Version, result.DatasetRows, result.TrainRows, result.TestRows)

			names := make([]string, 0, len(version.Metrics))
			for name := range version.Metrics {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Printf("  %-12s %.4f\n", name, version.Metrics[name])
			}

			if result.RunID != "" {
				fmt.Printf("tracking run: %s\n", result.RunID)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&model, "model", "", "registered model name (required)")
	cmd.Flags().StringSliceVar(&features, "features", nil, `feature references, e.g. "stats:amount_sum"`)
	cmd.Flags().StringVar(&service, "service", "", "feature service name (alternative to --features)")
	cmd.Flags().StringVar(&label, "label", "", "label column of the entity rows (required)")
	cmd.Flags().StringVar(&rowsFile, "rows-file", "", "JSON file with entity rows")
	cmd.Flags().StringVar(&entityQuery, "entity-query", "", "SQL query producing entity rows")
	cmd.Flags().StringVar(&tsColumn, "timestamp-column", "", "event timestamp column of the entity query")
	cmd.Flags().StringVar(&runName, "run-name", "", "tracking run name")
	cmd.Flags().IntVar(&epochs, "epochs", 0, "training epochs (default 50)")
	cmd.Flags().Float64Var(&learningRate, "learning-rate", 0, "gradient step size (default 0.1)")
	cmd.Flags().Float64Var(&l2, "l2", 0, "L2 regularization strength")
	cmd.Flags().Float64Var(&testFraction, "test-fraction", 0, "holdout fraction (default 0.2)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed for the train/test split")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "decision threshold (default 0.5)")
	_ = cmd.MarkFlagRequired("model")
	_ = cmd.MarkFlagRequired("label")

	return cmd
}
