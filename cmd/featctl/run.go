package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"feature-store-service/internal/core/domain"
	"feature-store-service/internal/core/services"
	"feature-store-service/internal/featurerepo"
)

func newRunCmd() *cobra.Command {
	var (
		repoFile     string
		model        string
		features     []string
		service      string
		label        string
		rowsFile     string
		entityQuery  string
		tsColumn     string
		epochs       int
		learningRate float64
		l2           float64
		testFraction float64
		seed         int64
		threshold    float64
		endpoint     string
		namespace    string
		runtimeImage string
		skipDeploy   bool
		testRowsFile string
		waitTimeout  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline end to end: train, materialize, deploy, smoke test",
		Long: `Runs the whole flow in one go: checks the registry, trains and
registers a model version, materializes the online store, deploys the
version and scores a few test rows against the new endpoint. With
--repo the feature repository file is applied first.

Steps that cannot run are skipped: deployment when --skip-deploy is set
or serving is not configured, the smoke test without --test-rows.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var rows []domain.EntityRow
			var err error
			if rowsFile != "" {
				if rows, err = readEntityRows(rowsFile); err != nil {
					return err
				}
			}

			var testRows []map[string]interface{}
			if testRowsFile != "" {
				if testRows, err = readKeyRows(testRowsFile); err != nil {
					return err
				}
			}

			p, err := newPlatform(cmd.Context())
			if err != nil {
				return err
			}
			defer p.Close()
			if err := p.connectOnline(cmd.Context()); err != nil {
				return err
			}

			if repoFile != "" {
				summary, err := featurerepo.NewApplier(p.registry).ApplyFile(cmd.Context(), repoFile, flagProject)
				if err != nil {
					return fmt.Errorf("apply %s: %w", repoFile, err)
				}
				fmt.Printf("[%-7s] %-14s %d entities, %d data sources, %d feature views, %d feature services\n",
					"OK", "apply", summary.Entities, summary.Sources, summary.Views, summary.Services)
			}

			progress := func(step services.PipelineStep) {
				fmt.Printf("[%-7s] %-14s %s (%s)\n",
					step.Status, step.Name, step.Detail, step.Duration.Round(time.Millisecond))
			}

			result, err := p.pipeline.Run(cmd.Context(), services.PipelineRequest{
				Project:         flagProject,
				ModelName:       model,
				FeatureRefs:     features,
				ServiceName:     service,
				LabelColumn:     label,
				EntityRows:      rows,
				EntityQuery:     entityQuery,
				TimestampColumn: tsColumn,
				Epochs:          epochs,
				LearningRate:    learningRate,
				L2:              l2,
				TestFraction:    testFraction,
				Seed:            seed,
				Threshold:       threshold,
				EndpointName:    endpoint,
				Namespace:       namespace,
				RuntimeImage:    runtimeImage,
				SkipDeploy:      skipDeploy,
				WaitTimeout:     waitTimeout,
				PollInterval:    p.cfg.Pipeline.PollInterval,
				TestRows:        testRows,
			}, progress)
			if err != nil {
				return err
			}

			fmt.Println()
			if result.Train != nil {
				fmt.Printf("model: %s version %d", result.Train.Model.Name, result.Train.Version.Version)
				if accuracy, ok := result.Train.Version.Metrics["accuracy"]; ok {
					fmt.Printf(" (accuracy %.4f)", accuracy)
				}
				fmt.Println()
			}
			if result.Endpoint != nil {
				fmt.Printf("endpoint: %s (%s)", result.Endpoint.Name, result.Endpoint.State)
				if result.Endpoint.URL != "" {
					fmt.Printf(" at %s", result.Endpoint.URL)
				}
				fmt.Println()
			}
			if result.Predictions != nil {
				fmt.Printf("smoke test: %d rows scored\n", len(result.Predictions.Predictions))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&repoFile, "repo", "", "feature repository file to apply before the run")
	cmd.Flags().StringVar(&model, "model", "", "registered model name (required)")
	cmd.Flags().StringSliceVar(&features, "features", nil, `feature references, e.g. "stats:amount_sum"`)
	cmd.Flags().StringVar(&service, "service", "", "feature service name (alternative to --features)")
	cmd.Flags().StringVar(&label, "label", "", "label column of the entity rows (required)")
	cmd.Flags().StringVar(&rowsFile, "rows-file", "", "JSON file with entity rows")
	cmd.Flags().StringVar(&entityQuery, "entity-query", "", "SQL query producing entity rows")
	cmd.Flags().StringVar(&tsColumn, "timestamp-column", "", "event timestamp column of the entity query")
	cmd.Flags().IntVar(&epochs, "epochs", 0, "training epochs (default 50)")
	cmd.Flags().Float64Var(&learningRate, "learning-rate", 0, "gradient step size (default 0.1)")
	cmd.Flags().Float64Var(&l2, "l2", 0, "L2 regularization strength")
	cmd.Flags().Float64Var(&testFraction, "test-fraction", 0, "holdout fraction (default 0.2)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed for the train/test split")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "decision threshold (default 0.5)")
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "endpoint name (default <model>-v<version>)")
	cmd.Flags().StringVar(&namespace, "namespace", "", "cluster namespace")
	cmd.Flags().StringVar(&runtimeImage, "runtime-image", "", "serving runtime image")
	cmd.Flags().BoolVar(&skipDeploy, "skip-deploy", false, "stop after materialization")
	cmd.Flags().StringVar(&testRowsFile, "test-rows", "", "JSON file with join-key rows for the smoke test")
	cmd.Flags().DurationVar(&waitTimeout, "timeout", 5*time.Minute, "how long to wait for the endpoint")
	_ = cmd.MarkFlagRequired("model")
	_ = cmd.MarkFlagRequired("label")

	return cmd
}
