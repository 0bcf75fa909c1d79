package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"feature-store-service/internal/core/services"
)

func newPredictCmd() *cobra.Command {
	var (
		model    string
		endpoint string
		version  int
		rowsFile string
	)

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Score entity rows with a trained model",
		Long: `Assembles feature vectors from the online store for each entity row
and scores them. With --endpoint the rows go to the deployed runtime,
with --model the artifact is loaded and scored locally.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if model == "" && endpoint == "" {
				return fmt.Errorf("either --model or --endpoint is required")
			}

			rows, err := readKeyRows(rowsFile)
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

			var result *services.PredictResult
			if endpoint != "" {
				result, err = p.prediction.PredictRemote(cmd.Context(), flagProject, endpoint, rows)
			} else {
				result, err = p.prediction.PredictLocal(cmd.Context(), flagProject, model, version, rows)
			}
			if err != nil {
				return err
			}

			fmt.Printf("model %s version %d, features: %s\n",
				result.ModelName, result.Version, strings.Join(result.Features, ", "))

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			defer w.Flush()
			fmt.Fprintln(w, "ROW\tLABEL\tPROBABILITY")
			for i, pred := range result.Predictions {
				fmt.Fprintf(w, "%d\t%d\t%.4f\n", i, pred.Label, pred.Probability)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&model, "model", "", "score locally with this registered model")
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "score against this deployed endpoint")
	cmd.Flags().IntVar(&version, "version", 0, "model version with --model, 0 for latest ready")
	cmd.Flags().StringVar(&rowsFile, "rows-file", "", "JSON file with join-key rows (required)")
	_ = cmd.MarkFlagRequired("rows-file")

	return cmd
}
