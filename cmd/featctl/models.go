package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	output "feature-store-service/internal/core/ports/output"
)

func newModelsCmd() *cobra.Command {
	var model string

	cmd := &cobra.Command{
		Use:   "models",
		Short: "List registered models, or the versions of one model",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := newPlatform(cmd.Context())
			if err != nil {
				return err
			}
			defer p.Close()

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			defer w.Flush()

			if model != "" {
				versions, err := p.models.ListVersions(cmd.Context(), flagProject, model)
				if err != nil {
					return err
				}
				fmt.Fprintln(w, "VERSION\tSTATUS\tFEATURES\tACCURACY\tCREATED")
				for _, v := range versions {
					accuracy := "-"
					if a, ok := v.Metrics["accuracy"]; ok {
						accuracy = fmt.Sprintf("%.4f", a)
					}
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
						v.Version, v.Status, strings.Join(v.FeatureRefs, ","), accuracy, v.CreatedAt.Format("2006-01-02 15:04"))
				}
				return nil
			}

			models, total, err := p.models.List(cmd.Context(), output.ModelFilter{Project: flagProject})
			if err != nil {
				return err
			}
			fmt.Fprintln(w, "NAME\tPROJECT\tDESCRIPTION\tCREATED")
			for _, m := range models {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", m.Name, m.Project, m.Description, m.CreatedAt.Format("2006-01-02 15:04"))
			}
			if total > len(models) {
				fmt.Fprintf(w, "(%d of %d)\n", len(models), total)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&model, "model", "", "show versions of this model instead")

	return cmd
}
