package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"feature-store-service/internal/featurerepo"
)

func newApplyCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply a feature repository file to the registry",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := newPlatform(cmd.Context())
			if err != nil {
				return err
			}
			defer p.Close()

			summary, err := featurerepo.NewApplier(p.registry).ApplyFile(cmd.Context(), file, flagProject)
			if err != nil {
				return err
			}

			fmt.Printf("project %s: applied %d entities, %d data sources, %d feature views, %d feature services\n",
				summary.Project, summary.Entities, summary.Sources, summary.Views, summary.Services)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "feature_repo.yaml", "feature repository file")

	return cmd
}
