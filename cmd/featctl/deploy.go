package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"feature-store-service/internal/core/services"
)

func newDeployCmd() *cobra.Command {
	var (
		model        string
		version      int
		endpoint     string
		namespace    string
		runtimeImage string
		wait         bool
		waitTimeout  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Deploy a model version as an inference endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := newPlatform(cmd.Context())
			if err != nil {
				return err
			}
			defer p.Close()

			result, err := p.deployment.Deploy(cmd.Context(), services.DeployRequest{
				Project:      flagProject,
				Name:         endpoint,
				ModelName:    model,
				Version:      version,
				Namespace:    namespace,
				RuntimeImage: runtimeImage,
			})
			if err != nil {
				return err
			}

			ep := result.Endpoint
			fmt.Printf("endpoint %s: %s (%s)\n", ep.Name, result.Status, result.Message)

			if wait {
				ready, err := p.deployment.WaitReady(cmd.Context(), ep.Project, ep.Name, waitTimeout, p.cfg.Pipeline.PollInterval)
				if err != nil {
					return err
				}
				ep = ready
				fmt.Printf("endpoint %s: %s\n", ep.Name, ep.State)
			}

			if ep.URL != "" {
				fmt.Printf("serving at %s\n", ep.URL)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&model, "model", "", "registered model name (required)")
	cmd.Flags().IntVar(&version, "version", 0, "model version, 0 for latest ready")
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "endpoint name (default <model>-v<version>)")
	cmd.Flags().StringVar(&namespace, "namespace", "", "cluster namespace")
	cmd.Flags().StringVar(&runtimeImage, "runtime-image", "", "serving runtime image")
	cmd.Flags().BoolVar(&wait, "wait", false, "wait until the endpoint is ready")
	cmd.Flags().DurationVar(&waitTimeout, "timeout", 5*time.Minute, "how long to wait with --wait")
	_ = cmd.MarkFlagRequired("model")

	return cmd
}
