// Command featctl drives the feature store from the terminal: apply a
// feature repository, build datasets, train and deploy models, and run
// the whole pipeline end to end.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"feature-store-service/internal/core/domain"
)

var (
	flagEnvFile string
	flagProject string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "featctl",
		Short: "Feature store control",
		Long: `featctl manages the feature store and its model pipeline.

Registry definitions live in a feature repository YAML file and are
applied with "featctl apply". From there, "dataset" builds point-in-time
training data, "train" fits and registers a model, "materialize" loads
the online store, "deploy" rolls a version out for serving and "run"
chains all of it into one pipeline.

Connection settings come from the environment (or an env file given
with --env-file), using the same variables as the server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flagEnvFile != "" {
				if err := godotenv.Load(flagEnvFile); err != nil {
					log.Warnf("load env file %s: %v", flagEnvFile, err)
				}
			} else {
				_ = godotenv.Load()
			}
			if flagProject == "" {
				flagProject = os.Getenv("REGISTRY_PROJECT")
			}
			if flagProject == "" {
				flagProject = domain.DefaultProject
			}
			initLogger()
		},
	}

	rootCmd.PersistentFlags().StringVar(&flagEnvFile, "env-file", "", "env file with connection settings")
	rootCmd.PersistentFlags().StringVarP(&flagProject, "project", "p", "", "project scope (default from REGISTRY_PROJECT)")

	rootCmd.AddCommand(
		newApplyCmd(),
		newDatasetCmd(),
		newTrainCmd(),
		newModelsCmd(),
		newMaterializeCmd(),
		newMaterializeIncrementalCmd(),
		newDeployCmd(),
		newPredictCmd(),
		newRunCmd(),
	)

	return rootCmd
}

func initLogger() {
	level, err := log.ParseLevel(os.Getenv("LOGGER_LEVEL"))
	if err != nil {
		level = log.WarnLevel
	}
	log.SetLevel(level)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
}
