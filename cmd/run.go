package cmd

import (
	"context"
	"log"

	"docpipe/core/builder"
	"docpipe/core/config"
	"docpipe/core/logger"
	"docpipe/core/store"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	runSource string
	runTarget string
)

// runCmd executes one incremental copy build between two configured
// stores.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run an incremental copy build",
	Long: `Copies documents from the configured source store to the target
store, selecting only documents newer than the target's last-updated
high-water mark.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(".")
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}

		logg, err := logger.New(&cfg.Log)
		if err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
		defer logg.Sync()
		zap.ReplaceGlobals(logg)

		sourceName := cfg.Builder.Source
		if runSource != "" {
			sourceName = runSource
		}
		targetName := cfg.Builder.Target
		if runTarget != "" {
			targetName = runTarget
		}

		source, err := storeFromConfig(cfg, sourceName)
		if err != nil {
			return err
		}
		target, err := storeFromConfig(cfg, targetName)
		if err != nil {
			return err
		}

		b := builder.NewCopy(source, target, nil, cfg.Builder.ChunkSize, logg)
		runner := &builder.Runner{Workers: cfg.Builder.Workers, Log: logg}
		return runner.Run(context.Background(), b)
	},
}

func storeFromConfig(cfg *config.Config, name string) (store.Store, error) {
	sc, err := cfg.Store(name)
	if err != nil {
		return nil, err
	}
	return store.FromConfig(sc)
}

func init() {
	runCmd.Flags().StringVar(&runSource, "source", "", "source store name (overrides config)")
	runCmd.Flags().StringVar(&runTarget, "target", "", "target store name (overrides config)")
	RootCmd.AddCommand(runCmd)
}
