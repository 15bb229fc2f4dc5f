package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/RubenCid35/rossete/internal/config"
	"github.com/RubenCid35/rossete/internal/logging"
	"github.com/RubenCid35/rossete/internal/pipeline"
)

var (
	flagMappings   string
	flagOutput     string
	flagConfigPath string
	flagDebug      bool
	flagClear      bool
)

var rootCmd = &cobra.Command{
	Use:   "rossete",
	Short: "Materialize RDF triples from RML mappings and tabular/semi-structured data",
	Args:  cobra.NoArgs,
	RunE:  runRoot,
}

func init() {
	rootCmd.Flags().StringVar(&flagMappings, "mappings", "", "mapping file or directory of *.ttl files (required)")
	rootCmd.Flags().StringVar(&flagOutput, "output", "", "output file path; extension chooses format (.nt or .ttl) (required)")
	rootCmd.Flags().StringVar(&flagConfigPath, "config", "", "optional JSON configuration file")
	rootCmd.Flags().BoolVar(&flagDebug, "debug", false, "verbose diagnostics")
	rootCmd.Flags().BoolVar(&flagClear, "clear", false, "remove the working directory on clean shutdown")
	_ = rootCmd.MarkFlagRequired("mappings")
	_ = rootCmd.MarkFlagRequired("output")
}

func runRoot(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(flagOutput, flagConfigPath)
	if err != nil {
		return err
	}
	if cfg.OutputFormat == config.UnknownFormat {
		return fmt.Errorf("rossete: --output %q has an unrecognized extension, use .nt or .ttl", flagOutput)
	}
	cfg.MappingsPath = flagMappings
	cfg.Debug = flagDebug
	cfg.Clear = flagClear

	logger, err := logging.New(os.Stderr, "info", cfg.Debug)
	if err != nil {
		return err
	}
	if cfg.Debug {
		logger.Info(cfg.String())
	}

	result, err := pipeline.Run(cfg, logging.NewWarnOnce(logger))
	if err != nil {
		if len(result.FailedMaps) > 0 {
			logger.Error("materialization failed", "maps", result.FailedMaps)
		}
		return err
	}

	logger.Info("materialization complete", "triples", result.TriplesCount, "output", cfg.OutputPath)
	return nil
}
