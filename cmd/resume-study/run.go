package resumestudy

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type runExtractionOptions struct {
	configPath    string
	modelOverride string
	input         string
	concurrency   int
	retries       int
	reruns        int
	threshold     float64
}

type runTreatmentOptions struct {
	configPath    string
	modelOverride string
	sector        string
	files         []string
}

func newRunCommand(logger *zap.Logger) *cobra.Command {
	command := &cobra.Command{
		Use:   runCommandUse,
		Short: runCommandShort,
	}
	command.AddCommand(newRunExtractionCommand(logger))
	command.AddCommand(newRunTreatmentCommand(logger))
	return command
}

func newRunExtractionCommand(logger *zap.Logger) *cobra.Command {
	options := &runExtractionOptions{configPath: defaultConfigPath, reruns: -1}

	command := &cobra.Command{
		Use:   runExtractionCommandUse,
		Short: runExtractionCommandShort,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtractionWorkflow(cmd, logger, *options)
		},
	}

	command.Flags().StringVar(&options.configPath, configFlagName, defaultConfigPath, configFlagUsage)
	command.Flags().StringVar(&options.modelOverride, modelFlagName, "", modelFlagUsage)
	command.Flags().StringVar(&options.input, inputFlagName, "", inputFlagUsage)
	command.Flags().IntVar(&options.concurrency, concurrencyFlagName, 0, concurrencyFlagUsage)
	command.Flags().IntVar(&options.retries, retriesFlagName, 0, retriesFlagUsage)
	command.Flags().IntVar(&options.reruns, rerunsFlagName, -1, rerunsFlagUsage)
	command.Flags().Float64Var(&options.threshold, thresholdFlagName, 0, thresholdFlagUsage)

	return command
}

func newRunTreatmentCommand(logger *zap.Logger) *cobra.Command {
	options := &runTreatmentOptions{configPath: defaultConfigPath}

	command := &cobra.Command{
		Use:   runTreatmentCommandUse,
		Short: runTreatmentCommandShort,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTreatmentWorkflow(cmd, logger, *options)
		},
	}

	command.Flags().StringVar(&options.configPath, configFlagName, defaultConfigPath, configFlagUsage)
	command.Flags().StringVar(&options.modelOverride, modelFlagName, "", modelFlagUsage)
	command.Flags().StringVar(&options.sector, sectorFlagName, "", sectorFlagUsage)
	command.Flags().StringSliceVar(&options.files, filesFlagName, nil, filesFlagUsage)
	_ = command.MarkFlagRequired(sectorFlagName)

	return command
}
