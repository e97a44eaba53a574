package resumestudy

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/prayag-purohit/LLM-Resume-EDA-and-Parsing/internal/config"
)

type statusCommandOptions struct {
	configPath string
}

func newStatusCommand(logger *zap.Logger) *cobra.Command {
	options := &statusCommandOptions{configPath: defaultConfigPath}

	command := &cobra.Command{
		Use:   statusCommandUse,
		Short: statusCommandShort,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatusCommand(cmd, logger, *options)
		},
	}

	command.Flags().StringVar(&options.configPath, configFlagName, defaultConfigPath, configFlagUsage)

	return command
}

func runStatusCommand(command *cobra.Command, logger *zap.Logger, options statusCommandOptions) error {
	rootConfiguration, configErr := loadRootConfiguration(options.configPath)
	if configErr != nil {
		return configErr
	}
	workflow, workflowErr := findEnabledWorkflow(rootConfiguration, extractionWorkflowName, extractionWorkflowType)
	if workflowErr != nil {
		return workflowErr
	}
	extractionConfiguration, mapErr := config.MapExtraction(workflow)
	if mapErr != nil {
		return mapErr
	}

	persistence, storeErr := buildStore(command, rootConfiguration, logger)
	if storeErr != nil {
		return storeErr
	}
	defer func() {
		if closeErr := persistence.Close(command.Context()); closeErr != nil {
			logger.Warn("closing store failed", zap.Error(closeErr))
		}
	}()

	keys, listErr := persistence.ListKeys(command.Context(), extractionConfiguration.Storage.Collection)
	if listErr != nil {
		return listErr
	}
	sort.Strings(keys)

	writer := command.OutOrStdout()
	for _, key := range keys {
		if _, writeErr := fmt.Fprintln(writer, key); writeErr != nil {
			return writeErr
		}
	}
	_, writeErr := fmt.Fprintf(writer, "%d processed files in %s\n", len(keys), extractionConfiguration.Storage.Collection)
	return writeErr
}
