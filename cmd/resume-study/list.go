package resumestudy

import (
	"fmt"

	"github.com/spf13/cobra"
)

type listCommandOptions struct {
	includeDisabled bool
	configPath      string
}

func newListCommand() *cobra.Command {
	options := &listCommandOptions{configPath: defaultConfigPath}

	command := &cobra.Command{
		Use:   listCommandUse,
		Short: listCommandShort,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runListCommand(cmd, *options)
		},
	}

	command.Flags().BoolVar(&options.includeDisabled, allFlagName, false, allFlagUsage)
	command.Flags().StringVar(&options.configPath, configFlagName, defaultConfigPath, configFlagUsage)

	return command
}

func runListCommand(command *cobra.Command, options listCommandOptions) error {
	rootConfiguration, err := loadRootConfiguration(options.configPath)
	if err != nil {
		return err
	}

	for _, workflow := range rootConfiguration.Workflows {
		if !options.includeDisabled && !workflow.Enabled {
			continue
		}

		workflowStateLabel := enabledStateLabel
		if !workflow.Enabled {
			workflowStateLabel = disabledStateLabel
		}

		outputWriter := command.OutOrStdout()
		_, writeErr := fmt.Fprintf(outputWriter, "%s\t(%s, model=%s)\n", workflow.Name, workflowStateLabel, dashIfEmpty(workflow.Model))
		if writeErr != nil {
			return fmt.Errorf("write workflow listing: %w", writeErr)
		}
	}

	return nil
}

func dashIfEmpty(value string) string {
	if value == "" {
		return dashPlaceholder
	}
	return value
}
