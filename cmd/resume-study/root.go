// Package resumestudy assembles the CLI: configuration resolution, command
// surface, and the wiring of workflows to their collaborators.
package resumestudy

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewRootCommand builds the command tree. The logger is injected so tests
// can observe or silence command output.
func NewRootCommand(logger *zap.Logger) *cobra.Command {
	command := &cobra.Command{
		Use:           rootCommandUse,
		Short:         rootCommandShort,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	command.AddCommand(newRunCommand(logger))
	command.AddCommand(newListCommand())
	command.AddCommand(newStatusCommand(logger))
	return command
}

// Execute runs the CLI and returns the command error, if any.
func Execute(logger *zap.Logger) error {
	return NewRootCommand(logger).Execute()
}
