// Package cli implements the missioncore command line.
package cli

import (
	"github.com/spf13/cobra"
)

// Execute runs the root command with the process arguments.
func Execute(version string) error {
	return NewRootCommand(version).Execute()
}

// NewRootCommand assembles the command tree.
func NewRootCommand(version string) *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:     "missioncore",
		Version: version,
		Short:   "Scientists, missions and planets API",
		Long: `missioncore serves scientists, the planets they visit and the missions
linking them over a JSON HTTP API, backed by sqlite, postgres or memory.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
	cmd.SetVersionTemplate("{{.Version}}\n")
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")

	cmd.AddCommand(newServeCommand(&configPath))
	cmd.AddCommand(newSeedCommand(&configPath))
	return cmd
}
