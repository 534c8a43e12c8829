package cmd

import (
	"github.com/juju/loggo"
	"github.com/leafkit/leaf"
	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "leafrender",
	Short: "Drive the leaf template engine from the shell",
	Long: `leafrender tokenizes, renders, and inspects templates for the leaf
template engine: a lexer, AST cache, and render orchestrator for a
configurable-tag-indicator template language.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			leaf.SetLogLevel(loggo.TRACE)
		}
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to an EngineConfig YAML file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
