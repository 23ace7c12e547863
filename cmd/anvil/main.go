package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	root := &cobra.Command{
		Use:     "anvil",
		Short:   "A small assembler with a span-based branch optimizer",
		Version: version + " (" + commit + ")",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			processGlobalFlags()
		},
	}

	root.PersistentFlags().Bool("no-color", false, "Disable colored output")
	root.PersistentFlags().String("log-level", "warn", "Log level (trace, debug, info, warn, error)")
	viper.BindPFlag("no-color", root.PersistentFlags().Lookup("no-color"))
	viper.BindPFlag("log-level", root.PersistentFlags().Lookup("log-level"))
	viper.SetEnvPrefix("anvil")
	viper.AutomaticEnv()

	root.AddCommand(buildCommand())
	root.AddCommand(dumpCommand())

	if err := root.Execute(); err != nil {
		fatal(err)
	}
}
