// Package cmd provides the command-line interface for bootchain.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "bootchain",
	Short: "Bootchain runs boot stage handoffs on a modelled machine.",
	Long: `Bootchain runs the handoff of a boot stage on a modelled machine: ` +
		`the stage publishes its image descriptors and the parameters of ` +
		`the next stage into a reserved region, flushes the region out of ` +
		`its data cache, and the next stage reads the region from DRAM.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("platform", "fvp",
		"Built-in platform name or platform YAML file.")
	rootCmd.PersistentFlags().StringSlice("env", nil,
		"Environment files overriding the memory map. "+
			"A .env file is used if present.")
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		atexit.Exit(1)
	}
}
