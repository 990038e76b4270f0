package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that a platform can boot.",
	Long: "`check` validates the platform, most importantly that the " +
		"reserved region holds the descriptor table and the parameters.",
	Run: func(cmd *cobra.Command, _ []string) {
		c, err := loadPlatform(cmd)
		if err != nil {
			atexit.Fatalf("Error loading platform: %v", err)
		}

		if err := c.Validate(); err != nil {
			atexit.Fatalf("Platform %s cannot boot: %v", c.Name, err)
		}

		layout := c.Layout()
		fmt.Fprintf(cmd.OutOrStdout(),
			"Platform %s: %d descriptors use 0x%x of 0x%x bytes at 0x%x\n",
			c.Name, layout.NumDescriptors, layout.Required(), layout.Size,
			layout.Base)
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
