package cmd

import (
	"github.com/spf13/cobra"

	"github.com/sarchlab/bootchain/platform"
)

func loadPlatform(cmd *cobra.Command) (*platform.Config, error) {
	envFiles, _ := cmd.Flags().GetStringSlice("env")
	if err := platform.LoadEnv(envFiles...); err != nil {
		return nil, err
	}

	name, _ := cmd.Flags().GetString("platform")

	c, err := platform.Resolve(name)
	if err != nil {
		return nil, err
	}

	if err := c.ApplyEnv(); err != nil {
		return nil, err
	}

	return c, nil
}
