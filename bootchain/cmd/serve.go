package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/bootchain/boot"
	"github.com/sarchlab/bootchain/monitoring"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the handoff and serve it for inspection.",
	Long: "`serve` runs one stage handoff and exposes the descriptors, the " +
		"parameters, and the reserved region through an HTTP API until " +
		"interrupted.",
	Run: func(cmd *cobra.Command, _ []string) {
		c, err := loadPlatform(cmd)
		if err != nil {
			atexit.Fatalf("Error loading platform: %v", err)
		}

		port, _ := cmd.Flags().GetInt("port")
		monitor := monitoring.NewMonitor().WithPortNumber(port)

		stage, res := runStage(cmd, c, boot.MakeBuilder().WithHook(monitor))
		monitor.RegisterStage(stage)
		monitor.RegisterResult(res)

		url := monitor.StartServer()

		if open, _ := cmd.Flags().GetBool("open"); open {
			if err := browser.OpenURL(url + "/api/params"); err != nil {
				fmt.Fprintf(os.Stderr, "Cannot open browser: %v\n", err)
			}
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		<-ctx.Done()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	addRunFlags(serveCmd)
	serveCmd.Flags().Int("port", 0, "Port of the server, random when unset.")
	serveCmd.Flags().Bool("open", false, "Open the server in a browser.")
}
