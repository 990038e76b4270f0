package cmd

import (
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/bootchain/boot"
	"github.com/sarchlab/bootchain/datarecording"
	"github.com/sarchlab/bootchain/idgen"
	"github.com/sarchlab/bootchain/platform"
	"github.com/sarchlab/bootchain/tracing"
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Run the handoff and print what the next stage reads.",
	Long: "`publish` runs one stage handoff on the modelled machine, then " +
		"prints the images the next stage executes, as read from DRAM.",
	Run: func(cmd *cobra.Command, _ []string) {
		c, err := loadPlatform(cmd)
		if err != nil {
			atexit.Fatalf("Error loading platform: %v", err)
		}

		stage, res := runStage(cmd, c, boot.MakeBuilder())

		printHandoff(cmd.OutOrStdout(), res.Next)

		if dump, _ := cmd.Flags().GetBool("dump"); dump {
			dumpRegion(cmd.OutOrStdout(), stage)
		}
	},
}

func init() {
	rootCmd.AddCommand(publishCmd)
	addRunFlags(publishCmd)
	publishCmd.Flags().Bool("dump", false,
		"Dump the reserved region as it is in DRAM.")
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().String("record", "",
		"Record the handoff into the given SQLite database.")
	cmd.Flags().Bool("quiet", false, "Do not log the handoff steps.")
	cmd.Flags().Bool("verbose", false, "Also log cache line write backs.")
}

// runStage builds and runs the stage with the hooks the flags ask for. Any
// failure is fatal.
func runStage(
	cmd *cobra.Command,
	c *platform.Config,
	builder boot.Builder,
) (*boot.Stage, *boot.Result) {
	if quiet, _ := cmd.Flags().GetBool("quiet"); !quiet {
		logger := tracing.NewHandoffLogger(log.New(os.Stderr, "", 0))
		logger.Verbose, _ = cmd.Flags().GetBool("verbose")
		builder = builder.WithHook(logger)
	}

	if name, _ := cmd.Flags().GetString("record"); name != "" {
		idgen.UseUnique()

		recorder := tracing.NewRecorder(datarecording.New(name))
		builder = builder.WithHook(recorder)

		fmt.Fprintf(os.Stderr, "Recording run %s\n", recorder.RunID())
	}

	stage, err := builder.WithPlatform(c).Build("BL2")
	if err != nil {
		atexit.Fatalf("Platform %s cannot boot: %v", c.Name, err)
	}

	res, err := stage.Run()
	if err != nil {
		atexit.Fatalf("Handoff failed: %v", err)
	}

	return stage, res
}

func printHandoff(w io.Writer, h *boot.Handoff) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "IMAGE\tDESCRIPTOR\tPC\tSPSR\tARG0\tARG1\tARG2\tARG3")

	for _, e := range h.Params.Entries {
		args := e.EPInfo.Args
		fmt.Fprintf(tw, "%s\t0x%x\t0x%x\t0x%x\t0x%x\t0x%x\t0x%x\t0x%x\n",
			e.ImageID, e.DescAddr, e.EPInfo.PC, e.EPInfo.SPSR,
			args[0], args[1], args[2], args[3])
	}

	tw.Flush()
}

func dumpRegion(w io.Writer, stage *boot.Stage) {
	layout := stage.Handoff().Region().Layout()

	data, err := stage.Storage().Read(layout.Base, layout.Required())
	if err != nil {
		atexit.Fatalf("Error reading region: %v", err)
	}

	fmt.Fprintf(w, "\nReserved region at 0x%x:\n%s", layout.Base,
		hex.Dump(data))
}
