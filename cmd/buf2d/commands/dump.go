package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/malei-pku/exposure-render/internal/buffer"
	"github.com/malei-pku/exposure-render/internal/render"
)

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print a buffer as JSON",
	Long: `Print a buffer's name, memory space, shape, dirty flag and rows as JSON.
By default the buffer holds a ramp of the configured element type; with
--seeds it is a seed buffer. Output is syntax highlighted unless color is
disabled.`,
	RunE: runDump,
}

func init() {
	addBufferFlags(dumpCmd)
	addSeedFlags(dumpCmd)
	dumpCmd.Flags().Bool("seeds", false, "dump a seed buffer instead of a ramp")
	rootCmd.AddCommand(dumpCmd)
}

func runDump(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if useSeeds, _ := cmd.Flags().GetBool("seeds"); useSeeds {
		_, seeds, err := newSeedBuffer(cmd)
		if err != nil {
			return err
		}
		defer seeds.Close()
		return writeDump(out, seeds.Buffer2D)
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	return forElement(cfg.Buffer.Element,
		func() error { return dumpRamp[uint32](out, s) },
		func() error { return dumpRamp[int32](out, s) },
		func() error { return dumpRamp[float32](out, s) },
		func() error { return dumpRamp[float64](out, s) },
	)
}

func dumpRamp[T render.Element](out io.Writer, s *session) error {
	b := buffer.New[T](s.space, "ramp")
	defer b.Close()
	if err := b.SetSlice(s.res, rampValues[T](s.res.Elements())); err != nil {
		return err
	}
	return writeDump(out, b)
}

func writeDump[T render.Element](out io.Writer, b *buffer.Buffer2D[T]) error {
	text, err := render.DumpJSON(b, renderOptions())
	if err != nil {
		return err
	}
	fmt.Fprintln(out, text)
	return nil
}
