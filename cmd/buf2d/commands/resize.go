package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/malei-pku/exposure-render/internal/buffer"
	"github.com/malei-pku/exposure-render/internal/render"
)

var resizeCmd = &cobra.Command{
	Use:   "resize",
	Short: "Allocate a buffer and walk it through resizes",
	Long: `Allocate a buffer of the configured element type in the chosen memory
space, resize it to the same resolution again (which keeps the storage),
optionally reshape it with --to, and free it.`,
	Example: `  buf2d resize --size 640x480 --space device
  buf2d resize --size 4x3 --to 3x4`,
	RunE: runResize,
}

func init() {
	addBufferFlags(resizeCmd)
	resizeCmd.Flags().String("to", "", "second resolution to reshape to")
	resizeCmd.RegisterFlagCompletionFunc("to", completeSize)
	rootCmd.AddCommand(resizeCmd)
}

func runResize(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}

	var to *buffer.Resolution
	if v, _ := cmd.Flags().GetString("to"); v != "" {
		res, err := parseResolution(v)
		if err != nil {
			return err
		}
		to = &res
	}

	out := cmd.OutOrStdout()
	return forElement(cfg.Buffer.Element,
		func() error { return resizeWalk[uint32](out, s, to) },
		func() error { return resizeWalk[int32](out, s, to) },
		func() error { return resizeWalk[float32](out, s, to) },
		func() error { return resizeWalk[float64](out, s, to) },
	)
}

func resizeWalk[T render.Element](out io.Writer, s *session, to *buffer.Resolution) error {
	b := buffer.New[T](s.space, "resize")
	defer b.Close()

	step := func(label string, res buffer.Resolution) error {
		prev := b.Resolution()
		if err := b.Resize(res); err != nil {
			return fmt.Errorf("%s: %w", label, err)
		}

		storage := "unchanged"
		switch {
		case b.Data() == nil:
			storage = "no storage"
		case res != prev:
			storage = "new storage, zeroed"
		}
		fmt.Fprintf(out, "%-8s %s (%s)\n", label, render.Summary(b), storage)
		return nil
	}

	if err := step("resize", s.res); err != nil {
		return err
	}
	b.MarkClean()
	if err := step("again", s.res); err != nil {
		return err
	}
	if to != nil {
		if err := step("reshape", *to); err != nil {
			return err
		}
	}
	if err := b.Free(); err != nil {
		return err
	}
	fmt.Fprintf(out, "%-8s %s\n", "free", render.Summary(b))

	if stats, ok := transferStats(s.dev); ok {
		fmt.Fprintf(out, "\ndevice: %d allocations, %d frees, %d memsets\n",
			stats.Allocations, stats.Frees, stats.Memsets)
	}
	return nil
}
