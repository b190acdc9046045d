package commands

import (
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"github.com/malei-pku/exposure-render/internal/buffer"
	"github.com/malei-pku/exposure-render/internal/render"
)

var errRoundTrip = errors.New("round trip mismatch")

var roundtripCmd = &cobra.Command{
	Use:   "roundtrip",
	Short: "Copy a ramp through the chosen memory space and back",
	Long: `Fill a host buffer with 0, 1, 2, ... and copy it into a buffer in the
chosen memory space, on into a second buffer in that space, and back to
the host. The result is verified and the transfers each copy used are
reported. A final copy of an already consumed buffer shows that clean
buffers are not transferred again.`,
	RunE: runRoundtrip,
}

func init() {
	addBufferFlags(roundtripCmd)
	rootCmd.AddCommand(roundtripCmd)
}

func runRoundtrip(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	return forElement(cfg.Buffer.Element,
		func() error { return roundtrip[uint32](out, s) },
		func() error { return roundtrip[int32](out, s) },
		func() error { return roundtrip[float32](out, s) },
		func() error { return roundtrip[float64](out, s) },
	)
}

func roundtrip[T render.Element](out io.Writer, s *session) error {
	want := rampValues[T](s.res.Elements())

	src := buffer.New[T](buffer.HostSpace(), "ramp")
	defer src.Close()
	if err := src.SetSlice(s.res, want); err != nil {
		return err
	}

	staged := buffer.New[T](s.space, "staged")
	defer staged.Close()
	mirror := buffer.New[T](s.space, "mirror")
	defer mirror.Close()

	copyStep := func(dst, from *buffer.Buffer2D[T]) error {
		dir := buffer.DirectionOf(from.MemorySpace(), dst.MemorySpace())
		if err := dst.Assign(from); err != nil {
			return err
		}
		fmt.Fprintf(out, "%-15s %s -> %s\n", dir, from.Name(), dst.FullName())
		return nil
	}

	if err := copyStep(staged, src); err != nil {
		return err
	}
	if err := copyStep(mirror, staged); err != nil {
		return err
	}
	back, err := buffer.NewCopy(mirror)
	if err != nil {
		return err
	}
	defer back.Close()
	fmt.Fprintf(out, "%-15s %s -> %s\n", buffer.DirectionOf(mirror.MemorySpace(), buffer.Host), mirror.Name(), back.FullName())

	got, err := back.Snapshot()
	if err != nil {
		return err
	}
	if !slices.Equal(got, want) {
		return fmt.Errorf("%w: %d elements differ", errRoundTrip, countDiffs(got, want))
	}
	fmt.Fprintf(out, "verified %d elements\n", len(got))

	// mirror was consumed by the copy above
	before, _ := transferStats(s.dev)
	if err := back.Assign(mirror); err != nil {
		return err
	}
	after, _ := transferStats(s.dev)
	if after == before {
		fmt.Fprintln(out, "second copy of a clean buffer transferred nothing")
	}

	if stats, ok := transferStats(s.dev); ok {
		fmt.Fprintf(out, "\ndevice: %d uploads (%d bytes), %d downloads (%d bytes), %d device copies\n",
			stats.Uploads, stats.BytesUploaded, stats.Downloads, stats.BytesDownloaded, stats.DeviceCopies)
	}
	return nil
}

func countDiffs[T comparable](a, b []T) int {
	n := max(len(a), len(b)) - min(len(a), len(b))
	for i := range min(len(a), len(b)) {
		if a[i] != b[i] {
			n++
		}
	}
	return n
}
