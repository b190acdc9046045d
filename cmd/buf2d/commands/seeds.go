package commands

import (
	"fmt"
	"math/rand/v2"

	"github.com/spf13/cobra"

	"github.com/malei-pku/exposure-render/internal/buffer"
	"github.com/malei-pku/exposure-render/internal/render"
)

var seedsCmd = &cobra.Command{
	Use:   "seeds",
	Short: "Generate a buffer of per-element random seeds",
	Long: `Generate a seed buffer in the chosen memory space and print it as a grid.
With --refresh the seeds are regenerated in place that many times; storage
is only allocated once.`,
	Example: `  buf2d seeds --size 8x4 --seed 42
  buf2d seeds --space device --refresh 3`,
	RunE: runSeeds,
}

func init() {
	addBufferFlags(seedsCmd)
	addSeedFlags(seedsCmd)
	seedsCmd.Flags().Int("refresh", 0, "regenerate the seeds this many more times")
	rootCmd.AddCommand(seedsCmd)
}

func addSeedFlags(cmd *cobra.Command) {
	cmd.Flags().Int64("seed", 0, "generator seed (default from config)")
	cmd.Flags().Bool("random", false, "seed the generator from the clock")
}

// seedSource returns the generator source selected by config and flags; nil
// means a clock-seeded generator.
func seedSource(cmd *cobra.Command) rand.Source {
	random := cfg.Seed.Random
	if f := cmd.Flags().Lookup("random"); f != nil && f.Changed {
		random, _ = cmd.Flags().GetBool("random")
	}
	if random {
		return nil
	}

	seed := cfg.Seed.Value
	if f := cmd.Flags().Lookup("seed"); f != nil && f.Changed {
		seed, _ = cmd.Flags().GetInt64("seed")
	}
	return buffer.NewSeedSource(seed)
}

func newSeedBuffer(cmd *cobra.Command) (*session, *buffer.SeedBuffer2D, error) {
	s, err := openSession(cmd)
	if err != nil {
		return nil, nil, err
	}
	seeds := buffer.NewSeedBuffer2D(s.space, "seeds", seedSource(cmd))
	if err := seeds.Resize(s.res); err != nil {
		return nil, nil, err
	}
	return s, seeds, nil
}

func runSeeds(cmd *cobra.Command, args []string) error {
	s, seeds, err := newSeedBuffer(cmd)
	if err != nil {
		return err
	}
	defer seeds.Close()

	refresh, _ := cmd.Flags().GetInt("refresh")
	for i := 0; i < refresh; i++ {
		if err := seeds.Resize(s.res); err != nil {
			return err
		}
	}

	grid, err := render.Grid(seeds.Buffer2D, renderOptions())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprint(out, grid)

	if stats, ok := transferStats(s.dev); ok {
		fmt.Fprintf(out, "\ndevice: %d allocations, %d uploads\n", stats.Allocations, stats.Uploads)
	}
	return nil
}
