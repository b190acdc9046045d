package commands

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/malei-pku/exposure-render/internal/render"
)

var viewCmd = &cobra.Command{
	Use:   "view",
	Short: "Browse a seed buffer interactively",
	Long: `Open a scrollable terminal view of a seed buffer. Press r to regenerate
the seeds in place and q to quit.`,
	RunE: runView,
}

func init() {
	addBufferFlags(viewCmd)
	addSeedFlags(viewCmd)
	rootCmd.AddCommand(viewCmd)
}

func runView(cmd *cobra.Command, args []string) error {
	s, seeds, err := newSeedBuffer(cmd)
	if err != nil {
		return err
	}
	defer seeds.Close()

	opts := renderOptions()
	first := true

	// bubbletea runs commands on their own goroutines
	var mu sync.Mutex
	refresh := func() (string, error) {
		mu.Lock()
		defer mu.Unlock()

		// The first frame shows the seeds generated on open
		if !first {
			if err := seeds.Resize(s.res); err != nil {
				return "", err
			}
		}
		first = false
		return render.Grid(seeds.Buffer2D, opts)
	}

	model := render.NewViewer(render.Summary(seeds.Buffer2D), refresh)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithInput(cmd.InOrStdin()), tea.WithOutput(cmd.OutOrStdout()))
	_, err = p.Run()
	return err
}
