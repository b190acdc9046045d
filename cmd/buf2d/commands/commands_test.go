package commands

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/malei-pku/exposure-render/internal/gpu"
)

// resetFlags restores every flag of cmd and its children to its default so
// that executions do not leak into each other.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	resetFlags(rootCmd)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})

	err := rootCmd.Execute()
	return buf.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "buf2d v"+version) {
		t.Errorf("unexpected output %q", out)
	}
}

func TestRoundtripCommand(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		contains []string
	}{
		{
			name: "emulated device",
			args: []string{"roundtrip", "--device", "emulated", "--space", "device", "--size", "4x3"},
			contains: []string{
				"host->device",
				"device->device",
				"device->host",
				"verified 12 elements",
				"second copy of a clean buffer transferred nothing",
				"device: 1 uploads (48 bytes), 1 downloads (48 bytes), 1 device copies",
			},
		},
		{
			name:     "host only",
			args:     []string{"roundtrip", "--device", "cpu", "--space", "host", "--size", "5x2"},
			contains: []string{"host->host", "verified 10 elements"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, tt.args...)
			if err != nil {
				t.Fatalf("roundtrip failed: %v\n%s", err, out)
			}
			for _, want := range tt.contains {
				if !strings.Contains(out, want) {
					t.Errorf("output missing %q:\n%s", want, out)
				}
			}
		})
	}
}

func TestRoundtripNeedsAccelerator(t *testing.T) {
	_, err := execute(t, "roundtrip", "--device", "cpu", "--space", "device")
	if !errors.Is(err, gpu.ErrDeviceUnavailable) {
		t.Errorf("error = %v, want ErrDeviceUnavailable", err)
	}
}

func TestResizeCommand(t *testing.T) {
	out, err := execute(t, "resize", "--device", "emulated", "--space", "device", "--size", "4x3", "--to", "3x4")
	if err != nil {
		t.Fatalf("resize failed: %v\n%s", err, out)
	}

	for _, want := range []string{
		"resize (device, 4x3): 12 elements, 48 bytes, dirty=true (new storage, zeroed)",
		"resize (device, 4x3): 12 elements, 48 bytes, dirty=false (unchanged)",
		"resize (device, 3x4): 12 elements, 48 bytes, dirty=true (new storage, zeroed)",
		"resize (device, 0x0): 0 elements, 0 bytes, dirty=true",
		"2 memsets",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestResizeInvalidSize(t *testing.T) {
	if _, err := execute(t, "resize", "--size", "4by3"); err == nil {
		t.Error("expected error for malformed size")
	}
}

func TestSeedsCommand(t *testing.T) {
	args := []string{"seeds", "--no-color", "--size", "4x2", "--seed", "7"}
	first, err := execute(t, args...)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(first, "seeds (host, 4x2)") {
		t.Errorf("missing title:\n%s", first)
	}

	second, err := execute(t, args...)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Error("same seed should print the same grid")
	}

	other, err := execute(t, "seeds", "--no-color", "--size", "4x2", "--seed", "8")
	if err != nil {
		t.Fatal(err)
	}
	if other == first {
		t.Error("different seeds printed the same grid")
	}
}

func TestSeedsRefreshOnDevice(t *testing.T) {
	out, err := execute(t, "seeds", "--no-color", "--device", "emulated", "--space", "device", "--size", "3x3", "--refresh", "2")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "device: 1 allocations, 3 uploads") {
		t.Errorf("expected one allocation and three uploads:\n%s", out)
	}
}

func TestDumpCommand(t *testing.T) {
	out, err := execute(t, "dump", "--no-color", "--size", "3x2")
	if err != nil {
		t.Fatal(err)
	}

	var d struct {
		Name   string     `json:"name"`
		Width  int        `json:"width"`
		Height int        `json:"height"`
		Rows   [][]uint32 `json:"rows"`
	}
	if err := json.Unmarshal([]byte(out), &d); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if d.Name != "ramp" || d.Width != 3 || d.Height != 2 {
		t.Errorf("unexpected dump %+v", d)
	}
	if d.Rows[1][0] != 3 {
		t.Errorf("rows[1][0] = %d, want 3", d.Rows[1][0])
	}
}

func TestDumpSeeds(t *testing.T) {
	out, err := execute(t, "dump", "--seeds", "--no-color", "--size", "2x2", "--device", "emulated", "--space", "device")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `"name": "seeds"`) || !strings.Contains(out, `"space": "device"`) {
		t.Errorf("unexpected dump:\n%s", out)
	}
}

func TestDeviceCommand(t *testing.T) {
	out, err := execute(t, "device", "--device", "emulated")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Backend: emulated", "Type: Emulated", "Buffer Pool:", "CPU features:"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestUnknownBackendRejected(t *testing.T) {
	if _, err := execute(t, "device", "--device", "metal"); err == nil {
		t.Error("expected error for unknown backend")
	}
}
