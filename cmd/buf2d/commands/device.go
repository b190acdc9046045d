package commands

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/malei-pku/exposure-render/internal/gpu"
	"github.com/malei-pku/exposure-render/internal/system"
)

var deviceInfoCmd = &cobra.Command{
	Use:   "device",
	Short: "Show device information",
	Long: `Display information about the device backing the device memory space.

This command shows which backend (CUDA, emulated, CPU) is selected, its
memory usage and buffer pool statistics, and the host CPU features used
for host memory.`,
	RunE: runDeviceInfo,
}

func init() {
	rootCmd.AddCommand(deviceInfoCmd)
}

func runDeviceInfo(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, "═══════════════════════════════════════════════════════")
	fmt.Fprintln(out, "  buf2d Device Information")
	fmt.Fprintln(out, "═══════════════════════════════════════════════════════")
	fmt.Fprintln(out)

	fmt.Fprintf(out, "Backend: %s\n\n", cfg.Device.Backend)

	dev, err := GetDeviceFromFlag(cfg.Device.Backend, cfg.Device)
	if err != nil {
		fmt.Fprintf(out, "❌ Device Error: %v\n\n", err)

		fmt.Fprintln(out, "Available devices:")
		fmt.Fprintln(out, "  • auto     - CUDA if present, otherwise emulated")
		fmt.Fprintln(out, "  • cpu      - Host memory only")
		fmt.Fprintln(out, "  • emulated - Accelerator emulated in host memory")
		if runtime.GOOS == "linux" {
			fmt.Fprintln(out, "  • cuda     - CUDA GPU (requires NVIDIA GPU + CUDA Toolkit, build tag cuda)")
		}

		return err
	}

	fmt.Fprintf(out, "✅ Device: %s\n", GetDeviceName(dev))
	fmt.Fprintf(out, "   Type: %s\n", dev.Type())
	fmt.Fprintf(out, "   Device memory space: %t\n", dev.Type().IsAccelerator())
	fmt.Fprintf(out, "   Platform: %s/%s\n\n", runtime.GOOS, runtime.GOARCH)

	used, total := dev.MemoryUsage()
	fmt.Fprintln(out, "Device Memory:")
	if total > 0 {
		fmt.Fprintf(out, "   Used: %s / %s (%.1f%%)\n\n",
			system.FormatBytes(used), system.FormatBytes(total), float64(used)/float64(total)*100)
	} else {
		fmt.Fprintf(out, "   Used: %s (no capacity limit)\n\n", system.FormatBytes(used))
	}

	if pd, ok := dev.(interface{ PoolStats() gpu.PoolStats }); ok {
		stats := pd.PoolStats()
		fmt.Fprintln(out, "Buffer Pool:")
		fmt.Fprintf(out, "   Limit: %s\n", system.FormatBytes(cfg.Device.PoolMaxBytes()))
		fmt.Fprintf(out, "   Allocations: %d, Reuses: %d, Evictions: %d\n\n",
			stats.Allocations, stats.Reuses, stats.Evictions)
	}

	fmt.Fprintln(out, "System Information:")
	fmt.Fprintf(out, "   CPUs: %d\n", runtime.NumCPU())
	features := gpu.HostFeatures()
	if len(features) == 0 {
		features = []string{"none detected"}
	}
	fmt.Fprintf(out, "   CPU features: %s\n", strings.Join(features, ", "))

	if info, err := system.GetRAMInfo(); err == nil {
		fmt.Fprintf(out, "   System RAM: %s total, %s available\n",
			system.FormatBytes(info.TotalBytes), system.FormatBytes(info.AvailableBytes))
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "═══════════════════════════════════════════════════════")

	return nil
}
