package commands

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/malei-pku/exposure-render/internal/buffer"
	"github.com/malei-pku/exposure-render/internal/config"
	"github.com/malei-pku/exposure-render/internal/gpu"
	"github.com/malei-pku/exposure-render/internal/render"
)

// GetDeviceFromFlag returns the accelerator selected by backend. Emulated
// devices take their capacity and pool limits from dc.
func GetDeviceFromFlag(backend string, dc config.DeviceConfig) (gpu.Device, error) {
	backend = strings.ToLower(strings.TrimSpace(backend))

	opts := gpu.EmulatedOptions{
		CapacityBytes: dc.CapacityBytes(),
		PoolMaxBytes:  dc.PoolMaxBytes(),
	}

	switch backend {
	case "auto", "":
		// CUDA if available, otherwise the emulated accelerator
		return gpu.GetDefaultDevice(opts)

	case "cpu":
		// Host memory only
		return gpu.GetDevice(gpu.DeviceTypeCPU, opts)

	case "emulated":
		return gpu.GetDevice(gpu.DeviceTypeEmulated, opts)

	case "cuda", "gpu":
		dev, err := gpu.GetDevice(gpu.DeviceTypeGPU, opts)
		if err != nil {
			return nil, fmt.Errorf("CUDA not available: %w\nMake sure CUDA Toolkit is installed and NVIDIA drivers are loaded", err)
		}
		return dev, nil

	default:
		return nil, fmt.Errorf("unknown device: %s\nValid options: auto, cpu, cuda, emulated", backend)
	}
}

// GetDeviceName returns a human-readable device name with helpful info
func GetDeviceName(dev gpu.Device) string {
	name := dev.Name()

	switch dev.Type() {
	case gpu.DeviceTypeCPU:
		return fmt.Sprintf("%s (host memory only)", name)
	case gpu.DeviceTypeGPU:
		return fmt.Sprintf("%s (CUDA GPU)", name)
	case gpu.DeviceTypeEmulated:
		return fmt.Sprintf("%s (device memory in the Go heap)", name)
	default:
		return name
	}
}

// resolveSpace returns the memory space named by kind on dev.
func resolveSpace(kind string, dev gpu.Device) (buffer.Space, error) {
	ms, err := buffer.ParseMemorySpace(kind)
	if err != nil {
		return nil, err
	}
	if ms == buffer.Device && !dev.Type().IsAccelerator() {
		return nil, fmt.Errorf("%w: %s has no device memory; use --device auto or emulated",
			gpu.ErrDeviceUnavailable, dev.Name())
	}
	return buffer.NewSpace(ms, dev)
}

// session is the device and memory space a command works in.
type session struct {
	dev   gpu.Device
	space buffer.Space
	res   buffer.Resolution
}

func openSession(cmd *cobra.Command) (*session, error) {
	dev, err := GetDeviceFromFlag(cfg.Device.Backend, cfg.Device)
	if err != nil {
		return nil, err
	}

	kind := cfg.Buffer.Space
	if f := cmd.Flags().Lookup("space"); f != nil && f.Changed {
		kind = f.Value.String()
	}
	space, err := resolveSpace(kind, dev)
	if err != nil {
		return nil, err
	}

	res := buffer.Res(cfg.Buffer.Width, cfg.Buffer.Height)
	if f := cmd.Flags().Lookup("size"); f != nil && f.Changed {
		if res, err = parseResolution(f.Value.String()); err != nil {
			return nil, err
		}
	}

	return &session{dev: dev, space: space, res: res}, nil
}

// addBufferFlags registers the flags that override the buffer config.
func addBufferFlags(cmd *cobra.Command) {
	cmd.Flags().String("space", "", "memory space: host or device (default from config)")
	cmd.Flags().String("size", "", "resolution as WIDTHxHEIGHT (default from config)")
	registerBufferCompletions(cmd)
}

// parseResolution parses "WxH".
func parseResolution(s string) (buffer.Resolution, error) {
	w, h, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	if !ok {
		return buffer.Resolution{}, fmt.Errorf("invalid resolution %q: want WIDTHxHEIGHT", s)
	}
	width, err := strconv.Atoi(w)
	if err != nil {
		return buffer.Resolution{}, fmt.Errorf("invalid width in %q: %w", s, err)
	}
	height, err := strconv.Atoi(h)
	if err != nil {
		return buffer.Resolution{}, fmt.Errorf("invalid height in %q: %w", s, err)
	}
	if width < 0 || height < 0 {
		return buffer.Resolution{}, fmt.Errorf("%w: %s", buffer.ErrInvalidResolution, s)
	}
	return buffer.Res(width, height), nil
}

// renderOptions applies the view config over the render defaults.
func renderOptions() render.Options {
	opts := render.DefaultOptions()
	if cfg == nil {
		return opts
	}
	opts.Color = cfg.View.Color
	if cfg.View.Style != "" {
		opts.Style = cfg.View.Style
	}
	if cfg.View.CellWidth > 0 {
		opts.CellWidth = cfg.View.CellWidth
	}
	return opts
}

var errUnknownElement = errors.New("unknown element type")

// forElement calls the function matching the configured element type.
func forElement(element string, u32, i32, f32, f64 func() error) error {
	switch element {
	case "uint32":
		return u32()
	case "int32":
		return i32()
	case "float32":
		return f32()
	case "float64":
		return f64()
	default:
		return fmt.Errorf("%w: %s", errUnknownElement, element)
	}
}

// rampValues returns 0, 1, 2, ... n-1.
func rampValues[T render.Element](n int) []T {
	values := make([]T, n)
	for i := range values {
		values[i] = T(i)
	}
	return values
}

// transferStats returns the emulated device counters, if dev has them.
func transferStats(dev gpu.Device) (gpu.TransferStats, bool) {
	if em, ok := dev.(*gpu.EmulatedDevice); ok {
		return em.Stats(), true
	}
	return gpu.TransferStats{}, false
}
