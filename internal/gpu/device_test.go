package gpu

import (
	"errors"
	"testing"
)

func TestGetDefaultDevice(t *testing.T) {
	dev, err := GetDefaultDevice(EmulatedOptions{})
	if err != nil {
		t.Fatalf("GetDefaultDevice failed: %v", err)
	}
	defer dev.Free()

	if dev == nil {
		t.Fatal("GetDefaultDevice returned nil device")
	}
	if !dev.Type().IsAccelerator() {
		t.Errorf("default device should back device memory, got %v", dev.Type())
	}

	name := dev.Name()
	if name == "" {
		t.Error("Device name is empty")
	}
	t.Logf("Default device: %s (type: %v)", name, dev.Type())
}

func TestGetCPUDevice(t *testing.T) {
	dev, err := GetDevice(DeviceTypeCPU, EmulatedOptions{})
	if err != nil {
		t.Fatalf("GetDevice(CPU) failed: %v", err)
	}
	defer dev.Free()

	if dev.Type() != DeviceTypeCPU {
		t.Errorf("Expected CPU device, got %v", dev.Type())
	}

	t.Logf("CPU device: %s", dev.Name())
}

func TestGetEmulatedDevice(t *testing.T) {
	dev, err := GetDevice(DeviceTypeEmulated, EmulatedOptions{Name: "test accelerator", CapacityBytes: 4096})
	if err != nil {
		t.Fatalf("GetDevice(Emulated) failed: %v", err)
	}
	defer dev.Free()

	if dev.Type() != DeviceTypeEmulated {
		t.Errorf("Expected emulated device, got %v", dev.Type())
	}
	if dev.Name() != "test accelerator" {
		t.Errorf("name = %q, options not applied", dev.Name())
	}
	if _, total := dev.MemoryUsage(); total != 4096 {
		t.Errorf("capacity = %d, want 4096", total)
	}
}

func TestGetDeviceUnknownType(t *testing.T) {
	if _, err := GetDevice(DeviceType(99), EmulatedOptions{}); err == nil {
		t.Error("expected error for unknown device type")
	}
}

func TestGetGPUDevice(t *testing.T) {
	dev, err := GetDevice(DeviceTypeGPU, EmulatedOptions{})
	if err != nil {
		if !errors.Is(err, ErrDeviceUnavailable) {
			t.Errorf("expected ErrDeviceUnavailable, got %v", err)
		}
		t.Skipf("GPU device not available: %v", err)
	}
	defer dev.Free()

	if dev.Type() != DeviceTypeGPU {
		t.Errorf("Expected GPU device, got %v", dev.Type())
	}

	used, total := dev.MemoryUsage()
	t.Logf("GPU memory: %d MB used / %d MB total", used/(1024*1024), total/(1024*1024))
}

func TestCPUBufferAllocate(t *testing.T) {
	dev := NewCPUDevice()
	defer dev.Free()

	sizes := []int64{1, 1024, 1024 * 1024, 16 * 1024 * 1024}

	for _, size := range sizes {
		buf, err := dev.Allocate(size)
		if err != nil {
			t.Fatalf("Allocate(%d) failed: %v", size, err)
		}
		defer buf.Free()

		if buf.Size() != size {
			t.Errorf("Buffer size mismatch: expected %d, got %d", size, buf.Size())
		}
		if buf.Ptr()%hostAlignment != 0 {
			t.Errorf("Allocate(%d) not aligned to %d bytes", size, hostAlignment)
		}
		for i, b := range HostBytes(buf) {
			if b != 0 {
				t.Fatalf("Allocate(%d) not zeroed at %d", size, i)
			}
		}
	}
}

func TestCPUAllocateInvalid(t *testing.T) {
	dev := NewCPUDevice()

	for _, size := range []int64{0, -1} {
		if _, err := dev.Allocate(size); !errors.Is(err, ErrInvalidSize) {
			t.Errorf("Allocate(%d) error = %v, want ErrInvalidSize", size, err)
		}
	}

	if _, err := dev.Allocate(1 << 62); !errors.Is(err, ErrOutOfMemory) {
		t.Errorf("huge allocation error = %v, want ErrOutOfMemory", err)
	}
}

func TestCPUBufferCopy(t *testing.T) {
	dev := NewCPUDevice()
	defer dev.Free()

	size := int64(1024)
	buf1, err := dev.Allocate(size)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	defer buf1.Free()

	buf2, err := dev.Allocate(size)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	defer buf2.Free()

	// Write test data to buf1
	testData := make([]byte, size)
	for i := range testData {
		testData[i] = byte(i % 256)
	}
	if err := buf1.CopyFromHost(testData); err != nil {
		t.Fatalf("CopyFromHost failed: %v", err)
	}

	// Copy buf1 to buf2
	if err := dev.Copy(buf2, buf1, size); err != nil {
		t.Fatalf("Copy failed: %v", err)
	}

	// Read back from buf2
	result := make([]byte, size)
	if err := buf2.CopyToHost(result); err != nil {
		t.Fatalf("CopyToHost failed: %v", err)
	}

	// Verify data
	for i := range result {
		if result[i] != testData[i] {
			t.Errorf("Data mismatch at index %d: expected %d, got %d", i, testData[i], result[i])
		}
	}

	if err := dev.Copy(buf2, buf1, size+1); !errors.Is(err, ErrLengthMismatch) {
		t.Errorf("oversized copy error = %v, want ErrLengthMismatch", err)
	}
}

func TestCPUBufferBounds(t *testing.T) {
	dev := NewCPUDevice()
	buf, err := dev.Allocate(16)
	if err != nil {
		t.Fatal(err)
	}

	if err := buf.CopyFromHost(make([]byte, 17)); !errors.Is(err, ErrLengthMismatch) {
		t.Errorf("CopyFromHost error = %v, want ErrLengthMismatch", err)
	}
	if err := buf.CopyToHost(make([]byte, 17)); !errors.Is(err, ErrLengthMismatch) {
		t.Errorf("CopyToHost error = %v, want ErrLengthMismatch", err)
	}

	// Partial reads take a prefix
	if err := buf.CopyFromHost([]byte{1, 2, 3, 4}); err != nil {
		t.Fatal(err)
	}
	head := make([]byte, 2)
	if err := buf.CopyToHost(head); err != nil {
		t.Fatal(err)
	}
	if head[0] != 1 || head[1] != 2 {
		t.Errorf("prefix = %v, want [1 2]", head)
	}

	if err := buf.Zero(); err != nil {
		t.Fatal(err)
	}
	if HostBytes(buf)[0] != 0 {
		t.Error("Zero left data behind")
	}
}

func TestWrapHost(t *testing.T) {
	data := []byte{1, 2, 3}
	buf := WrapHost(data)

	if buf.Size() != 3 {
		t.Errorf("size = %d, want 3", buf.Size())
	}
	if &HostBytes(buf)[0] != &data[0] {
		t.Error("WrapHost should not copy")
	}
	if err := buf.Free(); err != nil {
		t.Fatal(err)
	}
	if data[0] != 1 {
		t.Error("Free must not touch wrapped memory")
	}
}

func TestBufferFree(t *testing.T) {
	devices := map[string]Device{
		"cpu":      NewCPUDevice(),
		"emulated": NewEmulatedDevice(EmulatedOptions{}),
	}

	for name, dev := range devices {
		t.Run(name, func(t *testing.T) {
			buf, err := dev.Allocate(1024)
			if err != nil {
				t.Fatalf("Allocate failed: %v", err)
			}

			if err := buf.Free(); err != nil {
				t.Errorf("Free failed: %v", err)
			}

			// Double free should be safe
			if err := buf.Free(); err != nil {
				t.Errorf("Double free failed: %v", err)
			}
			if buf.Size() != 0 {
				t.Errorf("freed buffer reports size %d", buf.Size())
			}
		})
	}
}

func TestDeviceTypeString(t *testing.T) {
	tests := []struct {
		dt          DeviceType
		expected    string
		accelerator bool
	}{
		{DeviceTypeCPU, "CPU", false},
		{DeviceTypeGPU, "GPU", true},
		{DeviceTypeEmulated, "Emulated", true},
		{DeviceType(99), "Unknown", false},
	}

	for _, tt := range tests {
		if got := tt.dt.String(); got != tt.expected {
			t.Errorf("DeviceType(%d).String() = %s, expected %s", tt.dt, got, tt.expected)
		}
		if got := tt.dt.IsAccelerator(); got != tt.accelerator {
			t.Errorf("DeviceType(%d).IsAccelerator() = %v, expected %v", tt.dt, got, tt.accelerator)
		}
	}
}

func TestHostFeatures(t *testing.T) {
	// Feature sets vary by machine; the call only has to be safe
	t.Logf("Host features: %v", HostFeatures())
	if hostAlignment < 64 {
		t.Errorf("host alignment %d below 64", hostAlignment)
	}
}

func BenchmarkCPUAllocate(b *testing.B) {
	dev := NewCPUDevice()
	size := int64(1024 * 1024)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		buf, err := dev.Allocate(size)
		if err != nil {
			b.Fatal(err)
		}
		buf.Free()
	}
}

func BenchmarkEmulatedHostToDevice(b *testing.B) {
	dev := NewEmulatedDevice(EmulatedOptions{})
	size := int64(16 * 1024 * 1024)

	buf, err := dev.Allocate(size)
	if err != nil {
		b.Fatal(err)
	}
	defer buf.Free()

	data := make([]byte, size)
	b.SetBytes(size)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if err := buf.CopyFromHost(data); err != nil {
			b.Fatal(err)
		}
	}
}
