package system

import (
	"os"
	"path/filepath"
	"testing"
)

func TestReadMeminfo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meminfo")
	content := "MemTotal:        2048 kB\nMemFree:          512 kB\nMemAvailable:    1024 kB\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	info, err := readMeminfo(path)
	if err != nil {
		t.Fatalf("readMeminfo failed: %v", err)
	}
	if info.TotalBytes != 2048*1024 {
		t.Errorf("TotalBytes = %d, want %d", info.TotalBytes, 2048*1024)
	}
	if info.AvailableBytes != 1024*1024 {
		t.Errorf("AvailableBytes = %d, want %d", info.AvailableBytes, 1024*1024)
	}
}

func TestReadMeminfoMissingTotal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meminfo")
	if err := os.WriteFile(path, []byte("MemFree: 12 kB\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := readMeminfo(path); err == nil {
		t.Error("expected error when MemTotal is absent")
	}
}

func TestReadSysinfo(t *testing.T) {
	info, err := readSysinfo()
	if err != nil {
		t.Fatalf("readSysinfo failed: %v", err)
	}
	if info.TotalBytes <= 0 {
		t.Errorf("Expected positive total bytes, got %d", info.TotalBytes)
	}
}
