package system

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

func getRAMInfo() (*RAMInfo, error) {
	info, err := readMeminfo("/proc/meminfo")
	if err == nil {
		return info, nil
	}
	return readSysinfo()
}

// readMeminfo parses MemTotal and MemAvailable (in kB) from a meminfo file.
func readMeminfo(path string) (*RAMInfo, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	var totalKB, availableKB int64
	scanner := bufio.NewScanner(file)

	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}

		value, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			continue
		}

		switch strings.TrimSuffix(fields[0], ":") {
		case "MemTotal":
			totalKB = value
		case "MemAvailable":
			availableKB = value
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if totalKB == 0 {
		return nil, fmt.Errorf("could not determine total RAM")
	}

	return newRAMInfo(totalKB*1024, availableKB*1024), nil
}

// readSysinfo falls back to sysinfo(2), which has no notion of reclaimable
// cache; free plus buffer RAM is reported as available.
func readSysinfo() (*RAMInfo, error) {
	var si unix.Sysinfo_t
	if err := unix.Sysinfo(&si); err != nil {
		return nil, fmt.Errorf("sysinfo: %w", err)
	}
	unit := uint64(si.Unit)
	if unit == 0 {
		unit = 1
	}
	total := uint64(si.Totalram) * unit
	available := (uint64(si.Freeram) + uint64(si.Bufferram)) * unit
	return newRAMInfo(int64(total), int64(available)), nil
}
