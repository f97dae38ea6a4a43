package runtime

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

var memoryRegex = regexp.MustCompile(`(?i)^(\d+(?:\.\d+)?)([KMGB])$`)

// binaryUnits maps the single-letter suffixes to the IEC names humanize
// parses as powers of 1024.
var binaryUnits = map[string]string{
	"B": "B",
	"K": "KiB",
	"M": "MiB",
	"G": "GiB",
}

// ParseMemory converts a limit such as "512M", "1.5g" or "2048K" to bytes.
// Units are powers of 1024.
func ParseMemory(s string) (int64, error) {
	m := memoryRegex.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, fmt.Errorf("invalid memory format %q: expected <number><K|M|G|B>, e.g. 512M or 1G", s)
	}
	n, err := humanize.ParseBytes(m[1] + binaryUnits[strings.ToUpper(m[2])])
	if err != nil {
		return 0, fmt.Errorf("invalid memory format %q: %w", s, err)
	}
	if n == 0 {
		return 0, fmt.Errorf("memory limit must be greater than zero")
	}
	if n > math.MaxInt64 {
		return 0, fmt.Errorf("memory limit %q is too large", s)
	}
	return int64(n), nil
}

// ParseCPUs converts a CPU limit such as "0.5" or "2" to cores.
func ParseCPUs(s string) (float64, error) {
	cpus, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid cpus value %q: %w", s, err)
	}
	if math.IsNaN(cpus) || math.IsInf(cpus, 0) || cpus <= 0 {
		return 0, fmt.Errorf("cpus must be a finite number greater than zero, got %s", s)
	}
	return cpus, nil
}

// FormatMemory renders a byte limit, or "unlimited" for zero.
func FormatMemory(bytes int64) string {
	if bytes <= 0 {
		return "unlimited"
	}
	return humanize.IBytes(uint64(bytes))
}

// FormatCPUs renders a NanoCpus limit as cores, or "unlimited" for zero.
func FormatCPUs(nano int64) string {
	if nano <= 0 {
		return "unlimited"
	}
	return strconv.FormatFloat(float64(nano)/1e9, 'f', -1, 64)
}
