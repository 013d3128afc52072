package resolver

import (
	"fmt"
	"strconv"
	"strings"

	"teragrab/internal"
)

var sizeUnits = []string{"B", "KB", "MB", "GB", "TB", "PB"}

// FormatSize renders a byte count in base-1024 units with two decimal
// places. Zero is "0 B" and a negative count is "Unknown".
func FormatSize(bytes int64) string {
	if bytes < 0 {
		return "Unknown"
	}
	if bytes == 0 {
		return "0 B"
	}
	value := float64(bytes)
	unit := 0
	for value >= 1024 && unit < len(sizeUnits)-1 {
		value /= 1024
		unit++
	}
	if unit == 0 {
		return fmt.Sprintf("%d B", bytes)
	}
	return fmt.Sprintf("%.2f %s", value, sizeUnits[unit])
}

// ParseSizeToBytes is the inverse of FormatSize: it accepts either a
// bare byte count or a value with a base-1024 unit suffix ("50 MB",
// "1.5GB") and returns the byte count. Unparseable input maps to -1.
func ParseSizeToBytes(raw string) int64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return -1
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	upper := strings.ToUpper(s)
	for i := len(sizeUnits) - 1; i >= 0; i-- {
		if !strings.HasSuffix(upper, sizeUnits[i]) {
			continue
		}
		num := strings.TrimSpace(strings.TrimSuffix(upper, sizeUnits[i]))
		v, err := strconv.ParseFloat(num, 64)
		if err != nil {
			return -1
		}
		for j := 0; j < i; j++ {
			v *= 1024
		}
		return int64(v)
	}
	return -1
}

// newResolvedFile assembles the public descriptor for a selected file
// and its resolved link.
func newResolvedFile(rec internal.FileRecord, link *ResolvedLink) *internal.ResolvedFile {
	return &internal.ResolvedFile{
		Name:            rec.Filename,
		URL:             link.URL,
		Size:            FormatSize(rec.Size),
		SizeBytes:       rec.Size,
		RequiresBrowser: link.Degraded,
	}
}
