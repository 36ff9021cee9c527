package storage

import (
	"fmt"
	"strings"

	"github.com/voxscribe/api/internal/client"
)

// JoinSegments flattens timed segments into plain transcript text.
func JoinSegments(segments []client.Segment) string {
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

// FormatSegments renders a timestamped transcript, one segment per
// line: "[MM:SS - MM:SS] text" (hours appear above one hour).
func FormatSegments(segments []client.Segment) string {
	var b strings.Builder
	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		fmt.Fprintf(&b, "[%s - %s] %s\n", formatTimestamp(seg.Start), formatTimestamp(seg.End), text)
	}
	return b.String()
}

func formatTimestamp(seconds float64) string {
	total := int(seconds)
	hours := total / 3600
	minutes := (total % 3600) / 60
	secs := total % 60

	if hours > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, secs)
	}
	return fmt.Sprintf("%02d:%02d", minutes, secs)
}
