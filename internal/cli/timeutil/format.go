// Package timeutil formats gateway timestamps and durations for CLI output.
package timeutil

import (
	"fmt"
	"strings"
	"time"
)

// LocalTimeFormat is the layout of local times in CLI output.
const LocalTimeFormat = "Mon Jan 2 15:04:05 2006"

// FormatDuration renders d as "3d 0h 30m 15s", dropping leading zero units.
// Sub-second durations render as "0s".
func FormatDuration(d time.Duration) string {
	d = d.Truncate(time.Second)
	parts := []struct {
		n    int64
		unit string
	}{
		{int64(d / (24 * time.Hour)), "d"},
		{int64(d/time.Hour) % 24, "h"},
		{int64(d/time.Minute) % 60, "m"},
		{int64(d/time.Second) % 60, "s"},
	}

	var b strings.Builder
	for i, p := range parts {
		if b.Len() == 0 && p.n == 0 && i < len(parts)-1 {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%d%s", p.n, p.unit)
	}
	return b.String()
}

// FormatUptime formats a Go duration string such as "72h30m15s" with
// FormatDuration. Unparseable input is returned unchanged.
func FormatUptime(uptime string) string {
	d, err := time.ParseDuration(uptime)
	if err != nil {
		return uptime
	}
	return FormatDuration(d)
}

// FormatTime renders an RFC3339 timestamp in local time. Unparseable input
// is returned unchanged.
func FormatTime(timestamp string) string {
	t, err := time.Parse(time.RFC3339, timestamp)
	if err != nil {
		return timestamp
	}
	return t.Local().Format(LocalTimeFormat)
}
