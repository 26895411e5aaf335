package lyricsync

import (
	"fmt"
	"math"
	"strings"

	"github.com/himanishpuri/LyricSync/pkg/models"
)

// FormatTimestamp renders seconds as an LRC time tag body, mm:ss.xx.
// Negative input is clamped to zero.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	cs := int64(math.Round(seconds * 100))
	return fmt.Sprintf("%02d:%02d.%02d", cs/6000, (cs/100)%60, cs%100)
}

// FormatLRC renders lines as LRC, one "[mm:ss.xx]text" line per entry.
// Optional tags (ti, ar, ...) are written first in the order given.
func FormatLRC(lines []models.AlignedLine, tags ...[2]string) string {
	var b strings.Builder
	for _, t := range tags {
		if t[1] != "" {
			fmt.Fprintf(&b, "[%s:%s]\n", t[0], t[1])
		}
	}
	for _, l := range lines {
		fmt.Fprintf(&b, "[%s]%s\n", FormatTimestamp(l.Start), l.Text)
	}
	return b.String()
}
