package feed

import (
	"math"
	"time"

	"github.com/dustin/go-humanize"
)

var compactMagnitudes = []humanize.RelTimeMagnitude{
	{D: time.Hour, Format: "%dm", DivBy: time.Minute},
	{D: 24 * time.Hour, Format: "%dh", DivBy: time.Hour},
	{D: math.MaxInt64, Format: "%dd", DivBy: 24 * time.Hour},
}

// TimeAgo renders the distance between t and now as 5m, 3h or 2d.
func TimeAgo(t, now time.Time) string {
	return humanize.CustomRelTime(t, now, "", "", compactMagnitudes)
}
