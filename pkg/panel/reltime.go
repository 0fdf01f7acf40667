package panel

import (
	"time"

	"github.com/dustin/go-humanize"
)

// RelativeTime formats a creation time (milliseconds since the epoch) relative
// to now, e.g. "3 minutes ago". Zero yields "".
func RelativeTime(creationMillis int64, now time.Time) string {
	if creationMillis == 0 {
		return ""
	}
	t := time.UnixMilli(creationMillis)
	if d := now.Sub(t); d < time.Minute && d > -time.Minute {
		return "now"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

// Meta is the secondary line of a row: "<domain> · <relative time>".
func Meta(r *Row, now time.Time) string {
	rel := RelativeTime(r.Entry.CreationTime, now)
	if rel == "" {
		return r.Domain
	}
	return r.Domain + " · " + rel
}
