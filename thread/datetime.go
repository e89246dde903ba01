package thread

import (
	"fmt"
	"time"

	"github.com/bluesky-social/indigo/atproto/syntax"

	"github.com/araddon/dateparse"
	"github.com/dustin/go-humanize"
)

// ParseTimestamp parses an atproto datetime string. Strictly formatted datetimes are tried first, then a lenient parse which accepts most of the malformed timestamps seen in the wild.
func ParseTimestamp(raw string) (time.Time, error) {
	t, err := syntax.ParseDatetimeTime(raw)
	if err == nil {
		return t, nil
	}
	t, err = dateparse.ParseAny(raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse %q as timestamp: %w", raw, err)
	}
	return t, nil
}

// Human-readable time relative to now, like "3 hours ago".
func RelativeDate(t, now time.Time) string {
	return humanize.RelTime(t, now, "ago", "from now")
}

// DateLabel formats the timestamp shown on a post. When a verb (eg, "reposted") and the time of that action are supplied, the label leads with the action time and annotates the original post time:
//
//	relative(verbedAt) (verb relative(createdAt))
func DateLabel(createdAt time.Time, verb string, verbedAt time.Time, now time.Time) string {
	if verb != "" && !verbedAt.IsZero() {
		return fmt.Sprintf("%s (%s %s)", RelativeDate(verbedAt, now), verb, RelativeDate(createdAt, now))
	}
	return RelativeDate(createdAt, now)
}
