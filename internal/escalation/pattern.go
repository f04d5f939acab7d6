package escalation

import "time"

const (
	// PatternWindow is how far back distress messages are considered.
	PatternWindow = 7 * 24 * time.Hour
	// PatternMinDays is the number of distinct days that makes a pattern.
	PatternMinDays = 2
)

// PatternOverDays reports whether distress messages fall on at least
// PatternMinDays distinct UTC calendar days within the PatternWindow before
// now. Times after now are ignored.
func PatternOverDays(times []time.Time, now time.Time) bool {
	since := now.Add(-PatternWindow)
	days := make(map[string]struct{})
	for _, t := range times {
		if t.Before(since) || t.After(now) {
			continue
		}
		days[t.UTC().Format(time.DateOnly)] = struct{}{}
		if len(days) >= PatternMinDays {
			return true
		}
	}
	return false
}
