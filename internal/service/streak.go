package service

import "time"

// civilDay truncates t to its calendar date in UTC.
func civilDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NextStreak advances a posting streak for a post made at now. Streaks are
// compared by calendar day, not by rolling 24h windows: a second post on the
// same day leaves the streak alone, a post exactly one day after the previous
// one extends it, and any longer gap restarts it at 1.
func NextStreak(lastPost *time.Time, now time.Time, current, longest int) (int, int) {
	switch {
	case lastPost == nil || current == 0:
		current = 1
	default:
		gap := civilDay(now).Sub(civilDay(*lastPost)) / (24 * time.Hour)
		switch {
		case gap <= 0:
		case gap == 1:
			current++
		default:
			current = 1
		}
	}
	if current > longest {
		longest = current
	}
	return current, longest
}
