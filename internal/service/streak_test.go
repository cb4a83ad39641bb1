package service

import (
	"testing"
	"time"
)

func TestNextStreak(t *testing.T) {
	day := func(d, h int) time.Time { return time.Date(2026, 3, d, h, 0, 0, 0, time.UTC) }
	ptr := func(t time.Time) *time.Time { return &t }

	tests := []struct {
		name                string
		last                *time.Time
		now                 time.Time
		current, longest    int
		wantCur, wantLongst int
	}{
		{"first post", nil, day(10, 9), 0, 0, 1, 1},
		{"same day", ptr(day(10, 1)), day(10, 23), 3, 5, 3, 5},
		{"next day late night", ptr(day(10, 23)), day(11, 0), 3, 3, 4, 4},
		{"next day keeps longest", ptr(day(10, 9)), day(11, 9), 2, 7, 3, 7},
		{"gap resets", ptr(day(10, 9)), day(12, 9), 6, 6, 1, 6},
		{"zero current restarts", ptr(day(10, 9)), day(11, 9), 0, 4, 1, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cur, longest := NextStreak(tt.last, tt.now, tt.current, tt.longest)
			if cur != tt.wantCur || longest != tt.wantLongst {
				t.Fatalf("NextStreak = %d/%d, want %d/%d", cur, longest, tt.wantCur, tt.wantLongst)
			}
		})
	}
}
