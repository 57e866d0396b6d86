package engine

import "time"

// fomcBlackoutDays is the window before each FOMC meeting during which new
// trades are suppressed.
const fomcBlackoutDays = 10

// fomcMeetings holds the first day of each scheduled two-day FOMC meeting.
// Sourced from the Federal Reserve calendar; extend as new schedules are
// published.
var fomcMeetings = []time.Time{
	date(2024, 1, 30),
	date(2024, 3, 19),
	date(2024, 4, 30),
	date(2024, 6, 11),
	date(2024, 7, 30),
	date(2024, 9, 17),
	date(2024, 11, 6),
	date(2024, 12, 17),
	date(2025, 1, 28),
	date(2025, 3, 18),
	date(2025, 4, 29),
	date(2025, 6, 17),
	date(2025, 7, 29),
	date(2025, 9, 16),
	date(2025, 10, 28),
	date(2025, 12, 9),
	date(2026, 1, 27),
	date(2026, 3, 17),
	date(2026, 4, 28),
	date(2026, 6, 16),
	date(2026, 7, 28),
	date(2026, 9, 15),
	date(2026, 10, 27),
	date(2026, 12, 8),
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// InFOMCBlackout reports whether t falls inside a blackout window: the ten
// days before a meeting through the end of its second day.
func InFOMCBlackout(t time.Time) bool {
	for _, meeting := range fomcMeetings {
		start := meeting.AddDate(0, 0, -fomcBlackoutDays)
		end := meeting.AddDate(0, 0, 2) // midnight after day two
		if !t.Before(start) && t.Before(end) {
			return true
		}
	}
	return false
}
