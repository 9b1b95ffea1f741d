package booking

import "tutorbook/internal/schedule"

// Slot is the occupied time range of an active lesson.
type Slot struct {
	StartTime string `db:"start_time"`
	EndTime   string `db:"end_time"`
}

// conflicts reports whether [start, end) overlaps any of taken. Rows with
// unparsable times are treated as occupying nothing.
func conflicts(taken []Slot, start, end schedule.Clock) bool {
	for _, s := range taken {
		ts, err := schedule.ParseClock(s.StartTime)
		if err != nil {
			continue
		}
		te, err := schedule.ParseClock(s.EndTime)
		if err != nil {
			continue
		}
		if schedule.Overlaps(start, end, ts, te) {
			return true
		}
	}
	return false
}

// lockKey packs a calendar date into the second advisory lock key.
func lockKey(year, month, day int) int {
	return year*10000 + month*100 + day
}
