package models

import "time"

// BlockedWindow is one recurring weekly window during which sessions may not
// start. DayOfWeek uses 0 for Sunday through 6 for Saturday; StartTime and
// EndTime are inclusive "HH:MM" local times.
type BlockedWindow struct {
	DayOfWeek int    `json:"dayOfWeek"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

// Contains reports whether t falls inside the window. The "HH:MM" encoding
// sorts lexicographically, so a plain string compare suffices.
func (w BlockedWindow) Contains(t time.Time) bool {
	if int(t.Weekday()) != w.DayOfWeek {
		return false
	}
	hm := t.Format("15:04")
	return hm >= w.StartTime && hm <= w.EndTime
}

// Restriction is a parent-imposed set of usage limits for one student.
type Restriction struct {
	ID               int64           `db:"id" json:"id"`
	ParentID         string          `db:"parent_id" json:"parent_id"`
	StudentID        string          `db:"student_id" json:"student_id"`
	MaxDailyMinutes  *int            `db:"max_daily_minutes" json:"max_daily_minutes,omitempty"`
	MaxWeeklyMinutes *int            `db:"max_weekly_minutes" json:"max_weekly_minutes,omitempty"`
	BlockedTimes     []BlockedWindow `json:"blocked_times"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updated_at"`
}

// BlockedAt reports whether any configured window covers t.
func (r Restriction) BlockedAt(t time.Time) bool {
	for _, w := range r.BlockedTimes {
		if w.Contains(t) {
			return true
		}
	}
	return false
}
