package models

import "time"

// Student is the learner record attached one-to-one to a student profile.
// Date of birth drives the under-13 consent gate.
type Student struct {
	ID               string     `db:"id" json:"id"`
	DateOfBirth      time.Time  `db:"date_of_birth" json:"date_of_birth"`
	ConsentGrantedAt *time.Time `db:"consent_granted_at" json:"consent_granted_at,omitempty"`
	ConsentGrantedBy *string    `db:"consent_granted_by" json:"consent_granted_by,omitempty"`
}

// AgeOn returns the student's age in whole years on the given date, with the
// usual "birthday not yet occurred this year" adjustment.
func (s *Student) AgeOn(date time.Time) int {
	age := date.Year() - s.DateOfBirth.Year()
	anniversary := time.Date(date.Year(), s.DateOfBirth.Month(), s.DateOfBirth.Day(), 0, 0, 0, 0, date.Location())
	if date.Before(anniversary) {
		age--
	}
	return age
}

// NeedsConsent reports whether the student is under 13 without a consent
// grant on record.
func (s *Student) NeedsConsent(now time.Time) bool {
	return s.AgeOn(now) < 13 && s.ConsentGrantedAt == nil
}
