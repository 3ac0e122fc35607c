package util

import "time"

// AgeAt returns the age in whole years at the reference time. Returns 0 for
// a zero or future date of birth.
func AgeAt(dob, at time.Time) int {
	if dob.IsZero() || dob.After(at) {
		return 0
	}
	years := at.Year() - dob.Year()
	if at.Month() < dob.Month() || (at.Month() == dob.Month() && at.Day() < dob.Day()) {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}

// Age returns the age in whole years as of now.
func Age(dob time.Time) int {
	return AgeAt(dob, time.Now())
}
