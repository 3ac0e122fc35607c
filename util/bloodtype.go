// Package util provides pure helper functions shared across the service:
// ABO/Rh blood-type compatibility, DID generation, and date helpers.
package util

import "strings"

// validBloodTypes is the closed set of ABO/Rh labels the service accepts.
var validBloodTypes = map[string]bool{
	"O-": true, "O+": true,
	"A-": true, "A+": true,
	"B-": true, "B+": true,
	"AB-": true, "AB+": true,
}

// IsValidBloodType reports whether s is one of the eight ABO/Rh labels.
// Matching is case-insensitive and ignores surrounding whitespace.
func IsValidBloodType(s string) bool {
	return validBloodTypes[normalizeBloodType(s)]
}

// IsBloodTypeCompatible reports whether an organ from a donor with the given
// blood type can go to a recipient with the given blood type. Direction
// matters: donor -> recipient. Unknown or malformed inputs are never
// compatible.
func IsBloodTypeCompatible(donor, recipient string) bool {
	d := normalizeBloodType(donor)
	r := normalizeBloodType(recipient)
	if !validBloodTypes[d] || !validBloodTypes[r] {
		return false
	}

	switch d {
	case "O-":
		// Universal donor.
		return true
	case "O+":
		// Any Rh-positive recipient; AB- accepted for emergency use.
		return strings.HasSuffix(r, "+") || r == "AB-"
	case "A-":
		return r == "A-" || r == "A+" || r == "AB-" || r == "AB+"
	case "A+":
		return r == "A+" || r == "AB+"
	case "B-":
		return r == "B-" || r == "B+" || r == "AB-" || r == "AB+"
	case "B+":
		return r == "B+" || r == "AB+"
	case "AB-":
		return r == "AB-" || r == "AB+"
	case "AB+":
		return r == "AB+"
	}
	return false
}

func normalizeBloodType(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
