package models

import "time"

// OTPRecord is a live verification code bound to a contact identifier
// (email address or E.164 phone number). At most one record exists per
// identifier; issuing a new code overwrites the old record. The record is
// destroyed on successful verification, on expiry detection, and on
// exceeding the attempt cap. Attempts is the only field ever mutated.
type OTPRecord struct {
	Identifier string
	Code       string
	ExpiresAt  time.Time
	Attempts   int
}

// Expired reports whether the record is past its expiry instant.
func (r *OTPRecord) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}
