package srs

import "errors"

// Sentinel errors returned by the engine. Check with errors.Is.
var (
	// ErrInvalidGrade means the grade is outside {Again, Hard, Good, Easy}.
	// Always a caller bug; never worth retrying.
	ErrInvalidGrade = errors.New("srs: invalid grade")

	// ErrStaleCard means the review timestamp precedes the card's last
	// recorded review. The caller must re-fetch the authoritative card and
	// retry with corrected timing; the engine never reorders for it.
	ErrStaleCard = errors.New("srs: review timestamp precedes last review")
)
