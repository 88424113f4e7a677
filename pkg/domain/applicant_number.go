package domain

import (
	"fmt"
	"strconv"

	dErrors "matricula/pkg/domain-errors"
)

// ApplicantNumber is the human-readable identifier assigned at registration.
// Format: {year}{semesterCode}{sequence}, e.g. "2025100007" for the 7th
// allocation of year 2025, semester 1. Immutable once assigned.
type ApplicantNumber string

const (
	yearDigits     = 4
	semesterDigits = 1
	sequenceDigits = 5
	numberDigits   = yearDigits + semesterDigits + sequenceDigits
)

// Period is one admissions window: a school year plus a semester code.
// Exactly one period is marked active at any time; allocation fails without
// one.
type Period struct {
	Year         int
	SemesterCode string
}

// Prefix returns the leading digits every applicant number of this period
// shares, e.g. "20251".
func (p Period) Prefix() string {
	return fmt.Sprintf("%04d%s", p.Year, p.SemesterCode)
}

// Validate enforces the period shape expected by number formatting.
func (p Period) Validate() error {
	if p.Year < 1000 || p.Year > 9999 {
		return dErrors.Newf(dErrors.CodeInvalidInput, "period year %d out of range", p.Year)
	}
	if len(p.SemesterCode) != semesterDigits {
		return dErrors.New(dErrors.CodeInvalidInput, "semester code must be a single digit")
	}
	if p.SemesterCode[0] < '0' || p.SemesterCode[0] > '9' {
		return dErrors.New(dErrors.CodeInvalidInput, "semester code must be a single digit")
	}
	return nil
}

// FormatApplicantNumber composes the canonical number for a period and a
// 1-based sequence. The sequence is zero-padded to five digits.
func FormatApplicantNumber(p Period, sequence int) (ApplicantNumber, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}
	if sequence < 1 || sequence > 99999 {
		return "", dErrors.Newf(dErrors.CodeInvariantViolation, "sequence %d outside allocatable range", sequence)
	}
	return ApplicantNumber(fmt.Sprintf("%s%0*d", p.Prefix(), sequenceDigits, sequence)), nil
}

// ParseApplicantNumber validates external input against the canonical format.
func ParseApplicantNumber(s string) (ApplicantNumber, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "applicant number cannot be empty")
	}
	if len(s) != numberDigits {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "applicant number must be %d digits", numberDigits)
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return "", dErrors.New(dErrors.CodeInvalidInput, "applicant number must be numeric")
		}
	}
	return ApplicantNumber(s), nil
}

func (n ApplicantNumber) String() string { return string(n) }

// IsZero reports whether the number was never assigned.
func (n ApplicantNumber) IsZero() bool { return n == "" }

// Year extracts the school-year component.
func (n ApplicantNumber) Year() int {
	if len(n) != numberDigits {
		return 0
	}
	y, _ := strconv.Atoi(string(n[:yearDigits]))
	return y
}

// SemesterCode extracts the semester component.
func (n ApplicantNumber) SemesterCode() string {
	if len(n) != numberDigits {
		return ""
	}
	return string(n[yearDigits : yearDigits+semesterDigits])
}

// Sequence extracts the running allocation count component.
func (n ApplicantNumber) Sequence() int {
	if len(n) != numberDigits {
		return 0
	}
	seq, _ := strconv.Atoi(string(n[yearDigits+semesterDigits:]))
	return seq
}

// Period reconstructs the admission period the number was issued under.
func (n ApplicantNumber) Period() Period {
	return Period{Year: n.Year(), SemesterCode: n.SemesterCode()}
}
