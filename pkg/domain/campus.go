package domain

import dErrors "matricula/pkg/domain-errors"

// Campus identifies which campus an applicant is registering for. Requirement
// definitions may be scoped to one campus via their category.
type Campus string

const (
	CampusMain  Campus = "main"
	CampusNorth Campus = "north"
	CampusSouth Campus = "south"
)

var validCampuses = map[Campus]bool{
	CampusMain:  true,
	CampusNorth: true,
	CampusSouth: true,
}

// ParseCampus constructs a Campus from external input.
func ParseCampus(s string) (Campus, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "campus cannot be empty")
	}
	c := Campus(s)
	if !validCampuses[c] {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown campus %q", s)
	}
	return c, nil
}

// IsValid checks the campus against the supported set.
func (c Campus) IsValid() bool { return validCampuses[c] }

func (c Campus) String() string { return string(c) }
