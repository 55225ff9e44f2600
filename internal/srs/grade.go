package srs

import (
	"encoding"
	"encoding/json"
	"fmt"
)

// Grade is the learner's response to a card review.
type Grade int

const (
	Again Grade = 1 // failed to recall
	Hard  Grade = 2 // recalled with significant difficulty
	Good  Grade = 3 // recalled with some effort
	Easy  Grade = 4 // recalled effortlessly
)

var (
	gradeNames = [...]string{Again: "again", Hard: "hard", Good: "good", Easy: "easy"}

	gradeByName = map[string]Grade{
		"again": Again,
		"hard":  Hard,
		"good":  Good,
		"easy":  Easy,
	}
)

var (
	_ fmt.Stringer             = Grade(0)
	_ encoding.TextMarshaler   = Grade(0)
	_ encoding.TextUnmarshaler = (*Grade)(nil)
	_ json.Marshaler           = Grade(0)
	_ json.Unmarshaler         = (*Grade)(nil)
)

// IsValid reports whether g is one of the four defined grades.
func (g Grade) IsValid() bool {
	return g >= Again && g <= Easy
}

// String returns the lowercase grade name, or "grade(n)" for invalid values.
func (g Grade) String() string {
	if g.IsValid() {
		return gradeNames[g]
	}
	return fmt.Sprintf("grade(%d)", int(g))
}

// ParseGrade converts a grade name to a Grade.
func ParseGrade(s string) (Grade, error) {
	g, ok := gradeByName[s]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidGrade, s)
	}
	return g, nil
}

// MarshalText implements encoding.TextMarshaler.
func (g Grade) MarshalText() ([]byte, error) {
	if !g.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidGrade, int(g))
	}
	return []byte(gradeNames[g]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (g *Grade) UnmarshalText(text []byte) error {
	v, err := ParseGrade(string(text))
	if err != nil {
		return err
	}
	*g = v
	return nil
}

// MarshalJSON implements json.Marshaler. Grades serialize as JSON strings.
func (g Grade) MarshalJSON() ([]byte, error) {
	text, err := g.MarshalText()
	if err != nil {
		return nil, err
	}
	return json.Marshal(string(text))
}

// UnmarshalJSON implements json.Unmarshaler.
func (g *Grade) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidGrade, data)
	}
	return g.UnmarshalText([]byte(s))
}
