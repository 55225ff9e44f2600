package srs

import (
	"encoding"
	"encoding/json"
	"fmt"
)

// State is the learning stage of a card.
//
// New and the initial Learning pass are onboarding; Review is the steady
// state; Relearning is the recovery path after a lapse. There is no
// terminal state, cards remain schedulable forever.
type State int

const (
	StateNew        State = 0 // never reviewed
	StateLearning   State = 1 // working through the initial learning steps
	StateReview     State = 2 // graduated, on day-granularity intervals
	StateRelearning State = 3 // lapsed out of Review, relearning
)

var (
	stateNames = [...]string{
		StateNew:        "new",
		StateLearning:   "learning",
		StateReview:     "review",
		StateRelearning: "relearning",
	}

	stateByName = map[string]State{
		"new":        StateNew,
		"learning":   StateLearning,
		"review":     StateReview,
		"relearning": StateRelearning,
	}
)

var (
	_ fmt.Stringer             = State(0)
	_ encoding.TextMarshaler   = State(0)
	_ encoding.TextUnmarshaler = (*State)(nil)
	_ json.Marshaler           = State(0)
	_ json.Unmarshaler         = (*State)(nil)
)

func (s State) isValid() bool {
	return s >= StateNew && s <= StateRelearning
}

// String returns the lowercase state name, or "state(n)" for invalid values.
func (s State) String() string {
	if s.isValid() {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// ParseState converts a state name to a State.
func ParseState(name string) (State, error) {
	s, ok := stateByName[name]
	if !ok {
		return 0, fmt.Errorf("srs: invalid state: %q", name)
	}
	return s, nil
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	if !s.isValid() {
		return nil, fmt.Errorf("srs: invalid state: %d", int(s))
	}
	return []byte(stateNames[s]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *State) UnmarshalText(text []byte) error {
	v, err := ParseState(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// MarshalJSON implements json.Marshaler. States serialize as JSON strings.
func (s State) MarshalJSON() ([]byte, error) {
	text, err := s.MarshalText()
	if err != nil {
		return nil, err
	}
	return json.Marshal(string(text))
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *State) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return fmt.Errorf("srs: invalid state: %s", data)
	}
	return s.UnmarshalText([]byte(str))
}
