package srs

import "time"

// Card is the scheduling state of one reviewable unit. The engine never
// inspects the content behind ContentRef; it only schedules.
type Card struct {
	// ID is an opaque, stable identifier.
	ID string `json:"id"`
	// ContentRef points at the displayable payload owned by the content
	// layer (a phrasal-verb sense, a scenario).
	ContentRef string `json:"content_ref"`

	State State `json:"state"`
	// Step is the current learning/relearning step index. Zero outside
	// Learning and Relearning.
	Step int `json:"step"`
	// Ease multiplies the interval on successful Review recalls. Never
	// drops below the configured floor.
	Ease float64 `json:"ease"`
	// IntervalDays is the scheduled gap to the next review, in whole days.
	// Zero while the card is New or on sub-day learning steps.
	IntervalDays int `json:"interval_days"`
	// DueAt is when the card next becomes eligible for review.
	DueAt time.Time `json:"due_at"`
	// LastReview is zero until the first review.
	LastReview time.Time `json:"last_review,omitzero"`

	// Lapses counts regressions from Review back to Relearning.
	Lapses int `json:"lapses"`
	// Repetitions counts consecutive successful reviews since the last lapse.
	Repetitions int `json:"repetitions"`

	// AddedSeq is the per-learner insertion sequence, used as the stable
	// tie-break when two cards share a due time.
	AddedSeq int64 `json:"added_seq"`
}

// NewCard creates a brand-new card due immediately.
func NewCard(id, contentRef string, seq int64, now time.Time) Card {
	return Card{
		ID:         id,
		ContentRef: contentRef,
		State:      StateNew,
		Ease:       DefaultEaseStart,
		DueAt:      now,
		AddedSeq:   seq,
	}
}

// Level maps the card onto the dashboard's integer growth scale:
// 0 is locked/unseen, 1-3 cover the learning steps, 4-9 track how far the
// review interval has grown.
func (c Card) Level() int {
	switch c.State {
	case StateNew:
		return 0
	case StateLearning:
		if c.Step >= 2 {
			return 3
		}
		return 1 + c.Step
	case StateRelearning:
		return 3
	case StateReview:
		switch {
		case c.IntervalDays < 3:
			return 4
		case c.IntervalDays < 7:
			return 5
		case c.IntervalDays < 21:
			return 6
		case c.IntervalDays < 60:
			return 7
		case c.IntervalDays < 180:
			return 8
		default:
			return 9
		}
	}
	return 0
}

// ReviewLog records a single graded review of a card.
type ReviewLog struct {
	CardID     string    `json:"card_id"`
	Grade      Grade     `json:"grade"`
	PrevState  State     `json:"prev_state"`
	ReviewedAt time.Time `json:"reviewed_at"`
}
