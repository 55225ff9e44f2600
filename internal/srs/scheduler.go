package srs

import (
	"fmt"
	"math"
	"time"
)

// Scheduler evolves card state in response to review grades and decides
// which card is due next. All methods are pure functions over the supplied
// snapshot; concurrency control belongs to the caller.
type Scheduler struct {
	params Params
}

// NewScheduler builds a Scheduler from the given params. Zero-value fields
// are filled with defaults; invalid combinations return an error.
func NewScheduler(p Params) (*Scheduler, error) {
	p = p.withDefaults()
	if err := p.validate(); err != nil {
		return nil, err
	}
	// Steps are copied so later caller mutation cannot change scheduling.
	p.LearningSteps = append([]time.Duration(nil), p.LearningSteps...)
	p.RelearningSteps = append([]time.Duration(nil), p.RelearningSteps...)
	return &Scheduler{params: p}, nil
}

// Params returns the effective tunables, defaults applied.
func (s *Scheduler) Params() Params {
	return s.params
}

// Review applies a grade to the card at the given time and returns the
// updated card plus a log entry. The input card is not mutated; on error it
// is returned unchanged.
//
// Errors: ErrInvalidGrade for a grade outside the closed set, ErrStaleCard
// when now precedes the card's last recorded review.
func (s *Scheduler) Review(card Card, grade Grade, now time.Time) (Card, ReviewLog, error) {
	if !grade.IsValid() {
		return card, ReviewLog{}, fmt.Errorf("%w: %d", ErrInvalidGrade, int(grade))
	}
	if !card.LastReview.IsZero() && now.Before(card.LastReview) {
		return card, ReviewLog{}, fmt.Errorf("%w: %s is before %s",
			ErrStaleCard, now.Format(time.RFC3339), card.LastReview.Format(time.RFC3339))
	}

	c := card
	prev := c.State
	if c.Ease == 0 {
		c.Ease = s.params.EaseStart
	}

	switch c.State {
	case StateNew:
		c.State = StateLearning
		c.Step = 0
		s.reviewLearning(&c, grade, now)
	case StateLearning:
		s.reviewLearning(&c, grade, now)
	case StateReview:
		s.reviewReview(&c, grade, now)
	case StateRelearning:
		s.reviewRelearning(&c, grade, now)
	default:
		return card, ReviewLog{}, fmt.Errorf("srs: card %s has invalid state %d", card.ID, int(card.State))
	}

	c.LastReview = now
	log := ReviewLog{
		CardID:     c.ID,
		Grade:      grade,
		PrevState:  prev,
		ReviewedAt: now,
	}
	return c, log, nil
}

// reviewLearning walks the card through the learning steps.
func (s *Scheduler) reviewLearning(c *Card, grade Grade, now time.Time) {
	steps := s.params.LearningSteps

	switch grade {
	case Again:
		c.Step = 0
		c.DueAt = now.Add(steps[0])
	case Hard:
		// Hard repeats the current step rather than advancing.
		step := clampStep(c.Step, steps)
		c.Step = step
		c.DueAt = now.Add(steps[step])
	case Good:
		next := clampStep(c.Step, steps) + 1
		if next >= len(steps) {
			s.graduate(c, s.params.GraduateIntervalDays, now)
			return
		}
		c.Step = next
		c.DueAt = now.Add(steps[next])
	case Easy:
		// Easy skips the remaining steps.
		s.graduate(c, s.params.EasyIntervalDays, now)
	}
}

// reviewReview handles the steady state: day-granularity interval growth,
// ease adjustment, and the lapse path back to Relearning.
func (s *Scheduler) reviewReview(c *Card, grade Grade, now time.Time) {
	easeBefore := c.Ease

	switch grade {
	case Again:
		c.Lapses++
		c.Repetitions = 0
		c.Ease = s.clampEase(c.Ease - s.params.LapseEasePenalty)
		c.State = StateRelearning
		c.Step = 0
		c.IntervalDays = 0
		c.DueAt = now.Add(s.params.RelearningSteps[0])
	case Hard:
		c.Ease = s.clampEase(c.Ease - s.params.HardEasePenalty)
		hard := s.roundInterval(float64(c.IntervalDays) * s.params.HardMultiplier)
		// Hard must stay below what Good would have granted.
		if good := s.roundInterval(float64(c.IntervalDays) * easeBefore); hard > good {
			hard = good
		}
		s.schedule(c, hard, now)
	case Good:
		c.Repetitions++
		s.schedule(c, s.roundInterval(float64(c.IntervalDays)*easeBefore), now)
	case Easy:
		c.Repetitions++
		c.Ease = s.clampEase(c.Ease + s.params.EasyEaseReward)
		s.schedule(c, s.roundInterval(float64(c.IntervalDays)*easeBefore*s.params.EasyBonus), now)
	}
}

// reviewRelearning resets on Again; any passing grade re-graduates.
func (s *Scheduler) reviewRelearning(c *Card, grade Grade, now time.Time) {
	if grade == Again {
		c.Step = 0
		c.DueAt = now.Add(s.params.RelearningSteps[0])
		return
	}
	s.graduate(c, s.params.RelearnIntervalDays, now)
}

// graduate moves the card into Review with the given starting interval.
// Graduation counts as a successful review.
func (s *Scheduler) graduate(c *Card, days int, now time.Time) {
	c.State = StateReview
	c.Step = 0
	c.Repetitions++
	s.schedule(c, days, now)
}

// schedule sets the interval and recomputes DueAt from now, never from the
// old due date, so a late review does not compound drift.
func (s *Scheduler) schedule(c *Card, days int, now time.Time) {
	if days < 1 {
		days = 1
	}
	if days > s.params.MaxIntervalDays {
		days = s.params.MaxIntervalDays
	}
	c.IntervalDays = days
	c.DueAt = now.AddDate(0, 0, days)
}

// roundInterval rounds fractional days half away from zero, bounded by the
// one-day minimum and the configured maximum.
func (s *Scheduler) roundInterval(days float64) int {
	d := int(math.Round(days))
	if d < 1 {
		d = 1
	}
	if d > s.params.MaxIntervalDays {
		d = s.params.MaxIntervalDays
	}
	return d
}

func (s *Scheduler) clampEase(ease float64) float64 {
	if ease < s.params.EaseFloor {
		return s.params.EaseFloor
	}
	if ease > s.params.EaseCeiling {
		return s.params.EaseCeiling
	}
	return ease
}

func clampStep(step int, steps []time.Duration) int {
	if step < 0 {
		return 0
	}
	if step >= len(steps) {
		return len(steps) - 1
	}
	return step
}

// Preview returns the card that each possible grade would produce, without
// recording anything. Hosts use it to annotate grading buttons.
func (s *Scheduler) Preview(card Card, now time.Time) map[Grade]Card {
	out := make(map[Grade]Card, 4)
	for _, g := range []Grade{Again, Hard, Good, Easy} {
		c, _, err := s.Review(card, g, now)
		if err != nil {
			continue
		}
		out[g] = c
	}
	return out
}

// Replay rebuilds a card's scheduling state from its review journal,
// applying each log in order. It fails fast on the first inconsistent entry.
func (s *Scheduler) Replay(card Card, logs []ReviewLog) (Card, error) {
	c := card
	for i, log := range logs {
		if log.CardID != c.ID {
			return Card{}, fmt.Errorf("srs: log %d belongs to card %s, not %s", i, log.CardID, c.ID)
		}
		var err error
		c, _, err = s.Review(c, log.Grade, log.ReviewedAt)
		if err != nil {
			return Card{}, fmt.Errorf("srs: replaying log %d: %w", i, err)
		}
	}
	return c, nil
}
