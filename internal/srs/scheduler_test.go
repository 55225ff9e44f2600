package srs

import (
	"errors"
	"math"
	"reflect"
	"testing"
	"time"
)

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()
	s, err := NewScheduler(Params{})
	if err != nil {
		t.Fatalf("NewScheduler failed: %v", err)
	}
	return s
}

func mustReview(t *testing.T, s *Scheduler, c Card, g Grade, now time.Time) Card {
	t.Helper()
	next, _, err := s.Review(c, g, now)
	if err != nil {
		t.Fatalf("Review(%s) failed: %v", g, err)
	}
	return next
}

func TestNewCardLifecycle(t *testing.T) {
	s := newTestScheduler(t)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	card := NewCard("c1", "break-down#1", 1, now)
	if card.State != StateNew || card.Repetitions != 0 || card.IntervalDays != 0 {
		t.Fatalf("unexpected new card: %+v", card)
	}
	if card.Level() != 0 {
		t.Fatalf("expected level 0 for new card, got %d", card.Level())
	}

	// First Good advances into the learning steps.
	card = mustReview(t, s, card, Good, now)
	if card.State != StateLearning || card.Step != 1 {
		t.Fatalf("expected learning step 1, got %+v", card)
	}
	if !card.DueAt.Equal(now.Add(10 * time.Minute)) {
		t.Fatalf("expected due in 10m, got %v", card.DueAt)
	}

	// Second Good exhausts the steps and graduates at one day.
	now = card.DueAt
	card = mustReview(t, s, card, Good, now)
	if card.State != StateReview || card.IntervalDays != 1 {
		t.Fatalf("expected graduation to 1d, got %+v", card)
	}
	if !card.DueAt.Equal(now.AddDate(0, 0, 1)) {
		t.Fatalf("expected due in 1d, got %v", card.DueAt)
	}

	// Good in Review multiplies by ease: 1 * 2.5 rounds to 3.
	now = card.DueAt
	card = mustReview(t, s, card, Good, now)
	if card.IntervalDays != 3 {
		t.Fatalf("expected interval 3, got %+v", card)
	}

	// Again lapses the card.
	easeBefore := card.Ease
	now = card.DueAt
	card = mustReview(t, s, card, Again, now)
	if card.State != StateRelearning || card.Lapses != 1 || card.Repetitions != 0 {
		t.Fatalf("expected relearning after lapse, got %+v", card)
	}
	if math.Abs(card.Ease-(easeBefore-0.20)) > 1e-9 {
		t.Fatalf("expected ease %.2f, got %.2f", easeBefore-0.20, card.Ease)
	}
	if !card.DueAt.Equal(now.Add(10 * time.Minute)) {
		t.Fatalf("expected relearning step in 10m, got %v", card.DueAt)
	}

	// Any passing grade re-graduates at one day.
	now = card.DueAt
	card = mustReview(t, s, card, Good, now)
	if card.State != StateReview || card.IntervalDays != 1 {
		t.Fatalf("expected re-graduation to 1d, got %+v", card)
	}
}

func TestLearningSteps(t *testing.T) {
	s := newTestScheduler(t)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	t.Run("again resets to the first step", func(t *testing.T) {
		card := NewCard("c1", "ref", 1, now)
		card = mustReview(t, s, card, Good, now)
		card = mustReview(t, s, card, Again, now.Add(time.Minute))
		if card.State != StateLearning || card.Step != 0 {
			t.Fatalf("expected step 0, got %+v", card)
		}
		if !card.DueAt.Equal(now.Add(time.Minute).Add(time.Minute)) {
			t.Fatalf("expected first step delay, got %v", card.DueAt)
		}
	})

	t.Run("hard repeats the current step", func(t *testing.T) {
		card := NewCard("c1", "ref", 1, now)
		card = mustReview(t, s, card, Hard, now)
		if card.State != StateLearning || card.Step != 0 {
			t.Fatalf("expected step 0, got %+v", card)
		}
		if !card.DueAt.Equal(now.Add(time.Minute)) {
			t.Fatalf("expected due in 1m, got %v", card.DueAt)
		}
	})

	t.Run("easy skips the remaining steps", func(t *testing.T) {
		card := NewCard("c1", "ref", 1, now)
		card = mustReview(t, s, card, Easy, now)
		if card.State != StateReview || card.IntervalDays != 4 {
			t.Fatalf("expected direct graduation to 4d, got %+v", card)
		}
		if !card.DueAt.Equal(now.AddDate(0, 0, 4)) {
			t.Fatalf("expected due in 4d, got %v", card.DueAt)
		}
	})
}

func TestReviewGrades(t *testing.T) {
	s := newTestScheduler(t)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	base := Card{
		ID:           "c1",
		State:        StateReview,
		Ease:         2.5,
		IntervalDays: 10,
		DueAt:        now,
		LastReview:   now.AddDate(0, 0, -10),
		Repetitions:  3,
	}

	t.Run("hard", func(t *testing.T) {
		card := mustReview(t, s, base, Hard, now)
		if card.IntervalDays != 12 {
			t.Fatalf("expected interval 12, got %+v", card)
		}
		if math.Abs(card.Ease-2.35) > 1e-9 {
			t.Fatalf("expected ease 2.35, got %.2f", card.Ease)
		}
		if card.Repetitions != 3 {
			t.Fatalf("hard should not change repetitions, got %+v", card)
		}
	})

	t.Run("good", func(t *testing.T) {
		card := mustReview(t, s, base, Good, now)
		if card.IntervalDays != 25 {
			t.Fatalf("expected interval 25, got %+v", card)
		}
		if card.Ease != 2.5 || card.Repetitions != 4 {
			t.Fatalf("expected unchanged ease and one more repetition, got %+v", card)
		}
	})

	t.Run("easy", func(t *testing.T) {
		card := mustReview(t, s, base, Easy, now)
		// 10 * 2.5 * 1.3 = 32.5, rounds to 33.
		if card.IntervalDays != 33 {
			t.Fatalf("expected interval 33, got %+v", card)
		}
		if math.Abs(card.Ease-2.65) > 1e-9 {
			t.Fatalf("expected ease 2.65, got %.2f", card.Ease)
		}
		if card.Repetitions != 4 {
			t.Fatalf("expected one more repetition, got %+v", card)
		}
	})
}

func TestEaseNeverDropsBelowFloor(t *testing.T) {
	s := newTestScheduler(t)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	card := Card{
		ID:           "c1",
		State:        StateReview,
		Ease:         1.4,
		IntervalDays: 10,
		DueAt:        now,
		LastReview:   now.AddDate(0, 0, -10),
	}

	for i := 0; i < 10; i++ {
		now = now.Add(time.Hour)
		card = mustReview(t, s, card, Again, now)
		if card.Ease < DefaultEaseFloor {
			t.Fatalf("ease %.3f fell below floor after lapse %d", card.Ease, i+1)
		}
		now = now.Add(time.Hour)
		card = mustReview(t, s, card, Good, now)
		if card.State != StateReview {
			t.Fatalf("expected re-graduation, got %+v", card)
		}
	}
	if card.Ease != DefaultEaseFloor {
		t.Fatalf("expected ease pinned at floor %.2f, got %.3f", DefaultEaseFloor, card.Ease)
	}
	if card.Lapses != 10 {
		t.Fatalf("expected 10 lapses, got %+v", card)
	}
}

func TestLapseResetsRepetitions(t *testing.T) {
	s := newTestScheduler(t)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	card := NewCard("c1", "ref", 1, now)
	card = mustReview(t, s, card, Good, now)
	now = card.DueAt
	card = mustReview(t, s, card, Good, now)
	for i := 0; i < 4; i++ {
		now = card.DueAt
		card = mustReview(t, s, card, Good, now)
	}
	if card.Repetitions != 5 {
		t.Fatalf("expected 5 repetitions before lapse, got %+v", card)
	}

	now = card.DueAt
	card = mustReview(t, s, card, Again, now)
	if card.Lapses != 1 || card.Repetitions != 0 {
		t.Fatalf("expected lapses=1 repetitions=0, got %+v", card)
	}
}

func TestDueAtAlwaysRecomputedFromNow(t *testing.T) {
	s := newTestScheduler(t)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	card := Card{
		ID:           "c1",
		State:        StateReview,
		Ease:         2.5,
		IntervalDays: 3,
		DueAt:        now,
		LastReview:   now.AddDate(0, 0, -3),
	}

	// Review ten days late; the new due date is relative to the review
	// time, not the stale due date.
	late := now.AddDate(0, 0, 10)
	card = mustReview(t, s, card, Good, late)
	want := late.AddDate(0, 0, 8) // 3 * 2.5 = 7.5, rounds to 8
	if !card.DueAt.Equal(want) {
		t.Fatalf("expected due %v, got %v", want, card.DueAt)
	}
}

func TestDueAtMonotonicInReview(t *testing.T) {
	s := newTestScheduler(t)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	card := NewCard("c1", "ref", 1, now)
	card = mustReview(t, s, card, Good, now)
	now = card.DueAt
	card = mustReview(t, s, card, Good, now)

	for i, g := range []Grade{Good, Hard, Easy, Good, Hard, Easy, Good} {
		prevDue := card.DueAt
		now = card.DueAt
		card = mustReview(t, s, card, g, now)
		if !card.DueAt.After(prevDue) {
			t.Fatalf("review %d (%s): due %v did not advance past %v", i, g, card.DueAt, prevDue)
		}
	}
}

func TestReviewErrors(t *testing.T) {
	s := newTestScheduler(t)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	t.Run("invalid grade", func(t *testing.T) {
		card := NewCard("c1", "ref", 1, now)
		got, _, err := s.Review(card, Grade(9), now)
		if !errors.Is(err, ErrInvalidGrade) {
			t.Fatalf("expected ErrInvalidGrade, got %v", err)
		}
		if !reflect.DeepEqual(got, card) {
			t.Fatalf("card changed on error: %+v", got)
		}
	})

	t.Run("stale timestamp", func(t *testing.T) {
		card := Card{
			ID:         "c1",
			State:      StateReview,
			Ease:       2.5,
			LastReview: now,
			DueAt:      now.AddDate(0, 0, 1),
		}
		got, _, err := s.Review(card, Good, now.Add(-time.Minute))
		if !errors.Is(err, ErrStaleCard) {
			t.Fatalf("expected ErrStaleCard, got %v", err)
		}
		if !reflect.DeepEqual(got, card) {
			t.Fatalf("card changed on error: %+v", got)
		}
	})
}

func TestReviewDoesNotMutateInput(t *testing.T) {
	s := newTestScheduler(t)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	card := Card{
		ID:           "c1",
		State:        StateReview,
		Ease:         2.5,
		IntervalDays: 10,
		DueAt:        now,
		LastReview:   now.AddDate(0, 0, -10),
	}
	snapshot := card

	if _, _, err := s.Review(card, Good, now); err != nil {
		t.Fatalf("Review failed: %v", err)
	}
	if !reflect.DeepEqual(card, snapshot) {
		t.Fatalf("input card mutated: %+v", card)
	}
}

func TestReviewLog(t *testing.T) {
	s := newTestScheduler(t)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	card := NewCard("c1", "ref", 1, now)
	_, log, err := s.Review(card, Good, now)
	if err != nil {
		t.Fatalf("Review failed: %v", err)
	}
	want := ReviewLog{CardID: "c1", Grade: Good, PrevState: StateNew, ReviewedAt: now}
	if log != want {
		t.Fatalf("expected log %+v, got %+v", want, log)
	}
}

func TestReplayRebuildsCard(t *testing.T) {
	s := newTestScheduler(t)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	card := NewCard("c1", "ref", 1, now)
	var logs []ReviewLog
	replayed := card
	for _, g := range []Grade{Good, Good, Good, Again, Good} {
		now = card.DueAt
		var log ReviewLog
		var err error
		card, log, err = s.Review(card, g, now)
		if err != nil {
			t.Fatalf("Review failed: %v", err)
		}
		logs = append(logs, log)
	}

	got, err := s.Replay(replayed, logs)
	if err != nil {
		t.Fatalf("Replay failed: %v", err)
	}
	if !reflect.DeepEqual(got, card) {
		t.Fatalf("replayed card %+v differs from %+v", got, card)
	}

	logs[0].CardID = "other"
	if _, err := s.Replay(replayed, logs); err == nil {
		t.Fatal("expected error for mismatched log")
	}
}

func TestPreviewCoversAllGrades(t *testing.T) {
	s := newTestScheduler(t)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	card := Card{
		ID:           "c1",
		State:        StateReview,
		Ease:         2.5,
		IntervalDays: 10,
		DueAt:        now,
		LastReview:   now.AddDate(0, 0, -10),
	}

	preview := s.Preview(card, now)
	if len(preview) != 4 {
		t.Fatalf("expected 4 previews, got %d", len(preview))
	}
	if preview[Again].State != StateRelearning {
		t.Fatalf("expected Again preview in relearning, got %+v", preview[Again])
	}
	if preview[Good].IntervalDays != 25 {
		t.Fatalf("expected Good preview at 25d, got %+v", preview[Good])
	}
}

func TestNewSchedulerValidation(t *testing.T) {
	cases := []struct {
		name   string
		params Params
	}{
		{"negative learning step", Params{LearningSteps: []time.Duration{-time.Minute}}},
		{"empty learning steps", Params{LearningSteps: []time.Duration{}}},
		{"ease start below floor", Params{EaseStart: 1.1}},
		{"ceiling below floor", Params{EaseFloor: 2.0, EaseCeiling: 1.5}},
		{"hard multiplier too small", Params{HardMultiplier: 0.9}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewScheduler(tc.params); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
