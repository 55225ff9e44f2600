// Package session drives study sessions: it repeatedly asks the scheduler
// for the next due card, hands it to the presentation layer, and persists
// the outcome of each graded review.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fluentvoice/synapse/internal/domain"
	"github.com/fluentvoice/synapse/internal/srs"
	"github.com/fluentvoice/synapse/internal/storage"
)

// Store is the persistence the runner needs. *storage.DB satisfies it.
type Store interface {
	GetCard(learner, cardID string) (*storage.StoredCard, error)
	ListCards(learner string) ([]storage.StoredCard, error)
	SaveCard(learner string, c srs.Card, expectedRevision int64) error
	AppendReviewLog(learner string, log srs.ReviewLog) error
	CountNewIntroducedSince(learner string, since time.Time) (int, error)
	GetItem(hash string) (*domain.Item, error)
}

// DueCard is the next card to present, with its content payload attached.
type DueCard struct {
	Card srs.Card
	Item *domain.Item
	// DueCount is how many cards are due in total, for progress display.
	DueCount int
}

// Runner owns the fetch-compute-persist loop around the pure scheduler.
// Review submissions for the same card are serialized here, because the
// engine's transitions are not commutative.
type Runner struct {
	store Store
	sched *srs.Scheduler
	clock Clock

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewRunner wires a runner. A nil clock means the system clock.
func NewRunner(store Store, sched *srs.Scheduler, clock Clock) *Runner {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Runner{
		store: store,
		sched: sched,
		clock: clock,
		locks: make(map[string]*sync.Mutex),
	}
}

// NextDue returns the card to present next, or nil when nothing is due.
// Nil is the normal end-of-session signal. Repeated calls without an
// intervening SubmitReview return the same card.
func (r *Runner) NextDue(learner string) (*DueCard, error) {
	now := r.clock.Now()

	stored, err := r.store.ListCards(learner)
	if err != nil {
		return nil, fmt.Errorf("loading deck for %s: %w", learner, err)
	}
	deck := make([]srs.Card, len(stored))
	for i, sc := range stored {
		deck[i] = sc.Card
	}

	newShown, err := r.store.CountNewIntroducedSince(learner, startOfDay(now))
	if err != nil {
		return nil, fmt.Errorf("counting introduced cards for %s: %w", learner, err)
	}

	next := r.sched.SelectNext(deck, now, newShown)
	if next == nil {
		return nil, nil
	}

	item, err := r.store.GetItem(next.ContentRef)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("loading content for card %s: %w", next.ID, err)
	}

	return &DueCard{
		Card:     *next,
		Item:     item,
		DueCount: srs.CountDue(deck, now),
	}, nil
}

// SubmitReview applies a grade to a card and persists the result.
//
// When the scheduling computation succeeds but persistence fails, the
// computed card is still returned alongside the error so the caller can
// retry the save without recomputing. On a scheduling error the input
// snapshot is returned unchanged.
func (r *Runner) SubmitReview(learner, cardID string, grade srs.Grade) (srs.Card, error) {
	lock := r.cardLock(learner + "\x00" + cardID)
	lock.Lock()
	defer lock.Unlock()

	stored, err := r.store.GetCard(learner, cardID)
	if err != nil {
		return srs.Card{}, fmt.Errorf("loading card %s: %w", cardID, err)
	}

	next, log, err := r.sched.Review(stored.Card, grade, r.clock.Now())
	if err != nil {
		return stored.Card, err
	}

	if err := r.store.SaveCard(learner, next, stored.Revision); err != nil {
		return next, fmt.Errorf("saving card %s: %w", cardID, err)
	}
	if err := r.store.AppendReviewLog(learner, log); err != nil {
		return next, fmt.Errorf("journaling review of card %s: %w", cardID, err)
	}
	return next, nil
}

// Preview returns what each grade would do to the card, for annotating the
// grading controls. It computes only, nothing is persisted.
func (r *Runner) Preview(learner, cardID string) (map[srs.Grade]srs.Card, error) {
	stored, err := r.store.GetCard(learner, cardID)
	if err != nil {
		return nil, fmt.Errorf("loading card %s: %w", cardID, err)
	}
	return r.sched.Preview(stored.Card, r.clock.Now()), nil
}

func (r *Runner) cardLock(key string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.locks[key]
	if !ok {
		m = &sync.Mutex{}
		r.locks[key] = m
	}
	return m
}
