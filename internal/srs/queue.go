package srs

import (
	"container/heap"
	"time"
)

// dueEntry pairs a card with its position in the caller's deck slice, the
// final tie-break when AddedSeq collides.
type dueEntry struct {
	card Card
	pos  int
}

// dueHeap is a min-heap ordered by (DueAt, AddedSeq, deck position).
type dueHeap []dueEntry

func (h dueHeap) Len() int { return len(h) }

func (h dueHeap) Less(i, j int) bool {
	a, b := h[i], h[j]
	if !a.card.DueAt.Equal(b.card.DueAt) {
		return a.card.DueAt.Before(b.card.DueAt)
	}
	if a.card.AddedSeq != b.card.AddedSeq {
		return a.card.AddedSeq < b.card.AddedSeq
	}
	return a.pos < b.pos
}

func (h dueHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *dueHeap) Push(x any) { *h = append(*h, x.(dueEntry)) }

func (h *dueHeap) Pop() any {
	old := *h
	n := len(old)
	out := old[n-1]
	*h = old[:n-1]
	return out
}

// SelectNext returns the card to review next, or nil when nothing is due.
// Nil is the normal end-of-session signal, not an error.
//
// Eligible cards have DueAt <= now; New cards are additionally gated by the
// daily cap, with newShownToday counting how many New cards this day has
// already introduced (hosts derive it from the review journal). Ordering is
// earliest DueAt first, insertion order on ties, so repeated calls without
// an intervening review return the identical card.
func (s *Scheduler) SelectNext(deck []Card, now time.Time, newShownToday int) *Card {
	due := s.DueQueue(deck, now, newShownToday, 1)
	if len(due) == 0 {
		return nil
	}
	c := due[0]
	return &c
}

// DueQueue returns up to limit due cards in review order, under the same
// eligibility rules as SelectNext. A limit <= 0 means no limit. Building
// the heap is O(n); extracting k cards costs O(k log n).
func (s *Scheduler) DueQueue(deck []Card, now time.Time, newShownToday int, limit int) []Card {
	allowNew := s.params.NewPerDay - newShownToday
	if allowNew < 0 {
		allowNew = 0
	}

	h := make(dueHeap, 0, len(deck))
	for i, c := range deck {
		if c.DueAt.After(now) {
			continue
		}
		h = append(h, dueEntry{card: c, pos: i})
	}
	heap.Init(&h)

	if limit <= 0 {
		limit = h.Len()
	}
	out := make([]Card, 0, min(limit, h.Len()))
	for h.Len() > 0 && len(out) < limit {
		e := heap.Pop(&h).(dueEntry)
		if e.card.State == StateNew {
			if allowNew == 0 {
				continue
			}
			allowNew--
		}
		out = append(out, e.card)
	}
	return out
}

// CountDue reports how many cards are due at now, ignoring the new-card cap.
func CountDue(deck []Card, now time.Time) int {
	n := 0
	for _, c := range deck {
		if !c.DueAt.After(now) {
			n++
		}
	}
	return n
}
