// Package srs implements the spaced-repetition scheduling engine.
//
// The engine is a pure library: a Scheduler computes the next state of a
// Card from a review Grade and a caller-supplied timestamp, and selects
// which card of a deck is due next. It performs no I/O, reads no clocks,
// and never mutates its inputs; hosts persist the returned values through
// whatever store they own.
package srs
