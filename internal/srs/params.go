package srs

import (
	"fmt"
	"time"
)

// Defaults for the scheduling tunables. Exposed so hosts can reference them
// when building partial configurations.
const (
	DefaultEaseStart   = 2.5
	DefaultEaseFloor   = 1.3
	DefaultEaseCeiling = 3.0

	DefaultGraduateIntervalDays = 1
	DefaultEasyIntervalDays     = 4
	DefaultRelearnIntervalDays  = 1
	DefaultMaxIntervalDays      = 36500
	DefaultNewPerDay            = 10

	DefaultHardMultiplier   = 1.2
	DefaultEasyBonus        = 1.3
	DefaultLapseEasePenalty = 0.20
	DefaultHardEasePenalty  = 0.15
	DefaultEasyEaseReward   = 0.15
)

// Params holds the scheduling tunables. The zero value is usable: every
// unset field is filled with its default by NewScheduler.
type Params struct {
	// LearningSteps are the sub-day delays a card works through before
	// graduating to Review. Default [1m, 10m].
	LearningSteps []time.Duration
	// RelearningSteps are the delays after a lapse. Default [10m].
	RelearningSteps []time.Duration

	// GraduateIntervalDays is the first Review interval after graduating
	// with Good. Default 1.
	GraduateIntervalDays int
	// EasyIntervalDays is the first Review interval when Easy skips the
	// remaining learning steps. Default 4.
	EasyIntervalDays int
	// RelearnIntervalDays is the Review interval after recovering from a
	// lapse. Default 1.
	RelearnIntervalDays int
	// MaxIntervalDays caps interval growth. Default 36500.
	MaxIntervalDays int
	// NewPerDay caps how many never-seen cards a single day may introduce.
	// Default 10.
	NewPerDay int

	// EaseStart is the ease assigned to new cards. Default 2.5.
	EaseStart float64
	// EaseFloor bounds ease decay. Default 1.3.
	EaseFloor float64
	// EaseCeiling bounds ease growth. Default 3.0.
	EaseCeiling float64

	// HardMultiplier scales the interval on Review+Hard. Default 1.2.
	HardMultiplier float64
	// EasyBonus extra-scales the interval on Review+Easy. Default 1.3.
	EasyBonus float64

	// LapseEasePenalty is subtracted from ease on a lapse. Default 0.20.
	LapseEasePenalty float64
	// HardEasePenalty is subtracted from ease on Review+Hard. Default 0.15.
	HardEasePenalty float64
	// EasyEaseReward is added to ease on Review+Easy. Default 0.15.
	EasyEaseReward float64
}

// DefaultParams returns the documented defaults.
func DefaultParams() Params {
	return Params{}.withDefaults()
}

// withDefaults fills every zero field with its default value.
func (p Params) withDefaults() Params {
	if p.LearningSteps == nil {
		p.LearningSteps = []time.Duration{time.Minute, 10 * time.Minute}
	}
	if p.RelearningSteps == nil {
		p.RelearningSteps = []time.Duration{10 * time.Minute}
	}
	if p.GraduateIntervalDays == 0 {
		p.GraduateIntervalDays = DefaultGraduateIntervalDays
	}
	if p.EasyIntervalDays == 0 {
		p.EasyIntervalDays = DefaultEasyIntervalDays
	}
	if p.RelearnIntervalDays == 0 {
		p.RelearnIntervalDays = DefaultRelearnIntervalDays
	}
	if p.MaxIntervalDays == 0 {
		p.MaxIntervalDays = DefaultMaxIntervalDays
	}
	if p.NewPerDay == 0 {
		p.NewPerDay = DefaultNewPerDay
	}
	if p.EaseStart == 0 {
		p.EaseStart = DefaultEaseStart
	}
	if p.EaseFloor == 0 {
		p.EaseFloor = DefaultEaseFloor
	}
	if p.EaseCeiling == 0 {
		p.EaseCeiling = DefaultEaseCeiling
	}
	if p.HardMultiplier == 0 {
		p.HardMultiplier = DefaultHardMultiplier
	}
	if p.EasyBonus == 0 {
		p.EasyBonus = DefaultEasyBonus
	}
	if p.LapseEasePenalty == 0 {
		p.LapseEasePenalty = DefaultLapseEasePenalty
	}
	if p.HardEasePenalty == 0 {
		p.HardEasePenalty = DefaultHardEasePenalty
	}
	if p.EasyEaseReward == 0 {
		p.EasyEaseReward = DefaultEasyEaseReward
	}
	return p
}

// validate rejects combinations the state machine cannot make progress with.
func (p Params) validate() error {
	if len(p.LearningSteps) == 0 {
		return fmt.Errorf("srs: at least one learning step is required")
	}
	for i, step := range p.LearningSteps {
		if step <= 0 {
			return fmt.Errorf("srs: learning step %d must be positive, got %s", i, step)
		}
	}
	if len(p.RelearningSteps) == 0 {
		return fmt.Errorf("srs: at least one relearning step is required")
	}
	for i, step := range p.RelearningSteps {
		if step <= 0 {
			return fmt.Errorf("srs: relearning step %d must be positive, got %s", i, step)
		}
	}
	if p.GraduateIntervalDays < 1 || p.EasyIntervalDays < 1 || p.RelearnIntervalDays < 1 {
		return fmt.Errorf("srs: graduation intervals must be at least one day")
	}
	if p.MaxIntervalDays < 1 {
		return fmt.Errorf("srs: max interval %d must be at least one day", p.MaxIntervalDays)
	}
	if p.NewPerDay < 0 {
		return fmt.Errorf("srs: new-card cap %d must not be negative", p.NewPerDay)
	}
	if p.EaseFloor < 1 {
		return fmt.Errorf("srs: ease floor %.2f must be at least 1", p.EaseFloor)
	}
	if p.EaseCeiling < p.EaseFloor {
		return fmt.Errorf("srs: ease ceiling %.2f below floor %.2f", p.EaseCeiling, p.EaseFloor)
	}
	if p.EaseStart < p.EaseFloor || p.EaseStart > p.EaseCeiling {
		return fmt.Errorf("srs: ease start %.2f outside [%.2f, %.2f]", p.EaseStart, p.EaseFloor, p.EaseCeiling)
	}
	if p.HardMultiplier <= 1 {
		return fmt.Errorf("srs: hard multiplier %.2f must exceed 1", p.HardMultiplier)
	}
	if p.EasyBonus < 1 {
		return fmt.Errorf("srs: easy bonus %.2f must be at least 1", p.EasyBonus)
	}
	if p.LapseEasePenalty < 0 || p.HardEasePenalty < 0 || p.EasyEaseReward < 0 {
		return fmt.Errorf("srs: ease adjustments must not be negative")
	}
	return nil
}
