// Package config loads host configuration from defaults, an optional YAML
// file, SYNAPSE_-prefixed environment variables, and command-line flags,
// in that order of precedence.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/fluentvoice/synapse/internal/srs"
)

// Scheduler holds the engine tunables. Zero fields fall back to the
// engine's documented defaults.
type Scheduler struct {
	LearningSteps        []time.Duration `koanf:"learning_steps"`
	RelearningSteps      []time.Duration `koanf:"relearning_steps"`
	GraduateIntervalDays int             `koanf:"graduate_interval_days" validate:"min=0"`
	EasyIntervalDays     int             `koanf:"easy_interval_days" validate:"min=0"`
	RelearnIntervalDays  int             `koanf:"relearn_interval_days" validate:"min=0"`
	MaxIntervalDays      int             `koanf:"max_interval_days" validate:"min=0"`
	NewPerDay            int             `koanf:"new_per_day" validate:"min=0"`
	EaseStart            float64         `koanf:"ease_start" validate:"min=0"`
	EaseFloor            float64         `koanf:"ease_floor" validate:"min=0"`
	EaseCeiling          float64         `koanf:"ease_ceiling" validate:"min=0"`
	HardMultiplier       float64         `koanf:"hard_multiplier" validate:"min=0"`
	EasyBonus            float64         `koanf:"easy_bonus" validate:"min=0"`
	LapseEasePenalty     float64         `koanf:"lapse_ease_penalty" validate:"min=0"`
	HardEasePenalty      float64         `koanf:"hard_ease_penalty" validate:"min=0"`
	EasyEaseReward       float64         `koanf:"easy_ease_reward" validate:"min=0"`
}

// Config is the full host configuration.
type Config struct {
	DB       string `koanf:"db" validate:"required"`
	Addr     string `koanf:"addr" validate:"required,hostname_port"`
	Learner  string `koanf:"learner" validate:"required"`
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn error"`
	ReposDir string `koanf:"repos_dir" validate:"required"`

	Scheduler Scheduler `koanf:"scheduler"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		DB:       "synapse.db",
		Addr:     "localhost:8484",
		Learner:  "default",
		LogLevel: "info",
		ReposDir: "repos",
	}
}

// Load layers the optional YAML file at path, the environment, and the
// parsed flag set over the defaults, then validates the result.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	// SYNAPSE_SCHEDULER__NEW_PER_DAY=5 maps to scheduler.new_per_day.
	if err := k.Load(env.Provider("SYNAPSE_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "SYNAPSE_")), "__", ".")
	}), nil); err != nil {
		return Config{}, fmt.Errorf("loading environment: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return Config{}, fmt.Errorf("loading flags: %w", err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SchedulerParams converts the configured tunables into engine params.
func (c Config) SchedulerParams() srs.Params {
	s := c.Scheduler
	return srs.Params{
		LearningSteps:        s.LearningSteps,
		RelearningSteps:      s.RelearningSteps,
		GraduateIntervalDays: s.GraduateIntervalDays,
		EasyIntervalDays:     s.EasyIntervalDays,
		RelearnIntervalDays:  s.RelearnIntervalDays,
		MaxIntervalDays:      s.MaxIntervalDays,
		NewPerDay:            s.NewPerDay,
		EaseStart:            s.EaseStart,
		EaseFloor:            s.EaseFloor,
		EaseCeiling:          s.EaseCeiling,
		HardMultiplier:       s.HardMultiplier,
		EasyBonus:            s.EasyBonus,
		LapseEasePenalty:     s.LapseEasePenalty,
		HardEasePenalty:      s.HardEasePenalty,
		EasyEaseReward:       s.EasyEaseReward,
	}
}
