// Package config loads scheduler settings from a TOML file and the
// environment.
//
// Precedence, lowest to highest:
//   - built-in defaults (Default)
//   - the TOML file passed to Load
//   - ADMIT_* environment variables
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"

	adm "github.com/Andrej220/go-utils/admission"
)

// Config is the root of the configuration file.
type Config struct {
	Scheduler SchedulerConfig `toml:"scheduler"`
}

// SchedulerConfig mirrors admission.Options in file form.
//
// Durations are written as Go duration strings ("200ms", "1s").
// A zero pacing delay or retry count disables the feature.
type SchedulerConfig struct {
	MaxConcurrent int           `toml:"max_concurrent"`
	MaxRetries    int           `toml:"max_retries"`
	PacingDelay   time.Duration `toml:"pacing_delay"`
	BackoffUnit   time.Duration `toml:"backoff_unit"`
	BackoffMax    time.Duration `toml:"backoff_max"`
	Jitter        bool          `toml:"jitter"`

	// Requeue is "priority" or "tail".
	Requeue string `toml:"requeue"`

	// Settlement is "final" or "first_attempt".
	Settlement string `toml:"settlement"`

	DispatchRate  float64 `toml:"dispatch_rate"`
	DispatchBurst int     `toml:"dispatch_burst"`
}

const (
	RequeuePriority = "priority"
	RequeueTail     = "tail"

	SettleFinal        = "final"
	SettleFirstAttempt = "first_attempt"
)

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Scheduler: SchedulerConfig{
			MaxConcurrent: adm.DefaultMaxConcurrent,
			MaxRetries:    3,
			PacingDelay:   adm.DefaultPacingDelay,
			BackoffUnit:   time.Second,
			Requeue:       RequeuePriority,
			Settlement:    SettleFinal,
		},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode TOML file %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg.Scheduler); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	s := c.Scheduler
	var errs []error
	if s.MaxConcurrent < 1 {
		errs = append(errs, fmt.Errorf("scheduler.max_concurrent must be >= 1, got %d", s.MaxConcurrent))
	}
	if s.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("scheduler.max_retries must be >= 0, got %d", s.MaxRetries))
	}
	if s.PacingDelay < 0 {
		errs = append(errs, fmt.Errorf("scheduler.pacing_delay must be >= 0, got %s", s.PacingDelay))
	}
	if s.BackoffUnit <= 0 {
		errs = append(errs, fmt.Errorf("scheduler.backoff_unit must be > 0, got %s", s.BackoffUnit))
	}
	if s.BackoffMax < 0 {
		errs = append(errs, fmt.Errorf("scheduler.backoff_max must be >= 0, got %s", s.BackoffMax))
	}
	if s.Requeue != RequeuePriority && s.Requeue != RequeueTail {
		errs = append(errs, fmt.Errorf("scheduler.requeue must be %q or %q, got %q", RequeuePriority, RequeueTail, s.Requeue))
	}
	if s.Settlement != SettleFinal && s.Settlement != SettleFirstAttempt {
		errs = append(errs, fmt.Errorf("scheduler.settlement must be %q or %q, got %q", SettleFinal, SettleFirstAttempt, s.Settlement))
	}
	if s.DispatchRate < 0 {
		errs = append(errs, fmt.Errorf("scheduler.dispatch_rate must be >= 0, got %g", s.DispatchRate))
	}
	if s.DispatchBurst < 0 {
		errs = append(errs, fmt.Errorf("scheduler.dispatch_burst must be >= 0, got %d", s.DispatchBurst))
	}
	return errors.Join(errs...)
}

// Options converts the file settings into scheduler options.
// Metrics and error handlers are left for the caller to set.
func (c *Config) Options() adm.Options {
	s := c.Scheduler
	opts := adm.Options{
		MaxConcurrent: s.MaxConcurrent,
		PacingDelay:   s.PacingDelay,
		DispatchRate:  s.DispatchRate,
		DispatchBurst: s.DispatchBurst,
		Retry: adm.RetryPolicy{
			MaxRetries: s.MaxRetries,
			Backoff:    adm.ExponentialBackoff{Unit: s.BackoffUnit, Max: s.BackoffMax},
		},
	}
	if s.PacingDelay == 0 {
		opts.PacingDelay = -1
	}
	if s.MaxRetries == 0 {
		opts.Retry.MaxRetries = -1
	}
	if s.Jitter {
		opts.Retry.Backoff = adm.JitterBackoff{Initial: s.BackoffUnit, Max: s.BackoffMax}
	}
	if s.Requeue == RequeueTail {
		opts.Requeue = adm.RequeueAtTail
	}
	if s.Settlement == SettleFirstAttempt {
		opts.Settlement = adm.SettleOnFirstAttempt
	}
	return opts
}

func applyEnv(s *SchedulerConfig) error {
	var errs []error
	envInt := func(name string, dst *int) {
		if v := os.Getenv(name); v != "" {
			i, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = i
		}
	}
	envDuration := func(name string, dst *time.Duration) {
		if v := os.Getenv(name); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = d
		}
	}

	envInt("ADMIT_MAX_CONCURRENT", &s.MaxConcurrent)
	envInt("ADMIT_MAX_RETRIES", &s.MaxRetries)
	envDuration("ADMIT_PACING_DELAY", &s.PacingDelay)
	envDuration("ADMIT_BACKOFF_UNIT", &s.BackoffUnit)
	envDuration("ADMIT_BACKOFF_MAX", &s.BackoffMax)
	if v := os.Getenv("ADMIT_REQUEUE"); v != "" {
		s.Requeue = v
	}
	if v := os.Getenv("ADMIT_SETTLEMENT"); v != "" {
		s.Settlement = v
	}
	if v := os.Getenv("ADMIT_DISPATCH_RATE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("ADMIT_DISPATCH_RATE: %w", err))
		} else {
			s.DispatchRate = f
		}
	}
	envInt("ADMIT_DISPATCH_BURST", &s.DispatchBurst)
	return errors.Join(errs...)
}
