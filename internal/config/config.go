// Package config loads the engine's tunables from GRIDVIEW_* environment
// variables and converts them into component options.
package config

import (
	"fmt"
	"time"

	"github.com/IvanBrykalov/gridview/catalog"
	"github.com/IvanBrykalov/gridview/controller"
	"github.com/IvanBrykalov/gridview/grid"
	"github.com/IvanBrykalov/gridview/preload"
	"github.com/IvanBrykalov/gridview/retry"
	"github.com/caarlos0/env/v11"
	perrors "github.com/jmgilman/go/errors"
)

// Config holds every overridable constant.
type Config struct {
	VirtualizationThreshold int `env:"GRIDVIEW_VIRTUALIZATION_THRESHOLD" envDefault:"50"`
	Overscan                int `env:"GRIDVIEW_OVERSCAN"                 envDefault:"2"`
	PreloadConcurrency      int `env:"GRIDVIEW_PRELOAD_CONCURRENCY"      envDefault:"3"`
	InitialPreload          int `env:"GRIDVIEW_INITIAL_PRELOAD"          envDefault:"6"`

	// A negative TTL disables page expiry and a negative sweep disables
	// the background sweeper. Zero is rejected: the cache reads it as unset.
	CacheTTL   time.Duration `env:"GRIDVIEW_CACHE_TTL"   envDefault:"20m"`
	CacheSweep time.Duration `env:"GRIDVIEW_CACHE_SWEEP" envDefault:"5m"`

	RetryMax            int           `env:"GRIDVIEW_RETRY_MAX"             envDefault:"3"`
	RetryBaseDelay      time.Duration `env:"GRIDVIEW_RETRY_BASE_DELAY"      envDefault:"1s"`
	RetryMaxDelay       time.Duration `env:"GRIDVIEW_RETRY_MAX_DELAY"       envDefault:"10s"`
	RetryAttemptTimeout time.Duration `env:"GRIDVIEW_RETRY_ATTEMPT_TIMEOUT" envDefault:"0"`

	PageSize   int     `env:"GRIDVIEW_PAGE_SIZE"   envDefault:"60"`
	ItemHeight float64 `env:"GRIDVIEW_ITEM_HEIGHT" envDefault:"480"`
	Gap        float64 `env:"GRIDVIEW_GAP"         envDefault:"24"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects values no component can work with.
func (c Config) Validate() error {
	switch {
	case c.VirtualizationThreshold < 1:
		return invalid("GRIDVIEW_VIRTUALIZATION_THRESHOLD must be >= 1, got %d", c.VirtualizationThreshold)
	case c.Overscan < 0:
		return invalid("GRIDVIEW_OVERSCAN must be >= 0, got %d", c.Overscan)
	case c.PreloadConcurrency < 1:
		return invalid("GRIDVIEW_PRELOAD_CONCURRENCY must be >= 1, got %d", c.PreloadConcurrency)
	case c.CacheTTL == 0:
		return invalid("GRIDVIEW_CACHE_TTL must be non-zero (negative disables expiry)")
	case c.CacheSweep == 0:
		return invalid("GRIDVIEW_CACHE_SWEEP must be non-zero (negative disables sweeping)")
	case c.RetryMax < 0:
		return invalid("GRIDVIEW_RETRY_MAX must be >= 0, got %d", c.RetryMax)
	case c.RetryBaseDelay <= 0 || c.RetryMaxDelay < c.RetryBaseDelay:
		return invalid("retry delays must satisfy 0 < base (%s) <= max (%s)", c.RetryBaseDelay, c.RetryMaxDelay)
	case c.PageSize < 1:
		return invalid("GRIDVIEW_PAGE_SIZE must be >= 1, got %d", c.PageSize)
	case c.ItemHeight+c.Gap <= 0 || c.ItemHeight < 0 || c.Gap < 0:
		return invalid("item height %v and gap %v must give a positive row height", c.ItemHeight, c.Gap)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return perrors.Newf(perrors.CodeInvalidConfig, "config: "+format, args...)
}

// Layout returns the grid geometry.
func (c Config) Layout() grid.Layout {
	return grid.Layout{ItemHeight: c.ItemHeight, Gap: c.Gap, Overscan: c.Overscan}
}

// Retry returns the retry executor settings.
func (c Config) Retry() *retry.Config {
	rc := retry.DefaultConfig()
	rc.MaxRetries = c.RetryMax
	rc.BaseDelay = c.RetryBaseDelay
	rc.MaxDelay = c.RetryMaxDelay
	rc.AttemptTimeout = c.RetryAttemptTimeout
	return rc
}

// Preload returns scheduler options.
func (c Config) Preload() preload.Options {
	return preload.Options{Concurrency: c.PreloadConcurrency}
}

// Feed returns catalog feed options.
func (c Config) Feed() catalog.FeedOptions {
	return catalog.FeedOptions{
		PageSize:      c.PageSize,
		TTL:           c.CacheTTL,
		SweepInterval: c.CacheSweep,
		Retry:         c.Retry(),
	}
}

// Controller returns controller options for item type T. InitialPreload
// of 0 is mapped to "disabled".
func Controller[T grid.Item](c Config) controller.Options[T] {
	initial := c.InitialPreload
	if initial == 0 {
		initial = -1
	}
	return controller.Options[T]{
		Threshold:      c.VirtualizationThreshold,
		InitialPreload: initial,
		Layout:         c.Layout(),
	}
}
