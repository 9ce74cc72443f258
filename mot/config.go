package mot

import (
	"fmt"

	"github.com/pkg/errors"
)

// CrossingMode selects when boundary crossings are counted
type CrossingMode uint16

const (
	// CrossingModeRealtime checks last two positions of every active track once per frame
	CrossingModeRealtime CrossingMode = iota
	// CrossingModeDeferred counts transitions over full histories of lost tracks at the end of a run
	CrossingModeDeferred
)

func (mode CrossingMode) String() string {
	switch mode {
	case CrossingModeRealtime:
		return "realtime"
	case CrossingModeDeferred:
		return "deferred"
	default:
		return fmt.Sprintf("CrossingMode(%d)", uint16(mode))
	}
}

// ParseCrossingMode converts textual name into CrossingMode
func ParseCrossingMode(name string) (CrossingMode, error) {
	switch name {
	case "realtime", "":
		return CrossingModeRealtime, nil
	case "deferred":
		return CrossingModeDeferred, nil
	default:
		return 0, fmt.Errorf("unknown crossing mode: %q", name)
	}
}

// Config is immutable configuration of a single run
type Config struct {
	// Young tracks (age below this threshold) are dropped when their visibility is poor
	AgeThreshold int
	// Max number of consecutive frames without a match
	MaxTimeInvisible int
	// Visibility ratio young tracks must reach
	MinVisibility float64
	// Region whose edge crossings are counted
	Boundary Boundary
	// Blob area bounds passed to detector
	MinArea float64
	MaxArea float64
	// Algorithm to use for matching
	Algorithm MatchingAlgorithm
	// Pairs further apart than this distance are not matched. Zero disables the gate
	MaxMatchDistance float64
	// When crossings are counted
	CrossingMode CrossingMode
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	policy := DefaultLifecyclePolicy()
	return Config{
		AgeThreshold:     policy.AgeThreshold,
		MaxTimeInvisible: policy.MaxTimeInvisible,
		MinVisibility:    policy.MinVisibility,
		Boundary:         NewRect(200, 200, 200, 100),
		MinArea:          200,
		MaxArea:          1500,
		Algorithm:        MatchingAlgorithmHungarian,
		MaxMatchDistance: 0,
		CrossingMode:     CrossingModeRealtime,
	}
}

// Validate checks configuration for consistency
func (cfg Config) Validate() error {
	if cfg.AgeThreshold < 0 {
		return errors.Errorf("age threshold must be non-negative, got %d", cfg.AgeThreshold)
	}
	if cfg.MaxTimeInvisible < 0 {
		return errors.Errorf("max time invisible must be non-negative, got %d", cfg.MaxTimeInvisible)
	}
	if cfg.MinVisibility < 0 || cfg.MinVisibility > 1 {
		return errors.Errorf("min visibility must be within [0, 1], got %f", cfg.MinVisibility)
	}
	if cfg.Boundary.Empty() {
		return errors.Errorf("boundary must have positive width and height, got %vx%v", cfg.Boundary.Width, cfg.Boundary.Height)
	}
	if cfg.MinArea < 0 || cfg.MaxArea < cfg.MinArea {
		return errors.Errorf("invalid area bounds [%f, %f]", cfg.MinArea, cfg.MaxArea)
	}
	if cfg.MaxMatchDistance < 0 {
		return errors.Errorf("max match distance must be non-negative, got %f", cfg.MaxMatchDistance)
	}
	if cfg.Algorithm > MatchingAlgorithmGreedy {
		return errors.Errorf("unknown matching algorithm %s", cfg.Algorithm)
	}
	if cfg.CrossingMode > CrossingModeDeferred {
		return errors.Errorf("unknown crossing mode %s", cfg.CrossingMode)
	}
	return nil
}

// LifecyclePolicy extracts lifecycle part of configuration
func (cfg Config) LifecyclePolicy() LifecyclePolicy {
	return LifecyclePolicy{
		AgeThreshold:     cfg.AgeThreshold,
		MaxTimeInvisible: cfg.MaxTimeInvisible,
		MinVisibility:    cfg.MinVisibility,
	}
}
