package config

import (
	"os"
	"strconv"

	"github.com/pkg/errors"

	"github.com/LdDl/beecount/logger"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "BEET_"

func lookupEnv(name string) (string, bool) {
	value, ok := os.LookupEnv(EnvPrefix + name)
	if !ok || value == "" {
		return "", false
	}
	return value, true
}

func envInt(name string, target *int) error {
	value, ok := lookupEnv(name)
	if !ok {
		return nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return errors.Wrapf(err, "Bad integer in %s%s", EnvPrefix, name)
	}
	*target = parsed
	return nil
}

func envFloat(name string, target *float64) error {
	value, ok := lookupEnv(name)
	if !ok {
		return nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return errors.Wrapf(err, "Bad number in %s%s", EnvPrefix, name)
	}
	*target = parsed
	return nil
}

func envString(name string, target *string) {
	if value, ok := lookupEnv(name); ok {
		*target = value
	}
}

// applyEnv overrides configuration with BEET_* variables
func (cfg *Config) applyEnv() error {
	if err := envInt("AGE_THRESHOLD", &cfg.Tracker.AgeThreshold); err != nil {
		return err
	}
	if err := envInt("MAX_TIME_INVISIBLE", &cfg.Tracker.MaxTimeInvisible); err != nil {
		return err
	}
	if err := envFloat("MIN_VISIBILITY", &cfg.Tracker.MinVisibility); err != nil {
		return err
	}
	if err := envFloat("MIN_AREA", &cfg.Tracker.MinArea); err != nil {
		return err
	}
	if err := envFloat("MAX_AREA", &cfg.Tracker.MaxArea); err != nil {
		return err
	}
	if err := envFloat("MAX_MATCH_DISTANCE", &cfg.Tracker.MaxMatchDistance); err != nil {
		return err
	}
	envString("ALGORITHM", &cfg.Tracker.Algorithm)
	envString("CROSSING_MODE", &cfg.Tracker.CrossingMode)
	if value, ok := lookupEnv("BOUNDARY"); ok {
		boundary, err := ParseBoundary(value)
		if err != nil {
			return errors.Wrapf(err, "Bad %sBOUNDARY", EnvPrefix)
		}
		cfg.Tracker.Boundary = boundary
	}

	if err := envInt("MOG2_HISTORY", &cfg.Detector.History); err != nil {
		return err
	}
	if err := envFloat("MOG2_VAR_THRESHOLD", &cfg.Detector.VarThreshold); err != nil {
		return err
	}
	if err := envInt("MOG2_LEARN_FRAMES", &cfg.Detector.LearnFrames); err != nil {
		return err
	}
	if cfg.Detector.LearnFrames < 0 {
		return errors.Errorf("%sMOG2_LEARN_FRAMES must be non-negative, got %d", EnvPrefix, cfg.Detector.LearnFrames)
	}

	if value, ok := lookupEnv("LOG_LEVEL"); ok {
		cfg.Log.Level = logger.LogLevel(value)
	}
	envString("LOG_FILE", &cfg.Log.OutputPath)
	envString("DB", &cfg.Storage.Path)
	return nil
}
