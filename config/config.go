// Package config loads run configuration: defaults, then YAML file, then environment.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/LdDl/beecount/logger"
	"github.com/LdDl/beecount/mot"
)

// Config is the root configuration
type Config struct {
	Tracker  TrackerConfig  `yaml:"tracker"`
	Detector DetectorConfig `yaml:"detector"`
	Log      logger.Config  `yaml:"log"`
	Storage  StorageConfig  `yaml:"storage"`
}

// BoundaryConfig is the counting rectangle
type BoundaryConfig struct {
	X      float64 `yaml:"x"`
	Y      float64 `yaml:"y"`
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// TrackerConfig mirrors mot.Config with textual enums
type TrackerConfig struct {
	AgeThreshold     int            `yaml:"age_threshold"`
	MaxTimeInvisible int            `yaml:"max_time_invisible"`
	MinVisibility    float64        `yaml:"min_visibility"`
	Boundary         BoundaryConfig `yaml:"boundary"`
	MinArea          float64        `yaml:"min_area"`
	MaxArea          float64        `yaml:"max_area"`
	Algorithm        string         `yaml:"algorithm"`
	MaxMatchDistance float64        `yaml:"max_match_distance"`
	CrossingMode     string         `yaml:"crossing_mode"`
}

// DetectorConfig configures background subtraction for video input
type DetectorConfig struct {
	History       int     `yaml:"history"`
	VarThreshold  float64 `yaml:"var_threshold"`
	DetectShadows bool    `yaml:"detect_shadows"`
	KernelSize    int     `yaml:"kernel_size"`
	// Frames learned before tracking, zero disables warm-up
	LearnFrames int `yaml:"learn_frames"`
}

// StorageConfig points to SQLite database. Empty path disables storage
type StorageConfig struct {
	Path string `yaml:"path"`
}

// Default returns built-in configuration
func Default() *Config {
	motCfg := mot.DefaultConfig()
	return &Config{
		Tracker: TrackerConfig{
			AgeThreshold:     motCfg.AgeThreshold,
			MaxTimeInvisible: motCfg.MaxTimeInvisible,
			MinVisibility:    motCfg.MinVisibility,
			Boundary: BoundaryConfig{
				X:      motCfg.Boundary.X,
				Y:      motCfg.Boundary.Y,
				Width:  motCfg.Boundary.Width,
				Height: motCfg.Boundary.Height,
			},
			MinArea:          motCfg.MinArea,
			MaxArea:          motCfg.MaxArea,
			Algorithm:        motCfg.Algorithm.String(),
			MaxMatchDistance: motCfg.MaxMatchDistance,
			CrossingMode:     motCfg.CrossingMode.String(),
		},
		Detector: DetectorConfig{
			History:       2000,
			VarThreshold:  64,
			DetectShadows: true,
			KernelSize:    3,
			LearnFrames:   2000,
		},
		Log:     logger.DefaultConfig(),
		Storage: StorageConfig{},
	}
}

// Load builds configuration from defaults, optional YAML file and environment.
// Environment may be extended with dotenv files; when none given ".env" is tried.
// Variables already set in the process environment take precedence over dotenv files.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.readFile(path); err != nil {
			return nil, err
		}
	}
	if err := loadDotenv(envFiles); err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if _, err := cfg.Tracker.Mot(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) readFile(path string) error {
	cleanPath := filepath.Clean(path)
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return errors.Wrapf(err, "Can't read config file %s", cleanPath)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return errors.Wrapf(err, "Can't parse config file %s", cleanPath)
	}
	return nil
}

func loadDotenv(envFiles []string) error {
	if len(envFiles) == 0 {
		if _, err := os.Stat(".env"); err != nil {
			// No .env file, relying on existing environment variables and defaults
			return nil
		}
		envFiles = []string{".env"}
	}
	if err := godotenv.Load(envFiles...); err != nil {
		return errors.Wrap(err, "Can't load dotenv files")
	}
	return nil
}

// Mot converts configuration into mot.Config and validates it
func (tc TrackerConfig) Mot() (mot.Config, error) {
	algorithm, err := mot.ParseMatchingAlgorithm(tc.Algorithm)
	if err != nil {
		return mot.Config{}, errors.Wrap(err, "Invalid tracker configuration")
	}
	mode, err := mot.ParseCrossingMode(tc.CrossingMode)
	if err != nil {
		return mot.Config{}, errors.Wrap(err, "Invalid tracker configuration")
	}
	motCfg := mot.Config{
		AgeThreshold:     tc.AgeThreshold,
		MaxTimeInvisible: tc.MaxTimeInvisible,
		MinVisibility:    tc.MinVisibility,
		Boundary:         mot.NewRect(tc.Boundary.X, tc.Boundary.Y, tc.Boundary.Width, tc.Boundary.Height),
		MinArea:          tc.MinArea,
		MaxArea:          tc.MaxArea,
		Algorithm:        algorithm,
		MaxMatchDistance: tc.MaxMatchDistance,
		CrossingMode:     mode,
	}
	if err := motCfg.Validate(); err != nil {
		return mot.Config{}, errors.Wrap(err, "Invalid tracker configuration")
	}
	return motCfg, nil
}

// ParseBoundary parses "x,y,width,height"
func ParseBoundary(value string) (BoundaryConfig, error) {
	parts := strings.Split(value, ",")
	if len(parts) != 4 {
		return BoundaryConfig{}, errors.Errorf("boundary must be x,y,width,height, got %q", value)
	}
	numbers := make([]float64, 4)
	for i, part := range parts {
		number, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return BoundaryConfig{}, errors.Wrapf(err, "bad boundary component %q", part)
		}
		numbers[i] = number
	}
	return BoundaryConfig{X: numbers[0], Y: numbers[1], Width: numbers[2], Height: numbers[3]}, nil
}
