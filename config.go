package ukf

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds the static configuration of a UKF.
type Config struct {
	// UseLidar and UseRadar toggle the correction step per sensor. A disabled
	// sensor is still used to initialize the filter.
	UseLidar bool `yaml:"use_lidar"`
	UseRadar bool `yaml:"use_radar"`

	// Process noise standard deviations.
	StdA     float64 `yaml:"std_a"`     // longitudinal acceleration (m/s²)
	StdYawdd float64 `yaml:"std_yawdd"` // yaw acceleration (rad/s²)

	// Lidar measurement noise standard deviations (m).
	StdLasPx float64 `yaml:"std_laspx"`
	StdLasPy float64 `yaml:"std_laspy"`

	// Radar measurement noise standard deviations.
	StdRadR   float64 `yaml:"std_radr"`   // range (m)
	StdRadPhi float64 `yaml:"std_radphi"` // bearing (rad)
	StdRadRd  float64 `yaml:"std_radrd"`  // range rate (m/s)

	// MinRange is the smallest sigma point range (m) the radar projection accepts.
	MinRange float64 `yaml:"min_range"`
	// MaxInnovationCond is the largest condition number of S accepted for the gain.
	MaxInnovationCond float64 `yaml:"max_innovation_cond"`
}

// DefaultConfig returns the configuration used when nothing else is specified.
func DefaultConfig() Config {
	return Config{
		UseLidar:          true,
		UseRadar:          true,
		StdA:              3,
		StdYawdd:          0.4,
		StdLasPx:          0.15,
		StdLasPy:          0.15,
		StdRadR:           0.3,
		StdRadPhi:         0.03,
		StdRadRd:          0.3,
		MinRange:          1e-4,
		MaxInnovationCond: 1e12,
	}
}

// Validate checks that the configuration values are usable.
func (c Config) Validate() error {
	stddevs := []struct {
		name string
		val  float64
	}{
		{"std_a", c.StdA},
		{"std_yawdd", c.StdYawdd},
		{"std_laspx", c.StdLasPx},
		{"std_laspy", c.StdLasPy},
		{"std_radr", c.StdRadR},
		{"std_radphi", c.StdRadPhi},
		{"std_radrd", c.StdRadRd},
	}
	for _, s := range stddevs {
		if math.IsNaN(s.val) || math.IsInf(s.val, 0) || s.val < 0 {
			return fmt.Errorf("%w: %s must be a finite non-negative number, got %f", ErrInvalidConfig, s.name, s.val)
		}
	}
	// The augmented covariance must stay positive definite.
	if c.StdA == 0 || c.StdYawdd == 0 {
		return fmt.Errorf("%w: process noise std_a and std_yawdd must be positive", ErrInvalidConfig)
	}
	if !(c.MinRange > 0) {
		return fmt.Errorf("%w: min_range must be positive, got %f", ErrInvalidConfig, c.MinRange)
	}
	if !(c.MaxInnovationCond >= 1) {
		return fmt.Errorf("%w: max_innovation_cond must be at least 1, got %f", ErrInvalidConfig, c.MaxInnovationCond)
	}
	return nil
}

// configFile is the on-disk form of a Config. Omitted fields keep their defaults.
type configFile struct {
	UseLidar          *bool    `yaml:"use_lidar"`
	UseRadar          *bool    `yaml:"use_radar"`
	StdA              *float64 `yaml:"std_a"`
	StdYawdd          *float64 `yaml:"std_yawdd"`
	StdLasPx          *float64 `yaml:"std_laspx"`
	StdLasPy          *float64 `yaml:"std_laspy"`
	StdRadR           *float64 `yaml:"std_radr"`
	StdRadPhi         *float64 `yaml:"std_radphi"`
	StdRadRd          *float64 `yaml:"std_radrd"`
	MinRange          *float64 `yaml:"min_range"`
	MaxInnovationCond *float64 `yaml:"max_innovation_cond"`
}

func (f configFile) apply(c *Config) {
	setBool := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}
	setFloat := func(dst *float64, src *float64) {
		if src != nil {
			*dst = *src
		}
	}
	setBool(&c.UseLidar, f.UseLidar)
	setBool(&c.UseRadar, f.UseRadar)
	setFloat(&c.StdA, f.StdA)
	setFloat(&c.StdYawdd, f.StdYawdd)
	setFloat(&c.StdLasPx, f.StdLasPx)
	setFloat(&c.StdLasPy, f.StdLasPy)
	setFloat(&c.StdRadR, f.StdRadR)
	setFloat(&c.StdRadPhi, f.StdRadPhi)
	setFloat(&c.StdRadRd, f.StdRadRd)
	setFloat(&c.MinRange, f.MinRange)
	setFloat(&c.MaxInnovationCond, f.MaxInnovationCond)
}

const maxConfigSize = 1 << 20

// LoadConfig loads a Config from a YAML file on top of DefaultConfig, so
// partial files are safe.
func LoadConfig(path string) (Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".yaml" && ext != ".yml" {
		return Config{}, fmt.Errorf("config file must have .yaml or .yml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return Config{}, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxConfigSize {
		return Config{}, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxConfigSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig parses YAML configuration bytes on top of DefaultConfig.
func ParseConfig(data []byte) (Config, error) {
	var f configFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Config{}, fmt.Errorf("failed to parse config YAML: %w", err)
	}
	cfg := DefaultConfig()
	f.apply(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
