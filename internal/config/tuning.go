package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig represents the root configuration for tuning parameters:
// filter noise covariances, slip-detector thresholds and synthetic
// bench parameters. Fields omitted from the JSON retain their
// defaults, so partial configs are safe.
type TuningConfig struct {
	// Filter params (diagonals of Q and R, by state component group)
	ProcessNoisePos         *float64 `json:"process_noise_pos,omitempty"`
	ProcessNoiseAlt         *float64 `json:"process_noise_alt,omitempty"`
	ProcessNoiseHeading     *float64 `json:"process_noise_heading,omitempty"`
	ProcessNoisePitch       *float64 `json:"process_noise_pitch,omitempty"`
	MeasurementNoisePos     *float64 `json:"measurement_noise_pos,omitempty"`
	MeasurementNoiseAlt     *float64 `json:"measurement_noise_alt,omitempty"`
	MeasurementNoiseHeading *float64 `json:"measurement_noise_heading,omitempty"`
	MeasurementNoisePitch   *float64 `json:"measurement_noise_pitch,omitempty"`
	InitialCovScale         *float64 `json:"initial_cov_scale,omitempty"`

	// Slip detector params
	SlipInnovationThreshold *float64 `json:"slip_innovation_threshold,omitempty"`
	MinSlipDuration         *string  `json:"min_slip_duration,omitempty"` // duration string like "600ms"

	// Synthetic bench params
	Terrain       *string  `json:"terrain,omitempty"`
	SimNoiseScale *float64 `json:"sim_noise_scale,omitempty"`

	// Environmental severity factors (dimensionless multipliers)
	DustFactor        *float64 `json:"dust_factor,omitempty"`
	TemperatureFactor *float64 `json:"temperature_factor,omitempty"`
	WheelWearFactor   *float64 `json:"wheel_wear_factor,omitempty"`
	GravityRatio      *float64 `json:"gravity_ratio,omitempty"`
	SinkageFactor     *float64 `json:"sinkage_factor,omitempty"`
}

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from the defaults file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is
// under the max file size.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse JSON into empty config. The Get* methods provide fallback
	// defaults for any fields not specified in the JSON.
	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from
// DefaultConfigPath. It searches the current directory and common
// parent directories. Panics if the file cannot be loaded, intended
// for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/<pkg>/
		"../../../" + DefaultConfigPath, // deeper packages
		"../../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	nonNegative := []struct {
		name string
		val  *float64
	}{
		{"process_noise_pos", c.ProcessNoisePos},
		{"process_noise_alt", c.ProcessNoiseAlt},
		{"process_noise_heading", c.ProcessNoiseHeading},
		{"process_noise_pitch", c.ProcessNoisePitch},
		{"measurement_noise_pos", c.MeasurementNoisePos},
		{"measurement_noise_alt", c.MeasurementNoiseAlt},
		{"measurement_noise_heading", c.MeasurementNoiseHeading},
		{"measurement_noise_pitch", c.MeasurementNoisePitch},
		{"initial_cov_scale", c.InitialCovScale},
		{"sim_noise_scale", c.SimNoiseScale},
		{"dust_factor", c.DustFactor},
		{"temperature_factor", c.TemperatureFactor},
		{"wheel_wear_factor", c.WheelWearFactor},
		{"gravity_ratio", c.GravityRatio},
		{"sinkage_factor", c.SinkageFactor},
	}
	for _, f := range nonNegative {
		if f.val != nil && *f.val < 0 {
			return fmt.Errorf("%s must be non-negative, got %f", f.name, *f.val)
		}
	}

	if c.SlipInnovationThreshold != nil && *c.SlipInnovationThreshold <= 0 {
		return fmt.Errorf("slip_innovation_threshold must be positive, got %f", *c.SlipInnovationThreshold)
	}

	if c.MinSlipDuration != nil && *c.MinSlipDuration != "" {
		d, err := time.ParseDuration(*c.MinSlipDuration)
		if err != nil {
			return fmt.Errorf("invalid min_slip_duration '%s': %w", *c.MinSlipDuration, err)
		}
		if d <= 0 {
			return fmt.Errorf("min_slip_duration must be positive, got %s", d)
		}
	}

	return nil
}

// GetProcessNoisePos returns the process_noise_pos value or the default.
func (c *TuningConfig) GetProcessNoisePos() float64 {
	if c.ProcessNoisePos == nil {
		return 0.01
	}
	return *c.ProcessNoisePos
}

// GetProcessNoiseAlt returns the process_noise_alt value or the default.
func (c *TuningConfig) GetProcessNoiseAlt() float64 {
	if c.ProcessNoiseAlt == nil {
		return 0.01
	}
	return *c.ProcessNoiseAlt
}

// GetProcessNoiseHeading returns the process_noise_heading value or the default.
func (c *TuningConfig) GetProcessNoiseHeading() float64 {
	if c.ProcessNoiseHeading == nil {
		return 0.005
	}
	return *c.ProcessNoiseHeading
}

// GetProcessNoisePitch returns the process_noise_pitch value or the default.
func (c *TuningConfig) GetProcessNoisePitch() float64 {
	if c.ProcessNoisePitch == nil {
		return 0.005
	}
	return *c.ProcessNoisePitch
}

// GetMeasurementNoisePos returns the measurement_noise_pos value or the default.
func (c *TuningConfig) GetMeasurementNoisePos() float64 {
	if c.MeasurementNoisePos == nil {
		return 0.05
	}
	return *c.MeasurementNoisePos
}

// GetMeasurementNoiseAlt returns the measurement_noise_alt value or the default.
func (c *TuningConfig) GetMeasurementNoiseAlt() float64 {
	if c.MeasurementNoiseAlt == nil {
		return 0.05
	}
	return *c.MeasurementNoiseAlt
}

// GetMeasurementNoiseHeading returns the measurement_noise_heading value or the default.
func (c *TuningConfig) GetMeasurementNoiseHeading() float64 {
	if c.MeasurementNoiseHeading == nil {
		return 0.02
	}
	return *c.MeasurementNoiseHeading
}

// GetMeasurementNoisePitch returns the measurement_noise_pitch value or the default.
func (c *TuningConfig) GetMeasurementNoisePitch() float64 {
	if c.MeasurementNoisePitch == nil {
		return 0.02
	}
	return *c.MeasurementNoisePitch
}

// GetInitialCovScale returns the initial_cov_scale value or the default.
func (c *TuningConfig) GetInitialCovScale() float64 {
	if c.InitialCovScale == nil {
		return 1.0
	}
	return *c.InitialCovScale
}

// GetSlipInnovationThreshold returns the slip_innovation_threshold value or the default.
func (c *TuningConfig) GetSlipInnovationThreshold() float64 {
	if c.SlipInnovationThreshold == nil {
		return 0.35
	}
	return *c.SlipInnovationThreshold
}

// GetMinSlipDuration parses and returns the MinSlipDuration as a time.Duration.
func (c *TuningConfig) GetMinSlipDuration() time.Duration {
	if c.MinSlipDuration == nil || *c.MinSlipDuration == "" {
		return 600 * time.Millisecond // default
	}
	d, err := time.ParseDuration(*c.MinSlipDuration)
	if err != nil {
		return 600 * time.Millisecond // default on parse error
	}
	return d
}

// GetTerrain returns the terrain value or the default.
func (c *TuningConfig) GetTerrain() string {
	if c.Terrain == nil || *c.Terrain == "" {
		return "regolith"
	}
	return *c.Terrain
}

// GetSimNoiseScale returns the sim_noise_scale value or the default.
func (c *TuningConfig) GetSimNoiseScale() float64 {
	if c.SimNoiseScale == nil {
		return 1.0
	}
	return *c.SimNoiseScale
}

// GetDustFactor returns the dust_factor value or the default.
func (c *TuningConfig) GetDustFactor() float64 {
	if c.DustFactor == nil {
		return 1.0
	}
	return *c.DustFactor
}

// GetTemperatureFactor returns the temperature_factor value or the default.
func (c *TuningConfig) GetTemperatureFactor() float64 {
	if c.TemperatureFactor == nil {
		return 1.0
	}
	return *c.TemperatureFactor
}

// GetWheelWearFactor returns the wheel_wear_factor value or the default.
func (c *TuningConfig) GetWheelWearFactor() float64 {
	if c.WheelWearFactor == nil {
		return 1.0
	}
	return *c.WheelWearFactor
}

// GetGravityRatio returns the gravity_ratio value or the default.
func (c *TuningConfig) GetGravityRatio() float64 {
	if c.GravityRatio == nil {
		return 1.0
	}
	return *c.GravityRatio
}

// GetSinkageFactor returns the sinkage_factor value or the default.
func (c *TuningConfig) GetSinkageFactor() float64 {
	if c.SinkageFactor == nil {
		return 1.0
	}
	return *c.SinkageFactor
}
