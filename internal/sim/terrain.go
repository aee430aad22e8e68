package sim

import (
	"fmt"
	"sort"

	"github.com/roverbench/slip.report/internal/config"
)

// TerrainProfile parameterizes how a terrain preset degrades traction
// and sensing. Profiles are plain values: picking a terrain swaps the
// whole strategy rather than branching on a name tag inside the
// generator.
type TerrainProfile struct {
	Name string
	// SlipFactor is the base fraction of commanded forward velocity
	// lost while a slip event is active, before environmental severity
	// factors are applied.
	SlipFactor float64
	// Roughness scales the measurement noise: rougher terrain shakes
	// the sensor head harder.
	Roughness float64
}

// Named terrain presets for the bench.
var terrainPresets = map[string]TerrainProfile{
	"bedrock":    {Name: "bedrock", SlipFactor: 0.05, Roughness: 0.25},
	"regolith":   {Name: "regolith", SlipFactor: 0.25, Roughness: 0.6},
	"gravel":     {Name: "gravel", SlipFactor: 0.35, Roughness: 0.8},
	"loose_sand": {Name: "loose_sand", SlipFactor: 0.55, Roughness: 1.0},
}

// TerrainByName returns the named terrain preset.
func TerrainByName(name string) (TerrainProfile, error) {
	p, ok := terrainPresets[name]
	if !ok {
		return TerrainProfile{}, fmt.Errorf("unknown terrain %q (valid: %v)", name, TerrainNames())
	}
	return p, nil
}

// TerrainNames returns the sorted preset names, for CLI help and error
// messages.
func TerrainNames() []string {
	names := make([]string, 0, len(terrainPresets))
	for name := range terrainPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// EnvFactors are the dimensionless environmental multipliers folded
// into slip severity.
type EnvFactors struct {
	Dust         float64
	Temperature  float64
	WheelWear    float64
	GravityRatio float64
	Sinkage      float64
}

// DefaultEnvFactors returns neutral factors (all 1.0), under which
// severity equals the terrain's base slip factor.
func DefaultEnvFactors() EnvFactors {
	return EnvFactors{Dust: 1, Temperature: 1, WheelWear: 1, GravityRatio: 1, Sinkage: 1}
}

// EnvFactorsFromTuning builds EnvFactors from a loaded TuningConfig.
func EnvFactorsFromTuning(cfg *config.TuningConfig) EnvFactors {
	return EnvFactors{
		Dust:         cfg.GetDustFactor(),
		Temperature:  cfg.GetTemperatureFactor(),
		WheelWear:    cfg.GetWheelWearFactor(),
		GravityRatio: cfg.GetGravityRatio(),
		Sinkage:      cfg.GetSinkageFactor(),
	}
}

// SeverityFunc maps a terrain profile and environmental factors to a
// slip severity in [0, 1]: the fraction of commanded forward velocity
// lost while slipping.
type SeverityFunc func(p TerrainProfile, env EnvFactors) float64

// MultiplicativeSeverity is the default severity composition: every
// environmental factor scales the terrain's base slip factor. Its
// physical fidelity is unverified, which is why the harness takes a
// SeverityFunc instead of hard-coding this arithmetic.
func MultiplicativeSeverity(p TerrainProfile, env EnvFactors) float64 {
	s := p.SlipFactor * env.Dust * env.Temperature * env.WheelWear * env.GravityRatio * env.Sinkage
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}
