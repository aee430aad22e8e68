package sim_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roverbench/slip.report/internal/estimator"
	"github.com/roverbench/slip.report/internal/sim"
)

func regolithConfig() sim.Config {
	terrain, _ := sim.TerrainByName("regolith")
	return sim.Config{
		Terrain:    terrain,
		Env:        sim.DefaultEnvFactors(),
		NoiseSigma: sim.DefaultNoiseSigma(),
		NoiseScale: 1.0,
		Seed:       42,
	}
}

func TestTerrainByName(t *testing.T) {
	for _, name := range sim.TerrainNames() {
		p, err := sim.TerrainByName(name)
		require.NoError(t, err)
		assert.Equal(t, name, p.Name)
		assert.Greater(t, p.SlipFactor, 0.0)
		assert.Greater(t, p.Roughness, 0.0)
	}

	_, err := sim.TerrainByName("basalt_dunes")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "basalt_dunes")
	assert.Contains(t, err.Error(), "regolith", "error should list valid names")
}

func TestTerrainOrdering(t *testing.T) {
	bedrock, _ := sim.TerrainByName("bedrock")
	sand, _ := sim.TerrainByName("loose_sand")
	assert.Less(t, bedrock.SlipFactor, sand.SlipFactor)
	assert.Less(t, bedrock.Roughness, sand.Roughness)
}

func TestSameSeedSameRun(t *testing.T) {
	cfg := regolithConfig()
	a := sim.NewHarness(cfg)
	b := sim.NewHarness(cfg)

	u := estimator.Control{0.7, 0, 0.1, 0}
	for i := 0; i < 50; i++ {
		outA := a.Step(u, 0.1)
		outB := b.Step(u, 0.1)
		if diff := cmp.Diff(outA, outB); diff != "" {
			t.Fatalf("runs diverged at step %d (-a +b):\n%s", i, diff)
		}
	}
}

func TestDifferentSeedsDiverge(t *testing.T) {
	cfgA := regolithConfig()
	cfgB := regolithConfig()
	cfgB.Seed = 43
	a := sim.NewHarness(cfgA)
	b := sim.NewHarness(cfgB)

	u := estimator.Control{0.7, 0, 0, 0}
	outA := a.Step(u, 0.1)
	outB := b.Step(u, 0.1)
	assert.NotEqual(t, outA.Measurement, outB.Measurement)
	// Ground truth is noise-free and must agree regardless of seed.
	assert.Equal(t, outA.Truth, outB.Truth)
}

func TestZeroNoiseScaleMeasuresTruth(t *testing.T) {
	cfg := regolithConfig()
	cfg.NoiseScale = 0
	h := sim.NewHarness(cfg)

	u := estimator.Control{0.7, 0.05, 0.1, 0.02}
	for i := 0; i < 10; i++ {
		out := h.Step(u, 0.1)
		require.Len(t, out.Measurement, estimator.StateDim)
		for j := 0; j < estimator.StateDim; j++ {
			assert.Equal(t, out.Truth[j], out.Measurement[j])
		}
	}
}

func TestSlipWindowSlowsTruth(t *testing.T) {
	cfg := regolithConfig()
	cfg.NoiseScale = 0
	steady := sim.NewHarness(cfg)

	cfg.SlipWindows = []sim.SlipWindow{{Start: 1.0, Duration: 2.0}}
	slipping := sim.NewHarness(cfg)

	u := estimator.Control{1.0, 0, 0, 0}
	dt := 0.1
	var sawSlip, sawClear int
	for i := 0; i < 50; i++ {
		steady.Step(u, dt)
		out := slipping.Step(u, dt)
		if out.SlipActive {
			sawSlip++
			// regolith with neutral env factors: severity is the base
			// slip factor.
			assert.InDelta(t, 0.25, out.Severity, 1e-12)
		} else {
			sawClear++
			assert.Zero(t, out.Severity)
		}
		assert.Equal(t, u, out.Control, "commanded control is reported unchanged")
	}
	assert.Equal(t, 20, sawSlip, "2s window at 10Hz")
	assert.Equal(t, 30, sawClear)

	// 2s of 25% slip at 1 m/s costs half a metre of forward progress.
	lost := steady.Truth()[estimator.StateX] - slipping.Truth()[estimator.StateX]
	assert.InDelta(t, 0.5, lost, 1e-9)
}

func TestSeverityFuncSwap(t *testing.T) {
	cfg := regolithConfig()
	cfg.NoiseScale = 0
	cfg.SlipWindows = []sim.SlipWindow{{Start: 0, Duration: 10}}
	cfg.Severity = func(sim.TerrainProfile, sim.EnvFactors) float64 { return 1.0 }
	h := sim.NewHarness(cfg)

	out := h.Step(estimator.Control{1.0, 0, 0, 0}, 0.1)
	assert.Equal(t, 1.0, out.Severity)
	// Full slip: the wheel spins in place.
	assert.Zero(t, out.Truth[estimator.StateX])
}

func TestMultiplicativeSeverity(t *testing.T) {
	terrain, _ := sim.TerrainByName("gravel")

	t.Run("neutral factors pass through the base slip factor", func(t *testing.T) {
		s := sim.MultiplicativeSeverity(terrain, sim.DefaultEnvFactors())
		assert.InDelta(t, terrain.SlipFactor, s, 1e-12)
	})

	t.Run("factors compound", func(t *testing.T) {
		env := sim.DefaultEnvFactors()
		env.Dust = 2
		env.Sinkage = 1.5
		s := sim.MultiplicativeSeverity(terrain, env)
		assert.InDelta(t, terrain.SlipFactor*3, s, 1e-12)
	})

	t.Run("clamped to one", func(t *testing.T) {
		env := sim.DefaultEnvFactors()
		env.Dust = 100
		assert.Equal(t, 1.0, sim.MultiplicativeSeverity(terrain, env))
	})

	t.Run("clamped to zero", func(t *testing.T) {
		env := sim.DefaultEnvFactors()
		env.Temperature = -1
		assert.Equal(t, 0.0, sim.MultiplicativeSeverity(terrain, env))
	})
}
