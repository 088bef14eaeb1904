package integrator

import (
	"math"
	"testing"

	"github.com/Ameobea/go-volumetric-fog/pkg/core"
	"github.com/Ameobea/go-volumetric-fog/pkg/fog"
)

// constField reports the same raw density everywhere
type constField struct {
	value float64
}

func (f constField) Density(_ core.Vec3, _ float64) float64 { return f.value }

// whiteColor emits pure white regardless of position or density
type whiteColor struct{}

func (whiteColor) Color(_ core.Vec3, _ float64, _ *core.FrameContext) core.Vec3 {
	return core.NewVec3(1, 1, 1)
}

// fixedJitter returns the same blue-noise value for every pixel.
// A value of 0.5 maps to zero jitter.
type fixedJitter struct {
	value float64
}

func (j fixedJitter) At(_, _ int) float64 { return j.value }

// marchTestConfig disables the shaping and lighting stages so opacity is
// exactly the accumulated density
func marchTestConfig() fog.Config {
	cfg := fog.DefaultConfig()
	cfg.Octaves = nil
	cfg.PostDensityMultiplier = 1.0
	cfg.PostDensityPow = 1.0
	cfg.LightingEnabled = false
	return cfg
}

func mustMarcher(t *testing.T, cfg *fog.Config, field Field, jitter JitterSource) *FogMarcher {
	t.Helper()
	fm, err := NewFogMarcher(cfg, field, whiteColor{}, jitter)
	if err != nil {
		t.Fatalf("NewFogMarcher failed: %v", err)
	}
	return fm
}

// A constant field with zero jitter makes the accumulator a geometric
// series: after n steps of per-step density d, opacity is 1-(1-d)^n.
func TestFogMarcher_GeometricTransmittance(t *testing.T) {
	cfg := marchTestConfig()
	cfg.FogMinY = -100
	cfg.FogMaxY = 4.4
	cfg.BaseRaymarchStepCount = 1000
	cfg.MaxRaymarchStepCount = 1000
	cfg.MinStepLength = 2.0
	cfg.FogDensityMultiplier = 0.1

	fm := mustMarcher(t, &cfg, constField{0.5}, fixedJitter{0.5})
	frame := &core.FrameContext{}

	// Step length is pinned to MinStepLength=2, so a ray of length 2n
	// takes exactly n steps with per-step density 0.5*2*0.1 = 0.1
	perStep := 0.5 * 2.0 * 0.1
	for _, n := range []int{1, 5, 10, 20} {
		end := core.NewVec3(0, -2*float64(n), 0)
		result := fm.March(core.NewVec3(0, 0, 0), end, 0, 0, frame)

		if result.State != MarchExhausted {
			t.Errorf("n=%d: state = %v, want %v", n, result.State, MarchExhausted)
		}
		if result.Steps != n {
			t.Errorf("n=%d: steps = %d, want %d", n, result.Steps, n)
		}
		expected := 1 - math.Pow(1-perStep, float64(n))
		if math.Abs(result.Opacity-expected) > 1e-9 {
			t.Errorf("n=%d: opacity = %v, want %v", n, result.Opacity, expected)
		}
	}
}

func TestFogMarcher_IterationCap(t *testing.T) {
	cfg := marchTestConfig()
	cfg.FogMinY = -150
	cfg.FogMaxY = 0
	cfg.BaseRaymarchStepCount = 100
	cfg.MaxRaymarchStepCount = 100
	cfg.FogDensityMultiplier = 0.01

	// A jitter value of 0 shortens every step below the base length, so a
	// ray sized for exactly 100 base steps needs more than the cap allows
	fm := mustMarcher(t, &cfg, constField{0.02}, fixedJitter{0})
	result := fm.March(core.NewVec3(0, 0, 0), core.NewVec3(0, -100, 0), 0, 0, &core.FrameContext{})

	if result.State != MarchIterationCapped {
		t.Fatalf("state = %v, want %v", result.State, MarchIterationCapped)
	}
	if result.Steps != cfg.MaxRaymarchStepCount {
		t.Errorf("steps = %d, want %d", result.Steps, cfg.MaxRaymarchStepCount)
	}
	if result.Opacity <= 0 {
		t.Errorf("opacity = %v, want the partial accumulation to survive", result.Opacity)
	}
}

func TestFogMarcher_EmptySegments(t *testing.T) {
	cfg := marchTestConfig()
	fm := mustMarcher(t, &cfg, constField{0.5}, fixedJitter{0.5})
	frame := &core.FrameContext{}

	tests := []struct {
		name       string
		start, end core.Vec3
	}{
		{"entirely below the slab", core.NewVec3(0, -50, 0), core.NewVec3(0, -200, 0)},
		{"entirely above the slab", core.NewVec3(0, 10, 0), core.NewVec3(0, 100, 0)},
		{"zero-length segment", core.NewVec3(0, 0, 0), core.NewVec3(0, 0, 0)},
		{"horizontal above the slab", core.NewVec3(0, 10, 0), core.NewVec3(100, 10, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := fm.March(tt.start, tt.end, 0, 0, frame)
			if result.State != MarchEmpty {
				t.Errorf("state = %v, want %v", result.State, MarchEmpty)
			}
			if result.Opacity != 0 {
				t.Errorf("opacity = %v, want 0", result.Opacity)
			}
			if result.Color != core.NewVec3(0, 0, 0) {
				t.Errorf("color = %v, want black", result.Color)
			}
			if result.Steps != 0 {
				t.Errorf("steps = %d, want 0", result.Steps)
			}
		})
	}
}

// Raising the density multiplier must raise opacity, and with the real
// color model at high raw density the result color is the high-density
// color scaled by the accumulated opacity.
func TestFogMarcher_OpacityTracksDensityMultiplier(t *testing.T) {
	cfg := marchTestConfig()
	cfg.FogColorHighDensity = core.NewVec3(0.9, 0.8, 0.7)

	start := core.NewVec3(0, 0, 0)
	end := core.NewVec3(0, -20, 0)
	frame := &core.FrameContext{}

	prev := -1.0
	for _, m := range []float64{0.05, 0.1, 0.2, 0.4} {
		c := cfg
		c.FogDensityMultiplier = m
		colors := fog.NewColorModel(&c, nil)
		fm, err := NewFogMarcher(&c, constField{0.5}, colors, fixedJitter{0.5})
		if err != nil {
			t.Fatalf("NewFogMarcher failed: %v", err)
		}

		result := fm.March(start, end, 0, 0, frame)
		if result.State != MarchExhausted {
			t.Fatalf("m=%v: state = %v, want %v", m, result.State, MarchExhausted)
		}
		if result.Steps != c.BaseRaymarchStepCount {
			t.Errorf("m=%v: steps = %d, want %d", m, result.Steps, c.BaseRaymarchStepCount)
		}

		// 80 steps of 0.25 at raw density 0.5
		perStep := 0.5 * 0.25 * m
		expected := 1 - math.Pow(1-perStep, 80)
		if math.Abs(result.Opacity-expected) > 1e-9 {
			t.Errorf("m=%v: opacity = %v, want %v", m, result.Opacity, expected)
		}
		if result.Opacity <= prev {
			t.Errorf("m=%v: opacity %v did not increase over %v", m, result.Opacity, prev)
		}
		prev = result.Opacity

		// Raw density 0.5 blends fully to the high-density color, so the
		// accumulated color is that color scaled by the opacity
		want := c.FogColorHighDensity.Multiply(result.Opacity)
		diff := result.Color.Subtract(want)
		if diff.Length() > 1e-9 {
			t.Errorf("m=%v: color = %v, want %v", m, result.Color, want)
		}
	}
}

// A distant hit far below the slab keeps only a capped fraction of its
// geometric length: 10 + min(10000*0.2, 1500) = 1510, or 10 steps of 151.
func TestFogMarcher_LongRayCompensation(t *testing.T) {
	cfg := marchTestConfig()
	cfg.FogMinY = -10000
	cfg.FogMaxY = 0
	cfg.BaseRaymarchStepCount = 10
	cfg.MaxRaymarchStepCount = 400
	cfg.BaseMaxRayLength = 10
	cfg.FogDensityMultiplier = 0.001

	fm := mustMarcher(t, &cfg, constField{0.5}, fixedJitter{0.5})
	result := fm.March(core.NewVec3(0, 0, 0), core.NewVec3(0, -10000, 0), 0, 0, &core.FrameContext{})

	if result.State != MarchExhausted {
		t.Fatalf("state = %v, want %v", result.State, MarchExhausted)
	}
	if result.Steps != 10 {
		t.Errorf("steps = %d, want 10", result.Steps)
	}
	perStep := 0.5 * 151.0 * 0.001
	expected := 1 - math.Pow(1-perStep, 10)
	if math.Abs(result.Opacity-expected) > 1e-9 {
		t.Errorf("opacity = %v, want %v", result.Opacity, expected)
	}
}

func TestFogMarcher_EpsilonGateSkipsThinFog(t *testing.T) {
	cfg := marchTestConfig()
	fm := mustMarcher(t, &cfg, constField{0.005}, fixedJitter{0.5})

	result := fm.March(core.NewVec3(0, 0, 0), core.NewVec3(0, -20, 0), 0, 0, &core.FrameContext{})
	if result.State != MarchExhausted {
		t.Errorf("state = %v, want %v", result.State, MarchExhausted)
	}
	if result.Opacity != 0 {
		t.Errorf("opacity = %v, want 0", result.Opacity)
	}
	if result.Steps == 0 {
		t.Error("expected the ray to actually march")
	}
}

func TestFogMarcher_SaturationEndsEarly(t *testing.T) {
	cfg := marchTestConfig()
	cfg.MaxDensity = 0.5
	cfg.FogDensityMultiplier = 1.0

	// Per-step density 0.8*0.25 = 0.2: the accumulator reaches the cap on
	// the fourth step (0.2, 0.36, 0.488, capped 0.5)
	fm := mustMarcher(t, &cfg, constField{0.8}, fixedJitter{0.5})
	result := fm.March(core.NewVec3(0, 0, 0), core.NewVec3(0, -20, 0), 0, 0, &core.FrameContext{})

	if result.State != MarchSaturated {
		t.Fatalf("state = %v, want %v", result.State, MarchSaturated)
	}
	if result.Steps != 4 {
		t.Errorf("steps = %d, want 4", result.Steps)
	}
	if math.Abs(result.Opacity-0.5) > 1e-12 {
		t.Errorf("opacity = %v, want 0.5", result.Opacity)
	}
}

func TestFogMarcher_JitterVariesAccumulation(t *testing.T) {
	cfg := marchTestConfig()
	cfg.FogDensityMultiplier = 0.1

	start := core.NewVec3(0, 0, 0)
	end := core.NewVec3(0, -20, 0)
	frame := &core.FrameContext{}

	low := mustMarcher(t, &cfg, constField{0.5}, fixedJitter{0})
	high := mustMarcher(t, &cfg, constField{0.5}, fixedJitter{1})

	a := low.March(start, end, 0, 0, frame)
	b := high.March(start, end, 0, 0, frame)

	if a.State != MarchExhausted || b.State != MarchExhausted {
		t.Fatalf("states = %v, %v, want both %v", a.State, b.State, MarchExhausted)
	}
	if math.Abs(a.Opacity-b.Opacity) < 1e-6 {
		t.Errorf("opposite jitter extremes produced identical opacity %v", a.Opacity)
	}
}

func TestNewFogMarcher_Validation(t *testing.T) {
	cfg := marchTestConfig()

	bad := cfg
	bad.BaseRaymarchStepCount = 0
	if _, err := NewFogMarcher(&bad, constField{0.5}, whiteColor{}, fixedJitter{0.5}); err == nil {
		t.Error("expected an error for an invalid config")
	}
	if _, err := NewFogMarcher(&cfg, nil, whiteColor{}, fixedJitter{0.5}); err == nil {
		t.Error("expected an error for a nil field")
	}
	if _, err := NewFogMarcher(&cfg, constField{0.5}, nil, fixedJitter{0.5}); err == nil {
		t.Error("expected an error for a nil color source")
	}
	if _, err := NewFogMarcher(&cfg, constField{0.5}, whiteColor{}, nil); err == nil {
		t.Error("expected an error for a nil jitter source")
	}
}
