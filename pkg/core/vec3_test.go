package core

import (
	"math"
	"testing"
)

func TestVec3_Lerp(t *testing.T) {
	tests := []struct {
		name     string
		from     Vec3
		to       Vec3
		t        float64
		expected Vec3
	}{
		{
			name:     "At start",
			from:     NewVec3(1, 2, 3),
			to:       NewVec3(4, 5, 6),
			t:        0,
			expected: NewVec3(1, 2, 3),
		},
		{
			name:     "At end",
			from:     NewVec3(1, 2, 3),
			to:       NewVec3(4, 5, 6),
			t:        1,
			expected: NewVec3(4, 5, 6),
		},
		{
			name:     "Midpoint",
			from:     NewVec3(0, 0, 0),
			to:       NewVec3(2, 4, 8),
			t:        0.5,
			expected: NewVec3(1, 2, 4),
		},
		{
			name:     "Negative components",
			from:     NewVec3(-1, -1, -1),
			to:       NewVec3(1, 1, 1),
			t:        0.25,
			expected: NewVec3(-0.5, -0.5, -0.5),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.from.Lerp(tt.to, tt.t)

			const tolerance = 1e-9
			if result.Subtract(tt.expected).Length() > tolerance {
				t.Errorf("Expected %v, got %v", tt.expected, result)
			}
		})
	}
}

func TestVec3_Normalize(t *testing.T) {
	v := NewVec3(3, 4, 0).Normalize()
	if math.Abs(v.Length()-1.0) > 1e-9 {
		t.Errorf("Expected unit length, got %v", v.Length())
	}

	zero := NewVec3(0, 0, 0).Normalize()
	if zero != (Vec3{}) {
		t.Errorf("Expected zero vector to normalize to zero, got %v", zero)
	}
}

func TestVec3_Clamp(t *testing.T) {
	v := NewVec3(-0.5, 0.5, 1.5).Clamp(0, 1)
	expected := NewVec3(0, 0.5, 1)
	if v != expected {
		t.Errorf("Expected %v, got %v", expected, v)
	}
}
