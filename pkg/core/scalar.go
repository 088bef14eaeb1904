package core

// Clamp returns x limited to [minVal, maxVal]
func Clamp(x, minVal, maxVal float64) float64 {
	return max(minVal, min(maxVal, x))
}

// Lerp returns the linear interpolation between a and b at t
func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// Smoothstep returns the Hermite interpolation of x between edge0 and edge1,
// matching GLSL smoothstep: 0 below edge0, 1 above edge1, smooth in between
func Smoothstep(edge0, edge1, x float64) float64 {
	if edge0 == edge1 {
		if x < edge0 {
			return 0
		}
		return 1
	}
	t := Clamp((x-edge0)/(edge1-edge0), 0, 1)
	return t * t * (3 - 2*t)
}
