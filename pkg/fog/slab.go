package fog

import "github.com/Ameobea/go-volumetric-fog/pkg/core"

// ClipToSlab clamps the segment [start, end] to the horizontal slab between
// minY and maxY. A segment lying entirely below or entirely above the slab
// collapses to start == end, which callers treat as "no intersection".
//
// Each endpoint outside its plane is pulled to the plane along the segment
// direction. The clamps run sequentially: end-point intersections are
// computed from the already-clamped start. Horizontal segments never cross
// a plane, so their clamps are skipped.
func ClipToSlab(start, end core.Vec3, minY, maxY float64) (core.Vec3, core.Vec3) {
	if (start.Y < minY && end.Y < minY) || (start.Y > maxY && end.Y > maxY) {
		return start, start
	}

	dir := end.Subtract(start)

	if start.Y > maxY && dir.Y != 0 {
		t := -(start.Y - maxY) / dir.Y
		start = start.Add(dir.Multiply(t))
	}
	if start.Y < minY && dir.Y != 0 {
		t := -(start.Y - minY) / dir.Y
		start = start.Add(dir.Multiply(t))
	}

	if end.Y > maxY && dir.Y != 0 {
		t := -(start.Y - maxY) / dir.Y
		end = start.Add(dir.Multiply(t))
	}
	if end.Y < minY && dir.Y != 0 {
		t := -(start.Y - minY) / dir.Y
		end = start.Add(dir.Multiply(t))
	}

	return start, end
}
