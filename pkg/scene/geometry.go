package scene

import (
	"math"

	"github.com/Ameobea/go-volumetric-fog/pkg/core"
)

// Sphere is an analytic sphere with a flat diffuse albedo
type Sphere struct {
	Center core.Vec3
	Radius float64
	Albedo core.Vec3
}

// NewSphere creates a new sphere surface
func NewSphere(center core.Vec3, radius float64, albedo core.Vec3) *Sphere {
	return &Sphere{Center: center, Radius: radius, Albedo: albedo}
}

// Hit tests if a ray intersects with the sphere
func (s *Sphere) Hit(ray core.Ray, tMin, tMax float64) (Hit, bool) {
	oc := ray.Origin.Subtract(s.Center)

	// Quadratic equation coefficients: at² + bt + c = 0
	a := ray.Direction.Dot(ray.Direction)
	halfB := oc.Dot(ray.Direction)
	c := oc.Dot(oc) - s.Radius*s.Radius

	discriminant := halfB*halfB - a*c
	if discriminant < 0 {
		return Hit{}, false
	}

	// Take the nearest intersection within the valid range
	sqrtD := math.Sqrt(discriminant)
	root := (-halfB - sqrtD) / a
	if root < tMin || root > tMax {
		root = (-halfB + sqrtD) / a
		if root < tMin || root > tMax {
			return Hit{}, false
		}
	}

	point := ray.At(root)
	normal := point.Subtract(s.Center).Multiply(1.0 / s.Radius)
	return Hit{T: root, Point: point, Normal: normal, Albedo: s.Albedo}, true
}

// Plane is an infinite plane with a flat diffuse albedo
type Plane struct {
	Point  core.Vec3 // a point on the plane
	Normal core.Vec3 // unit normal
	Albedo core.Vec3
}

// NewPlane creates a new plane surface
func NewPlane(point, normal core.Vec3, albedo core.Vec3) *Plane {
	return &Plane{Point: point, Normal: normal.Normalize(), Albedo: albedo}
}

// Hit tests if a ray intersects with the plane
func (p *Plane) Hit(ray core.Ray, tMin, tMax float64) (Hit, bool) {
	denominator := ray.Direction.Dot(p.Normal)

	// A ray parallel to the plane never intersects it
	if math.Abs(denominator) < 1e-8 {
		return Hit{}, false
	}

	t := p.Point.Subtract(ray.Origin).Dot(p.Normal) / denominator
	if t < tMin || t > tMax {
		return Hit{}, false
	}

	hit := Hit{T: t, Point: ray.At(t), Normal: p.Normal, Albedo: p.Albedo}
	// Flip the normal to face the ray origin
	if denominator > 0 {
		hit.Normal = p.Normal.Multiply(-1)
	}
	return hit, true
}
