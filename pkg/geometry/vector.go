// Package geometry provides the rigid-body transforms used to place
// replayed primaries into the simulation world. A phase-space stream
// records positions and directions in the frame of the volume that
// produced it; when that volume is itself placed inside a larger
// geometry, every record must be rotated and translated by the owning
// node's current placement before emission.
package geometry

import "math"

// Vec3 is a 3-component vector.
type Vec3 struct {
	X, Y, Z float64
}

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

// Scale returns v scaled by s.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

// Dot returns the dot product of v and o.
func (v Vec3) Dot(o Vec3) float64 {
	return v.X*o.X + v.Y*o.Y + v.Z*o.Z
}

// Mag returns the magnitude of v.
func (v Vec3) Mag() float64 {
	return math.Sqrt(v.Dot(v))
}

// Normalized returns v scaled to unit length. The zero vector is
// returned unchanged.
func (v Vec3) Normalized() Vec3 {
	mag := v.Mag()
	if mag == 0 {
		return v
	}
	return v.Scale(1 / mag)
}

// Rotation is a 3x3 rotation matrix in row-major order.
type Rotation [3][3]float64

// Identity returns the identity rotation.
func Identity() Rotation {
	return Rotation{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
	}
}

// RotationZ returns a rotation by angle radians about the Z axis.
func RotationZ(angle float64) Rotation {
	c, s := math.Cos(angle), math.Sin(angle)
	return Rotation{
		{c, -s, 0},
		{s, c, 0},
		{0, 0, 1},
	}
}

// RotationY returns a rotation by angle radians about the Y axis.
func RotationY(angle float64) Rotation {
	c, s := math.Cos(angle), math.Sin(angle)
	return Rotation{
		{c, 0, s},
		{0, 1, 0},
		{-s, 0, c},
	}
}

// RotationX returns a rotation by angle radians about the X axis.
func RotationX(angle float64) Rotation {
	c, s := math.Cos(angle), math.Sin(angle)
	return Rotation{
		{1, 0, 0},
		{0, c, -s},
		{0, s, c},
	}
}

// Apply returns R * v.
func (r Rotation) Apply(v Vec3) Vec3 {
	return Vec3{
		X: r[0][0]*v.X + r[0][1]*v.Y + r[0][2]*v.Z,
		Y: r[1][0]*v.X + r[1][1]*v.Y + r[1][2]*v.Z,
		Z: r[2][0]*v.X + r[2][1]*v.Y + r[2][2]*v.Z,
	}
}

// Compose returns r * o (o applied first).
func (r Rotation) Compose(o Rotation) Rotation {
	var out Rotation
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i][j] = r[i][0]*o[0][j] + r[i][1]*o[1][j] + r[i][2]*o[2][j]
		}
	}
	return out
}

// Transform is a rigid placement: rotation followed by translation.
type Transform struct {
	Rotation    Rotation
	Translation Vec3
}

// IdentityTransform returns the identity placement.
func IdentityTransform() Transform {
	return Transform{Rotation: Identity()}
}

// ApplyPoint maps a point: R * p + T.
func (t Transform) ApplyPoint(p Vec3) Vec3 {
	return t.Rotation.Apply(p).Add(t.Translation)
}

// ApplyDirection maps a direction: normalize first, then rotate.
// Translation does not apply to directions.
func (t Transform) ApplyDirection(d Vec3) Vec3 {
	return t.Rotation.Apply(d.Normalized())
}
