package flow

import "math"

// Vec3 is a measurement vector in the sensor or body frame.
type Vec3 struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
}

// Norm returns the euclidean length of the vector.
func (v Vec3) Norm() float64 {
	x, y, z := float64(v.X), float64(v.Y), float64(v.Z)
	return math.Sqrt(x*x + y*y + z*z)
}

// Rotation is a discrete yaw reorientation from sensor frame to body
// frame, in 45 degree steps counter-clockwise about z.
type Rotation uint8

const (
	RotationNone Rotation = iota
	RotationYaw45
	RotationYaw90
	RotationYaw135
	RotationYaw180
	RotationYaw225
	RotationYaw270
	RotationYaw315

	numRotations = 8
)

// sin/cos pairs per rotation. Exact values at the axis-aligned steps so
// identity and quarter turns introduce no rounding at all.
var yawTable = [numRotations][2]float32{
	{1, 0},
	{sqrt2half, sqrt2half},
	{0, 1},
	{-sqrt2half, sqrt2half},
	{-1, 0},
	{-sqrt2half, -sqrt2half},
	{0, -1},
	{sqrt2half, -sqrt2half},
}

const sqrt2half = float32(math.Sqrt2 / 2)

func (r Rotation) String() string {
	names := [numRotations]string{
		"none", "yaw 45", "yaw 90", "yaw 135",
		"yaw 180", "yaw 225", "yaw 270", "yaw 315",
	}
	if int(r) < len(names) {
		return names[r]
	}
	return "unknown"
}

// Apply rotates v by r about the z axis. The transform is linear and
// norm-preserving; RotationNone returns v unchanged.
func (r Rotation) Apply(v Vec3) Vec3 {
	if r == RotationNone {
		return v
	}
	c, s := yawTable[r%numRotations][0], yawTable[r%numRotations][1]
	return Vec3{
		X: c*v.X - s*v.Y,
		Y: s*v.X + c*v.Y,
		Z: v.Z,
	}
}

// Inverse returns the rotation undoing r, so that
// r.Inverse().Apply(r.Apply(v)) reconstructs v.
func (r Rotation) Inverse() Rotation {
	return (numRotations - r%numRotations) % numRotations
}
