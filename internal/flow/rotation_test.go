package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var rotationProbes = []Vec3{
	{X: 1},
	{Y: -1},
	{X: 0.5, Y: -0.25},
	{X: -3.2, Y: 1.7, Z: 0.4},
	{Z: 2},
	{},
}

func allRotations() []Rotation {
	return []Rotation{
		RotationNone, RotationYaw45, RotationYaw90, RotationYaw135,
		RotationYaw180, RotationYaw225, RotationYaw270, RotationYaw315,
	}
}

func TestIdentityRotationReturnsInput(t *testing.T) {
	for _, v := range rotationProbes {
		assert.Equal(t, v, RotationNone.Apply(v))
	}
}

func TestQuarterTurnIsExact(t *testing.T) {
	got := RotationYaw90.Apply(Vec3{X: 1})
	assert.Equal(t, Vec3{Y: 1}, got)

	got = RotationYaw180.Apply(Vec3{X: 0.5, Y: -0.25, Z: 3})
	assert.Equal(t, Vec3{X: -0.5, Y: 0.25, Z: 3}, got)
}

func TestEveryRotationHasAnInverse(t *testing.T) {
	for _, r := range allRotations() {
		inv := r.Inverse()
		for _, v := range rotationProbes {
			back := inv.Apply(r.Apply(v))
			assert.InDelta(t, v.X, back.X, 1e-6, "rotation %s probe %+v", r, v)
			assert.InDelta(t, v.Y, back.Y, 1e-6, "rotation %s probe %+v", r, v)
			assert.InDelta(t, v.Z, back.Z, 1e-6, "rotation %s probe %+v", r, v)
		}
	}
}

func TestRotationPreservesNorm(t *testing.T) {
	for _, r := range allRotations() {
		for _, v := range rotationProbes {
			assert.InDelta(t, v.Norm(), r.Apply(v).Norm(), 1e-6, "rotation %s probe %+v", r, v)
		}
	}
}

func TestRotationLeavesZAlone(t *testing.T) {
	for _, r := range allRotations() {
		got := r.Apply(Vec3{X: 1, Y: 2, Z: -4.5})
		assert.Equal(t, float32(-4.5), got.Z, "rotation %s", r)
	}
}
