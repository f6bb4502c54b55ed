package utils

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// ZUpToYUp maps a point from a Z-up right-handed system into the Y-up render space.
func ZUpToYUp(x, y, z float64) mgl32.Vec3 {
	return mgl32.Vec3{float32(x), float32(z), float32(-y)}
}

func DegToRad64(deg float64) float64 {
	return deg * math.Pi / 180.0
}

// TransformPoint applies an affine matrix to a point.
func TransformPoint(m mgl32.Mat4, p mgl32.Vec3) mgl32.Vec3 {
	return m.Mul4x1(p.Vec4(1)).Vec3()
}
