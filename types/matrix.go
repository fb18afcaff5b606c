package types

import "github.com/go-gl/mathgl/mgl32"

// Column-major 4x4 matrix.
type Mat4 = mgl32.Mat4

// Build an off-axis perspective projection from the tangents of the four
// frustum half-angles. HMD lenses are not centered on the eye so the
// frustum is generally asymmetric.
func FrustumFromTangents(tanLeft, tanRight, tanUp, tanDown, near, far float32) Mat4 {
	return mgl32.Frustum(tanLeft*near, tanRight*near, tanDown*near, tanUp*near, near, far)
}

// Build a view matrix for an eye located at position with the given
// orientation.
func ViewFromPose(orientation Quat, position Vec3) Mat4 {
	return orientation.Conjugate().Mat4().Mul4(mgl32.Translate3D(-position[0], -position[1], -position[2]))
}

// Transform a point by m, applying the perspective divide.
func TransformPoint(m Mat4, p Vec3) Vec3 {
	v := m.Mul4x1(mgl32.Vec4{p[0], p[1], p[2], 1})
	if v[3] != 0 && v[3] != 1 {
		v = v.Mul(1 / v[3])
	}
	return Vec3{v[0], v[1], v[2]}
}

// Transform a direction by m (ignores translation).
func TransformDir(m Mat4, d Vec3) Vec3 {
	v := m.Mul4x1(mgl32.Vec4{d[0], d[1], d[2], 0})
	return Vec3{v[0], v[1], v[2]}
}
