package renderer

import (
	"fmt"
	"math"

	"github.com/achilleasa/mirage/types"
	"github.com/achilleasa/mirage/xr"
)

// Stores the ray directions at the four corners of an eye frustum (TL, TR,
// BL, BR). Per pixel rays are generated by interpolating the corner rays.
type Frustum [4]types.Vec3

func (fr Frustum) String() string {
	return fmt.Sprintf(
		"Frustum Rays:\nTL : (%3.3f, %3.3f, %3.3f)\nTR : (%3.3f, %3.3f, %3.3f)\nBL : (%3.3f, %3.3f, %3.3f)\nBR : (%3.3f, %3.3f, %3.3f)",
		fr[0][0], fr[0][1], fr[0][2],
		fr[1][0], fr[1][1], fr[1][2],
		fr[2][0], fr[2][1], fr[2][2],
		fr[3][0], fr[3][1], fr[3][2],
	)
}

// Ray returns the interpolated ray direction for normalized image
// coordinates (fx, fy) where (0, 0) is the top-left corner. The result is
// not normalized.
func (fr Frustum) Ray(fx, fy float32) types.Vec3 {
	top := fr[0].Lerp(fr[1], fx)
	bottom := fr[2].Lerp(fr[3], fx)
	return top.Lerp(bottom, fy)
}

// The eyeCamera holds the view and projection for one eye as reported by
// the runtime for the predicted display time.
type eyeCamera struct {
	Position types.Vec3

	ViewMat types.Mat4
	ProjMat types.Mat4
	Frustum Frustum
}

func newEyeCamera(view xr.View, near, far float32) *eyeCamera {
	fov := view.Fov
	c := &eyeCamera{
		Position: view.Pose.Position,
		ViewMat:  types.ViewFromPose(view.Pose.Orientation, view.Pose.Position),
		ProjMat: types.FrustumFromTangents(
			tan(fov.AngleLeft), tan(fov.AngleRight),
			tan(fov.AngleUp), tan(fov.AngleDown),
			near, far,
		),
	}
	c.updateFrustum()
	return c
}

func tan(angle float32) float32 {
	return float32(math.Tan(float64(angle)))
}

func (c *eyeCamera) InvViewProjMat() types.Mat4 {
	return c.ProjMat.Mul4(c.ViewMat).Inv()
}

// Generate a ray vector for each corner of the frustum by transforming
// clip space vectors for each corner with the inv proj/view matrix,
// applying perspective and subtracting the eye position.
func (c *eyeCamera) updateFrustum() {
	invProjViewMat := c.InvViewProjMat()

	c.Frustum[0] = types.TransformPoint(invProjViewMat, types.XYZ(-1, 1, -1)).Sub(c.Position)
	c.Frustum[1] = types.TransformPoint(invProjViewMat, types.XYZ(1, 1, -1)).Sub(c.Position)
	c.Frustum[2] = types.TransformPoint(invProjViewMat, types.XYZ(-1, -1, -1)).Sub(c.Position)
	c.Frustum[3] = types.TransformPoint(invProjViewMat, types.XYZ(1, -1, -1)).Sub(c.Position)
}
