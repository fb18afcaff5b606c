package renderer

import (
	"image"
	"math"
	"time"

	"github.com/achilleasa/mirage/asset/texture"
	"github.com/achilleasa/mirage/types"
	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/sync/errgroup"
)

// Index of refraction ratio used for the frosted look of window panes.
const paneEta = 1.0 / 1.333

// A pane is a window placed in the scene for one frame.
type pane struct {
	id  uint32
	tex *paneTexture

	// Half extents and corner radius in pane-local units.
	halfW, halfH float32
	radius       float32

	// World to pane-local transform and the world-space pane normal.
	inv    types.Mat4
	normal types.Vec3
}

// paneModel places a pane on an orbit around the viewer. The pane is moved
// out to the orbit radius, rotated by -rot around the vertical axis,
// shifted back by the orbit offset and finally scaled vertically by the
// animated height.
func paneModel(rot, heightScale float32, opts *Options) types.Mat4 {
	return mgl32.Scale3D(1, heightScale, 1).
		Mul4(mgl32.Translate3D(0, 0, opts.OrbitOffset)).
		Mul4(mgl32.HomogRotate3DY(-rot)).
		Mul4(mgl32.Translate3D(0, opts.PaneLift, -opts.OrbitRadius))
}

// Build a pane for a cached window texture. Returns false if the pane is
// degenerate (zero height scale or empty texture).
func newPane(tex *paneTexture, rot, heightScale float32, opts *Options) (pane, bool) {
	if heightScale < 1e-4 || tex.width == 0 || tex.height == 0 {
		return pane{}, false
	}

	model := paneModel(rot, heightScale, opts)
	p := pane{
		id:     tex.id,
		tex:    tex,
		halfW:  float32(tex.width) / opts.PixelsPerUnit / 2,
		halfH:  float32(tex.height) / opts.PixelsPerUnit / 2,
		radius: opts.CornerRadius,
		inv:    model.Inv(),
		normal: types.TransformDir(model, types.XYZ(0, 0, 1)).Normalize(),
	}
	p.radius = min(p.radius, p.halfW, p.halfH)
	return p, true
}

// Check whether the pane-local point (x, y) lies inside the rounded
// rectangle.
func (p *pane) contains(x, y float32) bool {
	qx := abs(x) - (p.halfW - p.radius)
	qy := abs(y) - (p.halfH - p.radius)
	if qx > p.radius || qy > p.radius {
		return false
	}
	if qx <= 0 || qy <= 0 {
		return true
	}
	return qx*qx+qy*qy <= p.radius*p.radius
}

// Texel returns the premultiplied BGRA texel under pane-local (x, y).
// Buffer row 0 is at the top of the pane.
func (p *pane) texel(x, y float32) []byte {
	u := x/(2*p.halfW) + 0.5
	v := 0.5 - y/(2*p.halfH)

	w, h := int(p.tex.width), int(p.tex.height)
	px := min(max(int(u*float32(w)), 0), w-1)
	py := min(max(int(v*float32(h)), 0), h-1)
	offset := (py*w + px) * 4
	return p.tex.pix[offset : offset+4 : offset+4]
}

func abs(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

// A per-eye view of the panes: the eye position and the frustum corner
// rays transformed into pane-local space. Ray directions are linear in
// the image coordinates so the local ray for any pixel is the bilinear
// blend of the local corner rays.
type localPane struct {
	*pane
	origin  types.Vec3
	frustum Frustum
}

// The scene rasterized for one eye.
type rasterScene struct {
	// Drawn behind the panes; nil leaves the background transparent so an
	// environment layer submitted below shows through.
	background *texture.Texture

	// Sampled along the refracted view ray behind translucent pane pixels.
	tint *texture.Texture

	panes []pane
}

type rasterizer struct {
	workers    int
	schedulers []BlockScheduler
	lastStats  [][]BlockStat
}

func newRasterizer(eyes, workers int) *rasterizer {
	r := &rasterizer{
		workers:    max(workers, 1),
		schedulers: make([]BlockScheduler, eyes),
		lastStats:  make([][]BlockStat, eyes),
	}
	for eye := range r.schedulers {
		r.schedulers[eye] = NewPerfectScheduler()
	}
	return r
}

// Draw the scene into dst from the point of view of cam. The image is
// split into horizontal blocks rasterized in parallel.
func (r *rasterizer) draw(eye int, dst *image.RGBA, cam *eyeCamera, scene *rasterScene) []BlockStat {
	frameH := dst.Bounds().Dy()
	workers := min(r.workers, max(frameH, 1))
	if len(r.lastStats[eye]) != workers {
		r.lastStats[eye] = make([]BlockStat, workers)
	}
	stats := r.lastStats[eye]
	blocks := r.schedulers[eye].Schedule(stats, uint32(frameH))

	local := make([]localPane, len(scene.panes))
	for i := range scene.panes {
		p := &scene.panes[i]
		local[i] = localPane{pane: p, origin: types.TransformPoint(p.inv, cam.Position)}
		for c := range cam.Frustum {
			local[i].frustum[c] = types.TransformDir(p.inv, cam.Frustum[c])
		}
	}

	var g errgroup.Group
	blockY := 0
	for w, blockH := range blocks {
		y0, y1 := blockY, blockY+int(blockH)
		blockY = y1
		g.Go(func() error {
			start := time.Now()
			drawRows(dst, cam, scene, local, y0, y1)
			stats[w] = BlockStat{BlockH: uint32(y1 - y0), BlockTime: time.Since(start)}
			return nil
		})
	}
	_ = g.Wait()
	return stats
}

func drawRows(dst *image.RGBA, cam *eyeCamera, scene *rasterScene, panes []localPane, y0, y1 int) {
	b := dst.Bounds()
	w, h := float32(b.Dx()), float32(b.Dy())

	for y := y0; y < y1; y++ {
		fy := (float32(y) + 0.5) / h
		row := dst.Pix[y*dst.Stride : y*dst.Stride+b.Dx()*4]
		for x := 0; x < b.Dx(); x++ {
			fx := (float32(x) + 0.5) / w
			ray := cam.Frustum.Ray(fx, fy)

			var out [4]float32
			if scene.background != nil {
				d := ray.Normalize()
				out = scene.background.SampleDirection(d[0], d[1], d[2])
				out[0], out[1], out[2] = out[0]*out[3], out[1]*out[3], out[2]*out[3]
			}

			if hit, lx, ly := nearestPane(panes, fx, fy); hit != nil {
				out = shadePane(hit.pane, ray, lx, ly, scene.tint)
			}

			px := row[x*4 : x*4+4 : x*4+4]
			px[0] = toByte(out[0])
			px[1] = toByte(out[1])
			px[2] = toByte(out[2])
			px[3] = toByte(out[3])
		}
	}
}

// Find the closest pane hit by the ray through (fx, fy). Returns the pane
// and the pane-local hit coordinates.
func nearestPane(panes []localPane, fx, fy float32) (*localPane, float32, float32) {
	var (
		best   *localPane
		bestT  = float32(math.MaxFloat32)
		bx, by float32
	)
	for i := range panes {
		lp := &panes[i]
		d := lp.frustum.Ray(fx, fy)
		if d[2] == 0 {
			continue
		}
		t := -lp.origin[2] / d[2]
		if t <= 0 || t >= bestT {
			continue
		}
		x, y := lp.origin[0]+d[0]*t, lp.origin[1]+d[1]*t
		if !lp.contains(x, y) {
			continue
		}
		best, bestT, bx, by = lp, t, x, y
	}
	return best, bx, by
}

// Blend the premultiplied BGRA window texel over the tint sampled along the
// refracted view ray. Pane pixels are always opaque.
func shadePane(p *pane, ray types.Vec3, x, y float32, tint *texture.Texture) [4]float32 {
	texel := p.texel(x, y)
	alpha := float32(texel[3]) / 255

	var bg [4]float32
	if tint != nil && alpha < 1 {
		r := refract(ray.Normalize(), p.normal, paneEta)
		if r != (types.Vec3{}) {
			bg = tint.SampleDirection(r[0], r[1], r[2])
		}
	}

	return [4]float32{
		float32(texel[2])/255 + bg[0]*(1-alpha),
		float32(texel[1])/255 + bg[1]*(1-alpha),
		float32(texel[0])/255 + bg[2]*(1-alpha),
		1,
	}
}

// Refract the incident direction i at a surface with normal n. Returns the
// zero vector on total internal reflection.
func refract(i, n types.Vec3, eta float32) types.Vec3 {
	cos := n.Dot(i)
	k := 1 - eta*eta*(1-cos*cos)
	if k < 0 {
		return types.Vec3{}
	}
	return i.Mul(eta).Sub(n.Mul(eta*cos + float32(math.Sqrt(float64(k))))).Normalize()
}

func toByte(v float32) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	}
	return uint8(v*255 + 0.5)
}
