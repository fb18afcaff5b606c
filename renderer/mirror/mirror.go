// Package mirror shows the first eye's image in a desktop window while the
// compositor runs. All methods must be called from the goroutine that
// created the window; that goroutine must be locked to its OS thread.
package mirror

import (
	"fmt"
	"image"

	"github.com/achilleasa/mirage/log"
	"github.com/go-gl/gl/v2.1/gl"
	"github.com/go-gl/glfw/v3.1/glfw"
)

var logger = log.New("mirror")

// Height in pixels of the block assignment history strip.
const stackedSeriesHeight = 20

// BlockSource returns the row block heights used for the last eye image.
type BlockSource func() []uint32

type Options struct {
	Width, Height int
	Title         string

	// Invoked when the window is closed or Escape is pressed.
	OnClose func()

	// Optional; enables the block overlay toggled with Tab.
	Blocks BlockSource
}

// Window is an opengl window that blits presented images.
type Window struct {
	opts   Options
	window *glfw.Window

	tex, texFbo uint32
	texW, texH  int

	showUI bool
	series *stackedSeries
}

// New opens the mirror window.
func New(opts Options) (*Window, error) {
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize glfw: %s", err.Error())
	}

	glfw.WindowHint(glfw.Resizable, glfw.False)
	glfw.WindowHint(glfw.ContextVersionMajor, 2)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	window, err := glfw.CreateWindow(opts.Width, opts.Height, opts.Title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("could not create opengl window: %s", err.Error())
	}
	window.MakeContextCurrent()
	glfw.SwapInterval(0)

	if err = gl.Init(); err != nil {
		window.Destroy()
		glfw.Terminate()
		return nil, fmt.Errorf("could not init opengl: %s", err.Error())
	}

	m := &Window{opts: opts, window: window}
	gl.GenTextures(1, &m.tex)
	gl.GenFramebuffers(1, &m.texFbo)

	// Setup ortho projection with a top-left origin for the overlay
	gl.Disable(gl.DEPTH_TEST)
	gl.MatrixMode(gl.PROJECTION)
	gl.LoadIdentity()
	gl.Ortho(0, float64(opts.Width), float64(opts.Height), 0, -1, 1)
	gl.Viewport(0, 0, int32(opts.Width), int32(opts.Height))
	gl.MatrixMode(gl.MODELVIEW)
	gl.LoadIdentity()

	window.SetKeyCallback(m.onKeyEvent)
	window.SetCloseCallback(func(*glfw.Window) { m.requestClose() })

	logger.Infof("opened %dx%d mirror window", opts.Width, opts.Height)
	return m, nil
}

// Resize the backing texture and reattach it to the read framebuffer.
func (m *Window) ensureTexture(w, h int) {
	if w == m.texW && h == m.texH {
		return
	}
	m.texW, m.texH = w, h

	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, m.tex)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(w), int32(h), 0, gl.RGBA, gl.UNSIGNED_BYTE, nil)

	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, m.texFbo)
	gl.FramebufferTexture2D(gl.READ_FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, m.tex, 0)
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, 0)
}

// Present uploads img and blits it to the window, scaled to fit.
func (m *Window) Present(img *image.RGBA) {
	if m.window == nil {
		return
	}
	glfw.PollEvents()

	b := img.Bounds()
	if b.Empty() {
		return
	}
	m.ensureTexture(b.Dx(), b.Dy())

	gl.BindTexture(gl.TEXTURE_2D, m.tex)
	gl.PixelStorei(gl.UNPACK_ROW_LENGTH, int32(img.Stride/4))
	gl.TexSubImage2D(gl.TEXTURE_2D, 0, 0, 0, int32(b.Dx()), int32(b.Dy()), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(img.Pix))
	gl.PixelStorei(gl.UNPACK_ROW_LENGTH, 0)

	// Image row 0 is the top row so the blit flips vertically
	winW, winH := int32(m.opts.Width), int32(m.opts.Height)
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, m.texFbo)
	gl.BlitFramebuffer(0, 0, int32(b.Dx()), int32(b.Dy()), 0, winH, winW, 0, gl.COLOR_BUFFER_BIT, gl.LINEAR)
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, 0)

	if m.showUI && m.opts.Blocks != nil {
		m.renderUI(b.Dy())
	}

	m.window.SwapBuffers()
}

// Outline the row blocks of the last frame and append them to the history.
func (m *Window) renderUI(frameH int) {
	blocks := m.opts.Blocks()
	if len(blocks) == 0 {
		return
	}
	if m.series == nil || len(m.series.series) != len(blocks) {
		m.series = makeStackedSeries(len(blocks), m.opts.Width)
	}

	scale := float32(m.opts.Height) / float32(frameH)
	frameW := float32(m.opts.Width - 1)
	var y float32 = 1
	gl.LineWidth(2.0)
	for seriesIndex, blockH := range blocks {
		h := float32(blockH) * scale
		gl.Color3fv(&m.series.colors[seriesIndex][0])
		gl.Begin(gl.LINE_LOOP)
		gl.Vertex2f(0, y)
		gl.Vertex2f(frameW, y)
		gl.Vertex2f(frameW, y+h)
		gl.Vertex2f(0, y+h)
		gl.End()

		y += h
		m.series.Append(seriesIndex, float32(blockH))
	}
	m.series.Render(uint32(m.opts.Height-stackedSeriesHeight), stackedSeriesHeight)
}

func (m *Window) onKeyEvent(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	if action != glfw.Press {
		return
	}

	switch key {
	case glfw.KeyEscape:
		m.requestClose()
	case glfw.KeyTab:
		m.showUI = !m.showUI
		if m.showUI && m.series != nil {
			m.series.Clear()
		}
	}
}

func (m *Window) requestClose() {
	logger.Notice("mirror window closed")
	if m.opts.OnClose != nil {
		m.opts.OnClose()
	}
}

// Close destroys the window. Further Present calls are ignored.
func (m *Window) Close() {
	if m.window == nil {
		return
	}
	gl.DeleteFramebuffers(1, &m.texFbo)
	gl.DeleteTextures(1, &m.tex)
	m.window.Destroy()
	m.window = nil
	glfw.Terminate()
}
