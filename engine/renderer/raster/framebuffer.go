package raster

import (
	"image"
	"image/color"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

// Framebuffer is a single RGBA float color attachment plus a depth attachment. Colors are
// stored unclamped; clamping happens only when converting to an image.
//
// Concurrent draws into disjoint row bands are safe. Clear and Image must not overlap a draw.
type Framebuffer struct {
	mu     *sync.RWMutex
	width  int
	height int
	color  []mgl32.Vec4
	depth  []float32
}

// NewFramebuffer allocates a framebuffer cleared to transparent black with depth 1.
//
// Parameters:
//   - width: width in pixels, must be positive
//   - height: height in pixels, must be positive
//
// Returns:
//   - *Framebuffer: the framebuffer
func NewFramebuffer(width, height int) *Framebuffer {
	if width <= 0 || height <= 0 {
		panic("raster: framebuffer dimensions must be positive")
	}
	f := &Framebuffer{
		mu:     &sync.RWMutex{},
		width:  width,
		height: height,
		color:  make([]mgl32.Vec4, width*height),
		depth:  make([]float32, width*height),
	}
	f.Clear(mgl32.Vec4{}, 1)
	return f
}

// Width returns the width in pixels.
func (f *Framebuffer) Width() int {
	return f.width
}

// Height returns the height in pixels.
func (f *Framebuffer) Height() int {
	return f.height
}

// Clear fills both attachments.
//
// Parameters:
//   - c: the clear color
//   - depth: the clear depth, 1 for a standard depth range and 0 for reverse-Z
func (f *Framebuffer) Clear(c mgl32.Vec4, depth float32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.color {
		f.color[i] = c
		f.depth[i] = depth
	}
}

// At returns the unclamped color of a pixel. (0, 0) is the top-left corner.
func (f *Framebuffer) At(x, y int) mgl32.Vec4 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.color[y*f.width+x]
}

// DepthAt returns the stored depth of a pixel.
func (f *Framebuffer) DepthAt(x, y int) float32 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.depth[y*f.width+x]
}

// Image converts the color attachment to 8-bit non-premultiplied RGBA, clamping every
// channel to [0, 1].
//
// Returns:
//   - *image.NRGBA: the converted image
func (f *Framebuffer) Image() *image.NRGBA {
	f.mu.RLock()
	defer f.mu.RUnlock()

	img := image.NewNRGBA(image.Rect(0, 0, f.width, f.height))
	for y := range f.height {
		for x := range f.width {
			c := f.color[y*f.width+x]
			img.SetNRGBA(x, y, color.NRGBA{
				R: toByte(c[0]),
				G: toByte(c[1]),
				B: toByte(c[2]),
				A: toByte(c[3]),
			})
		}
	}
	return img
}

func toByte(v float32) uint8 {
	return uint8(mgl32.Clamp(v, 0, 1)*255 + 0.5)
}
