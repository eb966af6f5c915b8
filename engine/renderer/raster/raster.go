package raster

import (
	"math"

	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/shading"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

// NearW is the smallest clip-space w accepted. Primitives with any vertex at or behind it are
// dropped whole; there is no near-plane clipping.
const NearW = 1e-6

// FragmentFunc shades one covered pixel.
type FragmentFunc func(in shading.VertexOutput) mgl32.Vec4

// Topology is how an index list is assembled into primitives. The zero value is a triangle list.
type Topology int

const (
	TopologyTriangleList Topology = iota
	TopologyTriangleStrip
	TopologyPointList
	TopologyLineList
	TopologyLineStrip
)

// State is the fixed-function state applied to a draw. The zero value draws a triangle list
// with both windings, writes every color channel and replaces the stored color.
type State struct {
	DepthTest  bool
	DepthWrite bool
	Compare    wgpu.CompareFunction

	// DepthBias is added to every fragment depth, plus DepthBiasSlopeScale times the largest
	// screen-space depth slope of the triangle. The biased depth is clamped to [0, 1].
	DepthBias           float32
	DepthBiasSlopeScale float32

	Topology  Topology
	CullMode  wgpu.CullMode
	FrontFace wgpu.FrontFace

	// Preserve lists the color channels the draw leaves untouched.
	Preserve wgpu.ColorWriteMask

	// Blend combines the fragment color with the stored one; nil replaces it. The blend
	// constant is transparent black.
	Blend *wgpu.BlendState
}

// Stats counts the work done by one draw.
type Stats struct {
	Primitives int
	Rejected   int
	Fragments  int
}

// Add accumulates another draw's counters.
func (s *Stats) Add(o Stats) {
	s.Primitives += o.Primitives
	s.Rejected += o.Rejected
	s.Fragments += o.Fragments
}

// screenVertex is a vertex after perspective divide and viewport transform.
type screenVertex struct {
	x, y, z float32
	invW    float32
}

// DrawIndexed rasterizes indexed primitives over the whole framebuffer.
//
// Parameters:
//   - verts: transformed vertices
//   - indices: the index list, assembled according to state.Topology
//   - frag: the fragment stage
//   - state: fixed-function state
//
// Returns:
//   - Stats: primitive and fragment counters
func (f *Framebuffer) DrawIndexed(verts []shading.VertexOutput, indices []uint32, frag FragmentFunc, state State) Stats {
	return f.DrawIndexedBand(verts, indices, frag, state, 0, f.height)
}

// DrawIndexedBand rasterizes indexed primitives into rows [y0, y1) only. Bands that do not
// overlap may be drawn concurrently.
//
// Parameters:
//   - verts: transformed vertices
//   - indices: the index list; indices that do not complete a primitive are ignored
//   - frag: the fragment stage
//   - state: fixed-function state
//   - y0: first row, inclusive
//   - y1: last row, exclusive
//
// Returns:
//   - Stats: counters for this band; Primitives and Rejected count every primitive considered,
//     Rejected covering both the near-w test and face culling
func (f *Framebuffer) DrawIndexedBand(verts []shading.VertexOutput, indices []uint32, frag FragmentFunc, state State, y0, y1 int) Stats {
	y0 = max(y0, 0)
	y1 = min(y1, f.height)

	var stats Stats
	emit := func(prim ...uint32) {
		stats.Primitives++
		for _, i := range prim {
			if verts[i].Clip[3] <= NearW {
				stats.Rejected++
				return
			}
		}
		switch len(prim) {
		case 1:
			if y0 < y1 {
				stats.Fragments += f.point(verts[prim[0]], frag, state, y0, y1)
			}
		case 2:
			if y0 < y1 {
				stats.Fragments += f.line(verts[prim[0]], verts[prim[1]], frag, state, y0, y1)
			}
		default:
			n, culled := f.triangle([3]shading.VertexOutput{verts[prim[0]], verts[prim[1]], verts[prim[2]]}, frag, state, y0, y1)
			if culled {
				stats.Rejected++
			}
			stats.Fragments += n
		}
	}

	switch state.Topology {
	case TopologyPointList:
		for _, i := range indices {
			emit(i)
		}
	case TopologyLineList:
		for t := 0; t+1 < len(indices); t += 2 {
			emit(indices[t], indices[t+1])
		}
	case TopologyLineStrip:
		for t := 0; t+1 < len(indices); t++ {
			emit(indices[t], indices[t+1])
		}
	case TopologyTriangleStrip:
		// odd triangles swap their first two vertices to keep a consistent winding
		for t := 0; t+2 < len(indices); t++ {
			if t%2 == 0 {
				emit(indices[t], indices[t+1], indices[t+2])
			} else {
				emit(indices[t+1], indices[t], indices[t+2])
			}
		}
	default:
		for t := 0; t+2 < len(indices); t += 3 {
			emit(indices[t], indices[t+1], indices[t+2])
		}
	}
	return stats
}

// toScreen applies the perspective divide and maps NDC to pixel coordinates with y down.
func (f *Framebuffer) toScreen(clip mgl32.Vec4) screenVertex {
	invW := 1 / clip[3]
	return screenVertex{
		x:    (clip[0]*invW + 1) * 0.5 * float32(f.width),
		y:    (1 - clip[1]*invW) * 0.5 * float32(f.height),
		z:    clip[2] * invW,
		invW: invW,
	}
}

func edge(ax, ay, bx, by, px, py float32) float32 {
	return (bx-ax)*(py-ay) - (by-ay)*(px-ax)
}

// culled reports whether face culling drops a triangle with the given screen-space signed area.
// Screen y points down, so counter-clockwise in NDC has a negative area here.
func culled(state State, area float32) bool {
	if state.CullMode == wgpu.CullModeNone {
		return false
	}
	front := area < 0
	if state.FrontFace == wgpu.FrontFaceCW {
		front = !front
	}
	return (state.CullMode == wgpu.CullModeFront) == front
}

// triangle scan converts one triangle into rows [y0, y1).
func (f *Framebuffer) triangle(v [3]shading.VertexOutput, frag FragmentFunc, state State, y0, y1 int) (int, bool) {
	s := [3]screenVertex{f.toScreen(v[0].Clip), f.toScreen(v[1].Clip), f.toScreen(v[2].Clip)}
	area := edge(s[0].x, s[0].y, s[1].x, s[1].y, s[2].x, s[2].y)
	if area == 0 {
		return 0, false
	}
	if culled(state, area) {
		return 0, true
	}
	if y0 >= y1 {
		return 0, false
	}

	var bias float32
	if state.DepthBias != 0 || state.DepthBiasSlopeScale != 0 {
		// depth plane gradients from the barycentric derivatives
		dzdx := (-(s[2].y-s[1].y)*s[0].z - (s[0].y-s[2].y)*s[1].z - (s[1].y-s[0].y)*s[2].z) / area
		dzdy := ((s[2].x-s[1].x)*s[0].z + (s[0].x-s[2].x)*s[1].z + (s[1].x-s[0].x)*s[2].z) / area
		bias = state.DepthBias + state.DepthBiasSlopeScale*max(mgl32.Abs(dzdx), mgl32.Abs(dzdy))
	}

	minX, maxX := span(min(s[0].x, s[1].x, s[2].x), max(s[0].x, s[1].x, s[2].x), 0, f.width-1)
	minY, maxY := span(min(s[0].y, s[1].y, s[2].y), max(s[0].y, s[1].y, s[2].y), y0, y1-1)

	count := 0
	for y := minY; y <= maxY; y++ {
		py := float32(y) + 0.5
		for x := minX; x <= maxX; x++ {
			px := float32(x) + 0.5
			b0 := edge(s[1].x, s[1].y, s[2].x, s[2].y, px, py) / area
			b1 := edge(s[2].x, s[2].y, s[0].x, s[0].y, px, py) / area
			b2 := edge(s[0].x, s[0].y, s[1].x, s[1].y, px, py) / area
			if b0 < 0 || b1 < 0 || b2 < 0 {
				continue
			}

			depth := b0*s[0].z + b1*s[1].z + b2*s[2].z
			if depth < 0 || depth > 1 {
				continue
			}

			// perspective-correct weights; Clip carries the fragment position with w = 1/w_clip
			p0, p1, p2 := b0*s[0].invW, b1*s[1].invW, b2*s[2].invW
			invW := p0 + p1 + p2
			norm := 1 / invW
			p0, p1, p2 = p0*norm, p1*norm, p2*norm

			in := shading.VertexOutput{
				Clip:   mgl32.Vec4{px, py, depth, invW},
				Normal: v[0].Normal.Mul(p0).Add(v[1].Normal.Mul(p1)).Add(v[2].Normal.Mul(p2)),
				UV:     v[0].UV.Mul(p0).Add(v[1].UV.Mul(p1)).Add(v[2].UV.Mul(p2)),
			}
			if f.fragment(x, y, mgl32.Clamp(depth+bias, 0, 1), in, frag, state) {
				count++
			}
		}
	}
	return count, false
}

// point draws one pixel at the vertex position.
func (f *Framebuffer) point(v shading.VertexOutput, frag FragmentFunc, state State, y0, y1 int) int {
	s := f.toScreen(v.Clip)
	x, y := int(math.Floor(float64(s.x))), int(math.Floor(float64(s.y)))
	if x < 0 || x >= f.width || y < y0 || y >= y1 || s.z < 0 || s.z > 1 {
		return 0
	}
	in := v
	in.Clip = mgl32.Vec4{float32(x) + 0.5, float32(y) + 0.5, s.z, s.invW}
	if f.fragment(x, y, mgl32.Clamp(s.z+state.DepthBias, 0, 1), in, frag, state) {
		return 1
	}
	return 0
}

// line steps one sample per pixel along the major axis; the end pixel is left to the next
// segment of a strip.
func (f *Framebuffer) line(a, b shading.VertexOutput, frag FragmentFunc, state State, y0, y1 int) int {
	sa, sb := f.toScreen(a.Clip), f.toScreen(b.Clip)
	dx, dy := sb.x-sa.x, sb.y-sa.y
	steps := int(math.Ceil(float64(max(mgl32.Abs(dx), mgl32.Abs(dy)))))
	if steps == 0 {
		return 0
	}

	count := 0
	for i := range steps {
		t := (float32(i) + 0.5) / float32(steps)
		px, py := sa.x+dx*t, sa.y+dy*t
		x, y := int(math.Floor(float64(px))), int(math.Floor(float64(py)))
		if x < 0 || x >= f.width || y < y0 || y >= y1 {
			continue
		}
		depth := sa.z + (sb.z-sa.z)*t
		if depth < 0 || depth > 1 {
			continue
		}
		wa, wb := (1-t)*sa.invW, t*sb.invW
		invW := wa + wb
		wa, wb = wa/invW, wb/invW
		in := shading.VertexOutput{
			Clip:   mgl32.Vec4{float32(x) + 0.5, float32(y) + 0.5, depth, invW},
			Normal: a.Normal.Mul(wa).Add(b.Normal.Mul(wb)),
			UV:     a.UV.Mul(wa).Add(b.UV.Mul(wb)),
		}
		if f.fragment(x, y, mgl32.Clamp(depth+state.DepthBias, 0, 1), in, frag, state) {
			count++
		}
	}
	return count
}

// fragment runs the depth test, the fragment stage, blending and the write mask for one pixel.
// It reports whether the fragment passed the depth test.
func (f *Framebuffer) fragment(x, y int, depth float32, in shading.VertexOutput, frag FragmentFunc, state State) bool {
	idx := y*f.width + x
	if state.DepthTest && !compare(state.Compare, depth, f.depth[idx]) {
		return false
	}

	src := frag(in)
	dst := f.color[idx]
	out := src
	if state.Blend != nil {
		out = blend(*state.Blend, src, dst)
	}
	for c, bit := range [4]wgpu.ColorWriteMask{wgpu.ColorWriteMaskRed, wgpu.ColorWriteMaskGreen, wgpu.ColorWriteMaskBlue, wgpu.ColorWriteMaskAlpha} {
		if state.Preserve&bit != 0 {
			out[c] = dst[c]
		}
	}
	f.color[idx] = out

	if state.DepthTest && state.DepthWrite {
		f.depth[idx] = depth
	}
	return true
}

// blend applies the color component to RGB and the alpha component to A.
func blend(bs wgpu.BlendState, src, dst mgl32.Vec4) mgl32.Vec4 {
	var out mgl32.Vec4
	for c := range 3 {
		out[c] = blendChannel(bs.Color, src[c], dst[c],
			blendFactor(bs.Color.SrcFactor, src, dst, c),
			blendFactor(bs.Color.DstFactor, src, dst, c))
	}
	out[3] = blendChannel(bs.Alpha, src[3], dst[3],
		blendFactor(bs.Alpha.SrcFactor, src, dst, 3),
		blendFactor(bs.Alpha.DstFactor, src, dst, 3))
	return out
}

func blendChannel(bc wgpu.BlendComponent, s, d, sf, df float32) float32 {
	switch bc.Operation {
	case wgpu.BlendOperationSubtract:
		return s*sf - d*df
	case wgpu.BlendOperationReverseSubtract:
		return d*df - s*sf
	case wgpu.BlendOperationMin:
		return min(s, d)
	case wgpu.BlendOperationMax:
		return max(s, d)
	default:
		return s*sf + d*df
	}
}

// blendFactor evaluates a blend factor for channel c.
func blendFactor(bf wgpu.BlendFactor, src, dst mgl32.Vec4, c int) float32 {
	switch bf {
	case wgpu.BlendFactorZero, wgpu.BlendFactorConstant:
		return 0
	case wgpu.BlendFactorSrc:
		return src[c]
	case wgpu.BlendFactorOneMinusSrc:
		return 1 - src[c]
	case wgpu.BlendFactorSrcAlpha:
		return src[3]
	case wgpu.BlendFactorOneMinusSrcAlpha:
		return 1 - src[3]
	case wgpu.BlendFactorDst:
		return dst[c]
	case wgpu.BlendFactorOneMinusDst:
		return 1 - dst[c]
	case wgpu.BlendFactorDstAlpha:
		return dst[3]
	case wgpu.BlendFactorOneMinusDstAlpha:
		return 1 - dst[3]
	case wgpu.BlendFactorSrcAlphaSaturated:
		if c == 3 {
			return 1
		}
		return min(src[3], 1-dst[3])
	default:
		return 1
	}
}

// compare evaluates a depth compare function of the incoming depth against the stored one.
func compare(fn wgpu.CompareFunction, incoming, stored float32) bool {
	switch fn {
	case wgpu.CompareFunctionNever:
		return false
	case wgpu.CompareFunctionLess:
		return incoming < stored
	case wgpu.CompareFunctionLessEqual:
		return incoming <= stored
	case wgpu.CompareFunctionGreater:
		return incoming > stored
	case wgpu.CompareFunctionGreaterEqual:
		return incoming >= stored
	case wgpu.CompareFunctionEqual:
		return incoming == stored
	case wgpu.CompareFunctionNotEqual:
		return incoming != stored
	default:
		return true
	}
}

// span clamps a screen-space extent to pixel indices [lo, hi] before converting, so vertices
// far off screen never overflow an int.
func span(from, to float32, lo, hi int) (int, int) {
	from = max(from, float32(lo))
	to = min(to, float32(hi))
	return int(math.Floor(float64(from))), int(math.Ceil(float64(to)))
}
