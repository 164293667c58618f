// Package geometry holds the pure coordinate math for the 800x600 canvas:
// viewport transforms, element bounds, hit-testing, and marquee queries.
// No UI imports; everything operates on model values.
package geometry

import (
	"math"
	"sort"
	"unicode/utf8"

	"labelboard/pkg/diagram"
)

// HitSlop widens thin shapes (lines, arrows, hairline rects) so they stay
// clickable at stroke width 1.
const HitSlop = 4.0

// Approximate glyph metrics used for point-label hit boxes. Labels render
// with a proportional face, so this is a heuristic, not a measurement.
const (
	glyphWidthFactor = 0.6
	lineHeightFactor = 1.2
)

type Rect struct {
	X, Y, W, H float64
}

func RectFromCorners(a, b diagram.Point) Rect {
	x0, x1 := math.Min(a.X, b.X), math.Max(a.X, b.X)
	y0, y1 := math.Min(a.Y, b.Y), math.Max(a.Y, b.Y)
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

func (r Rect) Contains(p diagram.Point) bool {
	return p.X >= r.X && p.X <= r.X+r.W && p.Y >= r.Y && p.Y <= r.Y+r.H
}

func (r Rect) Intersects(o Rect) bool {
	return r.X <= o.X+o.W && o.X <= r.X+r.W && r.Y <= o.Y+o.H && o.Y <= r.Y+r.H
}

func (r Rect) Expand(by float64) Rect {
	return Rect{X: r.X - by, Y: r.Y - by, W: r.W + 2*by, H: r.H + 2*by}
}

func (r Rect) Center() diagram.Point {
	return diagram.Point{X: r.X + r.W/2, Y: r.Y + r.H/2}
}

// ToCanvas maps a screen position into canvas coordinates given the viewport
// rect the canvas is painted into. ok is false outside the viewport.
func ToCanvas(sx, sy float64, viewport Rect) (diagram.Point, bool) {
	if viewport.W <= 0 || viewport.H <= 0 {
		return diagram.Point{}, false
	}
	if sx < viewport.X || sx > viewport.X+viewport.W || sy < viewport.Y || sy > viewport.Y+viewport.H {
		return diagram.Point{}, false
	}
	return diagram.Point{
		X: (sx - viewport.X) * diagram.CanvasWidth / viewport.W,
		Y: (sy - viewport.Y) * diagram.CanvasHeight / viewport.H,
	}, true
}

// FromCanvas is the inverse transform, used when painting.
func FromCanvas(p diagram.Point, viewport Rect) (float64, float64) {
	return viewport.X + p.X*viewport.W/diagram.CanvasWidth,
		viewport.Y + p.Y*viewport.H/diagram.CanvasHeight
}

// Centroid is the vertex mean. Polygon label anchors use this.
func Centroid(pts []diagram.Point) diagram.Point {
	if len(pts) == 0 {
		return diagram.Point{}
	}
	var sx, sy float64
	for _, p := range pts {
		sx += p.X
		sy += p.Y
	}
	n := float64(len(pts))
	return diagram.Point{X: sx / n, Y: sy / n}
}

func PolygonBounds(pts []diagram.Point) Rect {
	if len(pts) == 0 {
		return Rect{}
	}
	minX, maxX := pts[0].X, pts[0].X
	minY, maxY := pts[0].Y, pts[0].Y
	for _, p := range pts[1:] {
		minX = math.Min(minX, p.X)
		maxX = math.Max(maxX, p.X)
		minY = math.Min(minY, p.Y)
		maxY = math.Max(maxY, p.Y)
	}
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

func ImageBounds(img diagram.Image) Rect {
	return Rect{X: img.X, Y: img.Y, W: img.Width, H: img.Height}
}

func ShapeBounds(s diagram.Shape) Rect {
	if s.Kind == diagram.ShapePolygon {
		return PolygonBounds(s.Points)
	}
	if len(s.Points) < 2 {
		return Rect{}
	}
	return RectFromCorners(s.Points[0], s.Points[1])
}

// LabelBounds is the interactive region of a label. Rect, circle and polygon
// labels have explicit extents; point labels get a text-sized box centered on
// the anchor so short labels remain grabbable.
func LabelBounds(l diagram.Label) Rect {
	switch l.Shape {
	case diagram.LabelRectangle, diagram.LabelCircle:
		return Rect{X: l.X - l.Width/2, Y: l.Y - l.Height/2, W: l.Width, H: l.Height}
	case diagram.LabelPolygon:
		return PolygonBounds(l.Polygon)
	default:
		n := utf8.RuneCountInString(l.Text)
		if n == 0 {
			n = 1
		}
		w := float64(n) * l.FontSize * glyphWidthFactor
		h := l.FontSize * lineHeightFactor
		return Rect{X: l.X - w/2, Y: l.Y - h/2, W: w, H: h}
	}
}

// TextBounds is the box the label's text occupies once its independent
// offset is applied. Used as the grab target for text-offset drags.
func TextBounds(l diagram.Label) Rect {
	n := utf8.RuneCountInString(l.Text)
	if n == 0 {
		n = 1
	}
	w := float64(n) * l.FontSize * glyphWidthFactor
	h := l.FontSize * lineHeightFactor
	cx := l.X + l.OffsetX
	cy := l.Y + l.OffsetY
	return Rect{X: cx - w/2, Y: cy - h/2, W: w, H: h}
}

func PointInImage(p diagram.Point, img diagram.Image) bool {
	return ImageBounds(img).Contains(p)
}

// PointInShape tests against the slop-expanded bounding box. Lines and
// arrows degenerate to zero-area boxes, so the expansion is what makes
// them selectable at all.
func PointInShape(p diagram.Point, s diagram.Shape) bool {
	return ShapeBounds(s).Expand(HitSlop).Contains(p)
}

func PointInLabel(p diagram.Point, l diagram.Label) bool {
	return LabelBounds(l).Contains(p)
}

type HitKind int

const (
	HitNone HitKind = iota
	HitImage
	HitShape
	HitLabel
)

type Hit struct {
	Kind  HitKind
	Index int
}

// HitTest returns the topmost element under p. Labels always beat shapes,
// shapes beat images; within a class higher z wins, and later insertion
// wins ties so newly added elements are grabbed first.
func HitTest(c diagram.Card, p diagram.Point) (Hit, bool) {
	for i := len(c.Labels) - 1; i >= 0; i-- {
		if PointInLabel(p, c.Labels[i]) {
			return Hit{Kind: HitLabel, Index: i}, true
		}
	}
	for _, i := range shapeDrawOrder(c.Shapes) {
		if PointInShape(p, c.Shapes[i]) {
			return Hit{Kind: HitShape, Index: i}, true
		}
	}
	for _, i := range imageDrawOrder(c.Images) {
		if PointInImage(p, c.Images[i]) {
			return Hit{Kind: HitImage, Index: i}, true
		}
	}
	return Hit{}, false
}

// shapeDrawOrder lists shape indices topmost first.
func shapeDrawOrder(shapes []diagram.Shape) []int {
	idx := make([]int, len(shapes))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		if shapes[idx[a]].Z != shapes[idx[b]].Z {
			return shapes[idx[a]].Z > shapes[idx[b]].Z
		}
		return idx[a] > idx[b]
	})
	return idx
}

func imageDrawOrder(images []diagram.Image) []int {
	idx := make([]int, len(images))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		if images[idx[a]].Z != images[idx[b]].Z {
			return images[idx[a]].Z > images[idx[b]].Z
		}
		return idx[a] > idx[b]
	})
	return idx
}

// PaintOrderShapes lists shape indices bottom first, for rendering.
func PaintOrderShapes(shapes []diagram.Shape) []int {
	idx := shapeDrawOrder(shapes)
	for i, j := 0, len(idx)-1; i < j; i, j = i+1, j-1 {
		idx[i], idx[j] = idx[j], idx[i]
	}
	return idx
}

func PaintOrderImages(images []diagram.Image) []int {
	idx := imageDrawOrder(images)
	for i, j := 0, len(idx)-1; i < j; i, j = i+1, j-1 {
		idx[i], idx[j] = idx[j], idx[i]
	}
	return idx
}

// MarqueeHits returns every element whose bounds intersect r, in the same
// class order the hit test uses.
func MarqueeHits(c diagram.Card, r Rect) []Hit {
	var out []Hit
	for i := range c.Labels {
		if r.Intersects(LabelBounds(c.Labels[i])) {
			out = append(out, Hit{Kind: HitLabel, Index: i})
		}
	}
	for i := range c.Shapes {
		if r.Intersects(ShapeBounds(c.Shapes[i]).Expand(HitSlop)) {
			out = append(out, Hit{Kind: HitShape, Index: i})
		}
	}
	for i := range c.Images {
		if r.Intersects(ImageBounds(c.Images[i])) {
			out = append(out, Hit{Kind: HitImage, Index: i})
		}
	}
	return out
}
