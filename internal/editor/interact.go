package editor

import (
	"math"

	"labelboard/internal/geometry"
	"labelboard/pkg/diagram"
)

// mode is the current interaction, a tagged union so invalid combinations
// (dragging while drawing, two captures at once) cannot be represented.
type mode interface{ isMode() }

type idleMode struct{}

type dragMode struct {
	target    Selection
	start     diagram.Point
	origImage diagram.Image
	origShape diagram.Shape
	origLabel diagram.Label
	recorded  bool
}

type resizeMode struct {
	target    Selection
	handle    Handle
	start     diagram.Point
	origImage diagram.Image
	origShape diagram.Shape
	origLabel diagram.Label
	recorded  bool
}

type vertexDragMode struct {
	labelID  string
	vertex   int
	start    diagram.Point
	orig     []diagram.Point
	recorded bool
}

type textDragMode struct {
	labelID        string
	start          diagram.Point
	origOX, origOY float64
	recorded       bool
}

type drawShapeMode struct {
	kind           diagram.ShapeKind
	start, current diagram.Point
}

type drawLabelBoxMode struct {
	shape          diagram.LabelShape
	start, current diagram.Point
}

type drawPolygonMode struct {
	vertices []diagram.Point
}

type marqueeMode struct {
	start, current diagram.Point
}

func (idleMode) isMode()         {}
func (dragMode) isMode()         {}
func (resizeMode) isMode()       {}
func (vertexDragMode) isMode()   {}
func (textDragMode) isMode()     {}
func (drawShapeMode) isMode()    {}
func (drawLabelBoxMode) isMode() {}
func (drawPolygonMode) isMode()  {}
func (marqueeMode) isMode()      {}

type Handle string

const (
	HandleNW    Handle = "nw"
	HandleN     Handle = "n"
	HandleNE    Handle = "ne"
	HandleE     Handle = "e"
	HandleSE    Handle = "se"
	HandleS     Handle = "s"
	HandleSW    Handle = "sw"
	HandleW     Handle = "w"
	HandleStart Handle = "start"
	HandleEnd   Handle = "end"
)

// HandleSpot is a resize handle's canvas position, exposed so the UI can
// paint the same handles the hit logic uses.
type HandleSpot struct {
	Handle Handle
	At     diagram.Point
}

// PointerDown receives a press already converted to canvas coordinates.
func (s *State) PointerDown(p diagram.Point) {
	switch s.Tool {
	case ToolSelect:
		s.selectDown(p)
	case ToolRectangle, ToolCircle, ToolLine, ToolArrow:
		if s.ReadOnly {
			return
		}
		s.mode = drawShapeMode{kind: toolShapeKind(s.Tool), start: p, current: p}
	case ToolLabel:
		if s.ReadOnly {
			return
		}
		switch s.LabelShape {
		case diagram.LabelPoint:
			s.pending = &PendingLabel{Shape: diagram.LabelPoint, X: p.X, Y: p.Y}
		case diagram.LabelRectangle, diagram.LabelCircle:
			s.mode = drawLabelBoxMode{shape: s.LabelShape, start: p, current: p}
		case diagram.LabelPolygon:
			if m, ok := s.mode.(drawPolygonMode); ok {
				m.vertices = append(m.vertices, p)
				s.mode = m
			} else {
				s.mode = drawPolygonMode{vertices: []diagram.Point{p}}
			}
		}
	}
}

func (s *State) selectDown(p diagram.Point) {
	c := s.Card()

	if sel := s.selected; !sel.IsZero() && !s.ReadOnly {
		// Polygon vertex handles beat generic capture.
		if sel.Kind == geometry.HitLabel {
			if i := findLabel(c, sel.ID); i >= 0 && c.Labels[i].Shape == diagram.LabelPolygon {
				for vi, v := range c.Labels[i].Polygon {
					if math.Abs(p.X-v.X) <= handleGrab && math.Abs(p.Y-v.Y) <= handleGrab {
						s.mode = vertexDragMode{
							labelID: sel.ID,
							vertex:  vi,
							start:   p,
							orig:    append([]diagram.Point(nil), c.Labels[i].Polygon...),
						}
						return
					}
				}
			}
		}
		if h, ok := s.handleAt(p); ok {
			s.startResize(h, p)
			return
		}
		if sel.Kind == geometry.HitLabel {
			if i := findLabel(c, sel.ID); i >= 0 {
				l := c.Labels[i]
				if l.Shape != diagram.LabelPoint && geometry.TextBounds(l).Contains(p) {
					s.mode = textDragMode{labelID: sel.ID, start: p, origOX: l.OffsetX, origOY: l.OffsetY}
					return
				}
			}
		}
	}

	hit, ok := geometry.HitTest(*c, p)
	if !ok {
		s.selected = Selection{}
		s.mode = marqueeMode{start: p, current: p}
		return
	}

	sel := selectionFromHit(*c, hit)
	s.setSelection(sel)
	if s.ReadOnly {
		return
	}
	m := dragMode{target: sel, start: p}
	switch hit.Kind {
	case geometry.HitImage:
		m.origImage = c.Images[hit.Index]
	case geometry.HitShape:
		m.origShape = c.Shapes[hit.Index]
		m.origShape.Points = append([]diagram.Point(nil), c.Shapes[hit.Index].Points...)
	case geometry.HitLabel:
		m.origLabel = c.Labels[hit.Index]
		if c.Labels[hit.Index].Polygon != nil {
			m.origLabel.Polygon = append([]diagram.Point(nil), c.Labels[hit.Index].Polygon...)
		}
	}
	s.mode = m
}

func (s *State) startResize(h Handle, p diagram.Point) {
	c := s.Card()
	m := resizeMode{target: s.selected, handle: h, start: p}
	switch s.selected.Kind {
	case geometry.HitImage:
		i := findImage(c, s.selected.ID)
		if i < 0 {
			return
		}
		m.origImage = c.Images[i]
	case geometry.HitShape:
		i := findShape(c, s.selected.ID)
		if i < 0 {
			return
		}
		m.origShape = c.Shapes[i]
		m.origShape.Points = append([]diagram.Point(nil), c.Shapes[i].Points...)
	case geometry.HitLabel:
		i := findLabel(c, s.selected.ID)
		if i < 0 {
			return
		}
		m.origLabel = c.Labels[i]
	default:
		return
	}
	s.mode = m
}

func (s *State) PointerMove(p diagram.Point) {
	switch m := s.mode.(type) {
	case dragMode:
		s.applyDrag(&m, p)
		s.mode = m
	case resizeMode:
		s.applyResize(&m, p)
		s.mode = m
	case vertexDragMode:
		s.applyVertexDrag(&m, p)
		s.mode = m
	case textDragMode:
		s.applyTextDrag(&m, p)
		s.mode = m
	case drawShapeMode:
		m.current = p
		s.mode = m
	case drawLabelBoxMode:
		m.current = p
		s.mode = m
	case marqueeMode:
		m.current = p
		s.mode = m
	}
}

func (s *State) PointerUp(p diagram.Point) {
	switch m := s.mode.(type) {
	case drawShapeMode:
		s.mode = idleMode{}
		if math.Hypot(p.X-m.start.X, p.Y-m.start.Y) <= shapeCommitThreshold {
			return
		}
		s.commitShape(m.kind, m.start, p)
	case drawLabelBoxMode:
		s.mode = idleMode{}
		if math.Hypot(p.X-m.start.X, p.Y-m.start.Y) <= labelBoxThreshold {
			return
		}
		box := geometry.RectFromCorners(m.start, p)
		center := box.Center()
		pl := &PendingLabel{Shape: m.shape, X: center.X, Y: center.Y, W: box.W, H: box.H}
		if m.shape == diagram.LabelCircle {
			d := maxFloat(box.W, box.H)
			pl.W, pl.H = d, d
		}
		s.pending = pl
	case marqueeMode:
		s.mode = idleMode{}
		r := geometry.RectFromCorners(m.start, p)
		if r.W <= marqueeThreshold || r.H <= marqueeThreshold {
			s.ClearSelection()
			return
		}
		c := s.Card()
		hits := geometry.MarqueeHits(*c, r)
		s.selected = Selection{}
		s.multi = s.multi[:0]
		for _, h := range hits {
			s.multi = append(s.multi, selectionFromHit(*c, h))
		}
	case dragMode, resizeMode, vertexDragMode, textDragMode:
		s.mode = idleMode{}
	case drawPolygonMode:
		// Polygon construction spans gestures; pointer-up keeps it alive.
	}
}

// DoubleClick finalizes an in-progress polygon. The second press of the
// double click has already appended a duplicate vertex, so it is dropped
// before finalizing.
func (s *State) DoubleClick(p diagram.Point) {
	m, ok := s.mode.(drawPolygonMode)
	if !ok {
		return
	}
	if n := len(m.vertices); n >= 2 {
		last, prev := m.vertices[n-1], m.vertices[n-2]
		if math.Hypot(last.X-prev.X, last.Y-prev.Y) <= shapeCommitThreshold {
			m.vertices = m.vertices[:n-1]
		}
	}
	s.finalizePolygon(m.vertices)
}

// PressEnter finalizes polygon construction when one is in progress.
func (s *State) PressEnter() {
	if m, ok := s.mode.(drawPolygonMode); ok {
		s.finalizePolygon(m.vertices)
	}
}

// PressEscape cancels whatever is in flight: the text prompt, the polygon
// under construction, any capture, or failing those the selection.
func (s *State) PressEscape() {
	if s.pending != nil {
		s.pending = nil
		if _, ok := s.mode.(drawPolygonMode); ok {
			s.mode = idleMode{}
		}
		return
	}
	if _, ok := s.mode.(idleMode); !ok {
		s.mode = idleMode{}
		return
	}
	s.ClearSelection()
}

func (s *State) finalizePolygon(vertices []diagram.Point) {
	s.mode = idleMode{}
	if len(vertices) < 3 {
		return
	}
	anchor := geometry.Centroid(vertices)
	s.pending = &PendingLabel{
		Shape:   diagram.LabelPolygon,
		X:       anchor.X,
		Y:       anchor.Y,
		Polygon: append([]diagram.Point(nil), vertices...),
	}
}

func (s *State) commitShape(kind diagram.ShapeKind, a, b diagram.Point) {
	sh := diagram.Shape{
		ID:          diagram.NewID(),
		Kind:        kind,
		Points:      []diagram.Point{a, b},
		Stroke:      s.StrokeColor,
		Fill:        s.FillColor,
		StrokeWidth: s.StrokeWidth,
	}
	s.UpdateCard(func(c *diagram.Card) {
		if z, ok := diagram.MaxShapeZ(*c); ok {
			sh.Z = z + 1
		}
		c.Shapes = append(c.Shapes, sh)
	})
}

func (s *State) applyDrag(m *dragMode, p diagram.Point) {
	dx, dy := p.X-m.start.X, p.Y-m.start.Y
	if dx == 0 && dy == 0 {
		return
	}
	if !m.recorded {
		s.pushUndo()
		m.recorded = true
	}
	switch m.target.Kind {
	case geometry.HitImage:
		s.mutateLive(func(c *diagram.Card) {
			if i := findImage(c, m.target.ID); i >= 0 {
				c.Images[i].X = m.origImage.X + dx
				c.Images[i].Y = m.origImage.Y + dy
			}
		})
	case geometry.HitShape:
		s.mutateLive(func(c *diagram.Card) {
			if i := findShape(c, m.target.ID); i >= 0 {
				pts := make([]diagram.Point, len(m.origShape.Points))
				for j, op := range m.origShape.Points {
					pts[j] = diagram.Point{X: op.X + dx, Y: op.Y + dy}
				}
				c.Shapes[i].Points = pts
			}
		})
	case geometry.HitLabel:
		s.mutateLive(func(c *diagram.Card) {
			if i := findLabel(c, m.target.ID); i >= 0 {
				l := &c.Labels[i]
				l.X = m.origLabel.X + dx
				l.Y = m.origLabel.Y + dy
				if l.Shape == diagram.LabelPolygon {
					// Always offset from the captured vertices so composite
					// moves cannot accumulate drift.
					pts := make([]diagram.Point, len(m.origLabel.Polygon))
					for j, op := range m.origLabel.Polygon {
						pts[j] = diagram.Point{X: op.X + dx, Y: op.Y + dy}
					}
					l.Polygon = pts
					anchor := geometry.Centroid(pts)
					l.X, l.Y = anchor.X, anchor.Y
				}
			}
		})
	}
}

func (s *State) applyResize(m *resizeMode, p diagram.Point) {
	dx, dy := p.X-m.start.X, p.Y-m.start.Y
	if dx == 0 && dy == 0 {
		return
	}
	if !m.recorded {
		s.pushUndo()
		m.recorded = true
	}
	switch m.target.Kind {
	case geometry.HitImage:
		r := resizeRect(geometry.ImageBounds(m.origImage), m.handle, dx, dy, minImageSize)
		s.mutateLive(func(c *diagram.Card) {
			if i := findImage(c, m.target.ID); i >= 0 {
				c.Images[i].X, c.Images[i].Y = r.X, r.Y
				c.Images[i].Width, c.Images[i].Height = r.W, r.H
			}
		})
	case geometry.HitShape:
		s.resizeShape(m, dx, dy)
	case geometry.HitLabel:
		s.resizeLabel(m, dx, dy)
	}
}

func (s *State) resizeShape(m *resizeMode, dx, dy float64) {
	orig := m.origShape
	switch orig.Kind {
	case diagram.ShapeLine, diagram.ShapeArrow:
		idx := 0
		if m.handle == HandleEnd {
			idx = 1
		}
		if len(orig.Points) < 2 {
			return
		}
		np := diagram.Point{X: orig.Points[idx].X + dx, Y: orig.Points[idx].Y + dy}
		s.mutateLive(func(c *diagram.Card) {
			if i := findShape(c, m.target.ID); i >= 0 && len(c.Shapes[i].Points) > idx {
				c.Shapes[i].Points[idx] = np
			}
		})
	case diagram.ShapeCircle:
		if m.handle != HandleE || len(orig.Points) < 2 {
			return
		}
		b := geometry.RectFromCorners(orig.Points[0], orig.Points[1])
		center := b.Center()
		r := b.W/2 + dx
		if r < minShapeSize/2 {
			r = minShapeSize / 2
		}
		s.mutateLive(func(c *diagram.Card) {
			if i := findShape(c, m.target.ID); i >= 0 {
				c.Shapes[i].Points = []diagram.Point{
					{X: center.X - r, Y: center.Y - r},
					{X: center.X + r, Y: center.Y + r},
				}
			}
		})
	default:
		if len(orig.Points) < 2 {
			return
		}
		r := resizeRect(geometry.RectFromCorners(orig.Points[0], orig.Points[1]), m.handle, dx, dy, minShapeSize)
		s.mutateLive(func(c *diagram.Card) {
			if i := findShape(c, m.target.ID); i >= 0 {
				c.Shapes[i].Points = []diagram.Point{
					{X: r.X, Y: r.Y},
					{X: r.X + r.W, Y: r.Y + r.H},
				}
			}
		})
	}
}

func (s *State) resizeLabel(m *resizeMode, dx, dy float64) {
	orig := m.origLabel
	switch orig.Shape {
	case diagram.LabelRectangle:
		if !isCornerHandle(m.handle) {
			return
		}
		b := geometry.Rect{X: orig.X - orig.Width/2, Y: orig.Y - orig.Height/2, W: orig.Width, H: orig.Height}
		r := resizeRect(b, m.handle, dx, dy, minLabelSize)
		center := r.Center()
		s.mutateLive(func(c *diagram.Card) {
			if i := findLabel(c, m.target.ID); i >= 0 {
				c.Labels[i].X, c.Labels[i].Y = center.X, center.Y
				c.Labels[i].Width, c.Labels[i].Height = r.W, r.H
			}
		})
	case diagram.LabelCircle:
		if m.handle != HandleE {
			return
		}
		// East handle scales the diameter about the fixed center.
		d := orig.Width + 2*dx
		if d < minLabelSize {
			d = minLabelSize
		}
		s.mutateLive(func(c *diagram.Card) {
			if i := findLabel(c, m.target.ID); i >= 0 {
				c.Labels[i].Width = d
				c.Labels[i].Height = d
			}
		})
	}
}

func (s *State) applyVertexDrag(m *vertexDragMode, p diagram.Point) {
	dx, dy := p.X-m.start.X, p.Y-m.start.Y
	if dx == 0 && dy == 0 {
		return
	}
	if m.vertex < 0 || m.vertex >= len(m.orig) {
		return
	}
	if !m.recorded {
		s.pushUndo()
		m.recorded = true
	}
	np := diagram.Point{X: m.orig[m.vertex].X + dx, Y: m.orig[m.vertex].Y + dy}
	s.mutateLive(func(c *diagram.Card) {
		if i := findLabel(c, m.labelID); i >= 0 && m.vertex < len(c.Labels[i].Polygon) {
			c.Labels[i].Polygon[m.vertex] = np
			anchor := geometry.Centroid(c.Labels[i].Polygon)
			c.Labels[i].X, c.Labels[i].Y = anchor.X, anchor.Y
		}
	})
}

func (s *State) applyTextDrag(m *textDragMode, p diagram.Point) {
	dx, dy := p.X-m.start.X, p.Y-m.start.Y
	if dx == 0 && dy == 0 {
		return
	}
	if !m.recorded {
		s.pushUndo()
		m.recorded = true
	}
	s.mutateLive(func(c *diagram.Card) {
		if i := findLabel(c, m.labelID); i >= 0 {
			c.Labels[i].OffsetX = m.origOX + dx
			c.Labels[i].OffsetY = m.origOY + dy
		}
	})
}

// handleAt finds the resize handle of the selected element under p.
func (s *State) handleAt(p diagram.Point) (Handle, bool) {
	for _, spot := range s.HandleSpots() {
		if math.Abs(p.X-spot.At.X) <= handleGrab && math.Abs(p.Y-spot.At.Y) <= handleGrab {
			return spot.Handle, true
		}
	}
	return "", false
}

// HandleSpots lists the resize handles for the current single selection.
func (s *State) HandleSpots() []HandleSpot {
	sel := s.selected
	if sel.IsZero() {
		return nil
	}
	c := s.Card()
	switch sel.Kind {
	case geometry.HitImage:
		i := findImage(c, sel.ID)
		if i < 0 {
			return nil
		}
		return boxHandles(geometry.ImageBounds(c.Images[i]))
	case geometry.HitShape:
		i := findShape(c, sel.ID)
		if i < 0 {
			return nil
		}
		sh := c.Shapes[i]
		switch sh.Kind {
		case diagram.ShapeLine, diagram.ShapeArrow:
			if len(sh.Points) < 2 {
				return nil
			}
			return []HandleSpot{
				{Handle: HandleStart, At: sh.Points[0]},
				{Handle: HandleEnd, At: sh.Points[1]},
			}
		case diagram.ShapeCircle:
			if len(sh.Points) < 2 {
				return nil
			}
			b := geometry.RectFromCorners(sh.Points[0], sh.Points[1])
			return []HandleSpot{{Handle: HandleE, At: diagram.Point{X: b.X + b.W, Y: b.Y + b.H/2}}}
		case diagram.ShapePolygon:
			return nil
		default:
			if len(sh.Points) < 2 {
				return nil
			}
			return boxHandles(geometry.RectFromCorners(sh.Points[0], sh.Points[1]))
		}
	case geometry.HitLabel:
		i := findLabel(c, sel.ID)
		if i < 0 {
			return nil
		}
		l := c.Labels[i]
		switch l.Shape {
		case diagram.LabelRectangle:
			b := geometry.LabelBounds(l)
			return []HandleSpot{
				{Handle: HandleNW, At: diagram.Point{X: b.X, Y: b.Y}},
				{Handle: HandleNE, At: diagram.Point{X: b.X + b.W, Y: b.Y}},
				{Handle: HandleSE, At: diagram.Point{X: b.X + b.W, Y: b.Y + b.H}},
				{Handle: HandleSW, At: diagram.Point{X: b.X, Y: b.Y + b.H}},
			}
		case diagram.LabelCircle:
			return []HandleSpot{{Handle: HandleE, At: diagram.Point{X: l.X + l.Width/2, Y: l.Y}}}
		}
	}
	return nil
}

// View accessors for the rendering layer.

func (s *State) ShapePreview() (diagram.ShapeKind, diagram.Point, diagram.Point, bool) {
	if m, ok := s.mode.(drawShapeMode); ok {
		return m.kind, m.start, m.current, true
	}
	return "", diagram.Point{}, diagram.Point{}, false
}

func (s *State) LabelBoxPreview() (diagram.LabelShape, diagram.Point, diagram.Point, bool) {
	if m, ok := s.mode.(drawLabelBoxMode); ok {
		return m.shape, m.start, m.current, true
	}
	return "", diagram.Point{}, diagram.Point{}, false
}

func (s *State) PolygonInProgress() []diagram.Point {
	if m, ok := s.mode.(drawPolygonMode); ok {
		return m.vertices
	}
	return nil
}

func (s *State) MarqueeRect() (geometry.Rect, bool) {
	if m, ok := s.mode.(marqueeMode); ok {
		return geometry.RectFromCorners(m.start, m.current), true
	}
	return geometry.Rect{}, false
}

func selectionFromHit(c diagram.Card, h geometry.Hit) Selection {
	switch h.Kind {
	case geometry.HitImage:
		return Selection{Kind: geometry.HitImage, ID: c.Images[h.Index].ID}
	case geometry.HitShape:
		return Selection{Kind: geometry.HitShape, ID: c.Shapes[h.Index].ID}
	case geometry.HitLabel:
		return Selection{Kind: geometry.HitLabel, ID: c.Labels[h.Index].ID}
	}
	return Selection{}
}

func toolShapeKind(t Tool) diagram.ShapeKind {
	switch t {
	case ToolCircle:
		return diagram.ShapeCircle
	case ToolLine:
		return diagram.ShapeLine
	case ToolArrow:
		return diagram.ShapeArrow
	default:
		return diagram.ShapeRectangle
	}
}

func isCornerHandle(h Handle) bool {
	return h == HandleNW || h == HandleNE || h == HandleSE || h == HandleSW
}

func boxHandles(b geometry.Rect) []HandleSpot {
	cx, cy := b.X+b.W/2, b.Y+b.H/2
	return []HandleSpot{
		{Handle: HandleNW, At: diagram.Point{X: b.X, Y: b.Y}},
		{Handle: HandleN, At: diagram.Point{X: cx, Y: b.Y}},
		{Handle: HandleNE, At: diagram.Point{X: b.X + b.W, Y: b.Y}},
		{Handle: HandleE, At: diagram.Point{X: b.X + b.W, Y: cy}},
		{Handle: HandleSE, At: diagram.Point{X: b.X + b.W, Y: b.Y + b.H}},
		{Handle: HandleS, At: diagram.Point{X: cx, Y: b.Y + b.H}},
		{Handle: HandleSW, At: diagram.Point{X: b.X, Y: b.Y + b.H}},
		{Handle: HandleW, At: diagram.Point{X: b.X, Y: cy}},
	}
}

// resizeRect applies a handle drag to an axis-aligned box, anchoring the
// opposite edge and enforcing the minimum size.
func resizeRect(r geometry.Rect, h Handle, dx, dy, min float64) geometry.Rect {
	x0, y0 := r.X, r.Y
	x1, y1 := r.X+r.W, r.Y+r.H

	switch h {
	case HandleNW, HandleW, HandleSW:
		x0 += dx
		if x1-x0 < min {
			x0 = x1 - min
		}
	case HandleNE, HandleE, HandleSE:
		x1 += dx
		if x1-x0 < min {
			x1 = x0 + min
		}
	}
	switch h {
	case HandleNW, HandleN, HandleNE:
		y0 += dy
		if y1-y0 < min {
			y0 = y1 - min
		}
	case HandleSW, HandleS, HandleSE:
		y1 += dy
		if y1-y0 < min {
			y1 = y0 + min
		}
	}
	return geometry.Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}
