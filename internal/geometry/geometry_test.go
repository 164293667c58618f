package geometry

import (
	"math"
	"testing"

	"labelboard/pkg/diagram"
)

func pt(x, y float64) diagram.Point { return diagram.Point{X: x, Y: y} }

func TestToCanvasMapsViewport(t *testing.T) {
	vp := Rect{X: 100, Y: 50, W: 400, H: 300}

	p, ok := ToCanvas(100, 50, vp)
	if !ok || p != pt(0, 0) {
		t.Fatalf("top-left mapping: %#v ok=%v", p, ok)
	}
	p, ok = ToCanvas(500, 350, vp)
	if !ok || p != pt(800, 600) {
		t.Fatalf("bottom-right mapping: %#v ok=%v", p, ok)
	}
	p, ok = ToCanvas(300, 200, vp)
	if !ok || p != pt(400, 300) {
		t.Fatalf("center mapping: %#v ok=%v", p, ok)
	}
	if _, ok := ToCanvas(99, 50, vp); ok {
		t.Fatalf("expected miss outside viewport")
	}

	sx, sy := FromCanvas(pt(400, 300), vp)
	if sx != 300 || sy != 200 {
		t.Fatalf("inverse mapping: %v,%v", sx, sy)
	}
}

func TestCentroidOfTriangle(t *testing.T) {
	c := Centroid([]diagram.Point{pt(50, 50), pt(150, 50), pt(100, 150)})
	if c.X != 100 {
		t.Fatalf("centroid x: %v", c.X)
	}
	if math.Abs(c.Y-83.3333333) > 1e-6 {
		t.Fatalf("centroid y: %v", c.Y)
	}
}

func TestLineShapeHitUsesSlop(t *testing.T) {
	line := diagram.Shape{Kind: diagram.ShapeLine, Points: []diagram.Point{pt(100, 100), pt(300, 100)}}
	if !PointInShape(pt(200, 103), line) {
		t.Fatalf("expected hit within slop")
	}
	if PointInShape(pt(200, 110), line) {
		t.Fatalf("expected miss outside slop")
	}
}

func TestPointLabelHitBoxScalesWithText(t *testing.T) {
	l := diagram.Label{Shape: diagram.LabelPoint, X: 400, Y: 300, Text: "pump", FontSize: 20}
	// 4 runes * 20 * 0.6 = 48 wide, 24 tall, centered.
	if !PointInLabel(pt(400+23, 300), l) {
		t.Fatalf("expected hit near right edge")
	}
	if PointInLabel(pt(400+25, 300), l) {
		t.Fatalf("expected miss past right edge")
	}
	if PointInLabel(pt(400, 300+13), l) {
		t.Fatalf("expected miss past bottom edge")
	}
}

func TestHitTestPrecedenceLabelsOverShapesOverImages(t *testing.T) {
	c := diagram.Card{
		Images: []diagram.Image{{X: 0, Y: 0, Width: 400, Height: 400}},
		Shapes: []diagram.Shape{{Kind: diagram.ShapeRectangle, Points: []diagram.Point{pt(50, 50), pt(350, 350)}}},
		Labels: []diagram.Label{{Shape: diagram.LabelRectangle, X: 200, Y: 200, Width: 100, Height: 60}},
	}

	h, ok := HitTest(c, pt(200, 200))
	if !ok || h.Kind != HitLabel {
		t.Fatalf("expected label hit, got %#v ok=%v", h, ok)
	}
	h, ok = HitTest(c, pt(60, 60))
	if !ok || h.Kind != HitShape {
		t.Fatalf("expected shape hit, got %#v ok=%v", h, ok)
	}
	h, ok = HitTest(c, pt(10, 10))
	if !ok || h.Kind != HitImage {
		t.Fatalf("expected image hit, got %#v ok=%v", h, ok)
	}
	if _, ok := HitTest(c, pt(700, 500)); ok {
		t.Fatalf("expected miss in empty space")
	}
}

func TestHitTestHigherZWins(t *testing.T) {
	c := diagram.Card{Shapes: []diagram.Shape{
		{ID: "low", Kind: diagram.ShapeRectangle, Points: []diagram.Point{pt(100, 100), pt(300, 300)}, Z: 0},
		{ID: "high", Kind: diagram.ShapeRectangle, Points: []diagram.Point{pt(100, 100), pt(300, 300)}, Z: 5},
	}}
	h, ok := HitTest(c, pt(200, 200))
	if !ok || c.Shapes[h.Index].ID != "high" {
		t.Fatalf("expected z=5 shape, got %#v", h)
	}

	// Equal z: later insertion wins.
	c.Shapes[1].Z = 0
	h, ok = HitTest(c, pt(200, 200))
	if !ok || h.Index != 1 {
		t.Fatalf("expected later shape on tie, got %#v", h)
	}
}

func TestMarqueeHitsIntersection(t *testing.T) {
	c := diagram.Card{
		Shapes: []diagram.Shape{
			{Kind: diagram.ShapeRectangle, Points: []diagram.Point{pt(0, 0), pt(50, 50)}},
			{Kind: diagram.ShapeRectangle, Points: []diagram.Point{pt(500, 500), pt(600, 600)}},
		},
		Labels: []diagram.Label{{Shape: diagram.LabelRectangle, X: 100, Y: 100, Width: 40, Height: 40}},
	}
	hits := MarqueeHits(c, Rect{X: 0, Y: 0, W: 200, H: 200})
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d: %#v", len(hits), hits)
	}
	// Partial overlap counts.
	hits = MarqueeHits(c, Rect{X: 45, Y: 45, W: 10, H: 10})
	if len(hits) != 1 || hits[0].Kind != HitShape || hits[0].Index != 0 {
		t.Fatalf("expected partial-overlap shape hit, got %#v", hits)
	}
}

func TestPaintOrderIsBottomFirst(t *testing.T) {
	shapes := []diagram.Shape{{Z: 3}, {Z: -1}, {Z: 0}}
	order := PaintOrderShapes(shapes)
	if shapes[order[0]].Z != -1 || shapes[order[2]].Z != 3 {
		t.Fatalf("unexpected paint order: %v", order)
	}
}
