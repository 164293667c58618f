package editor

import (
	"math"
	"testing"

	"labelboard/internal/geometry"
	"labelboard/pkg/diagram"
)

func stateWithImage(t *testing.T) *State {
	t.Helper()
	s := newTestState()
	s.UpdateCard(func(c *diagram.Card) {
		c.Images = []diagram.Image{{ID: "img", X: 100, Y: 100, Width: 200, Height: 150, Opacity: 1}}
	})
	return s
}

func selectAt(t *testing.T, s *State, p diagram.Point, wantID string) {
	t.Helper()
	drag(s, p, p)
	if s.Selected().ID != wantID {
		t.Fatalf("expected %q selected, got %#v", wantID, s.Selected())
	}
}

func TestImageDrag(t *testing.T) {
	s := stateWithImage(t)
	selectAt(t, s, pt(150, 150), "img")
	drag(s, pt(150, 150), pt(180, 170))
	img := s.Card().Images[0]
	if img.X != 130 || img.Y != 120 {
		t.Fatalf("drag mismatch: (%v, %v)", img.X, img.Y)
	}
}

func TestImageResizeWestAnchorsEastEdge(t *testing.T) {
	s := stateWithImage(t)
	selectAt(t, s, pt(150, 150), "img")
	// West handle sits at (100, 175); pull it +50 on x.
	drag(s, pt(100, 175), pt(150, 175))
	img := s.Card().Images[0]
	if img.X != 150 || img.Width != 150 {
		t.Fatalf("west resize mismatch: x=%v w=%v", img.X, img.Width)
	}
	if img.X+img.Width != 300 {
		t.Fatalf("east edge must stay anchored at 300, got %v", img.X+img.Width)
	}
}

func TestImageResizeClampsToMinimum(t *testing.T) {
	s := stateWithImage(t)
	selectAt(t, s, pt(150, 150), "img")
	// Drag the east handle far past the west edge.
	drag(s, pt(300, 175), pt(0, 175))
	img := s.Card().Images[0]
	if img.Width != 20 {
		t.Fatalf("expected min width 20, got %v", img.Width)
	}
	if img.X != 100 {
		t.Fatalf("west edge must not move on east resize, got %v", img.X)
	}
}

func TestShapeDragShiftsEveryPoint(t *testing.T) {
	s := newTestState()
	s.UpdateCard(func(c *diagram.Card) {
		c.Shapes = []diagram.Shape{{
			ID: "ln", Kind: diagram.ShapeLine,
			Points: []diagram.Point{pt(100, 100), pt(300, 200)}, Stroke: "#000",
		}}
	})
	selectAt(t, s, pt(200, 150), "ln")
	drag(s, pt(200, 150), pt(230, 160))
	sh := s.Card().Shapes[0]
	if sh.Points[0] != pt(130, 110) || sh.Points[1] != pt(330, 210) {
		t.Fatalf("line drag mismatch: %#v", sh.Points)
	}
}

func TestLineEndpointHandleMovesOnlyThatEnd(t *testing.T) {
	s := newTestState()
	s.UpdateCard(func(c *diagram.Card) {
		c.Shapes = []diagram.Shape{{
			ID: "ln", Kind: diagram.ShapeArrow,
			Points: []diagram.Point{pt(100, 100), pt(300, 200)}, Stroke: "#000",
		}}
	})
	selectAt(t, s, pt(200, 150), "ln")
	drag(s, pt(300, 200), pt(350, 260))
	sh := s.Card().Shapes[0]
	if sh.Points[0] != pt(100, 100) {
		t.Fatalf("start endpoint must not move: %#v", sh.Points[0])
	}
	if sh.Points[1] != pt(350, 260) {
		t.Fatalf("end endpoint mismatch: %#v", sh.Points[1])
	}
}

func TestCircleShapeEastResizeKeepsCenter(t *testing.T) {
	s := newTestState()
	s.UpdateCard(func(c *diagram.Card) {
		c.Shapes = []diagram.Shape{{
			ID: "ci", Kind: diagram.ShapeCircle,
			Points: []diagram.Point{pt(300, 200), pt(400, 300)}, Stroke: "#000",
		}}
	})
	selectAt(t, s, pt(350, 250), "ci")
	// East handle at (400, 250); radius 50 -> 80.
	drag(s, pt(400, 250), pt(430, 250))
	sh := s.Card().Shapes[0]
	if sh.Points[0] != pt(270, 170) || sh.Points[1] != pt(430, 330) {
		t.Fatalf("circle resize mismatch: %#v", sh.Points)
	}
}

func TestRectangleShapeResizeClampsAtTen(t *testing.T) {
	s := newTestState()
	s.UpdateCard(func(c *diagram.Card) {
		c.Shapes = []diagram.Shape{{
			ID: "rc", Kind: diagram.ShapeRectangle,
			Points: []diagram.Point{pt(100, 100), pt(200, 180)}, Stroke: "#000",
		}}
	})
	selectAt(t, s, pt(150, 140), "rc")
	// Southeast corner dragged past the northwest corner.
	drag(s, pt(200, 180), pt(50, 50))
	b := geometry.RectFromCorners(s.Card().Shapes[0].Points[0], s.Card().Shapes[0].Points[1])
	if b.W != 10 || b.H != 10 {
		t.Fatalf("expected 10x10 minimum, got %vx%v", b.W, b.H)
	}
}

func TestRectangleLabelCornerResizeClampsAtThirty(t *testing.T) {
	s := newTestState()
	s.UpdateCard(func(c *diagram.Card) {
		c.Labels = []diagram.Label{{
			ID: "l", Shape: diagram.LabelRectangle,
			X: 200, Y: 200, Width: 100, Height: 80,
			Text: "t", FontSize: 14, Color: "#ff0000",
		}}
	})
	selectAt(t, s, pt(200, 200), "l")
	// Box is 150..250 x 160..240; collapse from the southeast corner.
	drag(s, pt(250, 240), pt(100, 100))
	l := s.Card().Labels[0]
	if l.Width != 30 || l.Height != 30 {
		t.Fatalf("expected 30x30 minimum, got %vx%v", l.Width, l.Height)
	}
}

func centroidInvariant(t *testing.T, l diagram.Label) {
	t.Helper()
	c := geometry.Centroid(l.Polygon)
	if math.Abs(c.X-l.X) > 1e-9 || math.Abs(c.Y-l.Y) > 1e-9 {
		t.Fatalf("anchor (%v, %v) != centroid (%v, %v)", l.X, l.Y, c.X, c.Y)
	}
}

func statePolygonLabel(t *testing.T) *State {
	t.Helper()
	s := newTestState()
	poly := []diagram.Point{pt(100, 100), pt(200, 100), pt(150, 200)}
	anchor := geometry.Centroid(poly)
	s.UpdateCard(func(c *diagram.Card) {
		c.Labels = []diagram.Label{{
			ID: "pl", Shape: diagram.LabelPolygon,
			X: anchor.X, Y: anchor.Y, Polygon: poly,
			Text: "t", FontSize: 14, Color: "#ff0000",
		}}
	})
	return s
}

func TestPolygonLabelWholeDragKeepsCentroid(t *testing.T) {
	s := statePolygonLabel(t)
	selectAt(t, s, pt(150, 130), "pl")
	// Grab away from the text box and the vertex handles.
	drag(s, pt(120, 110), pt(160, 130))
	l := s.Card().Labels[0]
	if l.Polygon[0] != pt(140, 120) {
		t.Fatalf("vertices not shifted: %#v", l.Polygon)
	}
	centroidInvariant(t, l)
}

func TestPolygonVertexDragRecomputesCentroid(t *testing.T) {
	s := statePolygonLabel(t)
	selectAt(t, s, pt(150, 130), "pl")
	// Grab the first vertex handle and move it.
	drag(s, pt(100, 100), pt(70, 80))
	l := s.Card().Labels[0]
	if l.Polygon[0] != pt(70, 80) {
		t.Fatalf("vertex not moved: %#v", l.Polygon[0])
	}
	if l.Polygon[1] != pt(200, 100) || l.Polygon[2] != pt(150, 200) {
		t.Fatalf("other vertices must not move: %#v", l.Polygon)
	}
	centroidInvariant(t, l)
}

func TestTextOffsetDragIsIndependentAndResets(t *testing.T) {
	s := newTestState()
	s.UpdateCard(func(c *diagram.Card) {
		c.Labels = []diagram.Label{{
			ID: "l", Shape: diagram.LabelRectangle,
			X: 300, Y: 300, Width: 200, Height: 120,
			Text: "valve", FontSize: 16, Color: "#ff0000",
		}}
	})
	selectAt(t, s, pt(390, 350), "l")
	// The text box sits at the anchor; drag it without moving the shape.
	drag(s, pt(300, 300), pt(340, 280))
	l := s.Card().Labels[0]
	if l.OffsetX != 40 || l.OffsetY != -20 {
		t.Fatalf("offset mismatch: (%v, %v)", l.OffsetX, l.OffsetY)
	}
	if l.X != 300 || l.Y != 300 || l.Width != 200 {
		t.Fatalf("shape must not move on text drag: %#v", l)
	}

	s.ResetTextOffset()
	l = s.Card().Labels[0]
	if l.OffsetX != 0 || l.OffsetY != 0 {
		t.Fatalf("reset failed: (%v, %v)", l.OffsetX, l.OffsetY)
	}
}

func TestWholeGestureIsOneUndoStep(t *testing.T) {
	s := stateWithImage(t)
	selectAt(t, s, pt(150, 150), "img")

	s.PointerDown(pt(150, 150))
	s.PointerMove(pt(160, 150))
	s.PointerMove(pt(180, 160))
	s.PointerMove(pt(210, 190))
	s.PointerUp(pt(210, 190))

	if s.Card().Images[0].X != 160 {
		t.Fatalf("drag result mismatch: %v", s.Card().Images[0].X)
	}
	s.Undo()
	if s.Card().Images[0].X != 100 {
		t.Fatalf("one undo must revert the whole gesture, got x=%v", s.Card().Images[0].X)
	}
	// The next undo reverts image creation, not an intermediate move.
	s.Undo()
	if len(s.Card().Images) != 0 {
		t.Fatalf("expected creation undone, got %#v", s.Card().Images)
	}
}

func TestClickWithoutMovementRecordsNoHistory(t *testing.T) {
	s := stateWithImage(t)
	base := len(s.history().undo)
	selectAt(t, s, pt(150, 150), "img")
	drag(s, pt(150, 150), pt(150, 150))
	if got := len(s.history().undo); got != base {
		t.Fatalf("stationary click must not push history: %d -> %d", base, got)
	}
}
