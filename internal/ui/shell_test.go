package ui

import (
	"testing"

	"labelboard/internal/geometry"
	"labelboard/pkg/diagram"
)

func TestComputeLayoutKeepsPageAspect(t *testing.T) {
	theme := DefaultTheme()
	for _, size := range [][2]int{{1280, 800}, {900, 560}, {2000, 700}} {
		l := ComputeLayout(size[0], size[1], theme, 1)
		// 4:3 up to integer rounding.
		wantH := l.PageW * diagram.CanvasHeight / diagram.CanvasWidth
		if diff := l.PageH - wantH; diff < -1 || diff > 1 {
			t.Fatalf("%v: page %dx%d is not 4:3", size, l.PageW, l.PageH)
		}
		if l.PageY < l.CanvasY {
			t.Fatalf("%v: page above canvas region", size)
		}
		if l.StripY+l.StripH != l.StatusBar {
			t.Fatalf("%v: strip does not sit on status bar", size)
		}
	}
}

func TestViewportMapsCornersToCanvasExtent(t *testing.T) {
	l := ComputeLayout(1280, 800, DefaultTheme(), 1)
	v := l.Viewport

	p, ok := geometry.ToCanvas(v.X, v.Y, v)
	if !ok || p.X != 0 || p.Y != 0 {
		t.Fatalf("top-left maps to %v ok=%v", p, ok)
	}
	p, ok = geometry.ToCanvas(v.X+v.W, v.Y+v.H, v)
	if !ok || p.X != diagram.CanvasWidth || p.Y != diagram.CanvasHeight {
		t.Fatalf("bottom-right maps to %v ok=%v", p, ok)
	}
}
