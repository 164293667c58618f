// Package ui computes the editor chrome layout and paints it into the
// framebuffer: the menu row, the tool row, the centered canvas page, the
// card strip, and the status bar. The page viewport keeps the fixed 4:3
// aspect of the 800x600 logical canvas at every window size.
package ui

import (
	"labelboard/internal/geometry"
	"labelboard/internal/render"
	"labelboard/pkg/diagram"
)

type Layout struct {
	MenuH    int
	ToolbarH int
	StripH   int
	StatusH  int

	CanvasY int
	CanvasH int

	PageX int
	PageY int
	PageW int
	PageH int

	// Viewport is the page rect as canvas-mapping input for
	// geometry.ToCanvas / FromCanvas.
	Viewport geometry.Rect

	StripY    int
	StatusBar int
}

func ComputeLayout(w, h int, theme Theme, scale float32) Layout {
	if scale <= 0 {
		scale = 1
	}

	dp := func(v int) int { return int(float32(v) * scale) }

	menuH := dp(theme.MenuHeightDp)
	toolbarH := dp(theme.ToolbarHeightDp)
	stripH := dp(theme.StripHeightDp)
	statusH := dp(theme.StatusHeightDp)
	margin := dp(theme.CanvasMarginDp)

	canvasY := menuH + toolbarH
	canvasH := h - canvasY - stripH - statusH
	if canvasH < 0 {
		canvasH = 0
	}

	// Largest 4:3 page fitting the canvas region with its margin.
	availW := w - margin*2
	availH := canvasH - margin*2
	if availW < dp(200) {
		availW = dp(200)
	}
	if availH < dp(150) {
		availH = dp(150)
	}
	pageW := availW
	pageH := pageW * diagram.CanvasHeight / diagram.CanvasWidth
	if pageH > availH {
		pageH = availH
		pageW = pageH * diagram.CanvasWidth / diagram.CanvasHeight
	}
	pageX := (w - pageW) / 2
	pageY := canvasY + (canvasH-pageH)/2
	if pageY < canvasY+4 {
		pageY = canvasY + 4
	}

	return Layout{
		MenuH:    menuH,
		ToolbarH: toolbarH,
		StripH:   stripH,
		StatusH:  statusH,
		CanvasY:  canvasY,
		CanvasH:  canvasH,
		PageX:    pageX,
		PageY:    pageY,
		PageW:    pageW,
		PageH:    pageH,
		Viewport: geometry.Rect{
			X: float64(pageX), Y: float64(pageY),
			W: float64(pageW), H: float64(pageH),
		},
		StripY:    h - statusH - stripH,
		StatusBar: h - statusH,
	}
}

func DrawShell(fb *render.FrameBuffer, theme Theme, scale float32) Layout {
	layout := ComputeLayout(fb.W, fb.H, theme, scale)

	fb.Clear(theme.AppBackground)

	// Menu + tool rows
	fb.FillRect(0, 0, fb.W, layout.MenuH, theme.TopBar)
	fb.FillRect(0, layout.MenuH, fb.W, layout.ToolbarH, theme.Toolbar)
	fb.StrokeRect(0, 0, fb.W, layout.MenuH+layout.ToolbarH, 1, theme.Border)

	// Canvas region with the centered page
	fb.FillRect(0, layout.CanvasY, fb.W, layout.CanvasH, theme.Canvas)
	fb.FillRect(layout.PageX+2, layout.PageY+2, layout.PageW, layout.PageH, theme.Shadow)
	fb.FillRect(layout.PageX, layout.PageY, layout.PageW, layout.PageH, theme.Page)
	fb.StrokeRect(layout.PageX, layout.PageY, layout.PageW, layout.PageH, 1, theme.Border)

	// Card strip
	fb.FillRect(0, layout.StripY, fb.W, layout.StripH, theme.CardStrip)
	fb.HLine(0, layout.StripY, fb.W, theme.Border)

	// Status bar
	fb.FillRect(0, layout.StatusBar, fb.W, layout.StatusH, theme.StatusBar)
	fb.HLine(0, layout.StatusBar, fb.W, theme.Border)

	return layout
}
