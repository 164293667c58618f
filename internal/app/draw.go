package app

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"
	"unicode/utf8"

	"labelboard/internal/editor"
	"labelboard/internal/geometry"
	"labelboard/internal/render"
	"labelboard/internal/ui"
	"labelboard/pkg/diagram"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/text"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

type fontKey struct {
	size int
	bold bool
}

type fontBank struct {
	regular *opentype.Font
	bold    *opentype.Font
	cache   map[fontKey]font.Face
}

func newFontBank() fontBank {
	bank := fontBank{cache: map[fontKey]font.Face{}}
	reg, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return bank
	}
	bol, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return bank
	}
	bank.regular = reg
	bank.bold = bol
	return bank
}

func (b *fontBank) reset() {
	b.cache = map[fontKey]font.Face{}
}

// uiFace returns a cached face for chrome text, scaled by the UI scale.
func (a *App) uiFace(size int, bold bool) font.Face {
	return a.faceFor(float64(size)*float64(a.uiScales[a.uiScaleIdx]), bold)
}

// canvasFace returns a face for label text already converted to screen
// pixels.
func (a *App) canvasFace(sizePx float64) font.Face {
	return a.faceFor(sizePx, false)
}

func (a *App) faceFor(sizePx float64, bold bool) font.Face {
	key := fontKey{size: int(math.Round(sizePx * 4)), bold: bold}
	if f, ok := a.fonts.cache[key]; ok {
		return f
	}
	base := a.fonts.regular
	if bold {
		base = a.fonts.bold
	}
	if base == nil {
		return basicfont.Face7x13
	}
	face, err := opentype.NewFace(base, &opentype.FaceOptions{Size: sizePx, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return basicfont.Face7x13
	}
	a.fonts.cache[key] = face
	return face
}

func (a *App) measureString(face font.Face, s string) int {
	if face == nil || s == "" {
		return 0
	}
	adv := font.MeasureString(face, s)
	px := (int(adv) + 32) >> 6
	if px < 0 {
		px = 0
	}
	return px
}

func (a *App) Draw(screen *ebiten.Image) {
	w, h := screen.Bounds().Dx(), screen.Bounds().Dy()
	if a.frameBuffer == nil || a.frameBuffer.W != w || a.frameBuffer.H != h {
		a.frameBuffer = render.NewFrameBuffer(w, h)
		a.canvas = ebiten.NewImage(w, h)
	}

	a.layout = ui.DrawShell(a.frameBuffer, a.theme, a.uiScales[a.uiScaleIdx])
	menuFace := a.uiFace(11, false)
	toolbarFace := a.uiFace(11, false)
	statusFace := a.uiFace(10, false)

	a.layoutTopActions(menuFace)
	a.layoutToolbarControls(toolbarFace)
	a.layoutCardTabs()

	a.canvas.WritePixels(a.frameBuffer.Pixels)
	screen.DrawImage(a.canvas, nil)

	a.drawActionLabels(screen, menuFace, toolbarFace)
	a.drawCardTabLabels(screen, toolbarFace)
	a.drawCanvasContent(screen)
	a.drawStatusBar(screen, statusFace, h)
	a.drawColorPickerOverlay(screen)
	a.drawPrompt(screen, w, h)
}

func (a *App) layoutTopActions(face font.Face) {
	a.topActions = a.topActions[:0]
	x := 10
	y := 4
	h := a.layout.MenuH - 8
	if h < 24 {
		h = 24
	}
	buttons := []actionButton{
		{id: "new", label: "New"},
		{id: "open", label: "Open"},
		{id: "save", label: "Save"},
		{id: "save_as", label: "Save As"},
		{id: "export", label: "Export PNG"},
		{id: "protect", label: "Protect", active: a.encryptEnabled},
		{id: "undo", label: "Undo", active: a.state.CanUndo()},
		{id: "redo", label: "Redo", active: a.state.CanRedo()},
		{id: "add_card", label: "+Card"},
		{id: "del_card", label: "-Card"},
		{id: "scale_down", label: "A-"},
		{id: "scale_up", label: "A+"},
	}
	mx, my := ebiten.CursorPosition()
	for _, btn := range buttons {
		tw := a.measureString(face, btn.label)
		w := tw + 24
		if w < 52 {
			w = 52
		}
		r := rect{x: x, y: y, w: w, h: h}
		bg := color.RGBA{R: 46, G: 84, B: 145, A: 255}
		if btn.active {
			bg = color.RGBA{R: 71, G: 116, B: 186, A: 255}
		}
		if r.contains(mx, my) {
			bg = color.RGBA{R: 58, G: 102, B: 172, A: 255}
		}
		a.frameBuffer.FillRect(r.x, r.y, r.w, r.h, bg)
		a.frameBuffer.StrokeRect(r.x, r.y, r.w, r.h, 1, color.RGBA{R: 27, G: 54, B: 97, A: 255})
		btn.r = r
		a.topActions = append(a.topActions, btn)
		x += w + 6
	}
}

func (a *App) layoutToolbarControls(face font.Face) {
	a.toolbarActions = a.toolbarActions[:0]
	a.colorSwatches = a.colorSwatches[:0]
	a.colorPopupRect = rect{}

	x := 14
	y := a.layout.MenuH + 8
	h := a.layout.ToolbarH - 16
	if h < 24 {
		h = 24
	}
	mx, my := ebiten.CursorPosition()

	addBtn := func(id, label string, active bool) rect {
		tw := a.measureString(face, label)
		w := tw + 18
		if w < 42 {
			w = 42
		}
		r := rect{x: x, y: y, w: w, h: h}
		bg := color.RGBA{R: 241, G: 245, B: 251, A: 255}
		if active {
			bg = color.RGBA{R: 215, G: 229, B: 248, A: 255}
		}
		if r.contains(mx, my) {
			bg = color.RGBA{R: 223, G: 236, B: 252, A: 255}
		}
		a.frameBuffer.FillRect(r.x, r.y, r.w, r.h, bg)
		a.frameBuffer.StrokeRect(r.x, r.y, r.w, r.h, 1, color.RGBA{R: 181, G: 194, B: 214, A: 255})
		a.toolbarActions = append(a.toolbarActions, actionButton{id: id, label: label, r: r, active: active})
		x += w + 5
		return r
	}

	tool := a.state.Tool
	addBtn("tool_select", "Select", tool == editor.ToolSelect)
	addBtn("tool_image", "Image", tool == editor.ToolImage)
	addBtn("tool_rect", "Rect", tool == editor.ToolRectangle)
	addBtn("tool_circle", "Circle", tool == editor.ToolCircle)
	addBtn("tool_line", "Line", tool == editor.ToolLine)
	addBtn("tool_arrow", "Arrow", tool == editor.ToolArrow)
	addBtn("tool_label", "Label", tool == editor.ToolLabel)
	x += 6

	if tool == editor.ToolLabel {
		ls := a.state.LabelShape
		addBtn("label_point", "Point", ls == diagram.LabelPoint)
		addBtn("label_box", "Box", ls == diagram.LabelRectangle)
		addBtn("label_circle", "Ring", ls == diagram.LabelCircle)
		addBtn("label_poly", "Poly", ls == diagram.LabelPolygon)
		x += 6
	}

	strokeRect := addBtn("stroke_color", "Stroke", a.showColorPicker && a.colorTarget == "stroke")
	a.drawColorChip(strokeRect, a.state.StrokeColor)
	fillRect := addBtn("fill_color", "Fill", a.showColorPicker && a.colorTarget == "fill")
	a.drawColorChip(fillRect, a.state.FillColor)
	labelRect := addBtn("label_color", "Text", a.showColorPicker && a.colorTarget == "label")
	a.drawColorChip(labelRect, a.state.LabelColor)

	addBtn("width_down", "W-", false)
	addBtn("width_up", "W+", false)
	addBtn("font_down", "F-", false)
	addBtn("font_up", "F+", false)

	sel := a.state.Selected()
	if sel.Kind == geometry.HitImage {
		addBtn("opacity_down", "Op-", false)
		addBtn("opacity_up", "Op+", false)
	}
	if sel.Kind == geometry.HitLabel {
		addBtn("reset_offset", "Center", false)
	}
	if !sel.IsZero() {
		addBtn("front", "Front", false)
		addBtn("back", "Back", false)
	}

	if a.showColorPicker {
		anchor := strokeRect
		switch a.colorTarget {
		case "fill":
			anchor = fillRect
		case "label":
			anchor = labelRect
		}
		cols := 4
		size := 22
		gap := 6
		rows := (len(a.colorPalette) + cols - 1) / cols
		popupW := cols*(size+gap) + gap + 8
		popupH := rows*(size+gap) + 26
		px := anchor.x
		py := anchor.y + anchor.h + 4
		a.colorPopupRect = rect{x: px, y: py, w: popupW, h: popupH}
		sx := px + 8
		sy := py + 20
		for i, c := range a.colorPalette {
			cx := sx + (i%cols)*(size+gap)
			cy := sy + (i/cols)*(size+gap)
			a.colorSwatches = append(a.colorSwatches, colorSwatch{value: c, r: rect{x: cx, y: cy, w: size, h: size}})
		}
	}
}

func (a *App) drawColorChip(r rect, hex string) {
	if hex == "" {
		return
	}
	a.frameBuffer.FillRect(r.x+r.w-12, r.y+6, 7, r.h-12, rgbaFromHex(hex))
	a.frameBuffer.StrokeRect(r.x+r.w-12, r.y+6, 7, r.h-12, 1, color.RGBA{R: 88, G: 102, B: 122, A: 255})
}

func (a *App) layoutCardTabs() {
	a.cardTabs = a.cardTabs[:0]
	x := 12
	y := a.layout.StripY + 6
	h := a.layout.StripH - 12
	if h < 20 {
		h = 20
	}
	mx, my := ebiten.CursorPosition()
	for i := range a.state.Doc.Cards {
		w := 54
		r := rect{x: x, y: y, w: w, h: h}
		bg := color.RGBA{R: 241, G: 245, B: 251, A: 255}
		if i == a.state.Current {
			bg = color.RGBA{R: 215, G: 229, B: 248, A: 255}
		}
		if r.contains(mx, my) {
			bg = color.RGBA{R: 223, G: 236, B: 252, A: 255}
		}
		a.frameBuffer.FillRect(r.x, r.y, r.w, r.h, bg)
		a.frameBuffer.StrokeRect(r.x, r.y, r.w, r.h, 1, color.RGBA{R: 181, G: 194, B: 214, A: 255})
		if i == a.state.Current {
			a.frameBuffer.FillRect(r.x, r.y+r.h-3, r.w, 3, a.theme.Accent)
		}
		a.cardTabs = append(a.cardTabs, cardTab{index: i, r: r})
		x += w + 6
	}
}

func (a *App) drawActionLabels(screen *ebiten.Image, menuFace, toolbarFace font.Face) {
	menuColor := color.RGBA{R: 244, G: 248, B: 255, A: 255}
	for _, btn := range a.topActions {
		a.drawCenteredLabel(screen, menuFace, btn.label, btn.r, menuColor)
	}
	for _, btn := range a.toolbarActions {
		clr := color.RGBA{R: 44, G: 58, B: 82, A: 255}
		if btn.active {
			clr = color.RGBA{R: 19, G: 62, B: 122, A: 255}
		}
		a.drawCenteredLabel(screen, toolbarFace, btn.label, btn.r, clr)
	}
}

func (a *App) drawCardTabLabels(screen *ebiten.Image, face font.Face) {
	clr := color.RGBA{R: 44, G: 58, B: 82, A: 255}
	for _, tab := range a.cardTabs {
		a.drawCenteredLabel(screen, face, fmt.Sprintf("%d", tab.index+1), tab.r, clr)
	}
}

func (a *App) drawCenteredLabel(screen *ebiten.Image, face font.Face, label string, r rect, clr color.RGBA) {
	tw := a.measureString(face, label)
	ascent := face.Metrics().Ascent.Round()
	descent := face.Metrics().Descent.Round()
	x := r.x + (r.w-tw)/2
	baseline := r.y + (r.h+ascent+descent)/2 - descent
	text.Draw(screen, label, face, x, baseline, clr)
}

func (a *App) drawStatusBar(screen *ebiten.Image, face font.Face, h int) {
	clr := color.RGBA{R: 42, G: 56, B: 80, A: 255}
	mode := ""
	if a.state.ReadOnly {
		mode = " [ View Only ]"
	}
	left := fmt.Sprintf("[ Card %d/%d ] [ %s ]%s", a.state.Current+1, len(a.state.Doc.Cards), toolName(a.state.Tool), mode)
	title := a.state.Doc.Title
	if title == "" {
		title = "Untitled"
	}
	right := fmt.Sprintf("[ %s ] [ %s ]", title, a.status)
	text.Draw(screen, left, face, 12, h-10, clr)
	text.Draw(screen, right, face, 360, h-10, clr)
}

func toolName(t editor.Tool) string {
	switch t {
	case editor.ToolImage:
		return "Image"
	case editor.ToolRectangle:
		return "Rectangle"
	case editor.ToolCircle:
		return "Circle"
	case editor.ToolLine:
		return "Line"
	case editor.ToolArrow:
		return "Arrow"
	case editor.ToolLabel:
		return "Label"
	default:
		return "Select"
	}
}

// drawCanvasContent paints the current card into the page layer, which
// clips everything to the page, then blits it at the page origin.
func (a *App) drawCanvasContent(screen *ebiten.Image) {
	pw, ph := a.layout.PageW, a.layout.PageH
	if pw <= 0 || ph <= 0 {
		return
	}
	if a.pageLayer == nil || a.pageLayer.Bounds().Dx() != pw || a.pageLayer.Bounds().Dy() != ph {
		a.pageLayer = ebiten.NewImage(pw, ph)
	}
	a.pageLayer.Clear()

	k := float64(pw) / diagram.CanvasWidth
	c := a.state.Card()

	for _, i := range geometry.PaintOrderImages(c.Images) {
		a.drawImageElem(c.Images[i], k)
	}
	for _, i := range geometry.PaintOrderShapes(c.Shapes) {
		a.drawShapeElem(c.Shapes[i], k)
	}
	for _, l := range c.Labels {
		a.drawLabelElem(l, k)
	}
	a.drawPreviews(k)
	a.drawSelection(k)

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Translate(float64(a.layout.PageX), float64(a.layout.PageY))
	screen.DrawImage(a.pageLayer, op)
}

func (a *App) drawImageElem(im diagram.Image, k float64) {
	dst := a.pageLayer
	img := a.cachedImage(im.Src)
	if img == nil {
		vector.DrawFilledRect(dst, float32(im.X*k), float32(im.Y*k), float32(im.Width*k), float32(im.Height*k),
			color.NRGBA{R: 0xD9, G: 0xD9, B: 0xD9, A: uint8(im.Opacity * 255)}, true)
		vector.StrokeRect(dst, float32(im.X*k), float32(im.Y*k), float32(im.Width*k), float32(im.Height*k),
			1, color.NRGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xFF}, true)
		return
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return
	}
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(im.Width*k/float64(b.Dx()), im.Height*k/float64(b.Dy()))
	op.GeoM.Translate(im.X*k, im.Y*k)
	op.ColorScale.ScaleAlpha(float32(im.Opacity))
	op.Filter = ebiten.FilterLinear
	dst.DrawImage(img, op)
}

func (a *App) drawShapeElem(sh diagram.Shape, k float64) {
	dst := a.pageLayer
	stroke := rgbaFromHex(sh.Stroke)
	sw := float32(sh.StrokeWidth * k)
	if sw < 1 {
		sw = 1
	}
	switch sh.Kind {
	case diagram.ShapeLine:
		if len(sh.Points) < 2 {
			return
		}
		a0, a1 := scalePt(sh.Points[0], k), scalePt(sh.Points[1], k)
		vector.StrokeLine(dst, a0[0], a0[1], a1[0], a1[1], sw, stroke, true)
	case diagram.ShapeArrow:
		if len(sh.Points) < 2 {
			return
		}
		drawArrowOn(dst, sh.Points[0], sh.Points[1], k, sw, stroke)
	case diagram.ShapePolygon:
		strokePolyline(dst, sh.Points, k, sw, stroke, true)
	case diagram.ShapeCircle, diagram.ShapeEllipse:
		if len(sh.Points) < 2 {
			return
		}
		b := geometry.RectFromCorners(sh.Points[0], sh.Points[1])
		cx, cy := float32((b.X+b.W/2)*k), float32((b.Y+b.H/2)*k)
		rx, ry := float32(b.W/2*k), float32(b.H/2*k)
		if sh.Fill != "" && math.Abs(b.W-b.H) < 0.5 {
			vector.DrawFilledCircle(dst, cx, cy, rx, rgbaFromHex(sh.Fill), true)
		}
		strokeEllipse(dst, cx, cy, rx, ry, sw, stroke)
	default:
		if len(sh.Points) < 2 {
			return
		}
		b := geometry.RectFromCorners(sh.Points[0], sh.Points[1])
		if sh.Fill != "" {
			vector.DrawFilledRect(dst, float32(b.X*k), float32(b.Y*k), float32(b.W*k), float32(b.H*k), rgbaFromHex(sh.Fill), true)
		}
		vector.StrokeRect(dst, float32(b.X*k), float32(b.Y*k), float32(b.W*k), float32(b.H*k), sw, stroke, true)
	}
}

func (a *App) drawLabelElem(l diagram.Label, k float64) {
	dst := a.pageLayer
	clr := rgbaFromHex(l.Color)
	lw := float32(1.5 * k)
	if lw < 1 {
		lw = 1
	}

	switch l.Shape {
	case diagram.LabelRectangle:
		vector.StrokeRect(dst, float32((l.X-l.Width/2)*k), float32((l.Y-l.Height/2)*k),
			float32(l.Width*k), float32(l.Height*k), lw, clr, true)
	case diagram.LabelCircle:
		strokeEllipse(dst, float32(l.X*k), float32(l.Y*k), float32(l.Width/2*k), float32(l.Height/2*k), lw, clr)
	case diagram.LabelPolygon:
		strokePolyline(dst, l.Polygon, k, lw, clr, true)
	default:
		vector.DrawFilledCircle(dst, float32(l.X*k), float32(l.Y*k), float32(3*k), clr, true)
	}

	face := a.canvasFace(l.FontSize * k)
	tw := a.measureString(face, l.Text)
	ascent := face.Metrics().Ascent.Round()
	descent := face.Metrics().Descent.Round()
	cx := int((l.X + l.OffsetX) * k)
	cy := int((l.Y + l.OffsetY) * k)
	text.Draw(dst, l.Text, face, cx-tw/2, cy+(ascent+descent)/2-descent, clr)
}

func (a *App) drawPreviews(k float64) {
	dst := a.pageLayer
	preview := color.NRGBA{R: 0x4D, G: 0x86, B: 0xCD, A: 0xFF}

	if kind, start, cur, ok := a.state.ShapePreview(); ok {
		ps := diagram.Shape{Kind: kind, Points: []diagram.Point{start, cur}, Stroke: "#4d86cd", StrokeWidth: 1}
		a.drawShapeElem(ps, k)
	}
	if shape, start, cur, ok := a.state.LabelBoxPreview(); ok {
		b := geometry.RectFromCorners(start, cur)
		if shape == diagram.LabelCircle {
			d := math.Max(b.W, b.H)
			c := b.Center()
			strokeEllipse(dst, float32(c.X*k), float32(c.Y*k), float32(d/2*k), float32(d/2*k), 1, preview)
		} else {
			vector.StrokeRect(dst, float32(b.X*k), float32(b.Y*k), float32(b.W*k), float32(b.H*k), 1, preview, true)
		}
	}
	if verts := a.state.PolygonInProgress(); len(verts) > 0 {
		strokePolyline(dst, verts, k, 1, preview, false)
		for _, v := range verts {
			vector.DrawFilledCircle(dst, float32(v.X*k), float32(v.Y*k), 3, preview, true)
		}
	}
	if r, ok := a.state.MarqueeRect(); ok {
		vector.DrawFilledRect(dst, float32(r.X*k), float32(r.Y*k), float32(r.W*k), float32(r.H*k),
			color.NRGBA{R: 0x4D, G: 0x86, B: 0xCD, A: 0x30}, true)
		vector.StrokeRect(dst, float32(r.X*k), float32(r.Y*k), float32(r.W*k), float32(r.H*k), 1, preview, true)
	}
}

func (a *App) drawSelection(k float64) {
	dst := a.pageLayer
	accent := color.NRGBA{R: 0x1E, G: 0x6F, B: 0xD9, A: 0xFF}

	for _, sel := range a.state.MultiSelection() {
		if b, ok := a.selectionBounds(sel); ok {
			vector.StrokeRect(dst, float32(b.X*k)-2, float32(b.Y*k)-2, float32(b.W*k)+4, float32(b.H*k)+4, 1, accent, true)
		}
	}

	sel := a.state.Selected()
	if sel.IsZero() {
		return
	}
	b, ok := a.selectionBounds(sel)
	if !ok {
		return
	}
	vector.StrokeRect(dst, float32(b.X*k)-2, float32(b.Y*k)-2, float32(b.W*k)+4, float32(b.H*k)+4, 1, accent, true)

	for _, spot := range a.state.HandleSpots() {
		hx, hy := float32(spot.At.X*k), float32(spot.At.Y*k)
		vector.DrawFilledRect(dst, hx-4, hy-4, 8, 8, color.NRGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}, true)
		vector.StrokeRect(dst, hx-4, hy-4, 8, 8, 1, accent, true)
	}

	// Polygon labels expose their vertices as drag handles.
	if sel.Kind == geometry.HitLabel {
		for _, l := range a.state.Card().Labels {
			if l.ID == sel.ID && l.Shape == diagram.LabelPolygon {
				for _, v := range l.Polygon {
					hx, hy := float32(v.X*k), float32(v.Y*k)
					vector.DrawFilledRect(dst, hx-3, hy-3, 6, 6, color.NRGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}, true)
					vector.StrokeRect(dst, hx-3, hy-3, 6, 6, 1, accent, true)
				}
			}
		}
	}
}

func (a *App) selectionBounds(sel editor.Selection) (geometry.Rect, bool) {
	c := a.state.Card()
	switch sel.Kind {
	case geometry.HitImage:
		for _, im := range c.Images {
			if im.ID == sel.ID {
				return geometry.ImageBounds(im), true
			}
		}
	case geometry.HitShape:
		for _, sh := range c.Shapes {
			if sh.ID == sel.ID {
				return geometry.ShapeBounds(sh), true
			}
		}
	case geometry.HitLabel:
		for _, l := range c.Labels {
			if l.ID == sel.ID {
				return geometry.LabelBounds(l), true
			}
		}
	}
	return geometry.Rect{}, false
}

func (a *App) drawColorPickerOverlay(screen *ebiten.Image) {
	if !a.showColorPicker || a.colorPopupRect.w == 0 {
		return
	}
	r := a.colorPopupRect
	a.drawFilledRectOnScreen(screen, r.x, r.y, r.w, r.h, color.RGBA{R: 249, G: 251, B: 254, A: 255})
	a.strokeRectOnScreen(screen, r, color.RGBA{R: 178, G: 191, B: 210, A: 255})
	captionFace := a.uiFace(9, false)
	caption := a.colorTarget
	if caption != "" {
		caption = strings.ToUpper(caption[:1]) + caption[1:]
	}
	text.Draw(screen, caption, captionFace, r.x+8, r.y+14, color.RGBA{R: 44, G: 58, B: 82, A: 255})
	for _, sw := range a.colorSwatches {
		a.drawFilledRectOnScreen(screen, sw.r.x, sw.r.y, sw.r.w, sw.r.h, rgbaFromHex(sw.value))
		a.strokeRectOnScreen(screen, sw.r, color.RGBA{R: 118, G: 132, B: 152, A: 255})
	}
}

func (a *App) drawPrompt(screen *ebiten.Image, w, h int) {
	if !a.promptActive {
		return
	}
	pw := int(460 * a.uiScales[a.uiScaleIdx])
	ph := int(170 * a.uiScales[a.uiScaleIdx])
	if pw > w-40 {
		pw = w - 40
	}
	px := (w - pw) / 2
	py := (h - ph) / 2
	panel := rect{x: px, y: py, w: pw, h: ph}
	input := rect{x: px + 20, y: py + 64, w: pw - 40, h: 34}

	a.drawFilledRectOnScreen(screen, 0, 0, w, h, color.RGBA{R: 0, G: 0, B: 0, A: 90})
	a.drawFilledRectOnScreen(screen, panel.x, panel.y, panel.w, panel.h, color.RGBA{R: 249, G: 251, B: 254, A: 255})
	a.strokeRectOnScreen(screen, panel, color.RGBA{R: 160, G: 176, B: 198, A: 255})

	titleFace := a.uiFace(12, true)
	labelFace := a.uiFace(10, false)
	text.Draw(screen, a.promptTitle(), titleFace, panel.x+20, panel.y+30, color.RGBA{R: 24, G: 38, B: 56, A: 255})

	a.drawFilledRectOnScreen(screen, input.x, input.y, input.w, input.h, color.RGBA{R: 255, G: 255, B: 255, A: 255})
	a.strokeRectOnScreen(screen, input, color.RGBA{R: 77, G: 134, B: 205, A: 255})

	shown := a.promptBuffer
	if a.promptMasked() {
		shown = strings.Repeat("*", utf8.RuneCountInString(shown))
	}
	text.Draw(screen, shown, labelFace, input.x+8, input.y+22, color.RGBA{R: 42, G: 56, B: 80, A: 255})
	if (a.frameTick/30)%2 == 0 {
		caretX := input.x + 8 + a.measureString(labelFace, shown)
		ebitenutil.DrawLine(screen, float64(caretX), float64(input.y+7), float64(caretX), float64(input.y+input.h-7),
			color.RGBA{R: 21, G: 84, B: 164, A: 255})
	}

	hint := "Enter confirms, Escape cancels"
	hintColor := color.RGBA{R: 96, G: 110, B: 130, A: 255}
	if a.promptError != "" {
		hint = a.promptError
		hintColor = color.RGBA{R: 165, G: 35, B: 35, A: 255}
	}
	text.Draw(screen, hint, labelFace, panel.x+20, input.y+input.h+24, hintColor)
}

func (a *App) drawFilledRectOnScreen(screen *ebiten.Image, x, y, w, h int, c color.RGBA) {
	vector.DrawFilledRect(screen, float32(x), float32(y), float32(w), float32(h), c, false)
}

func (a *App) strokeRectOnScreen(screen *ebiten.Image, r rect, c color.RGBA) {
	vector.StrokeRect(screen, float32(r.x), float32(r.y), float32(r.w), float32(r.h), 1, c, false)
}

// cachedImage decodes a data URI once; failures are cached as nil so the
// placeholder box renders without re-decoding every frame.
func (a *App) cachedImage(src string) *ebiten.Image {
	if img, ok := a.imageCache[src]; ok {
		return img
	}
	var out *ebiten.Image
	if decoded := decodeImageURI(src); decoded != nil {
		out = ebiten.NewImageFromImage(decoded)
	}
	a.imageCache[src] = out
	return out
}

func decodeImageURI(src string) image.Image {
	if !strings.HasPrefix(src, "data:image/") {
		return nil
	}
	comma := strings.IndexByte(src, ',')
	if comma < 0 || !strings.Contains(src[:comma], "base64") {
		return nil
	}
	raw, err := base64.StdEncoding.DecodeString(src[comma+1:])
	if err != nil {
		return nil
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil
	}
	return img
}

func scalePt(p diagram.Point, k float64) [2]float32 {
	return [2]float32{float32(p.X * k), float32(p.Y * k)}
}

func strokePolyline(dst *ebiten.Image, pts []diagram.Point, k float64, width float32, clr color.Color, closed bool) {
	if len(pts) < 2 {
		return
	}
	for i := 1; i < len(pts); i++ {
		p0, p1 := scalePt(pts[i-1], k), scalePt(pts[i], k)
		vector.StrokeLine(dst, p0[0], p0[1], p1[0], p1[1], width, clr, true)
	}
	if closed && len(pts) >= 3 {
		p0, p1 := scalePt(pts[len(pts)-1], k), scalePt(pts[0], k)
		vector.StrokeLine(dst, p0[0], p0[1], p1[0], p1[1], width, clr, true)
	}
}

func strokeEllipse(dst *ebiten.Image, cx, cy, rx, ry, width float32, clr color.Color) {
	const segments = 48
	if rx <= 0 || ry <= 0 {
		return
	}
	px := cx + rx
	py := cy
	for i := 1; i <= segments; i++ {
		t := float64(i) / segments * 2 * math.Pi
		nx := cx + rx*float32(math.Cos(t))
		ny := cy + ry*float32(math.Sin(t))
		vector.StrokeLine(dst, px, py, nx, ny, width, clr, true)
		px, py = nx, ny
	}
}

func drawArrowOn(dst *ebiten.Image, from, to diagram.Point, k float64, width float32, clr color.Color) {
	p0, p1 := scalePt(from, k), scalePt(to, k)
	vector.StrokeLine(dst, p0[0], p0[1], p1[0], p1[1], width, clr, true)

	dx, dy := to.X-from.X, to.Y-from.Y
	length := math.Hypot(dx, dy)
	if length == 0 {
		return
	}
	ux, uy := dx/length, dy/length
	head := 14.0 * k
	lx := to.X - head*ux + head*0.5*uy
	ly := to.Y - head*uy - head*0.5*ux
	rx := to.X - head*ux - head*0.5*uy
	ry := to.Y - head*uy + head*0.5*ux
	b0, b1 := scalePt(diagram.Point{X: lx, Y: ly}, k), scalePt(diagram.Point{X: rx, Y: ry}, k)
	vector.StrokeLine(dst, p1[0], p1[1], b0[0], b0[1], width, clr, true)
	vector.StrokeLine(dst, p1[0], p1[1], b1[0], b1[1], width, clr, true)
}

func rgbaFromHex(hex string) color.RGBA {
	h := strings.TrimPrefix(hex, "#")
	if len(h) != 6 {
		return color.RGBA{A: 255}
	}
	var r, g, b uint8
	if _, err := fmt.Sscanf(h, "%02x%02x%02x", &r, &g, &b); err != nil {
		return color.RGBA{A: 255}
	}
	return color.RGBA{R: r, G: g, B: b, A: 255}
}
