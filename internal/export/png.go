// Package export renders a card to a PNG file, independent of the live
// ebiten canvas, for sharing outside the editor.
package export

import (
	"bytes"
	"encoding/base64"
	"image"
	"math"
	"strings"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"labelboard/internal/geometry"
	"labelboard/pkg/diagram"

	_ "image/jpeg"
	_ "image/png"
)

const arrowHeadLength = 14

// RenderCardPNG paints the card into an offscreen context at the given
// scale (1.0 = 800x600 output). Image sources that cannot be decoded are
// drawn as placeholder boxes so the export never fails on a missing asset.
func RenderCardPNG(c diagram.Card, scale float64) (image.Image, error) {
	if scale <= 0 {
		scale = 1
	}
	w := int(math.Round(diagram.CanvasWidth * scale))
	h := int(math.Round(diagram.CanvasHeight * scale))
	dc := gg.NewContext(w, h)
	dc.SetHexColor("#ffffff")
	dc.Clear()
	dc.Scale(scale, scale)

	ft, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, err
	}

	for _, i := range geometry.PaintOrderImages(c.Images) {
		drawImage(dc, c.Images[i])
	}
	for _, i := range geometry.PaintOrderShapes(c.Shapes) {
		drawShape(dc, c.Shapes[i])
	}
	for _, l := range c.Labels {
		drawLabel(dc, ft, l)
	}
	return dc.Image(), nil
}

func SaveCardPNG(path string, c diagram.Card, scale float64) error {
	img, err := RenderCardPNG(c, scale)
	if err != nil {
		return err
	}
	return gg.SavePNG(path, img)
}

func drawImage(dc *gg.Context, im diagram.Image) {
	decoded := decodeDataURI(im.Src)
	if decoded == nil {
		dc.SetRGBA(0.85, 0.85, 0.85, im.Opacity)
		dc.DrawRectangle(im.X, im.Y, im.Width, im.Height)
		dc.Fill()
		dc.SetRGBA(0.5, 0.5, 0.5, im.Opacity)
		dc.SetLineWidth(1)
		dc.DrawRectangle(im.X, im.Y, im.Width, im.Height)
		dc.Stroke()
		return
	}
	b := decoded.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return
	}
	dc.Push()
	dc.Translate(im.X, im.Y)
	dc.Scale(im.Width/float64(b.Dx()), im.Height/float64(b.Dy()))
	dc.DrawImage(decoded, 0, 0)
	dc.Pop()
}

func drawShape(dc *gg.Context, sh diagram.Shape) {
	stroke := sh.Stroke
	if stroke == "" {
		stroke = "#000000"
	}
	lw := sh.StrokeWidth
	if lw <= 0 {
		lw = 1
	}

	switch sh.Kind {
	case diagram.ShapeLine:
		if len(sh.Points) < 2 {
			return
		}
		dc.SetHexColor(stroke)
		dc.SetLineWidth(lw)
		dc.DrawLine(sh.Points[0].X, sh.Points[0].Y, sh.Points[1].X, sh.Points[1].Y)
		dc.Stroke()
	case diagram.ShapeArrow:
		if len(sh.Points) < 2 {
			return
		}
		drawArrow(dc, sh.Points[0], sh.Points[1], stroke, lw)
	case diagram.ShapePolygon:
		if len(sh.Points) < 3 {
			return
		}
		dc.MoveTo(sh.Points[0].X, sh.Points[0].Y)
		for _, p := range sh.Points[1:] {
			dc.LineTo(p.X, p.Y)
		}
		dc.ClosePath()
		fillStroke(dc, sh.Fill, stroke, lw)
	case diagram.ShapeCircle, diagram.ShapeEllipse:
		if len(sh.Points) < 2 {
			return
		}
		b := geometry.RectFromCorners(sh.Points[0], sh.Points[1])
		dc.DrawEllipse(b.X+b.W/2, b.Y+b.H/2, b.W/2, b.H/2)
		fillStroke(dc, sh.Fill, stroke, lw)
	default:
		if len(sh.Points) < 2 {
			return
		}
		b := geometry.RectFromCorners(sh.Points[0], sh.Points[1])
		dc.DrawRectangle(b.X, b.Y, b.W, b.H)
		fillStroke(dc, sh.Fill, stroke, lw)
	}
}

func fillStroke(dc *gg.Context, fill, stroke string, lw float64) {
	if fill != "" {
		dc.SetHexColor(fill)
		dc.FillPreserve()
	}
	dc.SetHexColor(stroke)
	dc.SetLineWidth(lw)
	dc.Stroke()
}

func drawArrow(dc *gg.Context, a, b diagram.Point, stroke string, lw float64) {
	dc.SetHexColor(stroke)
	dc.SetLineWidth(lw)
	dc.DrawLine(a.X, a.Y, b.X, b.Y)
	dc.Stroke()

	dx, dy := b.X-a.X, b.Y-a.Y
	length := math.Hypot(dx, dy)
	if length == 0 {
		return
	}
	ux, uy := dx/length, dy/length
	// Two barbs swept back from the tip.
	lx := b.X - arrowHeadLength*ux + arrowHeadLength*0.5*uy
	ly := b.Y - arrowHeadLength*uy - arrowHeadLength*0.5*ux
	rx := b.X - arrowHeadLength*ux - arrowHeadLength*0.5*uy
	ry := b.Y - arrowHeadLength*uy + arrowHeadLength*0.5*ux
	dc.MoveTo(b.X, b.Y)
	dc.LineTo(lx, ly)
	dc.LineTo(rx, ry)
	dc.ClosePath()
	dc.Fill()
}

func drawLabel(dc *gg.Context, ft *truetype.Font, l diagram.Label) {
	color := l.Color
	if color == "" {
		color = diagram.DefaultLabelColor
	}
	dc.SetHexColor(color)
	dc.SetLineWidth(1.5)

	switch l.Shape {
	case diagram.LabelRectangle:
		dc.DrawRectangle(l.X-l.Width/2, l.Y-l.Height/2, l.Width, l.Height)
		dc.Stroke()
	case diagram.LabelCircle:
		dc.DrawEllipse(l.X, l.Y, l.Width/2, l.Height/2)
		dc.Stroke()
	case diagram.LabelPolygon:
		if len(l.Polygon) >= 3 {
			dc.MoveTo(l.Polygon[0].X, l.Polygon[0].Y)
			for _, p := range l.Polygon[1:] {
				dc.LineTo(p.X, p.Y)
			}
			dc.ClosePath()
			dc.Stroke()
		}
	}

	size := l.FontSize
	if size <= 0 {
		size = 14
	}
	face := truetype.NewFace(ft, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	dc.SetFontFace(face)
	dc.SetHexColor(color)
	dc.DrawStringAnchored(l.Text, l.X+l.OffsetX, l.Y+l.OffsetY, 0.5, 0.5)
}

// decodeDataURI turns a base64 data URI into an image, or nil if the
// source is remote or malformed.
func decodeDataURI(src string) image.Image {
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
