package export

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"labelboard/pkg/diagram"
)

func sampleCard() diagram.Card {
	return diagram.Card{
		ID: "c1",
		Images: []diagram.Image{
			{ID: "i1", Src: "remote.png", X: 50, Y: 50, Width: 200, Height: 150, Opacity: 1, Z: 1},
		},
		Shapes: []diagram.Shape{
			{ID: "s1", Kind: diagram.ShapeRectangle, Points: []diagram.Point{{X: 300, Y: 100}, {X: 420, Y: 180}},
				Stroke: "#000000", Fill: "#00ff00", StrokeWidth: 2, Z: 2},
			{ID: "s2", Kind: diagram.ShapeArrow, Points: []diagram.Point{{X: 100, Y: 400}, {X: 250, Y: 450}},
				Stroke: "#0000ff", StrokeWidth: 2, Z: 3},
		},
		Labels: []diagram.Label{
			{ID: "l1", Shape: diagram.LabelRectangle, X: 500, Y: 300, Width: 120, Height: 60,
				Text: "valve", FontSize: 14, Color: "#ff0000"},
		},
	}
}

func TestRenderCardPNGDimensions(t *testing.T) {
	img, err := RenderCardPNG(sampleCard(), 1)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	b := img.Bounds()
	if b.Dx() != diagram.CanvasWidth || b.Dy() != diagram.CanvasHeight {
		t.Fatalf("unexpected size %dx%d", b.Dx(), b.Dy())
	}

	// The filled rectangle spans 300..420 x 100..180; its middle is green.
	r, g, bl, _ := img.At(360, 140).RGBA()
	if g <= r || g <= bl {
		t.Fatalf("expected green fill at (360,140), got rgba(%d,%d,%d)", r>>8, g>>8, bl>>8)
	}

	// The undecodable image renders as a gray placeholder, not white.
	c := color.NRGBAModel.Convert(img.At(150, 125)).(color.NRGBA)
	if c.R == 255 && c.G == 255 && c.B == 255 {
		t.Fatalf("expected placeholder box at (150,125), got white")
	}
}

func TestRenderCardPNGScale(t *testing.T) {
	img, err := RenderCardPNG(sampleCard(), 2)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	b := img.Bounds()
	if b.Dx() != 2*diagram.CanvasWidth || b.Dy() != 2*diagram.CanvasHeight {
		t.Fatalf("unexpected scaled size %dx%d", b.Dx(), b.Dy())
	}
}

func TestSaveCardPNGWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "card.png")
	if err := SaveCardPNG(path, sampleCard(), 1); err != nil {
		t.Fatalf("save: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(raw) < 8 || string(raw[1:4]) != "PNG" {
		t.Fatalf("output is not a PNG (%d bytes)", len(raw))
	}
}
