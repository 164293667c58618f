// Package diagram defines the labelboard document model: a diagram is an
// ordered set of cards, each holding images, vector shapes, and text labels
// positioned on a fixed 800x600 logical canvas.
package diagram

import (
	"github.com/google/uuid"
)

// Logical canvas size. All element coordinates live in this space.
const (
	CanvasWidth  = 800.0
	CanvasHeight = 600.0
)

const DefaultLabelColor = "#ff0000"

type ShapeKind string

const (
	ShapeRectangle ShapeKind = "rectangle"
	ShapeCircle    ShapeKind = "circle"
	ShapeEllipse   ShapeKind = "ellipse"
	ShapeLine      ShapeKind = "line"
	ShapeArrow     ShapeKind = "arrow"
	ShapePolygon   ShapeKind = "polygon"
)

type LabelShape string

const (
	LabelPoint     LabelShape = "point"
	LabelRectangle LabelShape = "rectangle"
	LabelCircle    LabelShape = "circle"
	LabelPolygon   LabelShape = "polygon"
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Image struct {
	ID      string  `json:"id"`
	Src     string  `json:"src"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	Opacity float64 `json:"opacity"`
	Z       int     `json:"z"`
}

// Shape point interpretation depends on Kind: rectangle, circle, ellipse,
// line and arrow carry two corner points; polygon carries its vertices in
// order (at least three).
type Shape struct {
	ID          string    `json:"id"`
	Kind        ShapeKind `json:"kind"`
	Points      []Point   `json:"points"`
	Stroke      string    `json:"stroke"`
	Fill        string    `json:"fill,omitempty"`
	StrokeWidth float64   `json:"strokeWidth"`
	Z           int       `json:"z"`
}

// Label anchors text to a point, rectangle, circle, or polygon region.
// X,Y is the anchor; for polygon labels it is always the centroid of
// Polygon. OffsetX/OffsetY move the text independently of the region;
// (0,0) means centered on the anchor.
type Label struct {
	ID       string     `json:"id"`
	Shape    LabelShape `json:"shape"`
	X        float64    `json:"x"`
	Y        float64    `json:"y"`
	Width    float64    `json:"width,omitempty"`
	Height   float64    `json:"height,omitempty"`
	Polygon  []Point    `json:"polygon,omitempty"`
	Text     string     `json:"text"`
	FontSize float64    `json:"fontSize"`
	Color    string     `json:"color"`
	OffsetX  float64    `json:"offsetX"`
	OffsetY  float64    `json:"offsetY"`
}

type Card struct {
	ID     string  `json:"id"`
	Images []Image `json:"images"`
	Shapes []Shape `json:"shapes"`
	Labels []Label `json:"labels"`
}

type Diagram struct {
	Title             string   `json:"title"`
	Cards             []Card   `json:"cards"`
	Tags              []string `json:"tags"`
	DefaultLabelColor string   `json:"defaultLabelColor"`
}

func NewID() string {
	return uuid.NewString()
}

func NewCard() Card {
	return Card{ID: NewID()}
}

// New returns an empty diagram with a single blank card.
func New(title string) *Diagram {
	return &Diagram{
		Title:             title,
		Cards:             []Card{NewCard()},
		DefaultLabelColor: DefaultLabelColor,
	}
}

func CloneCard(c Card) Card {
	out := Card{ID: c.ID}
	if c.Images != nil {
		out.Images = append([]Image(nil), c.Images...)
	}
	if c.Shapes != nil {
		out.Shapes = make([]Shape, len(c.Shapes))
		for i, s := range c.Shapes {
			out.Shapes[i] = s
			out.Shapes[i].Points = append([]Point(nil), s.Points...)
		}
	}
	if c.Labels != nil {
		out.Labels = make([]Label, len(c.Labels))
		for i, l := range c.Labels {
			out.Labels[i] = l
			if l.Polygon != nil {
				out.Labels[i].Polygon = append([]Point(nil), l.Polygon...)
			}
		}
	}
	return out
}

func Clone(d *Diagram) *Diagram {
	if d == nil {
		return nil
	}
	out := &Diagram{
		Title:             d.Title,
		DefaultLabelColor: d.DefaultLabelColor,
	}
	if d.Tags != nil {
		out.Tags = append([]string(nil), d.Tags...)
	}
	out.Cards = make([]Card, len(d.Cards))
	for i, c := range d.Cards {
		out.Cards[i] = CloneCard(c)
	}
	return out
}

// Normalize repairs a diagram in place so the editor can always rely on its
// structural invariants: at least one card, opacity within [0,1], non-empty
// label colors and font sizes. Missing ids are regenerated.
func Normalize(d *Diagram) {
	if len(d.Cards) == 0 {
		d.Cards = []Card{NewCard()}
	}
	if d.DefaultLabelColor == "" {
		d.DefaultLabelColor = DefaultLabelColor
	}
	for ci := range d.Cards {
		c := &d.Cards[ci]
		if c.ID == "" {
			c.ID = NewID()
		}
		for i := range c.Images {
			img := &c.Images[i]
			if img.ID == "" {
				img.ID = NewID()
			}
			if img.Opacity <= 0 || img.Opacity > 1 {
				img.Opacity = 1
			}
		}
		for i := range c.Shapes {
			if c.Shapes[i].ID == "" {
				c.Shapes[i].ID = NewID()
			}
			if c.Shapes[i].StrokeWidth < 0 {
				c.Shapes[i].StrokeWidth = 0
			}
		}
		for i := range c.Labels {
			l := &c.Labels[i]
			if l.ID == "" {
				l.ID = NewID()
			}
			if l.FontSize <= 0 {
				l.FontSize = 14
			}
			if l.Color == "" {
				l.Color = d.DefaultLabelColor
			}
		}
	}
}

// MaxShapeZ reports the highest z-index among a card's shapes, or zero when
// there are none. ok is false for an empty collection.
func MaxShapeZ(c Card) (int, bool) {
	if len(c.Shapes) == 0 {
		return 0, false
	}
	z := c.Shapes[0].Z
	for _, s := range c.Shapes[1:] {
		if s.Z > z {
			z = s.Z
		}
	}
	return z, true
}

func MinShapeZ(c Card) (int, bool) {
	if len(c.Shapes) == 0 {
		return 0, false
	}
	z := c.Shapes[0].Z
	for _, s := range c.Shapes[1:] {
		if s.Z < z {
			z = s.Z
		}
	}
	return z, true
}

func MaxImageZ(c Card) (int, bool) {
	if len(c.Images) == 0 {
		return 0, false
	}
	z := c.Images[0].Z
	for _, im := range c.Images[1:] {
		if im.Z > z {
			z = im.Z
		}
	}
	return z, true
}

func MinImageZ(c Card) (int, bool) {
	if len(c.Images) == 0 {
		return 0, false
	}
	z := c.Images[0].Z
	for _, im := range c.Images[1:] {
		if im.Z < z {
			z = im.Z
		}
	}
	return z, true
}
