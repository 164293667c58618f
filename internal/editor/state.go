// Package editor holds the document-editing state machine: selection,
// tools, interaction modes, and the bounded undo history. It is pure with
// respect to the UI; pointer input arrives already converted to canvas
// coordinates and no ebiten types appear here.
package editor

import (
	"strings"

	"labelboard/internal/geometry"
	"labelboard/pkg/diagram"
)

type Tool int

const (
	ToolSelect Tool = iota
	ToolImage
	ToolRectangle
	ToolCircle
	ToolLine
	ToolArrow
	ToolLabel
)

const (
	maxHistory = 50

	shapeCommitThreshold = 5
	labelBoxThreshold    = 10
	marqueeThreshold     = 5

	minImageSize = 20
	minShapeSize = 10
	minLabelSize = 30

	// Canvas-unit half-extent of a resize/vertex handle's grab zone.
	handleGrab = 6

	imageImportCap = 400
)

// Selection identifies one element by kind and id. The zero value means
// nothing is selected.
type Selection struct {
	Kind geometry.HitKind
	ID   string
}

func (s Selection) IsZero() bool { return s.Kind == geometry.HitNone }

// PendingLabel is a label awaiting text entry. The UI shows a prompt and
// resolves it through CommitPendingLabel or CancelPendingLabel.
type PendingLabel struct {
	Shape   diagram.LabelShape
	X, Y    float64
	W, H    float64
	Polygon []diagram.Point
}

// history is one card's bounded undo/redo stacks. Stacks are keyed by card
// id so navigating away and back keeps the card's history.
type history struct {
	undo []diagram.Card
	redo []diagram.Card
}

type State struct {
	Doc     *diagram.Diagram
	Current int

	ReadOnly bool

	Tool       Tool
	LabelShape diagram.LabelShape

	// Style defaults seeding newly created elements.
	StrokeColor string
	FillColor   string
	StrokeWidth float64
	LabelColor  string
	FontSize    float64

	selected Selection
	multi    []Selection

	mode    mode
	pending *PendingLabel

	histories map[string]*history
	restoring bool

	dirty   bool
	onDirty func()
}

func NewState(doc *diagram.Diagram) *State {
	if doc == nil {
		doc = diagram.New("")
	}
	diagram.Normalize(doc)
	return &State{
		Doc:         doc,
		Tool:        ToolSelect,
		LabelShape:  diagram.LabelPoint,
		StrokeColor: "#000000",
		StrokeWidth: 2,
		LabelColor:  doc.DefaultLabelColor,
		FontSize:    14,
		histories:   map[string]*history{},
		mode:        idleMode{},
	}
}

func (s *State) Card() *diagram.Card {
	s.clampCurrent()
	return &s.Doc.Cards[s.Current]
}

func (s *State) clampCurrent() {
	if len(s.Doc.Cards) == 0 {
		s.Doc.Cards = []diagram.Card{diagram.NewCard()}
	}
	if s.Current < 0 {
		s.Current = 0
	}
	if s.Current >= len(s.Doc.Cards) {
		s.Current = len(s.Doc.Cards) - 1
	}
}

// OnDirty registers the autosave callback invoked after every committed
// mutation.
func (s *State) OnDirty(fn func()) { s.onDirty = fn }

func (s *State) Dirty() bool { return s.dirty }
func (s *State) ClearDirty() { s.dirty = false }

func (s *State) markDirty() {
	s.dirty = true
	if s.onDirty != nil {
		s.onDirty()
	}
}

func (s *State) Selected() Selection         { return s.selected }
func (s *State) MultiSelection() []Selection { return s.multi }
func (s *State) Pending() *PendingLabel      { return s.pending }
func (s *State) HasSelection() bool          { return !s.selected.IsZero() || len(s.multi) > 0 }

func (s *State) setSelection(sel Selection) {
	s.selected = sel
	s.multi = nil
}

func (s *State) ClearSelection() {
	s.selected = Selection{}
	s.multi = nil
}

// SetTool switches the active tool. Entering any non-select tool drops the
// selection and any in-progress construction.
func (s *State) SetTool(t Tool) {
	s.Tool = t
	s.mode = idleMode{}
	if t != ToolSelect {
		s.ClearSelection()
	}
}

func (s *State) SetLabelShape(ls diagram.LabelShape) {
	s.LabelShape = ls
	s.mode = idleMode{}
}

// UpdateCard is the single mutation choke point: it snapshots the current
// card for undo, applies the transform, and marks the document dirty.
// Read-only sessions make it a no-op.
func (s *State) UpdateCard(fn func(*diagram.Card)) {
	if s.ReadOnly || fn == nil {
		return
	}
	s.pushUndo()
	fn(s.Card())
	s.markDirty()
}

// mutateLive applies a mid-gesture change without recording history; the
// gesture's first mutation is expected to have pushed the snapshot already.
func (s *State) mutateLive(fn func(*diagram.Card)) {
	if s.ReadOnly || fn == nil {
		return
	}
	fn(s.Card())
	s.markDirty()
}

// history returns the current card's stacks, creating them on first use.
func (s *State) history() *history {
	id := s.Card().ID
	h, ok := s.histories[id]
	if !ok {
		h = &history{}
		s.histories[id] = h
	}
	return h
}

func (s *State) pushUndo() {
	if s.restoring {
		return
	}
	h := s.history()
	h.undo = append(h.undo, diagram.CloneCard(*s.Card()))
	if len(h.undo) > maxHistory {
		h.undo = h.undo[len(h.undo)-maxHistory:]
	}
	h.redo = nil
}

func (s *State) CanUndo() bool { return len(s.history().undo) > 0 }
func (s *State) CanRedo() bool { return len(s.history().redo) > 0 }

func (s *State) Undo() {
	h := s.history()
	if s.ReadOnly || len(h.undo) == 0 {
		return
	}
	s.restoring = true
	defer func() { s.restoring = false }()

	snap := h.undo[len(h.undo)-1]
	h.undo = h.undo[:len(h.undo)-1]

	h.redo = append(h.redo, diagram.CloneCard(*s.Card()))
	s.Doc.Cards[s.Current] = diagram.CloneCard(snap)
	s.ClearSelection()
	s.mode = idleMode{}
	s.markDirty()
}

func (s *State) Redo() {
	h := s.history()
	if s.ReadOnly || len(h.redo) == 0 {
		return
	}
	s.restoring = true
	defer func() { s.restoring = false }()

	snap := h.redo[len(h.redo)-1]
	h.redo = h.redo[:len(h.redo)-1]

	h.undo = append(h.undo, diagram.CloneCard(*s.Card()))
	s.Doc.Cards[s.Current] = diagram.CloneCard(snap)
	s.ClearSelection()
	s.mode = idleMode{}
	s.markDirty()
}

func (s *State) AddCard() {
	if s.ReadOnly {
		return
	}
	s.Doc.Cards = append(s.Doc.Cards, diagram.NewCard())
	s.Current = len(s.Doc.Cards) - 1
	s.ClearSelection()
	s.mode = idleMode{}
	s.markDirty()
}

// DeleteCard removes the current card. Guarded no-op when it is the last
// one; afterwards the previous index is selected, clamped to 0.
func (s *State) DeleteCard() {
	if s.ReadOnly || len(s.Doc.Cards) <= 1 {
		return
	}
	i := s.Current
	delete(s.histories, s.Doc.Cards[i].ID)
	s.Doc.Cards = append(s.Doc.Cards[:i], s.Doc.Cards[i+1:]...)
	s.Current = clampInt(i-1, 0, len(s.Doc.Cards)-1)
	s.ClearSelection()
	s.mode = idleMode{}
	s.markDirty()
}

func (s *State) SetCurrentCard(i int) {
	if i == s.Current {
		return
	}
	s.Current = clampInt(i, 0, len(s.Doc.Cards)-1)
	s.ClearSelection()
	s.mode = idleMode{}
}

// DeleteSelected removes the single selection or the whole marquee set in
// one atomic card update, then clears selection.
func (s *State) DeleteSelected() {
	if s.ReadOnly || !s.HasSelection() {
		return
	}
	targets := s.multi
	if len(targets) == 0 {
		targets = []Selection{s.selected}
	}
	drop := map[Selection]bool{}
	for _, t := range targets {
		drop[t] = true
	}
	s.UpdateCard(func(c *diagram.Card) {
		images := c.Images[:0]
		for _, im := range c.Images {
			if !drop[Selection{Kind: geometry.HitImage, ID: im.ID}] {
				images = append(images, im)
			}
		}
		c.Images = images

		shapes := c.Shapes[:0]
		for _, sh := range c.Shapes {
			if !drop[Selection{Kind: geometry.HitShape, ID: sh.ID}] {
				shapes = append(shapes, sh)
			}
		}
		c.Shapes = shapes

		labels := c.Labels[:0]
		for _, l := range c.Labels {
			if !drop[Selection{Kind: geometry.HitLabel, ID: l.ID}] {
				labels = append(labels, l)
			}
		}
		c.Labels = labels
	})
	s.ClearSelection()
}

// AddImageAt inserts an image element sized from its natural dimensions,
// capped to 400 units on the longer axis, centered at the given point.
func (s *State) AddImageAt(src string, naturalW, naturalH float64, at diagram.Point) {
	if s.ReadOnly || src == "" {
		return
	}
	w, h := naturalW, naturalH
	if w <= 0 || h <= 0 {
		w, h = imageImportCap, imageImportCap
	}
	if longer := maxFloat(w, h); longer > imageImportCap {
		scale := imageImportCap / longer
		w *= scale
		h *= scale
	}
	img := diagram.Image{
		ID:      diagram.NewID(),
		Src:     src,
		X:       at.X - w/2,
		Y:       at.Y - h/2,
		Width:   w,
		Height:  h,
		Opacity: 1,
	}
	s.UpdateCard(func(c *diagram.Card) {
		if z, ok := diagram.MaxImageZ(*c); ok {
			img.Z = z + 1
		}
		c.Images = append(c.Images, img)
	})
	s.setSelection(Selection{Kind: geometry.HitImage, ID: img.ID})
}

func (s *State) BringToFront() {
	sel := s.selected
	if sel.IsZero() {
		return
	}
	switch sel.Kind {
	case geometry.HitShape:
		s.UpdateCard(func(c *diagram.Card) {
			if i := findShape(c, sel.ID); i >= 0 {
				if z, ok := diagram.MaxShapeZ(*c); ok {
					c.Shapes[i].Z = z + 1
				}
			}
		})
	case geometry.HitImage:
		s.UpdateCard(func(c *diagram.Card) {
			if i := findImage(c, sel.ID); i >= 0 {
				if z, ok := diagram.MaxImageZ(*c); ok {
					c.Images[i].Z = z + 1
				}
			}
		})
	case geometry.HitLabel:
		// Labels have no z; topmost is the last slice element.
		s.UpdateCard(func(c *diagram.Card) {
			if i := findLabel(c, sel.ID); i >= 0 {
				l := c.Labels[i]
				c.Labels = append(append(c.Labels[:i], c.Labels[i+1:]...), l)
			}
		})
	}
}

func (s *State) SendToBack() {
	sel := s.selected
	if sel.IsZero() {
		return
	}
	switch sel.Kind {
	case geometry.HitShape:
		s.UpdateCard(func(c *diagram.Card) {
			if i := findShape(c, sel.ID); i >= 0 {
				if z, ok := diagram.MinShapeZ(*c); ok {
					c.Shapes[i].Z = z - 1
				}
			}
		})
	case geometry.HitImage:
		s.UpdateCard(func(c *diagram.Card) {
			if i := findImage(c, sel.ID); i >= 0 {
				if z, ok := diagram.MinImageZ(*c); ok {
					c.Images[i].Z = z - 1
				}
			}
		})
	case geometry.HitLabel:
		s.UpdateCard(func(c *diagram.Card) {
			if i := findLabel(c, sel.ID); i >= 0 {
				l := c.Labels[i]
				rest := append([]diagram.Label{}, c.Labels[:i]...)
				rest = append(rest, c.Labels[i+1:]...)
				c.Labels = append([]diagram.Label{l}, rest...)
			}
		})
	}
}

// Style setters update the defaults and, when a matching element is
// selected, restyle it in place.

func (s *State) SetStrokeColor(hex string) {
	s.StrokeColor = hex
	if sel := s.selected; sel.Kind == geometry.HitShape {
		s.UpdateCard(func(c *diagram.Card) {
			if i := findShape(c, sel.ID); i >= 0 {
				c.Shapes[i].Stroke = hex
			}
		})
	}
}

func (s *State) SetFillColor(hex string) {
	s.FillColor = hex
	if sel := s.selected; sel.Kind == geometry.HitShape {
		s.UpdateCard(func(c *diagram.Card) {
			if i := findShape(c, sel.ID); i >= 0 {
				c.Shapes[i].Fill = hex
			}
		})
	}
}

func (s *State) SetStrokeWidth(w float64) {
	if w < 0 {
		w = 0
	}
	s.StrokeWidth = w
	if sel := s.selected; sel.Kind == geometry.HitShape {
		s.UpdateCard(func(c *diagram.Card) {
			if i := findShape(c, sel.ID); i >= 0 {
				c.Shapes[i].StrokeWidth = w
			}
		})
	}
}

func (s *State) SetLabelColor(hex string) {
	s.LabelColor = hex
	if sel := s.selected; sel.Kind == geometry.HitLabel {
		s.UpdateCard(func(c *diagram.Card) {
			if i := findLabel(c, sel.ID); i >= 0 {
				c.Labels[i].Color = hex
			}
		})
	}
}

func (s *State) SetFontSize(size float64) {
	if size < 6 {
		size = 6
	}
	if size > 96 {
		size = 96
	}
	s.FontSize = size
	if sel := s.selected; sel.Kind == geometry.HitLabel {
		s.UpdateCard(func(c *diagram.Card) {
			if i := findLabel(c, sel.ID); i >= 0 {
				c.Labels[i].FontSize = size
			}
		})
	}
}

// SetImageOpacity adjusts the selected image's opacity, clamped to [0,1].
func (s *State) SetImageOpacity(op float64) {
	if op < 0 {
		op = 0
	}
	if op > 1 {
		op = 1
	}
	if sel := s.selected; sel.Kind == geometry.HitImage {
		s.UpdateCard(func(c *diagram.Card) {
			if i := findImage(c, sel.ID); i >= 0 {
				c.Images[i].Opacity = op
			}
		})
	}
}

// ResetTextOffset recenters the selected label's text on its anchor.
func (s *State) ResetTextOffset() {
	if sel := s.selected; sel.Kind == geometry.HitLabel {
		s.UpdateCard(func(c *diagram.Card) {
			if i := findLabel(c, sel.ID); i >= 0 {
				c.Labels[i].OffsetX = 0
				c.Labels[i].OffsetY = 0
			}
		})
	}
}

// SelectedLabelText returns the text of the selected label, if any.
func (s *State) SelectedLabelText() (string, bool) {
	if sel := s.selected; sel.Kind == geometry.HitLabel {
		if i := findLabel(s.Card(), sel.ID); i >= 0 {
			return s.Card().Labels[i].Text, true
		}
	}
	return "", false
}

// CommitPendingLabel resolves the text prompt. Blank text discards the
// pending label without touching the document.
func (s *State) CommitPendingLabel(text string) {
	p := s.pending
	s.pending = nil
	if p == nil || s.ReadOnly {
		return
	}
	if strings.TrimSpace(text) == "" {
		return
	}
	l := diagram.Label{
		ID:       diagram.NewID(),
		Shape:    p.Shape,
		X:        p.X,
		Y:        p.Y,
		Width:    p.W,
		Height:   p.H,
		Text:     text,
		FontSize: s.FontSize,
		Color:    s.LabelColor,
	}
	if p.Shape == diagram.LabelPolygon {
		l.Polygon = append([]diagram.Point(nil), p.Polygon...)
		anchor := geometry.Centroid(l.Polygon)
		l.X, l.Y = anchor.X, anchor.Y
	}
	s.UpdateCard(func(c *diagram.Card) {
		c.Labels = append(c.Labels, l)
	})
	s.Tool = ToolSelect
	s.setSelection(Selection{Kind: geometry.HitLabel, ID: l.ID})
}

func (s *State) CancelPendingLabel() {
	s.pending = nil
}

// EditLabelText rewrites an existing label's text; blank text is rejected.
func (s *State) EditLabelText(id, text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	s.UpdateCard(func(c *diagram.Card) {
		if i := findLabel(c, id); i >= 0 {
			c.Labels[i].Text = text
		}
	})
}

func findImage(c *diagram.Card, id string) int {
	for i := range c.Images {
		if c.Images[i].ID == id {
			return i
		}
	}
	return -1
}

func findShape(c *diagram.Card, id string) int {
	for i := range c.Shapes {
		if c.Shapes[i].ID == id {
			return i
		}
	}
	return -1
}

func findLabel(c *diagram.Card, id string) int {
	for i := range c.Labels {
		if c.Labels[i].ID == id {
			return i
		}
	}
	return -1
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
