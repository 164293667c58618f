// Package app is the ebiten shell around the editor state: it polls
// input, maps pointer positions into canvas coordinates, lays out the
// toolbar chrome, and paints the current card every frame.
package app

import (
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"labelboard/internal/editor"
	"labelboard/internal/export"
	"labelboard/internal/geometry"
	"labelboard/internal/render"
	"labelboard/internal/store"
	"labelboard/internal/ui"
	"labelboard/pkg/diagram"

	textclip "github.com/atotto/clipboard"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/sqweek/dialog"
	imgclip "golang.design/x/clipboard"

	_ "image/jpeg"
	_ "image/png"
)

const doubleClickTicks = 20

type rect struct {
	x int
	y int
	w int
	h int
}

func (r rect) contains(x, y int) bool {
	return x >= r.x && y >= r.y && x < r.x+r.w && y < r.y+r.h
}

type actionButton struct {
	id     string
	label  string
	r      rect
	active bool
}

type colorSwatch struct {
	value string
	r     rect
}

type cardTab struct {
	index int
	r     rect
}

type promptKind int

const (
	promptLabel promptKind = iota
	promptEditLabel
	promptPassword
	promptSetPassword
)

type App struct {
	theme ui.Theme
	state *editor.State

	saver *store.Autosaver

	frameBuffer *render.FrameBuffer
	canvas      *ebiten.Image
	pageLayer   *ebiten.Image

	fonts fontBank

	uiScales   []float32
	uiScaleIdx int
	status     string
	frameTick  uint64

	statusMu    sync.Mutex
	asyncStatus string

	layout          ui.Layout
	topActions      []actionButton
	toolbarActions  []actionButton
	cardTabs        []cardTab
	colorSwatches   []colorSwatch
	colorPalette    []string
	colorTarget     string
	showColorPicker bool
	colorPopupRect  rect

	imageCache map[string]*ebiten.Image

	promptActive bool
	promptKind   promptKind
	promptBuffer string
	promptEditID string
	promptError  string

	pendingOpenPath string
	encryptEnabled  bool
	password        string

	sysClipboard bool

	pointerInCanvas bool
	lastClickTick   uint64
	lastClickX      int
	lastClickY      int

	filePath string

	screenW int
	screenH int
}

// New wires an app around the editor state. saver may be nil for
// file-only sessions without a backing store.
func New(state *editor.State, saver *store.Autosaver) *App {
	a := &App{
		theme:          ui.DefaultTheme(),
		state:          state,
		saver:          saver,
		fonts:          newFontBank(),
		uiScales:       []float32{1.0, 1.25, 1.5, 2.0},
		status:         "Ready",
		topActions:     make([]actionButton, 0, 16),
		toolbarActions: make([]actionButton, 0, 24),
		cardTabs:       make([]cardTab, 0, 8),
		colorSwatches:  make([]colorSwatch, 0, 16),
		colorPalette: []string{
			"#ff0000", "#e67e22", "#f1c40f", "#117a37",
			"#0057b8", "#7a2db8", "#2c3e50", "#000000",
		},
		imageCache: map[string]*ebiten.Image{},
	}
	a.wireState(state)
	if err := imgclip.Init(); err == nil {
		a.sysClipboard = true
	}
	return a
}

func (a *App) wireState(state *editor.State) {
	a.state = state
	if a.saver == nil {
		return
	}
	state.OnDirty(func() {
		a.saver.Notify(diagram.Clone(state.Doc))
	})
	a.saver.OnSaved(func(err error) {
		a.statusMu.Lock()
		if err != nil {
			a.asyncStatus = "Autosave failed: " + err.Error()
		} else {
			a.asyncStatus = "Autosaved"
		}
		a.statusMu.Unlock()
	})
}

func (a *App) installDoc(d *diagram.Diagram) {
	readOnly := a.state.ReadOnly
	st := editor.NewState(d)
	st.ReadOnly = readOnly
	a.wireState(st)
	a.imageCache = map[string]*ebiten.Image{}
}

func (a *App) Run() error {
	ebiten.SetWindowTitle("LabelBoard")
	ebiten.SetWindowSize(1280, 800)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSizeLimits(900, 560, -1, -1)
	if err := ebiten.RunGame(a); err != nil && !errors.Is(err, ebiten.Termination) {
		return fmt.Errorf("run game loop: %w", err)
	}
	return nil
}

func (a *App) Update() error {
	a.frameTick++
	a.drainAsyncStatus()
	ctrl := ebiten.IsKeyPressed(ebiten.KeyControl) || ebiten.IsKeyPressed(ebiten.KeyMeta)

	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		if a.promptActive {
			a.closePrompt(true)
			return nil
		}
		if a.showColorPicker {
			a.showColorPicker = false
			return nil
		}
		a.state.PressEscape()
		return nil
	}

	if a.promptActive {
		a.handlePromptInput(ctrl)
		return nil
	}

	if ctrl && inpututil.IsKeyJustPressed(ebiten.KeyZ) {
		a.state.Undo()
		a.status = "Undo"
		return nil
	}
	if ctrl && inpututil.IsKeyJustPressed(ebiten.KeyY) {
		a.state.Redo()
		a.status = "Redo"
		return nil
	}
	if ctrl && inpututil.IsKeyJustPressed(ebiten.KeyN) {
		a.invokeAction("new")
		return nil
	}
	if ctrl && inpututil.IsKeyJustPressed(ebiten.KeyO) {
		a.invokeAction("open")
		return nil
	}
	if ctrl && inpututil.IsKeyJustPressed(ebiten.KeyS) {
		if ebiten.IsKeyPressed(ebiten.KeyShift) {
			a.invokeAction("save_as")
		} else {
			a.invokeAction("save")
		}
		return nil
	}
	if ctrl && inpututil.IsKeyJustPressed(ebiten.KeyE) {
		a.invokeAction("export")
		return nil
	}
	if ctrl && inpututil.IsKeyJustPressed(ebiten.KeyC) {
		if text, ok := a.state.SelectedLabelText(); ok {
			if err := textclip.WriteAll(text); err != nil {
				a.status = "Copy failed: " + err.Error()
			} else {
				a.status = "Copied label text"
			}
		}
	}
	if ctrl && inpututil.IsKeyJustPressed(ebiten.KeyV) {
		a.pasteImageFromClipboard()
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyDelete) || inpututil.IsKeyJustPressed(ebiten.KeyBackspace) {
		a.state.DeleteSelected()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEnter) || inpututil.IsKeyJustPressed(ebiten.KeyKPEnter) {
		a.state.PressEnter()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF2) {
		a.beginLabelEdit()
	}

	a.handleMouse()
	a.checkPendingLabel()
	return nil
}

func (a *App) handleMouse() {
	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		x, y := ebiten.CursorPosition()
		if a.showColorPicker {
			if a.handleColorPopupClick(x, y) {
				return
			}
			a.showColorPicker = false
		}
		if id, ok := a.actionAt(x, y); ok {
			a.invokeAction(id)
			return
		}
		if a.handleCardStripClick(x, y) {
			return
		}
		if p, ok := geometry.ToCanvas(float64(x), float64(y), a.layout.Viewport); ok {
			if a.state.Tool == editor.ToolImage {
				a.importImageAt(p)
			} else {
				a.state.PointerDown(p)
				if a.isDoubleClick(x, y) {
					if !a.beginLabelEditAt(p) {
						a.state.DoubleClick(p)
					}
					a.lastClickTick = 0
				} else {
					a.lastClickTick = a.frameTick
					a.lastClickX, a.lastClickY = x, y
				}
				a.pointerInCanvas = !a.promptActive
			}
		}
		return
	}
	if a.pointerInCanvas && ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft) {
		x, y := ebiten.CursorPosition()
		a.state.PointerMove(a.canvasPosClamped(x, y))
	}
	if inpututil.IsMouseButtonJustReleased(ebiten.MouseButtonLeft) && a.pointerInCanvas {
		x, y := ebiten.CursorPosition()
		a.state.PointerUp(a.canvasPosClamped(x, y))
		a.pointerInCanvas = false
	}
}

func (a *App) isDoubleClick(x, y int) bool {
	if a.lastClickTick == 0 || a.frameTick-a.lastClickTick > doubleClickTicks {
		return false
	}
	dx, dy := x-a.lastClickX, y-a.lastClickY
	return dx >= -5 && dx <= 5 && dy >= -5 && dy <= 5
}

// canvasPosClamped maps a screen position into canvas coordinates, pinning
// positions outside the viewport to its edge so drags survive leaving the
// page.
func (a *App) canvasPosClamped(x, y int) diagram.Point {
	v := a.layout.Viewport
	sx, sy := float64(x), float64(y)
	if sx < v.X {
		sx = v.X
	}
	if sx > v.X+v.W {
		sx = v.X + v.W
	}
	if sy < v.Y {
		sy = v.Y
	}
	if sy > v.Y+v.H {
		sy = v.Y + v.H
	}
	p, _ := geometry.ToCanvas(sx, sy, v)
	return p
}

func (a *App) checkPendingLabel() {
	if a.state.Pending() != nil && !a.promptActive {
		a.openPrompt(promptLabel, "")
	}
}

func (a *App) beginLabelEdit() {
	if text, ok := a.state.SelectedLabelText(); ok {
		a.promptEditID = a.state.Selected().ID
		a.openPrompt(promptEditLabel, text)
	}
}

// beginLabelEditAt starts a text edit when double-clicking the selected
// label with the select tool.
func (a *App) beginLabelEditAt(p diagram.Point) bool {
	if a.state.Tool != editor.ToolSelect {
		return false
	}
	sel := a.state.Selected()
	if sel.Kind != geometry.HitLabel {
		return false
	}
	for _, l := range a.state.Card().Labels {
		if l.ID == sel.ID && geometry.PointInLabel(p, l) {
			a.beginLabelEdit()
			return true
		}
	}
	return false
}

func (a *App) actionAt(x, y int) (string, bool) {
	for _, btn := range a.topActions {
		if btn.r.contains(x, y) {
			return btn.id, true
		}
	}
	for _, btn := range a.toolbarActions {
		if btn.r.contains(x, y) {
			return btn.id, true
		}
	}
	return "", false
}

func (a *App) handleCardStripClick(x, y int) bool {
	for _, tab := range a.cardTabs {
		if tab.r.contains(x, y) {
			a.state.SetCurrentCard(tab.index)
			a.status = fmt.Sprintf("Card %d", tab.index+1)
			return true
		}
	}
	return false
}

func (a *App) handleColorPopupClick(x, y int) bool {
	for _, sw := range a.colorSwatches {
		if sw.r.contains(x, y) {
			switch a.colorTarget {
			case "fill":
				a.state.SetFillColor(sw.value)
			case "label":
				a.state.SetLabelColor(sw.value)
			default:
				a.state.SetStrokeColor(sw.value)
			}
			a.showColorPicker = false
			a.status = "Applied " + a.colorTarget + " color " + sw.value
			return true
		}
	}
	return a.colorPopupRect.contains(x, y)
}

func (a *App) invokeAction(id string) {
	switch id {
	case "new":
		a.installDoc(diagram.New("Untitled"))
		a.filePath = ""
		a.status = "New board"
	case "open":
		if err := a.openBoardDialog(); err != nil {
			a.status = "Open failed: " + err.Error()
		}
	case "save":
		if err := a.saveBoard(false); err != nil {
			a.status = "Save failed: " + err.Error()
		}
	case "save_as":
		if err := a.saveBoard(true); err != nil {
			a.status = "Save As failed: " + err.Error()
		}
	case "export":
		if err := a.exportPNG(); err != nil {
			a.status = "Export failed: " + err.Error()
		}
	case "protect":
		a.toggleProtection()
	case "undo":
		a.state.Undo()
		a.status = "Undo"
	case "redo":
		a.state.Redo()
		a.status = "Redo"
	case "add_card":
		a.state.AddCard()
		a.status = fmt.Sprintf("Card %d added", a.state.Current+1)
	case "del_card":
		a.state.DeleteCard()
	case "scale_up":
		a.bumpUIScale(1)
	case "scale_down":
		a.bumpUIScale(-1)

	case "tool_select":
		a.state.SetTool(editor.ToolSelect)
	case "tool_image":
		a.state.SetTool(editor.ToolImage)
		a.status = "Click the canvas to place an image"
	case "tool_rect":
		a.state.SetTool(editor.ToolRectangle)
	case "tool_circle":
		a.state.SetTool(editor.ToolCircle)
	case "tool_line":
		a.state.SetTool(editor.ToolLine)
	case "tool_arrow":
		a.state.SetTool(editor.ToolArrow)
	case "tool_label":
		a.state.SetTool(editor.ToolLabel)

	case "label_point":
		a.state.SetLabelShape(diagram.LabelPoint)
	case "label_box":
		a.state.SetLabelShape(diagram.LabelRectangle)
	case "label_circle":
		a.state.SetLabelShape(diagram.LabelCircle)
	case "label_poly":
		a.state.SetLabelShape(diagram.LabelPolygon)

	case "stroke_color":
		a.colorTarget = "stroke"
		a.showColorPicker = !a.showColorPicker
	case "fill_color":
		a.colorTarget = "fill"
		a.showColorPicker = !a.showColorPicker
	case "label_color":
		a.colorTarget = "label"
		a.showColorPicker = !a.showColorPicker
	case "width_down":
		a.state.SetStrokeWidth(a.state.StrokeWidth - 1)
		a.status = fmt.Sprintf("Stroke width %.0f", a.state.StrokeWidth)
	case "width_up":
		a.state.SetStrokeWidth(a.state.StrokeWidth + 1)
		a.status = fmt.Sprintf("Stroke width %.0f", a.state.StrokeWidth)
	case "font_down":
		a.state.SetFontSize(a.state.FontSize - 2)
		a.status = fmt.Sprintf("Font size %.0f", a.state.FontSize)
	case "font_up":
		a.state.SetFontSize(a.state.FontSize + 2)
		a.status = fmt.Sprintf("Font size %.0f", a.state.FontSize)
	case "opacity_down":
		a.adjustImageOpacity(-0.1)
	case "opacity_up":
		a.adjustImageOpacity(0.1)
	case "front":
		a.state.BringToFront()
	case "back":
		a.state.SendToBack()
	case "reset_offset":
		a.state.ResetTextOffset()
	}
}

func (a *App) adjustImageOpacity(delta float64) {
	sel := a.state.Selected()
	if sel.Kind != geometry.HitImage {
		return
	}
	for _, im := range a.state.Card().Images {
		if im.ID == sel.ID {
			a.state.SetImageOpacity(im.Opacity + delta)
			a.status = fmt.Sprintf("Opacity %.0f%%", (im.Opacity+delta)*100)
			return
		}
	}
}

func (a *App) toggleProtection() {
	if a.encryptEnabled {
		a.encryptEnabled = false
		a.status = "Encryption off"
		return
	}
	if a.password == "" {
		a.openPrompt(promptSetPassword, "")
		return
	}
	a.encryptEnabled = true
	a.status = "Encryption on"
}

func (a *App) openBoardDialog() error {
	path, err := dialog.File().Filter("LabelBoard files", "lbd").Load()
	if err != nil {
		return err
	}
	if path == "" {
		return errors.New("no file selected")
	}
	return a.openBoard(filepath.Clean(path), a.password)
}

func (a *App) openBoard(path, password string) error {
	env, err := diagram.InspectEnvelope(path)
	if err != nil {
		return err
	}
	if env.Encrypted && password == "" {
		a.pendingOpenPath = path
		a.openPrompt(promptPassword, "")
		return nil
	}
	d, err := diagram.LoadWithOptions(path, diagram.LoadOptions{Password: password})
	if err != nil {
		if errors.Is(err, diagram.ErrPasswordNeeded) || errors.Is(err, diagram.ErrBadPassword) {
			a.pendingOpenPath = path
			a.openPrompt(promptPassword, "")
			a.promptError = "Password required"
			return nil
		}
		return err
	}
	a.installDoc(d)
	a.filePath = path
	a.encryptEnabled = env.Encrypted
	a.status = "Opened " + filepath.Base(path)
	return nil
}

func (a *App) saveBoard(saveAs bool) error {
	path := a.filePath
	if saveAs || path == "" {
		p, err := dialog.File().Filter("LabelBoard files", "lbd").Save()
		if err != nil {
			return err
		}
		path = p
	}
	if path == "" {
		return errors.New("no file selected")
	}
	opts := diagram.SaveOptions{
		Compression: true,
		Encryption:  diagram.EncryptionOptions{Enabled: a.encryptEnabled, Password: a.password},
	}
	if err := diagram.SaveWithOptions(path, a.state.Doc, opts); err != nil {
		return err
	}
	a.filePath = path
	a.status = "Saved " + filepath.Base(path)
	return nil
}

func (a *App) exportPNG() error {
	path, err := dialog.File().Filter("PNG image", "png").Save()
	if err != nil {
		return err
	}
	if path == "" {
		return errors.New("no file selected")
	}
	if !strings.HasSuffix(strings.ToLower(path), ".png") {
		path += ".png"
	}
	if err := export.SaveCardPNG(path, *a.state.Card(), 2); err != nil {
		return err
	}
	a.status = "Exported " + filepath.Base(path)
	return nil
}

// importImageAt opens a file picker and drops the chosen image on the
// canvas at the clicked point, capped to 400 canvas units.
func (a *App) importImageAt(p diagram.Point) {
	path, err := dialog.File().Filter("Images", "png", "jpg", "jpeg").Load()
	if err != nil || path == "" {
		a.state.SetTool(editor.ToolSelect)
		return
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		a.status = "Import failed: " + err.Error()
		return
	}
	cfg, _, err := image.DecodeConfig(strings.NewReader(string(raw)))
	if err != nil {
		a.status = "Import failed: " + err.Error()
		return
	}
	mime := "image/png"
	if ext := strings.ToLower(filepath.Ext(path)); ext == ".jpg" || ext == ".jpeg" {
		mime = "image/jpeg"
	}
	uri := "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(raw)
	a.state.AddImageAt(uri, float64(cfg.Width), float64(cfg.Height), p)
	a.state.SetTool(editor.ToolSelect)
	a.status = "Placed " + filepath.Base(path)
}

// pasteImageFromClipboard drops a clipboard image at the canvas center.
func (a *App) pasteImageFromClipboard() {
	if !a.sysClipboard {
		return
	}
	raw := imgclip.Read(imgclip.FmtImage)
	if len(raw) == 0 {
		return
	}
	cfg, _, err := image.DecodeConfig(strings.NewReader(string(raw)))
	if err != nil {
		a.status = "Paste failed: " + err.Error()
		return
	}
	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(raw)
	center := diagram.Point{X: diagram.CanvasWidth / 2, Y: diagram.CanvasHeight / 2}
	a.state.AddImageAt(uri, float64(cfg.Width), float64(cfg.Height), center)
	a.status = "Pasted image"
}

func (a *App) bumpUIScale(delta int) {
	prev := a.uiScaleIdx
	a.uiScaleIdx += delta
	if a.uiScaleIdx < 0 {
		a.uiScaleIdx = 0
	}
	if a.uiScaleIdx >= len(a.uiScales) {
		a.uiScaleIdx = len(a.uiScales) - 1
	}
	if prev != a.uiScaleIdx {
		a.fonts.reset()
		a.status = fmt.Sprintf("UI scale %.0f%%", a.uiScales[a.uiScaleIdx]*100)
	}
}

func (a *App) drainAsyncStatus() {
	a.statusMu.Lock()
	if a.asyncStatus != "" {
		a.status = a.asyncStatus
		a.asyncStatus = ""
	}
	a.statusMu.Unlock()
}

func (a *App) Layout(outsideWidth, outsideHeight int) (int, int) {
	if outsideWidth < 900 {
		outsideWidth = 900
	}
	if outsideHeight < 560 {
		outsideHeight = 560
	}
	a.screenW = outsideWidth
	a.screenH = outsideHeight
	return outsideWidth, outsideHeight
}
