package app

import (
	"errors"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"labelboard/pkg/diagram"

	textclip "github.com/atotto/clipboard"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

const promptInputLimit = 256

func (a *App) openPrompt(kind promptKind, initial string) {
	// The modal swallows input, so an in-flight canvas gesture would never
	// see its release; end it here before capturing the keyboard.
	if a.pointerInCanvas {
		x, y := ebiten.CursorPosition()
		a.state.PointerUp(a.canvasPosClamped(x, y))
		a.pointerInCanvas = false
	}
	a.promptActive = true
	a.promptKind = kind
	a.promptBuffer = initial
	a.promptError = ""
}

func (a *App) closePrompt(cancel bool) {
	if cancel && a.promptKind == promptLabel {
		a.state.CancelPendingLabel()
	}
	a.promptActive = false
	a.promptBuffer = ""
	a.promptEditID = ""
	a.promptError = ""
	a.pendingOpenPath = ""
}

func (a *App) handlePromptInput(ctrl bool) {
	if inpututil.IsKeyJustPressed(ebiten.KeyBackspace) {
		if len(a.promptBuffer) > 0 {
			_, size := utf8.DecodeLastRuneInString(a.promptBuffer)
			if size <= 0 {
				size = 1
			}
			a.promptBuffer = a.promptBuffer[:len(a.promptBuffer)-size]
		}
		return
	}
	if ctrl && inpututil.IsKeyJustPressed(ebiten.KeyV) {
		if clip, err := textclip.ReadAll(); err == nil && clip != "" {
			a.promptBuffer += clip
			if len(a.promptBuffer) > promptInputLimit {
				a.promptBuffer = a.promptBuffer[:promptInputLimit]
			}
		}
		return
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEnter) || inpututil.IsKeyJustPressed(ebiten.KeyKPEnter) {
		a.commitPrompt()
		return
	}
	for _, r := range ebiten.AppendInputChars(nil) {
		if r < 0x20 || r == 0x7F || !utf8.ValidRune(r) {
			continue
		}
		a.promptBuffer += string(r)
		if len(a.promptBuffer) > promptInputLimit {
			a.promptBuffer = a.promptBuffer[:promptInputLimit]
		}
	}
}

func (a *App) commitPrompt() {
	switch a.promptKind {
	case promptLabel:
		a.state.CommitPendingLabel(a.promptBuffer)
		a.closePrompt(false)
	case promptEditLabel:
		a.state.EditLabelText(a.promptEditID, a.promptBuffer)
		a.closePrompt(false)
	case promptSetPassword:
		if strings.TrimSpace(a.promptBuffer) != "" {
			a.password = a.promptBuffer
			a.encryptEnabled = true
			a.status = "Encryption on"
		}
		a.closePrompt(false)
	case promptPassword:
		path := a.pendingOpenPath
		d, err := diagram.LoadWithOptions(path, diagram.LoadOptions{Password: a.promptBuffer})
		if err != nil {
			if errors.Is(err, diagram.ErrBadPassword) || errors.Is(err, diagram.ErrPasswordNeeded) {
				a.promptError = "Incorrect password. Try again."
				return
			}
			a.status = "Open failed: " + err.Error()
			a.closePrompt(false)
			return
		}
		a.password = a.promptBuffer
		a.encryptEnabled = true
		a.installDoc(d)
		a.filePath = path
		a.status = "Opened " + filepath.Base(path)
		a.closePrompt(false)
	}
}

func (a *App) promptTitle() string {
	switch a.promptKind {
	case promptEditLabel:
		return "Edit Label Text"
	case promptPassword:
		return "Password Required"
	case promptSetPassword:
		return "Set Encryption Password"
	default:
		return "Label Text"
	}
}

func (a *App) promptMasked() bool {
	return a.promptKind == promptPassword || a.promptKind == promptSetPassword
}
