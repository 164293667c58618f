package store

import (
	"context"
	"log"
	"sync"
	"time"

	"labelboard/pkg/diagram"
)

// Autosaver debounces document pushes: every Notify resets the timer, and
// only after the debounce window of quiet does the latest payload get
// saved. Failures are logged and retried on the next window; the editor
// keeps its dirty flag until a save succeeds.
type Autosaver struct {
	store     Store
	sessionID string
	debounce  time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	payload *diagram.Diagram
	pending bool
	running bool

	// onSaved, when set, observes every save attempt. Test hook and UI
	// status feed.
	onSaved func(err error)
}

func NewAutosaver(store Store, sessionID string, debounce time.Duration) *Autosaver {
	if debounce <= 0 {
		debounce = time.Second
	}
	return &Autosaver{store: store, sessionID: sessionID, debounce: debounce}
}

func (a *Autosaver) OnSaved(fn func(err error)) {
	a.mu.Lock()
	a.onSaved = fn
	a.mu.Unlock()
}

// Notify hands the autosaver a fresh snapshot of the document. The caller
// must pass a clone; the autosaver saves it from its own goroutine.
func (a *Autosaver) Notify(d *diagram.Diagram) {
	if a == nil || d == nil {
		return
	}
	a.mu.Lock()
	a.payload = d
	a.pending = true
	if a.timer == nil {
		a.timer = time.AfterFunc(a.debounce, a.onTimer)
		a.mu.Unlock()
		return
	}
	a.timer.Reset(a.debounce)
	a.mu.Unlock()
}

func (a *Autosaver) onTimer() {
	a.mu.Lock()
	if a.running {
		// A save is in flight; run again afterwards to pick up the newer
		// payload.
		if a.timer != nil {
			a.timer.Reset(a.debounce)
		}
		a.mu.Unlock()
		return
	}
	if !a.pending {
		a.mu.Unlock()
		return
	}
	a.pending = false
	a.running = true
	payload := a.payload
	observer := a.onSaved
	a.mu.Unlock()

	err := a.store.SaveDiagram(context.Background(), a.sessionID, payload)
	if err != nil {
		log.Printf("autosave: save failed for session %s: %v", a.sessionID, err)
	}
	if observer != nil {
		observer(err)
	}

	a.mu.Lock()
	a.running = false
	if err != nil {
		// Leave the payload queued so the next window retries.
		a.pending = true
	}
	if a.pending && a.timer != nil {
		a.timer.Reset(a.debounce)
	}
	a.mu.Unlock()
}

// Flush saves any pending payload immediately. Used on shutdown.
func (a *Autosaver) Flush(ctx context.Context) error {
	a.mu.Lock()
	if a.timer != nil {
		a.timer.Stop()
	}
	pending := a.pending
	payload := a.payload
	a.pending = false
	a.mu.Unlock()

	if !pending || payload == nil {
		return nil
	}
	return a.store.SaveDiagram(ctx, a.sessionID, payload)
}

// Stop halts the debounce timer. Any pending payload stays queued so a
// subsequent Flush still writes it.
func (a *Autosaver) Stop() {
	a.mu.Lock()
	if a.timer != nil {
		a.timer.Stop()
	}
	a.mu.Unlock()
}
