package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"labelboard/pkg/diagram"
)

// fakeStore records saves and can be told to fail.
type fakeStore struct {
	mu     sync.Mutex
	saves  []string
	failN  int
	titles []string
}

func (f *fakeStore) LoadDiagram(context.Context, string) (*diagram.Diagram, error) { return nil, nil }

func (f *fakeStore) SaveDiagram(_ context.Context, sessionID string, d *diagram.Diagram) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failN > 0 {
		f.failN--
		return errors.New("store down")
	}
	f.saves = append(f.saves, sessionID)
	f.titles = append(f.titles, d.Title)
	return nil
}

func (f *fakeStore) Permission(context.Context, string, string) (Permission, error) {
	return PermissionOwner, nil
}
func (f *fakeStore) GrantPermission(context.Context, string, string, Permission) error { return nil }
func (f *fakeStore) Tags(context.Context, string) ([]string, error)                    { return nil, nil }
func (f *fakeStore) SetTags(context.Context, string, []string) error                   { return nil }
func (f *fakeStore) Close() error                                                      { return nil }

func (f *fakeStore) saveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saves)
}

func (f *fakeStore) lastTitle() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.titles) == 0 {
		return ""
	}
	return f.titles[len(f.titles)-1]
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not reached in time")
}

func TestAutosaverCoalescesBursts(t *testing.T) {
	fs := &fakeStore{}
	a := NewAutosaver(fs, "sess", 30*time.Millisecond)
	defer a.Stop()

	for i := 0; i < 10; i++ {
		d := diagram.New("burst")
		a.Notify(d)
		time.Sleep(2 * time.Millisecond)
	}

	waitFor(t, func() bool { return fs.saveCount() >= 1 })
	time.Sleep(100 * time.Millisecond)
	if got := fs.saveCount(); got != 1 {
		t.Fatalf("expected burst to coalesce into 1 save, got %d", got)
	}
}

func TestAutosaverLatestPayloadWins(t *testing.T) {
	fs := &fakeStore{}
	a := NewAutosaver(fs, "sess", 30*time.Millisecond)
	defer a.Stop()

	a.Notify(diagram.New("old"))
	a.Notify(diagram.New("new"))

	waitFor(t, func() bool { return fs.saveCount() >= 1 })
	if got := fs.lastTitle(); got != "new" {
		t.Fatalf("expected newest payload, got %q", got)
	}
}

func TestAutosaverRetriesAfterFailure(t *testing.T) {
	fs := &fakeStore{failN: 1}
	a := NewAutosaver(fs, "sess", 20*time.Millisecond)
	defer a.Stop()

	var attempts int
	var mu sync.Mutex
	a.OnSaved(func(err error) {
		mu.Lock()
		attempts++
		mu.Unlock()
	})

	a.Notify(diagram.New("retry"))
	waitFor(t, func() bool { return fs.saveCount() >= 1 })

	mu.Lock()
	n := attempts
	mu.Unlock()
	if n < 2 {
		t.Fatalf("expected a failed attempt then a retry, got %d attempts", n)
	}
	if fs.lastTitle() != "retry" {
		t.Fatalf("payload lost across retry: %q", fs.lastTitle())
	}
}

func TestAutosaverFlushSavesPending(t *testing.T) {
	fs := &fakeStore{}
	a := NewAutosaver(fs, "sess", time.Hour)
	defer a.Stop()

	a.Notify(diagram.New("flush"))
	if err := a.Flush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if fs.saveCount() != 1 || fs.lastTitle() != "flush" {
		t.Fatalf("flush did not save pending payload: %d %q", fs.saveCount(), fs.lastTitle())
	}
	// Nothing pending now; flush is a no-op.
	if err := a.Flush(context.Background()); err != nil {
		t.Fatalf("second flush: %v", err)
	}
	if fs.saveCount() != 1 {
		t.Fatalf("no-op flush saved again")
	}
}

// Shutdown stops the timer first and flushes second; edits made inside the
// last debounce window must still reach the store.
func TestStopThenFlushSavesPending(t *testing.T) {
	fs := &fakeStore{}
	a := NewAutosaver(fs, "sess", time.Hour)

	a.Notify(diagram.New("final edits"))
	a.Stop()
	if err := a.Flush(context.Background()); err != nil {
		t.Fatalf("flush after stop: %v", err)
	}
	if fs.saveCount() != 1 || fs.lastTitle() != "final edits" {
		t.Fatalf("pending payload dropped across stop: %d %q", fs.saveCount(), fs.lastTitle())
	}
}
