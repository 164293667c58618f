package store

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"

	"labelboard/pkg/diagram"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "labelboard.sqlite"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestLoadDiagramAbsentReturnsNil(t *testing.T) {
	s := openTestStore(t)
	d, err := s.LoadDiagram(context.Background(), "nope")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if d != nil {
		t.Fatalf("expected nil for absent session, got %#v", d)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	d := diagram.New("anatomy")
	d.Tags = []string{"bio"}
	d.Cards[0].Labels = []diagram.Label{{
		ID: "l1", Shape: diagram.LabelPoint, X: 100, Y: 200,
		Text: "aorta", FontSize: 14, Color: "#ff0000",
	}}
	if err := s.SaveDiagram(ctx, "sess-1", d); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.LoadDiagram(ctx, "sess-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Title != "anatomy" || len(got.Cards) != 1 {
		t.Fatalf("round trip mismatch: %#v", got)
	}
	if got.Cards[0].Labels[0].Text != "aorta" {
		t.Fatalf("label mismatch: %#v", got.Cards[0].Labels)
	}

	// Upsert: a second save replaces the row.
	d.Title = "anatomy v2"
	if err := s.SaveDiagram(ctx, "sess-1", d); err != nil {
		t.Fatalf("second save: %v", err)
	}
	got, err = s.LoadDiagram(ctx, "sess-1")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Title != "anatomy v2" {
		t.Fatalf("upsert mismatch: %q", got.Title)
	}
}

func TestPermissionDefaults(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// No rows at all: first user is treated as the owner.
	p, err := s.Permission(ctx, "sess-1", "alice")
	if err != nil || p != PermissionOwner {
		t.Fatalf("expected owner for fresh session, got %q err=%v", p, err)
	}

	if err := s.GrantPermission(ctx, "sess-1", "alice", PermissionOwner); err != nil {
		t.Fatalf("grant: %v", err)
	}
	if err := s.GrantPermission(ctx, "sess-1", "bob", PermissionEdit); err != nil {
		t.Fatalf("grant: %v", err)
	}

	if p, _ := s.Permission(ctx, "sess-1", "bob"); p != PermissionEdit {
		t.Fatalf("expected edit for bob, got %q", p)
	}
	// A user without a row on a claimed session only views.
	if p, _ := s.Permission(ctx, "sess-1", "mallory"); p != PermissionView {
		t.Fatalf("expected view for stranger, got %q", p)
	}

	if err := s.GrantPermission(ctx, "sess-1", "bob", "admin"); err == nil {
		t.Fatalf("expected unknown role to be rejected")
	}
}

func TestTagsRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	tags, err := s.Tags(ctx, "sess-1")
	if err != nil || tags != nil {
		t.Fatalf("expected no tags yet, got %#v err=%v", tags, err)
	}

	want := []string{"hvac", "draft"}
	if err := s.SetTags(ctx, "sess-1", want); err != nil {
		t.Fatalf("set tags: %v", err)
	}
	tags, err = s.Tags(ctx, "sess-1")
	if err != nil {
		t.Fatalf("tags: %v", err)
	}
	if !reflect.DeepEqual(tags, want) {
		t.Fatalf("tags mismatch: %#v", tags)
	}

	if err := s.SetTags(ctx, "sess-1", []string{"final"}); err != nil {
		t.Fatalf("replace tags: %v", err)
	}
	tags, _ = s.Tags(ctx, "sess-1")
	if !reflect.DeepEqual(tags, []string{"final"}) {
		t.Fatalf("replacement mismatch: %#v", tags)
	}
}
