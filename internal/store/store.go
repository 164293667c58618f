// Package store holds the persistence collaborators for the editor: the
// session-keyed document store, permission and tag queries, and the
// debounced autosaver that bridges editor mutations to the store.
package store

import (
	"context"

	"labelboard/pkg/diagram"
)

type Permission string

const (
	PermissionOwner Permission = "owner"
	PermissionEdit  Permission = "edit"
	PermissionView  Permission = "view"
)

// Store is the external persistence boundary. LoadDiagram returns a nil
// diagram (and nil error) for a session that has never been saved.
type Store interface {
	LoadDiagram(ctx context.Context, sessionID string) (*diagram.Diagram, error)
	SaveDiagram(ctx context.Context, sessionID string, d *diagram.Diagram) error

	Permission(ctx context.Context, sessionID, userID string) (Permission, error)
	GrantPermission(ctx context.Context, sessionID, userID string, p Permission) error

	Tags(ctx context.Context, sessionID string) ([]string, error)
	SetTags(ctx context.Context, sessionID string, tags []string) error

	Close() error
}
