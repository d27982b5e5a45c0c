// Package store defines the persistence ports used by the services.
//
// Implementations own transactional boundaries: deleting a line item and
// clearing the actuals that referenced it happen atomically, so no engine
// call ever sees a half-applied delete.
package store

import (
	"context"
	"errors"

	"cashplan/internal/core"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
)

// Ports for outbound adapters.
type (
	WorkspaceStore interface {
		SaveWorkspace(ctx context.Context, ws core.Workspace) error
		GetWorkspace(ctx context.Context, id string) (core.Workspace, error)
		ListWorkspaces(ctx context.Context) ([]core.Workspace, error)
	}

	LineItemStore interface {
		SaveLineItem(ctx context.Context, workspaceID string, li core.LineItem) error
		GetLineItem(ctx context.Context, id string) (core.LineItem, error)
		ListLineItems(ctx context.Context, workspaceID string) ([]core.LineItem, error)
		// DeleteLineItem removes the item and sets LineItemID to nil on
		// every actual that referenced it, in one transaction.
		DeleteLineItem(ctx context.Context, id string) (cleared int, err error)
	}

	ActualStore interface {
		// AddActuals inserts all actuals or none.
		AddActuals(ctx context.Context, actuals []core.Actual) error
		GetActual(ctx context.Context, id string) (core.Actual, error)
		ListActuals(ctx context.Context, workspaceID string) ([]core.Actual, error)
		UpdateActual(ctx context.Context, a core.Actual) error
	}

	// Store is the full persistence surface.
	Store interface {
		WorkspaceStore
		LineItemStore
		ActualStore
		Close() error
	}
)
