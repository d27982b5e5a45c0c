package services

import (
	"context"
	"errors"
	"fmt"

	"cashplan/internal/core"
	"cashplan/internal/log"
	"cashplan/internal/store"
	"cashplan/internal/workspace"
)

// WorkspaceService moves whole workspaces between documents and the store.
type WorkspaceService struct {
	store  store.Store
	logger *log.Logger
}

func NewWorkspaceService(st store.Store, logger *log.Logger) *WorkspaceService {
	if logger == nil {
		logger = log.Discard()
	}
	return &WorkspaceService{store: st, logger: logger.WithComponent(log.ComponentWorkspaces)}
}

// LoadResult reports what Load wrote.
type LoadResult struct {
	Workspace       core.Workspace
	LineItems       int
	ActualsAdded    int
	ActualsExisting int
}

// Load decodes a workspace document of either version and upserts its
// contents. Actuals whose IDs are already stored are left untouched, so
// loading the same document twice is harmless.
func (s *WorkspaceService) Load(ctx context.Context, data []byte, format workspace.Format) (LoadResult, error) {
	doc, err := workspace.Decode(data, format)
	if err != nil {
		return LoadResult{}, fmt.Errorf("decode workspace: %w", err)
	}

	if err := s.store.SaveWorkspace(ctx, doc.Workspace); err != nil {
		return LoadResult{}, err
	}
	for _, li := range doc.LineItems {
		if err := s.store.SaveLineItem(ctx, doc.Workspace.ID, li); err != nil {
			return LoadResult{}, err
		}
	}

	res := LoadResult{Workspace: doc.Workspace, LineItems: len(doc.LineItems)}
	fresh := make([]core.Actual, 0, len(doc.Actuals))
	for _, a := range doc.Actuals {
		_, err := s.store.GetActual(ctx, a.ID)
		switch {
		case err == nil:
			res.ActualsExisting++
		case errors.Is(err, store.ErrNotFound):
			fresh = append(fresh, a)
		default:
			return LoadResult{}, err
		}
	}
	if len(fresh) > 0 {
		if err := s.store.AddActuals(ctx, fresh); err != nil {
			return LoadResult{}, err
		}
	}
	res.ActualsAdded = len(fresh)

	s.logger.InfoContext(ctx, "Workspace loaded",
		log.FieldOperation, log.OpLoad,
		log.FieldWorkspaceID, doc.Workspace.ID,
		"version", doc.Version,
		"line_items", res.LineItems,
		"actuals_added", res.ActualsAdded,
		"actuals_existing", res.ActualsExisting)
	return res, nil
}

// Export encodes a stored workspace as a current-version document.
func (s *WorkspaceService) Export(ctx context.Context, workspaceID string, format workspace.Format) ([]byte, error) {
	ws, err := s.store.GetWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	items, err := s.store.ListLineItems(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	actuals, err := s.store.ListActuals(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	data, err := workspace.Encode(workspace.New(ws, items, actuals), format)
	if err != nil {
		return nil, fmt.Errorf("encode workspace: %w", err)
	}
	return data, nil
}
