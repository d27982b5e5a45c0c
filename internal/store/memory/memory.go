// Package memory is an in-process Store guarded by a single mutex.
package memory

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"cashplan/internal/core"
	"cashplan/internal/store"
	"cashplan/internal/workspace"
)

type lineItemRow struct {
	workspaceID string
	item        core.LineItem
}

type Store struct {
	mu         sync.Mutex
	workspaces []core.Workspace
	lineItems  []lineItemRow
	actuals    []core.Actual
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{}
}

func (s *Store) Close() error { return nil }

// SaveWorkspace inserts or replaces a workspace.
func (s *Store) SaveWorkspace(_ context.Context, ws core.Workspace) error {
	if err := ws.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.workspaces {
		if s.workspaces[i].ID == ws.ID {
			s.workspaces[i] = ws
			return nil
		}
	}
	s.workspaces = append(s.workspaces, ws)
	return nil
}

func (s *Store) GetWorkspace(_ context.Context, id string) (core.Workspace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ws := range s.workspaces {
		if ws.ID == id {
			return ws, nil
		}
	}
	return core.Workspace{}, fmt.Errorf("workspace %s: %w", id, store.ErrNotFound)
}

func (s *Store) ListWorkspaces(_ context.Context) ([]core.Workspace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.workspaces), nil
}

// SaveLineItem inserts or replaces a line item. The workspace must exist.
func (s *Store) SaveLineItem(_ context.Context, workspaceID string, li core.LineItem) error {
	if err := li.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasWorkspace(workspaceID) {
		return fmt.Errorf("workspace %s: %w", workspaceID, store.ErrNotFound)
	}
	li.Tags = slices.Clone(li.Tags)
	for i := range s.lineItems {
		if s.lineItems[i].item.ID == li.ID {
			if s.lineItems[i].workspaceID != workspaceID {
				return fmt.Errorf("line item %s: %w in another workspace", li.ID, store.ErrConflict)
			}
			s.lineItems[i].item = li
			return nil
		}
	}
	s.lineItems = append(s.lineItems, lineItemRow{workspaceID: workspaceID, item: li})
	return nil
}

func (s *Store) GetLineItem(_ context.Context, id string) (core.LineItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.lineItems {
		if row.item.ID == id {
			return row.item, nil
		}
	}
	return core.LineItem{}, fmt.Errorf("line item %s: %w", id, store.ErrNotFound)
}

func (s *Store) ListLineItems(_ context.Context, workspaceID string) ([]core.LineItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []core.LineItem{}
	for _, row := range s.lineItems {
		if row.workspaceID == workspaceID {
			out = append(out, row.item)
		}
	}
	return out, nil
}

// DeleteLineItem holds the lock across the delete and the reference clear.
func (s *Store) DeleteLineItem(_ context.Context, id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := slices.IndexFunc(s.lineItems, func(r lineItemRow) bool { return r.item.ID == id })
	if idx < 0 {
		return 0, fmt.Errorf("line item %s: %w", id, store.ErrNotFound)
	}
	s.lineItems = slices.Delete(s.lineItems, idx, idx+1)

	cleared := 0
	for i := range s.actuals {
		if s.actuals[i].LineItemID != nil && *s.actuals[i].LineItemID == id {
			s.actuals[i].LineItemID = nil
			s.actuals[i].MatchConfidence = core.ConfidenceUnmatched
			cleared++
		}
	}
	return cleared, nil
}

// AddActuals validates every actual before inserting any.
func (s *Store) AddActuals(_ context.Context, actuals []core.Actual) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := map[string]bool{}
	for _, a := range actuals {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("actual %s: %w", a.ID, err)
		}
		if !s.hasWorkspace(a.WorkspaceID) {
			return fmt.Errorf("workspace %s: %w", a.WorkspaceID, store.ErrNotFound)
		}
		if seen[a.ID] || s.actualIndex(a.ID) >= 0 {
			return fmt.Errorf("actual %s: %w", a.ID, store.ErrConflict)
		}
		seen[a.ID] = true
	}
	for _, a := range actuals {
		s.actuals = append(s.actuals, cloneActual(a))
	}
	return nil
}

func (s *Store) GetActual(_ context.Context, id string) (core.Actual, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.actualIndex(id)
	if i < 0 {
		return core.Actual{}, fmt.Errorf("actual %s: %w", id, store.ErrNotFound)
	}
	return cloneActual(s.actuals[i]), nil
}

func (s *Store) ListActuals(_ context.Context, workspaceID string) ([]core.Actual, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []core.Actual{}
	for _, a := range s.actuals {
		if a.WorkspaceID == workspaceID {
			out = append(out, cloneActual(a))
		}
	}
	return out, nil
}

func (s *Store) UpdateActual(_ context.Context, a core.Actual) error {
	if err := a.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.actualIndex(a.ID)
	if i < 0 {
		return fmt.Errorf("actual %s: %w", a.ID, store.ErrNotFound)
	}
	s.actuals[i] = cloneActual(a)
	return nil
}

func (s *Store) hasWorkspace(id string) bool {
	for _, ws := range s.workspaces {
		if ws.ID == id {
			return true
		}
	}
	return false
}

func (s *Store) actualIndex(id string) int {
	return slices.IndexFunc(s.actuals, func(a core.Actual) bool { return a.ID == id })
}

// cloneActual copies the reference fields so callers cannot mutate stored state.
func cloneActual(a core.Actual) core.Actual {
	if a.LineItemID != nil {
		id := *a.LineItemID
		a.LineItemID = &id
	}
	a.Tags = slices.Clone(a.Tags)
	if a.OriginalRow != nil {
		row := make(map[string]string, len(a.OriginalRow))
		for k, v := range a.OriginalRow {
			row[k] = v
		}
		a.OriginalRow = row
	}
	return a
}

// NewFromFiles seeds a store from every workspace document (.json, .yaml,
// .yml) in base. A missing directory yields an empty store.
func NewFromFiles(base string) (*Store, error) {
	s := New()
	entries, err := os.ReadDir(base)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read seed directory: %w", err)
	}

	ctx := context.Background()
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || (ext != ".json" && ext != ".yaml" && ext != ".yml") {
			continue
		}
		path := filepath.Join(base, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		doc, err := workspace.Decode(data, workspace.FormatFromFilename(path))
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		if err := s.load(ctx, doc); err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}
	return s, nil
}

func (s *Store) load(ctx context.Context, doc workspace.Document) error {
	if err := s.SaveWorkspace(ctx, doc.Workspace); err != nil {
		return err
	}
	for _, li := range doc.LineItems {
		if err := s.SaveLineItem(ctx, doc.Workspace.ID, li); err != nil {
			return err
		}
	}
	return s.AddActuals(ctx, doc.Actuals)
}
