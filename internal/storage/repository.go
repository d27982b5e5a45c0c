package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"cashplan/internal/core"
	"cashplan/internal/store"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

var _ store.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time keeps transactions from racing into SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	slog.Debug("SQLite schema ready", "path", dbPath, "version", version)

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) SaveWorkspace(ctx context.Context, ws core.Workspace) error {
	if err := ws.Validate(); err != nil {
		return err
	}
	if err := r.queries.UpsertWorkspace(ctx, ws); err != nil {
		return fmt.Errorf("save workspace %s: %w", ws.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) GetWorkspace(ctx context.Context, id string) (core.Workspace, error) {
	ws, err := r.queries.GetWorkspace(ctx, id)
	if err != nil {
		return core.Workspace{}, notFound("workspace", id, err)
	}
	return ws, nil
}

func (r *SQLiteRepository) ListWorkspaces(ctx context.Context) ([]core.Workspace, error) {
	list, err := r.queries.ListWorkspaces(ctx)
	if err != nil {
		return nil, fmt.Errorf("list workspaces: %w", err)
	}
	return list, nil
}

func (r *SQLiteRepository) SaveLineItem(ctx context.Context, workspaceID string, li core.LineItem) error {
	if err := li.Validate(); err != nil {
		return err
	}
	ok, err := r.queries.WorkspaceExists(ctx, workspaceID)
	if err != nil {
		return fmt.Errorf("check workspace: %w", err)
	}
	if !ok {
		return fmt.Errorf("workspace %s: %w", workspaceID, store.ErrNotFound)
	}
	written, err := r.queries.UpsertLineItem(ctx, workspaceID, li)
	if err != nil {
		return fmt.Errorf("save line item %s: %w", li.ID, err)
	}
	if !written {
		return fmt.Errorf("line item %s: %w in another workspace", li.ID, store.ErrConflict)
	}
	return nil
}

func (r *SQLiteRepository) GetLineItem(ctx context.Context, id string) (core.LineItem, error) {
	li, err := r.queries.GetLineItem(ctx, id)
	if err != nil {
		return core.LineItem{}, notFound("line item", id, err)
	}
	return li, nil
}

func (r *SQLiteRepository) ListLineItems(ctx context.Context, workspaceID string) ([]core.LineItem, error) {
	list, err := r.queries.ListLineItems(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list line items: %w", err)
	}
	return list, nil
}

// DeleteLineItem removes the item and clears every actual that referenced it
// in a single transaction.
func (r *SQLiteRepository) DeleteLineItem(ctx context.Context, id string) (int, error) {
	var cleared int64
	err := r.inTx(ctx, func(q *Queries) error {
		n, err := q.DeleteLineItem(ctx, id)
		if err != nil {
			return fmt.Errorf("delete line item: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("line item %s: %w", id, store.ErrNotFound)
		}
		cleared, err = q.ClearLineItemRefs(ctx, id)
		if err != nil {
			return fmt.Errorf("clear actual references: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	slog.DebugContext(ctx, "Line item deleted", "line_item_id", id, "cleared", cleared)
	return int(cleared), nil
}

func (r *SQLiteRepository) AddActuals(ctx context.Context, actuals []core.Actual) error {
	for _, a := range actuals {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("actual %s: %w", a.ID, err)
		}
	}
	return r.inTx(ctx, func(q *Queries) error {
		checked := map[string]bool{}
		seen := map[string]bool{}
		for _, a := range actuals {
			if !checked[a.WorkspaceID] {
				ok, err := q.WorkspaceExists(ctx, a.WorkspaceID)
				if err != nil {
					return fmt.Errorf("check workspace: %w", err)
				}
				if !ok {
					return fmt.Errorf("workspace %s: %w", a.WorkspaceID, store.ErrNotFound)
				}
				checked[a.WorkspaceID] = true
			}
			if seen[a.ID] {
				return fmt.Errorf("actual %s: %w", a.ID, store.ErrConflict)
			}
			seen[a.ID] = true
			if _, err := q.GetActual(ctx, a.ID); err == nil {
				return fmt.Errorf("actual %s: %w", a.ID, store.ErrConflict)
			} else if !errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("check actual %s: %w", a.ID, err)
			}
			if err := q.InsertActual(ctx, a); err != nil {
				return fmt.Errorf("insert actual %s: %w", a.ID, err)
			}
		}
		return nil
	})
}

func (r *SQLiteRepository) GetActual(ctx context.Context, id string) (core.Actual, error) {
	a, err := r.queries.GetActual(ctx, id)
	if err != nil {
		return core.Actual{}, notFound("actual", id, err)
	}
	return a, nil
}

func (r *SQLiteRepository) ListActuals(ctx context.Context, workspaceID string) ([]core.Actual, error) {
	list, err := r.queries.ListActuals(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list actuals: %w", err)
	}
	return list, nil
}

func (r *SQLiteRepository) UpdateActual(ctx context.Context, a core.Actual) error {
	if err := a.Validate(); err != nil {
		return err
	}
	n, err := r.queries.UpdateActual(ctx, a)
	if err != nil {
		return fmt.Errorf("update actual %s: %w", a.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("actual %s: %w", a.ID, store.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) inTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(r.queries.WithTx(tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func notFound(kind, id string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", kind, id, store.ErrNotFound)
	}
	return fmt.Errorf("get %s %s: %w", kind, id, err)
}
