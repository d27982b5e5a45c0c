package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"cashplan/internal/core"

	"github.com/shopspring/decimal"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

const upsertWorkspace = `
INSERT INTO workspaces (id, name, currency, period_type, start_date, end_date, mode, starting_balance, total_budget)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    name = excluded.name,
    currency = excluded.currency,
    period_type = excluded.period_type,
    start_date = excluded.start_date,
    end_date = excluded.end_date,
    mode = excluded.mode,
    starting_balance = excluded.starting_balance,
    total_budget = excluded.total_budget`

func (q *Queries) UpsertWorkspace(ctx context.Context, ws core.Workspace) error {
	_, err := q.db.ExecContext(ctx, upsertWorkspace,
		ws.ID, ws.Name, ws.Currency, string(ws.PeriodType),
		nullDate(ws.StartDate), nullDate(ws.EndDate), string(ws.Mode),
		ws.StartingBalance.String(), ws.TotalBudget.String(),
	)
	return err
}

const selectWorkspace = `
SELECT id, name, currency, period_type, start_date, end_date, mode, starting_balance, total_budget
FROM workspaces`

func (q *Queries) GetWorkspace(ctx context.Context, id string) (core.Workspace, error) {
	return scanWorkspace(q.db.QueryRowContext(ctx, selectWorkspace+` WHERE id = ?`, id))
}

func (q *Queries) ListWorkspaces(ctx context.Context) ([]core.Workspace, error) {
	rows, err := q.db.QueryContext(ctx, selectWorkspace+` ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []core.Workspace{}
	for rows.Next() {
		ws, err := scanWorkspace(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ws)
	}
	return out, rows.Err()
}

const upsertLineItem = `
INSERT INTO line_items (id, workspace_id, description, tags, amount, frequency, type, start_date, end_date)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    description = excluded.description,
    tags = excluded.tags,
    amount = excluded.amount,
    frequency = excluded.frequency,
    type = excluded.type,
    start_date = excluded.start_date,
    end_date = excluded.end_date
WHERE line_items.workspace_id = excluded.workspace_id`

// UpsertLineItem reports whether a row was written. An ID owned by another
// workspace writes nothing.
func (q *Queries) UpsertLineItem(ctx context.Context, workspaceID string, li core.LineItem) (bool, error) {
	tags, err := json.Marshal(nonNil(li.Tags))
	if err != nil {
		return false, err
	}
	res, err := q.db.ExecContext(ctx, upsertLineItem,
		li.ID, workspaceID, li.Description, string(tags), li.Amount.String(),
		string(li.Frequency), string(li.Type), li.StartDate.String(), nullDate(li.EndDate),
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

const selectLineItem = `
SELECT id, description, tags, amount, frequency, type, start_date, end_date
FROM line_items`

func (q *Queries) GetLineItem(ctx context.Context, id string) (core.LineItem, error) {
	return scanLineItem(q.db.QueryRowContext(ctx, selectLineItem+` WHERE id = ?`, id))
}

func (q *Queries) ListLineItems(ctx context.Context, workspaceID string) ([]core.LineItem, error) {
	rows, err := q.db.QueryContext(ctx, selectLineItem+` WHERE workspace_id = ? ORDER BY rowid`, workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []core.LineItem{}
	for rows.Next() {
		li, err := scanLineItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, li)
	}
	return out, rows.Err()
}

func (q *Queries) DeleteLineItem(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM line_items WHERE id = ?`, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const clearLineItemRefs = `
UPDATE actuals SET line_item_id = NULL, match_confidence = 'unmatched'
WHERE line_item_id = ?`

func (q *Queries) ClearLineItemRefs(ctx context.Context, lineItemID string) (int64, error) {
	res, err := q.db.ExecContext(ctx, clearLineItemRefs, lineItemID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) WorkspaceExists(ctx context.Context, id string) (bool, error) {
	var n int
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM workspaces WHERE id = ?`, id).Scan(&n)
	return n > 0, err
}

const insertActual = `
INSERT INTO actuals (id, workspace_id, line_item_id, date, amount, tags, description, original_row, match_confidence, approved)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertActual(ctx context.Context, a core.Actual) error {
	tags, row, err := encodeActualJSON(a)
	if err != nil {
		return err
	}
	_, err = q.db.ExecContext(ctx, insertActual,
		a.ID, a.WorkspaceID, nullString(a.LineItemID), a.Date.String(), a.Amount.String(),
		tags, a.Description, row, string(a.MatchConfidence), a.Approved,
	)
	return err
}

const updateActual = `
UPDATE actuals SET line_item_id = ?, date = ?, amount = ?, tags = ?, description = ?,
    original_row = ?, match_confidence = ?, approved = ?
WHERE id = ?`

func (q *Queries) UpdateActual(ctx context.Context, a core.Actual) (int64, error) {
	tags, row, err := encodeActualJSON(a)
	if err != nil {
		return 0, err
	}
	res, err := q.db.ExecContext(ctx, updateActual,
		nullString(a.LineItemID), a.Date.String(), a.Amount.String(), tags, a.Description,
		row, string(a.MatchConfidence), a.Approved, a.ID,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const selectActual = `
SELECT id, workspace_id, line_item_id, date, amount, tags, description, original_row, match_confidence, approved
FROM actuals`

func (q *Queries) GetActual(ctx context.Context, id string) (core.Actual, error) {
	return scanActual(q.db.QueryRowContext(ctx, selectActual+` WHERE id = ?`, id))
}

func (q *Queries) ListActuals(ctx context.Context, workspaceID string) ([]core.Actual, error) {
	rows, err := q.db.QueryContext(ctx, selectActual+` WHERE workspace_id = ? ORDER BY date, rowid`, workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []core.Actual{}
	for rows.Next() {
		a, err := scanActual(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanWorkspace(s scanner) (core.Workspace, error) {
	var (
		ws                 core.Workspace
		periodType, mode   string
		start, end         sql.NullString
		starting, totalBud string
	)
	if err := s.Scan(&ws.ID, &ws.Name, &ws.Currency, &periodType, &start, &end, &mode, &starting, &totalBud); err != nil {
		return core.Workspace{}, err
	}
	ws.PeriodType = core.PeriodType(periodType)
	ws.Mode = core.WorkspaceMode(mode)

	var err error
	if ws.StartDate, err = parseNullDate(start); err != nil {
		return core.Workspace{}, err
	}
	if ws.EndDate, err = parseNullDate(end); err != nil {
		return core.Workspace{}, err
	}
	if ws.StartingBalance, err = decimal.NewFromString(starting); err != nil {
		return core.Workspace{}, fmt.Errorf("starting balance: %w", err)
	}
	if ws.TotalBudget, err = decimal.NewFromString(totalBud); err != nil {
		return core.Workspace{}, fmt.Errorf("total budget: %w", err)
	}
	return ws, nil
}

func scanLineItem(s scanner) (core.LineItem, error) {
	var (
		li                   core.LineItem
		tags, amount         string
		freq, typ, startDate string
		end                  sql.NullString
	)
	if err := s.Scan(&li.ID, &li.Description, &tags, &amount, &freq, &typ, &startDate, &end); err != nil {
		return core.LineItem{}, err
	}
	li.Frequency = core.Frequency(freq)
	li.Type = core.ItemType(typ)

	var err error
	if err = json.Unmarshal([]byte(tags), &li.Tags); err != nil {
		return core.LineItem{}, fmt.Errorf("tags: %w", err)
	}
	if li.Amount, err = decimal.NewFromString(amount); err != nil {
		return core.LineItem{}, fmt.Errorf("amount: %w", err)
	}
	if li.StartDate, err = core.ParseDate(startDate); err != nil {
		return core.LineItem{}, err
	}
	if li.EndDate, err = parseNullDate(end); err != nil {
		return core.LineItem{}, err
	}
	return li, nil
}

func scanActual(s scanner) (core.Actual, error) {
	var (
		a                       core.Actual
		lineItemID              sql.NullString
		date, amount, tags, row string
		confidence              string
	)
	if err := s.Scan(&a.ID, &a.WorkspaceID, &lineItemID, &date, &amount, &tags, &a.Description, &row, &confidence, &a.Approved); err != nil {
		return core.Actual{}, err
	}
	if lineItemID.Valid {
		id := lineItemID.String
		a.LineItemID = &id
	}
	a.MatchConfidence = core.MatchConfidence(confidence)

	var err error
	if a.Date, err = core.ParseDate(date); err != nil {
		return core.Actual{}, err
	}
	if a.Amount, err = decimal.NewFromString(amount); err != nil {
		return core.Actual{}, fmt.Errorf("amount: %w", err)
	}
	if err = json.Unmarshal([]byte(tags), &a.Tags); err != nil {
		return core.Actual{}, fmt.Errorf("tags: %w", err)
	}
	if err = json.Unmarshal([]byte(row), &a.OriginalRow); err != nil {
		return core.Actual{}, fmt.Errorf("original row: %w", err)
	}
	return a, nil
}

func encodeActualJSON(a core.Actual) (string, string, error) {
	tags, err := json.Marshal(nonNil(a.Tags))
	if err != nil {
		return "", "", err
	}
	row := a.OriginalRow
	if row == nil {
		row = map[string]string{}
	}
	raw, err := json.Marshal(row)
	if err != nil {
		return "", "", err
	}
	return string(tags), string(raw), nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nullDate(d *core.Date) sql.NullString {
	if d == nil || d.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func nullString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func parseNullDate(s sql.NullString) (*core.Date, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	d, err := core.ParseDate(s.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
