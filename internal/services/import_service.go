package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"

	"cashplan/internal/core"
	"cashplan/internal/importer"
	"cashplan/internal/log"
	"cashplan/internal/matching"
	"cashplan/internal/store"

	"github.com/google/uuid"
)

// ImportConfig holds configuration for the import service
type ImportConfig struct {
	// MaxFileBytes caps the size of an uploaded statement (default: 10 MiB)
	MaxFileBytes int64

	// Matching tunes the reconciliation thresholds
	Matching matching.Options
}

// DefaultImportConfig returns sensible defaults
func DefaultImportConfig() ImportConfig {
	return ImportConfig{
		MaxFileBytes: 10 << 20,
		Matching:     matching.DefaultOptions(),
	}
}

// ImportService turns bank statements into reviewed actuals.
type ImportService struct {
	store   store.Store
	matcher *matching.Matcher
	config  ImportConfig
	logger  *log.Logger
	newID   func() string
}

func NewImportService(st store.Store, config ImportConfig, logger *log.Logger) *ImportService {
	if config.MaxFileBytes <= 0 {
		config.MaxFileBytes = DefaultImportConfig().MaxFileBytes
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &ImportService{
		store:   st,
		matcher: matching.NewMatcher(config.Matching),
		config:  config,
		logger:  logger.WithComponent(log.ComponentImport),
		newID:   uuid.NewString,
	}
}

// Preview is a reconciled statement awaiting confirmation.
type Preview struct {
	WorkspaceID string                       `json:"workspaceId"`
	DateFormat  string                       `json:"dateFormat"`
	Matches     []matching.MatchResult       `json:"matches"`
	Duplicates  []core.ImportedRow           `json:"duplicates"`
	Errors      []importer.RowError          `json:"errors"`
	Summary     map[core.MatchConfidence]int `json:"summary"`
}

// Preview parses a statement, drops rows that were already imported and
// reconciles the rest against the workspace's line items. Nothing is
// persisted.
func (s *ImportService) Preview(ctx context.Context, workspaceID, filename string, r io.Reader) (Preview, error) {
	if _, err := s.store.GetWorkspace(ctx, workspaceID); err != nil {
		return Preview{}, err
	}

	table, err := importer.Read(r, filename, s.config.MaxFileBytes)
	if err != nil {
		return Preview{}, fmt.Errorf("read %s: %w", filename, err)
	}
	built, err := importer.BuildRows(table, importer.Options{})
	if err != nil {
		return Preview{}, fmt.Errorf("parse %s: %w", filename, err)
	}

	existing, err := s.store.ListActuals(ctx, workspaceID)
	if err != nil {
		return Preview{}, err
	}
	items, err := s.store.ListLineItems(ctx, workspaceID)
	if err != nil {
		return Preview{}, err
	}

	fresh := make([]core.ImportedRow, 0, len(built.Rows))
	var dupes []core.ImportedRow
	for _, row := range built.Rows {
		if matching.IsDuplicate(row, existing) {
			dupes = append(dupes, row)
			continue
		}
		fresh = append(fresh, row)
	}

	matches := s.matcher.Reconcile(fresh, items)
	p := Preview{
		WorkspaceID: workspaceID,
		DateFormat:  built.DateFormat,
		Matches:     matches,
		Duplicates:  dupes,
		Errors:      built.Errors,
		Summary:     matching.Summary(matches),
	}

	s.logger.InfoContext(ctx, "Statement previewed", log.NewFields().
		WithOperation(log.OpPreview).
		WithWorkspace(workspaceID).
		With(log.FieldFile, filename).
		With(log.FieldRows, len(built.Rows)).
		With(log.FieldRowErrors, len(built.Errors)).
		With(log.FieldDuplicates, len(dupes)).
		With(log.FieldDateFormat, built.DateFormat).
		WithConfidence(p.Summary).
		ToSlice()...)
	return p, nil
}

// ConfirmResult reports what Confirm persisted.
type ConfirmResult struct {
	Saved   []core.Actual `json:"saved"`
	Skipped int           `json:"skipped"`
}

// Confirm persists every approved match as an Actual. Unapproved results are
// skipped. The insert is all-or-nothing.
func (s *ImportService) Confirm(ctx context.Context, workspaceID string, matches []matching.MatchResult) (ConfirmResult, error) {
	var res ConfirmResult
	for _, m := range matches {
		if !m.Approved {
			res.Skipped++
			continue
		}
		res.Saved = append(res.Saved, s.toActual(workspaceID, m))
	}
	if len(res.Saved) == 0 {
		return res, nil
	}
	logger := s.logger.WithFields(log.NewFields().
		WithOperation(log.OpConfirm).
		WithWorkspace(workspaceID))
	if err := s.store.AddActuals(ctx, res.Saved); err != nil {
		logger.ErrorContext(ctx, "Failed to save actuals", log.FieldError, err)
		return ConfirmResult{}, fmt.Errorf("save actuals: %w", err)
	}
	logger.InfoContext(ctx, "Actuals saved", "saved", len(res.Saved), "skipped", res.Skipped)
	return res, nil
}

func (s *ImportService) toActual(workspaceID string, m matching.MatchResult) core.Actual {
	a := core.Actual{
		ID:              s.newID(),
		WorkspaceID:     workspaceID,
		Date:            m.Row.Date,
		Amount:          m.Row.Amount,
		Tags:            slices.Clone(m.Row.Tags),
		Description:     m.Row.Description,
		OriginalRow:     m.Row.OriginalRow,
		MatchConfidence: m.Confidence,
		Approved:        true,
	}
	if m.LineItem != nil {
		id := m.LineItem.ID
		a.LineItemID = &id
	} else {
		a.MatchConfidence = core.ConfidenceUnmatched
	}
	if a.Tags == nil {
		a.Tags = []string{}
	}
	return a
}

// ErrForeignLineItem is returned when an actual is reassigned to a line item
// of another workspace.
var ErrForeignLineItem = errors.New("line item belongs to another workspace")

// Reassign links an actual to a line item by hand, or unlinks it when
// lineItemID is empty. The result is always approved.
func (s *ImportService) Reassign(ctx context.Context, actualID, lineItemID string) (core.Actual, error) {
	a, err := s.store.GetActual(ctx, actualID)
	if err != nil {
		return core.Actual{}, err
	}

	if lineItemID == "" {
		a.LineItemID = nil
		a.MatchConfidence = core.ConfidenceUnmatched
	} else {
		items, err := s.store.ListLineItems(ctx, a.WorkspaceID)
		if err != nil {
			return core.Actual{}, err
		}
		if !slices.ContainsFunc(items, func(li core.LineItem) bool { return li.ID == lineItemID }) {
			if _, err := s.store.GetLineItem(ctx, lineItemID); err != nil {
				return core.Actual{}, err
			}
			return core.Actual{}, fmt.Errorf("line item %s: %w", lineItemID, ErrForeignLineItem)
		}
		id := lineItemID
		a.LineItemID = &id
		a.MatchConfidence = core.ConfidenceManual
	}
	a.Approved = true

	if err := s.store.UpdateActual(ctx, a); err != nil {
		return core.Actual{}, fmt.Errorf("update actual: %w", err)
	}
	s.logger.InfoContext(ctx, "Actual reassigned",
		log.FieldOperation, log.OpReassign,
		log.FieldActualID, actualID,
		log.FieldLineItemID, lineItemID)
	return a, nil
}
