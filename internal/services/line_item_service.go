package services

import (
	"context"
	"fmt"

	"cashplan/internal/core"
	"cashplan/internal/log"
	"cashplan/internal/store"

	"github.com/google/uuid"
)

// LineItemService manages a workspace's planned lines.
type LineItemService struct {
	store  store.Store
	logger *log.Logger
}

func NewLineItemService(st store.Store, logger *log.Logger) *LineItemService {
	if logger == nil {
		logger = log.Discard()
	}
	return &LineItemService{store: st, logger: logger.WithComponent(log.ComponentLineItems)}
}

// Save creates or replaces li under workspaceID, assigning an ID when it has
// none.
func (s *LineItemService) Save(ctx context.Context, workspaceID string, li core.LineItem) (core.LineItem, error) {
	created := li.ID == ""
	if created {
		li.ID = uuid.NewString()
	}
	if li.Tags == nil {
		li.Tags = []string{}
	}
	logger := s.logger.WithFields(log.NewFields().
		WithOperation(log.OpSave).
		WithWorkspace(workspaceID).
		With(log.FieldLineItemID, li.ID))
	if err := s.store.SaveLineItem(ctx, workspaceID, li); err != nil {
		logger.WarnContext(ctx, "Line item rejected", log.FieldError, err)
		return core.LineItem{}, fmt.Errorf("save line item: %w", err)
	}
	logger.InfoContext(ctx, "Line item saved", "created", created)
	return li, nil
}

// Delete removes a line item. Actuals that referenced it stay, unlinked.
func (s *LineItemService) Delete(ctx context.Context, id string) (int, error) {
	cleared, err := s.store.DeleteLineItem(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("delete line item: %w", err)
	}
	s.logger.InfoContext(ctx, "Line item deleted",
		log.FieldOperation, log.OpDelete,
		log.FieldLineItemID, id,
		"cleared_actuals", cleared)
	return cleared, nil
}
