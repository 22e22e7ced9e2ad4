package app

import (
	"context"
	"fmt"

	"github.com/asklokesh/FireLater-sub015/pkg/logger"
)

// ExternalTarget pushes one entity change to an external system. Transient
// transport errors should wrap ErrExternalUnavailable so the sync queue's
// retry policy applies; anything wrapping ErrBadRequest is archived.
type ExternalTarget interface {
	Push(ctx context.Context, tenantSlug, entityType, entityID, operation string) error
}

// ExternalTargetFunc adapts a function to ExternalTarget.
type ExternalTargetFunc func(ctx context.Context, tenantSlug, entityType, entityID, operation string) error

// Push implements ExternalTarget.
func (f ExternalTargetFunc) Push(ctx context.Context, tenantSlug, entityType, entityID, operation string) error {
	return f(ctx, tenantSlug, entityType, entityID, operation)
}

// SyncService forwards entity changes to an external system. Implements the
// queue's sync processor contract.
type SyncService struct {
	target ExternalTarget
	logger *logger.Logger
}

// NewSyncService creates a new SyncService.
func NewSyncService(target ExternalTarget, log *logger.Logger) *SyncService {
	return &SyncService{
		target: target,
		logger: log.With("service", "sync"),
	}
}

// SyncEntity pushes one change. A nil target drops the change with a log
// line, which is the correct behavior for deployments without an external
// system configured.
func (s *SyncService) SyncEntity(ctx context.Context, tenantSlug, entityType, entityID, operation string) error {
	if s.target == nil {
		s.logger.Debug("no external target configured, dropping sync",
			"tenant", tenantSlug, "entity_type", entityType, "entity_id", entityID)
		return nil
	}

	if err := s.target.Push(ctx, tenantSlug, entityType, entityID, operation); err != nil {
		return fmt.Errorf("push %s %s for %s: %w", operation, entityID, tenantSlug, err)
	}

	s.logger.Info("entity synced",
		"tenant", tenantSlug, "entity_type", entityType, "entity_id", entityID, "op", operation)
	return nil
}
