package services

import (
	"context"
	"log/slog"

	"github.com/baharkarakas/prepaid-ledger/internal/models"
	repo "github.com/baharkarakas/prepaid-ledger/internal/repository"
)

// auditor writes security events. A failed write is logged, never returned.
type auditor struct {
	logs repo.AuditLogs
	log  *slog.Logger
}

func (a auditor) record(ctx context.Context, entityType, entityID, action string, details map[string]any) {
	if a.logs == nil {
		return
	}
	id := entityID
	err := a.logs.Create(context.WithoutCancel(ctx), models.AuditLog{
		EntityType: entityType,
		EntityID:   &id,
		Action:     action,
		Details:    details,
	})
	if err != nil {
		a.log.Warn("audit write failed", "action", action, "entity_id", entityID, "err", err)
	}
}
