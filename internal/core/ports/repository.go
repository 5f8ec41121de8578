package ports

import (
	"context"

	"github.com/cyberpaas/tenantdock/internal/core/domain"
)

// RecordRepository persists tenant container records. Lookups by container id
// return domain.ErrRecordNotFound when no row exists.
type RecordRepository interface {
	// CreatePair inserts the application and database records of one
	// provisioning cycle in a single transaction: both rows or neither.
	CreatePair(ctx context.Context, app, db *domain.ContainerRecord) error
	GetByContainerID(ctx context.Context, containerID string) (*domain.ContainerRecord, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.ContainerRecord, error)
	ListAll(ctx context.Context) ([]domain.ContainerRecord, error)
	UpdateStatus(ctx context.Context, containerID string, status domain.Status) error
	Delete(ctx context.Context, containerID string) error
}
