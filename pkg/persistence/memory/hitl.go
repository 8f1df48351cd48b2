package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/relaycrm/relay/pkg/models"
	"github.com/relaycrm/relay/pkg/persistence"
)

type HITLRepository struct {
	mu            sync.RWMutex
	notifications map[string]*models.HITLNotification
}

func newHITLRepository() *HITLRepository {
	return &HITLRepository{notifications: make(map[string]*models.HITLNotification)}
}

func cloneNotification(notification *models.HITLNotification) *models.HITLNotification {
	clone := *notification

	return &clone
}

func (r *HITLRepository) Save(_ context.Context, notification *models.HITLNotification) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.notifications[notification.ID] = cloneNotification(notification)

	return nil
}

func (r *HITLRepository) GetByID(_ context.Context, id string) (*models.HITLNotification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	notification, ok := r.notifications[id]
	if !ok {
		return nil, persistence.ErrNotificationNotFound
	}

	return cloneNotification(notification), nil
}

// ClaimResolution records a decision under the repository lock; only the
// first caller on an unresolved notification wins.
func (r *HITLRepository) ClaimResolution(_ context.Context, id string, resolution models.HITLResolution, approverID, note string, resolvedAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	notification, ok := r.notifications[id]
	if !ok {
		return false, persistence.ErrNotificationNotFound
	}

	if !notification.Open() {
		return false, nil
	}

	notification.ResolvedAt = &resolvedAt
	notification.Resolution = resolution
	notification.ApproverID = approverID
	notification.Note = note

	return true, nil
}

func (r *HITLRepository) OpenByExecution(_ context.Context, executionID string) (*models.HITLNotification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, notification := range r.notifications {
		if notification.ExecutionID == executionID && notification.Open() {
			return cloneNotification(notification), nil
		}
	}

	return nil, persistence.ErrNotificationNotFound
}

func (r *HITLRepository) ListOpenByTenant(_ context.Context, tenantID string) ([]*models.HITLNotification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*models.HITLNotification, 0)

	for _, notification := range r.notifications {
		if notification.TenantID == tenantID && notification.Open() {
			result = append(result, cloneNotification(notification))
		}
	}

	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })

	return result, nil
}
