package emergency

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/lifeline-health/platform/pkg/common/models"
)

// InMemoryEventStore keeps lifecycle records in a mutex-guarded map. It backs
// tests and single-node demo deployments; the GORM repository is the durable
// implementation.
type InMemoryEventStore struct {
	mu     sync.RWMutex
	events map[string]*models.EmergencyEvent
}

func NewInMemoryEventStore() *InMemoryEventStore {
	return &InMemoryEventStore{events: make(map[string]*models.EmergencyEvent)}
}

func (s *InMemoryEventStore) Insert(_ context.Context, event models.EmergencyEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.events[event.EmergencyID]; exists {
		return ErrDuplicateID
	}
	stored := event
	stored.AccessedBy = append([]string{}, event.AccessedBy...)
	s.events[event.EmergencyID] = &stored
	return nil
}

func (s *InMemoryEventStore) Get(_ context.Context, emergencyID string) (models.EmergencyEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	event, ok := s.events[emergencyID]
	if !ok {
		return models.EmergencyEvent{}, ErrNotFound
	}
	return copyEvent(event), nil
}

// RecordAccess appends the responder to the access log if not already
// present. The whole read-modify-write happens under the write lock so
// concurrent responders cannot lose each other's entries.
func (s *InMemoryEventStore) RecordAccess(_ context.Context, emergencyID, responderID string) (models.EmergencyEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	event, ok := s.events[emergencyID]
	if !ok {
		return models.EmergencyEvent{}, ErrNotFound
	}
	if event.Status != models.EmergencyStatusActive {
		return models.EmergencyEvent{}, ErrNotActive
	}
	if !contains(event.AccessedBy, responderID) {
		event.AccessedBy = append(event.AccessedBy, responderID)
	}
	return copyEvent(event), nil
}

// Resolve transitions active events to resolved. Resolving an already
// resolved event is a no-op so duplicate resolve calls are tolerated;
// cancelled is terminal and rejects.
func (s *InMemoryEventStore) Resolve(_ context.Context, emergencyID string) (models.EmergencyEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	event, ok := s.events[emergencyID]
	if !ok {
		return models.EmergencyEvent{}, ErrNotFound
	}
	switch event.Status {
	case models.EmergencyStatusResolved:
		return copyEvent(event), nil
	case models.EmergencyStatusCancelled:
		return models.EmergencyEvent{}, ErrNotActive
	}
	now := time.Now()
	event.Status = models.EmergencyStatusResolved
	event.ResolvedAt = &now
	return copyEvent(event), nil
}

func (s *InMemoryEventStore) ListActive(_ context.Context) ([]models.EmergencyEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var active []models.EmergencyEvent
	for _, event := range s.events {
		if event.Status == models.EmergencyStatusActive {
			active = append(active, copyEvent(event))
		}
	}
	sort.Slice(active, func(i, j int) bool {
		return active[i].CreatedAt.After(active[j].CreatedAt)
	})
	return active, nil
}

func (s *InMemoryEventStore) ListByUser(_ context.Context, userID string) ([]models.EmergencyEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var mine []models.EmergencyEvent
	for _, event := range s.events {
		if event.UserID == userID {
			mine = append(mine, copyEvent(event))
		}
	}
	sort.Slice(mine, func(i, j int) bool {
		return mine[i].CreatedAt.After(mine[j].CreatedAt)
	})
	return mine, nil
}

func copyEvent(event *models.EmergencyEvent) models.EmergencyEvent {
	out := *event
	out.AccessedBy = append([]string{}, event.AccessedBy...)
	return out
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}
