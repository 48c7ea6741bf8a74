package emergency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lifeline-health/platform/pkg/common/logger"
	"github.com/lifeline-health/platform/pkg/common/models"
	"github.com/lifeline-health/platform/pkg/qrtoken"
)

const (
	eventSource = "emergency-service"

	EventTriggered = "emergency.triggered"
	EventAccessed  = "emergency.accessed"
	EventResolved  = "emergency.resolved"

	// How many fresh ids to try when the store reports a collision before
	// giving up on issuance.
	maxIssueAttempts = 3
)

// EventPublisher is satisfied by the Kafka producer. A nil publisher disables
// fan-out, which tests and minimal deployments use.
type EventPublisher interface {
	PublishEvent(ctx context.Context, eventType string, source string, data map[string]interface{}) error
}

// Service orchestrates the token codec and the lifecycle store. A token is
// honored only when both its own TTL and the store status pass.
type Service struct {
	codec     *qrtoken.Codec
	store     EventStore
	cache     *StatusCache
	publisher EventPublisher
	tokenTTL  time.Duration
}

func NewService(codec *qrtoken.Codec, store EventStore, tokenTTL time.Duration, cache *StatusCache, publisher EventPublisher) *Service {
	if tokenTTL <= 0 {
		tokenTTL = qrtoken.DefaultTTL
	}
	return &Service{
		codec:     codec,
		store:     store,
		cache:     cache,
		publisher: publisher,
		tokenTTL:  tokenTTL,
	}
}

type TriggerResult struct {
	Event models.EmergencyEvent
	Token qrtoken.IssueResult
}

// Trigger issues a token for the patient's current medical summary and
// records the active lifecycle entry. Id collisions trigger regeneration, a
// bounded number of times.
func (s *Service) Trigger(ctx context.Context, userID string, summary models.MedicalSummary, location models.Location) (TriggerResult, error) {
	for attempt := 1; attempt <= maxIssueAttempts; attempt++ {
		token, err := s.codec.Issue(userID, summary, location, s.tokenTTL)
		if err != nil {
			return TriggerResult{}, err
		}

		event := models.EmergencyEvent{
			EmergencyID: token.EmergencyID,
			UserID:      userID,
			Status:      models.EmergencyStatusActive,
			Location:    location,
			AccessedBy:  []string{},
			QRData:      token.QRData,
			CreatedAt:   token.IssuedAt,
		}

		err = s.store.Insert(ctx, event)
		if errors.Is(err, ErrDuplicateID) {
			logger.Log.WithField("emergency_id", token.EmergencyID).
				Warn("emergency id collision, regenerating")
			continue
		}
		if err != nil {
			return TriggerResult{}, err
		}

		s.cacheStatus(ctx, event.EmergencyID, event.Status)
		s.publish(ctx, EventTriggered, map[string]interface{}{
			"emergency_id": event.EmergencyID,
			"user_id":      userID,
			"location":     location,
			"expires_at":   token.ExpiresAt,
		})

		return TriggerResult{Event: event, Token: token}, nil
	}
	return TriggerResult{}, fmt.Errorf("failed to allocate a unique emergency id after %d attempts", maxIssueAttempts)
}

// Scan decrypts the token, then applies the store gate. The emergency id is
// taken from the decrypted payload, not the frame: the frame id travels
// outside the authenticated ciphertext.
func (s *Service) Scan(ctx context.Context, raw, responderID string) (map[string]interface{}, models.EmergencyEvent, error) {
	payload, err := s.codec.Scan(raw)
	if err != nil {
		return nil, models.EmergencyEvent{}, err
	}

	emergencyID, ok := payload["emergency_id"].(string)
	if !ok || emergencyID == "" {
		return nil, models.EmergencyEvent{}, qrtoken.ErrInvalidToken
	}

	event, err := s.store.RecordAccess(ctx, emergencyID, responderID)
	if err != nil {
		return nil, models.EmergencyEvent{}, err
	}

	s.publish(ctx, EventAccessed, map[string]interface{}{
		"emergency_id": emergencyID,
		"responder_id": responderID,
	})

	return payload, event, nil
}

func (s *Service) Resolve(ctx context.Context, emergencyID string) (models.EmergencyEvent, error) {
	event, err := s.store.Resolve(ctx, emergencyID)
	if err != nil {
		return models.EmergencyEvent{}, err
	}

	s.cacheStatus(ctx, emergencyID, event.Status)
	s.publish(ctx, EventResolved, map[string]interface{}{
		"emergency_id": emergencyID,
	})

	return event, nil
}

func (s *Service) Get(ctx context.Context, emergencyID string) (models.EmergencyEvent, error) {
	return s.store.Get(ctx, emergencyID)
}

// Status serves dashboard polling from the cache when possible.
func (s *Service) Status(ctx context.Context, emergencyID string) (string, error) {
	if s.cache != nil {
		status, found, err := s.cache.Get(ctx, emergencyID)
		if err != nil {
			logger.Log.WithError(err).Debug("status cache unavailable")
		}
		if found {
			return status, nil
		}
	}

	event, err := s.store.Get(ctx, emergencyID)
	if err != nil {
		return "", err
	}
	s.cacheStatus(ctx, emergencyID, event.Status)
	return event.Status, nil
}

func (s *Service) AccessLog(ctx context.Context, emergencyID string) ([]string, error) {
	event, err := s.store.Get(ctx, emergencyID)
	if err != nil {
		return nil, err
	}
	return event.AccessedBy, nil
}

func (s *Service) ListActive(ctx context.Context) ([]models.EmergencyEvent, error) {
	return s.store.ListActive(ctx)
}

func (s *Service) ListByUser(ctx context.Context, userID string) ([]models.EmergencyEvent, error) {
	return s.store.ListByUser(ctx, userID)
}

func (s *Service) cacheStatus(ctx context.Context, emergencyID, status string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, emergencyID, status); err != nil {
		logger.Log.WithError(err).WithField("emergency_id", emergencyID).
			Warn("failed to cache emergency status")
	}
}

func (s *Service) publish(ctx context.Context, eventType string, data map[string]interface{}) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishEvent(ctx, eventType, eventSource, data); err != nil {
		logger.Log.WithError(err).WithField("event_type", eventType).
			Warn("failed to publish lifecycle event")
	}
}
