package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/lifeline-health/platform/pkg/common/logger"
	"github.com/lifeline-health/platform/pkg/common/models"
	"github.com/redis/go-redis/v9"
)

// Notifier turns lifecycle events from the bus into dispatched alerts. Redis
// suppresses repeat alerts for the same emergency within the dedupe window;
// without Redis every event alerts.
type Notifier struct {
	rules        RulesConfig
	redisClient  *redis.Client
	dedupeWindow time.Duration
}

func NewNotifier(rules RulesConfig, redisClient *redis.Client, dedupeWindow time.Duration) *Notifier {
	return &Notifier{
		rules:        rules,
		redisClient:  redisClient,
		dedupeWindow: dedupeWindow,
	}
}

// Handle implements the Kafka consumer's EventHandler.
func (n *Notifier) Handle(ctx context.Context, event models.Event) error {
	rule, ok := n.rules.ruleFor(event.Type)
	if !ok {
		logger.Log.WithField("event_type", event.Type).Debug("no alert rule for event")
		return nil
	}

	emergencyID, _ := event.Data["emergency_id"].(string)
	if emergencyID == "" {
		logger.Log.WithField("event_id", event.ID).Warn("event missing emergency_id, dropping")
		return nil
	}

	fresh, err := n.markSeen(ctx, event.Type, emergencyID)
	if err != nil {
		logger.Log.WithError(err).Warn("alert dedupe unavailable, dispatching anyway")
	} else if !fresh {
		logger.Log.WithFields(map[string]interface{}{
			"event_type":   event.Type,
			"emergency_id": emergencyID,
		}).Debug("duplicate alert suppressed")
		return nil
	}

	for _, channel := range rule.Channels {
		n.dispatch(channel, rule.Severity, event, emergencyID)
	}
	return nil
}

// markSeen returns false when an alert for this event type and emergency was
// already dispatched within the window.
func (n *Notifier) markSeen(ctx context.Context, eventType, emergencyID string) (bool, error) {
	if n.redisClient == nil {
		return true, nil
	}
	key := fmt.Sprintf("alert:dedupe:%s:%s", eventType, emergencyID)
	return n.redisClient.SetNX(ctx, key, "1", n.dedupeWindow).Result()
}

func (n *Notifier) dispatch(channel, severity string, event models.Event, emergencyID string) {
	// Channel integrations (SMS gateway, pager, webhooks) terminate here for
	// now; the structured log line is the delivery record.
	logger.Log.WithFields(map[string]interface{}{
		"channel":      channel,
		"severity":     severity,
		"event_type":   event.Type,
		"emergency_id": emergencyID,
		"event_id":     event.ID,
	}).Info("alert dispatched")
}
