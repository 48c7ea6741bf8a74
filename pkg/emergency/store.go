package emergency

import (
	"context"
	"errors"

	"github.com/lifeline-health/platform/pkg/common/models"
)

var (
	// ErrDuplicateID signals an id collision at issuance. The service
	// regenerates and retries a bounded number of times.
	ErrDuplicateID = errors.New("emergency id already exists")

	ErrNotFound = errors.New("emergency event not found")

	// ErrNotActive rejects an otherwise valid token because the event was
	// resolved or cancelled. The token TTL and the store status are
	// independent gates; this is the second one.
	ErrNotActive = errors.New("emergency event is not active")
)

// EventStore is the authoritative record of each issued token's lifecycle,
// independent of whether the token itself still decrypts. Implementations
// must serialize RecordAccess calls for the same id.
type EventStore interface {
	Insert(ctx context.Context, event models.EmergencyEvent) error
	Get(ctx context.Context, emergencyID string) (models.EmergencyEvent, error)
	RecordAccess(ctx context.Context, emergencyID, responderID string) (models.EmergencyEvent, error)
	Resolve(ctx context.Context, emergencyID string) (models.EmergencyEvent, error)
	ListActive(ctx context.Context) ([]models.EmergencyEvent, error)
	ListByUser(ctx context.Context, userID string) ([]models.EmergencyEvent, error)
}
