package emergency

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/lifeline-health/platform/pkg/common/logger"
	"github.com/lifeline-health/platform/pkg/common/models"
	"github.com/lifeline-health/platform/pkg/qrtoken"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

func newTestService(t *testing.T, store EventStore) (*Service, *qrtoken.Codec) {
	t.Helper()
	codec, err := qrtoken.New("emergency_healthcare_secret_key_2024", "emergency_salt_1234")
	if err != nil {
		t.Fatalf("failed to create codec: %v", err)
	}
	return NewService(codec, store, 2*time.Hour, nil, nil), codec
}

func testSummary() models.MedicalSummary {
	return models.MedicalSummary{
		BloodType: "O+",
		Allergies: []string{"Penicillin"},
		EmergencyContact: models.EmergencyContact{
			Name:         "Jane Doe",
			Phone:        "555-0100",
			Relationship: "Spouse",
		},
	}
}

func TestTriggerAndScanFlow(t *testing.T) {
	service, _ := newTestService(t, NewInMemoryEventStore())
	ctx := context.Background()

	result, err := service.Trigger(ctx, "user-1", testSummary(), models.Location{Lat: 40.7128, Lng: -74.0060, Address: "NYC"})
	if err != nil {
		t.Fatalf("trigger failed: %v", err)
	}
	if result.Event.Status != models.EmergencyStatusActive {
		t.Fatalf("expected active status, got %s", result.Event.Status)
	}

	payload, event, err := service.Scan(ctx, result.Token.QRData, "resp-1")
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if payload["user_id"] != "user-1" {
		t.Fatalf("unexpected payload user: %v", payload["user_id"])
	}
	if len(event.AccessedBy) != 1 || event.AccessedBy[0] != "resp-1" {
		t.Fatalf("access not recorded: %v", event.AccessedBy)
	}

	accessLog, err := service.AccessLog(ctx, result.Event.EmergencyID)
	if err != nil {
		t.Fatalf("access log failed: %v", err)
	}
	if len(accessLog) != 1 || accessLog[0] != "resp-1" {
		t.Fatalf("unexpected access log: %v", accessLog)
	}
}

// A resolved event must reject the scan flow even though the token itself
// still decrypts: the TTL and the store status are independent gates.
func TestScanAfterResolveIsNotActive(t *testing.T) {
	service, codec := newTestService(t, NewInMemoryEventStore())
	ctx := context.Background()

	result, err := service.Trigger(ctx, "user-1", testSummary(), models.Location{})
	if err != nil {
		t.Fatalf("trigger failed: %v", err)
	}
	if _, err := service.Resolve(ctx, result.Event.EmergencyID); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	// The codec alone still accepts the token.
	if _, err := codec.Scan(result.Token.QRData); err != nil {
		t.Fatalf("codec should still decrypt a resolved token: %v", err)
	}

	// The orchestrated flow does not.
	if _, _, err := service.Scan(ctx, result.Token.QRData, "resp-1"); !errors.Is(err, ErrNotActive) {
		t.Fatalf("expected ErrNotActive, got %v", err)
	}
}

func TestScanExpiredToken(t *testing.T) {
	service, codec := newTestService(t, NewInMemoryEventStore())

	expired, err := codec.Issue("user-1", testSummary(), models.Location{}, -time.Second)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	if _, _, err := service.Scan(context.Background(), expired.QRData, "resp-1"); !errors.Is(err, qrtoken.ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestScanUnknownEvent(t *testing.T) {
	service, codec := newTestService(t, NewInMemoryEventStore())

	// Valid token whose lifecycle record was never stored.
	orphan, err := codec.Issue("user-1", testSummary(), models.Location{}, 0)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	if _, _, err := service.Scan(context.Background(), orphan.QRData, "resp-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// collidingStore fails the first N inserts with ErrDuplicateID to exercise
// the bounded regenerate-and-retry at issuance.
type collidingStore struct {
	*InMemoryEventStore
	failures int
}

func (s *collidingStore) Insert(ctx context.Context, event models.EmergencyEvent) error {
	if s.failures > 0 {
		s.failures--
		return ErrDuplicateID
	}
	return s.InMemoryEventStore.Insert(ctx, event)
}

func TestTriggerRetriesOnDuplicateID(t *testing.T) {
	store := &collidingStore{InMemoryEventStore: NewInMemoryEventStore(), failures: 2}
	service, _ := newTestService(t, store)

	result, err := service.Trigger(context.Background(), "user-1", testSummary(), models.Location{})
	if err != nil {
		t.Fatalf("trigger should survive two collisions: %v", err)
	}
	if result.Event.EmergencyID == "" {
		t.Fatal("missing emergency id")
	}
}

func TestTriggerGivesUpAfterRepeatedCollisions(t *testing.T) {
	store := &collidingStore{InMemoryEventStore: NewInMemoryEventStore(), failures: maxIssueAttempts}
	service, _ := newTestService(t, store)

	if _, err := service.Trigger(context.Background(), "user-1", testSummary(), models.Location{}); err == nil {
		t.Fatal("expected issuance to fail after repeated collisions")
	}
}
