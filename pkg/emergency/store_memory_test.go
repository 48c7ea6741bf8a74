package emergency

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/lifeline-health/platform/pkg/common/models"
)

func activeEvent(id string) models.EmergencyEvent {
	return models.EmergencyEvent{
		EmergencyID: id,
		UserID:      "user-1",
		Status:      models.EmergencyStatusActive,
		Location:    models.Location{Lat: 40.7128, Lng: -74.0060, Address: "NYC"},
		AccessedBy:  []string{},
		CreatedAt:   time.Now(),
	}
}

func TestInsertRejectsDuplicateID(t *testing.T) {
	store := NewInMemoryEventStore()
	ctx := context.Background()

	if err := store.Insert(ctx, activeEvent("EMG1")); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}
	if err := store.Insert(ctx, activeEvent("EMG1")); !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}
}

func TestGetUnknownID(t *testing.T) {
	store := NewInMemoryEventStore()
	if _, err := store.Get(context.Background(), "EMG-missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRecordAccessIsIdempotentAndOrdered(t *testing.T) {
	store := NewInMemoryEventStore()
	ctx := context.Background()
	if err := store.Insert(ctx, activeEvent("EMG1")); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	for _, responder := range []string{"resp-a", "resp-b", "resp-a"} {
		if _, err := store.RecordAccess(ctx, "EMG1", responder); err != nil {
			t.Fatalf("record access failed: %v", err)
		}
	}

	event, err := store.Get(ctx, "EMG1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !reflect.DeepEqual(event.AccessedBy, []string{"resp-a", "resp-b"}) {
		t.Fatalf("unexpected access log: %v", event.AccessedBy)
	}
}

func TestRecordAccessGatesOnStatus(t *testing.T) {
	store := NewInMemoryEventStore()
	ctx := context.Background()
	if err := store.Insert(ctx, activeEvent("EMG1")); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if _, err := store.Resolve(ctx, "EMG1"); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	if _, err := store.RecordAccess(ctx, "EMG1", "resp-a"); !errors.Is(err, ErrNotActive) {
		t.Fatalf("expected ErrNotActive, got %v", err)
	}
	if _, err := store.RecordAccess(ctx, "EMG-missing", "resp-a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestResolveTransitions(t *testing.T) {
	store := NewInMemoryEventStore()
	ctx := context.Background()
	if err := store.Insert(ctx, activeEvent("EMG1")); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	event, err := store.Resolve(ctx, "EMG1")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if event.Status != models.EmergencyStatusResolved || event.ResolvedAt == nil {
		t.Fatalf("unexpected event after resolve: %+v", event)
	}

	// Duplicate resolve is a no-op, not an error.
	if _, err := store.Resolve(ctx, "EMG1"); err != nil {
		t.Fatalf("second resolve should be tolerated: %v", err)
	}

	if _, err := store.Resolve(ctx, "EMG-missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	cancelled := activeEvent("EMG2")
	cancelled.Status = models.EmergencyStatusCancelled
	if err := store.Insert(ctx, cancelled); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if _, err := store.Resolve(ctx, "EMG2"); !errors.Is(err, ErrNotActive) {
		t.Fatalf("expected ErrNotActive for cancelled event, got %v", err)
	}
}

func TestConcurrentRecordAccessLosesNoUpdates(t *testing.T) {
	store := NewInMemoryEventStore()
	ctx := context.Background()
	if err := store.Insert(ctx, activeEvent("EMG1")); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	const responders = 50
	var wg sync.WaitGroup
	for i := 0; i < responders; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if _, err := store.RecordAccess(ctx, "EMG1", fmt.Sprintf("resp-%d", n)); err != nil {
				t.Errorf("record access failed: %v", err)
			}
		}(i)
	}
	wg.Wait()

	event, err := store.Get(ctx, "EMG1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if len(event.AccessedBy) != responders {
		t.Fatalf("lost updates: expected %d accessors, got %d", responders, len(event.AccessedBy))
	}
}

func TestListActiveExcludesResolved(t *testing.T) {
	store := NewInMemoryEventStore()
	ctx := context.Background()
	for _, id := range []string{"EMG1", "EMG2", "EMG3"} {
		if err := store.Insert(ctx, activeEvent(id)); err != nil {
			t.Fatalf("insert failed: %v", err)
		}
	}
	if _, err := store.Resolve(ctx, "EMG2"); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	active, err := store.ListActive(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("expected 2 active events, got %d", len(active))
	}
	for _, event := range active {
		if event.EmergencyID == "EMG2" {
			t.Fatal("resolved event listed as active")
		}
	}
}
