package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"event-seating/internal/data/entity"

	"go.uber.org/zap"
)

func newTestStore(now time.Time) *MemoryStore {
	seats := GenerateSeatMap([]string{"A"}, 1, 4)
	return NewMemoryStore(seats, zap.NewNop(), WithClock(func() time.Time { return now }))
}

func TestGenerateSeatMap(t *testing.T) {
	seats := GenerateSeatMap([]string{"A", "B"}, 2, 3)
	if len(seats) != 12 {
		t.Fatalf("expected 12 seats, got %d", len(seats))
	}
	first := seats[0]
	if first.ID != "A-A-1" || first.SectionID != "A" || *first.RowID != "A" || first.Column != 1 || first.PriceTier != 1 {
		t.Fatalf("unexpected first seat %+v", first)
	}
	if last := seats[len(seats)-1]; last.ID != "B-B-3" || last.PriceTier != 2 {
		t.Fatalf("unexpected last seat %+v", last)
	}
}

func TestMemoryTryHold(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store := newTestStore(now)

	seat, err := store.TryHold(ctx, "A-A-1", "S1", 2)
	if err != nil {
		t.Fatalf("hold: %v", err)
	}
	if !seat.IsHeldBy("S1") || !seat.HeldAt.Equal(now) {
		t.Fatalf("unexpected seat %+v", seat)
	}

	if _, err := store.TryHold(ctx, "A-A-1", "S1", 2); err != nil {
		t.Fatalf("re-hold must be idempotent: %v", err)
	}
	if _, err := store.TryHold(ctx, "A-A-1", "S2", 2); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if _, err := store.TryHold(ctx, "A-A-2", "S1", 2); err != nil {
		t.Fatalf("second hold: %v", err)
	}
	if _, err := store.TryHold(ctx, "A-A-3", "S1", 2); !errors.Is(err, ErrCapExceeded) {
		t.Fatalf("expected ErrCapExceeded, got %v", err)
	}
	if _, err := store.TryHold(ctx, "nope", "S3", 2); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	// Returned rows are copies.
	seat.Status = entity.SeatStatusSold
	current, _ := store.FindByIDs(ctx, []string{"A-A-1"})
	if current[0].Status != entity.SeatStatusHeld {
		t.Fatal("mutating a returned seat must not touch the store")
	}
}

func TestMemoryComplete(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(time.Now())

	if _, err := store.TryHold(ctx, "A-A-1", "S1", 0); err != nil {
		t.Fatal(err)
	}
	if _, err := store.TryHold(ctx, "A-A-2", "S2", 0); err != nil {
		t.Fatal(err)
	}

	_, err := store.Complete(ctx, []string{"A-A-1", "A-A-2"}, "S1")
	var mismatch *HoldMismatchError
	if !errors.As(err, &mismatch) || len(mismatch.SeatIDs) != 1 || mismatch.SeatIDs[0] != "A-A-2" {
		t.Fatalf("expected mismatch on A-A-2, got %v", err)
	}
	if n, _ := store.CountHeld(ctx, "S1"); n != 1 {
		t.Fatalf("failed completion must not change holds, S1 holds %d", n)
	}

	sold, err := store.Complete(ctx, []string{"A-A-1"}, "S1")
	if err != nil || len(sold) != 1 || sold[0].Status != entity.SeatStatusSold || sold[0].HeldBy != nil {
		t.Fatalf("unexpected completion result %v, %v", sold, err)
	}
}

func TestMemoryReleaseExpired(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := t0
	store := NewMemoryStore(GenerateSeatMap([]string{"A"}, 1, 3), zap.NewNop(),
		WithClock(func() time.Time { return now }))

	if _, err := store.TryHold(ctx, "A-A-1", "S1", 0); err != nil {
		t.Fatal(err)
	}
	now = t0.Add(8 * time.Minute)
	if _, err := store.TryHold(ctx, "A-A-2", "S1", 0); err != nil {
		t.Fatal(err)
	}

	released, err := store.ReleaseExpired(ctx, t0.Add(time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if len(released) != 1 || released[0] != "A-A-1" {
		t.Fatalf("expected only A-A-1 released, got %v", released)
	}
	if n, _ := store.CountHeld(ctx, "S1"); n != 1 {
		t.Fatalf("expected 1 remaining hold, got %d", n)
	}
}

func TestMemorySetStatusKeepsInvariant(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(time.Now())

	if _, err := store.TryHold(ctx, "A-A-1", "S1", 0); err != nil {
		t.Fatal(err)
	}

	updated, err := store.SetStatus(ctx, []string{"A-A-1", "missing"}, entity.SeatStatusAvailable, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(updated) != 1 || updated[0].HeldBy != nil || updated[0].HeldAt != nil {
		t.Fatalf("override to available must clear the holder, got %+v", updated)
	}

	updated, err = store.SetStatus(ctx, []string{"A-A-2"}, entity.SeatStatusHeld, "S7")
	if err != nil {
		t.Fatal(err)
	}
	if !updated[0].IsHeldBy("S7") || updated[0].HeldAt == nil {
		t.Fatalf("override to held must set the holder, got %+v", updated[0])
	}
}
