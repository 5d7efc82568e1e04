package practice

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	mr := miniredis.RunT(t)
	return NewStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
}

func TestGetReturnsDefaultWhenMissing(t *testing.T) {
	store := newTestStore(t)

	profile, err := store.Get(context.Background(), "th-9")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if profile.TherapistID != "th-9" {
		t.Errorf("expected therapist id th-9, got %s", profile.TherapistID)
	}
	if profile.Timezone != "Asia/Jerusalem" {
		t.Errorf("expected default timezone, got %s", profile.Timezone)
	}
	if profile.Hours.Sunday == nil || profile.Hours.Saturday != nil {
		t.Error("expected default Sunday-Thursday hours")
	}
}

func TestSetThenGetRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	profile := DefaultProfile("th-3")
	profile.DisplayName = "Dr. Noa Levin"
	profile.AutoConfirm = true
	profile.Hours.Friday = &DayHours{Start: "08:00", End: "12:00"}

	if err := store.Set(ctx, profile); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, err := store.Get(ctx, "th-3")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.DisplayName != "Dr. Noa Levin" {
		t.Errorf("display name not persisted: %q", got.DisplayName)
	}
	if !got.AutoConfirm {
		t.Error("auto confirm flag not persisted")
	}
	if got.Hours.Friday == nil || got.Hours.Friday.End != "12:00" {
		t.Error("friday hours not persisted")
	}
}

func TestAutoConfirmDefaultAppliesToMissingProfiles(t *testing.T) {
	store := newTestStore(t).WithAutoConfirmDefault(true)
	ctx := context.Background()

	profile, err := store.Get(ctx, "th-new")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !profile.AutoConfirm {
		t.Error("expected deployment auto-confirm default for unseen therapist")
	}

	// A saved profile keeps its own flag regardless of the default.
	saved := DefaultProfile("th-saved")
	saved.AutoConfirm = false
	if err := store.Set(ctx, saved); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := store.Get(ctx, "th-saved")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.AutoConfirm {
		t.Error("saved profile must not inherit the deployment default")
	}
}

func TestSetRequiresTherapistID(t *testing.T) {
	store := newTestStore(t)
	if err := store.Set(context.Background(), &Profile{}); err == nil {
		t.Fatal("expected error for profile without therapist id")
	}
}
