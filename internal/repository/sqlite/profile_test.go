package sqlite_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/wealthforge/network/internal/domain"
)

func TestProfileRepository_CreateAndGet(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	profile := createTestProfile(t, db, "ana@example.com", "Ana Pop")
	if profile.ID == uuid.Nil {
		t.Fatal("expected profile ID to be assigned")
	}
	if profile.Status != domain.ProfileStatusActive {
		t.Fatalf("expected default status active, got %s", profile.Status)
	}

	got, err := db.Profiles().GetByID(ctx, profile.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Email != "ana@example.com" || got.DisplayName != "Ana Pop" {
		t.Fatalf("unexpected profile: %+v", got)
	}

	byEmail, err := db.Profiles().GetByEmail(ctx, "ana@example.com")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if byEmail.ID != profile.ID {
		t.Fatalf("expected ID %s, got %s", profile.ID, byEmail.ID)
	}
}

func TestProfileRepository_DuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	createTestProfile(t, db, "dup@example.com", "First")

	err := db.Profiles().Create(ctx, &domain.Profile{
		Email:        "dup@example.com",
		DisplayName:  "Second",
		PasswordHash: "x",
	})
	if !errors.Is(err, domain.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestProfileRepository_GetMissing(t *testing.T) {
	db := newTestDB(t)

	_, err := db.Profiles().GetByID(context.Background(), uuid.New())
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestProfileRepository_Update(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	profile := createTestProfile(t, db, "upd@example.com", "Before")

	avatar := "avatars/upd.png"
	profile.DisplayName = "After"
	profile.AvatarRef = &avatar
	if err := db.Profiles().Update(ctx, profile); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := db.Profiles().GetByID(ctx, profile.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.DisplayName != "After" {
		t.Fatalf("expected display name After, got %s", got.DisplayName)
	}
	if got.AvatarRef == nil || *got.AvatarRef != avatar {
		t.Fatalf("expected avatar ref %q, got %v", avatar, got.AvatarRef)
	}
}

func TestProfileRepository_UpdateStatus(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	profile := createTestProfile(t, db, "susp@example.com", "Suspendable")

	if err := db.Profiles().UpdateStatus(ctx, profile.ID, domain.ProfileStatusSuspended); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	got, err := db.Profiles().GetByID(ctx, profile.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != domain.ProfileStatusSuspended {
		t.Fatalf("expected suspended, got %s", got.Status)
	}

	err = db.Profiles().UpdateStatus(ctx, uuid.New(), domain.ProfileStatusActive)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown id, got %v", err)
	}
}

func TestProfileRepository_List(t *testing.T) {
	db := newTestDB(t)

	createTestProfile(t, db, "a@example.com", "A")
	createTestProfile(t, db, "b@example.com", "B")

	profiles, err := db.Profiles().List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(profiles) != 2 {
		t.Fatalf("expected 2 profiles, got %d", len(profiles))
	}
}
