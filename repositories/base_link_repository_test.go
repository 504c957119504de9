package repositories

import (
	"context"
	"errors"
	"testing"

	"pll.link/models"
	"pll.link/pkg/testdb"
)

func TestBaseLinkRepository_GetOrCreateAndCleanup(t *testing.T) {
	db := testdb.Open(t)
	ctx := context.Background()
	cardID, schemeID := seedCardAndScheme(t, db)
	account := &models.LoyaltyAccount{SchemeID: schemeID}
	if err := db.Create(account).Error; err != nil {
		t.Fatal(err)
	}
	user := &models.User{ExternalID: "u-1"}
	if err := db.Create(user).Error; err != nil {
		t.Fatal(err)
	}

	links := NewBaseLinkRepository(db)
	views := NewUserLinkViewRepository(db)

	first, created, err := links.GetOrCreate(ctx, cardID, account.ID)
	if err != nil || !created {
		t.Fatalf("GetOrCreate = (%v, %v)", created, err)
	}
	again, created, err := links.GetOrCreate(ctx, cardID, account.ID)
	if err != nil || created || again.ID != first.ID {
		t.Fatalf("second GetOrCreate = (%+v, %v, %v), want existing", again, created, err)
	}

	view, _, err := views.GetOrCreate(ctx, user.ID, first.ID)
	if err != nil {
		t.Fatal(err)
	}
	if deleted, err := links.DeleteIfUnreferenced(ctx, first.ID); err != nil || deleted {
		t.Fatalf("referenced link deleted: (%v, %v)", deleted, err)
	}

	if err := links.UpdateFlags(ctx, first.ID, true, false); err != nil {
		t.Fatal(err)
	}
	active, err := links.FindActiveForCardScheme(ctx, cardID, schemeID)
	if err != nil || active.ID != first.ID {
		t.Fatalf("FindActiveForCardScheme = (%+v, %v)", active, err)
	}

	if err := views.DeleteByIDs(ctx, []uint{view.ID}); err != nil {
		t.Fatal(err)
	}
	if deleted, err := links.DeleteIfUnreferenced(ctx, first.ID); err != nil || !deleted {
		t.Fatalf("unreferenced link kept: (%v, %v)", deleted, err)
	}
	if _, err := links.FindByID(ctx, first.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("FindByID after delete = %v, want ErrNotFound", err)
	}
	if err := links.UpdateFlags(ctx, first.ID, false, false); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateFlags on missing link = %v, want ErrNotFound", err)
	}
}
