package models

import (
	"testing"
	"time"
)

func TestApplyGrant(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("contact access marks user with 30 day expiry", func(t *testing.T) {
		user := &User{FirebaseUID: "u1"}
		applied := ApplyGrant(TransactionTypeContactAccess, user, nil, now)
		if !applied {
			t.Fatal("expected grant to be applied")
		}
		if !user.CanViewContacts {
			t.Error("expected CanViewContacts to be true")
		}
		want := now.Add(30 * 24 * time.Hour)
		if user.ContactAccessExpiresAt == nil || !user.ContactAccessExpiresAt.Equal(want) {
			t.Errorf("ContactAccessExpiresAt = %v; want %v", user.ContactAccessExpiresAt, want)
		}
	})

	t.Run("featured listing gets 30 day window", func(t *testing.T) {
		listing := &Listing{Status: ListingStatusOccupied}
		if !ApplyGrant(TransactionTypeFeaturedListing, nil, listing, now) {
			t.Fatal("expected grant to be applied")
		}
		if !listing.IsFeatured {
			t.Error("expected IsFeatured to be true")
		}
		want := now.Add(30 * 24 * time.Hour)
		if listing.FeaturedUntil == nil || !listing.FeaturedUntil.Equal(want) {
			t.Errorf("FeaturedUntil = %v; want %v", listing.FeaturedUntil, want)
		}
	})

	t.Run("boosted listing gets 7 day window", func(t *testing.T) {
		listing := &Listing{}
		if !ApplyGrant(TransactionTypeBoostedListing, nil, listing, now) {
			t.Fatal("expected grant to be applied")
		}
		want := now.Add(7 * 24 * time.Hour)
		if listing.BoostedUntil == nil || !listing.BoostedUntil.Equal(want) {
			t.Errorf("BoostedUntil = %v; want %v", listing.BoostedUntil, want)
		}
	})

	t.Run("vacancy forces listing status to vacant", func(t *testing.T) {
		listing := &Listing{Status: ListingStatusOccupied}
		if !ApplyGrant(TransactionTypeVacancyListing, nil, listing, now) {
			t.Fatal("expected grant to be applied")
		}
		if listing.Status != ListingStatusVacant {
			t.Errorf("Status = %q; want %q", listing.Status, ListingStatusVacant)
		}
	})

	t.Run("listing scoped grant without listing is a no-op", func(t *testing.T) {
		user := &User{}
		if ApplyGrant(TransactionTypeFeaturedListing, user, nil, now) {
			t.Error("expected grant not to be applied")
		}
		if user.CanViewContacts {
			t.Error("user must not be mutated")
		}
	})

	t.Run("contact access without user is a no-op", func(t *testing.T) {
		if ApplyGrant(TransactionTypeContactAccess, nil, &Listing{}, now) {
			t.Error("expected grant not to be applied")
		}
	})
}

func TestHasContactAccess(t *testing.T) {
	now := time.Now()
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	tests := []struct {
		name string
		user User
		want bool
	}{
		{"active grant", User{CanViewContacts: true, ContactAccessExpiresAt: &future}, true},
		{"expired grant", User{CanViewContacts: true, ContactAccessExpiresAt: &past}, false},
		{"flag without expiry", User{CanViewContacts: true}, false},
		{"no grant", User{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.user.HasContactAccess(now); got != tt.want {
				t.Errorf("HasContactAccess() = %v; want %v", got, tt.want)
			}
		})
	}
}
