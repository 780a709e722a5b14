package models

import "time"

// Grant lifetimes per transaction type
const (
	ContactAccessDuration = 30 * 24 * time.Hour
	FeaturedDuration      = 30 * 24 * time.Hour
	BoostedDuration       = 7 * 24 * time.Hour
)

// ApplyGrant applies the paid-for effect of a successful transaction to the
// target record. CONTACT_ACCESS mutates the user; the listing-scoped types
// mutate the listing. Returns false without mutating anything when the target
// record is absent, so a success callback for a transaction that lost its
// listing reference degrades to a no-op instead of an error.
func ApplyGrant(t TransactionType, user *User, listing *Listing, now time.Time) bool {
	switch t {
	case TransactionTypeContactAccess:
		if user == nil {
			return false
		}
		expires := now.Add(ContactAccessDuration)
		user.CanViewContacts = true
		user.ContactAccessExpiresAt = &expires
		return true
	case TransactionTypeFeaturedListing:
		if listing == nil {
			return false
		}
		until := now.Add(FeaturedDuration)
		listing.IsFeatured = true
		listing.FeaturedUntil = &until
		return true
	case TransactionTypeBoostedListing:
		if listing == nil {
			return false
		}
		until := now.Add(BoostedDuration)
		listing.IsBoosted = true
		listing.BoostedUntil = &until
		return true
	case TransactionTypeVacancyListing:
		if listing == nil {
			return false
		}
		listing.Status = ListingStatusVacant
		return true
	}
	return false
}
