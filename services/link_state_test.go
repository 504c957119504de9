package services

import (
	"testing"

	"pll.link/models"
)

func entry(status models.LinkStatus, authorised bool) models.LoyaltyEntry {
	return models.LoyaltyEntry{LinkStatus: status, Authorised: authorised}
}

func TestEffectiveLoyaltyStatus(t *testing.T) {
	tests := []struct {
		name    string
		entries []models.LoyaltyEntry
		want    models.LinkStatus
	}{
		{"no entries", nil, models.LinkStatusUnknownError},
		{"single active", []models.LoyaltyEntry{entry(models.LinkStatusActive, true)}, models.LinkStatusActive},
		{"active but unauthorised", []models.LoyaltyEntry{entry(models.LinkStatusActive, false)}, models.LinkStatusAuthFailed},
		{"any authorised active wins", []models.LoyaltyEntry{
			entry(models.LinkStatusAuthFailed, false),
			entry(models.LinkStatusPending, false),
			entry(models.LinkStatusActive, true),
		}, models.LinkStatusActive},
		{"pending beats errors", []models.LoyaltyEntry{
			entry(models.LinkStatusJoinFailed, false),
			entry(models.LinkStatusPending, false),
		}, models.LinkStatusPending},
		{"first error reported", []models.LoyaltyEntry{
			entry(models.LinkStatusInvalidCredentials, false),
			entry(models.LinkStatusJoinFailed, false),
		}, models.LinkStatusInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EffectiveLoyaltyStatus(tt.entries); got != tt.want {
				t.Errorf("EffectiveLoyaltyStatus() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestComputeActive(t *testing.T) {
	activeCard := models.PaymentCardAccount{Status: models.PaymentCardStatusActive}
	account := models.LoyaltyAccount{}

	tests := []struct {
		name    string
		card    models.PaymentCardAccount
		account models.LoyaltyAccount
		status  models.LinkStatus
		want    bool
	}{
		{"both active", activeCard, account, models.LinkStatusActive, true},
		{"card pending", models.PaymentCardAccount{Status: models.PaymentCardStatusPending}, account, models.LinkStatusActive, false},
		{"card deleted", models.PaymentCardAccount{Status: models.PaymentCardStatusActive, IsDeleted: true}, account, models.LinkStatusActive, false},
		{"account pending", activeCard, account, models.LinkStatusPending, false},
		{"account deleted", activeCard, models.LoyaltyAccount{IsDeleted: true}, models.LinkStatusActive, false},
		{"account auth failed", activeCard, account, models.LinkStatusAuthFailed, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ComputeActive(tt.card, tt.account, tt.status); got != tt.want {
				t.Errorf("ComputeActive() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDeriveUserLinkStatus(t *testing.T) {
	card := func(s models.PaymentCardStatus) models.PaymentCardAccount {
		return models.PaymentCardAccount{Status: s}
	}
	e := func(s models.LinkStatus, authorised bool) *models.LoyaltyEntry {
		v := entry(s, authorised)
		return &v
	}
	account := models.LoyaltyAccount{}

	tests := []struct {
		name      string
		card      models.PaymentCardAccount
		account   models.LoyaltyAccount
		entry     *models.LoyaltyEntry
		wantState models.LinkState
		wantSlug  string
	}{
		{"healthy", card(models.PaymentCardStatusActive), account, e(models.LinkStatusActive, true),
			models.LinkStateActive, models.SlugHealthy},
		{"loyalty pending", card(models.PaymentCardStatusActive), account, e(models.LinkStatusPending, false),
			models.LinkStatePending, models.SlugLoyaltyCardPending},
		{"loyalty not authorised", card(models.PaymentCardStatusActive), account, e(models.LinkStatusActive, false),
			models.LinkStateInactive, models.SlugLoyaltyCardNotAuthorised},
		{"payment pending", card(models.PaymentCardStatusPending), account, e(models.LinkStatusActive, true),
			models.LinkStatePending, models.SlugPaymentAccountPending},
		{"both pending", card(models.PaymentCardStatusPending), account, e(models.LinkStatusPending, false),
			models.LinkStatePending, models.SlugPaymentAccountAndLoyaltyCardPending},
		{"payment pending loyalty failed", card(models.PaymentCardStatusPending), account, e(models.LinkStatusJoinFailed, false),
			models.LinkStateInactive, models.SlugLoyaltyCardNotAuthorised},
		{"payment failed", card(models.PaymentCardStatusFailed), account, e(models.LinkStatusActive, true),
			models.LinkStateInactive, models.SlugPaymentAccountInactive},
		{"both inactive", card(models.PaymentCardStatusExpired), account, e(models.LinkStatusAuthFailed, false),
			models.LinkStateInactive, models.SlugPaymentAccountAndLoyaltyCardInactive},
		{"payment failed loyalty pending", card(models.PaymentCardStatusUnknown), account, e(models.LinkStatusPending, false),
			models.LinkStateInactive, models.SlugPaymentAccountAndLoyaltyCardInactive},
		{"deleted card", models.PaymentCardAccount{Status: models.PaymentCardStatusActive, IsDeleted: true}, account, e(models.LinkStatusActive, true),
			models.LinkStateInactive, models.SlugPaymentAccountInactive},
		{"no membership", card(models.PaymentCardStatusActive), account, nil,
			models.LinkStateInactive, models.SlugLoyaltyCardNotAuthorised},
		{"deleted account", card(models.PaymentCardStatusActive), models.LoyaltyAccount{IsDeleted: true}, e(models.LinkStatusActive, true),
			models.LinkStateInactive, models.SlugLoyaltyCardNotAuthorised},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state, slug := DeriveUserLinkStatus(tt.card, tt.account, tt.entry)
			if state != tt.wantState || slug != tt.wantSlug {
				t.Errorf("DeriveUserLinkStatus() = (%s, %q), want (%s, %q)", state, slug, tt.wantState, tt.wantSlug)
			}
		})
	}
}
