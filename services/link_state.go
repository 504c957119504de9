package services

import "pll.link/models"

// EffectiveLoyaltyStatus hesabın tüm cüzdan üyeliklerinden tek bir durum türetir.
// Yetkili ve ACTIVE bir üyelik varsa ACTIVE; yoksa PENDING olan varsa PENDING;
// aksi halde ilk hata durumu. Üyelik yoksa UNKNOWN_ERROR.
func EffectiveLoyaltyStatus(entries []models.LoyaltyEntry) models.LinkStatus {
	if len(entries) == 0 {
		return models.LinkStatusUnknownError
	}
	pending := false
	var firstError models.LinkStatus
	for _, e := range entries {
		switch {
		case e.IsLinkable():
			return models.LinkStatusActive
		case e.LinkStatus == models.LinkStatusPending:
			pending = true
		case firstError == "":
			if e.LinkStatus == models.LinkStatusActive {
				// ACTIVE ama yetkisiz
				firstError = models.LinkStatusAuthFailed
			} else {
				firstError = e.LinkStatus
			}
		}
	}
	if pending {
		return models.LinkStatusPending
	}
	return firstError
}

// ComputeActive bir (ödeme kartı, sadakat hesabı) çiftinin bağlı sayılıp sayılamayacağını söyler.
// Saf fonksiyondur; BaseLink.Active'in tek doğruluk kaynağı budur.
func ComputeActive(card models.PaymentCardAccount, account models.LoyaltyAccount, accountStatus models.LinkStatus) bool {
	return card.Status == models.PaymentCardStatusActive && !card.IsDeleted &&
		accountStatus == models.LinkStatusActive && !account.IsDeleted
}

type sideState int

const (
	sideActive sideState = iota
	sidePending
	sideError
)

func paymentCardSide(card models.PaymentCardAccount) sideState {
	if card.IsDeleted {
		return sideError
	}
	switch card.Status {
	case models.PaymentCardStatusActive:
		return sideActive
	case models.PaymentCardStatusPending:
		return sidePending
	default:
		return sideError
	}
}

func loyaltySide(account models.LoyaltyAccount, entry *models.LoyaltyEntry) sideState {
	if entry == nil || account.IsDeleted {
		return sideError
	}
	switch {
	case entry.IsLinkable():
		return sideActive
	case entry.LinkStatus == models.LinkStatusPending:
		return sidePending
	default:
		return sideError
	}
}

// DeriveUserLinkStatus kullanıcının kendi üyeliğine göre görünüm durumunu ve slug'ını hesaplar.
// entry nil ise kullanıcının hesapta üyeliği kalmamış demektir ve hata sayılır.
func DeriveUserLinkStatus(card models.PaymentCardAccount, account models.LoyaltyAccount, entry *models.LoyaltyEntry) (models.LinkState, string) {
	pc := paymentCardSide(card)
	lc := loyaltySide(account, entry)

	switch pc {
	case sideActive:
		switch lc {
		case sideActive:
			return models.LinkStateActive, models.SlugHealthy
		case sidePending:
			return models.LinkStatePending, models.SlugLoyaltyCardPending
		default:
			return models.LinkStateInactive, models.SlugLoyaltyCardNotAuthorised
		}
	case sidePending:
		switch lc {
		case sideActive:
			return models.LinkStatePending, models.SlugPaymentAccountPending
		case sidePending:
			return models.LinkStatePending, models.SlugPaymentAccountAndLoyaltyCardPending
		default:
			return models.LinkStateInactive, models.SlugLoyaltyCardNotAuthorised
		}
	default:
		if lc == sideActive {
			return models.LinkStateInactive, models.SlugPaymentAccountInactive
		}
		return models.LinkStateInactive, models.SlugPaymentAccountAndLoyaltyCardInactive
	}
}
