package services

import (
	"testing"
	"time"

	"pll.link/models"
)

func TestActivation_Lifecycle(t *testing.T) {
	f := newFixture(t)
	u := f.user("u-1")
	s := f.scheme("iceland-bonus-card")
	p := f.card("visa", models.PaymentCardStatusActive)
	l := f.account(s)

	f.walletWith(u, p, l)
	record := f.activation(p, s)
	if record == nil || record.Status != models.ActivationStatusActivating {
		t.Fatalf("record = %+v, want ACTIVATING", record)
	}

	f.drain()
	record = f.activation(p, s)
	if record.Status != models.ActivationStatusActivated || record.ActivationID != "act-1" {
		t.Fatalf("record = %+v, want ACTIVATED with act-1", record)
	}
	req := f.network.activates[0]
	if req.MerchantSlug != "iceland-bonus-card" || req.AssociationID != f.link(p, l).ID || req.SchemeAccountID != l {
		t.Errorf("activate request = %+v", req)
	}

	linkID := f.link(p, l).ID
	if record.AssociationID != linkID || record.SchemeAccountID != l {
		t.Errorf("record = %+v, want the activated link and account stored", record)
	}

	f.must(f.engine.Wallet.RemoveLoyaltyCard(f.ctx, f.attr(u), u, l))
	if r := f.activation(p, s); r == nil || r.Status != models.ActivationStatusDeactivating {
		t.Fatalf("record = %+v, want DEACTIVATING once the last link went away", r)
	}

	f.drain()
	if r := f.activation(p, s); r != nil {
		t.Errorf("record = %+v, want deleted after deactivation", r)
	}
	acts, deacts := f.network.counts()
	if acts != 1 || deacts != 1 {
		t.Errorf("network calls = (%d, %d), want (1, 1)", acts, deacts)
	}
	deact := f.network.deactivates[0]
	if deact.ActivationID != "act-1" || deact.AssociationID != linkID || deact.SchemeAccountID != l ||
		deact.PaymentToken != req.PaymentToken || deact.MerchantSlug != req.MerchantSlug {
		t.Errorf("deactivate request = %+v, want the activate body plus act-1", deact)
	}
}

func TestActivation_OnlyConfiguredPaymentSchemes(t *testing.T) {
	f := newFixture(t)
	u := f.user("u-1")
	s := f.scheme("wasabi-club")
	p := f.card("mastercard", models.PaymentCardStatusActive)
	l := f.account(s)

	f.walletWith(u, p, l)
	f.drain()
	if r := f.activation(p, s); r != nil {
		t.Errorf("unexpected activation record %+v", r)
	}
	if acts, _ := f.network.counts(); acts != 0 {
		t.Errorf("network called %d times", acts)
	}
}

func TestActivation_SharedCardActivatesOnce(t *testing.T) {
	f := newFixture(t)
	u1, u2 := f.user("u-1"), f.user("u-2")
	s := f.scheme("iceland-bonus-card")
	p := f.card("visa", models.PaymentCardStatusActive)
	l1, l2 := f.account(s), f.account(s)

	f.walletWith(u1, p, l1)
	f.walletWith(u2, p, l2)
	f.drain()

	var count int64
	f.db.Model(&models.ActivationRecord{}).Where("payment_card_account_id = ? AND scheme_id = ?", p, s).Count(&count)
	if count != 1 {
		t.Fatalf("got %d activation records, want 1", count)
	}

	// Kazanan ayrılınca kaybeden öne çıkar; kayıt aktif kalır ve ağa tekrar gidilmez.
	f.must(f.engine.Wallet.RemovePaymentCard(f.ctx, f.attr(u1), u1, p))
	f.drain()
	if r := f.activation(p, s); r == nil || r.Status != models.ActivationStatusActivated {
		t.Fatalf("record = %+v, want ACTIVATED", r)
	}
	if acts, deacts := f.network.counts(); acts != 1 || deacts != 0 {
		t.Errorf("network calls = (%d, %d), want (1, 0)", acts, deacts)
	}
}

func TestActivation_RetriesWithinTask(t *testing.T) {
	f := newFixture(t)
	f.network.failActs = 1
	u := f.user("u-1")
	s := f.scheme("iceland-bonus-card")
	p := f.card("visa", models.PaymentCardStatusActive)
	l := f.account(s)

	f.walletWith(u, p, l)
	f.drain()

	if r := f.activation(p, s); r.Status != models.ActivationStatusActivated {
		t.Fatalf("record = %+v, want ACTIVATED after retry", r)
	}
	if acts, _ := f.network.counts(); acts != 2 {
		t.Errorf("activate calls = %d, want 2", acts)
	}
}

func TestActivation_StuckRecordIsRequeued(t *testing.T) {
	f := newFixture(t)
	f.network.failActs = 2
	u := f.user("u-1")
	s := f.scheme("iceland-bonus-card")
	p := f.card("visa", models.PaymentCardStatusActive)
	l := f.account(s)

	f.walletWith(u, p, l)
	f.drain()
	if r := f.activation(p, s); r.Status != models.ActivationStatusActivating {
		t.Fatalf("record = %+v, want ACTIVATING after exhausting retries", r)
	}

	f.engine.Activation.now = func() time.Time { return time.Now().Add(time.Hour) }
	n, err := f.engine.Activation.RequeueStuck(f.ctx, 30*time.Minute)
	if err != nil || n != 1 {
		t.Fatalf("RequeueStuck = (%d, %v), want 1", n, err)
	}
	f.drain()
	if r := f.activation(p, s); r.Status != models.ActivationStatusActivated {
		t.Errorf("record = %+v, want ACTIVATED after requeue", r)
	}
}

func TestActivation_AbandonedWhenLinkDropsBeforeTaskRuns(t *testing.T) {
	f := newFixture(t)
	u := f.user("u-1")
	s := f.scheme("iceland-bonus-card")
	p := f.card("visa", models.PaymentCardStatusActive)
	l := f.account(s)

	f.walletWith(u, p, l)
	f.must(f.engine.Wallet.SetPaymentCardStatus(f.ctx, models.SystemAttribution("hook"), p, models.PaymentCardStatusFailed))
	if r := f.activation(p, s); r == nil || r.Status != models.ActivationStatusActivating {
		t.Fatalf("record = %+v, want ACTIVATING until its task runs", r)
	}

	f.drain()
	if r := f.activation(p, s); r != nil {
		t.Errorf("record = %+v, want deleted", r)
	}
	if acts, deacts := f.network.counts(); acts != 0 || deacts != 0 {
		t.Errorf("network calls = (%d, %d), want none", acts, deacts)
	}
}

func TestActivation_ReactivatedWhileDeactivating(t *testing.T) {
	f := newFixture(t)
	u := f.user("u-1")
	s := f.scheme("iceland-bonus-card")
	p := f.card("visa", models.PaymentCardStatusActive)
	l := f.account(s)

	f.walletWith(u, p, l)
	f.drain()

	hook := models.SystemAttribution("hook")
	f.must(f.engine.Wallet.SetPaymentCardStatus(f.ctx, hook, p, models.PaymentCardStatusFailed))
	if r := f.activation(p, s); r.Status != models.ActivationStatusDeactivating {
		t.Fatalf("record = %+v, want DEACTIVATING", r)
	}
	f.must(f.engine.Wallet.SetPaymentCardStatus(f.ctx, hook, p, models.PaymentCardStatusActive))
	if r := f.activation(p, s); r.Status != models.ActivationStatusActivating {
		t.Fatalf("record = %+v, want ACTIVATING again", r)
	}

	f.drain()
	r := f.activation(p, s)
	if r == nil || r.Status != models.ActivationStatusActivated {
		t.Fatalf("record = %+v, want ACTIVATED", r)
	}
	if acts, deacts := f.network.counts(); acts != 2 || deacts != 0 {
		t.Errorf("network calls = (%d, %d), want (2, 0)", acts, deacts)
	}
}
