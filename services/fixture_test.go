package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"pll.link/configs/configsnetwork"
	"pll.link/models"
	"pll.link/pkg/cardnetwork"
	"pll.link/pkg/events"
	"pll.link/pkg/taskqueue"
	"pll.link/pkg/testdb"

	"gorm.io/gorm"
)

// fakeNetwork kart ağını bellekte taklit eder.
type fakeNetwork struct {
	mu          sync.Mutex
	activates   []cardnetwork.ActivateRequest
	deactivates []cardnetwork.DeactivateRequest
	failActs    int // ilk n activate çağrısı başarısız olur
}

func (n *fakeNetwork) Activate(_ context.Context, req cardnetwork.ActivateRequest) (*cardnetwork.ActivateResponse, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.activates = append(n.activates, req)
	if n.failActs > 0 {
		n.failActs--
		return nil, &cardnetwork.StatusError{Op: "activate", Code: 500, Body: "boom"}
	}
	return &cardnetwork.ActivateResponse{ActivationID: fmt.Sprintf("act-%d", len(n.activates))}, nil
}

func (n *fakeNetwork) Deactivate(_ context.Context, req cardnetwork.DeactivateRequest) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.deactivates = append(n.deactivates, req)
	return nil
}

func (n *fakeNetwork) counts() (int, int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.activates), len(n.deactivates)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) ofType(eventType string) []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []events.Event
	for _, e := range p.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	t         *testing.T
	ctx       context.Context
	db        *gorm.DB
	queue     *taskqueue.Queue
	network   *fakeNetwork
	published *recordingPublisher
	engine    *Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testdb.Open(t)
	queue := taskqueue.New(db, taskqueue.Config{Concurrency: 1, Backoff: time.Millisecond})
	network := &fakeNetwork{}
	cfg := configsnetwork.Default()
	cfg.Retries = 2

	engine := NewEngine(db, queue, network, cfg, "test-salt")
	engine.Activation.retryPause = 0
	published := &recordingPublisher{}
	engine.RegisterTasks(queue, published)

	return &fixture{t: t, ctx: context.Background(), db: db, queue: queue, network: network, published: published, engine: engine}
}

func (f *fixture) create(v any) {
	f.t.Helper()
	if err := f.db.Create(v).Error; err != nil {
		f.t.Fatalf("create %T: %v", v, err)
	}
}

func (f *fixture) user(externalID string) uint {
	u := &models.User{ExternalID: externalID, ChannelSlug: "com.bink.wallet"}
	f.create(u)
	return u.ID
}

func (f *fixture) scheme(slug string) uint {
	s := &models.Scheme{Slug: slug, Name: slug}
	f.create(s)
	return s.ID
}

func (f *fixture) card(paymentScheme string, status models.PaymentCardStatus) uint {
	c := &models.PaymentCardAccount{PaymentScheme: paymentScheme, Token: fmt.Sprintf("tok-%s-%d", paymentScheme, time.Now().UnixNano()), Status: status}
	f.create(c)
	return c.ID
}

func (f *fixture) account(schemeID uint) uint {
	a := &models.LoyaltyAccount{SchemeID: schemeID}
	f.create(a)
	return a.ID
}

func (f *fixture) attr(userID uint) models.Attribution {
	return models.Attribution{UserID: userID, Channel: models.ChannelGeneral, ChannelSlug: "com.bink.wallet"}
}

func (f *fixture) must(ids []uint, err error) []uint {
	f.t.Helper()
	if err != nil {
		f.t.Fatalf("unexpected error: %v", err)
	}
	return ids
}

func (f *fixture) drain() {
	f.t.Helper()
	if err := f.queue.Drain(f.ctx); err != nil {
		f.t.Fatalf("drain: %v", err)
	}
}

func (f *fixture) link(cardID, accountID uint) *models.BaseLink {
	f.t.Helper()
	var l models.BaseLink
	err := f.db.Where("payment_card_account_id = ? AND loyalty_account_id = ?", cardID, accountID).Take(&l).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		f.t.Fatalf("link: %v", err)
	}
	return &l
}

// view kullanıcının (kart, hesap) görünümünü döndürür; yoksa nil.
func (f *fixture) view(userID, cardID, accountID uint) *models.UserLinkView {
	f.t.Helper()
	l := f.link(cardID, accountID)
	if l == nil {
		return nil
	}
	var v models.UserLinkView
	err := f.db.Where("user_id = ? AND base_link_id = ?", userID, l.ID).Take(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		f.t.Fatalf("view: %v", err)
	}
	return &v
}

func (f *fixture) expectView(userID, cardID, accountID uint, state models.LinkState, slug string) {
	f.t.Helper()
	v := f.view(userID, cardID, accountID)
	if v == nil {
		f.t.Fatalf("user %d has no view on (%d, %d)", userID, cardID, accountID)
	}
	if v.State != state || v.Slug != slug {
		f.t.Errorf("user %d view on (%d, %d) = (%s, %q), want (%s, %q)", userID, cardID, accountID, v.State, v.Slug, state, slug)
	}
}

func (f *fixture) activation(cardID, schemeID uint) *models.ActivationRecord {
	f.t.Helper()
	var r models.ActivationRecord
	err := f.db.Where("payment_card_account_id = ? AND scheme_id = ?", cardID, schemeID).Take(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		f.t.Fatalf("activation: %v", err)
	}
	return &r
}

// walletWith kullanıcıya kartı ve sağlıklı bir sadakat üyeliği ekler.
func (f *fixture) walletWith(userID, cardID, accountID uint) []uint {
	f.t.Helper()
	f.must(f.engine.Wallet.AddPaymentCard(f.ctx, f.attr(userID), userID, cardID))
	return f.must(f.engine.Wallet.AddLoyaltyCard(f.ctx, f.attr(userID), userID, LoyaltyCardInput{
		LoyaltyAccountID: accountID,
		LinkStatus:       models.LinkStatusActive,
		Authorised:       true,
		Channel:          models.ChannelGeneral,
	}))
}
