package services

import (
	"context"
	"errors"
	"sort"

	"pll.link/configs/configslog"
	"pll.link/models"
	"pll.link/repositories"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// IBaseLinkStore cüzdandan bağımsız BaseLink kayıtlarını ve onların yeniden hesaplanmasını yönetir.
type IBaseLinkStore interface {
	UpsertAndRecompute(ctx context.Context, attr models.Attribution, userID, cardID, accountID uint) (*models.BaseLink, []uint, error)
	RecomputePaymentCard(ctx context.Context, attr models.Attribution, cardID uint) ([]uint, error)
	RecomputeLoyaltyAccount(ctx context.Context, attr models.Attribution, accountID uint) ([]uint, error)
}

// BaseLinkStore IBaseLinkStore arayüzünü uygular. Active değeri yalnızca buradan yazılır.
type BaseLinkStore struct {
	db         *gorm.DB
	links      repositories.IBaseLinkRepository
	cards      repositories.IPaymentCardRepository
	loyalty    repositories.ILoyaltyRepository
	viewRepo   repositories.IUserLinkViewRepository
	views      IUserLinkViewStore
	activation IActivationStateMachine
}

// NewBaseLinkStore yeni bir BaseLinkStore oluşturur.
func NewBaseLinkStore(db *gorm.DB, views IUserLinkViewStore, activation IActivationStateMachine) *BaseLinkStore {
	return &BaseLinkStore{
		db:         db,
		links:      repositories.NewBaseLinkRepository(db),
		cards:      repositories.NewPaymentCardRepository(db),
		loyalty:    repositories.NewLoyaltyRepository(db),
		viewRepo:   repositories.NewUserLinkViewRepository(db),
		views:      views,
		activation: activation,
	}
}

// UpsertAndRecompute (kart, hesap) çifti için BaseLink'i bulur ya da oluşturur, userID verilmişse
// kullanıcının görünümünü açar ve kartın tüm link grubunu yeniden çözer.
// Eşzamanlı oluşturma yarışını kaybeden taraf kazanan satır üzerinden devam eder.
func (s *BaseLinkStore) UpsertAndRecompute(ctx context.Context, attr models.Attribution, userID, cardID, accountID uint) (*models.BaseLink, []uint, error) {
	link, created, err := s.links.GetOrCreate(ctx, cardID, accountID)
	if err != nil {
		return nil, nil, err
	}
	if created {
		configslog.SLog.Infof("BaseLink oluşturuldu: %d (kart %d, hesap %d)", link.ID, cardID, accountID)
	}
	if userID != 0 {
		if _, _, err := s.views.Ensure(ctx, userID, link.ID); err != nil {
			return nil, nil, err
		}
	}
	affected, err := s.RecomputePaymentCard(ctx, attr, cardID)
	if err != nil {
		return nil, nil, err
	}
	fresh, err := s.links.FindByID(ctx, link.ID)
	if err != nil {
		return nil, nil, err
	}
	return fresh, mergeIDs(affected, []uint{link.ID}), nil
}

// snapshot kartın link grubunun anlık görüntüsünü okur. Kart yoksa nil döner.
func (s *BaseLinkStore) snapshot(ctx context.Context, cardID uint) (*ResolverInput, error) {
	card, err := s.cards.LockByID(ctx, cardID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	links, err := s.links.ListByPaymentCard(ctx, cardID)
	if err != nil {
		return nil, err
	}
	in := &ResolverInput{Card: *card}
	if len(links) == 0 {
		return in, nil
	}

	linkIDs := make([]uint, 0, len(links))
	accountIDs := make([]uint, 0, len(links))
	for _, l := range links {
		linkIDs = append(linkIDs, l.ID)
		accountIDs = append(accountIDs, l.LoyaltyAccountID)
	}
	views, err := s.viewRepo.ListByBaseLinkIDs(ctx, linkIDs)
	if err != nil {
		return nil, err
	}
	entries, err := s.loyalty.ListEntriesByAccounts(ctx, accountIDs)
	if err != nil {
		return nil, err
	}

	type entryKey struct{ user, account uint }
	byAccount := make(map[uint][]models.LoyaltyEntry)
	byKey := make(map[entryKey]models.LoyaltyEntry)
	for _, e := range entries {
		byAccount[e.LoyaltyAccountID] = append(byAccount[e.LoyaltyAccountID], e)
		byKey[entryKey{e.UserID, e.LoyaltyAccountID}] = e
	}
	viewsByLink := make(map[uint][]models.UserLinkView)
	for _, v := range views {
		viewsByLink[v.BaseLinkID] = append(viewsByLink[v.BaseLinkID], v)
	}

	for _, l := range links {
		ls := LinkSnapshot{
			Link:          l,
			Account:       l.LoyaltyAccount,
			AccountStatus: EffectiveLoyaltyStatus(byAccount[l.LoyaltyAccountID]),
		}
		for _, v := range viewsByLink[l.ID] {
			vs := ViewSnapshot{View: v}
			if e, ok := byKey[entryKey{v.UserID, l.LoyaltyAccountID}]; ok {
				e := e
				vs.Entry = &e
			}
			ls.Views = append(ls.Views, vs)
		}
		in.Links = append(in.Links, ls)
	}
	return in, nil
}

// RecomputePaymentCard kartı paylaşan tüm link'leri yeniden çözer, yalnızca farkları yazar ve
// active değeri değişen her link için aktivasyon durum makinesine sinyal verir.
// Durumu ya da görünümü değişen BaseLink ID'lerini döndürür.
func (s *BaseLinkStore) RecomputePaymentCard(ctx context.Context, attr models.Attribution, cardID uint) ([]uint, error) {
	in, err := s.snapshot(ctx, cardID)
	if err != nil {
		configslog.Log.Error("Link grubu okunamadı", zap.Uint("payment_card_account_id", cardID), zap.Error(err))
		return nil, err
	}
	if in == nil {
		configslog.SLog.Debugf("Ödeme kartı %d artık yok, yeniden hesaplama atlandı", cardID)
		return nil, nil
	}

	res := ResolveCollisions(*in)
	for _, a := range res.Anomalies {
		configslog.Log.Error("Link çakışma değişmezi ihlal edildi", zap.Uint("payment_card_account_id", cardID), zap.String("detail", a))
	}

	var affected []uint
	var signals []LinkOutcome
	for _, o := range res.Links {
		if !o.Changed() {
			continue
		}
		err := s.links.UpdateFlags(ctx, o.BaseLinkID, o.Active, o.Suppressed)
		if errors.Is(err, repositories.ErrNotFound) {
			configslog.SLog.Debugf("BaseLink %d yeniden hesaplama sırasında silinmiş, atlandı", o.BaseLinkID)
			continue
		}
		if err != nil {
			return nil, err
		}
		if o.Suppressed && !o.WasSuppressed {
			configslog.Log.Info("BaseLink ubiquity çakışmasını kaybetti",
				zap.Uint("base_link_id", o.BaseLinkID), zap.Uint("payment_card_account_id", cardID), zap.Uint("scheme_id", o.SchemeID))
		}
		affected = append(affected, o.BaseLinkID)
		if o.ActiveChanged() {
			signals = append(signals, o)
		}
	}

	if _, err := s.views.Apply(ctx, attr, res.Views); err != nil {
		return nil, err
	}
	for _, v := range res.Views {
		if v.Changed() {
			affected = append(affected, v.BaseLinkID)
		}
	}

	// Sinyaller tüm bayraklar yazıldıktan sonra gider; last-man-standing son durumu görmeli
	for _, o := range signals {
		if err := s.activation.Signal(ctx, in.Card, o.SchemeID, o.Active); err != nil {
			configslog.Log.Error("Aktivasyon sinyali işlenemedi",
				zap.Uint("base_link_id", o.BaseLinkID), zap.Bool("active", o.Active), zap.Error(err))
			return nil, err
		}
	}
	return mergeIDs(affected), nil
}

// RecomputeLoyaltyAccount hesabın bağlı olduğu her ödeme kartının grubunu yeniden çözer.
// Her kart kendi savepoint'inde işlenir; hatalar birleştirilerek döndürülür.
func (s *BaseLinkStore) RecomputeLoyaltyAccount(ctx context.Context, attr models.Attribution, accountID uint) ([]uint, error) {
	links, err := s.links.ListByLoyaltyAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	var cardIDs []uint
	for _, l := range links {
		cardIDs = append(cardIDs, l.PaymentCardAccountID)
	}
	cardIDs = mergeIDs(cardIDs)

	var affected []uint
	var errs error
	for _, cardID := range cardIDs {
		cardID := cardID
		err := repositories.RunInTx(ctx, s.db, func(txCtx context.Context) error {
			ids, err := s.RecomputePaymentCard(txCtx, attr, cardID)
			affected = append(affected, ids...)
			return err
		})
		errs = multierr.Append(errs, err)
	}
	return mergeIDs(affected), errs
}

// mergeIDs listeleri birleştirir, tekrarları atar ve sıralar.
func mergeIDs(lists ...[]uint) []uint {
	seen := make(map[uint]bool)
	var out []uint
	for _, l := range lists {
		for _, id := range l {
			if id != 0 && !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

var _ IBaseLinkStore = (*BaseLinkStore)(nil)
