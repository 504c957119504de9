package services

import (
	"context"
	"errors"

	"pll.link/configs/configslog"
	"pll.link/models"
	"pll.link/repositories"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ICleanupCoordinator kart, sadakat hesabı ya da kullanıcı kaldırıldığında link temizliğini yürütür.
// Çağıran üyelik satırını zaten silmiş olmalıdır.
type ICleanupCoordinator interface {
	PaymentCardRemoved(ctx context.Context, attr models.Attribution, userID, cardID uint) ([]uint, error)
	LoyaltyCardRemoved(ctx context.Context, attr models.Attribution, entry models.LoyaltyEntry) ([]uint, error)
	PaymentCardAccountDeleted(ctx context.Context, attr models.Attribution, cardID uint, userIDs []uint) ([]uint, error)
	LoyaltyAccountDeleted(ctx context.Context, attr models.Attribution, accountID uint, entries []models.LoyaltyEntry) ([]uint, error)
	UserDeleted(ctx context.Context, attr models.Attribution, userID uint, cardIDs []uint, entries []models.LoyaltyEntry) ([]uint, error)
}

// CleanupCoordinator ICleanupCoordinator arayüzünü uygular.
type CleanupCoordinator struct {
	db          *gorm.DB
	links       repositories.IBaseLinkRepository
	viewRepo    repositories.IUserLinkViewRepository
	cards       repositories.IPaymentCardRepository
	loyalty     repositories.ILoyaltyRepository
	activations repositories.IActivationRepository
	views       IUserLinkViewStore
	store       IBaseLinkStore
	activation  IActivationStateMachine
	emitter     *EventEmitter
}

// NewCleanupCoordinator yeni bir CleanupCoordinator oluşturur.
func NewCleanupCoordinator(db *gorm.DB, views IUserLinkViewStore, store IBaseLinkStore, activation IActivationStateMachine, emitter *EventEmitter) *CleanupCoordinator {
	return &CleanupCoordinator{
		db:          db,
		links:       repositories.NewBaseLinkRepository(db),
		viewRepo:    repositories.NewUserLinkViewRepository(db),
		cards:       repositories.NewPaymentCardRepository(db),
		loyalty:     repositories.NewLoyaltyRepository(db),
		activations: repositories.NewActivationRepository(db),
		views:       views,
		store:       store,
		activation:  activation,
		emitter:     emitter,
	}
}

type cardScheme struct {
	cardID   uint
	schemeID uint
}

// dropViews görünümleri siler, artık referanssız kalan BaseLink'leri kaldırır ve
// etkilenen (kart, şema) çiftleriyle silinen link ID'lerini döndürür.
func (c *CleanupCoordinator) dropViews(ctx context.Context, attr models.Attribution, views []models.UserLinkView) ([]cardScheme, []uint, error) {
	if len(views) == 0 {
		return nil, nil, nil
	}
	linkIDs := make([]uint, 0, len(views))
	for _, v := range views {
		linkIDs = append(linkIDs, v.BaseLinkID)
	}
	links, err := c.links.ListByIDs(ctx, mergeIDs(linkIDs))
	if err != nil {
		return nil, nil, err
	}
	if _, err := c.views.Delete(ctx, attr, views); err != nil {
		return nil, nil, err
	}

	var pairs []cardScheme
	seen := make(map[cardScheme]bool)
	var touched []uint
	for _, l := range links {
		p := cardScheme{cardID: l.PaymentCardAccountID, schemeID: l.LoyaltyAccount.SchemeID}
		if !seen[p] {
			seen[p] = true
			pairs = append(pairs, p)
		}
		touched = append(touched, l.ID)
		deleted, err := c.links.DeleteIfUnreferenced(ctx, l.ID)
		if err != nil {
			return nil, nil, err
		}
		if deleted {
			configslog.SLog.Infof("Referanssız BaseLink %d silindi (kart %d, hesap %d)", l.ID, l.PaymentCardAccountID, l.LoyaltyAccountID)
		}
	}
	return pairs, touched, nil
}

// settle kartların gruplarını yeniden çözer ve etkilenen çiftler için last-man-standing çalıştırır.
func (c *CleanupCoordinator) settle(ctx context.Context, attr models.Attribution, cardIDs []uint, pairs []cardScheme) ([]uint, error) {
	var affected []uint
	for _, cardID := range mergeIDs(cardIDs) {
		ids, err := c.store.RecomputePaymentCard(ctx, attr, cardID)
		if err != nil {
			return nil, err
		}
		affected = append(affected, ids...)
	}
	for _, p := range pairs {
		card, err := c.cards.FindByID(ctx, p.cardID)
		if errors.Is(err, repositories.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if err := c.activation.CheckLastManStanding(ctx, *card, p.schemeID); err != nil {
			return nil, err
		}
	}
	return affected, nil
}

// PaymentCardRemoved kullanıcı kartı cüzdanından çıkardıktan sonra çağrılır.
func (c *CleanupCoordinator) PaymentCardRemoved(ctx context.Context, attr models.Attribution, userID, cardID uint) ([]uint, error) {
	views, err := c.viewRepo.ListByUserAndPaymentCard(ctx, userID, cardID)
	if err != nil {
		return nil, err
	}
	pairs, touched, err := c.dropViews(ctx, attr, views)
	if err != nil {
		return nil, err
	}
	affected, err := c.settle(ctx, attr, []uint{cardID}, pairs)
	if err != nil {
		return nil, err
	}
	configslog.SLog.Infof("Ödeme kartı %d kullanıcı %d cüzdanından kaldırıldı, %d görünüm silindi", cardID, userID, len(views))
	return mergeIDs(touched, affected), nil
}

// LoyaltyCardRemoved kullanıcının sadakat üyeliği silindikten sonra çağrılır. Görünümleri temizler,
// hesabın kalan link'lerini yeniden çözer ve kaldırma olaylarını yayınlar.
func (c *CleanupCoordinator) LoyaltyCardRemoved(ctx context.Context, attr models.Attribution, entry models.LoyaltyEntry) ([]uint, error) {
	return c.loyaltyCardRemoved(ctx, attr, entry, 0)
}

// loyaltyCardRemoved pending, aynı toplu silmede henüz işlenmemiş ve aynı kanal türündeki
// üyeliklerin sayısıdır; bunlar veritabanından silinmiş olsa da hesabı hâlâ tutuyor sayılır.
func (c *CleanupCoordinator) loyaltyCardRemoved(ctx context.Context, attr models.Attribution, entry models.LoyaltyEntry, pending int) ([]uint, error) {
	views, err := c.viewRepo.ListByUserAndLoyaltyAccount(ctx, entry.UserID, entry.LoyaltyAccountID)
	if err != nil {
		return nil, err
	}
	pairs, touched, err := c.dropViews(ctx, attr, views)
	if err != nil {
		return nil, err
	}

	// Silinen üyelik hesabın etkin durumunu değiştirebilir; hesabın kalan kartları da çözülür
	remaining, err := c.links.ListByLoyaltyAccount(ctx, entry.LoyaltyAccountID)
	if err != nil {
		return nil, err
	}
	cardIDs := make([]uint, 0, len(pairs)+len(remaining))
	for _, p := range pairs {
		cardIDs = append(cardIDs, p.cardID)
	}
	for _, l := range remaining {
		cardIDs = append(cardIDs, l.PaymentCardAccountID)
	}
	affected, err := c.settle(ctx, attr, cardIDs, pairs)
	if err != nil {
		return nil, err
	}

	if err := c.emitRemoved(ctx, attr, entry, pending); err != nil {
		return nil, err
	}
	configslog.SLog.Infof("Sadakat hesabı %d kullanıcı %d cüzdanından kaldırıldı (%s)", entry.LoyaltyAccountID, entry.UserID, entry.Channel)
	return mergeIDs(touched, affected), nil
}

func (c *CleanupCoordinator) emitRemoved(ctx context.Context, attr models.Attribution, entry models.LoyaltyEntry, pending int) error {
	if c.emitter == nil {
		return nil
	}
	var schemeSlug string
	account, err := c.loyalty.FindAccountByID(ctx, entry.LoyaltyAccountID)
	switch {
	case err == nil:
		schemeSlug = account.Scheme.Slug
	case !errors.Is(err, repositories.ErrNotFound):
		return err
	}
	channel := channelOf(entry)
	others, err := c.loyalty.CountEntriesInChannel(ctx, entry.LoyaltyAccountID, channel, entry.UserID)
	if err != nil {
		return err
	}
	entry.Channel = channel
	return c.emitter.EmitLoyaltyCardRemoved(ctx, attr, entry, schemeSlug, others == 0 && pending == 0)
}

func channelOf(entry models.LoyaltyEntry) models.ChannelKind {
	if entry.Channel == "" {
		return models.ChannelGeneral
	}
	return entry.Channel
}

// pendingPeers her üyelik için, listede kendisinden sonra gelen aynı hesap ve kanal türündeki
// üyelik sayısını döndürür. Kanal türü başına yalnızca sonuncusu sıfır alır.
func pendingPeers(entries []models.LoyaltyEntry) []int {
	type key struct {
		account uint
		channel models.ChannelKind
	}
	counts := make([]int, len(entries))
	seen := make(map[key]int)
	for i := len(entries) - 1; i >= 0; i-- {
		k := key{entries[i].LoyaltyAccountID, channelOf(entries[i])}
		counts[i] = seen[k]
		seen[k]++
	}
	return counts
}

// eachInSavepoint her adımı kendi savepoint'inde çalıştırır; bir adımın hatası diğerlerini durdurmaz.
func (c *CleanupCoordinator) eachInSavepoint(ctx context.Context, n int, step func(ctx context.Context, i int) ([]uint, error)) ([]uint, error) {
	var affected []uint
	var errs error
	for i := 0; i < n; i++ {
		i := i
		err := repositories.RunInTx(ctx, c.db, func(txCtx context.Context) error {
			ids, err := step(txCtx, i)
			if err == nil {
				affected = append(affected, ids...)
			}
			return err
		})
		errs = multierr.Append(errs, err)
	}
	return mergeIDs(affected), errs
}

// sweepCard kartta kalan referanssız link'leri siler ve kartın tüm aktivasyon kayıtları için
// last-man-standing kontrolü yapar.
func (c *CleanupCoordinator) sweepCard(ctx context.Context, cardID uint) error {
	links, err := c.links.ListByPaymentCard(ctx, cardID)
	if err != nil {
		return err
	}
	for _, l := range links {
		if _, err := c.links.DeleteIfUnreferenced(ctx, l.ID); err != nil {
			return err
		}
	}
	card, err := c.cards.FindByID(ctx, cardID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	records, err := c.activations.ListByPaymentCard(ctx, cardID)
	if err != nil {
		return err
	}
	for _, r := range records {
		if err := c.activation.CheckLastManStanding(ctx, *card, r.SchemeID); err != nil {
			return err
		}
	}
	return nil
}

// PaymentCardAccountDeleted kart hesabı silindiğinde, kartı tutan her cüzdan için temizliği yürütür.
func (c *CleanupCoordinator) PaymentCardAccountDeleted(ctx context.Context, attr models.Attribution, cardID uint, userIDs []uint) ([]uint, error) {
	affected, errs := c.eachInSavepoint(ctx, len(userIDs), func(txCtx context.Context, i int) ([]uint, error) {
		return c.PaymentCardRemoved(txCtx, attr, userIDs[i], cardID)
	})
	errs = multierr.Append(errs, repositories.RunInTx(ctx, c.db, func(txCtx context.Context) error {
		return c.sweepCard(txCtx, cardID)
	}))
	if errs != nil {
		configslog.Log.Error("Ödeme kartı silme temizliği kısmen başarısız", zap.Uint("payment_card_account_id", cardID), zap.Error(errs))
	}
	return affected, errs
}

// LoyaltyAccountDeleted sadakat hesabı silindiğinde her üyelik için temizliği yürütür.
// Üyelikler çağırandan önce silinmiş olur; kanal dışı kaldırma olayını her kanal türünde son üyelik yayınlar.
func (c *CleanupCoordinator) LoyaltyAccountDeleted(ctx context.Context, attr models.Attribution, accountID uint, entries []models.LoyaltyEntry) ([]uint, error) {
	pending := pendingPeers(entries)
	affected, errs := c.eachInSavepoint(ctx, len(entries), func(txCtx context.Context, i int) ([]uint, error) {
		return c.loyaltyCardRemoved(txCtx, attr, entries[i], pending[i])
	})
	if errs != nil {
		configslog.Log.Error("Sadakat hesabı silme temizliği kısmen başarısız", zap.Uint("loyalty_account_id", accountID), zap.Error(errs))
	}
	return affected, errs
}

// UserDeleted kullanıcı silindiğinde önce sadakat, sonra ödeme kartı üyeliklerinin temizliğini yürütür.
func (c *CleanupCoordinator) UserDeleted(ctx context.Context, attr models.Attribution, userID uint, cardIDs []uint, entries []models.LoyaltyEntry) ([]uint, error) {
	pending := pendingPeers(entries)
	loyaltyAffected, errs := c.eachInSavepoint(ctx, len(entries), func(txCtx context.Context, i int) ([]uint, error) {
		return c.loyaltyCardRemoved(txCtx, attr, entries[i], pending[i])
	})
	cardAffected, cardErrs := c.eachInSavepoint(ctx, len(cardIDs), func(txCtx context.Context, i int) ([]uint, error) {
		return c.PaymentCardRemoved(txCtx, attr, userID, cardIDs[i])
	})
	errs = multierr.Append(errs, cardErrs)
	if errs != nil {
		configslog.Log.Error("Kullanıcı silme temizliği kısmen başarısız", zap.Uint("user_id", userID), zap.Error(errs))
	}
	return mergeIDs(loyaltyAffected, cardAffected), errs
}

var _ ICleanupCoordinator = (*CleanupCoordinator)(nil)
