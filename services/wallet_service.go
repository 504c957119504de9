package services

import (
	"context"
	"errors"
	"fmt"

	"pll.link/configs/configslog"
	"pll.link/models"
	"pll.link/repositories"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// LoyaltyCardInput cüzdana sadakat kartı eklerken üyeliğin başlangıç değerleri.
type LoyaltyCardInput struct {
	LoyaltyAccountID uint
	LinkStatus       models.LinkStatus
	Authorised       bool
	Channel          models.ChannelKind
}

// IWalletService cüzdan yazma yolu. Her çağrı etkilenen BaseLink ID'lerini döndürür.
// Link muhasebesindeki hatalar loglanır, tetikleyen isteğe yansıtılmaz.
type IWalletService interface {
	AddPaymentCard(ctx context.Context, attr models.Attribution, userID, cardID uint) ([]uint, error)
	AddLoyaltyCard(ctx context.Context, attr models.Attribution, userID uint, in LoyaltyCardInput) ([]uint, error)
	LinkPair(ctx context.Context, attr models.Attribution, userID, cardID, accountID uint) ([]uint, error)
	SetPaymentCardStatus(ctx context.Context, attr models.Attribution, cardID uint, status models.PaymentCardStatus) ([]uint, error)
	SetLoyaltyEntryStatus(ctx context.Context, attr models.Attribution, userID, accountID uint, status models.LinkStatus, authorised bool) ([]uint, error)
	RemovePaymentCard(ctx context.Context, attr models.Attribution, userID, cardID uint) ([]uint, error)
	RemoveLoyaltyCard(ctx context.Context, attr models.Attribution, userID, accountID uint) ([]uint, error)
	DeletePaymentCardAccount(ctx context.Context, attr models.Attribution, cardID uint) ([]uint, error)
	DeleteLoyaltyAccount(ctx context.Context, attr models.Attribution, accountID uint) ([]uint, error)
	DeleteUser(ctx context.Context, attr models.Attribution, userID uint) ([]uint, error)
}

// WalletService IWalletService arayüzünü uygular.
type WalletService struct {
	db       *gorm.DB
	users    repositories.IUserRepository
	cards    repositories.IPaymentCardRepository
	loyalty  repositories.ILoyaltyRepository
	viewRepo repositories.IUserLinkViewRepository
	store    IBaseLinkStore
	cleanup  ICleanupCoordinator
	hooks    IStatusHookService
}

// NewWalletService yeni bir WalletService oluşturur.
func NewWalletService(db *gorm.DB, store IBaseLinkStore, cleanup ICleanupCoordinator, hooks IStatusHookService) *WalletService {
	return &WalletService{
		db:       db,
		users:    repositories.NewUserRepository(db),
		cards:    repositories.NewPaymentCardRepository(db),
		loyalty:  repositories.NewLoyaltyRepository(db),
		viewRepo: repositories.NewUserLinkViewRepository(db),
		store:    store,
		cleanup:  cleanup,
		hooks:    hooks,
	}
}

// bookkeep link muhasebesini savepoint içinde çalıştırır. Hata olursa yalnızca savepoint geri alınır
// ve hata loglanır; tetikleyen yazma işlemi tamamlanır.
func (s *WalletService) bookkeep(ctx context.Context, op string, fn func(ctx context.Context) ([]uint, error)) []uint {
	var ids []uint
	err := repositories.RunInTx(ctx, s.db, func(txCtx context.Context) error {
		var err error
		ids, err = fn(txCtx)
		return err
	})
	if err != nil {
		configslog.Log.Error("Link muhasebesi başarısız, sonraki tetiklemede düzelecek", zap.String("op", op), zap.Error(err))
		return nil
	}
	return ids
}

func (s *WalletService) activeUser(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, repositories.ErrNotFound) || (err == nil && user.IsDeleted) {
		return nil, ErrUserNotFound
	}
	return user, err
}

func (s *WalletService) activeCard(ctx context.Context, cardID uint) (*models.PaymentCardAccount, error) {
	card, err := s.cards.FindByID(ctx, cardID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrPaymentCardNotFound
	}
	if err == nil && card.IsDeleted {
		return nil, fmt.Errorf("%w: ödeme kartı %d", ErrAccountDeleted, cardID)
	}
	return card, err
}

func (s *WalletService) activeAccount(ctx context.Context, accountID uint) (*models.LoyaltyAccount, error) {
	account, err := s.loyalty.FindAccountByID(ctx, accountID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrLoyaltyAccountNotFound
	}
	if err == nil && account.IsDeleted {
		return nil, fmt.Errorf("%w: sadakat hesabı %d", ErrAccountDeleted, accountID)
	}
	return account, err
}

// schemeConflict kullanıcının bu kartta aynı şemadan başka bir hesapla görünümü varsa true döner.
// Bir cüzdan, aynı kart üzerinde bir şemadan yalnızca bir sadakat kartı bağlayabilir.
func (s *WalletService) schemeConflict(ctx context.Context, userID, cardID uint, account models.LoyaltyAccount) (bool, error) {
	views, err := s.viewRepo.ListByUserAndPaymentCard(ctx, userID, cardID)
	if err != nil || len(views) == 0 {
		return false, err
	}
	var otherIDs []uint
	for _, v := range views {
		if v.BaseLink.LoyaltyAccountID != account.ID {
			otherIDs = append(otherIDs, v.BaseLink.LoyaltyAccountID)
		}
	}
	others, err := s.loyalty.FindAccountsByIDs(ctx, otherIDs)
	if err != nil {
		return false, err
	}
	for _, o := range others {
		if o.SchemeID == account.SchemeID {
			return true, nil
		}
	}
	return false, nil
}

// autoLink kullanıcının cüzdanındaki uyumlu (kart, hesap) çiftlerini bağlar.
func (s *WalletService) autoLink(ctx context.Context, attr models.Attribution, userID uint, pairs [][2]uint, accounts map[uint]models.LoyaltyAccount) ([]uint, error) {
	var affected []uint
	for _, p := range pairs {
		cardID, accountID := p[0], p[1]
		conflict, err := s.schemeConflict(ctx, userID, cardID, accounts[accountID])
		if err != nil {
			return nil, err
		}
		if conflict {
			configslog.SLog.Debugf("Otomatik bağlama atlandı: kullanıcı %d, kart %d, hesap %d (aynı şema zaten bağlı)", userID, cardID, accountID)
			continue
		}
		_, ids, err := s.store.UpsertAndRecompute(ctx, attr, userID, cardID, accountID)
		if err != nil {
			return nil, err
		}
		affected = append(affected, ids...)
	}
	return mergeIDs(affected), nil
}

// AddPaymentCard kartı cüzdana ekler ve cüzdandaki her sadakat kartına otomatik bağlar.
func (s *WalletService) AddPaymentCard(ctx context.Context, attr models.Attribution, userID, cardID uint) ([]uint, error) {
	var affected []uint
	err := repositories.RunInTx(ctx, s.db, func(ctx context.Context) error {
		if _, err := s.activeUser(ctx, userID); err != nil {
			return err
		}
		if _, err := s.activeCard(ctx, cardID); err != nil {
			return err
		}
		created, err := s.cards.AddEntry(ctx, userID, cardID)
		if err != nil {
			return err
		}
		if created {
			configslog.SLog.Infof("Ödeme kartı %d kullanıcı %d cüzdanına eklendi", cardID, userID)
		}

		affected = s.bookkeep(ctx, "add_payment_card", func(ctx context.Context) ([]uint, error) {
			entries, err := s.loyalty.ListEntriesByUser(ctx, userID)
			if err != nil {
				return nil, err
			}
			accounts := make(map[uint]models.LoyaltyAccount)
			var pairs [][2]uint
			for _, e := range entries {
				if e.LoyaltyAccount.IsDeleted {
					continue
				}
				accounts[e.LoyaltyAccountID] = e.LoyaltyAccount
				pairs = append(pairs, [2]uint{cardID, e.LoyaltyAccountID})
			}
			return s.autoLink(ctx, attr, userID, pairs, accounts)
		})
		return nil
	})
	return affected, err
}

// AddLoyaltyCard kullanıcıyı sadakat hesabına üye yapar ve cüzdandaki her ödeme kartına otomatik bağlar.
// Yeni üyelik hesabın etkin durumunu değiştirebileceği için hesabın diğer kartları da yeniden çözülür.
func (s *WalletService) AddLoyaltyCard(ctx context.Context, attr models.Attribution, userID uint, in LoyaltyCardInput) ([]uint, error) {
	if in.LoyaltyAccountID == 0 {
		return nil, fmt.Errorf("%w: sadakat hesabı belirtilmedi", ErrInvalidInput)
	}
	if in.LinkStatus == "" {
		in.LinkStatus = models.LinkStatusPending
	}
	var affected []uint
	err := repositories.RunInTx(ctx, s.db, func(ctx context.Context) error {
		if _, err := s.activeUser(ctx, userID); err != nil {
			return err
		}
		account, err := s.activeAccount(ctx, in.LoyaltyAccountID)
		if err != nil {
			return err
		}
		entry := &models.LoyaltyEntry{
			UserID:           userID,
			LoyaltyAccountID: account.ID,
			LinkStatus:       in.LinkStatus,
			Authorised:       in.Authorised,
			Channel:          in.Channel,
		}
		created, err := s.loyalty.AddEntry(ctx, entry)
		if err != nil {
			return err
		}
		if created {
			configslog.SLog.Infof("Sadakat hesabı %d kullanıcı %d cüzdanına eklendi (%s)", account.ID, userID, entry.Channel)
		}

		affected = s.bookkeep(ctx, "add_loyalty_card", func(ctx context.Context) ([]uint, error) {
			cardEntries, err := s.cards.ListEntriesByUser(ctx, userID)
			if err != nil {
				return nil, err
			}
			accounts := map[uint]models.LoyaltyAccount{account.ID: *account}
			var pairs [][2]uint
			for _, ce := range cardEntries {
				if ce.PaymentCardAccount.IsDeleted {
					continue
				}
				pairs = append(pairs, [2]uint{ce.PaymentCardAccountID, account.ID})
			}
			linked, err := s.autoLink(ctx, attr, userID, pairs, accounts)
			if err != nil {
				return nil, err
			}
			rest, err := s.store.RecomputeLoyaltyAccount(ctx, attr, account.ID)
			return mergeIDs(linked, rest), err
		})
		return nil
	})
	return affected, err
}

// LinkPair kullanıcının cüzdanındaki bir kartı bir sadakat hesabına açıkça bağlar.
func (s *WalletService) LinkPair(ctx context.Context, attr models.Attribution, userID, cardID, accountID uint) ([]uint, error) {
	var affected []uint
	err := repositories.RunInTx(ctx, s.db, func(ctx context.Context) error {
		if _, err := s.activeUser(ctx, userID); err != nil {
			return err
		}
		if _, err := s.activeCard(ctx, cardID); err != nil {
			return err
		}
		account, err := s.activeAccount(ctx, accountID)
		if err != nil {
			return err
		}
		if err := s.requireCardInWallet(ctx, userID, cardID); err != nil {
			return err
		}
		if _, err := s.loyalty.FindEntry(ctx, userID, accountID); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return fmt.Errorf("%w: sadakat hesabı %d", ErrNotInWallet, accountID)
			}
			return err
		}
		conflict, err := s.schemeConflict(ctx, userID, cardID, *account)
		if err != nil {
			return err
		}
		if conflict {
			return ErrSchemeAlreadyLinked
		}

		affected = s.bookkeep(ctx, "link_pair", func(ctx context.Context) ([]uint, error) {
			_, ids, err := s.store.UpsertAndRecompute(ctx, attr, userID, cardID, accountID)
			return ids, err
		})
		return nil
	})
	return affected, err
}

func (s *WalletService) requireCardInWallet(ctx context.Context, userID, cardID uint) error {
	entries, err := s.cards.ListEntriesByUser(ctx, userID)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.PaymentCardAccountID == cardID {
			return nil
		}
	}
	return fmt.Errorf("%w: ödeme kartı %d", ErrNotInWallet, cardID)
}

// SetPaymentCardStatus kartın sağlayıcı durumunu yazar ve değişikliği bildirir.
func (s *WalletService) SetPaymentCardStatus(ctx context.Context, attr models.Attribution, cardID uint, status models.PaymentCardStatus) ([]uint, error) {
	var affected []uint
	err := repositories.RunInTx(ctx, s.db, func(ctx context.Context) error {
		if err := s.cards.UpdateStatus(ctx, cardID, status); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return ErrPaymentCardNotFound
			}
			return err
		}
		affected = s.bookkeep(ctx, "payment_card_status", func(ctx context.Context) ([]uint, error) {
			return s.hooks.PaymentCardChanged(ctx, attr, cardID, []string{"status"})
		})
		return nil
	})
	return affected, err
}

// SetLoyaltyEntryStatus kullanıcının üyelik durumunu ve yetkisini yazar ve değişikliği bildirir.
func (s *WalletService) SetLoyaltyEntryStatus(ctx context.Context, attr models.Attribution, userID, accountID uint, status models.LinkStatus, authorised bool) ([]uint, error) {
	var affected []uint
	err := repositories.RunInTx(ctx, s.db, func(ctx context.Context) error {
		err := s.loyalty.UpdateEntry(ctx, userID, accountID, map[string]interface{}{
			"link_status": status,
			"authorised":  authorised,
		})
		if errors.Is(err, repositories.ErrNotFound) {
			return fmt.Errorf("%w: sadakat hesabı %d", ErrNotInWallet, accountID)
		}
		if err != nil {
			return err
		}
		affected = s.bookkeep(ctx, "loyalty_entry_status", func(ctx context.Context) ([]uint, error) {
			return s.hooks.LoyaltyEntryChanged(ctx, attr, userID, accountID, []string{"link_status", "authorised"})
		})
		return nil
	})
	return affected, err
}

// RemovePaymentCard kartı kullanıcının cüzdanından çıkarır. Kartı tutan başka cüzdan kalmazsa kart silinmiş sayılır.
func (s *WalletService) RemovePaymentCard(ctx context.Context, attr models.Attribution, userID, cardID uint) ([]uint, error) {
	var affected []uint
	err := repositories.RunInTx(ctx, s.db, func(ctx context.Context) error {
		if err := s.cards.DeleteEntry(ctx, userID, cardID); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return fmt.Errorf("%w: ödeme kartı %d", ErrNotInWallet, cardID)
			}
			return err
		}
		remaining, err := s.cards.CountEntries(ctx, cardID)
		if err != nil {
			return err
		}
		if remaining == 0 {
			if err := s.cards.MarkDeleted(ctx, cardID); err != nil {
				return err
			}
			configslog.SLog.Infof("Ödeme kartı %d son cüzdandan da çıkarıldı, silindi olarak işaretlendi", cardID)
		}
		affected = s.bookkeep(ctx, "remove_payment_card", func(ctx context.Context) ([]uint, error) {
			return s.cleanup.PaymentCardRemoved(ctx, attr, userID, cardID)
		})
		return nil
	})
	return affected, err
}

// RemoveLoyaltyCard sadakat kartını kullanıcının cüzdanından çıkarır.
func (s *WalletService) RemoveLoyaltyCard(ctx context.Context, attr models.Attribution, userID, accountID uint) ([]uint, error) {
	var affected []uint
	err := repositories.RunInTx(ctx, s.db, func(ctx context.Context) error {
		entry, err := s.loyalty.FindEntry(ctx, userID, accountID)
		if errors.Is(err, repositories.ErrNotFound) {
			return fmt.Errorf("%w: sadakat hesabı %d", ErrNotInWallet, accountID)
		}
		if err != nil {
			return err
		}
		if err := s.loyalty.DeleteEntry(ctx, userID, accountID); err != nil {
			return err
		}
		remaining, err := s.loyalty.ListEntriesByAccounts(ctx, []uint{accountID})
		if err != nil {
			return err
		}
		if len(remaining) == 0 {
			if err := s.loyalty.MarkAccountDeleted(ctx, accountID); err != nil {
				return err
			}
			configslog.SLog.Infof("Sadakat hesabı %d son cüzdandan da çıkarıldı, silindi olarak işaretlendi", accountID)
		}
		affected = s.bookkeep(ctx, "remove_loyalty_card", func(ctx context.Context) ([]uint, error) {
			return s.cleanup.LoyaltyCardRemoved(ctx, attr, *entry)
		})
		return nil
	})
	return affected, err
}

// DeletePaymentCardAccount kart hesabını tüm cüzdanlardan kaldırır ve silindi olarak işaretler.
func (s *WalletService) DeletePaymentCardAccount(ctx context.Context, attr models.Attribution, cardID uint) ([]uint, error) {
	var affected []uint
	err := repositories.RunInTx(ctx, s.db, func(ctx context.Context) error {
		if _, err := s.cards.FindByID(ctx, cardID); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return ErrPaymentCardNotFound
			}
			return err
		}
		entries, err := s.cards.ListEntriesByCard(ctx, cardID)
		if err != nil {
			return err
		}
		userIDs := make([]uint, 0, len(entries))
		for _, e := range entries {
			if err := s.cards.DeleteEntry(ctx, e.UserID, cardID); err != nil && !errors.Is(err, repositories.ErrNotFound) {
				return err
			}
			userIDs = append(userIDs, e.UserID)
		}
		if err := s.cards.MarkDeleted(ctx, cardID); err != nil {
			return err
		}
		configslog.SLog.Infof("Ödeme kartı %d silindi (%d cüzdan)", cardID, len(userIDs))

		// Her cüzdanın temizliği kendi savepoint'inde; kısmi hata diğerlerini geri almaz
		affected, err = s.cleanup.PaymentCardAccountDeleted(ctx, attr, cardID, userIDs)
		if err != nil {
			configslog.Log.Error("Link muhasebesi kısmen başarısız", zap.String("op", "delete_payment_card_account"), zap.Error(err))
		}
		return nil
	})
	return affected, err
}

// DeleteLoyaltyAccount sadakat hesabını tüm cüzdanlardan kaldırır ve silindi olarak işaretler.
func (s *WalletService) DeleteLoyaltyAccount(ctx context.Context, attr models.Attribution, accountID uint) ([]uint, error) {
	var affected []uint
	err := repositories.RunInTx(ctx, s.db, func(ctx context.Context) error {
		if _, err := s.loyalty.FindAccountByID(ctx, accountID); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return ErrLoyaltyAccountNotFound
			}
			return err
		}
		entries, err := s.loyalty.ListEntriesByAccounts(ctx, []uint{accountID})
		if err != nil {
			return err
		}
		for _, e := range entries {
			if err := s.loyalty.DeleteEntry(ctx, e.UserID, accountID); err != nil && !errors.Is(err, repositories.ErrNotFound) {
				return err
			}
		}
		if err := s.loyalty.MarkAccountDeleted(ctx, accountID); err != nil {
			return err
		}
		configslog.SLog.Infof("Sadakat hesabı %d silindi (%d cüzdan)", accountID, len(entries))

		affected, err = s.cleanup.LoyaltyAccountDeleted(ctx, attr, accountID, entries)
		if err != nil {
			configslog.Log.Error("Link muhasebesi kısmen başarısız", zap.String("op", "delete_loyalty_account"), zap.Error(err))
		}
		return nil
	})
	return affected, err
}

// DeleteUser kullanıcının tüm üyeliklerini kaldırır, sahipsiz kalan hesapları silindi olarak işaretler
// ve kullanıcıyı siler.
func (s *WalletService) DeleteUser(ctx context.Context, attr models.Attribution, userID uint) ([]uint, error) {
	var affected []uint
	err := repositories.RunInTx(ctx, s.db, func(ctx context.Context) error {
		if _, err := s.activeUser(ctx, userID); err != nil {
			return err
		}
		cardEntries, err := s.cards.ListEntriesByUser(ctx, userID)
		if err != nil {
			return err
		}
		loyaltyEntries, err := s.loyalty.ListEntriesByUser(ctx, userID)
		if err != nil {
			return err
		}

		cardIDs := make([]uint, 0, len(cardEntries))
		for _, e := range cardEntries {
			if err := s.cards.DeleteEntry(ctx, userID, e.PaymentCardAccountID); err != nil && !errors.Is(err, repositories.ErrNotFound) {
				return err
			}
			cardIDs = append(cardIDs, e.PaymentCardAccountID)
			remaining, err := s.cards.CountEntries(ctx, e.PaymentCardAccountID)
			if err != nil {
				return err
			}
			if remaining == 0 {
				if err := s.cards.MarkDeleted(ctx, e.PaymentCardAccountID); err != nil {
					return err
				}
			}
		}
		for _, e := range loyaltyEntries {
			if err := s.loyalty.DeleteEntry(ctx, userID, e.LoyaltyAccountID); err != nil && !errors.Is(err, repositories.ErrNotFound) {
				return err
			}
			remaining, err := s.loyalty.ListEntriesByAccounts(ctx, []uint{e.LoyaltyAccountID})
			if err != nil {
				return err
			}
			if len(remaining) == 0 {
				if err := s.loyalty.MarkAccountDeleted(ctx, e.LoyaltyAccountID); err != nil {
					return err
				}
			}
		}
		if err := s.users.MarkDeleted(ctx, userID); err != nil {
			return err
		}
		configslog.SLog.Infof("Kullanıcı %d silindi (%d ödeme kartı, %d sadakat kartı)", userID, len(cardIDs), len(loyaltyEntries))

		affected, err = s.cleanup.UserDeleted(ctx, attr, userID, cardIDs, loyaltyEntries)
		if err != nil {
			configslog.Log.Error("Link muhasebesi kısmen başarısız", zap.String("op", "delete_user"), zap.Error(err))
		}
		return nil
	})
	return affected, err
}

var _ IWalletService = (*WalletService)(nil)
