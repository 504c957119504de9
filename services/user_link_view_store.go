package services

import (
	"context"
	"errors"

	"pll.link/configs/configslog"
	"pll.link/models"
	"pll.link/repositories"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// IUserLinkViewStore kullanıcıya özel link görünümlerinin yaşam döngüsü.
type IUserLinkViewStore interface {
	Ensure(ctx context.Context, userID, baseLinkID uint) (*models.UserLinkView, bool, error)
	Apply(ctx context.Context, attr models.Attribution, outcomes []ViewOutcome) (int, error)
	Delete(ctx context.Context, attr models.Attribution, views []models.UserLinkView) ([]uint, error)
}

// UserLinkViewStore IUserLinkViewStore arayüzünü uygular.
type UserLinkViewStore struct {
	views   repositories.IUserLinkViewRepository
	links   repositories.IBaseLinkRepository
	emitter *EventEmitter
}

// NewUserLinkViewStore yeni bir UserLinkViewStore oluşturur.
func NewUserLinkViewStore(db *gorm.DB, emitter *EventEmitter) *UserLinkViewStore {
	return &UserLinkViewStore{
		views:   repositories.NewUserLinkViewRepository(db),
		links:   repositories.NewBaseLinkRepository(db),
		emitter: emitter,
	}
}

// Ensure kullanıcının BaseLink üzerindeki görünümünü oluşturur (yoksa PENDING).
func (s *UserLinkViewStore) Ensure(ctx context.Context, userID, baseLinkID uint) (*models.UserLinkView, bool, error) {
	view, created, err := s.views.GetOrCreate(ctx, userID, baseLinkID)
	if err != nil {
		return nil, false, err
	}
	if created {
		configslog.SLog.Debugf("UserLinkView oluşturuldu: kullanıcı %d, BaseLink %d", userID, baseLinkID)
	}
	return view, created, nil
}

// Apply çözümleyicinin değişen görünüm çıktılarını yazar ve durum geçişleri için olay yayınlar.
// Yazılan görünüm sayısını döndürür. Eşzamanlı silinmiş görünümler sessizce atlanır.
func (s *UserLinkViewStore) Apply(ctx context.Context, attr models.Attribution, outcomes []ViewOutcome) (int, error) {
	var written []ViewOutcome
	for _, o := range outcomes {
		if !o.Changed() {
			continue
		}
		err := s.views.UpdateState(ctx, o.ViewID, o.ToState, o.ToSlug)
		if errors.Is(err, repositories.ErrNotFound) {
			configslog.SLog.Debugf("UserLinkView %d güncelleme sırasında silinmiş, atlandı", o.ViewID)
			continue
		}
		if err != nil {
			configslog.Log.Error("UserLinkView güncellenemedi", zap.Uint("view_id", o.ViewID), zap.Error(err))
			return len(written), err
		}
		configslog.Log.Debug("UserLinkView güncellendi",
			zap.Uint("view_id", o.ViewID), zap.Uint("user_id", o.UserID),
			zap.String("from_state", string(o.FromState)), zap.String("to_state", string(o.ToState)),
			zap.String("slug", o.ToSlug))
		written = append(written, o)
	}
	if s.emitter != nil {
		if err := s.emitter.EmitStatusChanges(ctx, attr, written); err != nil {
			return len(written), err
		}
	}
	return len(written), nil
}

// Delete görünümleri siler ve etkilenen BaseLink ID'lerini (tekrarsız) döndürür.
// ACTIVE görünümün silinmesi ACTIVE -> INACTIVE geçişi olarak yayınlanır.
func (s *UserLinkViewStore) Delete(ctx context.Context, attr models.Attribution, views []models.UserLinkView) ([]uint, error) {
	if len(views) == 0 {
		return nil, nil
	}
	ids := make([]uint, 0, len(views))
	seen := make(map[uint]bool)
	var linkIDs []uint
	for _, v := range views {
		ids = append(ids, v.ID)
		if !seen[v.BaseLinkID] {
			seen[v.BaseLinkID] = true
			linkIDs = append(linkIDs, v.BaseLinkID)
		}
	}
	if err := s.views.DeleteByIDs(ctx, ids); err != nil {
		return nil, err
	}
	configslog.SLog.Debugf("%d UserLinkView silindi", len(ids))

	if err := s.emitDeparted(ctx, attr, views); err != nil {
		return nil, err
	}
	return linkIDs, nil
}

func (s *UserLinkViewStore) emitDeparted(ctx context.Context, attr models.Attribution, views []models.UserLinkView) error {
	if s.emitter == nil {
		return nil
	}
	var active []models.UserLinkView
	var linkIDs []uint
	for _, v := range views {
		if v.State == models.LinkStateActive {
			active = append(active, v)
			linkIDs = append(linkIDs, v.BaseLinkID)
		}
	}
	if len(active) == 0 {
		return nil
	}
	links, err := s.links.ListByIDs(ctx, mergeIDs(linkIDs))
	if err != nil {
		return err
	}
	byID := make(map[uint]models.BaseLink, len(links))
	for _, l := range links {
		byID[l.ID] = l
	}
	outcomes := make([]ViewOutcome, 0, len(active))
	for _, v := range active {
		l := byID[v.BaseLinkID]
		outcomes = append(outcomes, ViewOutcome{
			ViewID:               v.ID,
			UserID:               v.UserID,
			BaseLinkID:           v.BaseLinkID,
			PaymentCardAccountID: l.PaymentCardAccountID,
			LoyaltyAccountID:     l.LoyaltyAccountID,
			FromState:            v.State,
			FromSlug:             v.Slug,
			ToState:              models.LinkStateInactive,
		})
	}
	return s.emitter.EmitStatusChanges(ctx, attr, outcomes)
}

var _ IUserLinkViewStore = (*UserLinkViewStore)(nil)
