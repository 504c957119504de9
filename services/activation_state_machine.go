package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"pll.link/configs/configslog"
	"pll.link/configs/configsnetwork"
	"pll.link/models"
	"pll.link/pkg/cardnetwork"
	"pll.link/repositories"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Aktivasyon görev türleri.
const (
	TaskKindActivate   = "activation.activate"
	TaskKindDeactivate = "activation.deactivate"
)

type activationTask struct {
	RecordID uint `json:"record_id"`
}

// IActivationStateMachine (ödeme kartı, şema) başına kart ağı kaydını yöneten durum makinesi.
type IActivationStateMachine interface {
	Signal(ctx context.Context, card models.PaymentCardAccount, schemeID uint, active bool) error
	CheckLastManStanding(ctx context.Context, card models.PaymentCardAccount, schemeID uint) error
	HandleActivate(ctx context.Context, payload []byte) error
	HandleDeactivate(ctx context.Context, payload []byte) error
	RequeueStuck(ctx context.Context, olderThan time.Duration) (int, error)
}

// ActivationStateMachine IActivationStateMachine arayüzünü uygular.
type ActivationStateMachine struct {
	db         *gorm.DB
	queue      TaskEnqueuer
	client     cardnetwork.IClient
	cfg        configsnetwork.Config
	records    repositories.IActivationRepository
	links      repositories.IBaseLinkRepository
	cards      repositories.IPaymentCardRepository
	schemes    repositories.ISchemeRepository
	retryPause time.Duration
	now        func() time.Time
}

// NewActivationStateMachine yeni bir ActivationStateMachine oluşturur.
func NewActivationStateMachine(db *gorm.DB, queue TaskEnqueuer, client cardnetwork.IClient, cfg configsnetwork.Config) *ActivationStateMachine {
	return &ActivationStateMachine{
		db:         db,
		queue:      queue,
		client:     client,
		cfg:        cfg,
		records:    repositories.NewActivationRepository(db),
		links:      repositories.NewBaseLinkRepository(db),
		cards:      repositories.NewPaymentCardRepository(db),
		schemes:    repositories.NewSchemeRepository(db),
		retryPause: 200 * time.Millisecond,
		now:        time.Now,
	}
}

func (m *ActivationStateMachine) enqueue(ctx context.Context, kind string, recordID uint) error {
	return m.queue.Enqueue(ctx, repositories.DB(ctx, m.db), kind, activationTask{RecordID: recordID})
}

// Signal bir BaseLink'in active değeri değiştiğinde çağrılır.
// true: kayıt yoksa ACTIVATING olarak oluşturulur; DEACTIVATING/DEACTIVATED ise yeniden ACTIVATING olur.
// false: last-man-standing kontrolü çalışır.
func (m *ActivationStateMachine) Signal(ctx context.Context, card models.PaymentCardAccount, schemeID uint, active bool) error {
	if !m.cfg.RequiresActivation(card.PaymentScheme) {
		return nil
	}
	if !active {
		return m.CheckLastManStanding(ctx, card, schemeID)
	}

	record, created, err := m.records.GetOrCreate(ctx, card.ID, schemeID)
	if err != nil {
		configslog.Log.Error("Aktivasyon kaydı alınamadı", zap.Uint("payment_card_account_id", card.ID), zap.Uint("scheme_id", schemeID), zap.Error(err))
		return err
	}
	if created {
		configslog.SLog.Infof("Aktivasyon başlatıldı: kart %d, şema %d (kayıt %d)", card.ID, schemeID, record.ID)
		return m.enqueue(ctx, TaskKindActivate, record.ID)
	}

	switch record.Status {
	case models.ActivationStatusDeactivating, models.ActivationStatusDeactivated:
		ok, err := m.records.Transition(ctx, record.ID,
			[]models.ActivationStatus{models.ActivationStatusDeactivating, models.ActivationStatusDeactivated},
			models.ActivationStatusActivating)
		if err != nil || !ok {
			return err
		}
		configslog.SLog.Infof("Aktivasyon yeniden başlatıldı: kayıt %d (%s -> ACTIVATING)", record.ID, record.Status)
		return m.enqueue(ctx, TaskKindActivate, record.ID)
	default:
		// ACTIVATING için görev zaten kuyrukta; ACTIVATED için yapılacak bir şey yok
		return nil
	}
}

// CheckLastManStanding kart ve şema için hâlâ aktif bir BaseLink yoksa ACTIVATED kaydı DEACTIVATING yapar.
func (m *ActivationStateMachine) CheckLastManStanding(ctx context.Context, card models.PaymentCardAccount, schemeID uint) error {
	if !m.cfg.RequiresActivation(card.PaymentScheme) {
		return nil
	}
	if _, err := m.links.FindActiveForCardScheme(ctx, card.ID, schemeID); err == nil {
		return nil
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return err
	}

	record, err := m.records.FindByPair(ctx, card.ID, schemeID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if record.Status != models.ActivationStatusActivated {
		// ACTIVATING kayıtlar aktivasyon görevi tarafından yeniden kontrol edilir
		return nil
	}
	ok, err := m.records.Transition(ctx, record.ID,
		[]models.ActivationStatus{models.ActivationStatusActivated}, models.ActivationStatusDeactivating)
	if err != nil || !ok {
		return err
	}
	configslog.SLog.Infof("Son aktif link kalktı, deaktivasyon başlatıldı: kart %d, şema %d (kayıt %d)", card.ID, schemeID, record.ID)
	return m.enqueue(ctx, TaskKindDeactivate, record.ID)
}

// withRetries ağ çağrısını yapılandırılmış sayıda senkron olarak dener.
func (m *ActivationStateMachine) withRetries(ctx context.Context, op string, recordID uint, call func() error) error {
	var err error
	for attempt := 1; attempt <= m.cfg.Retries; attempt++ {
		if err = call(); err == nil {
			return nil
		}
		configslog.Log.Warn("Kart ağı çağrısı başarısız",
			zap.String("op", op), zap.Uint("record_id", recordID), zap.Int("attempt", attempt), zap.Error(err))
		if attempt < m.cfg.Retries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(m.retryPause):
			}
		}
	}
	return err
}

type activationContext struct {
	record *models.ActivationRecord
	card   *models.PaymentCardAccount
	scheme *models.Scheme
}

func (m *ActivationStateMachine) load(ctx context.Context, payload []byte, want models.ActivationStatus) (*activationContext, error) {
	var task activationTask
	if err := json.Unmarshal(payload, &task); err != nil {
		configslog.Log.Error("Aktivasyon görevi çözümlenemedi, atlanıyor", zap.Error(err))
		return nil, nil
	}
	record, err := m.records.FindByID(ctx, task.RecordID)
	if errors.Is(err, repositories.ErrNotFound) {
		configslog.SLog.Debugf("Aktivasyon kaydı %d artık yok, görev atlandı", task.RecordID)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if record.Status != want {
		configslog.SLog.Debugf("Aktivasyon kaydı %d beklenen durumda değil (%s != %s), görev atlandı", record.ID, record.Status, want)
		return nil, nil
	}
	card, err := m.cards.FindByID(ctx, record.PaymentCardAccountID)
	if err != nil {
		return nil, err
	}
	scheme, err := m.schemes.FindByID(ctx, record.SchemeID)
	if err != nil {
		return nil, err
	}
	return &activationContext{record: record, card: card, scheme: scheme}, nil
}

// HandleActivate activation.activate görevini işler. Yalnızca ACTIVATING kayıtlar için ağ çağrısı yapılır.
func (m *ActivationStateMachine) HandleActivate(ctx context.Context, payload []byte) error {
	ac, err := m.load(ctx, payload, models.ActivationStatusActivating)
	if err != nil || ac == nil {
		return err
	}
	record := ac.record

	link, err := m.links.FindActiveForCardScheme(ctx, ac.card.ID, ac.scheme.ID)
	if errors.Is(err, repositories.ErrNotFound) {
		return m.abandonActivation(ctx, record)
	}
	if err != nil {
		return err
	}

	req := cardnetwork.ActivateRequest{
		PaymentToken:         ac.card.Token,
		MerchantSlug:         ac.scheme.Slug,
		AssociationID:        link.ID,
		PaymentCardAccountID: ac.card.ID,
		SchemeAccountID:      link.LoyaltyAccountID,
	}
	var resp *cardnetwork.ActivateResponse
	err = m.withRetries(ctx, "activate", record.ID, func() error {
		r, callErr := m.client.Activate(ctx, req)
		resp = r
		return callErr
	})
	if err != nil {
		configslog.Log.Error("Aktivasyon deneme sınırına ulaştı, kayıt ACTIVATING durumunda kaldı",
			zap.Uint("record_id", record.ID), zap.Uint("payment_card_account_id", ac.card.ID), zap.Uint("scheme_id", ac.scheme.ID), zap.Error(err))
		return nil
	}

	ok, err := m.records.MarkActivated(ctx, record.ID, resp.ActivationID, req.AssociationID, req.SchemeAccountID)
	if err != nil {
		return err
	}
	if !ok {
		configslog.SLog.Infof("Aktivasyon kaydı %d çağrı sırasında değişti, ACTIVATED yazılmadı", record.ID)
		return nil
	}
	configslog.SLog.Infof("Aktivasyon tamamlandı: kayıt %d, activation_id %s", record.ID, resp.ActivationID)

	// Çağrı sürerken son link pasifleşmiş olabilir
	return repositories.RunInTx(ctx, m.db, func(txCtx context.Context) error {
		return m.CheckLastManStanding(txCtx, *ac.card, ac.scheme.ID)
	})
}

// abandonActivation görev beklerken aktif link kalmadığında çağrılır. Ağda önceki bir
// aktivasyon varsa (activation_id dolu) kayıt deaktivasyona gider, yoksa silinir.
func (m *ActivationStateMachine) abandonActivation(ctx context.Context, record *models.ActivationRecord) error {
	if record.ActivationID == "" {
		configslog.SLog.Infof("Aktivasyon kaydı %d için aktif link kalmadı, kayıt siliniyor", record.ID)
		if err := m.records.DeleteByID(ctx, record.ID); err != nil && !errors.Is(err, repositories.ErrNotFound) {
			return err
		}
		return nil
	}
	return repositories.RunInTx(ctx, m.db, func(txCtx context.Context) error {
		ok, err := m.records.Transition(txCtx, record.ID,
			[]models.ActivationStatus{models.ActivationStatusActivating}, models.ActivationStatusDeactivating)
		if err != nil || !ok {
			return err
		}
		configslog.SLog.Infof("Aktivasyon kaydı %d için aktif link kalmadı, önceki aktivasyon kaldırılacak", record.ID)
		return m.enqueue(txCtx, TaskKindDeactivate, record.ID)
	})
}

// HandleDeactivate activation.deactivate görevini işler. Başarıda kayıt DEACTIVATED olur ve silinir.
func (m *ActivationStateMachine) HandleDeactivate(ctx context.Context, payload []byte) error {
	ac, err := m.load(ctx, payload, models.ActivationStatusDeactivating)
	if err != nil || ac == nil {
		return err
	}
	record := ac.record

	if record.ActivationID != "" {
		req := cardnetwork.DeactivateRequest{
			ActivateRequest: cardnetwork.ActivateRequest{
				PaymentToken:         ac.card.Token,
				MerchantSlug:         ac.scheme.Slug,
				AssociationID:        record.AssociationID,
				PaymentCardAccountID: ac.card.ID,
				SchemeAccountID:      record.SchemeAccountID,
			},
			ActivationID: record.ActivationID,
		}
		err = m.withRetries(ctx, "deactivate", record.ID, func() error {
			return m.client.Deactivate(ctx, req)
		})
		if err != nil {
			configslog.Log.Error("Deaktivasyon deneme sınırına ulaştı, kayıt DEACTIVATING durumunda kaldı",
				zap.Uint("record_id", record.ID), zap.Uint("payment_card_account_id", ac.card.ID), zap.Uint("scheme_id", ac.scheme.ID), zap.Error(err))
			return nil
		}
	}

	ok, err := m.records.Transition(ctx, record.ID,
		[]models.ActivationStatus{models.ActivationStatusDeactivating}, models.ActivationStatusDeactivated)
	if err != nil {
		return err
	}
	if !ok {
		// Çağrı sırasında yeniden aktivasyon istendi; ACTIVATING kayıt kendi görevini bekliyor
		configslog.SLog.Infof("Deaktivasyon kaydı %d çağrı sırasında değişti, silinmedi", record.ID)
		return nil
	}
	if err := m.records.DeleteByID(ctx, record.ID); err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return err
	}
	configslog.SLog.Infof("Deaktivasyon tamamlandı, kayıt %d silindi", record.ID)
	return nil
}

// RequeueStuck olderThan süresinden beri ACTIVATING/DEACTIVATING kalan kayıtların görevlerini yeniden kuyruğa yazar.
func (m *ActivationStateMachine) RequeueStuck(ctx context.Context, olderThan time.Duration) (int, error) {
	stuck, err := m.records.ListStuck(ctx, m.now().Add(-olderThan))
	if err != nil {
		return 0, err
	}
	count := 0
	for _, record := range stuck {
		kind := TaskKindActivate
		if record.Status == models.ActivationStatusDeactivating {
			kind = TaskKindDeactivate
		}
		queued := false
		err := repositories.RunInTx(ctx, m.db, func(txCtx context.Context) error {
			// Aynı durumu tekrar yazmak updated_at'i ilerletir; kayıt bir sonraki taramada atlanır
			ok, err := m.records.Transition(txCtx, record.ID, []models.ActivationStatus{record.Status}, record.Status)
			if err != nil || !ok {
				return err
			}
			queued = true
			return m.enqueue(txCtx, kind, record.ID)
		})
		if err != nil {
			configslog.Log.Error("Takılı aktivasyon kaydı yeniden kuyruğa alınamadı", zap.Uint("record_id", record.ID), zap.Error(err))
			return count, err
		}
		if queued {
			count++
		}
	}
	configslog.SLog.Infof("%d takılı aktivasyon kaydı yeniden kuyruğa alındı", count)
	return count, nil
}

var _ IActivationStateMachine = (*ActivationStateMachine)(nil)
