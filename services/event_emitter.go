package services

import (
	"context"

	"pll.link/configs/configslog"
	"pll.link/models"
	"pll.link/pkg/events"
	"pll.link/repositories"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TaskEnqueuer görev kuyruğuna yazan taraf. *taskqueue.Queue bunu sağlar.
type TaskEnqueuer interface {
	Enqueue(ctx context.Context, db *gorm.DB, kind string, payload any) error
}

// EventEmitter olayları tetikleyen transaction içinde event.publish görevi olarak kuyruğa yazar.
type EventEmitter struct {
	db    *gorm.DB
	queue TaskEnqueuer
	users repositories.IUserRepository
	salt  string
}

// NewEventEmitter yeni bir EventEmitter oluşturur.
func NewEventEmitter(db *gorm.DB, queue TaskEnqueuer, salt string) *EventEmitter {
	return &EventEmitter{db: db, queue: queue, users: repositories.NewUserRepository(db), salt: salt}
}

// Emit olayı kuyruğa yazar.
func (e *EventEmitter) Emit(ctx context.Context, ev events.Event) error {
	if err := e.queue.Enqueue(ctx, repositories.DB(ctx, e.db), events.TaskKindPublish, ev); err != nil {
		configslog.Log.Error("Olay kuyruğa yazılamadı", zap.String("event_type", ev.Type), zap.Error(err))
		return err
	}
	return nil
}

// userRefs kullanıcı ID'lerini user_ref değerlerine çevirir. Bulunamayan kullanıcı boş ref alır.
func (e *EventEmitter) userRefs(ctx context.Context, userIDs []uint) (map[uint]string, error) {
	users, err := e.users.FindByIDs(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	refs := make(map[uint]string, len(userIDs))
	for _, id := range userIDs {
		if u, ok := users[id]; ok {
			refs[id] = events.UserRef(e.salt, u.ExternalID)
		}
	}
	return refs, nil
}

// EmitStatusChanges durumu değişen her görünüm için pll_link.statuschange yayınlar.
func (e *EventEmitter) EmitStatusChanges(ctx context.Context, attr models.Attribution, outcomes []ViewOutcome) error {
	var userIDs []uint
	for _, o := range outcomes {
		if o.StateChanged() {
			userIDs = append(userIDs, o.UserID)
		}
	}
	if len(userIDs) == 0 {
		return nil
	}
	refs, err := e.userRefs(ctx, userIDs)
	if err != nil {
		return err
	}
	for _, o := range outcomes {
		if !o.StateChanged() {
			continue
		}
		ev := events.StatusChange(events.StatusChangeInput{
			UserRef:          refs[o.UserID],
			PaymentAccountID: o.PaymentCardAccountID,
			SchemeAccountID:  o.LoyaltyAccountID,
			Slug:             o.ToSlug,
			FromState:        string(o.FromState),
			ToState:          string(o.ToState),
			Channel:          attr.ChannelSlug,
		})
		if err := e.Emit(ctx, ev); err != nil {
			return err
		}
	}
	return nil
}

// EmitLoyaltyCardRemoved cüzdan düzeyindeki kaldırma olayını ve gerekirse kanal sınıfı olayını yayınlar.
// lastInChannel true ise, aynı kanal sınıfında hesabı tutan başka cüzdan kalmamıştır.
func (e *EventEmitter) EmitLoyaltyCardRemoved(ctx context.Context, attr models.Attribution, entry models.LoyaltyEntry, schemeSlug string, lastInChannel bool) error {
	refs, err := e.userRefs(ctx, []uint{entry.UserID})
	if err != nil {
		return err
	}
	in := events.LoyaltyCardRemovedInput{
		UserRef:         refs[entry.UserID],
		SchemeAccountID: entry.LoyaltyAccountID,
		SchemeSlug:      schemeSlug,
		Channel:         string(entry.Channel),
		ChannelSlug:     attr.ChannelSlug,
	}
	if err := e.Emit(ctx, events.LoyaltyCardRemoved(in)); err != nil {
		return err
	}
	if !lastInChannel {
		return nil
	}
	return e.Emit(ctx, events.LoyaltyCardRemovedAcrossChannels(entry.Channel == models.ChannelTrusted, in))
}
