// Package events denetim/olay (audit/event) toplayıcısına giden olayları tanımlar ve yayınlar.
package events

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"pll.link/configs/configslog"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"
)

// Olay türleri.
const (
	TypePLLStatusChange           = "pll_link.statuschange"
	TypeLoyaltyCardRemoved        = "loyalty_card.removed"
	TypeLoyaltyCardRemovedTrusted = "loyalty_card.removed.trusted"
	TypeLoyaltyCardRemovedGeneral = "loyalty_card.removed.general"
	TaskKindPublish               = "event.publish"
)

// Event toplayıcıya gönderilen tek olaydır.
type Event struct {
	ID         uuid.UUID      `json:"id"`
	Type       string         `json:"event_type"`
	OccurredAt time.Time      `json:"occurred_at"`
	Payload    map[string]any `json:"payload"`
}

// New kimliği ve zamanı atanmış olay oluşturur.
func New(eventType string, payload map[string]any) Event {
	return Event{ID: uuid.New(), Type: eventType, OccurredAt: time.Now().UTC(), Payload: payload}
}

// UserRef kullanıcının harici kimliğinden tuzlanmış, geri döndürülemez bir referans üretir.
func UserRef(salt, externalID string) string {
	sum := blake2b.Sum256([]byte(salt + ":" + externalID))
	return hex.EncodeToString(sum[:])
}

// StatusChangeInput pll_link.statuschange olayının alanları.
type StatusChangeInput struct {
	UserRef          string
	PaymentAccountID uint
	SchemeAccountID  uint
	Slug             string
	FromState        string
	ToState          string
	Channel          string
}

// StatusChange UserLinkView durum geçişi olayı.
func StatusChange(in StatusChangeInput) Event {
	return New(TypePLLStatusChange, map[string]any{
		"event_type":         TypePLLStatusChange,
		"user_ref":           in.UserRef,
		"payment_account_id": in.PaymentAccountID,
		"scheme_account_id":  in.SchemeAccountID,
		"slug":               in.Slug,
		"from_state":         in.FromState,
		"to_state":           in.ToState,
		"channel":            in.Channel,
	})
}

// LoyaltyCardRemovedInput kaldırma olaylarının alanları.
type LoyaltyCardRemovedInput struct {
	UserRef         string
	SchemeAccountID uint
	SchemeSlug      string
	Channel         string // GENERAL / TRUSTED
	ChannelSlug     string
}

func removedPayload(eventType string, in LoyaltyCardRemovedInput) map[string]any {
	return map[string]any{
		"event_type":        eventType,
		"user_ref":          in.UserRef,
		"scheme_account_id": in.SchemeAccountID,
		"scheme_slug":       in.SchemeSlug,
		"origin":            in.Channel,
		"channel":           in.ChannelSlug,
	}
}

// LoyaltyCardRemoved tek cüzdandan kaldırma olayı.
func LoyaltyCardRemoved(in LoyaltyCardRemovedInput) Event {
	return New(TypeLoyaltyCardRemoved, removedPayload(TypeLoyaltyCardRemoved, in))
}

// LoyaltyCardRemovedAcrossChannels kanal sınıfındaki son cüzdan da kartı bıraktığında yayınlanır.
func LoyaltyCardRemovedAcrossChannels(trusted bool, in LoyaltyCardRemovedInput) Event {
	t := TypeLoyaltyCardRemovedGeneral
	if trusted {
		t = TypeLoyaltyCardRemovedTrusted
	}
	return New(t, removedPayload(t, in))
}

// Publisher olayı dışarı iletir.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// LogPublisher olayları yapılandırılmış log olarak yazar.
type LogPublisher struct {
	logger *zap.Logger
}

// NewLogPublisher zap logger ile yayıncı oluşturur; nil ise global logger kullanılır.
func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish olayı loglar.
func (p *LogPublisher) Publish(_ context.Context, e Event) error {
	logger := p.logger
	if logger == nil {
		logger = configslog.Log
	}
	logger.Info("event",
		zap.String("event_id", e.ID.String()),
		zap.String("event_type", e.Type),
		zap.Time("occurred_at", e.OccurredAt),
		zap.Any("payload", e.Payload),
	)
	return nil
}

// HTTPPublisher olayları bir HTTP toplayıcıya JSON olarak gönderir.
type HTTPPublisher struct {
	url     string
	timeout time.Duration
}

// NewHTTPPublisher yeni bir HTTP yayıncısı oluşturur.
func NewHTTPPublisher(url string, timeout time.Duration) *HTTPPublisher {
	return &HTTPPublisher{url: url, timeout: timeout}
}

// Publish olayı POST eder; 2xx dışı yanıt hatadır ve görev yeniden denenir.
func (p *HTTPPublisher) Publish(ctx context.Context, e Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	agent := fiber.Post(p.url)
	agent.Timeout(p.timeout)
	agent.JSON(e)
	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("olay gönderilemedi: %w", errors.Join(errs...))
	}
	if code < 200 || code >= 300 {
		return fmt.Errorf("olay toplayıcısı HTTP %d döndürdü: %s", code, string(body))
	}
	return nil
}

// TaskHandler kuyruktaki event.publish görevlerini yayıncıya iletir.
func TaskHandler(pub Publisher) func(ctx context.Context, payload []byte) error {
	return func(ctx context.Context, payload []byte) error {
		var e Event
		if err := json.Unmarshal(payload, &e); err != nil {
			// Bozuk veri tekrar denemekle düzelmez
			configslog.Log.Error("Olay görevi çözümlenemedi, atlanıyor", zap.Error(err))
			return nil
		}
		return pub.Publish(ctx, e)
	}
}

var (
	_ Publisher = (*LogPublisher)(nil)
	_ Publisher = (*HTTPPublisher)(nil)
)
