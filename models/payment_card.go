package models

// PaymentCardStatus ödeme kartı hesabının sağlayıcı tarafındaki durumudur.
type PaymentCardStatus string

const (
	PaymentCardStatusPending PaymentCardStatus = "PENDING"
	PaymentCardStatusActive  PaymentCardStatus = "ACTIVE"
	PaymentCardStatusFailed  PaymentCardStatus = "FAILED"
	PaymentCardStatusExpired PaymentCardStatus = "EXPIRED"
	PaymentCardStatusUnknown PaymentCardStatus = "UNKNOWN"
)

// PaymentCardAccount birden fazla cüzdanın paylaşabildiği ödeme kartı hesabıdır.
type PaymentCardAccount struct {
	BaseModel
	PaymentScheme string            `gorm:"type:varchar(30);index;not null"` // visa, mastercard, amex
	Token         string            `gorm:"type:varchar(255);not null"`      // ağa gönderilen payment_token
	Status        PaymentCardStatus `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	IsDeleted     bool              `gorm:"default:false;index"`
}

// PaymentCardEntry kullanıcının cüzdanında bir ödeme kartı bulunduğunu gösterir.
type PaymentCardEntry struct {
	BaseModel
	UserID               uint `gorm:"not null;index:idx_payment_card_entry_user_card,unique"`
	PaymentCardAccountID uint `gorm:"not null;index:idx_payment_card_entry_user_card,unique;index"`

	PaymentCardAccount PaymentCardAccount `gorm:"foreignKey:PaymentCardAccountID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}
