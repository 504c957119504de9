package models

// LinkState kullanıcının gördüğü link durumudur.
type LinkState string

const (
	LinkStateActive   LinkState = "ACTIVE"
	LinkStatePending  LinkState = "PENDING"
	LinkStateInactive LinkState = "INACTIVE"
)

// Slug'lar kullanıcıya gösterilen gerekçe kodlarıdır. Boş slug "sağlıklı" demektir.
const (
	SlugHealthy                              = ""
	SlugPaymentAccountPending                = "PAYMENT_ACCOUNT_PENDING"
	SlugPaymentAccountInactive               = "PAYMENT_ACCOUNT_INACTIVE"
	SlugLoyaltyCardPending                   = "LOYALTY_CARD_PENDING"
	SlugLoyaltyCardNotAuthorised             = "LOYALTY_CARD_NOT_AUTHORISED"
	SlugPaymentAccountAndLoyaltyCardPending  = "PAYMENT_ACCOUNT_AND_LOYALTY_CARD_PENDING"
	SlugPaymentAccountAndLoyaltyCardInactive = "PAYMENT_ACCOUNT_AND_LOYALTY_CARD_INACTIVE"
	SlugUbiquityCollision                    = "UBIQUITY_COLLISION"
)

// UserLinkView bir kullanıcının BaseLink üzerindeki kendi görünümüdür.
type UserLinkView struct {
	BaseModel
	UserID     uint      `gorm:"not null;index:idx_user_link_view_user_link,unique;index"`
	BaseLinkID uint      `gorm:"not null;index:idx_user_link_view_user_link,unique;index"`
	State      LinkState `gorm:"type:varchar(10);not null;default:'PENDING'"`
	Slug       string    `gorm:"type:varchar(50);not null;default:''"`

	BaseLink BaseLink `gorm:"foreignKey:BaseLinkID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

// IsHealthyActive kullanıcıya gerçekten aktif gösterilen görünüm.
func (v UserLinkView) IsHealthyActive() bool {
	return v.State == LinkStateActive && v.Slug == SlugHealthy
}
