package models

// BaseLink bir ödeme kartı hesabı ile bir sadakat hesabı arasındaki, cüzdandan bağımsız tek kayıttır.
// Active yalnızca yeniden hesaplama yoluyla yazılır; çağıranlar doğrudan değiştirmez.
type BaseLink struct {
	BaseModel
	PaymentCardAccountID uint `gorm:"not null;index:idx_base_link_pair,unique;index"`
	LoyaltyAccountID     uint `gorm:"not null;index:idx_base_link_pair,unique;index"`
	Active               bool `gorm:"default:false;index"`
	// Suppressed bağlantının bir ubiquity çakışmasını kaybettiğini gösterir.
	Suppressed bool `gorm:"default:false"`

	PaymentCardAccount PaymentCardAccount `gorm:"foreignKey:PaymentCardAccountID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	LoyaltyAccount     LoyaltyAccount     `gorm:"foreignKey:LoyaltyAccountID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}
