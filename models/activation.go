package models

// ActivationStatus kart ağı (VOP) aktivasyon durumudur.
type ActivationStatus string

const (
	ActivationStatusActivating   ActivationStatus = "ACTIVATING"
	ActivationStatusActivated    ActivationStatus = "ACTIVATED"
	ActivationStatusDeactivating ActivationStatus = "DEACTIVATING"
	ActivationStatusDeactivated  ActivationStatus = "DEACTIVATED"
)

// ActivationRecord (ödeme kartı, şema) çifti başına ağ kaydını izler.
type ActivationRecord struct {
	BaseModel
	PaymentCardAccountID uint             `gorm:"not null;index:idx_activation_card_scheme,unique"`
	SchemeID             uint             `gorm:"not null;index:idx_activation_card_scheme,unique;index"`
	Status               ActivationStatus `gorm:"type:varchar(20);not null;index"`
	ActivationID         string           `gorm:"type:varchar(100)"` // ağın döndürdüğü referans
	AssociationID        uint             // aktivasyonda gönderilen BaseLink
	SchemeAccountID      uint             // aktivasyonda gönderilen sadakat hesabı

	PaymentCardAccount PaymentCardAccount `gorm:"foreignKey:PaymentCardAccountID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Scheme             Scheme             `gorm:"foreignKey:SchemeID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;"`
}
