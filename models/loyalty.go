package models

// LinkStatus sadakat kartı üyeliğinin (kullanıcı başına) bağlanma durumudur.
type LinkStatus string

const (
	LinkStatusPending            LinkStatus = "PENDING"
	LinkStatusActive             LinkStatus = "ACTIVE"
	LinkStatusAuthFailed         LinkStatus = "AUTH_FAILED"
	LinkStatusJoinFailed         LinkStatus = "JOIN_FAILED"
	LinkStatusInvalidCredentials LinkStatus = "INVALID_CREDENTIALS"
	LinkStatusUnknownError       LinkStatus = "UNKNOWN_ERROR"
)

// ChannelKind üyeliğin hangi tür kanaldan geldiğini belirtir.
type ChannelKind string

const (
	// ChannelGeneral çok merchant'lı genel cüzdan kanalı.
	ChannelGeneral ChannelKind = "GENERAL"
	// ChannelTrusted tek merchant'a ait güvenilir kanal.
	ChannelTrusted ChannelKind = "TRUSTED"
)

// LoyaltyAccount ("scheme account") cüzdanlar arasında paylaşılabilen sadakat hesabıdır.
type LoyaltyAccount struct {
	BaseModel
	SchemeID  uint `gorm:"not null;index"`
	IsDeleted bool `gorm:"default:false;index"`

	Scheme Scheme `gorm:"foreignKey:SchemeID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;"`
}

// LoyaltyEntry kullanıcının sadakat hesabına üyeliğidir; durum ve yetki bilgisi kullanıcıya özeldir.
type LoyaltyEntry struct {
	BaseModel
	UserID           uint        `gorm:"not null;index:idx_loyalty_entry_user_account,unique"`
	LoyaltyAccountID uint        `gorm:"not null;index:idx_loyalty_entry_user_account,unique;index"`
	LinkStatus       LinkStatus  `gorm:"type:varchar(30);not null;default:'PENDING'"`
	Authorised       bool        `gorm:"default:false"`
	Channel          ChannelKind `gorm:"type:varchar(10);not null;default:'GENERAL';index"`

	LoyaltyAccount LoyaltyAccount `gorm:"foreignKey:LoyaltyAccountID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

// IsLinkable kullanıcının bu üyelik üzerinden aktif link gösterebilmesi için gereken koşul.
func (e LoyaltyEntry) IsLinkable() bool {
	return e.LinkStatus == LinkStatusActive && e.Authorised
}
