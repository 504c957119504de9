package models

// User bir cüzdan (wallet) sahibidir.
type User struct {
	BaseModel
	ExternalID  string `gorm:"type:varchar(100);uniqueIndex;not null"` // user_ref bundan türetilir
	ChannelSlug string `gorm:"type:varchar(100);index"`                // örn. com.bink.wallet
	IsDeleted   bool   `gorm:"default:false;index"`
}
