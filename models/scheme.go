package models

// Scheme bir merchant sadakat programıdır (örn. "iceland-bonus-card").
type Scheme struct {
	BaseModel
	Slug string `gorm:"type:varchar(100);uniqueIndex;not null"`
	Name string `gorm:"type:varchar(200);not null"`
}
