package models

import "time"

// BaseModel tüm tabloların ortak alanlarıdır.
// Link tabloları benzersizlik kısıtlarına dayandığı için soft delete kullanılmaz;
// silinen satır kısıtı meşgul etmemelidir.
type BaseModel struct {
	ID        uint      `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time
}
