package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Task arka plan görev kuyruğunun (outbox) bir iş birimidir.
type Task struct {
	ID          uuid.UUID      `gorm:"type:char(36);primaryKey"`
	Kind        string         `gorm:"type:varchar(100);not null;index"`
	Payload     datatypes.JSON `gorm:"not null"`
	Attempts    int            `gorm:"not null;default:0"`
	RunAfter    time.Time      `gorm:"not null;index"`
	LockedUntil *time.Time     `gorm:"index"`
	LastError   string         `gorm:"type:text"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// BeforeCreate ID boşsa yeni UUID atar.
func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.RunAfter.IsZero() {
		t.RunAfter = time.Now()
	}
	return nil
}
