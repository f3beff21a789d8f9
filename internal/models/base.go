package models

import "time"

// Base is embedded in every model: the primary key plus gorm-managed timestamps.
type Base struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
