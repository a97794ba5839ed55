package models

import "time"

// BaseModel is embedded by every persisted entity. IDs are integer
// primary keys so they can round-trip through query parameters.
type BaseModel struct {
	ID        uint      `json:"id" gorm:"primarykey"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
