package models

type Channel struct {
	BaseModel
	Name     string    `json:"name" gorm:"type:varchar(150);not null"`
	Topic    *string   `json:"topic,omitempty" gorm:"type:text"`
	ServerID uint      `json:"serverID" gorm:"not null;index"`
	Server   Server    `json:"-" gorm:"foreignKey:ServerID"`
	OwnerID  uint      `json:"ownerID" gorm:"not null;index"`
	Owner    User      `json:"-" gorm:"foreignKey:OwnerID"`
	Messages []Message `json:"-" gorm:"foreignKey:ChannelID"`
}
