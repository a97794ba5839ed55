package models

type Message struct {
	BaseModel
	ChannelID uint    `json:"channelID" gorm:"not null;index"`
	Channel   Channel `json:"-" gorm:"foreignKey:ChannelID"`
	SenderID  uint    `json:"senderID" gorm:"not null;index"`
	Sender    User    `json:"sender" gorm:"foreignKey:SenderID"`
	Content   string  `json:"content" gorm:"type:text;not null"`
}
