package models

// Server is a community space, not a network host. Members are attached
// through the server_members join table; NumMembers is populated only by
// list queries that select the member-count subquery.
type Server struct {
	BaseModel
	Name        string    `json:"name" gorm:"type:varchar(150);not null"`
	Description *string   `json:"description,omitempty" gorm:"type:text"`
	OwnerID     uint      `json:"ownerID" gorm:"not null;index"`
	Owner       User      `json:"-" gorm:"foreignKey:OwnerID"`
	CategoryID  uint      `json:"categoryID" gorm:"not null;index"`
	Category    Category  `json:"-" gorm:"foreignKey:CategoryID"`
	IconPath    *string   `json:"-" gorm:"type:text"`
	BannerPath  *string   `json:"-" gorm:"type:text"`
	Members     []User    `json:"-" gorm:"many2many:server_members"`
	Channels    []Channel `json:"-" gorm:"foreignKey:ServerID"`
	NumMembers  int64     `json:"-" gorm:"->;-:migration"`
}
