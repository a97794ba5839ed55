package models

type Category struct {
	BaseModel
	Name        string   `json:"name" gorm:"type:varchar(100);uniqueIndex;not null"`
	Description *string  `json:"description,omitempty" gorm:"type:text"`
	Servers     []Server `json:"-" gorm:"foreignKey:CategoryID"`
}
