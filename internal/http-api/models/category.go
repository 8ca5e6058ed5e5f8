package models

type Category struct {
	ID   uint   `json:"id" gorm:"primaryKey;autoIncrement"`
	Name string `json:"name" gorm:"uniqueIndex;size:100;not null"`
}

func (Category) TableName() string {
	return "categories"
}
