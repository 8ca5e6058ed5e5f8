package models

type Publisher struct {
	ID   uint   `json:"id" gorm:"primaryKey;autoIncrement"`
	Name string `json:"name" gorm:"uniqueIndex;size:100;not null"`
}

func (Publisher) TableName() string {
	return "publishers"
}
