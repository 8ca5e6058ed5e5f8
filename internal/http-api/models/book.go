package models

import "time"

type Book struct {
	ID          uint    `json:"id" gorm:"primaryKey;autoIncrement"`
	Title       string  `json:"title" gorm:"size:255;not null"`
	Description *string `json:"description,omitempty"`
	// object-store key of the uploaded cover, nil when no cover was uploaded
	CoverImage  *string   `json:"cover_image,omitempty"`
	CategoryID  uint      `json:"category_id" gorm:"not null;index"`
	PublisherID uint      `json:"publisher_id" gorm:"not null;index"`
	UserID      uint      `json:"user_id" gorm:"not null;index"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time `json:"updated_at"`

	// associations
	Category  *Category  `json:"category,omitempty" gorm:"foreignKey:CategoryID"`
	Publisher *Publisher `json:"publisher,omitempty" gorm:"foreignKey:PublisherID"`
	Author    *User      `json:"author,omitempty" gorm:"foreignKey:UserID"`
}

func (Book) TableName() string {
	return "books"
}

// ReportRow is the projection used by the aggregate report queries.
type ReportRow struct {
	Name       string `json:"name"`
	BooksCount int64  `json:"books_count"`
}
