package repository

import (
	"context"

	"bookhub/internal/http-api/models"

	"gorm.io/gorm"
)

// PublisherRepository exposes read access to the seeded publisher dimension.
type PublisherRepository interface {
	All(ctx context.Context) ([]models.Publisher, error)
	Exists(ctx context.Context, id uint) (bool, error)
}

type publisherRepository struct {
	db *gorm.DB
}

func NewPublisherRepository(db *gorm.DB) PublisherRepository {
	return &publisherRepository{db: db}
}

func (r *publisherRepository) All(ctx context.Context) ([]models.Publisher, error) {
	var list []models.Publisher
	if err := r.db.WithContext(ctx).Order("id").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *publisherRepository) Exists(ctx context.Context, id uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Publisher{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
