package repository

import (
	"context"

	"bookhub/internal/http-api/models"

	"gorm.io/gorm"
)

// CategoryRepository exposes read access to the seeded category dimension.
// Categories are immutable through the API.
type CategoryRepository interface {
	All(ctx context.Context) ([]models.Category, error)
	Exists(ctx context.Context, id uint) (bool, error)
}

type categoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

func (r *categoryRepository) All(ctx context.Context) ([]models.Category, error) {
	var list []models.Category
	if err := r.db.WithContext(ctx).Order("id").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *categoryRepository) Exists(ctx context.Context, id uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Category{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
