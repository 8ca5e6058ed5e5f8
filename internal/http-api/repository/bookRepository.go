package repository

import (
	"context"
	"errors"
	"fmt"

	"bookhub/internal/http-api/models"

	"gorm.io/gorm"
)

// ErrBookNotFound is returned when a book id does not reference an existing
// row. Handlers translate it into a 404.
var ErrBookNotFound = errors.New("book not found")

// BookFilter narrows the listing query. Zero values mean "not set".
// OwnerID is filled by the service when the actor must be scoped to their
// own books; it is never taken from client input.
type BookFilter struct {
	Search     string
	CategoryID uint
	OwnerID    uint
}

// BookRepository defines the data operations for books, including the
// aggregate report queries.
type BookRepository interface {
	List(ctx context.Context, filter BookFilter, page, pageSize int) ([]models.Book, int64, error)
	FindByID(ctx context.Context, id uint) (*models.Book, error)
	Create(ctx context.Context, book *models.Book) error
	Update(ctx context.Context, book *models.Book) error
	Delete(ctx context.Context, id uint) error

	CategoryCounts(ctx context.Context) ([]models.ReportRow, error)
	PublisherCounts(ctx context.Context) ([]models.ReportRow, error)
	AuthorCounts(ctx context.Context) ([]models.ReportRow, error)
}

type bookRepository struct {
	db *gorm.DB
}

func NewBookRepository(db *gorm.DB) BookRepository {
	return &bookRepository{db: db}
}

// filteredQuery builds the base listing query. The search term matches the
// book title, the author name or the publisher name (case-insensitive
// substring, OR'ed), and that block is AND'ed with the category and owner
// restrictions.
func (r *bookRepository) filteredQuery(ctx context.Context, filter BookFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&models.Book{})

	if filter.CategoryID != 0 {
		q = q.Where("books.category_id = ?", filter.CategoryID)
	}

	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		q = q.
			Joins("LEFT JOIN users ON users.id = books.user_id").
			Joins("LEFT JOIN publishers ON publishers.id = books.publisher_id").
			Where("books.title ILIKE ? OR users.name ILIKE ? OR publishers.name ILIKE ?", pattern, pattern, pattern)
	}

	if filter.OwnerID != 0 {
		q = q.Where("books.user_id = ?", filter.OwnerID)
	}

	return q
}

func (r *bookRepository) List(ctx context.Context, filter BookFilter, page, pageSize int) ([]models.Book, int64, error) {
	var list []models.Book
	var total int64

	if err := r.filteredQuery(ctx, filter).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count books: %w", err)
	}

	offset := (page - 1) * pageSize

	if err := r.filteredQuery(ctx, filter).
		Preload("Category").
		Preload("Publisher").
		Preload("Author").
		Order("books.id").
		Limit(pageSize).
		Offset(offset).
		Find(&list).Error; err != nil {
		return nil, 0, fmt.Errorf("list books: %w", err)
	}

	return list, total, nil
}

func (r *bookRepository) FindByID(ctx context.Context, id uint) (*models.Book, error) {
	var b models.Book
	if err := r.db.WithContext(ctx).
		Preload("Category").
		Preload("Publisher").
		Preload("Author").
		First(&b, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, fmt.Errorf("find book: %w", err)
	}
	return &b, nil
}

func (r *bookRepository) Create(ctx context.Context, book *models.Book) error {
	if err := r.db.WithContext(ctx).Create(book).Error; err != nil {
		return fmt.Errorf("create book: %w", err)
	}
	return nil
}

func (r *bookRepository) Update(ctx context.Context, book *models.Book) error {
	if err := r.db.WithContext(ctx).Save(book).Error; err != nil {
		return fmt.Errorf("update book: %w", err)
	}
	return nil
}

func (r *bookRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Book{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete book: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrBookNotFound
	}
	return nil
}

// CategoryCounts returns every category with its book count, zero counts
// included.
func (r *bookRepository) CategoryCounts(ctx context.Context) ([]models.ReportRow, error) {
	var rows []models.ReportRow
	if err := r.db.WithContext(ctx).
		Table("categories").
		Select("categories.name AS name, COUNT(books.id) AS books_count").
		Joins("LEFT JOIN books ON books.category_id = categories.id").
		Group("categories.id, categories.name").
		Order("categories.id").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("category report: %w", err)
	}
	return rows, nil
}

// PublisherCounts returns every publisher with its book count, zero counts
// included.
func (r *bookRepository) PublisherCounts(ctx context.Context) ([]models.ReportRow, error) {
	var rows []models.ReportRow
	if err := r.db.WithContext(ctx).
		Table("publishers").
		Select("publishers.name AS name, COUNT(books.id) AS books_count").
		Joins("LEFT JOIN books ON books.publisher_id = publishers.id").
		Group("publishers.id, publishers.name").
		Order("publishers.id").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("publisher report: %w", err)
	}
	return rows, nil
}

// AuthorCounts returns every user holding the author role with the number
// of books they authored, ordered ascending by that count.
func (r *bookRepository) AuthorCounts(ctx context.Context) ([]models.ReportRow, error) {
	var rows []models.ReportRow
	if err := r.db.WithContext(ctx).
		Table("users").
		Select("users.name AS name, COUNT(books.id) AS books_count").
		Joins("JOIN user_roles ON user_roles.user_id = users.id").
		Joins("JOIN roles ON roles.id = user_roles.role_id AND roles.name = ?", models.RoleAuthor).
		Joins("LEFT JOIN books ON books.user_id = users.id").
		Group("users.id, users.name").
		Order("books_count ASC").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("author report: %w", err)
	}
	return rows, nil
}
