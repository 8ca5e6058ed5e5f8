package dto

import (
	"time"

	"bookhub/internal/http-api/models"
)

// BookResponse DTO for responses
type BookResponse struct {
	ID          uint      `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description,omitempty"`
	CoverImage  *string   `json:"cover_image,omitempty"`
	CategoryID  uint      `json:"category_id"`
	PublisherID uint      `json:"publisher_id"`
	UserID      uint      `json:"user_id"`
	CreatedAt   time.Time `json:"created_at"`

	Category  *NamedResponse `json:"category,omitempty"`
	Publisher *NamedResponse `json:"publisher,omitempty"`
	Author    *AuthorSummary `json:"author,omitempty"`
}

// NamedResponse is the wire shape of the seeded dimensions.
type NamedResponse struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

type AuthorSummary struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// BookFiltersEcho repeats the applied filters so the client can keep its
// query-string state across pages.
type BookFiltersEcho struct {
	Search     string `json:"search,omitempty"`
	CategoryID uint   `json:"category_id,omitempty"`
}

type PaginatedBooksResponse struct {
	Data       []BookResponse  `json:"data"`
	Page       int             `json:"page"`
	PageSize   int             `json:"page_size"`
	Total      int64           `json:"total"`
	TotalPages int             `json:"total_pages"`
	Filters    BookFiltersEcho `json:"filters"`
}

func NewPaginatedBooksResponse(data []BookResponse, page, pageSize int, total int64, filters BookFiltersEcho) PaginatedBooksResponse {
	totalPages := int(total) / pageSize
	if int(total)%pageSize != 0 {
		totalPages++
	}

	return PaginatedBooksResponse{
		Data:       data,
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		Filters:    filters,
	}
}

// Converters
func FromModelToResponse(b models.Book) BookResponse {
	resp := BookResponse{
		ID:          b.ID,
		Title:       b.Title,
		Description: b.Description,
		CoverImage:  b.CoverImage,
		CategoryID:  b.CategoryID,
		PublisherID: b.PublisherID,
		UserID:      b.UserID,
		CreatedAt:   b.CreatedAt,
	}
	if b.Category != nil {
		resp.Category = &NamedResponse{ID: b.Category.ID, Name: b.Category.Name}
	}
	if b.Publisher != nil {
		resp.Publisher = &NamedResponse{ID: b.Publisher.ID, Name: b.Publisher.Name}
	}
	if b.Author != nil {
		resp.Author = &AuthorSummary{ID: b.Author.ID, Name: b.Author.Name, Email: b.Author.Email}
	}
	return resp
}

func FromCategoryToResponse(c models.Category) NamedResponse {
	return NamedResponse{ID: c.ID, Name: c.Name}
}

func FromPublisherToResponse(p models.Publisher) NamedResponse {
	return NamedResponse{ID: p.ID, Name: p.Name}
}

func FromUserToAuthorSummary(u models.User) AuthorSummary {
	return AuthorSummary{ID: u.ID, Name: u.Name, Email: u.Email}
}
