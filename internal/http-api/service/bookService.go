package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"bookhub/internal/http-api/models"
	"bookhub/internal/http-api/repository"
	"bookhub/internal/storage"
)

// ErrUnauthorized is returned when the actor fails the book policy check.
var ErrUnauthorized = errors.New("unauthorized action")

// ErrBookNotFound mirrors the repository sentinel so handlers only need to
// depend on the service package.
var ErrBookNotFound = repository.ErrBookNotFound

// page size is fixed; the UI pages through with query-string state
const BooksPageSize = 10

// covers may not exceed 2048 KB
const maxCoverBytes = 2048 * 1024

const coverKeyPrefix = "covers/"

// presigned cover links stay valid long enough for a page view
const coverURLExpiry = 15 * time.Minute

// ValidationError carries one message per offending field. Validation runs
// to completion and collects every violation before failing, it never stops
// at the first.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return "validation failed: " + strings.Join(keys, ", ")
}

// FileUpload is an uploaded cover decoupled from multipart specifics so the
// service stays testable.
type FileUpload struct {
	Name        string
	Size        int64
	ContentType string
	Reader      io.Reader
}

// BookInput is the mutation payload. Nil pointer fields were not supplied.
// UserID is only honored on create; author reassignment through update is
// not supported.
type BookInput struct {
	Title       string
	Description *string
	CategoryID  *uint
	PublisherID *uint
	UserID      *uint
	Cover       *FileUpload
}

// ListParams narrows the listing. CategoryID zero means unfiltered.
type ListParams struct {
	Search     string
	CategoryID uint
	Page       int
}

// BookReports bundles the three dashboard aggregates.
type BookReports struct {
	CategoryReport  []models.ReportRow `json:"categoryReport"`
	PublisherReport []models.ReportRow `json:"publisherReport"`
	AuthorReport    []models.ReportRow `json:"authorReport"`
}

type BookService interface {
	ListBooks(ctx context.Context, actor models.Actor, params ListParams) ([]models.Book, int64, error)
	CreateBook(ctx context.Context, actor models.Actor, input BookInput) (*models.Book, error)
	UpdateBook(ctx context.Context, actor models.Actor, id uint, input BookInput) (*models.Book, error)
	DeleteBook(ctx context.Context, actor models.Actor, id uint) error
	Reports(ctx context.Context) (*BookReports, error)
	CoverURL(ctx context.Context, key string) (string, error)
}

type bookService struct {
	repo          repository.BookRepository
	categoryRepo  repository.CategoryRepository
	publisherRepo repository.PublisherRepository
	userRepo      repository.UserRepository
	covers        storage.ObjectStore
	logger        *slog.Logger
}

func NewBookService(
	repo repository.BookRepository,
	categoryRepo repository.CategoryRepository,
	publisherRepo repository.PublisherRepository,
	userRepo repository.UserRepository,
	covers storage.ObjectStore,
	logger *slog.Logger,
) BookService {
	return &bookService{
		repo:          repo,
		categoryRepo:  categoryRepo,
		publisherRepo: publisherRepo,
		userRepo:      userRepo,
		covers:        covers,
		logger:        logger,
	}
}

// ListBooks returns one page of books with Category/Publisher/Author
// attached. An actor holding the author role (and not admin) is scoped to
// their own books here, server-side, regardless of the other filters.
func (s *bookService) ListBooks(ctx context.Context, actor models.Actor, params ListParams) ([]models.Book, int64, error) {
	page := params.Page
	if page < 1 {
		page = 1
	}

	filter := repository.BookFilter{
		Search:     params.Search,
		CategoryID: params.CategoryID,
	}
	if actor.HasRole(models.RoleAuthor) && !actor.IsAdmin() {
		filter.OwnerID = actor.ID
	}

	list, total, err := s.repo.List(ctx, filter, page, BooksPageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("error getting books: %w", err)
	}
	return list, total, nil
}

func (s *bookService) CreateBook(ctx context.Context, actor models.Actor, input BookInput) (*models.Book, error) {
	if !CanPerform(actor, ActionCreateBook) {
		return nil, ErrUnauthorized
	}

	if err := s.validate(ctx, input, true); err != nil {
		return nil, err
	}

	book := models.Book{
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		CategoryID:  *input.CategoryID,
		PublisherID: *input.PublisherID,
		UserID:      *input.UserID,
	}

	if input.Cover != nil {
		key, err := s.storeCover(ctx, input.Cover)
		if err != nil {
			return nil, fmt.Errorf("error creating book: %w", err)
		}
		book.CoverImage = &key
	}

	if err := s.repo.Create(ctx, &book); err != nil {
		// the stored cover is orphaned here; accepted window, see DESIGN.md
		return nil, fmt.Errorf("error creating book: %w", err)
	}

	created, err := s.repo.FindByID(ctx, book.ID)
	if err != nil {
		return nil, fmt.Errorf("error creating book: %w", err)
	}
	return created, nil
}

func (s *bookService) UpdateBook(ctx context.Context, actor models.Actor, id uint, input BookInput) (*models.Book, error) {
	if !CanPerform(actor, ActionUpdateBook) {
		return nil, ErrUnauthorized
	}

	book, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrBookNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("error updating book: %w", err)
	}

	if err := s.validate(ctx, input, false); err != nil {
		return nil, err
	}

	if input.Cover != nil {
		// replace: drop the old object first so no stale reference survives
		if book.CoverImage != nil {
			s.deleteCover(ctx, *book.CoverImage)
		}
		key, err := s.storeCover(ctx, input.Cover)
		if err != nil {
			return nil, fmt.Errorf("error updating book: %w", err)
		}
		book.CoverImage = &key
	}

	book.Title = strings.TrimSpace(input.Title)
	book.Description = input.Description
	book.CategoryID = *input.CategoryID
	book.PublisherID = *input.PublisherID

	// save the bare row, not the preloaded associations
	updated := models.Book{
		ID:          book.ID,
		Title:       book.Title,
		Description: book.Description,
		CoverImage:  book.CoverImage,
		CategoryID:  book.CategoryID,
		PublisherID: book.PublisherID,
		UserID:      book.UserID,
		CreatedAt:   book.CreatedAt,
	}
	if err := s.repo.Update(ctx, &updated); err != nil {
		return nil, fmt.Errorf("error updating book: %w", err)
	}

	fresh, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("error updating book: %w", err)
	}
	return fresh, nil
}

func (s *bookService) DeleteBook(ctx context.Context, actor models.Actor, id uint) error {
	if !CanPerform(actor, ActionDeleteBook) {
		return ErrUnauthorized
	}

	book, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrBookNotFound) {
			return err
		}
		return fmt.Errorf("error deleting book: %w", err)
	}

	// best effort: a failed blob delete never blocks the row delete
	if book.CoverImage != nil {
		s.deleteCover(ctx, *book.CoverImage)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("error deleting book: %w", err)
	}
	return nil
}

func (s *bookService) Reports(ctx context.Context) (*BookReports, error) {
	categories, err := s.repo.CategoryCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting reports: %w", err)
	}
	publishers, err := s.repo.PublisherCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting reports: %w", err)
	}
	authors, err := s.repo.AuthorCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting reports: %w", err)
	}
	return &BookReports{
		CategoryReport:  categories,
		PublisherReport: publishers,
		AuthorReport:    authors,
	}, nil
}

// CoverURL resolves a stored cover reference into a short-lived public URL.
func (s *bookService) CoverURL(ctx context.Context, key string) (string, error) {
	if !strings.HasPrefix(key, coverKeyPrefix) {
		return "", ErrBookNotFound
	}
	url, err := s.covers.PresignGet(ctx, key, coverURLExpiry)
	if err != nil {
		return "", fmt.Errorf("error getting cover url: %w", err)
	}
	return url, nil
}

// validate collects every field violation before failing. Foreign keys are
// checked for existence so a dangling reference surfaces as a field error,
// not as a storage failure later.
func (s *bookService) validate(ctx context.Context, input BookInput, requireUser bool) error {
	fields := make(map[string]string)

	title := strings.TrimSpace(input.Title)
	if title == "" {
		fields["title"] = "The title field is required."
	} else if len(input.Title) > 255 {
		fields["title"] = "The title may not be greater than 255 characters."
	}

	if input.CategoryID == nil {
		fields["category_id"] = "The category id field is required."
	} else if ok, err := s.categoryRepo.Exists(ctx, *input.CategoryID); err != nil {
		return fmt.Errorf("validate category: %w", err)
	} else if !ok {
		fields["category_id"] = "The selected category id is invalid."
	}

	if input.PublisherID == nil {
		fields["publisher_id"] = "The publisher id field is required."
	} else if ok, err := s.publisherRepo.Exists(ctx, *input.PublisherID); err != nil {
		return fmt.Errorf("validate publisher: %w", err)
	} else if !ok {
		fields["publisher_id"] = "The selected publisher id is invalid."
	}

	if requireUser {
		if input.UserID == nil {
			fields["user_id"] = "The user id field is required."
		} else if ok, err := s.userRepo.Exists(ctx, *input.UserID); err != nil {
			return fmt.Errorf("validate user: %w", err)
		} else if !ok {
			fields["user_id"] = "The selected user id is invalid."
		}
	}

	if input.Cover != nil {
		if !strings.HasPrefix(input.Cover.ContentType, "image/") {
			fields["cover_image"] = "The cover image must be an image."
		} else if input.Cover.Size > maxCoverBytes {
			fields["cover_image"] = "The cover image may not be greater than 2048 kilobytes."
		}
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// storeCover writes the upload under a fresh key and returns the reference
// that gets persisted on the row.
func (s *bookService) storeCover(ctx context.Context, f *FileUpload) (string, error) {
	ext := strings.ToLower(filepath.Ext(f.Name))
	key := coverKeyPrefix + uuid.New().String() + ext
	if err := s.covers.Put(ctx, key, f.Reader, f.Size, f.ContentType); err != nil {
		return "", err
	}
	return key, nil
}

func (s *bookService) deleteCover(ctx context.Context, key string) {
	if err := s.covers.Delete(ctx, key); err != nil {
		s.logger.Warn("failed to delete cover object", "key", key, "error", err)
	}
}
