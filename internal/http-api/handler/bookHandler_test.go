package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"bookhub/internal/http-api/handler"
	"bookhub/internal/http-api/models"
	"bookhub/internal/http-api/service"
)

type MockBookService struct {
	mock.Mock
}

func (m *MockBookService) ListBooks(ctx context.Context, actor models.Actor, params service.ListParams) ([]models.Book, int64, error) {
	args := m.Called(ctx, actor, params)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]models.Book), args.Get(1).(int64), args.Error(2)
}

func (m *MockBookService) CreateBook(ctx context.Context, actor models.Actor, input service.BookInput) (*models.Book, error) {
	args := m.Called(ctx, actor, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Book), args.Error(1)
}

func (m *MockBookService) UpdateBook(ctx context.Context, actor models.Actor, id uint, input service.BookInput) (*models.Book, error) {
	args := m.Called(ctx, actor, id, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Book), args.Error(1)
}

func (m *MockBookService) DeleteBook(ctx context.Context, actor models.Actor, id uint) error {
	args := m.Called(ctx, actor, id)
	return args.Error(0)
}

func (m *MockBookService) Reports(ctx context.Context) (*service.BookReports, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.BookReports), args.Error(1)
}

func (m *MockBookService) CoverURL(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func adminActor() models.Actor {
	return models.Actor{
		ID:    1,
		Name:  "Admin User",
		Email: "admin@example.com",
		Roles: []string{models.RoleAdmin},
		Permissions: []string{
			models.PermissionViewBooks,
			models.PermissionCreateBooks,
			models.PermissionEditBooks,
			models.PermissionDeleteBooks,
			models.PermissionViewReports,
		},
	}
}

func authorActor() models.Actor {
	return models.Actor{
		ID:          5,
		Name:        "Author User",
		Email:       "author@example.com",
		Roles:       []string{models.RoleAuthor},
		Permissions: []string{models.PermissionViewBooks},
	}
}

func setupRouter(svc service.BookService, actor models.Actor) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("actor", actor)
		c.Next()
	})
	handler.NewBookHandler(svc).RegisterRoutes(r.Group("/api/books"))
	return r
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

// bookForm builds a multipart mutation request body.
func bookForm(t *testing.T, fields map[string]string, coverName string, coverBytes []byte) (*bytes.Buffer, string) {
	t.Helper()
	buf := new(bytes.Buffer)
	mw := multipart.NewWriter(buf)
	for k, v := range fields {
		assert.NoError(t, mw.WriteField(k, v))
	}
	if coverName != "" {
		part, err := mw.CreateFormFile("cover_image", coverName)
		assert.NoError(t, err)
		_, err = part.Write(coverBytes)
		assert.NoError(t, err)
	}
	assert.NoError(t, mw.Close())
	return buf, mw.FormDataContentType()
}

func TestListBooks_ReturnsPaginatedPayload(t *testing.T) {
	svc := new(MockBookService)
	router := setupRouter(svc, authorActor())

	desc := "a story"
	svc.On("ListBooks", mock.Anything, authorActor(), service.ListParams{Search: "go", CategoryID: 3, Page: 2}).
		Return([]models.Book{{
			ID:          9,
			Title:       "Learning Go",
			Description: &desc,
			CategoryID:  3,
			PublisherID: 1,
			UserID:      5,
			Category:    &models.Category{ID: 3, Name: "Technology"},
			Publisher:   &models.Publisher{ID: 1, Name: "Gramedia"},
			Author:      &models.User{ID: 5, Name: "Author User"},
		}}, int64(11), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/books?search=go&category_id=3&page=2", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, float64(2), body["page"])
	assert.Equal(t, float64(11), body["total"])
	assert.Equal(t, float64(2), body["total_pages"])
	data := body["data"].([]interface{})
	assert.Len(t, data, 1)
	first := data[0].(map[string]interface{})
	assert.Equal(t, "Learning Go", first["title"])
	assert.Equal(t, "Technology", first["category"].(map[string]interface{})["name"])
	svc.AssertExpectations(t)
}

func TestListBooks_InvalidCategoryID(t *testing.T) {
	svc := new(MockBookService)
	router := setupRouter(svc, adminActor())

	req := httptest.NewRequest(http.MethodGet, "/api/books?category_id=horror", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "ListBooks", mock.Anything, mock.Anything, mock.Anything)
}

func TestListBooks_MissingPermission(t *testing.T) {
	svc := new(MockBookService)
	actor := authorActor()
	actor.Permissions = nil
	router := setupRouter(svc, actor)

	req := httptest.NewRequest(http.MethodGet, "/api/books", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	svc.AssertNotCalled(t, "ListBooks", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateBook_MultipartWithCover(t *testing.T) {
	svc := new(MockBookService)
	router := setupRouter(svc, adminActor())

	svc.On("CreateBook", mock.Anything, adminActor(), mock.MatchedBy(func(in service.BookInput) bool {
		return in.Title == "New Book" &&
			in.CategoryID != nil && *in.CategoryID == 1 &&
			in.PublisherID != nil && *in.PublisherID == 2 &&
			in.UserID != nil && *in.UserID == 5 &&
			in.Cover != nil && in.Cover.Name == "cover.png"
	})).Return(&models.Book{
		ID:        42,
		Title:     "New Book",
		Category:  &models.Category{ID: 1, Name: "Fiction"},
		Publisher: &models.Publisher{ID: 2, Name: "Erlangga"},
		Author:    &models.User{ID: 5, Name: "Author User"},
	}, nil)

	buf, contentType := bookForm(t, map[string]string{
		"title":        "New Book",
		"category_id":  "1",
		"publisher_id": "2",
		"user_id":      "5",
	}, "cover.png", []byte("png bytes"))

	req := httptest.NewRequest(http.MethodPost, "/api/books", buf)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, float64(42), body["id"])
	svc.AssertExpectations(t)
}

func TestCreateBook_UnparsableIDBecomesFieldError(t *testing.T) {
	svc := new(MockBookService)
	router := setupRouter(svc, adminActor())

	buf, contentType := bookForm(t, map[string]string{
		"title":       "New Book",
		"category_id": "fiction",
	}, "", nil)

	req := httptest.NewRequest(http.MethodPost, "/api/books", buf)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	body := decodeBody(t, w)
	errs := body["errors"].(map[string]interface{})
	assert.Equal(t, "The selected category id is invalid.", errs["category_id"])
	svc.AssertNotCalled(t, "CreateBook", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateBook_ValidationErrorIs422(t *testing.T) {
	svc := new(MockBookService)
	router := setupRouter(svc, adminActor())

	svc.On("CreateBook", mock.Anything, adminActor(), mock.Anything).
		Return(nil, &service.ValidationError{Fields: map[string]string{
			"title": "The title field is required.",
		}})

	buf, contentType := bookForm(t, map[string]string{"category_id": "1"}, "", nil)
	req := httptest.NewRequest(http.MethodPost, "/api/books", buf)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	body := decodeBody(t, w)
	errs := body["errors"].(map[string]interface{})
	assert.Equal(t, "The title field is required.", errs["title"])
}

func TestCreateBook_PolicyDenialIs403(t *testing.T) {
	svc := new(MockBookService)
	actor := authorActor()
	actor.Permissions = append(actor.Permissions, models.PermissionCreateBooks)
	router := setupRouter(svc, actor)

	svc.On("CreateBook", mock.Anything, actor, mock.Anything).Return(nil, service.ErrUnauthorized)

	buf, contentType := bookForm(t, map[string]string{"title": "Sneaky"}, "", nil)
	req := httptest.NewRequest(http.MethodPost, "/api/books", buf)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "Unauthorized action.", body["error"])
}

func TestCreateBook_InfraErrorIs500(t *testing.T) {
	svc := new(MockBookService)
	router := setupRouter(svc, adminActor())

	svc.On("CreateBook", mock.Anything, adminActor(), mock.Anything).
		Return(nil, errors.New("error creating book: connection refused"))

	buf, contentType := bookForm(t, map[string]string{"title": "X"}, "", nil)
	req := httptest.NewRequest(http.MethodPost, "/api/books", buf)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decodeBody(t, w)
	assert.Contains(t, body["error"], "Error creating book")
}

func TestUpdateBook_Success(t *testing.T) {
	svc := new(MockBookService)
	router := setupRouter(svc, adminActor())

	svc.On("UpdateBook", mock.Anything, adminActor(), uint(7), mock.MatchedBy(func(in service.BookInput) bool {
		return in.Title == "Renamed" && in.UserID == nil
	})).Return(&models.Book{ID: 7, Title: "Renamed"}, nil)

	buf, contentType := bookForm(t, map[string]string{
		"title":        "Renamed",
		"category_id":  "1",
		"publisher_id": "2",
	}, "", nil)

	req := httptest.NewRequest(http.MethodPut, "/api/books/7", buf)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "Renamed", body["title"])
	svc.AssertExpectations(t)
}

func TestUpdateBook_NotFound(t *testing.T) {
	svc := new(MockBookService)
	router := setupRouter(svc, adminActor())

	svc.On("UpdateBook", mock.Anything, adminActor(), uint(404), mock.Anything).
		Return(nil, service.ErrBookNotFound)

	buf, contentType := bookForm(t, map[string]string{"title": "X"}, "", nil)
	req := httptest.NewRequest(http.MethodPut, "/api/books/404", buf)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "Book not found.", body["error"])
}

func TestUpdateBook_InvalidID(t *testing.T) {
	svc := new(MockBookService)
	router := setupRouter(svc, adminActor())

	buf, contentType := bookForm(t, map[string]string{"title": "X"}, "", nil)
	req := httptest.NewRequest(http.MethodPut, "/api/books/not-a-number", buf)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "UpdateBook", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDeleteBook_Success(t *testing.T) {
	svc := new(MockBookService)
	router := setupRouter(svc, adminActor())

	svc.On("DeleteBook", mock.Anything, adminActor(), uint(3)).Return(nil)

	req := httptest.NewRequest(http.MethodDelete, "/api/books/3", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "Book deleted successfully", body["message"])
	svc.AssertExpectations(t)
}

func TestDeleteBook_NotFound(t *testing.T) {
	svc := new(MockBookService)
	router := setupRouter(svc, adminActor())

	svc.On("DeleteBook", mock.Anything, adminActor(), uint(3)).Return(service.ErrBookNotFound)

	req := httptest.NewRequest(http.MethodDelete, "/api/books/3", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReports_Success(t *testing.T) {
	svc := new(MockBookService)
	router := setupRouter(svc, adminActor())

	svc.On("Reports", mock.Anything).Return(&service.BookReports{
		CategoryReport:  []models.ReportRow{{Name: "Fiction", BooksCount: 2}},
		PublisherReport: []models.ReportRow{{Name: "Gramedia", BooksCount: 1}},
		AuthorReport:    []models.ReportRow{{Name: "Author User", BooksCount: 0}},
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/books/reports", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	categoryReport := body["categoryReport"].([]interface{})
	assert.Equal(t, "Fiction", categoryReport[0].(map[string]interface{})["name"])
	authorReport := body["authorReport"].([]interface{})
	assert.Equal(t, float64(0), authorReport[0].(map[string]interface{})["books_count"])
}

func TestReports_MissingPermission(t *testing.T) {
	svc := new(MockBookService)
	router := setupRouter(svc, authorActor())

	req := httptest.NewRequest(http.MethodGet, "/api/books/reports", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	svc.AssertNotCalled(t, "Reports", mock.Anything)
}

func TestCoverURL_Success(t *testing.T) {
	svc := new(MockBookService)
	router := setupRouter(svc, authorActor())

	svc.On("CoverURL", mock.Anything, "covers/abc.png").Return("https://store.test/covers/abc.png", nil)

	req := httptest.NewRequest(http.MethodGet, "/api/books/cover-url?key=covers%2Fabc.png", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "https://store.test/covers/abc.png", body["url"])
}

func TestCoverURL_MissingKey(t *testing.T) {
	svc := new(MockBookService)
	router := setupRouter(svc, authorActor())

	req := httptest.NewRequest(http.MethodGet, "/api/books/cover-url", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "CoverURL", mock.Anything, mock.Anything)
}

func TestCoverURL_UnknownReference(t *testing.T) {
	svc := new(MockBookService)
	router := setupRouter(svc, authorActor())

	svc.On("CoverURL", mock.Anything, "nope").Return("", service.ErrBookNotFound)

	req := httptest.NewRequest(http.MethodGet, "/api/books/cover-url?key=nope", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
