package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"bookhub/internal/http-api/dto"
	"bookhub/internal/http-api/middleware"
	"bookhub/internal/http-api/models"
	"bookhub/internal/http-api/service"
)

type BookHandler struct {
	svc service.BookService
}

func NewBookHandler(svc service.BookService) *BookHandler {
	return &BookHandler{svc: svc}
}

func (h *BookHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", middleware.RequirePermission(models.PermissionViewBooks), h.List)
	rg.GET("/reports", middleware.RequirePermission(models.PermissionViewReports), h.Reports)
	rg.GET("/cover-url", middleware.RequirePermission(models.PermissionViewBooks), h.CoverURL)

	// Mutations: permission gate here, admin policy again inside the service
	rg.POST("", middleware.RequirePermission(models.PermissionCreateBooks), h.Create)
	rg.PUT("/:book_id", middleware.RequirePermission(models.PermissionEditBooks), h.Update)
	rg.DELETE("/:book_id", middleware.RequirePermission(models.PermissionDeleteBooks), h.Delete)
}

func (h *BookHandler) List(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "actor not found in context"})
		return
	}

	params := service.ListParams{
		Search: strings.TrimSpace(c.Query("search")),
		Page:   1,
	}

	if p := c.Query("page"); p != "" {
		if parsed, err := strconv.Atoi(p); err == nil && parsed > 0 {
			params.Page = parsed
		}
	}

	if catStr := strings.TrimSpace(c.Query("category_id")); catStr != "" {
		parsed, err := strconv.ParseUint(catStr, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid category_id parameter"})
			return
		}
		params.CategoryID = uint(parsed)
	}

	list, total, err := h.svc.ListBooks(ctx, actor, params)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]dto.BookResponse, 0, len(list))
	for _, b := range list {
		resp = append(resp, dto.FromModelToResponse(b))
	}

	c.JSON(http.StatusOK, dto.NewPaginatedBooksResponse(resp, params.Page, service.BooksPageSize, total, dto.BookFiltersEcho{
		Search:     params.Search,
		CategoryID: params.CategoryID,
	}))
}

func (h *BookHandler) Create(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "actor not found in context"})
		return
	}

	input, fieldErrs, closeCover, err := parseBookForm(c, true)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer closeCover()
	if len(fieldErrs) > 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": fieldErrs})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	book, err := h.svc.CreateBook(ctx, actor, input)
	if err != nil {
		respondBookError(c, err, "Error creating book")
		return
	}

	c.JSON(http.StatusCreated, dto.FromModelToResponse(*book))
}

func (h *BookHandler) Update(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "actor not found in context"})
		return
	}

	id, err := parseBookID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	input, fieldErrs, closeCover, err := parseBookForm(c, false)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer closeCover()
	if len(fieldErrs) > 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": fieldErrs})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	book, err := h.svc.UpdateBook(ctx, actor, id, input)
	if err != nil {
		respondBookError(c, err, "Error updating book")
		return
	}

	c.JSON(http.StatusOK, dto.FromModelToResponse(*book))
}

func (h *BookHandler) Delete(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "actor not found in context"})
		return
	}

	id, err := parseBookID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := h.svc.DeleteBook(ctx, actor, id); err != nil {
		respondBookError(c, err, "Error deleting book")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Book deleted successfully"})
}

func (h *BookHandler) Reports(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	reports, err := h.svc.Reports(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, reports)
}

// CoverURL turns a stored cover reference into a presigned link the client
// can render directly.
func (h *BookHandler) CoverURL(c *gin.Context) {
	key := c.Query("key")
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "key query parameter is required"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	url, err := h.svc.CoverURL(ctx, key)
	if err != nil {
		if errors.Is(err, service.ErrBookNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown cover reference"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url})
}

func parseBookID(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("book_id"), 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}

// parseBookForm reads the multipart mutation form. Unparsable ids come back
// as field errors rather than aborting the request, so the client gets the
// same inline-error shape as server-side validation failures. The returned
// close func releases the uploaded cover file and is always safe to call.
func parseBookForm(c *gin.Context, includeUser bool) (service.BookInput, map[string]string, func(), error) {
	input := service.BookInput{Title: c.PostForm("title")}
	fieldErrs := make(map[string]string)
	closeCover := func() {}

	if desc := c.PostForm("description"); desc != "" {
		input.Description = &desc
	}

	parseID := func(field, message string) *uint {
		raw := strings.TrimSpace(c.PostForm(field))
		if raw == "" {
			return nil
		}
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			fieldErrs[field] = message
			return nil
		}
		id := uint(parsed)
		return &id
	}

	input.CategoryID = parseID("category_id", "The selected category id is invalid.")
	input.PublisherID = parseID("publisher_id", "The selected publisher id is invalid.")
	if includeUser {
		input.UserID = parseID("user_id", "The selected user id is invalid.")
	}

	header, err := c.FormFile("cover_image")
	if err == nil && header != nil {
		file, err := header.Open()
		if err != nil {
			return input, fieldErrs, closeCover, err
		}
		closeCover = func() { file.Close() }
		input.Cover = &service.FileUpload{
			Name:        header.Filename,
			Size:        header.Size,
			ContentType: header.Header.Get("Content-Type"),
			Reader:      file,
		}
	} else if err != nil && !errors.Is(err, http.ErrMissingFile) {
		return input, fieldErrs, closeCover, err
	}

	return input, fieldErrs, closeCover, nil
}

// respondBookError maps service failures onto transport codes: policy
// failures are 403, validation is 422 with the field map, a missing book is
// 404, and anything else is a 500 with a contextual message.
func respondBookError(c *gin.Context, err error, context string) {
	var verr *service.ValidationError
	switch {
	case errors.Is(err, service.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": "Unauthorized action."})
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": verr.Fields})
	case errors.Is(err, service.ErrBookNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Book not found."})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": context + ": " + err.Error()})
	}
}
