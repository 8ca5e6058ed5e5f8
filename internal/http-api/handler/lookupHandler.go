package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"bookhub/internal/http-api/dto"
	"bookhub/internal/http-api/middleware"
	"bookhub/internal/http-api/models"
	"bookhub/internal/http-api/repository"
)

// LookupHandler serves the seeded dimension tables the book form needs:
// categories, publishers, and the users holding the author role.
type LookupHandler struct {
	categoryRepo  repository.CategoryRepository
	publisherRepo repository.PublisherRepository
	userRepo      repository.UserRepository
}

func NewLookupHandler(
	categoryRepo repository.CategoryRepository,
	publisherRepo repository.PublisherRepository,
	userRepo repository.UserRepository,
) *LookupHandler {
	return &LookupHandler{
		categoryRepo:  categoryRepo,
		publisherRepo: publisherRepo,
		userRepo:      userRepo,
	}
}

func (h *LookupHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/categories", middleware.RequirePermission(models.PermissionViewBooks), h.Categories)
	rg.GET("/publishers", middleware.RequirePermission(models.PermissionViewBooks), h.Publishers)
	rg.GET("/authors", middleware.RequirePermission(models.PermissionViewBooks), h.Authors)
}

func (h *LookupHandler) Categories(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	list, err := h.categoryRepo.All(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]dto.NamedResponse, 0, len(list))
	for _, item := range list {
		resp = append(resp, dto.FromCategoryToResponse(item))
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (h *LookupHandler) Publishers(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	list, err := h.publisherRepo.All(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]dto.NamedResponse, 0, len(list))
	for _, item := range list {
		resp = append(resp, dto.FromPublisherToResponse(item))
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (h *LookupHandler) Authors(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	list, err := h.userRepo.ListByRole(ctx, models.RoleAuthor)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]dto.AuthorSummary, 0, len(list))
	for _, item := range list {
		resp = append(resp, dto.FromUserToAuthorSummary(item))
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}
