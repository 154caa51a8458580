package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"school-site/models"
	"school-site/services"
	"school-site/store"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const featuredLimit = 6

type articleHandler struct {
	svc       *services.ArticleService
	maxUpload int64
	log       *zap.Logger
}

// SetupArticleRoutes registriert die öffentlichen und die Admin-Routen für Artikel.
func SetupArticleRoutes(router *gin.Engine, svc *services.ArticleService, maxUpload int64, log *zap.Logger) {
	h := &articleHandler{svc: svc, maxUpload: maxUpload, log: log}

	api := router.Group("/api")
	api.GET("/articles", h.list)
	api.GET("/articles/featured", h.featured)
	api.GET("/articles/:id", h.get)
	api.GET("/categories", h.categories)

	admin := router.Group("/api")
	admin.Use(RequireAdmin)
	admin.POST("/articles", h.create)
	admin.PUT("/articles/:id", h.update)
	admin.PATCH("/articles/:id/featured", h.toggleFeatured)
	admin.DELETE("/articles/:id", h.delete)
	admin.POST("/uploads", h.upload)
	admin.GET("/admin/articles", h.adminList)
}

func (h *articleHandler) list(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a number"})
			return
		}
		limit = n
	}

	page, err := h.svc.ListArticles(c.Request.Context(), services.ListRequest{
		Category: c.Query("category"),
		PageSize: limit,
		Cursor:   c.Query("cursor"),
	})
	if err != nil {
		h.respondError(c, err, "failed to list articles")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"articles":   models.NewArticleViews(page.Articles),
		"nextCursor": page.NextCursor,
		"hasMore":    page.NextCursor != "",
		"degraded":   page.Degraded,
	})
}

func (h *articleHandler) featured(c *gin.Context) {
	page := h.svc.FeaturedArticles(c.Request.Context(), featuredLimit)
	c.JSON(http.StatusOK, gin.H{
		"articles": models.NewArticleViews(page.Articles),
		"degraded": page.Degraded,
	})
}

func (h *articleHandler) get(c *gin.Context) {
	a, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err, "failed to load article")
		return
	}
	c.JSON(http.StatusOK, models.NewArticleView(a))
}

func (h *articleHandler) categories(c *gin.Context) {
	res := h.svc.ListCategories(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"categories": res.Categories, "degraded": res.Degraded})
}

func (h *articleHandler) create(c *gin.Context) {
	var in models.ArticleInput
	if err := c.ShouldBind(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	upload, err := h.readUpload(c, "image")
	if err != nil {
		h.respondError(c, err, "failed to read image")
		return
	}

	a, err := h.svc.Create(c.Request.Context(), in, upload)
	if err != nil {
		h.respondError(c, err, "failed to create article")
		return
	}
	c.JSON(http.StatusCreated, models.NewArticleView(a))
}

func (h *articleHandler) update(c *gin.Context) {
	var in models.ArticleInput
	if err := c.ShouldBind(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	upload, err := h.readUpload(c, "image")
	if err != nil {
		h.respondError(c, err, "failed to read image")
		return
	}

	a, err := h.svc.Update(c.Request.Context(), c.Param("id"), in, upload)
	if err != nil {
		h.respondError(c, err, "failed to update article")
		return
	}
	c.JSON(http.StatusOK, models.NewArticleView(a))
}

func (h *articleHandler) toggleFeatured(c *gin.Context) {
	a, err := h.svc.ToggleFeatured(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err, "failed to update article")
		return
	}
	c.JSON(http.StatusOK, models.NewArticleView(a))
}

func (h *articleHandler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err, "failed to delete article")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *articleHandler) upload(c *gin.Context) {
	upload, err := h.readUpload(c, "file")
	if err != nil {
		h.respondError(c, err, "failed to read upload")
		return
	}
	if upload == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no file uploaded"})
		return
	}

	obj, err := h.svc.UploadImage(c.Request.Context(), *upload)
	if err != nil {
		h.respondError(c, err, "failed to store upload")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "location": obj.URL})
}

func (h *articleHandler) adminList(c *gin.Context) {
	articles, err := h.svc.AdminList(c.Request.Context(), c.Query("sort"), c.Query("order"))
	if err != nil {
		h.respondError(c, err, "failed to list articles")
		return
	}
	c.JSON(http.StatusOK, gin.H{"articles": models.NewArticleViews(articles)})
}

// readUpload liest die optionale Datei field eines Multipart-Requests. Ohne Datei ist das Ergebnis nil.
func (h *articleHandler) readUpload(c *gin.Context, field string) (*services.Upload, error) {
	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		return nil, nil
	}
	fh, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", services.ErrInvalidUpload, err)
	}
	if h.maxUpload > 0 && fh.Size > h.maxUpload {
		return nil, fmt.Errorf("%w: file exceeds %d bytes", services.ErrInvalidUpload, h.maxUpload)
	}

	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	return &services.Upload{Filename: fh.Filename, ContentType: contentType, Data: data}, nil
}

// respondError bildet Fehler auf HTTP-Statuscodes ab.
func (h *articleHandler) respondError(c *gin.Context, err error, msg string) {
	var vErr *models.ValidationError
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "article not found"})
	case errors.As(err, &vErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Error()})
	case errors.Is(err, store.ErrInvalidCursor),
		errors.Is(err, services.ErrInvalidSort),
		errors.Is(err, services.ErrInvalidUpload):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.log.Error(msg, zap.String("path", c.Request.URL.Path), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
	}
}
