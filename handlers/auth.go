package handlers

import (
	"net/http"

	"school-site/services"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const sessionAdminKey = "admin"

// RequireAdmin lässt nur Requests mit angemeldeter Admin-Session durch.
func RequireAdmin(c *gin.Context) {
	session := sessions.Default(c)
	email, ok := session.Get(sessionAdminKey).(string)
	if !ok || email == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	c.Set(sessionAdminKey, email)
	c.Next()
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// SetupAuthRoutes registriert Login, Logout und Session-Abfrage.
func SetupAuthRoutes(router *gin.Engine, auth *services.AuthService, log *zap.Logger) {
	api := router.Group("/api")

	api.POST("/login", func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
			return
		}
		email, err := auth.Authenticate(req.Email, req.Password)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
			return
		}

		session := sessions.Default(c)
		session.Set(sessionAdminKey, email)
		if err := session.Save(); err != nil {
			log.Error("failed to save session", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save session"})
			return
		}
		log.Info("admin logged in", zap.String("email", email))
		c.JSON(http.StatusOK, gin.H{"success": true, "email": email})
	})

	api.POST("/logout", func(c *gin.Context) {
		session := sessions.Default(c)
		session.Clear()
		session.Options(sessions.Options{Path: "/", MaxAge: -1})
		if err := session.Save(); err != nil {
			log.Error("failed to clear session", zap.Error(err))
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	})

	api.GET("/session", func(c *gin.Context) {
		email, _ := sessions.Default(c).Get(sessionAdminKey).(string)
		c.JSON(http.StatusOK, gin.H{"authenticated": email != "", "email": email})
	})
}
