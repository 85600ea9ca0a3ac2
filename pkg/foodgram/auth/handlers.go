package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/foodgram/pkg/foodgram/models"
	"gorm.io/gorm"
)

// Handler handles token requests
type Handler struct {
	db      *gorm.DB
	limiter *RateLimiter
}

// NewHandler creates a new auth handler. A nil limiter disables rate limiting.
func NewHandler(db *gorm.DB, limiter *RateLimiter) *Handler {
	return &Handler{db: db, limiter: limiter}
}

// LoginRequest represents the token login request body
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse represents the token login response
type TokenResponse struct {
	AuthToken string `json:"auth_token"`
}

// Login exchanges credentials for a token
// @Summary Obtain a token
// @Description Authenticate with email and password to receive a JWT token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} TokenResponse
// @Failure 400 {object} map[string]string "Validation error or invalid credentials"
// @Failure 429 {object} map[string]string "Too many attempts"
// @Router /auth/token/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	if err := h.db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unable to log in with provided credentials"})
		return
	}

	if !CheckPassword(req.Password, user.PasswordHash) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unable to log in with provided credentials"})
		return
	}

	token, err := GenerateToken(user.ID, user.Email, user.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, TokenResponse{AuthToken: token})
}

// Logout handles client-side token invalidation
// @Summary Discard a token
// @Tags auth
// @Success 204
// @Security BearerAuth
// @Router /auth/token/logout [post]
func (h *Handler) Logout(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// RegisterRoutes registers auth routes on the given router group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	if h.limiter != nil {
		rg.POST("/token/login", h.limiter.Middleware(), h.Login)
	} else {
		rg.POST("/token/login", h.Login)
	}
	rg.POST("/token/logout", AuthMiddleware(), h.Logout)
}
