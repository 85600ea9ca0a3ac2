package users

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/foodgram/pkg/foodgram/apperr"
	"github.com/mikepea/foodgram/pkg/foodgram/auth"
	"github.com/mikepea/foodgram/pkg/foodgram/logging"
	"github.com/mikepea/foodgram/pkg/foodgram/models"
	"github.com/mikepea/foodgram/pkg/foodgram/pagination"
	"github.com/mikepea/foodgram/pkg/foodgram/presenter"
	"github.com/mikepea/foodgram/pkg/foodgram/relations"
	"github.com/mikepea/foodgram/pkg/foodgram/validation"
	"gorm.io/gorm"
)

// User-facing messages
const (
	MsgUserNotFound      = "User not found"
	MsgInvalidUserID     = "Invalid user ID"
	MsgEmailTaken        = "user with this email already exists"
	MsgUsernameTaken     = "user with this username already exists"
	MsgUserConflict      = "User with this email or username already exists"
	MsgInvalidPassword   = "invalid password"
	MsgAlreadySubscribed = "You are already subscribed to this user"
	MsgNotSubscribed     = "You are not subscribed to this user"
	MsgSelfSubscription  = "You cannot subscribe to yourself"
	MsgInvalidLimit      = "recipes_limit must be a non-negative integer"
)

// Handler handles user-related requests
type Handler struct {
	db            *gorm.DB
	presenter     *presenter.Presenter
	paginator     pagination.Paginator
	subscriptions *relations.Subscriptions
}

// NewHandler creates a new users handler
func NewHandler(db *gorm.DB, p *presenter.Presenter, paginator pagination.Paginator) *Handler {
	validation.Setup()
	return &Handler{
		db:            db,
		presenter:     p,
		paginator:     paginator,
		subscriptions: relations.NewSubscriptions(db),
	}
}

// RegisterRequest represents the sign-up request body
type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email,max=254"`
	Username  string `json:"username" binding:"required,max=150,username"`
	FirstName string `json:"first_name" binding:"required,max=150"`
	LastName  string `json:"last_name" binding:"required,max=150"`
	Password  string `json:"password" binding:"required,min=8,max=128"`
}

// RegisterResponse is returned after sign-up
type RegisterResponse struct {
	Email     string `json:"email"`
	ID        uint   `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// SetPasswordRequest represents the password change request body
type SetPasswordRequest struct {
	NewPassword     string `json:"new_password" binding:"required,min=8,max=128"`
	CurrentPassword string `json:"current_password" binding:"required"`
}

func parseUserID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": MsgInvalidUserID})
		return 0, false
	}
	return uint(id), true
}

func (h *Handler) loadUser(c *gin.Context, id uint) (*models.User, bool) {
	var user models.User
	if err := h.db.WithContext(c.Request.Context()).First(&user, id).Error; err != nil {
		apperr.Respond(c, apperr.FromDB(err), MsgUserNotFound)
		return nil, false
	}
	return &user, true
}

func (h *Handler) respondUser(c *gin.Context, user models.User) {
	viewerID, _ := auth.GetUserID(c)
	resp, err := h.presenter.User(c.Request.Context(), viewerID, user)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Register creates a new account
// @Summary Register a user
// @Tags users
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Account details"
// @Success 201 {object} RegisterResponse
// @Failure 400 {object} map[string][]string "Validation error"
// @Router /users [post]
func (h *Handler) Register(c *gin.Context) {
	ctx := c.Request.Context()

	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Respond(c, validation.FromBinding(err))
		return
	}

	verr := apperr.NewValidationError()
	var count int64
	if err := h.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", req.Email).Count(&count).Error; err != nil {
		apperr.Respond(c, err)
		return
	}
	if count > 0 {
		verr.Add("email", MsgEmailTaken)
	}
	if err := h.db.WithContext(ctx).Model(&models.User{}).Where("username = ?", req.Username).Count(&count).Error; err != nil {
		apperr.Respond(c, err)
		return
	}
	if count > 0 {
		verr.Add("username", MsgUsernameTaken)
	}
	if err := verr.OrNil(); err != nil {
		apperr.Respond(c, err)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	user := models.User{
		Email:        req.Email,
		Username:     req.Username,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PasswordHash: hash,
		Role:         models.RoleUser,
	}
	if err := h.db.WithContext(ctx).Omit("Recipes").Create(&user).Error; err != nil {
		err = apperr.FromDB(err)
		if errors.Is(err, apperr.ErrConflict) {
			apperr.Respond(c, err, MsgUserConflict)
			return
		}
		apperr.Respond(c, err)
		return
	}

	logging.Ctx(ctx).Info().Uint("user_id", user.ID).Str("username", user.Username).Msg("User registered")

	c.JSON(http.StatusCreated, RegisterResponse{
		Email:     user.Email,
		ID:        user.ID,
		Username:  user.Username,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	})
}

// List returns users ordered by username
// @Summary List users
// @Tags users
// @Produce json
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} pagination.Page[presenter.UserResponse]
// @Router /users [get]
func (h *Handler) List(c *gin.Context) {
	ctx := c.Request.Context()
	viewerID, _ := auth.GetUserID(c)
	params := h.paginator.Parse(c)

	var count int64
	if err := h.db.WithContext(ctx).Model(&models.User{}).Count(&count).Error; err != nil {
		apperr.Respond(c, err)
		return
	}

	var users []models.User
	if err := h.db.WithContext(ctx).Order("username").Scopes(params.Scope).Find(&users).Error; err != nil {
		apperr.Respond(c, err)
		return
	}

	results, err := h.presenter.Users(ctx, viewerID, users)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, pagination.NewPage(c, params, count, results))
}

// Me returns the current user
// @Summary Get current user
// @Tags users
// @Produce json
// @Success 200 {object} presenter.UserResponse
// @Failure 401 {object} map[string]string
// @Security BearerAuth
// @Router /users/me [get]
func (h *Handler) Me(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	user, ok := h.loadUser(c, userID)
	if !ok {
		return
	}
	h.respondUser(c, *user)
}

// Get returns a user profile
// @Summary Get a user
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} presenter.UserResponse
// @Failure 404 {object} map[string]string "User not found"
// @Security BearerAuth
// @Router /users/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	id, ok := parseUserID(c)
	if !ok {
		return
	}
	user, ok := h.loadUser(c, id)
	if !ok {
		return
	}
	h.respondUser(c, *user)
}

// SetPassword changes the current user's password
// @Summary Change password
// @Tags users
// @Accept json
// @Param request body SetPasswordRequest true "Passwords"
// @Success 204
// @Failure 400 {object} map[string][]string "Validation error"
// @Security BearerAuth
// @Router /users/set_password [post]
func (h *Handler) SetPassword(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	var req SetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Respond(c, validation.FromBinding(err))
		return
	}

	user, ok := h.loadUser(c, userID)
	if !ok {
		return
	}

	if !auth.CheckPassword(req.CurrentPassword, user.PasswordHash) {
		verr := apperr.NewValidationError()
		verr.Add("current_password", MsgInvalidPassword)
		apperr.Respond(c, verr)
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	if err := h.db.WithContext(c.Request.Context()).Model(user).Update("password_hash", hash).Error; err != nil {
		apperr.Respond(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// recipesLimit parses the optional recipes_limit query parameter; 0 means no limit
func recipesLimit(c *gin.Context) (int, bool) {
	raw := c.Query("recipes_limit")
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": MsgInvalidLimit})
		return 0, false
	}
	return limit, true
}

// Subscriptions lists the authors the current user follows
// @Summary List subscriptions
// @Description Authors followed by the current user, each with a preview of their recipes
// @Tags users
// @Produce json
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Param recipes_limit query int false "Recipes per author"
// @Success 200 {object} pagination.Page[presenter.SubscriptionResponse]
// @Failure 401 {object} map[string]string
// @Security BearerAuth
// @Router /users/subscriptions [get]
func (h *Handler) Subscriptions(c *gin.Context) {
	ctx := c.Request.Context()
	userID, _ := auth.GetUserID(c)
	params := h.paginator.Parse(c)

	limit, ok := recipesLimit(c)
	if !ok {
		return
	}

	followed := h.db.Model(&models.Follow{}).Select("author_id").Where("user_id = ?", userID)
	query := h.db.WithContext(ctx).Model(&models.User{}).
		Where("users.id IN (?)", followed).
		Session(&gorm.Session{})

	var count int64
	if err := query.Count(&count).Error; err != nil {
		apperr.Respond(c, err)
		return
	}

	var authors []models.User
	if err := query.Order("users.username").Scopes(params.Scope).Find(&authors).Error; err != nil {
		apperr.Respond(c, err)
		return
	}

	results, err := h.presenter.Subscriptions(ctx, userID, authors, limit)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, pagination.NewPage(c, params, count, results))
}

// Subscribe follows a user
// @Summary Subscribe to a user
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Param recipes_limit query int false "Recipes in the response"
// @Success 201 {object} presenter.SubscriptionResponse
// @Failure 400 {object} map[string]string "Self or duplicate subscription"
// @Failure 404 {object} map[string]string "User not found"
// @Security BearerAuth
// @Router /users/{id}/subscribe [post]
func (h *Handler) Subscribe(c *gin.Context) {
	ctx := c.Request.Context()
	userID, _ := auth.GetUserID(c)

	id, ok := parseUserID(c)
	if !ok {
		return
	}
	limit, ok := recipesLimit(c)
	if !ok {
		return
	}
	author, ok := h.loadUser(c, id)
	if !ok {
		return
	}

	if err := h.subscriptions.Add(ctx, userID, author.ID); err != nil {
		switch {
		case errors.Is(err, apperr.ErrSelfSubscription):
			apperr.Respond(c, err, MsgSelfSubscription)
		case errors.Is(err, apperr.ErrAlreadyExists):
			apperr.Respond(c, err, MsgAlreadySubscribed)
		default:
			apperr.Respond(c, err)
		}
		return
	}

	results, err := h.presenter.Subscriptions(ctx, userID, []models.User{*author}, limit)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, results[0])
}

// Unsubscribe stops following a user
// @Summary Unsubscribe from a user
// @Tags users
// @Param id path int true "User ID"
// @Success 204
// @Failure 400 {object} map[string]string "Not subscribed"
// @Failure 404 {object} map[string]string "User not found"
// @Security BearerAuth
// @Router /users/{id}/subscribe [delete]
func (h *Handler) Unsubscribe(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	id, ok := parseUserID(c)
	if !ok {
		return
	}
	author, ok := h.loadUser(c, id)
	if !ok {
		return
	}

	if err := h.subscriptions.Remove(c.Request.Context(), userID, author.ID); err != nil {
		if errors.Is(err, apperr.ErrNotPresent) {
			apperr.Respond(c, err, MsgNotSubscribed)
			return
		}
		apperr.Respond(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// RegisterRoutes registers user routes on the users group. The group is
// expected to run auth.OptionalAuth.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Register)
	rg.GET("", h.List)

	authed := rg.Group("", auth.RequireAuth())
	authed.GET("/me", h.Me)
	authed.POST("/set_password", h.SetPassword)
	authed.GET("/subscriptions", h.Subscriptions)
	authed.GET("/:id", h.Get)
	authed.POST("/:id/subscribe", h.Subscribe)
	authed.DELETE("/:id/subscribe", h.Unsubscribe)
}
