package admin

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/foodgram/pkg/foodgram/apperr"
	"github.com/mikepea/foodgram/pkg/foodgram/auth"
	"github.com/mikepea/foodgram/pkg/foodgram/importer"
	"github.com/mikepea/foodgram/pkg/foodgram/models"
	"gorm.io/gorm"
)

// Handler handles admin requests
type Handler struct {
	db       *gorm.DB
	importer *importer.Importer
}

// NewHandler creates a new admin handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db, importer: importer.New(db)}
}

// UserResponse represents user data in admin responses
type UserResponse struct {
	ID          uint   `json:"id"`
	Email       string `json:"email"`
	Username    string `json:"username"`
	Role        string `json:"role"`
	CreatedAt   string `json:"created_at"`
	RecipeCount int64  `json:"recipe_count"`
}

// UpdateUserRequest represents the request to change a user's role
type UpdateUserRequest struct {
	Role string `json:"role" binding:"required,oneof=admin user"`
}

// StatsResponse represents catalogue and activity totals
type StatsResponse struct {
	TotalUsers       int64 `json:"total_users"`
	AdminUsers       int64 `json:"admin_users"`
	TotalRecipes     int64 `json:"total_recipes"`
	TotalTags        int64 `json:"total_tags"`
	TotalIngredients int64 `json:"total_ingredients"`
	TotalFavorites   int64 `json:"total_favorites"`
	TotalCartItems   int64 `json:"total_cart_items"`
	TotalFollows     int64 `json:"total_follows"`
}

func (h *Handler) toResponse(user models.User, recipeCount int64) UserResponse {
	return UserResponse{
		ID:          user.ID,
		Email:       user.Email,
		Username:    user.Username,
		Role:        string(user.Role),
		CreatedAt:   user.CreatedAt.Format("2006-01-02T15:04:05Z"),
		RecipeCount: recipeCount,
	}
}

// ListUsers returns all users (admin only)
// @Summary List users
// @Description Search by email or username with q, filter by role
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param q query string false "Email or username substring"
// @Param role query string false "admin or user"
// @Success 200 {array} UserResponse
// @Failure 403 {object} map[string]string "Admin access required"
// @Router /admin/users [get]
func (h *Handler) ListUsers(c *gin.Context) {
	db := h.db.WithContext(c.Request.Context())
	var users []models.User

	query := db.Order("created_at DESC")

	if search := c.Query("q"); search != "" {
		query = query.Where("email LIKE ? OR username LIKE ?", "%"+search+"%", "%"+search+"%")
	}
	if role := c.Query("role"); role != "" {
		query = query.Where("role = ?", role)
	}

	if err := query.Find(&users).Error; err != nil {
		apperr.Respond(c, err, "Failed to fetch users")
		return
	}

	type countRow struct {
		AuthorID uint
		Count    int64
	}
	var rows []countRow
	err := db.Model(&models.Recipe{}).Select("author_id, COUNT(*) AS count").Group("author_id").Scan(&rows).Error
	if err != nil {
		apperr.Respond(c, err, "Failed to count recipes")
		return
	}
	counts := make(map[uint]int64, len(rows))
	for _, r := range rows {
		counts[r.AuthorID] = r.Count
	}

	responses := make([]UserResponse, len(users))
	for i, user := range users {
		responses[i] = h.toResponse(user, counts[user.ID])
	}
	c.JSON(http.StatusOK, responses)
}

// UpdateUser changes a user's role (admin only)
// @Summary Change a user's role
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param request body UpdateUserRequest true "New role"
// @Success 200 {object} UserResponse
// @Failure 400 {object} map[string]string "Invalid role or self demotion"
// @Failure 404 {object} map[string]string "User not found"
// @Router /admin/users/{id} [patch]
func (h *Handler) UpdateUser(c *gin.Context) {
	db := h.db.WithContext(c.Request.Context())
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	var user models.User
	if err := db.First(&user, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	currentUserID, _ := auth.GetUserID(c)
	if uint(id) == currentUserID && models.Role(req.Role) != models.RoleAdmin {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot demote yourself"})
		return
	}

	if err := db.Model(&user).Update("role", req.Role).Error; err != nil {
		apperr.Respond(c, err, "Failed to update user")
		return
	}
	user.Role = models.Role(req.Role)

	var recipeCount int64
	if err := db.Model(&models.Recipe{}).Where("author_id = ?", user.ID).Count(&recipeCount).Error; err != nil {
		apperr.Respond(c, err, "Failed to count recipes")
		return
	}
	c.JSON(http.StatusOK, h.toResponse(user, recipeCount))
}

// GetStats returns catalogue and activity totals (admin only)
// @Summary System statistics
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} StatsResponse
// @Failure 500 {object} map[string]string
// @Router /admin/stats [get]
func (h *Handler) GetStats(c *gin.Context) {
	db := h.db.WithContext(c.Request.Context())
	var stats StatsResponse

	counts := []struct {
		query *gorm.DB
		dest  *int64
	}{
		{db.Model(&models.User{}), &stats.TotalUsers},
		{db.Model(&models.User{}).Where("role = ?", models.RoleAdmin), &stats.AdminUsers},
		{db.Model(&models.Recipe{}), &stats.TotalRecipes},
		{db.Model(&models.Tag{}), &stats.TotalTags},
		{db.Model(&models.Ingredient{}), &stats.TotalIngredients},
		{db.Model(&models.Favorite{}), &stats.TotalFavorites},
		{db.Model(&models.ShoppingCart{}), &stats.TotalCartItems},
		{db.Model(&models.Follow{}), &stats.TotalFollows},
	}
	for _, q := range counts {
		if err := q.query.Count(q.dest).Error; err != nil {
			apperr.Respond(c, err, "Failed to fetch stats")
			return
		}
	}

	c.JSON(http.StatusOK, stats)
}

// ImportIngredients loads ingredients from an uploaded CSV file
// @Summary Import ingredients
// @Description CSV columns: name, measurement_unit. Existing rows are kept.
// @Tags admin
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "CSV file"
// @Success 200 {object} importer.Result
// @Failure 400 {object} map[string]string "Missing or malformed file"
// @Router /admin/import/ingredients [post]
func (h *Handler) ImportIngredients(c *gin.Context) {
	h.importFile(c, h.importer.Ingredients)
}

// ImportTags loads tags from an uploaded CSV file
// @Summary Import tags
// @Description CSV columns: name, color, slug. Existing rows are kept.
// @Tags admin
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "CSV file"
// @Success 200 {object} importer.Result
// @Failure 400 {object} map[string]string "Missing or malformed file"
// @Router /admin/import/tags [post]
func (h *Handler) ImportTags(c *gin.Context) {
	h.importFile(c, h.importer.Tags)
}

type importFunc func(ctx context.Context, r io.Reader) (*importer.Result, error)

func (h *Handler) importFile(c *gin.Context, run importFunc) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "CSV file is required"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read uploaded file"})
		return
	}
	defer f.Close()

	result, err := run(c.Request.Context(), f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// RegisterRoutes registers admin routes on the given router group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/stats", h.GetStats)
	rg.GET("/users", h.ListUsers)
	rg.PATCH("/users/:id", h.UpdateUser)
	rg.POST("/import/ingredients", h.ImportIngredients)
	rg.POST("/import/tags", h.ImportTags)
}
