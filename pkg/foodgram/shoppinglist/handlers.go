package shoppinglist

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/foodgram/pkg/foodgram/apperr"
	"github.com/mikepea/foodgram/pkg/foodgram/auth"
	"github.com/mikepea/foodgram/pkg/foodgram/metrics"
	"github.com/mikepea/foodgram/pkg/foodgram/models"
	"gorm.io/gorm"
)

// Handler serves the shopping list download
type Handler struct {
	db       *gorm.DB
	renderer Renderer
}

// NewHandler creates a new shopping list handler
func NewHandler(db *gorm.DB, renderer Renderer) *Handler {
	return &Handler{db: db, renderer: renderer}
}

// Filename returns the attachment name for a user's list
func Filename(username string) string {
	return fmt.Sprintf("%s's-shopping-list.pdf", username)
}

// Download renders the current user's shopping list
// @Summary Download shopping list
// @Description Sums the ingredients of all recipes in the shopping cart and returns them as a PDF
// @Tags recipes
// @Produce application/pdf
// @Success 200 {file} binary
// @Failure 401 {object} map[string]string
// @Failure 500 {object} map[string]string "Font unavailable"
// @Security BearerAuth
// @Router /recipes/download_shopping_cart [get]
func (h *Handler) Download(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	var user models.User
	if err := h.db.First(&user, userID).Error; err != nil {
		apperr.Respond(c, apperr.FromDB(err), "User not found")
		return
	}

	items, err := Aggregate(c.Request.Context(), h.db, userID)
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	doc, err := h.renderer.Render(items)
	metrics.ShoppingListRenders.WithLabelValues(metrics.Outcome(err)).Inc()
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	c.DataFromReader(http.StatusOK, doc.Size(), "application/pdf", doc, map[string]string{
		"Content-Disposition": fmt.Sprintf(`attachment; filename="%s"`, Filename(user.Username)),
	})
}

// RegisterRoutes registers the download on the recipes group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/download_shopping_cart", auth.RequireAuth(), h.Download)
}
