package recipes

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/foodgram/pkg/foodgram/apperr"
	"github.com/mikepea/foodgram/pkg/foodgram/auth"
	"github.com/mikepea/foodgram/pkg/foodgram/models"
	"github.com/mikepea/foodgram/pkg/foodgram/pagination"
	"github.com/mikepea/foodgram/pkg/foodgram/presenter"
	"github.com/mikepea/foodgram/pkg/foodgram/relations"
	"github.com/mikepea/foodgram/pkg/foodgram/validation"
	"gorm.io/gorm"
)

// User-facing messages
const (
	MsgRecipeNotFound     = "Recipe not found"
	MsgRecipeConflict     = "Recipe with this name and text already exists"
	MsgAlreadyFavorited   = "Recipe is already in favorites"
	MsgNotFavorited       = "Recipe is not in favorites"
	MsgAlreadyInCart      = "Recipe is already in the shopping cart"
	MsgNotInCart          = "Recipe is not in the shopping cart"
	MsgInvalidRecipeID    = "Invalid recipe ID"
	MsgInvalidAuthorQuery = "Invalid author ID"
)

// toggle is an add/remove relation between the current user and a recipe
type toggle interface {
	Add(ctx context.Context, subjectID, objectID uint) error
	Remove(ctx context.Context, subjectID, objectID uint) error
}

// Handler handles recipe requests
type Handler struct {
	db        *gorm.DB
	validator *Validator
	writer    *Writer
	images    ImageStore
	presenter *presenter.Presenter
	paginator pagination.Paginator
	favorites toggle
	cart      toggle
}

// NewHandler creates a new recipes handler
func NewHandler(db *gorm.DB, images ImageStore, p *presenter.Presenter, paginator pagination.Paginator) *Handler {
	return &Handler{
		db:        db,
		validator: NewValidator(db),
		writer:    NewWriter(db),
		images:    images,
		presenter: p,
		paginator: paginator,
		favorites: relations.NewFavorites(db),
		cart:      relations.NewShoppingCart(db),
	}
}

func parseRecipeID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": MsgInvalidRecipeID})
		return 0, false
	}
	return uint(id), true
}

// loadRecipe fetches the recipe named by the :id parameter, writing the
// error response when it cannot.
func (h *Handler) loadRecipe(c *gin.Context, preload bool) (*models.Recipe, bool) {
	id, ok := parseRecipeID(c)
	if !ok {
		return nil, false
	}

	query := h.db.WithContext(c.Request.Context())
	if preload {
		query = presenter.PreloadRecipe(query)
	}

	var recipe models.Recipe
	if err := query.First(&recipe, id).Error; err != nil {
		apperr.Respond(c, apperr.FromDB(err), MsgRecipeNotFound)
		return nil, false
	}
	return &recipe, true
}

// loadOwnedRecipe is loadRecipe restricted to the recipe's author
func (h *Handler) loadOwnedRecipe(c *gin.Context) (*models.Recipe, bool) {
	recipe, ok := h.loadRecipe(c, false)
	if !ok {
		return nil, false
	}
	userID, _ := auth.GetUserID(c)
	if recipe.AuthorID != userID {
		apperr.Respond(c, apperr.ErrForbidden)
		return nil, false
	}
	return recipe, true
}

// respondRecipe reloads the recipe with its relations and writes it
func (h *Handler) respondRecipe(c *gin.Context, status int, id uint) {
	ctx := c.Request.Context()
	viewerID, _ := auth.GetUserID(c)

	var recipe models.Recipe
	if err := presenter.PreloadRecipe(h.db.WithContext(ctx)).First(&recipe, id).Error; err != nil {
		apperr.Respond(c, apperr.FromDB(err), MsgRecipeNotFound)
		return
	}
	resp, err := h.presenter.Recipe(ctx, viewerID, recipe)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(status, resp)
}

// List returns recipes, newest first
// @Summary List recipes
// @Description List recipes with optional filters, newest first
// @Tags recipes
// @Produce json
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Param author query int false "Author ID"
// @Param tags query []string false "Tag slugs" collectionFormat(multi)
// @Param is_favorited query bool false "Only the current user's favorites"
// @Param is_in_shopping_cart query bool false "Only recipes in the current user's cart"
// @Success 200 {object} pagination.Page[presenter.RecipeResponse]
// @Failure 400 {object} map[string]string
// @Router /recipes [get]
func (h *Handler) List(c *gin.Context) {
	ctx := c.Request.Context()
	viewerID, _ := auth.GetUserID(c)
	params := h.paginator.Parse(c)

	query := h.db.WithContext(ctx).Model(&models.Recipe{})

	if author := c.Query("author"); author != "" {
		authorID, err := strconv.ParseUint(author, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": MsgInvalidAuthorQuery})
			return
		}
		query = query.Where("recipes.author_id = ?", authorID)
	}

	if slugs := c.QueryArray("tags"); len(slugs) > 0 {
		tagged := h.db.Table("recipe_tags").
			Select("recipe_tags.recipe_id").
			Joins("INNER JOIN tags ON tags.id = recipe_tags.tag_id").
			Where("tags.slug IN ?", slugs)
		query = query.Where("recipes.id IN (?)", tagged)
	}

	if viewerID != 0 {
		if queryFlag(c, "is_favorited") {
			query = query.Where("recipes.id IN (?)",
				h.db.Model(&models.Favorite{}).Select("recipe_id").Where("user_id = ?", viewerID))
		}
		if queryFlag(c, "is_in_shopping_cart") {
			query = query.Where("recipes.id IN (?)",
				h.db.Model(&models.ShoppingCart{}).Select("recipe_id").Where("user_id = ?", viewerID))
		}
	}

	query = query.Session(&gorm.Session{})

	var count int64
	if err := query.Count(&count).Error; err != nil {
		apperr.Respond(c, err)
		return
	}

	var recipes []models.Recipe
	err := presenter.PreloadRecipe(query).
		Order("recipes.created_at DESC, recipes.id DESC").
		Scopes(params.Scope).
		Find(&recipes).Error
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	results, err := h.presenter.Recipes(ctx, viewerID, recipes)
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, pagination.NewPage(c, params, count, results))
}

// queryFlag reports whether a boolean query parameter is set to a true value
func queryFlag(c *gin.Context, name string) bool {
	v, err := strconv.ParseBool(c.Query(name))
	return err == nil && v
}

// Get returns a recipe
// @Summary Get a recipe
// @Tags recipes
// @Produce json
// @Param id path int true "Recipe ID"
// @Success 200 {object} presenter.RecipeResponse
// @Failure 404 {object} map[string]string "Recipe not found"
// @Router /recipes/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	recipe, ok := h.loadRecipe(c, true)
	if !ok {
		return
	}

	viewerID, _ := auth.GetUserID(c)
	resp, err := h.presenter.Recipe(c.Request.Context(), viewerID, *recipe)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// storeImage saves the payload image, turning decode failures into a
// validation error on the image field.
func (h *Handler) storeImage(c *gin.Context, data string) (string, bool) {
	image, err := h.images.Save(data)
	if err != nil {
		if errors.Is(err, ErrInvalidImage) {
			verr := apperr.NewValidationError()
			verr.Add("image", "%s", err.Error())
			apperr.Respond(c, verr)
		} else {
			apperr.Respond(c, err)
		}
		return "", false
	}
	return image, true
}

// respondWriteError reports a failed write transaction
func respondWriteError(c *gin.Context, err error) {
	if errors.Is(err, apperr.ErrConflict) {
		apperr.Respond(c, err, MsgRecipeConflict)
		return
	}
	apperr.Respond(c, err)
}

// Create creates a recipe authored by the current user
// @Summary Create a recipe
// @Description Create a recipe with tags, ingredients and a base64 encoded image
// @Tags recipes
// @Accept json
// @Produce json
// @Param request body RecipePayload true "Recipe"
// @Success 201 {object} presenter.RecipeResponse
// @Failure 400 {object} map[string][]string "Validation error"
// @Failure 401 {object} map[string]string
// @Failure 409 {object} map[string]string "Recipe already exists"
// @Security BearerAuth
// @Router /recipes [post]
func (h *Handler) Create(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	ctx := c.Request.Context()

	var req RecipePayload
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Respond(c, validation.FromBinding(err))
		return
	}

	if err := h.validator.Validate(ctx, req, 0); err != nil {
		apperr.Respond(c, err)
		return
	}

	image, ok := h.storeImage(c, req.Image)
	if !ok {
		return
	}

	recipe, err := h.writer.Create(ctx, userID, req, image)
	if err != nil {
		h.images.Remove(image)
		respondWriteError(c, err)
		return
	}

	h.respondRecipe(c, http.StatusCreated, recipe.ID)
}

// Update updates a recipe owned by the current user
// @Summary Update a recipe
// @Description Replace the recipe's tags and ingredients and update the supplied fields
// @Tags recipes
// @Accept json
// @Produce json
// @Param id path int true "Recipe ID"
// @Param request body RecipeUpdate true "Recipe"
// @Success 200 {object} presenter.RecipeResponse
// @Failure 400 {object} map[string][]string "Validation error"
// @Failure 403 {object} map[string]string "Not the author"
// @Failure 404 {object} map[string]string "Recipe not found"
// @Failure 409 {object} map[string]string "Recipe already exists"
// @Security BearerAuth
// @Router /recipes/{id} [patch]
func (h *Handler) Update(c *gin.Context) {
	ctx := c.Request.Context()

	recipe, ok := h.loadOwnedRecipe(c)
	if !ok {
		return
	}

	var upd RecipeUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		apperr.Respond(c, validation.FromBinding(err))
		return
	}
	req := upd.Merge(recipe)

	if err := h.validator.Validate(ctx, req, recipe.ID); err != nil {
		apperr.Respond(c, err)
		return
	}

	var image string
	if req.Image != "" {
		if image, ok = h.storeImage(c, req.Image); !ok {
			return
		}
	}

	oldImage := recipe.Image
	if err := h.writer.Update(ctx, recipe, req, image); err != nil {
		h.images.Remove(image)
		respondWriteError(c, err)
		return
	}
	if image != "" {
		h.images.Remove(oldImage)
	}

	h.respondRecipe(c, http.StatusOK, recipe.ID)
}

// Delete deletes a recipe owned by the current user
// @Summary Delete a recipe
// @Tags recipes
// @Param id path int true "Recipe ID"
// @Success 204
// @Failure 403 {object} map[string]string "Not the author"
// @Failure 404 {object} map[string]string "Recipe not found"
// @Security BearerAuth
// @Router /recipes/{id} [delete]
func (h *Handler) Delete(c *gin.Context) {
	recipe, ok := h.loadOwnedRecipe(c)
	if !ok {
		return
	}

	if err := h.writer.Delete(c.Request.Context(), recipe); err != nil {
		apperr.Respond(c, err)
		return
	}
	h.images.Remove(recipe.Image)

	c.Status(http.StatusNoContent)
}

func (h *Handler) addRelation(c *gin.Context, t toggle, alreadyMsg string) {
	recipe, ok := h.loadRecipe(c, false)
	if !ok {
		return
	}
	userID, _ := auth.GetUserID(c)

	if err := t.Add(c.Request.Context(), userID, recipe.ID); err != nil {
		if errors.Is(err, apperr.ErrAlreadyExists) {
			apperr.Respond(c, err, alreadyMsg)
			return
		}
		apperr.Respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, h.presenter.ShortRecipe(*recipe))
}

func (h *Handler) removeRelation(c *gin.Context, t toggle, absentMsg string) {
	recipe, ok := h.loadRecipe(c, false)
	if !ok {
		return
	}
	userID, _ := auth.GetUserID(c)

	if err := t.Remove(c.Request.Context(), userID, recipe.ID); err != nil {
		if errors.Is(err, apperr.ErrNotPresent) {
			apperr.Respond(c, err, absentMsg)
			return
		}
		apperr.Respond(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// AddFavorite adds a recipe to the current user's favorites
// @Summary Add to favorites
// @Tags recipes
// @Produce json
// @Param id path int true "Recipe ID"
// @Success 201 {object} presenter.ShortRecipeResponse
// @Failure 400 {object} map[string]string "Already in favorites"
// @Failure 404 {object} map[string]string "Recipe not found"
// @Security BearerAuth
// @Router /recipes/{id}/favorite [post]
func (h *Handler) AddFavorite(c *gin.Context) {
	h.addRelation(c, h.favorites, MsgAlreadyFavorited)
}

// RemoveFavorite removes a recipe from the current user's favorites
// @Summary Remove from favorites
// @Tags recipes
// @Param id path int true "Recipe ID"
// @Success 204
// @Failure 400 {object} map[string]string "Not in favorites"
// @Failure 404 {object} map[string]string "Recipe not found"
// @Security BearerAuth
// @Router /recipes/{id}/favorite [delete]
func (h *Handler) RemoveFavorite(c *gin.Context) {
	h.removeRelation(c, h.favorites, MsgNotFavorited)
}

// AddToCart adds a recipe to the current user's shopping cart
// @Summary Add to shopping cart
// @Tags recipes
// @Produce json
// @Param id path int true "Recipe ID"
// @Success 201 {object} presenter.ShortRecipeResponse
// @Failure 400 {object} map[string]string "Already in the cart"
// @Failure 404 {object} map[string]string "Recipe not found"
// @Security BearerAuth
// @Router /recipes/{id}/shopping_cart [post]
func (h *Handler) AddToCart(c *gin.Context) {
	h.addRelation(c, h.cart, MsgAlreadyInCart)
}

// RemoveFromCart removes a recipe from the current user's shopping cart
// @Summary Remove from shopping cart
// @Tags recipes
// @Param id path int true "Recipe ID"
// @Success 204
// @Failure 400 {object} map[string]string "Not in the cart"
// @Failure 404 {object} map[string]string "Recipe not found"
// @Security BearerAuth
// @Router /recipes/{id}/shopping_cart [delete]
func (h *Handler) RemoveFromCart(c *gin.Context) {
	h.removeRelation(c, h.cart, MsgNotInCart)
}

// RegisterRoutes registers recipe routes on the recipes group. The group is
// expected to run auth.OptionalAuth.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)

	authed := rg.Group("", auth.RequireAuth())
	authed.POST("", h.Create)
	authed.PATCH("/:id", h.Update)
	authed.DELETE("/:id", h.Delete)
	authed.POST("/:id/favorite", h.AddFavorite)
	authed.DELETE("/:id/favorite", h.RemoveFavorite)
	authed.POST("/:id/shopping_cart", h.AddToCart)
	authed.DELETE("/:id/shopping_cart", h.RemoveFromCart)
}
