// Package presenter builds the JSON representations of users, tags,
// ingredients and recipes as seen by a particular viewer.
package presenter

import (
	"context"
	"strings"

	"github.com/mikepea/foodgram/pkg/foodgram/models"
	"github.com/mikepea/foodgram/pkg/foodgram/relations"
	"gorm.io/gorm"
)

// UserResponse represents a user in API responses
type UserResponse struct {
	ID           uint   `json:"id"`
	Email        string `json:"email"`
	Username     string `json:"username"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	IsSubscribed bool   `json:"is_subscribed"`
}

// TagResponse represents a tag in API responses
type TagResponse struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
	Slug  string `json:"slug"`
}

// IngredientResponse represents an ingredient in API responses
type IngredientResponse struct {
	ID              uint   `json:"id"`
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
}

// RecipeIngredientResponse is an ingredient with its amount in a recipe
type RecipeIngredientResponse struct {
	ID              uint   `json:"id"`
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
	Amount          int    `json:"amount"`
}

// RecipeResponse is the full read representation of a recipe
type RecipeResponse struct {
	ID               uint                       `json:"id"`
	Tags             []TagResponse              `json:"tags"`
	Author           UserResponse               `json:"author"`
	Ingredients      []RecipeIngredientResponse `json:"ingredients"`
	IsFavorited      bool                       `json:"is_favorited"`
	IsInShoppingCart bool                       `json:"is_in_shopping_cart"`
	Name             string                     `json:"name"`
	Image            string                     `json:"image"`
	Text             string                     `json:"text"`
	CookingTime      int                        `json:"cooking_time"`
}

// ShortRecipeResponse is the compact recipe used by toggles and subscriptions
type ShortRecipeResponse struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Image       string `json:"image"`
	CookingTime int    `json:"cooking_time"`
}

// SubscriptionResponse is a followed author with a preview of their recipes
type SubscriptionResponse struct {
	UserResponse
	Recipes      []ShortRecipeResponse `json:"recipes"`
	RecipesCount int64                 `json:"recipes_count"`
}

// Presenter resolves viewer-dependent flags and image URLs
type Presenter struct {
	db        *gorm.DB
	mediaURL  string
	favorites *relations.Toggle[models.Favorite]
	cart      *relations.Toggle[models.ShoppingCart]
	follows   *relations.Subscriptions
}

// New creates a presenter. mediaURL prefixes stored image paths.
func New(db *gorm.DB, mediaURL string) *Presenter {
	return &Presenter{
		db:        db,
		mediaURL:  strings.TrimSuffix(mediaURL, "/"),
		favorites: relations.NewFavorites(db),
		cart:      relations.NewShoppingCart(db),
		follows:   relations.NewSubscriptions(db),
	}
}

// ImageURL returns the public URL for a stored image path
func (p *Presenter) ImageURL(image string) string {
	if image == "" {
		return ""
	}
	return p.mediaURL + "/" + image
}

// PreloadRecipe loads everything the recipe representation needs
func PreloadRecipe(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Author").
		Preload("Tags", func(db *gorm.DB) *gorm.DB { return db.Order("tags.id") }).
		Preload("Ingredients", func(db *gorm.DB) *gorm.DB { return db.Order("ingredient_recipes.id") }).
		Preload("Ingredients.Ingredient")
}

// Tag converts a tag
func Tag(t models.Tag) TagResponse {
	return TagResponse{ID: t.ID, Name: t.Name, Color: t.Color, Slug: t.Slug}
}

// Ingredient converts an ingredient
func Ingredient(i models.Ingredient) IngredientResponse {
	return IngredientResponse{ID: i.ID, Name: i.Name, MeasurementUnit: i.MeasurementUnit}
}

func user(u models.User, subscribed bool) UserResponse {
	return UserResponse{
		ID:           u.ID,
		Email:        u.Email,
		Username:     u.Username,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		IsSubscribed: subscribed,
	}
}

// Users converts users for viewerID. viewerID 0 is an anonymous viewer.
func (p *Presenter) Users(ctx context.Context, viewerID uint, users []models.User) ([]UserResponse, error) {
	ids := make([]uint, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	followed, err := p.follows.ObjectIDs(ctx, viewerID, ids)
	if err != nil {
		return nil, err
	}

	out := make([]UserResponse, len(users))
	for i, u := range users {
		out[i] = user(u, followed[u.ID])
	}
	return out, nil
}

// User converts a single user for viewerID
func (p *Presenter) User(ctx context.Context, viewerID uint, u models.User) (UserResponse, error) {
	out, err := p.Users(ctx, viewerID, []models.User{u})
	if err != nil {
		return UserResponse{}, err
	}
	return out[0], nil
}

// Recipes converts recipes loaded with PreloadRecipe for viewerID
func (p *Presenter) Recipes(ctx context.Context, viewerID uint, recipes []models.Recipe) ([]RecipeResponse, error) {
	recipeIDs := make([]uint, len(recipes))
	authors := make([]models.User, len(recipes))
	for i, r := range recipes {
		recipeIDs[i] = r.ID
		authors[i] = r.Author
	}

	favorited, err := p.favorites.ObjectIDs(ctx, viewerID, recipeIDs)
	if err != nil {
		return nil, err
	}
	inCart, err := p.cart.ObjectIDs(ctx, viewerID, recipeIDs)
	if err != nil {
		return nil, err
	}
	authorResponses, err := p.Users(ctx, viewerID, authors)
	if err != nil {
		return nil, err
	}

	out := make([]RecipeResponse, len(recipes))
	for i, r := range recipes {
		tags := make([]TagResponse, len(r.Tags))
		for j, t := range r.Tags {
			tags[j] = Tag(t)
		}
		ingredients := make([]RecipeIngredientResponse, len(r.Ingredients))
		for j, link := range r.Ingredients {
			ingredients[j] = RecipeIngredientResponse{
				ID:              link.IngredientID,
				Name:            link.Ingredient.Name,
				MeasurementUnit: link.Ingredient.MeasurementUnit,
				Amount:          link.Amount,
			}
		}

		out[i] = RecipeResponse{
			ID:               r.ID,
			Tags:             tags,
			Author:           authorResponses[i],
			Ingredients:      ingredients,
			IsFavorited:      favorited[r.ID],
			IsInShoppingCart: inCart[r.ID],
			Name:             r.Name,
			Image:            p.ImageURL(r.Image),
			Text:             r.Text,
			CookingTime:      r.CookingTime,
		}
	}
	return out, nil
}

// Recipe converts a single recipe loaded with PreloadRecipe
func (p *Presenter) Recipe(ctx context.Context, viewerID uint, r models.Recipe) (RecipeResponse, error) {
	out, err := p.Recipes(ctx, viewerID, []models.Recipe{r})
	if err != nil {
		return RecipeResponse{}, err
	}
	return out[0], nil
}

// ShortRecipe converts a recipe to its compact form
func (p *Presenter) ShortRecipe(r models.Recipe) ShortRecipeResponse {
	return ShortRecipeResponse{
		ID:          r.ID,
		Name:        r.Name,
		Image:       p.ImageURL(r.Image),
		CookingTime: r.CookingTime,
	}
}

// Subscriptions converts followed authors, attaching up to recipesLimit of
// their newest recipes. recipesLimit <= 0 attaches all of them.
func (p *Presenter) Subscriptions(ctx context.Context, viewerID uint, authors []models.User, recipesLimit int) ([]SubscriptionResponse, error) {
	users, err := p.Users(ctx, viewerID, authors)
	if err != nil {
		return nil, err
	}

	db := p.db.WithContext(ctx)
	out := make([]SubscriptionResponse, len(authors))
	for i, a := range authors {
		var count int64
		if err := db.Model(&models.Recipe{}).Where("author_id = ?", a.ID).Count(&count).Error; err != nil {
			return nil, err
		}

		query := db.Where("author_id = ?", a.ID).Order("created_at DESC, id DESC")
		if recipesLimit > 0 {
			query = query.Limit(recipesLimit)
		}
		var recipes []models.Recipe
		if err := query.Find(&recipes).Error; err != nil {
			return nil, err
		}

		short := make([]ShortRecipeResponse, len(recipes))
		for j, r := range recipes {
			short[j] = p.ShortRecipe(r)
		}
		out[i] = SubscriptionResponse{UserResponse: users[i], Recipes: short, RecipesCount: count}
	}
	return out, nil
}
