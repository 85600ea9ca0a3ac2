package recipes

import (
	"context"

	"github.com/mikepea/foodgram/pkg/foodgram/apperr"
	"github.com/mikepea/foodgram/pkg/foodgram/metrics"
	"github.com/mikepea/foodgram/pkg/foodgram/models"
	"gorm.io/gorm"
)

// ingredientBatchSize bounds the rows per INSERT when linking ingredients
const ingredientBatchSize = 100

// Writer applies validated payloads. Each operation runs in one transaction,
// so a recipe is never observed with links from two different writes.
type Writer struct {
	db *gorm.DB
}

// NewWriter creates a writer
func NewWriter(db *gorm.DB) *Writer {
	return &Writer{db: db}
}

// Create inserts a recipe authored by authorID with its ingredient and tag
// links. image is the stored image path. Unique violations surface as
// apperr.ErrConflict and nothing is persisted.
func (w *Writer) Create(ctx context.Context, authorID uint, p RecipePayload, image string) (*models.Recipe, error) {
	recipe := &models.Recipe{
		AuthorID:    authorID,
		Name:        p.Name,
		Text:        p.Text,
		CookingTime: p.CookingTime,
		Image:       image,
	}

	err := w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Tags", "Ingredients", "Author").Create(recipe).Error; err != nil {
			return err
		}
		if err := linkIngredients(tx, recipe.ID, p.Ingredients); err != nil {
			return err
		}
		return replaceTags(tx, recipe, p.Tags)
	})
	metrics.RecipeWrites.WithLabelValues("create", metrics.Outcome(err)).Inc()
	if err != nil {
		return nil, apperr.FromDB(err)
	}
	return recipe, nil
}

// Update replaces the recipe's ingredient and tag links wholesale and
// updates its scalar fields. An empty image keeps the current one.
func (w *Writer) Update(ctx context.Context, recipe *models.Recipe, p RecipePayload, image string) error {
	err := w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("recipe_id = ?", recipe.ID).Delete(&models.IngredientRecipe{}).Error; err != nil {
			return err
		}
		if err := linkIngredients(tx, recipe.ID, p.Ingredients); err != nil {
			return err
		}
		if err := replaceTags(tx, recipe, p.Tags); err != nil {
			return err
		}

		updates := map[string]interface{}{
			"name":         p.Name,
			"text":         p.Text,
			"cooking_time": p.CookingTime,
		}
		if image != "" {
			updates["image"] = image
		}
		return tx.Model(recipe).Omit("Tags", "Ingredients", "Author").Updates(updates).Error
	})
	metrics.RecipeWrites.WithLabelValues("update", metrics.Outcome(err)).Inc()
	return apperr.FromDB(err)
}

// Delete removes the recipe together with its links, favorites and cart rows
func (w *Writer) Delete(ctx context.Context, recipe *models.Recipe) error {
	err := w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(recipe).Association("Tags").Clear(); err != nil {
			return err
		}
		for _, dependent := range []interface{}{&models.IngredientRecipe{}, &models.Favorite{}, &models.ShoppingCart{}} {
			if err := tx.Where("recipe_id = ?", recipe.ID).Delete(dependent).Error; err != nil {
				return err
			}
		}
		return tx.Delete(recipe).Error
	})
	metrics.RecipeWrites.WithLabelValues("delete", metrics.Outcome(err)).Inc()
	return apperr.FromDB(err)
}

func linkIngredients(tx *gorm.DB, recipeID uint, items []IngredientAmount) error {
	links := make([]models.IngredientRecipe, len(items))
	for i, item := range items {
		links[i] = models.IngredientRecipe{
			RecipeID:     recipeID,
			IngredientID: item.ID,
			Amount:       item.Amount,
		}
	}
	if len(links) == 0 {
		return nil
	}
	return tx.Omit("Ingredient").CreateInBatches(links, ingredientBatchSize).Error
}

// replaceTags sets the recipe's tag links to exactly ids
func replaceTags(tx *gorm.DB, recipe *models.Recipe, ids []uint) error {
	var tags []models.Tag
	if len(ids) > 0 {
		if err := tx.Where("id IN ?", ids).Order("id").Find(&tags).Error; err != nil {
			return err
		}
	}
	return tx.Model(recipe).Association("Tags").Replace(tags)
}
