package models

import "time"

const (
	// MinAmount is the smallest allowed ingredient amount and cooking time
	MinAmount = 1
	// MaxAmount is the largest allowed ingredient amount and cooking time
	MaxAmount = 32767
)

// Recipe is a user-authored recipe. The (name, text) pair is unique.
type Recipe struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	AuthorID    uint      `gorm:"not null;index" json:"author_id"`
	Name        string    `gorm:"size:200;not null;index;uniqueIndex:idx_recipe_name_text" json:"name"`
	Text        string    `gorm:"not null;uniqueIndex:idx_recipe_name_text" json:"text"`
	CookingTime int       `gorm:"not null;check:chk_recipe_cooking_time,cooking_time >= 1 AND cooking_time <= 32767" json:"cooking_time"`
	Image       string    `json:"image"`

	// Relationships
	Author      User               `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Tags        []Tag              `gorm:"many2many:recipe_tags;" json:"tags,omitempty"`
	Ingredients []IngredientRecipe `gorm:"foreignKey:RecipeID" json:"ingredients,omitempty"`
}

// IngredientRecipe links a recipe to an ingredient with an amount.
// Each ingredient appears at most once per recipe.
type IngredientRecipe struct {
	ID           uint `gorm:"primarykey" json:"id"`
	RecipeID     uint `gorm:"not null;uniqueIndex:idx_recipe_ingredient" json:"recipe_id"`
	IngredientID uint `gorm:"not null;index;uniqueIndex:idx_recipe_ingredient" json:"ingredient_id"`
	Amount       int  `gorm:"not null;check:chk_ingredient_amount,amount >= 1 AND amount <= 32767" json:"amount"`

	// Relationships
	Ingredient Ingredient `gorm:"foreignKey:IngredientID" json:"ingredient,omitempty"`
}
