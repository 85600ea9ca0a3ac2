package models

import "time"

// RecipeRelation is the shared shape of "user marked recipe" tables.
// Embedding types get their own composite unique index on (user_id, recipe_id).
type RecipeRelation struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UserID    uint      `gorm:"not null;uniqueIndex:,composite:user_recipe" json:"user_id"`
	RecipeID  uint      `gorm:"not null;index;uniqueIndex:,composite:user_recipe" json:"recipe_id"`
}

// Favorite marks a recipe as one of the user's favorites
type Favorite struct {
	RecipeRelation
}

// ShoppingCart marks a recipe as being in the user's shopping cart
type ShoppingCart struct {
	RecipeRelation
}

// TableName keeps the singular table name used by the shopping list queries
func (ShoppingCart) TableName() string {
	return "shopping_carts"
}
