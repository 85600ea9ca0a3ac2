// Package shoppinglist sums the ingredients of the recipes in a user's
// shopping cart and renders them as a PDF document.
package shoppinglist

import (
	"context"

	"gorm.io/gorm"
)

// Item is one line of the shopping list
type Item struct {
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
	Amount          int64  `json:"amount"`
}

// Aggregate returns the ingredients of every recipe in the user's cart,
// grouped by name and unit with amounts summed, ordered by name then unit.
// An empty cart yields an empty slice.
func Aggregate(ctx context.Context, db *gorm.DB, userID uint) ([]Item, error) {
	items := []Item{}
	err := db.WithContext(ctx).
		Table("ingredient_recipes AS ir").
		Select("i.name AS name, i.measurement_unit AS measurement_unit, SUM(ir.amount) AS amount").
		Joins("INNER JOIN ingredients i ON i.id = ir.ingredient_id").
		Joins("INNER JOIN shopping_carts sc ON sc.recipe_id = ir.recipe_id").
		Where("sc.user_id = ?", userID).
		Group("i.name, i.measurement_unit").
		Order("i.name ASC, i.measurement_unit ASC").
		Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
