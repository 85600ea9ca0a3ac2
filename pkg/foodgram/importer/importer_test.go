package importer

import (
	"context"
	"strings"
	"testing"

	"github.com/mikepea/foodgram/pkg/foodgram/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, models.AutoMigrate(db))
	return db
}

func TestImportIngredients(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, db.Create(&models.Ingredient{Name: "milk", MeasurementUnit: "ml"}).Error)

	csv := "name,measurement_unit\nflour,g\nmilk,ml\n  eggs , pcs\n"
	result, err := New(db).Ingredients(context.Background(), strings.NewReader(csv))
	require.NoError(t, err)

	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 1, result.Existing)
	assert.Equal(t, 0, result.Skipped)
	assert.Empty(t, result.Errors)

	var eggs models.Ingredient
	require.NoError(t, db.Where("name = ?", "eggs").First(&eggs).Error)
	assert.Equal(t, "pcs", eggs.MeasurementUnit)
}

func TestImportIngredientsIsRepeatable(t *testing.T) {
	db := setupTestDB(t)
	csv := "flour,g\nsugar,g\n"

	first, err := New(db).Ingredients(context.Background(), strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 2, first.Imported)

	second, err := New(db).Ingredients(context.Background(), strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 0, second.Imported)
	assert.Equal(t, 2, second.Existing)

	var count int64
	db.Model(&models.Ingredient{}).Count(&count)
	assert.Equal(t, int64(2), count)
}

func TestImportIngredientsSkipsBadRows(t *testing.T) {
	db := setupTestDB(t)
	csv := "flour,g\nonlyname\n,kg\nsalt,g,extra\nsugar,g\n"

	result, err := New(db).Ingredients(context.Background(), strings.NewReader(csv))
	require.NoError(t, err)

	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 3, result.Skipped)
	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], "line 2")
	assert.Contains(t, result.Errors[0], "expected 2 columns")
	assert.Contains(t, result.Errors[1], "line 3")
	assert.Contains(t, result.Errors[1], "name")
}

func TestImportMalformedCSVRollsBack(t *testing.T) {
	db := setupTestDB(t)
	csv := "flour,g\nsugar,g\"x\n"

	_, err := New(db).Ingredients(context.Background(), strings.NewReader(csv))
	require.Error(t, err)

	var count int64
	db.Model(&models.Ingredient{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestImportTags(t *testing.T) {
	db := setupTestDB(t)
	csv := "name,color,slug\nBreakfast,#e26c2d,breakfast\nLunch,green,lunch\nDinner,#49B64E,din ner\nSupper,#8775D2,supper\n"

	result, err := New(db).Tags(context.Background(), strings.NewReader(csv))
	require.NoError(t, err)

	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 2, result.Skipped)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "color")
	assert.Contains(t, result.Errors[1], "slug")

	var breakfast models.Tag
	require.NoError(t, db.Where("slug = ?", "breakfast").First(&breakfast).Error)
	assert.Equal(t, "#E26C2D", breakfast.Color)
}

func TestIsHeader(t *testing.T) {
	assert.True(t, isHeader([]string{"Name", " measurement_unit"}, IngredientHeader))
	assert.False(t, isHeader([]string{"flour", "g"}, IngredientHeader))
	assert.False(t, isHeader([]string{"name"}, IngredientHeader))
}
