package shoppinglist

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/foodgram/pkg/foodgram/apperr"
	"github.com/mikepea/foodgram/pkg/foodgram/auth"
	"github.com/mikepea/foodgram/pkg/foodgram/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/gofont/goregular"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// fontCandidates are checked for tests that need to produce a real document
var fontCandidates = []string{
	"../../../static/fonts/DejaVuSerif.ttf",
	"/usr/share/fonts/truetype/dejavu/DejaVuSerif.ttf",
	"/usr/share/fonts/dejavu/DejaVuSerif.ttf",
	"/usr/share/fonts/TTF/DejaVuSerif.ttf",
}

func findFont(t *testing.T) string {
	for _, p := range fontCandidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	// Fall back to the Go font, which also covers Cyrillic
	path := filepath.Join(t.TempDir(), "Go-Regular.ttf")
	require.NoError(t, os.WriteFile(path, goregular.TTF, 0o644))
	return path
}

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	require.NoError(t, models.AutoMigrate(db))
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, username string) models.User {
	user := models.User{
		Email:        username + "@example.com",
		Username:     username,
		FirstName:    "Test",
		LastName:     "User",
		PasswordHash: "hash",
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func createIngredient(t *testing.T, db *gorm.DB, name, unit string) models.Ingredient {
	ingredient := models.Ingredient{Name: name, MeasurementUnit: unit}
	require.NoError(t, db.Create(&ingredient).Error)
	return ingredient
}

func createRecipe(t *testing.T, db *gorm.DB, authorID uint, name string, links ...models.IngredientRecipe) models.Recipe {
	recipe := models.Recipe{
		AuthorID:    authorID,
		Name:        name,
		Text:        name + " text",
		CookingTime: 10,
		Ingredients: links,
	}
	require.NoError(t, db.Create(&recipe).Error)
	return recipe
}

func addToCart(t *testing.T, db *gorm.DB, userID, recipeID uint) {
	row := models.ShoppingCart{RecipeRelation: models.RecipeRelation{UserID: userID, RecipeID: recipeID}}
	require.NoError(t, db.Create(&row).Error)
}

func TestAggregateSumsOverlappingIngredients(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "cook")
	sugar := createIngredient(t, db, "sugar", "g")
	eggs := createIngredient(t, db, "eggs", "pcs")
	milk := createIngredient(t, db, "milk", "ml")
	sugarSpoon := createIngredient(t, db, "sugar", "tbsp")

	cake := createRecipe(t, db, user.ID, "Cake",
		models.IngredientRecipe{IngredientID: sugar.ID, Amount: 200},
		models.IngredientRecipe{IngredientID: eggs.ID, Amount: 3},
	)
	pancakes := createRecipe(t, db, user.ID, "Pancakes",
		models.IngredientRecipe{IngredientID: sugar.ID, Amount: 50},
		models.IngredientRecipe{IngredientID: eggs.ID, Amount: 2},
		models.IngredientRecipe{IngredientID: milk.ID, Amount: 300},
		models.IngredientRecipe{IngredientID: sugarSpoon.ID, Amount: 1},
	)
	notInCart := createRecipe(t, db, user.ID, "Omelette",
		models.IngredientRecipe{IngredientID: eggs.ID, Amount: 4},
	)
	addToCart(t, db, user.ID, cake.ID)
	addToCart(t, db, user.ID, pancakes.ID)

	other := createTestUser(t, db, "other")
	addToCart(t, db, other.ID, notInCart.ID)

	items, err := Aggregate(context.Background(), db, user.ID)
	require.NoError(t, err)

	assert.Equal(t, []Item{
		{Name: "eggs", MeasurementUnit: "pcs", Amount: 5},
		{Name: "milk", MeasurementUnit: "ml", Amount: 300},
		{Name: "sugar", MeasurementUnit: "g", Amount: 250},
		{Name: "sugar", MeasurementUnit: "tbsp", Amount: 1},
	}, items)
}

func TestAggregateEmptyCart(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "cook")

	items, err := Aggregate(context.Background(), db, user.ID)
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestFormatItem(t *testing.T) {
	assert.Equal(t, "Sugar - 150 (g);", FormatItem(Item{Name: "sugar", MeasurementUnit: "g", Amount: 150}))
	assert.Equal(t, "Olive oil - 2 (tbsp);", FormatItem(Item{Name: "OLIVE OIL", MeasurementUnit: "tbsp", Amount: 2}))
	assert.Equal(t, "Яйца - 3 (шт);", FormatItem(Item{Name: "яйца", MeasurementUnit: "шт", Amount: 3}))
	assert.Equal(t, " - 1 (g);", FormatItem(Item{Name: "", MeasurementUnit: "g", Amount: 1}))
}

func TestLayoutEmpty(t *testing.T) {
	lines := layout(nil)
	require.Len(t, lines, 1)
	assert.Equal(t, EmptyMessage, lines[0].Text)
	assert.True(t, lines[0].Centered)
	assert.Equal(t, 0, lines[0].Page)
}

func TestLayoutItems(t *testing.T) {
	items := []Item{
		{Name: "eggs", MeasurementUnit: "pcs", Amount: 5},
		{Name: "milk", MeasurementUnit: "ml", Amount: 300},
	}
	lines := layout(items)
	require.Len(t, lines, 3)

	assert.Equal(t, textLine{X: centerX, Y: titleY, Text: Title, Centered: true}, lines[0])
	assert.Equal(t, textLine{X: lineX, Y: firstLineY, Text: "Eggs - 5 (pcs);"}, lines[1])
	assert.Equal(t, textLine{X: lineX, Y: firstLineY - lineStep, Text: "Milk - 300 (ml);"}, lines[2])
}

func TestLayoutSinglePageForShortLists(t *testing.T) {
	items := make([]Item, 20)
	for i := range items {
		items[i] = Item{Name: "item", MeasurementUnit: "g", Amount: int64(i + 1)}
	}
	for _, line := range layout(items) {
		assert.Equal(t, 0, line.Page)
		assert.GreaterOrEqual(t, line.Y, bottomMargin)
	}
}

func TestLayoutOverflowContinuesOnNextPage(t *testing.T) {
	items := make([]Item, 40)
	for i := range items {
		items[i] = Item{Name: "item", MeasurementUnit: "g", Amount: int64(i + 1)}
	}
	lines := layout(items)
	last := lines[len(lines)-1]
	assert.Equal(t, 1, last.Page)
	for _, line := range lines {
		assert.GreaterOrEqual(t, line.Y, bottomMargin)
	}
}

func TestRenderMissingFont(t *testing.T) {
	r := Renderer{FontPath: filepath.Join(t.TempDir(), "missing.ttf"), FontSize: 14}
	_, err := r.Render(nil)
	assert.ErrorIs(t, err, apperr.ErrFontUnavailable)
}

// pageCount counts page objects in an uncompressed fpdf document
func pageCount(data []byte) int {
	return bytes.Count(data, []byte("/Type /Page\n"))
}

func TestRenderDocument(t *testing.T) {
	r := Renderer{FontPath: findFont(t), FontSize: 14}

	long := make([]Item, 40)
	for i := range long {
		long[i] = Item{Name: "item", MeasurementUnit: "g", Amount: int64(i + 1)}
	}

	tests := []struct {
		name  string
		items []Item
		pages int
	}{
		{"empty", []Item{}, 1},
		{"non-empty", []Item{{Name: "sugar", MeasurementUnit: "g", Amount: 250}}, 1},
		{"overflow", long, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := r.Render(tt.items)
			require.NoError(t, err)

			data, err := io.ReadAll(doc)
			require.NoError(t, err)
			assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")), "reader should start at the document header")
			assert.Equal(t, tt.pages, pageCount(data))
		})
	}
}

func setupTestRouter(db *gorm.DB, renderer Renderer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api := r.Group("/api")
	api.Use(auth.OptionalAuth())
	NewHandler(db, renderer).RegisterRoutes(api.Group("/recipes"))
	return r
}

func getAuthHeader(user models.User) string {
	token, _ := auth.GenerateToken(user.ID, user.Email, user.Username)
	return "Bearer " + token
}

func TestDownloadRequiresAuth(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db, Renderer{FontPath: "missing.ttf"})

	req, _ := http.NewRequest("GET", "/api/recipes/download_shopping_cart", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestDownloadFontUnavailable(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "cook")
	router := setupTestRouter(db, Renderer{FontPath: filepath.Join(t.TempDir(), "missing.ttf")})

	req, _ := http.NewRequest("GET", "/api/recipes/download_shopping_cart", nil)
	req.Header.Set("Authorization", getAuthHeader(user))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusInternalServerError, resp.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, resp.Body.String())
}

func TestDownload(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "cook")
	router := setupTestRouter(db, Renderer{FontPath: findFont(t), FontSize: 14})

	req, _ := http.NewRequest("GET", "/api/recipes/download_shopping_cart", nil)
	req.Header.Set("Authorization", getAuthHeader(user))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "application/pdf", resp.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="cook's-shopping-list.pdf"`, resp.Header().Get("Content-Disposition"))
	assert.True(t, bytes.HasPrefix(resp.Body.Bytes(), []byte("%PDF-")))
}
