package recipes

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/foodgram/pkg/foodgram/auth"
	"github.com/mikepea/foodgram/pkg/foodgram/models"
	"github.com/mikepea/foodgram/pkg/foodgram/pagination"
	"github.com/mikepea/foodgram/pkg/foodgram/presenter"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
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

func createTestTag(t *testing.T, db *gorm.DB, name, color, slug string) models.Tag {
	tag := models.Tag{Name: name, Color: color, Slug: slug}
	require.NoError(t, db.Create(&tag).Error)
	return tag
}

func createTestIngredient(t *testing.T, db *gorm.DB, name, unit string) models.Ingredient {
	ingredient := models.Ingredient{Name: name, MeasurementUnit: unit}
	require.NoError(t, db.Create(&ingredient).Error)
	return ingredient
}

// seedCatalog creates tags 1..2 and ingredients 1..5
func seedCatalog(t *testing.T, db *gorm.DB) {
	createTestTag(t, db, "Breakfast", "#E26C2D", "breakfast")
	createTestTag(t, db, "Lunch", "#49B64E", "lunch")
	for _, name := range []string{"flour", "milk", "eggs", "sugar", "salt"} {
		createTestIngredient(t, db, name, "g")
	}
}

// testImage returns a base64 data URI of a w x h PNG
func testImage(t *testing.T, w, h int) string {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func soupPayload(t *testing.T) RecipePayload {
	return RecipePayload{
		Tags:        []uint{1, 2},
		Ingredients: []IngredientAmount{{ID: 5, Amount: 3}},
		Name:        "Soup",
		Text:        "...",
		CookingTime: 20,
		Image:       testImage(t, 4, 4),
	}
}

func setupTestRouter(t *testing.T, db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	images := ImageStore{Dir: t.TempDir(), MaxWidth: 1280}
	handler := NewHandler(db, images, presenter.New(db, "http://testserver/media"), pagination.New(6, 100))

	api := r.Group("/api")
	api.Use(auth.OptionalAuth())
	handler.RegisterRoutes(api.Group("/recipes"))
	return r
}

func getAuthHeader(user models.User) string {
	token, _ := auth.GenerateToken(user.ID, user.Email, user.Username)
	return "Bearer " + token
}
