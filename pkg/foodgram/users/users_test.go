package users

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/foodgram/pkg/foodgram/auth"
	"github.com/mikepea/foodgram/pkg/foodgram/models"
	"github.com/mikepea/foodgram/pkg/foodgram/pagination"
	"github.com/mikepea/foodgram/pkg/foodgram/presenter"
	"github.com/stretchr/testify/assert"
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

func setupTestRouter(db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := NewHandler(db, presenter.New(db, "/media"), pagination.New(6, 100))

	api := r.Group("/api")
	api.Use(auth.OptionalAuth())
	handler.RegisterRoutes(api.Group("/users"))
	return r
}

func createTestUser(t *testing.T, db *gorm.DB, username string) models.User {
	hash, err := auth.HashPassword("password123")
	require.NoError(t, err)
	user := models.User{
		Email:        username + "@example.com",
		Username:     username,
		FirstName:    "Test",
		LastName:     "User",
		PasswordHash: hash,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func createTestRecipe(t *testing.T, db *gorm.DB, authorID uint, name string) models.Recipe {
	recipe := models.Recipe{AuthorID: authorID, Name: name, Text: name + " text", CookingTime: 10, Image: "recipes/" + name + ".png"}
	require.NoError(t, db.Create(&recipe).Error)
	return recipe
}

func getAuthHeader(user models.User) string {
	token, _ := auth.GenerateToken(user.ID, user.Email, user.Username)
	return "Bearer " + token
}

func doRequest(router *gin.Engine, method, path string, body interface{}, user *models.User) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != nil {
		req.Header.Set("Authorization", getAuthHeader(*user))
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestRegister(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)

	body := RegisterRequest{
		Email:     "cook@example.com",
		Username:  "cook",
		FirstName: "Jamie",
		LastName:  "Oliver",
		Password:  "supersecret",
	}
	resp := doRequest(router, "POST", "/api/users", body, nil)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	var created RegisterResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &created))
	assert.Equal(t, "cook", created.Username)
	assert.NotZero(t, created.ID)
	assert.NotContains(t, resp.Body.String(), "password")

	var user models.User
	require.NoError(t, db.First(&user, created.ID).Error)
	assert.True(t, auth.CheckPassword("supersecret", user.PasswordHash))
	assert.Equal(t, models.RoleUser, user.Role)

	resp = doRequest(router, "POST", "/api/users", body, nil)
	require.Equal(t, http.StatusBadRequest, resp.Code)
	var errs map[string][]string
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &errs))
	assert.Equal(t, []string{MsgEmailTaken}, errs["email"])
	assert.Equal(t, []string{MsgUsernameTaken}, errs["username"])
}

func TestRegisterValidation(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)

	body := map[string]string{
		"email":    "not-an-email",
		"username": "bad name",
		"password": "short",
	}
	resp := doRequest(router, "POST", "/api/users", body, nil)
	require.Equal(t, http.StatusBadRequest, resp.Code)

	var errs map[string][]string
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &errs))
	for _, field := range []string{"email", "username", "first_name", "last_name", "password"} {
		assert.NotEmpty(t, errs[field], field)
	}
}

func TestListUsers(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	for _, name := range []string{"charlie", "alice", "bob"} {
		createTestUser(t, db, name)
	}

	resp := doRequest(router, "GET", "/api/users?limit=2", nil, nil)
	require.Equal(t, http.StatusOK, resp.Code)

	var page pagination.Page[presenter.UserResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &page))
	assert.Equal(t, int64(3), page.Count)
	require.Len(t, page.Results, 2)
	assert.Equal(t, "alice", page.Results[0].Username)
	assert.Equal(t, "bob", page.Results[1].Username)
	assert.NotNil(t, page.Next)
}

func TestMeAndGet(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	reader := createTestUser(t, db, "reader")
	author := createTestUser(t, db, "author")
	require.NoError(t, db.Create(&models.Follow{UserID: reader.ID, AuthorID: author.ID}).Error)

	resp := doRequest(router, "GET", "/api/users/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = doRequest(router, "GET", "/api/users/me", nil, &reader)
	require.Equal(t, http.StatusOK, resp.Code)
	var me presenter.UserResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &me))
	assert.Equal(t, reader.ID, me.ID)
	assert.False(t, me.IsSubscribed)

	resp = doRequest(router, "GET", fmt.Sprintf("/api/users/%d", author.ID), nil, &reader)
	require.Equal(t, http.StatusOK, resp.Code)
	var got presenter.UserResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &got))
	assert.Equal(t, "author", got.Username)
	assert.True(t, got.IsSubscribed)

	resp = doRequest(router, "GET", "/api/users/999", nil, &reader)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestSetPassword(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	user := createTestUser(t, db, "cook")

	resp := doRequest(router, "POST", "/api/users/set_password", SetPasswordRequest{
		NewPassword:     "newpassword1",
		CurrentPassword: "wrong-password",
	}, &user)
	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), "current_password")

	resp = doRequest(router, "POST", "/api/users/set_password", SetPasswordRequest{
		NewPassword:     "newpassword1",
		CurrentPassword: "password123",
	}, &user)
	require.Equal(t, http.StatusNoContent, resp.Code)

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, user.ID).Error)
	assert.True(t, auth.CheckPassword("newpassword1", reloaded.PasswordHash))
}

func TestSubscribe(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	reader := createTestUser(t, db, "reader")
	author := createTestUser(t, db, "author")
	for _, name := range []string{"one", "two", "three"} {
		createTestRecipe(t, db, author.ID, name)
	}
	path := fmt.Sprintf("/api/users/%d/subscribe", author.ID)

	resp := doRequest(router, "POST", path+"?recipes_limit=2", nil, &reader)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	var sub presenter.SubscriptionResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &sub))
	assert.Equal(t, author.ID, sub.ID)
	assert.True(t, sub.IsSubscribed)
	assert.Equal(t, int64(3), sub.RecipesCount)
	require.Len(t, sub.Recipes, 2)
	assert.Equal(t, "/media/recipes/three.png", sub.Recipes[0].Image)

	resp = doRequest(router, "POST", path, nil, &reader)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.JSONEq(t, `{"error":"You are already subscribed to this user"}`, resp.Body.String())

	resp = doRequest(router, "POST", fmt.Sprintf("/api/users/%d/subscribe", reader.ID), nil, &reader)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.JSONEq(t, `{"error":"You cannot subscribe to yourself"}`, resp.Body.String())

	resp = doRequest(router, "POST", "/api/users/999/subscribe", nil, &reader)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = doRequest(router, "DELETE", path, nil, &reader)
	assert.Equal(t, http.StatusNoContent, resp.Code)

	resp = doRequest(router, "DELETE", path, nil, &reader)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.JSONEq(t, `{"error":"You are not subscribed to this user"}`, resp.Body.String())
}

func TestSelfSubscriptionCheckedBeforeDuplicate(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	user := createTestUser(t, db, "cook")

	for i := 0; i < 2; i++ {
		resp := doRequest(router, "POST", fmt.Sprintf("/api/users/%d/subscribe", user.ID), nil, &user)
		assert.JSONEq(t, `{"error":"You cannot subscribe to yourself"}`, resp.Body.String())
	}
}

func TestSubscriptions(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	reader := createTestUser(t, db, "reader")
	zed := createTestUser(t, db, "zed")
	amy := createTestUser(t, db, "amy")
	createTestUser(t, db, "stranger")
	createTestRecipe(t, db, zed.ID, "pie")
	createTestRecipe(t, db, amy.ID, "tart")
	createTestRecipe(t, db, amy.ID, "cake")

	for _, author := range []models.User{zed, amy} {
		require.NoError(t, db.Create(&models.Follow{UserID: reader.ID, AuthorID: author.ID}).Error)
	}

	resp := doRequest(router, "GET", "/api/users/subscriptions?recipes_limit=1", nil, &reader)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var page pagination.Page[presenter.SubscriptionResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &page))
	assert.Equal(t, int64(2), page.Count)
	require.Len(t, page.Results, 2)
	assert.Equal(t, "amy", page.Results[0].Username)
	assert.Equal(t, int64(2), page.Results[0].RecipesCount)
	assert.Len(t, page.Results[0].Recipes, 1)
	assert.Equal(t, "zed", page.Results[1].Username)

	resp = doRequest(router, "GET", "/api/users/subscriptions?recipes_limit=-1", nil, &reader)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}
