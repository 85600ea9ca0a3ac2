package admin

import (
	"context"
	"errors"

	"github.com/mikepea/foodgram/pkg/foodgram/auth"
	"github.com/mikepea/foodgram/pkg/foodgram/logging"
	"github.com/mikepea/foodgram/pkg/foodgram/models"
	"gorm.io/gorm"
)

// Bootstrap describes the first admin account
type Bootstrap struct {
	Email    string
	Username string
	Password string
}

// EnsureAdmin creates an admin user if none exists yet. An existing user
// with the same email is promoted instead. Returns false when an admin was
// already present.
func EnsureAdmin(ctx context.Context, db *gorm.DB, b Bootstrap) (bool, error) {
	db = db.WithContext(ctx)

	var count int64
	if err := db.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	var existing models.User
	err := db.Where("email = ?", b.Email).First(&existing).Error
	switch {
	case err == nil:
		if err := db.Model(&existing).Update("role", models.RoleAdmin).Error; err != nil {
			return false, err
		}
		logging.Ctx(ctx).Info().Str("email", b.Email).Msg("promoted existing user to admin")
		return true, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return false, err
	}

	hashedPassword, err := auth.HashPassword(b.Password)
	if err != nil {
		return false, err
	}

	adminUser := models.User{
		Email:        b.Email,
		Username:     b.Username,
		FirstName:    "Admin",
		LastName:     "Admin",
		PasswordHash: hashedPassword,
		Role:         models.RoleAdmin,
	}
	if err := db.Create(&adminUser).Error; err != nil {
		return false, err
	}

	logging.Ctx(ctx).Info().Str("email", b.Email).Msg("created admin user")
	return true, nil
}
