package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/skarpov/webauth/internal/models"
)

func (r *GormRepo) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// CreateUser inserts the user row. The uniqueness constraints on username
// and email catch the race left open by the caller's existence pre-check.
func (r *GormRepo) CreateUser(ctx context.Context, user *models.User) error {
	if err := r.DB.WithContext(ctx).Create(user).Error; err != nil {
		if isDuplicate(err) {
			return ErrUserExists
		}
		return err
	}
	return nil
}
