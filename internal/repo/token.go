package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/skarpov/webauth/internal/models"
)

// InsertRefreshToken stores the new refresh token for username, dropping
// any prior row in the same transaction. After it returns there is exactly
// one row for the user and only the new token verifies.
func (r *GormRepo) InsertRefreshToken(ctx context.Context, username, token string) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("username = ?", username).Delete(&models.RefreshToken{}).Error; err != nil {
			return err
		}
		row := models.RefreshToken{
			Username: username,
			Token:    sha256Hex(token),
		}
		return tx.Create(&row).Error
	})
}

func (r *GormRepo) VerifyRefreshToken(ctx context.Context, username, token string) (bool, error) {
	var row models.RefreshToken
	err := r.DB.WithContext(ctx).Where("username = ?", username).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return row.Token == sha256Hex(token), nil
}

// DeleteRefreshToken is idempotent: deleting an absent row is not an error.
func (r *GormRepo) DeleteRefreshToken(ctx context.Context, username string) error {
	return r.DB.WithContext(ctx).Where("username = ?", username).Delete(&models.RefreshToken{}).Error
}
