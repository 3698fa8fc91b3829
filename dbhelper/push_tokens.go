package dbhelper

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"closetapi/models"
)

type PushTokenStore struct {
	db *gorm.DB
}

func NewPushTokenStore(db *gorm.DB) *PushTokenStore {
	return &PushTokenStore{db: db}
}

// RegisterToken moves an existing device token to userID or creates it.
func (s *PushTokenStore) RegisterToken(ctx context.Context, userID uint, platform models.Platform, token string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.UserPushToken
		err := tx.Where("token = ?", token).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Create(&models.UserPushToken{
				UserAccountID: userID,
				Platform:      platform,
				Token:         token,
				Active:        true,
			}).Error
		}
		if err != nil {
			return err
		}
		existing.UserAccountID = userID
		existing.Platform = platform
		existing.Active = true
		return tx.Save(&existing).Error
	})
}

func (s *PushTokenStore) ActiveTokens(ctx context.Context, userID uint) ([]models.UserPushToken, error) {
	var tokens []models.UserPushToken
	err := s.db.WithContext(ctx).
		Where("user_account_id = ? AND active = true", userID).
		Find(&tokens).Error
	return tokens, err
}
