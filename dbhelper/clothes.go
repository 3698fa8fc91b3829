package dbhelper

import (
	"context"
	"time"

	"gorm.io/gorm"

	"closetapi/models"
)

type ClothesStore struct {
	db *gorm.DB
}

func NewClothesStore(db *gorm.DB) *ClothesStore {
	return &ClothesStore{db: db}
}

// ListClothes returns the owner's closet in id order. Items that were never
// added to the closet are left out.
func (s *ClothesStore) ListClothes(ctx context.Context, ownerID uint) ([]models.Clothing, error) {
	var clothes []models.Clothing
	err := s.db.WithContext(ctx).
		Where("owner_id = ? AND status = ?", ownerID, models.StatusInCloset).
		Order("id asc").
		Find(&clothes).Error
	return clothes, err
}

func (s *ClothesStore) CreateClothing(ctx context.Context, clothing *models.Clothing) error {
	return s.db.WithContext(ctx).Create(clothing).Error
}

func (s *ClothesStore) GetClothing(ctx context.Context, id uint) (*models.Clothing, error) {
	var clothing models.Clothing
	if err := s.db.WithContext(ctx).First(&clothing, id).Error; err != nil {
		return nil, err
	}
	return &clothing, nil
}

func (s *ClothesStore) SaveClothing(ctx context.Context, clothing *models.Clothing) error {
	return s.db.WithContext(ctx).Save(clothing).Error
}

// ListStaleProcessing returns items stuck in the pipeline since before that
// still have retries left, oldest first.
func (s *ClothesStore) ListStaleProcessing(ctx context.Context, before time.Time, maxRetries int, limit int) ([]models.Clothing, error) {
	var clothes []models.Clothing
	err := s.db.WithContext(ctx).
		Where("processing_status IN ? AND updated_at < ? AND process_retry_times < ?",
			[]string{models.ProcessingPending, models.ProcessingGenerating}, before, maxRetries).
		Order("id asc").
		Limit(limit).
		Find(&clothes).Error
	return clothes, err
}
