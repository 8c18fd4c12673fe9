package autosave

import (
	"context"
	"errors"
	"fmt"

	"github.com/vendora/backend/internal/models"
	"gorm.io/gorm"
)

// GormStore implements DesignStore over the store_designs table
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a design store backed by the given GORM handle
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// ReadState loads the design row's version, timestamp, and draft blocks
func (s *GormStore) ReadState(ctx context.Context, designID string) (*RemoteState, error) {
	var design models.StoreDesign
	err := s.db.WithContext(ctx).
		Select("version", "updated_at", "blocks").
		First(&design, "id = ?", designID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("design %s not found: %w", designID, err)
		}
		return nil, err
	}

	return &RemoteState{
		Version:   design.Version,
		UpdatedAt: design.UpdatedAt,
		Blocks:    design.Blocks,
	}, nil
}

// Save writes the draft blocks guarded by the expected version. The version
// bump and the guard run in one UPDATE so concurrent writers cannot both win.
func (s *GormStore) Save(ctx context.Context, designID string, blocks models.BlockList, expectedVersion int64) (int64, error) {
	result := s.db.WithContext(ctx).
		Model(&models.StoreDesign{}).
		Where("id = ? AND version = ?", designID, expectedVersion).
		Updates(map[string]interface{}{
			"blocks":  blocks,
			"version": gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		return 0, ErrVersionMismatch
	}

	return expectedVersion + 1, nil
}

var _ DesignStore = (*GormStore)(nil)
