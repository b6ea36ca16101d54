package repository

import (
	"context"
	"errors"
	"strings"

	"canteen/internal/domain/model"
	repo "canteen/internal/repository"

	"gorm.io/gorm"
)

type FoodItemGormRepository struct {
	db *gorm.DB
}

// DI
func NewFoodItemGormRepository(db *gorm.DB) *FoodItemGormRepository {
	return &FoodItemGormRepository{db: db}
}

// カテゴリ/販売中のみで絞り込んで返す。
func (r *FoodItemGormRepository) List(ctx context.Context, q repo.FoodItemListQuery) ([]model.FoodItem, error) {
	var items []model.FoodItem

	tx := r.db.WithContext(ctx).Model(&model.FoodItem{})

	if c := strings.TrimSpace(q.Category); c != "" {
		tx = tx.Where("category = ?", c)
	}
	if q.AvailableOnly {
		tx = tx.Where("is_available = ? AND stock > 0", true)
	}

	if err := tx.Order("created_at asc").Order("id asc").Find(&items).Error; err != nil {
		return []model.FoodItem{}, err
	}
	return items, nil
}

// IDで料理を取得
func (r *FoodItemGormRepository) FindByID(ctx context.Context, id string) (model.FoodItem, error) {
	var f model.FoodItem
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&f).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.FoodItem{}, repo.ErrNotFound
	}
	if err != nil {
		return model.FoodItem{}, err
	}
	return f, nil
}

func (r *FoodItemGormRepository) Create(ctx context.Context, item model.FoodItem) (model.FoodItem, error) {
	if err := r.db.WithContext(ctx).Create(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return model.FoodItem{}, repo.ErrConflict
		}
		return model.FoodItem{}, err
	}
	return item, nil
}
