package repository

import (
	"canteen/internal/domain/model"
	"context"
)

// 一覧検索
type FoodItemListQuery struct {
	Category      string
	AvailableOnly bool
}

// 料理カタログの保存・取得だけを約束。
type FoodItemRepository interface {
	List(ctx context.Context, q FoodItemListQuery) ([]model.FoodItem, error)
	FindByID(ctx context.Context, id string) (model.FoodItem, error)
	Create(ctx context.Context, item model.FoodItem) (model.FoodItem, error)
}
