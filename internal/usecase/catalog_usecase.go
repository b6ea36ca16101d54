package usecase

import (
	"context"
	"errors"
	"strings"

	"canteen/internal/domain/model"
	repo "canteen/internal/repository"

	"go.uber.org/zap"
)

type CatalogUsecase struct {
	foodItems repo.FoodItemRepository
	log       *zap.Logger
}

// DI
func NewCatalogUsecase(foodItems repo.FoodItemRepository, log *zap.Logger) *CatalogUsecase {
	if log == nil {
		log = zap.NewNop()
	}
	return &CatalogUsecase{foodItems: foodItems, log: log}
}

// GET /catalog の入力
type ListCatalogInput struct {
	Category      string
	AvailableOnly bool
}

func (u *CatalogUsecase) List(ctx context.Context, in ListCatalogInput) ([]model.FoodItem, error) {
	category := strings.TrimSpace(in.Category)
	if category != "" && !model.FoodCategory(category).Valid() {
		return []model.FoodItem{}, validationf("invalid category %q", category)
	}

	items, err := u.foodItems.List(ctx, repo.FoodItemListQuery{Category: category, AvailableOnly: in.AvailableOnly})
	if err != nil {
		return []model.FoodItem{}, internal(u.log, "list food items", err)
	}
	return items, nil
}

func (u *CatalogUsecase) Get(ctx context.Context, id string) (model.FoodItem, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return model.FoodItem{}, validationf("id is required")
	}
	item, err := u.foodItems.FindByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return model.FoodItem{}, notFoundf("food item %s", id)
	}
	if err != nil {
		return model.FoodItem{}, internal(u.log, "find food item", err)
	}
	return item, nil
}
