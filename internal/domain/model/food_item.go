package model

import (
	"time"

	"canteen/internal/domain/money"
)

type FoodCategory string

const (
	FoodCategoryMain      FoodCategory = "main"
	FoodCategorySoup      FoodCategory = "soup"
	FoodCategoryVegetable FoodCategory = "vegetable"
	FoodCategoryFruit     FoodCategory = "fruit"
)

func (c FoodCategory) Valid() bool {
	switch c {
	case FoodCategoryMain, FoodCategorySoup, FoodCategoryVegetable, FoodCategoryFruit:
		return true
	}
	return false
}

// 料理（カタログ）
type FoodItem struct {
	ID          string       `gorm:"type:varchar(64);primaryKey" json:"id"`
	Name        string       `gorm:"type:varchar(255);not null" json:"name"`
	Description string       `gorm:"type:text" json:"description"`
	Price       money.Amount `gorm:"not null" json:"price"`
	Category    FoodCategory `gorm:"type:varchar(20);not null;index" json:"category"`
	//"300g" / "1碗" など
	Specification string    `gorm:"type:varchar(100)" json:"specification"`
	Image         string    `gorm:"type:text;not null" json:"image"`
	Stock         int64     `gorm:"not null;default:0" json:"stock"`
	IsAvailable   bool      `gorm:"not null;default:true" json:"isAvailable"`
	CreatedAt     time.Time `gorm:"not null;autoCreateTime" json:"createdAt"`
}

// 販売中かつ在庫ありのときだけ購入できる
func (f FoodItem) Purchasable() bool {
	return f.IsAvailable && f.Stock > 0
}
