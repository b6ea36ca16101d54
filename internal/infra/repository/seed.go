package repository

import (
	"context"
	"time"

	"canteen/internal/domain/model"
	"canteen/internal/domain/money"

	"gorm.io/gorm"
)

const (
	SeedCustomerID = "customer-1"
	SeedMerchantID = "merchant-1"
	SeedAddressID  = "addr-1"
)

const unsplash = "?ixlib=rb-4.0.3&auto=format&fit=crop&w=400&h=300"

// サンプル料理（幼稚園の食堂メニュー）
func SeedFoodItems(now time.Time) []model.FoodItem {
	return []model.FoodItem{
		{ID: "1", Name: "红烧排骨", Description: "精选优质排骨，慢炖2小时", Price: money.FromMinor(1800), Category: model.FoodCategoryMain, Specification: "300g", Image: "https://images.unsplash.com/photo-1546833999-b9f581a1996d" + unsplash, Stock: 50, IsAvailable: true, CreatedAt: now},
		{ID: "2", Name: "嫩滑蒸蛋羹", Description: "新鲜鸡蛋，嫩滑营养", Price: money.FromMinor(800), Category: model.FoodCategoryMain, Specification: "1碗", Image: "https://images.unsplash.com/photo-1578985545062-69928b1d9587" + unsplash, Stock: 30, IsAvailable: true, CreatedAt: now},
		{ID: "3", Name: "紫菜蛋花汤", Description: "清香紫菜，营养丰富", Price: money.FromMinor(600), Category: model.FoodCategorySoup, Specification: "1碗", Image: "https://images.unsplash.com/photo-1547592166-23ac45744acd" + unsplash, Stock: 40, IsAvailable: true, CreatedAt: now},
		{ID: "4", Name: "胡萝卜炒肉丝", Description: "新鲜胡萝卜，营养均衡", Price: money.FromMinor(1200), Category: model.FoodCategoryVegetable, Specification: "1份", Image: "https://pixabay.com/get/g344e29acc931036c45fb45be65bd6e8c3a35efea5245c75cac074c19cf8704a2f6ce4d2bf7b563e5e6cd543be873664dba8f2ba90fed3077bc736b8dcaac8437_1280.jpg", Stock: 25, IsAvailable: true, CreatedAt: now},
		{ID: "5", Name: "清炒西兰花", Description: "新鲜西兰花，维生素丰富", Price: money.FromMinor(1000), Category: model.FoodCategoryVegetable, Specification: "1份", Image: "https://images.unsplash.com/photo-1459411621453-7b03977f4bfc" + unsplash, Stock: 35, IsAvailable: true, CreatedAt: now},
		{ID: "6", Name: "新鲜苹果片", Description: "脆甜苹果，补充维C", Price: money.FromMinor(500), Category: model.FoodCategoryFruit, Specification: "1份", Image: "https://images.unsplash.com/photo-1567306226416-28f0efdc88ce" + unsplash, Stock: 20, IsAvailable: true, CreatedAt: now},
		{ID: "7", Name: "香甜香蕉", Description: "进口香蕉，香甜可口", Price: money.FromMinor(300), Category: model.FoodCategoryFruit, Specification: "1根", Image: "https://images.unsplash.com/photo-1571771894821-ce9b6c11b08e" + unsplash, Stock: 15, IsAvailable: true, CreatedAt: now},
		{ID: "8", Name: "香喷喷白米饭", Description: "优质大米，蒸制软糯", Price: money.FromMinor(400), Category: model.FoodCategoryMain, Specification: "1碗", Image: "https://images.unsplash.com/photo-1586201375761-83865001e31c" + unsplash, Stock: 100, IsAvailable: true, CreatedAt: now},
	}
}

func SeedAddresses() []model.Address {
	return []model.Address{
		{
			ID:        SeedAddressID,
			UserID:    SeedCustomerID,
			Name:      "张妈妈",
			Phone:     "18812341234",
			Address:   "阳光幼儿园教学楼2楼小班教室",
			Note:      "请在教室门口等候，谢谢",
			IsDefault: true,
		},
	}
}

// Seedは既にあるIDは触らずに足りない分だけ入れる
func Seed(ctx context.Context, db *gorm.DB, now time.Time) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, f := range SeedFoodItems(now) {
			f := f
			if err := tx.Where("id = ?", f.ID).FirstOrCreate(&f).Error; err != nil {
				return err
			}
		}
		for _, a := range SeedAddresses() {
			a := a
			if err := tx.Where("id = ?", a.ID).FirstOrCreate(&a).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// AutoMigrateの対象
func Models() []interface{} {
	return []interface{}{
		&model.FoodItem{},
		&model.Address{},
		&model.Order{},
		&model.AuditLog{},
	}
}
