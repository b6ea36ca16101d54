package model

// 配送先住所
type Address struct {
	ID     string `gorm:"type:varchar(64);primaryKey" json:"id"`
	UserID string `gorm:"type:varchar(64);not null;index" json:"userId"`

	//宛名
	Name string `gorm:"type:varchar(255);not null" json:"name"`

	//電話番号
	Phone string `gorm:"type:varchar(30);not null" json:"phone"`

	//住所本文
	Address string `gorm:"type:text;not null" json:"address"`

	//配達メモ
	Note string `gorm:"type:text" json:"note"`

	//このユーザーのデフォルト住所か
	IsDefault bool `gorm:"not null;default:false" json:"isDefault"`
}
