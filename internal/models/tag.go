package models

type Tag struct {
	ID    uint   `gorm:"primaryKey" json:"id"`
	Name  string `gorm:"uniqueIndex;not null" json:"name"`
	Color string `gorm:"size:7;not null" json:"color"` // "#RRGGBB"
}
