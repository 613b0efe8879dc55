package models

import "time"

type Table struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	RestaurantID uint      `gorm:"not null;index;uniqueIndex:idx_restaurant_table_number" json:"restaurantId"`
	Number       int       `gorm:"not null;uniqueIndex:idx_restaurant_table_number" json:"number"`
	Capacity     int       `gorm:"not null;default:2" json:"capacity"`
	Occupied     bool      `gorm:"not null;default:false" json:"occupied"`
	CreatedAt    time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt    time.Time `gorm:"not null" json:"updatedAt"`
}
