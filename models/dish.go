package models

import "time"

// Category groups dishes across establishments (grill, sushi, smoothies...).
type Category struct {
	ID   uint   `json:"id" gorm:"primaryKey"`
	Name string `json:"name" gorm:"size:60;uniqueIndex;not null"`
	Icon string `json:"icon" gorm:"size:80"`
}

type Dish struct {
	ID              uint           `json:"id" gorm:"primaryKey"`
	EstablishmentID uint           `json:"establishment_id" gorm:"not null;index"`
	Establishment   *Establishment `json:"establishment,omitempty" gorm:"foreignKey:EstablishmentID;constraint:OnDelete:CASCADE"`
	CategoryID      *uint          `json:"category_id" gorm:"index"`
	Category        *Category      `json:"category,omitempty" gorm:"foreignKey:CategoryID;constraint:OnDelete:SET NULL"`
	Name            string         `json:"name" gorm:"size:120;not null"`
	Slug            string         `json:"slug" gorm:"size:140;index;not null"`
	Description     string         `json:"description"`
	Price           Money          `json:"price" gorm:"not null"`
	IsVegan         bool           `json:"is_vegan" gorm:"not null;default:false"`
	IsVegetarian    bool           `json:"is_vegetarian" gorm:"not null;default:false"`
	IsGlutenFree    bool           `json:"is_gluten_free" gorm:"not null;default:false"`
	Available       bool           `json:"available" gorm:"not null"`
	Image           string         `json:"image"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}
