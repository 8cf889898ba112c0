package models

import "time"

// EstablishmentType is the kind of food outlet.
type EstablishmentType string

const (
	TypeRestaurant EstablishmentType = "restaurant"
	TypeSnackBar   EstablishmentType = "snack_bar"
	TypeStall      EstablishmentType = "stall"
)

func (t EstablishmentType) Valid() bool {
	switch t {
	case TypeRestaurant, TypeSnackBar, TypeStall:
		return true
	}
	return false
}

type CuisineType string

const (
	CuisineBrazilian     CuisineType = "brazilian"
	CuisineJapanese      CuisineType = "japanese"
	CuisineItalian       CuisineType = "italian"
	CuisineArabic        CuisineType = "arabic"
	CuisineVegan         CuisineType = "vegan"
	CuisineCafe          CuisineType = "cafe"
	CuisineSnacks        CuisineType = "snacks"
	CuisineInternational CuisineType = "international"
	CuisineOther         CuisineType = "other"
)

func (c CuisineType) Valid() bool {
	switch c {
	case CuisineBrazilian, CuisineJapanese, CuisineItalian, CuisineArabic, CuisineVegan,
		CuisineCafe, CuisineSnacks, CuisineInternational, CuisineOther:
		return true
	}
	return false
}

const (
	MinPriceLevel = 1
	MaxPriceLevel = 5
)

type Establishment struct {
	ID                uint              `json:"id" gorm:"primaryKey"`
	Name              string            `json:"name" gorm:"size:120;uniqueIndex;not null"`
	Slug              string            `json:"slug" gorm:"size:140;uniqueIndex;not null"`
	OwnerID           *uint             `json:"owner_id" gorm:"index"`
	Owner             *User             `json:"owner,omitempty" gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE"`
	EstablishmentType EstablishmentType `json:"establishment_type" gorm:"size:20;not null;default:'restaurant';index"`
	CuisineType       CuisineType       `json:"cuisine_type" gorm:"size:30;not null;default:'other'"`
	Description       string            `json:"description"`
	Logo              string            `json:"logo"`
	Building          string            `json:"building" gorm:"size:80"`
	Latitude          *float64          `json:"latitude"`
	Longitude         *float64          `json:"longitude"`
	OpeningHours      string            `json:"opening_hours" gorm:"size:120"`
	Phone             string            `json:"phone" gorm:"size:20"`
	Instagram         string            `json:"instagram"`
	Website           string            `json:"website"`
	PriceLevel        int               `json:"price_level" gorm:"not null;default:1"`
	Dishes            []Dish            `json:"dishes,omitempty" gorm:"foreignKey:EstablishmentID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}
