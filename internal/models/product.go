// internal/models/product.go
package models

import (
	"github.com/google/uuid"
)

type Product struct {
	BaseModel
	UserID   uuid.UUID `json:"userId" gorm:"type:uuid;not null;index"`
	Name     string    `json:"name" gorm:"size:255;not null;index"`
	Desc     string    `json:"desc" gorm:"column:description;type:text"`
	Cost     int64     `json:"cost" gorm:"not null"`
	Image    string    `json:"image" gorm:"size:512"`
	ImageKey string    `json:"-" gorm:"size:512"`
	// IsSelled flips to true only inside SaleService.FinalizeSale.
	IsSelled bool `json:"isSelled" gorm:"not null;default:false;index"`
	IsBuyed  bool `json:"isBuyed" gorm:"not null;default:false"`

	// Relationships
	User       *User      `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Categories []Category `json:"categories" gorm:"many2many:product_categories;"`
	Bids       []Bid      `json:"bids,omitempty" gorm:"foreignKey:ProductID"`
}

type Category struct {
	BaseModel
	Name  string `json:"name" gorm:"uniqueIndex;size:100;not null"`
	Image string `json:"image" gorm:"size:512"`
	// ImageKey is the storage key of Image, empty when Image is an external URL.
	ImageKey string `json:"-" gorm:"size:512"`

	Products []Product `json:"products,omitempty" gorm:"many2many:product_categories;"`
}

// ProductCategory is the join row between products and categories.
type ProductCategory struct {
	ProductID  uuid.UUID `gorm:"type:uuid;primaryKey"`
	CategoryID uuid.UUID `gorm:"type:uuid;primaryKey;index"`
}

func (ProductCategory) TableName() string {
	return "product_categories"
}
