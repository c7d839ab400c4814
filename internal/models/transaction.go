// internal/models/transaction.go
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Bid is one user's offer on a product. (ProductID, UserID) is unique.
type Bid struct {
	BaseModel
	ProductID        uuid.UUID `json:"productId" gorm:"type:uuid;not null;uniqueIndex:idx_bids_product_user"`
	UserID           uuid.UUID `json:"userId" gorm:"type:uuid;not null;uniqueIndex:idx_bids_product_user;index"`
	BidAmount        int64     `json:"bidAmount" gorm:"not null"`
	AmIboughtProduct bool      `json:"amIboughtProduct" gorm:"column:am_i_bought_product;not null;default:false"`

	// Relationships
	Product *Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
	User    *User    `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

// Sale is the terminal, immutable record of a product changing hands.
type Sale struct {
	ID             uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	ProductID      uuid.UUID `json:"productId" gorm:"type:uuid;not null;uniqueIndex"`
	SelledUserID   uuid.UUID `json:"selledUserId" gorm:"column:selled_user_id;type:uuid;not null;index"`
	BoughtedUserID uuid.UUID `json:"boughtedUserId" gorm:"column:boughted_user_id;type:uuid;not null;index"`
	CreatedAt      time.Time `json:"createdAt"`

	// Relationships
	Product      *Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
	SelledUser   *User    `json:"selledUser,omitempty" gorm:"foreignKey:SelledUserID"`
	BoughtedUser *User    `json:"boughtedUser,omitempty" gorm:"foreignKey:BoughtedUserID"`
}

func (s *Sale) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
