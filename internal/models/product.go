package models

import (
	"time"

	"gorm.io/gorm"
)

// Product represents an item listed under a store
type Product struct {
	ID      string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	StoreID string `gorm:"not null;index" json:"store_id"`
	Store   Store  `gorm:"foreignKey:StoreID" json:"store,omitempty"`

	Name        string `gorm:"not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`

	// Prices are integer cents to keep arithmetic exact
	PriceCents int64  `gorm:"not null" json:"price_cents"`
	Currency   string `gorm:"type:varchar(3);default:usd" json:"currency"`

	Stock       int  `gorm:"default:0" json:"stock"`
	IsAvailable bool `gorm:"default:true" json:"is_available"`

	Category string      `gorm:"index" json:"category"`
	Tags     StringArray `gorm:"type:text[]" json:"tags"`

	// Ordered media
	Images []ProductImage `gorm:"foreignKey:ProductID" json:"images,omitempty"`

	// Cached aggregates (recomputed with review/favorite writes)
	RatingAvg     float64 `gorm:"default:0" json:"rating_avg"`
	RatingCount   int     `gorm:"default:0" json:"rating_count"`
	FavoriteCount int     `gorm:"default:0" json:"favorite_count"`

	// GORM fields
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// ProductImage is one media entry of a product, ordered by Position
type ProductImage struct {
	ID        string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ProductID string `gorm:"not null;index" json:"product_id"`

	URL      string `gorm:"not null" json:"url"`
	S3Key    string `gorm:"not null" json:"-"`
	Position int    `gorm:"default:0" json:"position"`

	CreatedAt time.Time `json:"created_at"`
}

// Review is a shopper's rating of a product. One live review per
// (product, author) pair, enforced by a partial unique index.
type Review struct {
	ID        string  `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ProductID string  `gorm:"not null;index" json:"product_id"`
	Product   Product `gorm:"foreignKey:ProductID" json:"-"`
	AuthorID  string  `gorm:"not null;index" json:"author_id"`
	Author    User    `gorm:"foreignKey:AuthorID" json:"author,omitempty"`

	Rating int    `gorm:"not null" json:"rating"` // 1..5
	Title  string `json:"title"`
	Body   string `gorm:"type:text" json:"body"`

	// Edit tracking
	IsEdited bool       `gorm:"default:false" json:"is_edited"`
	EditedAt *time.Time `json:"edited_at,omitempty"`

	// GORM fields
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Favorite marks a product a user wants to find again
type Favorite struct {
	ID        string  `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	UserID    string  `gorm:"not null;index" json:"user_id"`
	User      User    `gorm:"foreignKey:UserID" json:"-"`
	ProductID string  `gorm:"not null;index" json:"product_id"`
	Product   Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`

	// GORM fields
	CreatedAt time.Time      `json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// CartItem is one (user, product) line in a cart. PriceCents snapshots the
// product price at add time so the cart view can flag later price changes.
type CartItem struct {
	ID        string  `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	UserID    string  `gorm:"not null;index" json:"user_id"`
	User      User    `gorm:"foreignKey:UserID" json:"-"`
	ProductID string  `gorm:"not null;index" json:"product_id"`
	Product   Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`

	Quantity   int   `gorm:"not null;default:1" json:"quantity"`
	PriceCents int64 `gorm:"not null" json:"price_cents"`

	// GORM fields
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName matches the partial unique index created in migrations
func (CartItem) TableName() string {
	return "cart_items"
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = generateUUID()
	}
	if p.Currency == "" {
		p.Currency = "usd"
	}
	return nil
}

func (i *ProductImage) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = generateUUID()
	}
	return nil
}

func (r *Review) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = generateUUID()
	}
	return nil
}

func (f *Favorite) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = generateUUID()
	}
	return nil
}

func (ci *CartItem) BeforeCreate(tx *gorm.DB) error {
	if ci.ID == "" {
		ci.ID = generateUUID()
	}
	return nil
}
