package models

import (
	"time"

	"gorm.io/gorm"
)

// Store represents a vendor's storefront record
type Store struct {
	ID       string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	VendorID string `gorm:"not null;index" json:"vendor_id"`
	Vendor   User   `gorm:"foreignKey:VendorID" json:"vendor,omitempty"`

	Name        string `gorm:"not null" json:"name"`
	Slug        string `gorm:"uniqueIndex;not null" json:"slug"`
	Description string `gorm:"type:text" json:"description"`
	LogoURL     string `json:"logo_url"`
	LogoKey     string `json:"-"` // S3 key for the current logo, kept for cleanup

	// Address
	AddressLine string `json:"address_line"`
	City        string `json:"city"`
	Country     string `json:"country"`
	PostalCode  string `json:"postal_code"`

	// Open/closed flag - a closed store hides its products from shoppers
	IsOpen bool `gorm:"default:true" json:"is_open"`

	// Cached aggregates (recomputed with review/product writes, not source of truth)
	ProductCount int     `gorm:"default:0" json:"product_count"`
	RatingAvg    float64 `gorm:"default:0" json:"rating_avg"`
	RatingCount  int     `gorm:"default:0" json:"rating_count"`

	// GORM fields
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// PolicyKind enumerates the policy slots a store can fill
type PolicyKind string

const (
	PolicyShipping PolicyKind = "shipping"
	PolicyReturns  PolicyKind = "returns"
	PolicyRefunds  PolicyKind = "refunds"
)

// ValidPolicyKind reports whether k is one of the known policy slots
func ValidPolicyKind(k PolicyKind) bool {
	switch k {
	case PolicyShipping, PolicyReturns, PolicyRefunds:
		return true
	}
	return false
}

// PolicyTemplate is admin-curated boilerplate vendors can start a policy from
type PolicyTemplate struct {
	ID        string     `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	Kind      PolicyKind `gorm:"type:varchar(20);not null;index" json:"kind"`
	Title     string     `gorm:"not null" json:"title"`
	Body      string     `gorm:"type:text;not null" json:"body"`
	IsDefault bool       `gorm:"default:false" json:"is_default"`

	// GORM fields
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// StorePolicy is a store's filled-in policy text for one kind
type StorePolicy struct {
	ID      string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	StoreID string `gorm:"not null;index" json:"store_id"`
	Store   Store  `gorm:"foreignKey:StoreID" json:"-"`

	Kind PolicyKind `gorm:"type:varchar(20);not null" json:"kind"`
	Body string     `gorm:"type:text;not null" json:"body"`

	// Template this policy was instantiated from, if any
	TemplateID *string `gorm:"type:uuid" json:"template_id,omitempty"`

	// GORM fields
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName ensures unique constraint naming matches the migration index
func (StorePolicy) TableName() string {
	return "store_policies"
}

func (s *Store) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = generateUUID()
	}
	return nil
}

func (t *PolicyTemplate) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = generateUUID()
	}
	return nil
}

func (p *StorePolicy) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = generateUUID()
	}
	return nil
}
