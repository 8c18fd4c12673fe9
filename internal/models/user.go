package models

import (
	"database/sql/driver"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StringArray is a custom type for PostgreSQL text[] that implements Scanner and Valuer
type StringArray []string

// Scan implements the sql.Scanner interface for reading from database
func (a *StringArray) Scan(value interface{}) error {
	if value == nil {
		*a = nil
		return nil
	}

	// PostgreSQL returns text[] as a string like "{value1,value2,value3}"
	str, ok := value.(string)
	if !ok {
		if bytes, ok := value.([]byte); ok {
			str = string(bytes)
		} else {
			*a = nil
			return nil
		}
	}

	str = strings.TrimPrefix(str, "{")
	str = strings.TrimSuffix(str, "}")

	if str == "" {
		*a = []string{}
		return nil
	}

	// Split by comma (simple case - doesn't handle quoted values with commas)
	*a = strings.Split(str, ",")
	return nil
}

// Value implements the driver.Valuer interface for writing to database
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return nil, nil
	}
	if len(a) == 0 {
		return "{}", nil
	}
	return "{" + strings.Join(a, ",") + "}", nil
}

// UserRole controls what a user may manage
type UserRole string

const (
	RoleShopper UserRole = "shopper"
	RoleVendor  UserRole = "vendor"
	RoleAdmin   UserRole = "admin"
)

// User represents a Vendora account. Shoppers and vendors share one table;
// the role decides whether store management endpoints are available.
type User struct {
	ID          string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	Email       string `gorm:"uniqueIndex;not null" json:"email"`
	Username    string `gorm:"uniqueIndex;not null" json:"username"`
	DisplayName string `gorm:"not null" json:"display_name"`
	Bio         string `gorm:"type:text" json:"bio"`

	// Native auth fields
	PasswordHash  *string `gorm:"type:text" json:"-"`
	EmailVerified bool    `gorm:"default:false" json:"email_verified"`

	// OAuth provider ID (nullable - users can have native accounts)
	GoogleID *string `gorm:"uniqueIndex" json:"-"`

	// Two-factor (TOTP). Secret is only set once setup completes.
	TOTPSecret  *string `gorm:"type:text" json:"-"`
	TOTPEnabled bool    `gorm:"default:false" json:"totp_enabled"`

	// Profile data
	AvatarURL string   `json:"avatar_url"`
	Role      UserRole `gorm:"type:varchar(20);default:shopper;index" json:"role"`

	// Activity tracking
	LastActiveAt *time.Time `json:"last_active_at"`

	// GORM fields
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// IsVendor reports whether the user may own a store. Admins can manage any
// store, so they count as vendors for role gates.
func (u *User) IsVendor() bool {
	return u.Role == RoleVendor || u.Role == RoleAdmin
}

// PasswordReset represents password reset tokens
type PasswordReset struct {
	ID     string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	UserID string `gorm:"not null;index" json:"user_id"`
	User   User   `gorm:"foreignKey:UserID" json:"user,omitempty"`

	Token     string    `gorm:"uniqueIndex;not null" json:"token"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	Used      bool      `gorm:"default:false" json:"used"`

	// GORM fields
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WithdrawnAccount is the audit row written when an account is withdrawn.
// The user row itself is soft-deleted; this records what the cleanup removed.
type WithdrawnAccount struct {
	ID     string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	UserID string `gorm:"uniqueIndex;not null" json:"user_id"`

	// SHA-256 of the lowercased email, kept so support can answer
	// "was this address ever registered" without retaining the address.
	EmailHash string `gorm:"not null" json:"email_hash"`
	Reason    string `gorm:"type:text" json:"reason"`

	// Row counts removed by the cleanup, for the audit trail
	CartItemsRemoved int  `gorm:"default:0" json:"cart_items_removed"`
	FavoritesRemoved int  `gorm:"default:0" json:"favorites_removed"`
	ReviewsRemoved   int  `gorm:"default:0" json:"reviews_removed"`
	StoreClosed      bool `gorm:"default:false" json:"store_closed"`
	ProductsRemoved  int  `gorm:"default:0" json:"products_removed"`

	CreatedAt time.Time `json:"created_at"`
}

// TableName keeps the audit table clearly separate from users
func (WithdrawnAccount) TableName() string {
	return "withdrawn_accounts"
}

// BeforeCreate hooks for GORM
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = generateUUID()
	}
	if u.Role == "" {
		u.Role = RoleShopper
	}
	return nil
}

func (p *PasswordReset) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = generateUUID()
	}
	return nil
}

func (w *WithdrawnAccount) BeforeCreate(tx *gorm.DB) error {
	if w.ID == "" {
		w.ID = generateUUID()
	}
	return nil
}

// Helper function for UUID generation
func generateUUID() string {
	return uuid.New().String()
}
