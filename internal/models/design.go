package models

import (
	"time"

	"gorm.io/gorm"
)

// BlockKind enumerates the content block types the design studio can place
type BlockKind string

const (
	BlockText        BlockKind = "text"
	BlockBanner      BlockKind = "banner"
	BlockImage       BlockKind = "image"
	BlockProductGrid BlockKind = "product_grid"
	BlockSpacer      BlockKind = "spacer"
	BlockDivider     BlockKind = "divider"
)

// ValidBlockKind reports whether k names a known block type
func ValidBlockKind(k BlockKind) bool {
	switch k {
	case BlockText, BlockBanner, BlockImage, BlockProductGrid, BlockSpacer, BlockDivider:
		return true
	}
	return false
}

// BlockConfig holds the per-kind settings of a design block. Only the
// fields relevant to the block's kind are populated; the rest stay zero.
type BlockConfig struct {
	// text
	Markdown  string `json:"markdown,omitempty"`
	Alignment string `json:"alignment,omitempty"` // left, center, right

	// banner / image
	ImageURL string `json:"image_url,omitempty"`
	LinkURL  string `json:"link_url,omitempty"`
	AltText  string `json:"alt_text,omitempty"`
	Headline string `json:"headline,omitempty"`

	// product_grid
	ProductIDs []string `json:"product_ids,omitempty"`
	Columns    int      `json:"columns,omitempty"` // 1..4
	ShowPrices bool     `json:"show_prices,omitempty"`

	// spacer
	HeightPx int `json:"height_px,omitempty"`
}

// DesignBlock is one draggable content unit on a store page. Blocks live
// inside StoreDesign's JSONB columns, not in their own table.
type DesignBlock struct {
	ID       string      `json:"id"`
	Kind     BlockKind   `json:"kind"`
	Position int         `json:"position"`
	Config   BlockConfig `json:"config"`
}

// BlockList is the ordered set of blocks making up one page layout
type BlockList []DesignBlock

// StoreDesign is the customizable page layout of a store. Draft blocks
// are what the studio edits; published blocks are what shoppers see.
// Version increments on every successful draft save and is the basis of
// the autosave conflict check.
type StoreDesign struct {
	ID      string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	StoreID string `gorm:"uniqueIndex;not null" json:"store_id"`
	Store   Store  `gorm:"foreignKey:StoreID" json:"-"`

	Blocks  BlockList `gorm:"type:jsonb;serializer:json" json:"blocks"`
	Version int64     `gorm:"default:0" json:"version"`

	PublishedBlocks BlockList  `gorm:"type:jsonb;serializer:json" json:"published_blocks,omitempty"`
	PublishedAt     *time.Time `json:"published_at,omitempty"`

	// Preview snapshot of the draft, rendered by the studio client
	PreviewURL string `json:"preview_url,omitempty"`

	// GORM fields
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName for store designs
func (StoreDesign) TableName() string {
	return "store_designs"
}

func (d *StoreDesign) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = generateUUID()
	}
	if d.Blocks == nil {
		d.Blocks = BlockList{}
	}
	return nil
}
