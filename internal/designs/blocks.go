package designs

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/vendora/backend/internal/models"
)

const (
	// MaxBlocksPerDesign caps the layout size a single store page can hold
	MaxBlocksPerDesign = 50

	// MaxMarkdownLength caps text block content
	MaxMarkdownLength = 10000

	// MaxSpacerHeight caps spacer blocks (pixels)
	MaxSpacerHeight = 500

	// MaxGridProducts caps how many products one grid block can pin
	MaxGridProducts = 24
)

// ValidationError describes a single invalid field on a block
type ValidationError struct {
	BlockID string `json:"block_id"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("block %s: %s %s", e.BlockID, e.Field, e.Message)
}

// ValidationErrors collects all problems found in a block list
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// EnsureIDs assigns a UUID to every block that arrived without one.
// Client-generated IDs are kept so the studio can correlate its local state.
func EnsureIDs(blocks models.BlockList) models.BlockList {
	for i := range blocks {
		if blocks[i].ID == "" {
			blocks[i].ID = uuid.New().String()
		}
	}
	return blocks
}

// Normalize sorts blocks by position (ties broken by block ID for a
// deterministic layout) and reassigns dense positions 0..n-1.
func Normalize(blocks models.BlockList) models.BlockList {
	sort.SliceStable(blocks, func(i, j int) bool {
		if blocks[i].Position != blocks[j].Position {
			return blocks[i].Position < blocks[j].Position
		}
		return blocks[i].ID < blocks[j].ID
	})

	for i := range blocks {
		blocks[i].Position = i
	}

	return blocks
}

// Validate checks every block's kind and per-kind config constraints.
// Returns ValidationErrors listing all problems, or nil when clean.
func Validate(blocks models.BlockList) error {
	var errs ValidationErrors

	if len(blocks) > MaxBlocksPerDesign {
		errs = append(errs, ValidationError{
			Field:   "blocks",
			Message: fmt.Sprintf("must not exceed %d blocks", MaxBlocksPerDesign),
		})
	}

	seen := make(map[string]bool, len(blocks))
	for i := range blocks {
		block := &blocks[i]

		if block.ID != "" && seen[block.ID] {
			errs = append(errs, ValidationError{
				BlockID: block.ID,
				Field:   "id",
				Message: "duplicates another block",
			})
		}
		seen[block.ID] = true

		errs = append(errs, validateBlock(block)...)
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// validateBlock checks one block's kind-specific config
func validateBlock(block *models.DesignBlock) ValidationErrors {
	var errs ValidationErrors

	fail := func(field, message string) {
		errs = append(errs, ValidationError{BlockID: block.ID, Field: field, Message: message})
	}

	if !models.ValidBlockKind(block.Kind) {
		fail("kind", fmt.Sprintf("unknown block kind %q", block.Kind))
		return errs
	}

	cfg := block.Config
	switch block.Kind {
	case models.BlockText:
		if cfg.Markdown == "" {
			fail("config.markdown", "is required for text blocks")
		}
		if len(cfg.Markdown) > MaxMarkdownLength {
			fail("config.markdown", fmt.Sprintf("must not exceed %d characters", MaxMarkdownLength))
		}
		switch cfg.Alignment {
		case "", "left", "center", "right":
		default:
			fail("config.alignment", "must be left, center, or right")
		}

	case models.BlockBanner:
		if cfg.ImageURL == "" {
			fail("config.image_url", "is required for banner blocks")
		}

	case models.BlockImage:
		if cfg.ImageURL == "" {
			fail("config.image_url", "is required for image blocks")
		}
		if cfg.AltText == "" {
			fail("config.alt_text", "is required for image blocks")
		}

	case models.BlockProductGrid:
		if len(cfg.ProductIDs) == 0 {
			fail("config.product_ids", "must list at least one product")
		}
		if len(cfg.ProductIDs) > MaxGridProducts {
			fail("config.product_ids", fmt.Sprintf("must not exceed %d products", MaxGridProducts))
		}
		if cfg.Columns < 1 || cfg.Columns > 4 {
			fail("config.columns", "must be between 1 and 4")
		}

	case models.BlockSpacer:
		if cfg.HeightPx < 1 || cfg.HeightPx > MaxSpacerHeight {
			fail("config.height_px", fmt.Sprintf("must be between 1 and %d", MaxSpacerHeight))
		}

	case models.BlockDivider:
		// No config required
	}

	return errs
}

// Reorder rearranges blocks to match orderedIDs exactly. Every existing
// block must appear exactly once; unknown or missing IDs abort the reorder.
func Reorder(blocks models.BlockList, orderedIDs []string) (models.BlockList, error) {
	if len(orderedIDs) != len(blocks) {
		return nil, fmt.Errorf("order lists %d blocks, design has %d", len(orderedIDs), len(blocks))
	}

	byID := make(map[string]models.DesignBlock, len(blocks))
	for _, block := range blocks {
		byID[block.ID] = block
	}

	reordered := make(models.BlockList, 0, len(blocks))
	used := make(map[string]bool, len(orderedIDs))
	for _, id := range orderedIDs {
		if used[id] {
			return nil, fmt.Errorf("block %s listed twice in order", id)
		}
		used[id] = true

		block, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("unknown block %s in order", id)
		}
		reordered = append(reordered, block)
	}

	for i := range reordered {
		reordered[i].Position = i
	}

	return reordered, nil
}
