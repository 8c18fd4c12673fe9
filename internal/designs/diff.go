package designs

import (
	"slices"

	"github.com/vendora/backend/internal/models"
)

// ChangeType classifies how a block differs between two layouts
type ChangeType string

const (
	// ChangeLocalOnly means the block exists only in the local layout
	ChangeLocalOnly ChangeType = "local_only"
	// ChangeRemoteOnly means the block exists only in the remote layout
	ChangeRemoteOnly ChangeType = "remote_only"
	// ChangeModified means the block exists in both but fields differ
	ChangeModified ChangeType = "modified"
)

// BlockChange describes one block's difference between local and remote layouts
type BlockChange struct {
	BlockID string     `json:"block_id"`
	Type    ChangeType `json:"type"`
	Fields  []string   `json:"fields,omitempty"`
}

// Diff compares a session's local blocks against the remote row's blocks
// field by field. An empty result means the layouts are identical, so a
// remote version bump carried no visible change.
func Diff(local, remote models.BlockList) []BlockChange {
	changes := make([]BlockChange, 0)

	remoteByID := make(map[string]*models.DesignBlock, len(remote))
	for i := range remote {
		remoteByID[remote[i].ID] = &remote[i]
	}

	localSeen := make(map[string]bool, len(local))
	for i := range local {
		localBlock := &local[i]
		localSeen[localBlock.ID] = true

		remoteBlock, ok := remoteByID[localBlock.ID]
		if !ok {
			changes = append(changes, BlockChange{BlockID: localBlock.ID, Type: ChangeLocalOnly})
			continue
		}

		if fields := diffBlock(localBlock, remoteBlock); len(fields) > 0 {
			changes = append(changes, BlockChange{BlockID: localBlock.ID, Type: ChangeModified, Fields: fields})
		}
	}

	for i := range remote {
		if !localSeen[remote[i].ID] {
			changes = append(changes, BlockChange{BlockID: remote[i].ID, Type: ChangeRemoteOnly})
		}
	}

	return changes
}

// diffBlock lists the fields where two versions of the same block disagree
func diffBlock(local, remote *models.DesignBlock) []string {
	var fields []string

	if local.Kind != remote.Kind {
		fields = append(fields, "kind")
	}
	if local.Position != remote.Position {
		fields = append(fields, "position")
	}

	fields = append(fields, diffConfig(&local.Config, &remote.Config)...)

	return fields
}

// diffConfig compares every config field explicitly so conflict reports
// can name exactly what the other writer touched
func diffConfig(local, remote *models.BlockConfig) []string {
	var fields []string

	if local.Markdown != remote.Markdown {
		fields = append(fields, "config.markdown")
	}
	if local.Alignment != remote.Alignment {
		fields = append(fields, "config.alignment")
	}
	if local.ImageURL != remote.ImageURL {
		fields = append(fields, "config.image_url")
	}
	if local.LinkURL != remote.LinkURL {
		fields = append(fields, "config.link_url")
	}
	if local.AltText != remote.AltText {
		fields = append(fields, "config.alt_text")
	}
	if local.Headline != remote.Headline {
		fields = append(fields, "config.headline")
	}
	if !slices.Equal(local.ProductIDs, remote.ProductIDs) {
		fields = append(fields, "config.product_ids")
	}
	if local.Columns != remote.Columns {
		fields = append(fields, "config.columns")
	}
	if local.ShowPrices != remote.ShowPrices {
		fields = append(fields, "config.show_prices")
	}
	if local.HeightPx != remote.HeightPx {
		fields = append(fields, "config.height_px")
	}

	return fields
}
