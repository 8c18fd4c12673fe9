package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// IndexVersion is the current products mapping version. Bump it whenever
// the mapping changes in a way that requires a rebuild, then run the
// reindex command.
//
// v1: initial products/stores mappings
// v2: added store_open to products for open-store filtering
const IndexVersion = 2

// CheckIndexVersion reads the version marker stored in the products index
// settings. Returns 0 when the index has no marker yet.
func (c *Client) CheckIndexVersion(ctx context.Context) (int, error) {
	res, err := c.es.Indices.GetSettings(
		c.es.Indices.GetSettings.WithContext(ctx),
		c.es.Indices.GetSettings.WithIndex(IndexProducts),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to get index settings: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		if res.StatusCode == 404 {
			return 0, nil
		}
		return 0, fmt.Errorf("error getting index settings: [%s]", res.Status())
	}

	var settings map[string]struct {
		Settings struct {
			Index struct {
				Custom struct {
					Version string `json:"version"`
				} `json:"custom"`
			} `json:"index"`
		} `json:"settings"`
	}

	if err := json.NewDecoder(res.Body).Decode(&settings); err != nil {
		return 0, fmt.Errorf("failed to decode index settings: %w", err)
	}

	indexSettings, ok := settings[IndexProducts]
	if !ok {
		return 0, nil
	}

	versionStr := indexSettings.Settings.Index.Custom.Version
	if versionStr == "" {
		return 0, nil
	}

	version, err := strconv.Atoi(strings.TrimSpace(versionStr))
	if err != nil {
		return 0, fmt.Errorf("invalid index version %q: %w", versionStr, err)
	}

	return version, nil
}

// UpdateIndexVersion stamps the current version onto the products index
func (c *Client) UpdateIndexVersion(ctx context.Context) error {
	settings := map[string]interface{}{
		"index": map[string]interface{}{
			"custom": map[string]interface{}{
				"version": strconv.Itoa(IndexVersion),
			},
		},
	}

	body, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	res, err := c.es.Indices.PutSettings(
		bytes.NewReader(body),
		c.es.Indices.PutSettings.WithContext(ctx),
		c.es.Indices.PutSettings.WithIndex(IndexProducts),
	)
	if err != nil {
		return fmt.Errorf("failed to update index version: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("error updating index version: [%s]", res.Status())
	}

	return nil
}

// DeleteIndex removes an index entirely. Used by the reindex command
// before rebuilding from scratch. A missing index is not an error.
func (c *Client) DeleteIndex(ctx context.Context, indexName string) error {
	res, err := c.es.Indices.Delete(
		[]string{indexName},
		c.es.Indices.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to delete index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("error deleting index: [%s]", res.Status())
	}

	return nil
}
