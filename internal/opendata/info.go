package opendata

import (
	"context"
	"fmt"
	"net/url"

	"github.com/bytedance/sonic"
)

// DatasetInfo is the portal's description of a dataset.
type DatasetInfo struct {
	DatasetID    string  `json:"dataset_id"`
	Title        string  `json:"title"`
	Description  string  `json:"description,omitempty"`
	Publisher    string  `json:"publisher,omitempty"`
	License      string  `json:"license,omitempty"`
	Modified     string  `json:"modified,omitempty"`
	RecordsCount int64   `json:"records_count"`
	Fields       []Field `json:"fields"`
}

// Field is one column of a portal dataset.
type Field struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Label string `json:"label,omitempty"`
}

// catalog API response types

type datasetResponse struct {
	DatasetID string `json:"dataset_id"`
	Metas     struct {
		Default struct {
			Title        string `json:"title"`
			Description  string `json:"description"`
			Publisher    string `json:"publisher"`
			License      string `json:"license"`
			Modified     string `json:"modified"`
			RecordsCount int64  `json:"records_count"`
		} `json:"default"`
	} `json:"metas"`
	Fields []Field `json:"fields"`
}

// DatasetInfo fetches the metadata of datasetID.
func (c *Client) DatasetInfo(ctx context.Context, datasetID string) (*DatasetInfo, error) {
	u := c.baseURL + apiPrefix + url.PathEscape(datasetID) + "?" + url.Values{"lang": {c.lang}}.Encode()

	body, err := c.get(ctx, datasetID, u)
	if err != nil {
		return nil, fmt.Errorf("dataset %s metadata: %w", datasetID, err)
	}

	var resp datasetResponse
	if err := sonic.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode dataset %s metadata: %w", datasetID, err)
	}

	d := resp.Metas.Default
	return &DatasetInfo{
		DatasetID:    resp.DatasetID,
		Title:        d.Title,
		Description:  d.Description,
		Publisher:    d.Publisher,
		License:      d.License,
		Modified:     d.Modified,
		RecordsCount: d.RecordsCount,
		Fields:       resp.Fields,
	}, nil
}
