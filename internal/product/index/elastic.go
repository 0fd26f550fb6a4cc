package index

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fekuna/omnipos-marketplace-service/internal/model"
	"github.com/fekuna/omnipos-marketplace-service/internal/pkg/search"
	"github.com/fekuna/omnipos-marketplace-service/internal/product"
	"github.com/fekuna/omnipos-marketplace-service/internal/product/dto"
)

const IndexName = "marketplace_products"

const mapping = `{
	"mappings": {
		"properties": {
			"vendor_id":   { "type": "keyword" },
			"category_id": { "type": "keyword" },
			"status":      { "type": "keyword" },
			"sku":         { "type": "keyword" },
			"name":        { "type": "text", "fields": { "raw": { "type": "keyword" } } },
			"description": { "type": "text" },
			"strain_type": { "type": "keyword" },
			"thc_percent": { "type": "float" },
			"cbd_percent": { "type": "float" },
			"base_price":  { "type": "scaled_float", "scaling_factor": 100 },
			"created_at":  { "type": "date" }
		}
	}
}`

type ElasticIndex struct {
	client *search.Client
	index  string
}

var _ product.SearchIndex = (*ElasticIndex)(nil)

func NewElasticIndex(client *search.Client) *ElasticIndex {
	return &ElasticIndex{client: client, index: IndexName}
}

// EnsureIndex creates the index with its mapping if it is missing.
func (e *ElasticIndex) EnsureIndex(ctx context.Context) error {
	return e.client.CreateIndex(ctx, e.index, mapping)
}

func (e *ElasticIndex) Index(ctx context.Context, p *model.Product) error {
	return e.client.Index(ctx, e.index, p.ID, p)
}

func (e *ElasticIndex) Delete(ctx context.Context, id string) error {
	return e.client.Delete(ctx, e.index, id)
}

func (e *ElasticIndex) Search(ctx context.Context, f *dto.ProductFilters) ([]model.Product, int, error) {
	res, err := e.client.Search(ctx, e.index, Query(f))
	if err != nil {
		return nil, 0, err
	}

	products := make([]model.Product, 0, len(res.Hits.Hits))
	for _, hit := range res.Hits.Hits {
		var p model.Product
		if err := json.Unmarshal(hit.Source, &p); err != nil {
			return nil, 0, fmt.Errorf("decode hit %s: %w", hit.ID, err)
		}
		products = append(products, p)
	}
	return products, res.Hits.Total.Value, nil
}

// Query builds the search body. Vendor scoping is a filter so it never
// affects scoring.
func Query(f *dto.ProductFilters) map[string]any {
	filters := []map[string]any{
		{"term": map[string]any{"vendor_id": f.VendorID}},
	}
	if f.Status != "" {
		filters = append(filters, map[string]any{"term": map[string]any{"status": f.Status}})
	}
	if f.CategoryID != "" {
		filters = append(filters, map[string]any{"term": map[string]any{"category_id": f.CategoryID}})
	}

	q := map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"must": []map[string]any{
					{
						"multi_match": map[string]any{
							"query":     f.SearchQuery,
							"fields":    []string{"name^3", "sku^2", "strain_type", "description"},
							"fuzziness": "AUTO",
						},
					},
				},
				"filter": filters,
			},
		},
		"from": f.Offset(),
	}
	if f.PageSize > 0 {
		q["size"] = f.PageSize
	}
	return q
}
