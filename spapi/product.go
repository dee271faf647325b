package spapi

import "encoding/json"

// Product is the formatted listing payload returned to tool callers.
type Product struct {
	SKU         string         `json:"sku"`
	ASIN        string         `json:"asin"`
	Title       string         `json:"title"`
	ProductType string         `json:"product_type"`
	Description string         `json:"description"`
	Features    []string       `json:"features"`
	Attributes  map[string]any `json:"attributes"`
	Images      []Image        `json:"images"`
	Dimensions  map[string]any `json:"dimensions"`
	SalesRanks  []SalesRank    `json:"sales_ranks"`
	Issues      []Issue        `json:"issues,omitempty"`
}

// Image is one image variant attached to a listing.
type Image struct {
	Variant string `json:"variant"`
	Link    string `json:"link"`
	Height  int    `json:"height"`
	Width   int    `json:"width"`
}

// SalesRank is a rank within a browse or display group.
type SalesRank struct {
	Title string `json:"title"`
	Rank  int    `json:"rank"`
	Link  string `json:"link,omitempty"`
}

// Issue is a listing problem reported by the marketplace.
type Issue struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
}

// Pricing is the competitive pricing payload for a SKU.
type Pricing struct {
	SKU    string         `json:"sku"`
	Offers []PricingEntry `json:"offers"`
}

// PricingEntry is one SKU's pricing record from the pricing API.
type PricingEntry struct {
	SellerSKU string          `json:"SellerSKU"`
	Status    string          `json:"status"`
	Product   json.RawMessage `json:"Product"`
}

type pricingResponse struct {
	Payload []PricingEntry `json:"payload"`
}

// listingsItem is the raw shape of a Listings Items API response.
type listingsItem struct {
	SKU        string                     `json:"sku"`
	Summaries  []itemSummary              `json:"summaries"`
	Attributes map[string]json.RawMessage `json:"attributes"`
	Issues     []Issue                    `json:"issues"`
}

type itemSummary struct {
	ASIN        string      `json:"asin"`
	ItemName    string      `json:"itemName"`
	ProductType string      `json:"productType"`
	MainImage   *Image      `json:"mainImage"`
	SalesRanks  []groupRank `json:"salesRanks"`
}

type groupRank struct {
	ClassificationRanks []SalesRank `json:"classificationRanks"`
	DisplayGroupRanks   []SalesRank `json:"displayGroupRanks"`
}

// formatProduct flattens a raw listings item into the tool payload.
//
// Listing attributes arrive as lists of marketplace-qualified value objects;
// single-valued attributes are unwrapped to their "value" field so callers
// see plain strings where possible.
func formatProduct(item *listingsItem) *Product {
	p := &Product{
		SKU:        item.SKU,
		Attributes: make(map[string]any),
		Features:   []string{},
		Images:     []Image{},
		Dimensions: map[string]any{},
		SalesRanks: []SalesRank{},
		Issues:     item.Issues,
	}

	if len(item.Summaries) > 0 {
		s := item.Summaries[0]
		p.ASIN = s.ASIN
		p.Title = s.ItemName
		p.ProductType = s.ProductType
		if s.MainImage != nil {
			p.Images = append(p.Images, *s.MainImage)
		}
		for _, gr := range s.SalesRanks {
			p.SalesRanks = append(p.SalesRanks, gr.DisplayGroupRanks...)
			p.SalesRanks = append(p.SalesRanks, gr.ClassificationRanks...)
		}
	}

	for name, raw := range item.Attributes {
		values := attributeValues(raw)
		switch name {
		case "bullet_point", "feature_bullet_point":
			for _, v := range values {
				if s, ok := v.(string); ok && s != "" {
					p.Features = append(p.Features, s)
				}
			}
		case "product_description", "item_package_description":
			if p.Description == "" && len(values) > 0 {
				if s, ok := values[0].(string); ok {
					p.Description = s
				}
			}
		case "item_dimensions", "item_package_dimensions":
			if len(values) > 0 {
				if m, ok := values[0].(map[string]any); ok && len(p.Dimensions) == 0 {
					p.Dimensions = m
				}
			}
		case "main_product_image_locator", "other_product_image_locator":
			for _, v := range values {
				if m, ok := v.(map[string]any); ok {
					if link, ok := m["media_location"].(string); ok {
						p.Images = append(p.Images, Image{Variant: name, Link: link})
					}
				}
			}
		default:
			switch len(values) {
			case 0:
			case 1:
				p.Attributes[name] = values[0]
			default:
				p.Attributes[name] = values
			}
		}
	}

	return p
}

// attributeValues unwraps an attribute list, extracting the "value" field of
// each entry when present and keeping the full object otherwise.
func attributeValues(raw json.RawMessage) []any {
	var entries []map[string]any
	if err := json.Unmarshal(raw, &entries); err != nil {
		// Not the usual list-of-objects shape, keep it verbatim.
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil
		}
		return []any{v}
	}

	values := make([]any, 0, len(entries))
	for _, entry := range entries {
		if v, ok := entry["value"]; ok {
			values = append(values, v)
			continue
		}
		// Drop marketplace bookkeeping, keep the substance.
		trimmed := make(map[string]any, len(entry))
		for k, v := range entry {
			if k == "marketplace_id" || k == "language_tag" {
				continue
			}
			trimmed[k] = v
		}
		if len(trimmed) > 0 {
			values = append(values, trimmed)
		}
	}
	return values
}
