package spapi

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestFormatProduct(t *testing.T) {
	raw := `{
		"sku": "SKU-9",
		"summaries": [{
			"asin": "B0EXAMPLE9",
			"itemName": "Bamboo Cutting Board",
			"productType": "CUTTING_BOARD",
			"mainImage": {"link": "https://img.example/main.jpg", "height": 500, "width": 500},
			"salesRanks": [{
				"displayGroupRanks": [{"title": "Kitchen", "rank": 1234}],
				"classificationRanks": [{"title": "Cutting Boards", "rank": 17}]
			}]
		}],
		"attributes": {
			"bullet_point": [
				{"value": "Knife friendly", "marketplace_id": "X"},
				{"value": "Easy to clean", "marketplace_id": "X"}
			],
			"product_description": [{"value": "A sturdy board.", "marketplace_id": "X"}],
			"item_package_dimensions": [{
				"length": {"value": 40, "unit": "centimeters"},
				"width": {"value": 30, "unit": "centimeters"},
				"marketplace_id": "X"
			}],
			"main_product_image_locator": [{"media_location": "https://img.example/a.jpg", "marketplace_id": "X"}],
			"color": [{"value": "natural", "marketplace_id": "X"}],
			"material": [
				{"value": "bamboo", "marketplace_id": "X"},
				{"value": "wood", "marketplace_id": "X"}
			]
		},
		"issues": [{"code": "90220", "message": "missing attribute", "severity": "WARNING"}]
	}`

	var item listingsItem
	if err := json.Unmarshal([]byte(raw), &item); err != nil {
		t.Fatalf("unmarshal fixture: %v", err)
	}

	p := formatProduct(&item)

	if p.SKU != "SKU-9" || p.ASIN != "B0EXAMPLE9" {
		t.Errorf("identity = %q/%q", p.SKU, p.ASIN)
	}
	if p.Title != "Bamboo Cutting Board" || p.ProductType != "CUTTING_BOARD" {
		t.Errorf("summary = %q/%q", p.Title, p.ProductType)
	}
	if p.Description != "A sturdy board." {
		t.Errorf("Description = %q", p.Description)
	}
	if len(p.Features) != 2 || p.Features[0] != "Knife friendly" {
		t.Errorf("Features = %v", p.Features)
	}
	if p.Attributes["color"] != "natural" {
		t.Errorf("color = %v, want unwrapped single value", p.Attributes["color"])
	}
	if vals, ok := p.Attributes["material"].([]any); !ok || len(vals) != 2 {
		t.Errorf("material = %v, want two values", p.Attributes["material"])
	}
	if len(p.Dimensions) == 0 {
		t.Error("Dimensions empty, want package dimensions")
	}
	if _, bookkept := p.Dimensions["marketplace_id"]; bookkept {
		t.Error("Dimensions kept marketplace_id")
	}

	// Main image from the summary plus the locator attribute.
	if len(p.Images) != 2 {
		t.Fatalf("Images = %v, want 2", p.Images)
	}
	if p.Images[1].Link != "https://img.example/a.jpg" {
		t.Errorf("locator image link = %q", p.Images[1].Link)
	}

	if len(p.SalesRanks) != 2 || p.SalesRanks[0].Title != "Kitchen" || p.SalesRanks[0].Rank != 1234 {
		t.Errorf("SalesRanks = %v", p.SalesRanks)
	}
	if len(p.Issues) != 1 || p.Issues[0].Severity != "WARNING" {
		t.Errorf("Issues = %v", p.Issues)
	}
}

func TestFormatProduct_EmptyListing(t *testing.T) {
	p := formatProduct(&listingsItem{SKU: "BARE"})

	if p.SKU != "BARE" {
		t.Errorf("SKU = %q", p.SKU)
	}
	if p.Title != "" || p.Description != "" {
		t.Errorf("got title %q description %q for empty listing", p.Title, p.Description)
	}
	// Collections serialize as [] / {}, not null.
	out, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, fragment := range []string{`"features":[]`, `"images":[]`, `"attributes":{}`} {
		if !strings.Contains(string(out), fragment) {
			t.Errorf("marshaled product missing %s: %s", fragment, out)
		}
	}
}

func TestAttributeValues_NonListShape(t *testing.T) {
	values := attributeValues(json.RawMessage(`"plain-string"`))
	if len(values) != 1 || values[0] != "plain-string" {
		t.Errorf("values = %v", values)
	}

	if values := attributeValues(json.RawMessage(`not json`)); values != nil {
		t.Errorf("values = %v for invalid payload, want nil", values)
	}
}
