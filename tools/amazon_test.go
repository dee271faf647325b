package tools

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/sellerops/spbridge/spapi"
)

// fakeAPI serves canned products keyed by SKU or ASIN.
type fakeAPI struct {
	products map[string]*spapi.Product
	pricing  map[string]*spapi.Pricing
	err      error
}

func (f *fakeAPI) GetProductInfo(_ context.Context, sku string) (*spapi.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.products[sku]
	if !ok {
		return nil, spapi.ErrNotFound
	}
	return p, nil
}

func (f *fakeAPI) GetCompetitivePricing(_ context.Context, sku string) (*spapi.Pricing, error) {
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.pricing[sku]
	if !ok {
		return nil, spapi.ErrNotFound
	}
	return p, nil
}

func newAmazonRegistry(t *testing.T, api ProductAPI) *Registry {
	t.Helper()
	r := NewRegistry(RegistryConfig{})
	if err := RegisterAmazonTools(r, api); err != nil {
		t.Fatalf("RegisterAmazonTools() error = %v", err)
	}
	return r
}

func TestRegisterAmazonTools_List(t *testing.T) {
	r := newAmazonRegistry(t, &fakeAPI{})

	defs := r.List()
	want := []string{"get_amazon_product_info", "get_amazon_product_pricing", "optimize_product_listing"}
	if len(defs) != len(want) {
		t.Fatalf("List() returned %d tools, want %d", len(defs), len(want))
	}
	for i, name := range want {
		if defs[i].Name != name {
			t.Errorf("tool %d = %q, want %q", i, defs[i].Name, name)
		}
		if defs[i].Description == "" || defs[i].InputSchema == nil {
			t.Errorf("tool %q missing description or schema", name)
		}
	}
}

func TestProductInfoTool(t *testing.T) {
	api := &fakeAPI{products: map[string]*spapi.Product{
		"SKU-1": {SKU: "SKU-1", ASIN: "B0TEST", Title: "Steel Bottle"},
	}}
	r := newAmazonRegistry(t, api)

	got, err := r.Call(context.Background(), "get_amazon_product_info", map[string]any{"sku": "SKU-1"})
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}

	var product spapi.Product
	if err := json.Unmarshal([]byte(got), &product); err != nil {
		t.Fatalf("result not valid JSON: %v", err)
	}
	if product.Title != "Steel Bottle" {
		t.Errorf("Title = %q", product.Title)
	}
}

func TestProductInfoTool_MissingSKU(t *testing.T) {
	r := newAmazonRegistry(t, &fakeAPI{})
	if _, err := r.Call(context.Background(), "get_amazon_product_info", map[string]any{}); !errors.Is(err, ErrMissingArgument) {
		t.Errorf("Call() error = %v, want ErrMissingArgument", err)
	}
}

func TestProductPricingTool(t *testing.T) {
	api := &fakeAPI{pricing: map[string]*spapi.Pricing{
		"SKU-1": {SKU: "SKU-1", Offers: []spapi.PricingEntry{{SellerSKU: "SKU-1", Status: "Success"}}},
	}}
	r := newAmazonRegistry(t, api)

	got, err := r.Call(context.Background(), "get_amazon_product_pricing", map[string]any{"sku": "SKU-1"})
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if !strings.Contains(got, `"Success"`) {
		t.Errorf("result = %s", got)
	}
}

func TestOptimizeListingTool(t *testing.T) {
	api := &fakeAPI{products: map[string]*spapi.Product{
		"B0TEST": {ASIN: "B0TEST", Title: "Steel Bottle"},
	}}
	r := newAmazonRegistry(t, api)

	got, err := r.Call(context.Background(), "optimize_product_listing", map[string]any{
		"asin":               "B0TEST",
		"optimization_focus": "title",
	})
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}

	var payload struct {
		ASIN            string         `json:"asin"`
		CurrentData     *spapi.Product `json:"current_data"`
		Focus           string         `json:"focus"`
		AnalysisRequest string         `json:"analysis_request"`
	}
	if err := json.Unmarshal([]byte(got), &payload); err != nil {
		t.Fatalf("result not valid JSON: %v", err)
	}
	if payload.ASIN != "B0TEST" || payload.Focus != "title" {
		t.Errorf("payload = %+v", payload)
	}
	if payload.CurrentData == nil || payload.CurrentData.Title != "Steel Bottle" {
		t.Errorf("current_data = %+v", payload.CurrentData)
	}
	if !strings.Contains(payload.AnalysisRequest, "focusing on title") {
		t.Errorf("analysis_request = %q", payload.AnalysisRequest)
	}
}

func TestOptimizeListingTool_DefaultFocus(t *testing.T) {
	api := &fakeAPI{products: map[string]*spapi.Product{"B0TEST": {ASIN: "B0TEST"}}}
	r := newAmazonRegistry(t, api)

	got, err := r.Call(context.Background(), "optimize_product_listing", map[string]any{"asin": "B0TEST"})
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if !strings.Contains(got, `"focus": "all"`) {
		t.Errorf("result = %s, want default focus all", got)
	}
}

func TestOptimizeListingTool_FetchError(t *testing.T) {
	r := newAmazonRegistry(t, &fakeAPI{err: errors.New("upstream down")})

	_, err := r.Call(context.Background(), "optimize_product_listing", map[string]any{"asin": "B0TEST"})
	if err == nil || !strings.Contains(err.Error(), "fetching product data") {
		t.Errorf("Call() error = %v, want wrapped fetch error", err)
	}
}

func TestAmazonTools_NotFoundPropagates(t *testing.T) {
	r := newAmazonRegistry(t, &fakeAPI{})

	if _, err := r.Call(context.Background(), "get_amazon_product_info", map[string]any{"sku": "MISSING"}); !errors.Is(err, spapi.ErrNotFound) {
		t.Errorf("Call() error = %v, want spapi.ErrNotFound", err)
	}
}
