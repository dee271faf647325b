package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sellerops/spbridge/spapi"
)

// ProductAPI is the upstream marketplace surface the tools call.
type ProductAPI interface {
	GetProductInfo(ctx context.Context, sku string) (*spapi.Product, error)
	GetCompetitivePricing(ctx context.Context, sku string) (*spapi.Pricing, error)
}

// RegisterAmazonTools registers the marketplace tool set against api.
func RegisterAmazonTools(r *Registry, api ProductAPI) error {
	for _, tool := range []*Tool{
		productInfoTool(api),
		productPricingTool(api),
		optimizeListingTool(api),
	} {
		if err := r.Register(tool); err != nil {
			return err
		}
	}
	return nil
}

func skuSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"sku": map[string]any{
				"type":        "string",
				"description": "Stock Keeping Unit (SKU) of the product",
			},
			"seller_id": map[string]any{
				"type":        "string",
				"description": "Optional seller ID for multi-user scenarios",
				"default":     "default",
			},
		},
		"required": []any{"sku"},
	}
}

func productInfoTool(api ProductAPI) *Tool {
	return &Tool{
		Name:        "get_amazon_product_info",
		Description: "Get comprehensive product information from Amazon using SKU. Returns title, description, features, images, attributes, dimensions, and sales rank data.",
		InputSchema: skuSchema(),
		Cacheable:   true,
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			sku, err := stringArg(args, "sku")
			if err != nil {
				return "", err
			}
			product, err := api.GetProductInfo(ctx, sku)
			if err != nil {
				return "", err
			}
			return marshalIndent(product)
		},
	}
}

func productPricingTool(api ProductAPI) *Tool {
	return &Tool{
		Name:        "get_amazon_product_pricing",
		Description: "Get current pricing information for an Amazon product",
		InputSchema: skuSchema(),
		Cacheable:   true,
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			sku, err := stringArg(args, "sku")
			if err != nil {
				return "", err
			}
			pricing, err := api.GetCompetitivePricing(ctx, sku)
			if err != nil {
				return "", err
			}
			return marshalIndent(pricing)
		},
	}
}

// optimizationPayload bundles the current listing with an analysis prompt
// for a downstream language model.
type optimizationPayload struct {
	ASIN            string         `json:"asin"`
	CurrentData     *spapi.Product `json:"current_data"`
	Focus           string         `json:"focus"`
	AnalysisRequest string         `json:"analysis_request"`
}

func optimizeListingTool(api ProductAPI) *Tool {
	return &Tool{
		Name:        "optimize_product_listing",
		Description: "Get product data and provide optimization suggestions for title, description, and bullet points",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"asin": map[string]any{
					"type":        "string",
					"description": "Amazon Standard Identification Number (ASIN) of the product",
				},
				"optimization_focus": map[string]any{
					"type":        "string",
					"description": "What to focus on: 'title', 'description', 'features', or 'all'",
					"default":     "all",
				},
				"user_id": map[string]any{
					"type":        "string",
					"description": "Optional user ID for multi-user scenarios",
					"default":     "default",
				},
			},
			"required": []any{"asin"},
		},
		Cacheable: true,
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			asin, err := stringArg(args, "asin")
			if err != nil {
				return "", err
			}
			focus := optionalStringArg(args, "optimization_focus", "all")

			product, err := api.GetProductInfo(ctx, asin)
			if err != nil {
				return "", fmt.Errorf("fetching product data: %w", err)
			}

			return marshalIndent(optimizationPayload{
				ASIN:        asin,
				CurrentData: product,
				Focus:       focus,
				AnalysisRequest: fmt.Sprintf(
					"Please analyze this Amazon product listing and provide optimization suggestions focusing on %s. Consider SEO keywords, clarity, and conversion optimization.",
					focus),
			})
		},
	}
}

func marshalIndent(v any) (string, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("tools: encoding result: %w", err)
	}
	return string(out), nil
}
