package registry

import "github.com/glassflow/shopify-shops-etl/internal/core/schema"

const ShopifyShops = "shopify_shops"

// ShopifyShopsStream describes the storefront metadata stream.
func ShopifyShopsStream() StreamDefinition {
	return StreamDefinition{
		ID:                ShopifyShops,
		KeyProperties:     []string{"id"},
		ReplicationMethod: ReplicationIncremental,
		ReplicationKey:    "extracted_at",
		Bookmark:          "start_date",
		Mapping: []schema.FieldMapping{
			{Source: "id", Map: "id", Type: schema.TypeInt, NotNull: true},
			{Source: "name", Map: "shop_name", Type: schema.TypeString, NotNull: true},
			{Source: "city", Map: "city", Type: schema.TypeString},
			{Source: "province", Map: "province", Type: schema.TypeString},
			{Source: "country", Map: "country", Type: schema.TypeString, NotNull: true},
			{Source: "currency", Map: "currency", Type: schema.TypeString},
			{Source: "domain", Map: "domain", Type: schema.TypeString, NotNull: true},
			{Source: "url", Map: "url", Type: schema.TypeString, NotNull: true},
			{Source: "myshopify_domain", Map: "shop_domain", Type: schema.TypeString, NotNull: true},
			{Source: "description", Map: "description", Type: schema.TypeString},
			{Source: "published_collections_count", Map: "published_collections_count", Type: schema.TypeInt},
			{Source: "published_products_count", Map: "published_products_count", Type: schema.TypeInt},
			{Source: "shop_id", Map: "shop_id", Type: schema.TypeString, NotNull: true},
			{Source: "extracted_at", Map: "extracted_at", Type: schema.TypeString, NotNull: true},
		},
	}
}

// Default returns the registry of every stream this tap can replicate.
func Default() *Registry {
	r, err := New(ShopifyShopsStream())
	if err != nil {
		panic(err)
	}
	return r
}
