package testutils

// ShopPayload returns a genuine 15-key storefront metadata document.
func ShopPayload(id int64) map[string]any {
	return map[string]any{
		"id":                              id,
		"name":                            "Shop A",
		"city":                            "Amsterdam",
		"province":                        "North Holland",
		"country":                         "NL",
		"currency":                        "EUR",
		"domain":                          "shop-a.com",
		"url":                             "https://shop-a.com",
		"myshopify_domain":                "shop-a.myshopify.com",
		"description":                     "Everything for your garden",
		"ships_to_countries":              []any{"NL", "BE", "DE"},
		"money_format":                    "€{{amount}}",
		"published_collections_count":     4,
		"published_products_count":        120,
		"shopify_pay_enabled_card_brands": []any{"visa", "master"},
	}
}

// ErrorPayload is the minimal body a closed storefront answers with.
func ErrorPayload() map[string]any {
	return map[string]any{
		"errors": "Not Found",
		"status": 404,
	}
}
