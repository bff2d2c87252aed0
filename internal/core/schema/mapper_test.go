package schema

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToTypeOrNull(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		dataType DataType
		nullable bool
		want     any
	}{
		{name: "empty string nullable", value: "", dataType: TypeString, nullable: true, want: nil},
		{name: "empty string kept", value: "", dataType: TypeString, nullable: false, want: ""},
		{name: "empty slice nullable", value: []any{}, nullable: true, want: nil},
		{name: "empty map nullable", value: map[string]any{}, nullable: true, want: nil},
		{name: "nil nullable", value: nil, dataType: TypeInt, nullable: true, want: nil},
		{name: "nil kept", value: nil, dataType: TypeInt, nullable: false, want: nil},
		{name: "zero is empty when nullable", value: int64(0), dataType: TypeInt, nullable: true, want: nil},
		{name: "zero kept when not nullable", value: int64(0), dataType: TypeInt, nullable: false, want: int64(0)},
		{name: "false is empty when nullable", value: false, dataType: TypeBool, nullable: true, want: nil},
		{name: "string to int", value: "5", dataType: TypeInt, nullable: true, want: int64(5)},
		{name: "padded string to int", value: " 42 ", dataType: TypeInt, nullable: true, want: int64(42)},
		{name: "float to int truncates", value: 5.9, dataType: TypeInt, nullable: true, want: int64(5)},
		{name: "json number to int", value: json.Number("123456789012"), dataType: TypeInt, nullable: true, want: int64(123456789012)},
		{name: "int to string", value: int64(7), dataType: TypeString, nullable: true, want: "7"},
		{name: "string to float", value: "1.5", dataType: TypeFloat, nullable: true, want: 1.5},
		{name: "string to bool", value: "true", dataType: TypeBool, nullable: true, want: true},
		{name: "untyped passes through", value: "x", dataType: TypeNone, nullable: true, want: "x"},
		{name: "untyped slice passes through", value: []any{"visa"}, dataType: TypeNone, nullable: true, want: []any{"visa"}},
		{name: "legacy timestamp to datetime", value: "2022-03-04 10:05:03 CET", dataType: TypeDateTime, nullable: true, want: "2022-03-04T09:05:03Z"},
		{name: "time to datetime", value: time.Date(2022, 3, 4, 9, 5, 3, 0, time.UTC), dataType: TypeDateTime, nullable: true, want: "2022-03-04T09:05:03Z"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToTypeOrNull(tt.value, tt.dataType, tt.nullable)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestToTypeOrNull_Idempotent(t *testing.T) {
	inputs := []any{"", []any{}, map[string]any{}, 0, nil, "5"}

	for _, nullable := range []bool{true, false} {
		for _, in := range inputs {
			once, err := ToTypeOrNull(in, TypeInt, nullable)
			require.NoError(t, err)

			twice, err := ToTypeOrNull(once, TypeInt, nullable)
			require.NoError(t, err)

			assert.Equal(t, once, twice, "input %#v nullable=%v", in, nullable)
		}
	}
}

func TestToTypeOrNull_ConversionError(t *testing.T) {
	got, err := ToTypeOrNull("abc", TypeInt, true)
	require.Error(t, err)
	assert.Nil(t, got)

	var convErr *ConversionError
	require.ErrorAs(t, err, &convErr)
	assert.Equal(t, "abc", convErr.Value)
	assert.Equal(t, TypeInt, convErr.Type)
	assert.Contains(t, err.Error(), "abc")
	assert.Contains(t, err.Error(), "int")
	assert.True(t, IsConversionErr(err))
}

func TestToTypeOrNull_UnsupportedType(t *testing.T) {
	_, err := ToTypeOrNull("abc", DataType("decimal"), true)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedType))
}

func shopRow() map[string]any {
	return map[string]any{
		"id":                          int64(123),
		"name":                        "Shop A",
		"city":                        "",
		"province":                    "Noord-Holland",
		"country":                     "NL",
		"currency":                    "EUR",
		"domain":                      "shop-a.com",
		"url":                         "https://shop-a.com",
		"myshopify_domain":            "shop-a.myshopify.com",
		"description":                 "",
		"published_collections_count": int64(0),
		"published_products_count":    int64(12),
		"shop_id":                     "gid://partners/Shop/123",
		"extracted_at":                "2022-03-04T09:05:03Z",
	}
}

func TestCleanRow(t *testing.T) {
	mapping := []FieldMapping{
		{Source: "id", Type: TypeInt, NotNull: true},
		{Source: "name", Map: "shop_name", Type: TypeString, NotNull: true},
		{Source: "city", Map: "city", Type: TypeString},
		{Source: "published_collections_count", Type: TypeInt},
		{Source: "published_products_count", Type: TypeInt},
		{Source: "myshopify_domain", Map: "shop_domain", NotNull: true},
	}

	cleaned, err := CleanRow(shopRow(), mapping)
	require.NoError(t, err)

	assert.Equal(t, Record{
		"id":                          int64(123),
		"shop_name":                   "Shop A",
		"city":                        nil,
		"published_collections_count": nil,
		"published_products_count":    int64(12),
		"shop_domain":                 "shop-a.myshopify.com",
	}, cleaned)
}

func TestCleanRow_KeySetEqualsTargets(t *testing.T) {
	mapping := []FieldMapping{
		{Source: "id", NotNull: true},
		{Source: "name", Map: "shop_name"},
		{Source: "description"},
	}

	cleaned, err := CleanRow(shopRow(), mapping)
	require.NoError(t, err)

	keys := make([]string, 0, len(cleaned))
	for k := range cleaned {
		keys = append(keys, k)
	}
	assert.ElementsMatch(t, Targets(mapping), keys)
	assert.NotContains(t, cleaned, "name")
	assert.NotContains(t, cleaned, "city")
}

func TestCleanRow_CityNullability(t *testing.T) {
	t.Run("nullable city becomes nil", func(t *testing.T) {
		cleaned, err := CleanRow(shopRow(), []FieldMapping{{Source: "city", Map: "city"}})
		require.NoError(t, err)
		assert.Contains(t, cleaned, "city")
		assert.Nil(t, cleaned["city"])
	})

	t.Run("non nullable city stays empty string", func(t *testing.T) {
		cleaned, err := CleanRow(shopRow(), []FieldMapping{{Source: "city", Map: "city", NotNull: true}})
		require.NoError(t, err)
		assert.Equal(t, "", cleaned["city"])
	})
}

func TestCleanRow_MissingField(t *testing.T) {
	_, err := CleanRow(shopRow(), []FieldMapping{{Source: "shopify_pay_enabled_card_brands"}})
	require.Error(t, err)
	assert.True(t, IsMissingFieldErr(err))
	assert.Contains(t, err.Error(), "shopify_pay_enabled_card_brands")
}

func TestCleanRow_ConversionFailureIsFatal(t *testing.T) {
	row := shopRow()
	row["published_products_count"] = "many"

	cleaned, err := CleanRow(row, []FieldMapping{
		{Source: "id", Type: TypeInt},
		{Source: "published_products_count", Type: TypeInt},
	})
	require.Error(t, err)
	assert.Nil(t, cleaned, "no partial record")
	assert.True(t, IsConversionErr(err))
}

func TestFieldMapping_Target(t *testing.T) {
	assert.Equal(t, "id", FieldMapping{Source: "id"}.Target())
	assert.Equal(t, "shop_name", FieldMapping{Source: "name", Map: "shop_name"}.Target())
}

func TestToTypeOrNull_IntOutOfRange(t *testing.T) {
	tests := []struct {
		name  string
		value any
	}{
		{name: "json number exponent", value: json.Number("1e20")},
		{name: "json number digits", value: json.Number("100000000000000000000")},
		{name: "just above max", value: json.Number("9223372036854775808")},
		{name: "negative", value: json.Number("-1e19")},
		{name: "float", value: 1e20},
		{name: "float32", value: float32(1e20)},
		{name: "uint64", value: uint64(math.MaxUint64)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToTypeOrNull(tt.value, TypeInt, true)
			require.Error(t, err)
			assert.Nil(t, got)
			assert.True(t, IsConversionErr(err))
		})
	}

	t.Run("bounds convert", func(t *testing.T) {
		got, err := ToTypeOrNull(json.Number("9223372036854775807"), TypeInt, true)
		require.NoError(t, err)
		assert.Equal(t, int64(math.MaxInt64), got)

		got, err = ToTypeOrNull(json.Number("-9223372036854775808"), TypeInt, true)
		require.NoError(t, err)
		assert.Equal(t, int64(math.MinInt64), got)
	})
}
