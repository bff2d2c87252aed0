// Package aggregate turns fetched metadata documents into typed rows and
// computes the derived shop_id and extracted_at columns.
package aggregate

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/spf13/cast"

	"github.com/glassflow/shopify-shops-etl/internal/core/fetch"
)

// ShopIDPrefix namespaces the numeric shop id. Downstream joins key on it.
const ShopIDPrefix = "gid://partners/Shop/"

var (
	errNotIntegral = errors.New("not an integral number")
	errOutOfRange  = errors.New("out of int64 range")
)

// NumericError reports an identifier or count field that is not numeric.
// It aborts the run.
type NumericError struct {
	Domain string
	Field  string
	Value  any
	Err    error
}

func (e *NumericError) Error() string {
	return fmt.Sprintf("domain %s: field %s: %v is not numeric: %v", e.Domain, e.Field, e.Value, e.Err)
}

func (e *NumericError) Unwrap() error {
	return e.Err
}

// AggregatedRow is one shop after column pruning. Nil string fields were
// null or absent in the document.
type AggregatedRow struct {
	ID                        int64
	Name                      *string
	City                      *string
	Province                  *string
	Country                   *string
	Currency                  *string
	Domain                    *string
	URL                       *string
	MyshopifyDomain           *string
	Description               *string
	PublishedCollectionsCount int64
	PublishedProductsCount    int64
	ShopID                    string
	ExtractedAt               string
}

func ShopID(id int64) string {
	return ShopIDPrefix + strconv.FormatInt(id, 10)
}

// Values exposes the row under its raw column names for the cleaner.
func (r AggregatedRow) Values() map[string]any {
	return map[string]any{
		"id":                          r.ID,
		"name":                        deref(r.Name),
		"city":                        deref(r.City),
		"province":                    deref(r.Province),
		"country":                     deref(r.Country),
		"currency":                    deref(r.Currency),
		"domain":                      deref(r.Domain),
		"url":                         deref(r.URL),
		"myshopify_domain":            deref(r.MyshopifyDomain),
		"description":                 deref(r.Description),
		"published_collections_count": r.PublishedCollectionsCount,
		"published_products_count":    r.PublishedProductsCount,
		"shop_id":                     r.ShopID,
		"extracted_at":                r.ExtractedAt,
	}
}

// Aggregate builds one row per response. All rows share extractedAt. The
// first non-numeric id or count fails the whole batch and no rows are returned.
func Aggregate(responses []fetch.Response, extractedAt string) ([]AggregatedRow, error) {
	rows := make([]AggregatedRow, 0, len(responses))

	for _, res := range responses {
		row, err := newRow(res, extractedAt)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}

	return rows, nil
}

func newRow(res fetch.Response, extractedAt string) (AggregatedRow, error) {
	b := res.Body

	id, err := toInt(b["id"], false)
	if err != nil {
		return AggregatedRow{}, &NumericError{Domain: res.Domain, Field: "id", Value: b["id"], Err: err}
	}

	collections, err := toInt(b["published_collections_count"], true)
	if err != nil {
		return AggregatedRow{}, &NumericError{
			Domain: res.Domain,
			Field:  "published_collections_count",
			Value:  b["published_collections_count"],
			Err:    err,
		}
	}

	products, err := toInt(b["published_products_count"], true)
	if err != nil {
		return AggregatedRow{}, &NumericError{
			Domain: res.Domain,
			Field:  "published_products_count",
			Value:  b["published_products_count"],
			Err:    err,
		}
	}

	return AggregatedRow{
		ID:                        id,
		Name:                      text(b["name"]),
		City:                      text(b["city"]),
		Province:                  text(b["province"]),
		Country:                   text(b["country"]),
		Currency:                  text(b["currency"]),
		Domain:                    text(b["domain"]),
		URL:                       text(b["url"]),
		MyshopifyDomain:           text(b["myshopify_domain"]),
		Description:               text(b["description"]),
		PublishedCollectionsCount: collections,
		PublishedProductsCount:    products,
		ShopID:                    ShopID(id),
		ExtractedAt:               extractedAt,
	}, nil
}

func toInt(v any, nullAsZero bool) (int64, error) {
	switch val := v.(type) {
	case nil:
		if nullAsZero {
			return 0, nil
		}
		return 0, fmt.Errorf("value is null")
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i, nil
		}
		f, err := val.Float64()
		if err != nil {
			return 0, fmt.Errorf("parse number: %w", err)
		}
		return integral(f)
	case float64:
		return integral(val)
	case float32:
		return integral(float64(val))
	case bool:
		return 0, fmt.Errorf("unexpected boolean")
	default:
		i, err := cast.ToInt64E(val)
		if err != nil {
			return 0, fmt.Errorf("cast to int64: %w", err)
		}
		return i, nil
	}
}

func integral(f float64) (int64, error) {
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, errNotIntegral
	}
	// float64(math.MaxInt64) rounds up to 2^63
	if f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, errOutOfRange
	}
	return int64(f), nil
}

func text(v any) *string {
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		return &val
	default:
		s := fmt.Sprint(val)
		return &s
	}
}

func deref(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
