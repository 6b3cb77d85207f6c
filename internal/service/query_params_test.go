package service

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestValidateQueryParamsWhitelist(t *testing.T) {
	raw := map[string]any{
		"include_analytics": "yes",
		"include_sales":     float64(1),
		"include_reviews":   "nope",
		"orders_per_page":   float64(500),
		"products_page":     "-3",
		"reviews_rating":    float64(9),
		"order_id":          "-1",
		"sales_group_by":    "Month",
		"query":             "<b>blue</b>   shirt",
		"unknown":           "x",
	}

	got := ValidateQueryParams(raw)

	want := QueryParams{
		"include_analytics": true,
		"include_sales":     true,
		"orders_per_page":   100,
		"products_page":     1,
		"reviews_rating":    5,
		"sales_group_by":    "month",
		"query":             "blue shirt",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ValidateQueryParams = %#v, want %#v", got, want)
	}
}

func TestValidateQueryParamsDropsBadValues(t *testing.T) {
	got := ValidateQueryParams(map[string]any{
		"sales_group_by":  "quarter",
		"orders_page":     "abc",
		"reviews_page":    0,
		"products_search": []string{"a"},
		"query":           "   ",
	})
	if len(got) != 0 {
		t.Fatalf("expected every value dropped, got %#v", got)
	}
}

func TestValidateQueryParamsNil(t *testing.T) {
	if got := ValidateQueryParams(nil); got == nil || len(got) != 0 {
		t.Fatalf("ValidateQueryParams(nil) = %#v", got)
	}
}

func TestValidateQueryParamsIdempotent(t *testing.T) {
	inputs := []map[string]any{
		{"include_orders": "1", "orders_page": "2.7", "orders_status": " completed "},
		{"intent_confirmed": true, "type": "search_product", "query": "red <i>hat</i>", "order_id": float64(42)},
		{"products_per_page": json.Number("0"), "reviews_rating": json.Number("3")},
	}
	for _, raw := range inputs {
		once := ValidateQueryParams(raw)
		twice := ValidateQueryParams(once)
		if !reflect.DeepEqual(once, twice) {
			t.Errorf("not idempotent: %#v -> %#v", once, twice)
		}
	}
}

func TestQueryParamsAccessors(t *testing.T) {
	q := ValidateQueryParams(map[string]any{
		"include_products": true,
		"products_page":    "4",
		"query":            "lamp",
	})
	if !q.Bool(ParamIncludeProducts) || q.Bool(ParamIncludeOrders) {
		t.Fatalf("Bool accessor wrong: %#v", q)
	}
	if q.Int(ParamProductsPage, 1) != 4 || q.Int(ParamOrdersPage, 1) != 1 {
		t.Fatalf("Int accessor wrong: %#v", q)
	}
	if q.String(ParamQuery) != "lamp" || q.String(ParamProductType) != "" {
		t.Fatalf("String accessor wrong: %#v", q)
	}

	c := q.Clone()
	c[ParamQuery] = "desk"
	if q.String(ParamQuery) != "lamp" {
		t.Fatal("Clone shares storage")
	}
}
