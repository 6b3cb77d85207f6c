package marketplace

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"marketplace-chatbot-server/internal/config"
	"marketplace-chatbot-server/internal/model"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.MarketplaceConfig{BaseURL: srv.URL + "/", APIToken: "secret", Timeout: time.Second})
}

func TestGetAccountSendsTokenAndDecodes(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chatbot/v1/users/7" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("Authorization = %q", got)
		}
		w.Write([]byte(`{"id":7,"display_name":"Ann","email":"ann@example.com","is_seller":true}`))
	})

	acc, err := c.GetAccount(context.Background(), 7)
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	if acc == nil || acc.DisplayName != "Ann" || !acc.IsSeller {
		t.Fatalf("unexpected account %+v", acc)
	}
}

func TestNotFoundReturnsNil(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	ctx := context.Background()
	if acc, err := c.GetAccount(ctx, 1); err != nil || acc != nil {
		t.Fatalf("GetAccount = %v, %v", acc, err)
	}
	if order, err := c.GetOrder(ctx, 1); err != nil || order != nil {
		t.Fatalf("GetOrder = %v, %v", order, err)
	}
	if info, err := c.GetStoreInfo(ctx, 1); err != nil || info != nil {
		t.Fatalf("GetStoreInfo = %v, %v", info, err)
	}
}

func TestServerErrorIsReturned(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	if _, err := c.GetRecentOrders(context.Background(), model.OrderFilter{CustomerID: 3, Limit: 5}); err == nil {
		t.Fatal("expected error on 502")
	}
}

func TestMalformedBodyIsError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	})

	if _, err := c.GetDashboardStats(context.Background(), 2); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestSearchProductsQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chatbot/v1/products" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("search") != "blue shirt" || q.Get("vendor_id") != "9" || q.Get("per_page") != "10" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		if q.Has("category") {
			t.Errorf("empty category should not be sent")
		}
		w.Write([]byte(`[{"id":1,"name":"Blue Shirt","price":"19.99"}]`))
	})

	products, err := c.SearchProducts(context.Background(), model.ProductSearch{Query: "blue shirt", VendorID: 9, Page: 1, PerPage: 10})
	if err != nil {
		t.Fatalf("SearchProducts: %v", err)
	}
	if len(products) != 1 || products[0].Name != "Blue Shirt" {
		t.Fatalf("unexpected products %+v", products)
	}
}

func TestGeographicAnalyticsAddsDimension(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chatbot/v1/stores/4/analytics" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("dimension") != "country" {
			t.Errorf("missing dimension in %s", r.URL.RawQuery)
		}
		w.Write([]byte(`[{"dimensions":["US"],"metrics":["12"]}]`))
	})

	rows, err := c.GetAnalytics(context.Background(), 4, model.AnalyticsQuery{StartDate: "30daysAgo", EndDate: "today", Geographic: true})
	if err != nil {
		t.Fatalf("GetAnalytics: %v", err)
	}
	if len(rows) != 1 || rows[0].Dimensions[0] != "US" {
		t.Fatalf("unexpected rows %+v", rows)
	}
}
