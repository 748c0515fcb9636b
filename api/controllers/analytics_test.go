package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/shopkit/internal/remote"
	"github.com/angelmondragon/shopkit/pkg/enums"
	"github.com/angelmondragon/shopkit/pkg/logger"
	"github.com/angelmondragon/shopkit/pkg/models"
)

type fakeAnalyticsStore struct {
	orders   []models.Order
	users    []models.User
	products []models.Product
	err      error
}

func (f *fakeAnalyticsStore) ListOrders(context.Context) ([]models.Order, error) {
	return f.orders, f.err
}

func (f *fakeAnalyticsStore) ListUsers(context.Context) ([]models.User, error) {
	return f.users, f.err
}

func (f *fakeAnalyticsStore) ListProducts(context.Context, remote.ListParams) ([]models.Product, error) {
	return f.products, f.err
}

func fixedNow(t *testing.T, value time.Time) {
	t.Helper()
	prev := timeNowUTC
	timeNowUTC = func() time.Time { return value }
	t.Cleanup(func() { timeNowUTC = prev })
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var envelope struct {
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v (%s)", err, rec.Body.String())
	}
	return envelope.Data
}

func TestAnalyticsSeriesRevenueWeek(t *testing.T) {
	fixedNow(t, time.Date(2024, time.February, 15, 10, 0, 0, 0, time.UTC))
	store := &fakeAnalyticsStore{orders: []models.Order{
		{ID: "o1", Date: time.Date(2024, time.February, 12, 9, 0, 0, 0, time.UTC), Total: decimal.RequireFromString("150"), Status: enums.OrderStatusProcessing},
		{ID: "o2", Date: time.Date(2024, time.February, 12, 15, 0, 0, 0, time.UTC), Total: decimal.RequireFromString("50"), Status: enums.OrderStatusCompleted},
		{ID: "o3", Date: time.Date(2024, time.February, 13, 9, 0, 0, 0, time.UTC), Total: decimal.RequireFromString("999"), Status: enums.OrderStatusCancelled},
		{ID: "o4", Date: time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC), Total: decimal.RequireFromString("777"), Status: enums.OrderStatusCompleted},
	}}

	req := httptest.NewRequest(http.MethodGet, "/series?period=week&metric=revenue", nil)
	rec := httptest.NewRecorder()
	AnalyticsSeries(store, testLogger())(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}
	data := decodeData(t, rec)
	buckets, ok := data["buckets"].([]any)
	if !ok || len(buckets) != 7 {
		t.Fatalf("expected 7 buckets, got %v", data["buckets"])
	}
	monday := buckets[1].(map[string]any)
	if monday["label"] != "Mon" {
		t.Fatalf("unexpected label %v", monday["label"])
	}
	if sum, _ := monday["sum"].(float64); sum != 200 {
		t.Fatalf("cancelled and out-of-range orders must not count, got %v", monday["sum"])
	}
}

func TestAnalyticsSeriesRejectsBadInput(t *testing.T) {
	store := &fakeAnalyticsStore{}
	cases := []string{
		"/series?period=decade",
		"/series?metric=margin",
		"/series?offset=notanumber",
		"/series?offset=99",
	}
	for _, target := range cases {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		rec := httptest.NewRecorder()
		AnalyticsSeries(store, testLogger())(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", target, rec.Code)
		}
	}
}

func TestAnalyticsSummaryComparesWindows(t *testing.T) {
	fixedNow(t, time.Date(2024, time.March, 15, 10, 0, 0, 0, time.UTC))
	store := &fakeAnalyticsStore{
		orders: []models.Order{
			{ID: "o1", Date: time.Date(2024, time.March, 10, 9, 0, 0, 0, time.UTC), Total: decimal.RequireFromString("150"), Status: enums.OrderStatusCompleted},
			{ID: "o2", Date: time.Date(2024, time.February, 10, 9, 0, 0, 0, time.UTC), Total: decimal.RequireFromString("100"), Status: enums.OrderStatusCompleted},
		},
		users: []models.User{
			{ID: "u1", CreatedAt: time.Date(2024, time.March, 5, 9, 0, 0, 0, time.UTC)},
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/summary?period=month", nil)
	rec := httptest.NewRecorder()
	AnalyticsSummary(store, testLogger())(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}
	data := decodeData(t, rec)
	metrics := data["metrics"].(map[string]any)
	revenue := metrics["revenue"].(map[string]any)
	if change, _ := revenue["percentChange"].(float64); change != 50 {
		t.Fatalf("expected 50 percent revenue growth, got %v", revenue["percentChange"])
	}
	users := metrics["users"].(map[string]any)
	if change, _ := users["percentChange"].(float64); change != 100 {
		t.Fatalf("zero previous signups must read as 100, got %v", users["percentChange"])
	}
}

func TestAnalyticsTopProductsRanks(t *testing.T) {
	fixedNow(t, time.Date(2024, time.March, 15, 10, 0, 0, 0, time.UTC))
	alpha := models.Product{ID: "p1", Name: "Alpha", Price: decimal.RequireFromString("100")}
	beta := models.Product{ID: "p2", Name: "Beta", Price: decimal.RequireFromString("40")}
	store := &fakeAnalyticsStore{
		products: []models.Product{alpha, beta},
		orders: []models.Order{
			{ID: "o1", Date: time.Date(2024, time.March, 10, 9, 0, 0, 0, time.UTC), Items: []models.CartLine{
				{Product: beta, Quantity: 5},
				{Product: alpha, Quantity: 1},
			}},
			{ID: "old", Date: time.Date(2023, time.March, 10, 9, 0, 0, 0, time.UTC), Items: []models.CartLine{
				{Product: alpha, Quantity: 9},
			}},
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/top-products?period=month&limit=1", nil)
	rec := httptest.NewRecorder()
	AnalyticsTopProducts(store, testLogger(), 5)(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}
	data := decodeData(t, rec)
	products := data["products"].([]any)
	if len(products) != 1 {
		t.Fatalf("limit not applied: %v", products)
	}
	leader := products[0].(map[string]any)
	product := leader["product"].(map[string]any)
	if product["id"] != "p2" {
		t.Fatalf("expected Beta to lead on in-window revenue, got %v", product["id"])
	}
}
