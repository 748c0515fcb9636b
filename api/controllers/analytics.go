package controllers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/shopkit/api/responses"
	"github.com/angelmondragon/shopkit/api/validators"
	"github.com/angelmondragon/shopkit/internal/analytics"
	"github.com/angelmondragon/shopkit/internal/remote"
	"github.com/angelmondragon/shopkit/pkg/enums"
	pkgerrors "github.com/angelmondragon/shopkit/pkg/errors"
	"github.com/angelmondragon/shopkit/pkg/logger"
	"github.com/angelmondragon/shopkit/pkg/models"
)

var timeNowUTC = func() time.Time {
	return time.Now().UTC()
}

type analyticsStore interface {
	ListOrders(ctx context.Context) ([]models.Order, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	ListProducts(ctx context.Context, params remote.ListParams) ([]models.Product, error)
}

const (
	metricRevenue = "revenue"
	metricOrders  = "orders"
	metricUsers   = "users"
)

// AnalyticsSeries serves one chart-ready bucket series for the dashboard.
// Query: period=week|month|quarter|year, metric=revenue|orders|users,
// offset=N windows back.
func AnalyticsSeries(store analyticsStore, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		period, err := resolvePeriod(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		offset, err := validators.ParseQueryInt(r, "offset", 0, 0, 24)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		metric, err := resolveMetric(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		window := analytics.DateRange(timeNowUTC(), period, offset)
		samples, err := collectSamples(ctx, store, metric)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"period":  period.String(),
			"metric":  metric,
			"from":    window.Start.Format(time.DateOnly),
			"to":      window.End.Format(time.DateOnly),
			"buckets": analytics.BucketSeries(samples, period, window),
		})
	}
}

type metricSummary struct {
	Current       decimal.Decimal `json:"current"`
	Previous      decimal.Decimal `json:"previous"`
	PercentChange decimal.Decimal `json:"percentChange"`
}

// AnalyticsSummary compares the current window with the adjacent previous one
// for every metric at once, the dashboard's headline cards.
func AnalyticsSummary(store analyticsStore, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		period, err := resolvePeriod(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		window := analytics.DateRange(timeNowUTC(), period, 0)
		previous := window.Previous(period)

		summary := map[string]metricSummary{}
		for _, metric := range []string{metricRevenue, metricOrders, metricUsers} {
			samples, err := collectSamples(ctx, store, metric)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			current := windowTotal(samples, metric, window)
			prev := windowTotal(samples, metric, previous)
			summary[metric] = metricSummary{
				Current:       current,
				Previous:      prev,
				PercentChange: analytics.PercentChange(current, prev),
			}
		}

		responses.WriteSuccess(w, map[string]any{
			"period":  period.String(),
			"from":    window.Start.Format(time.DateOnly),
			"to":      window.End.Format(time.DateOnly),
			"metrics": summary,
		})
	}
}

// AnalyticsTopProducts ranks catalog products by revenue inside the window.
func AnalyticsTopProducts(store analyticsStore, logg *logger.Logger, defaultLimit int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		period, err := resolvePeriod(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", defaultLimit, 1, 50)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		window := analytics.DateRange(timeNowUTC(), period, 0)

		orders, err := store.ListOrders(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		inWindow := orders[:0]
		for _, order := range orders {
			if window.Contains(order.Date) {
				inWindow = append(inWindow, order)
			}
		}

		products, err := store.ListProducts(ctx, remote.ListParams{})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"period":   period.String(),
			"from":     window.Start.Format(time.DateOnly),
			"to":       window.End.Format(time.DateOnly),
			"products": analytics.TopProducts(products, inWindow, limit),
		})
	}
}

func resolvePeriod(r *http.Request) (enums.ReportPeriod, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("period"))
	if raw == "" {
		return enums.ReportPeriodWeek, nil
	}
	period, err := enums.ParseReportPeriod(raw)
	if err != nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "invalid period").WithDetails(map[string]any{"field": "period"})
	}
	return period, nil
}

func resolveMetric(r *http.Request) (string, error) {
	raw := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("metric")))
	switch raw {
	case "", metricRevenue:
		return metricRevenue, nil
	case metricOrders, metricUsers:
		return raw, nil
	}
	return "", pkgerrors.New(pkgerrors.CodeValidation, "invalid metric").WithDetails(map[string]any{"field": "metric"})
}

// collectSamples turns store documents into dated series samples. Cancelled
// orders stay in the order-volume series but never contribute revenue.
func collectSamples(ctx context.Context, store analyticsStore, metric string) ([]analytics.Sample, error) {
	switch metric {
	case metricUsers:
		users, err := store.ListUsers(ctx)
		if err != nil {
			return nil, err
		}
		samples := make([]analytics.Sample, 0, len(users))
		for _, user := range users {
			samples = append(samples, analytics.Sample{Date: user.CreatedAt, Value: decimal.NewFromInt(1)})
		}
		return samples, nil
	default:
		orders, err := store.ListOrders(ctx)
		if err != nil {
			return nil, err
		}
		samples := make([]analytics.Sample, 0, len(orders))
		for _, order := range orders {
			value := order.Total
			if metric == metricOrders {
				value = decimal.NewFromInt(1)
			} else if order.Status == enums.OrderStatusCancelled {
				continue
			}
			samples = append(samples, analytics.Sample{Date: order.Date, Value: value})
		}
		return samples, nil
	}
}

func windowTotal(samples []analytics.Sample, metric string, window analytics.Range) decimal.Decimal {
	total := decimal.Zero
	for _, s := range samples {
		if !window.Contains(s.Date) {
			continue
		}
		if metric == metricRevenue {
			total = total.Add(s.Value)
			continue
		}
		total = total.Add(decimal.NewFromInt(1))
	}
	return total
}
