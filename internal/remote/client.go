package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/angelmondragon/shopkit/pkg/config"
	pkgerrors "github.com/angelmondragon/shopkit/pkg/errors"
	"github.com/angelmondragon/shopkit/pkg/logger"
	"github.com/angelmondragon/shopkit/pkg/metrics"
	"github.com/angelmondragon/shopkit/pkg/models"
)

var (
	errBaseURLRequired = errors.New("remote base url is required")
	errLoggerRequired  = errors.New("remote logger is required")
)

// Client wraps the flat JSON document store with centralized logging,
// error mapping, redaction, and metrics. The store has CRUD-per-resource
// semantics: no joins, no transactions, no server-side validation.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     *logger.Logger
	metrics    *metrics.RemoteMetrics
}

// NewClient validates the configuration and builds the store client.
func NewClient(cfg config.RemoteConfig, logg *logger.Logger, collector *metrics.RemoteMetrics) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	raw := strings.TrimSpace(cfg.BaseURL)
	if raw == "" {
		return nil, errBaseURLRequired
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse remote base url: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL:    base,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logg,
		metrics:    collector,
	}, nil
}

// FindUsersByEmail queries the user collection by email equality. The caller
// verifies credentials locally; the password never appears in the URL.
func (c *Client) FindUsersByEmail(ctx context.Context, email string) ([]models.User, error) {
	query := url.Values{"email": {email}}
	var users []models.User
	if err := c.do(ctx, http.MethodGet, "users", "", query, nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// CreateUser stores a new user document; the store assigns the id.
func (c *Client) CreateUser(ctx context.Context, user models.User) (*models.User, error) {
	var created models.User
	if err := c.do(ctx, http.MethodPost, "users", "", nil, user, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// PatchUser merges the given fields into the user document and returns the
// store's full merged representation.
func (c *Client) PatchUser(ctx context.Context, id string, patch map[string]any) (*models.User, error) {
	var updated models.User
	if err := c.do(ctx, http.MethodPatch, "users", id, nil, patch, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// GetUser fetches a single user document.
func (c *Client) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := c.do(ctx, http.MethodGet, "users", id, nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListUsers fetches the full user collection (admin analytics input).
func (c *Client) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := c.do(ctx, http.MethodGet, "users", "", nil, nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// ListOrdersByUser fetches every order belonging to the given user.
func (c *Client) ListOrdersByUser(ctx context.Context, userID string) ([]models.Order, error) {
	query := url.Values{"userId": {userID}}
	var orders []models.Order
	if err := c.do(ctx, http.MethodGet, "orders", "", query, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// ListOrders fetches the full order collection (admin analytics input).
func (c *Client) ListOrders(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	if err := c.do(ctx, http.MethodGet, "orders", "", nil, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// CreateOrder stores a new order; the store assigns the id.
func (c *Client) CreateOrder(ctx context.Context, order models.Order) (*models.Order, error) {
	var created models.Order
	if err := c.do(ctx, http.MethodPost, "orders", "", nil, order, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// PatchOrder merges fields into an order (status transitions only by contract).
func (c *Client) PatchOrder(ctx context.Context, id string, patch map[string]any) (*models.Order, error) {
	var updated models.Order
	if err := c.do(ctx, http.MethodPatch, "orders", id, nil, patch, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteOrder hard-deletes an order document. There is no recovery path.
func (c *Client) DeleteOrder(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "orders", id, nil, nil, nil)
}

// ListProducts fetches a catalog page.
func (c *Client) ListProducts(ctx context.Context, params ListParams) ([]models.Product, error) {
	var products []models.Product
	if err := c.do(ctx, http.MethodGet, "products", "", params.query(), nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// Ping checks the store is reachable with the cheapest possible read.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "products", "", url.Values{"_limit": {"1"}}, nil, nil)
}

// GetProduct fetches a single catalog entry.
func (c *Client) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	if err := c.do(ctx, http.MethodGet, "products", id, nil, nil, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

func (c *Client) do(ctx context.Context, method, resource, id string, query url.Values, body, out any) error {
	target := *c.baseURL
	target.Path = joinPath(target.Path, resource)
	if id != "" {
		target.Path = joinPath(target.Path, id)
	}
	if len(query) > 0 {
		target.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode request body")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.log(ctx, "request", resource, method, map[string]any{"id": id, "query": redactQuery(query)})

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.Observe(resource, method, time.Since(start), err)
	if err != nil {
		c.log(ctx, "error", resource, method, map[string]any{"error": err.Error()})
		return pkgerrors.Wrap(pkgerrors.CodeRemote, err, fmt.Sprintf("%s %s failed", method, resource))
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode >= 400 {
		err := fmt.Errorf("%s %s returned %d", method, resource, resp.StatusCode)
		c.log(ctx, "error", resource, method, map[string]any{"status": resp.StatusCode})
		return pkgerrors.Wrap(codeForStatus(resp.StatusCode), err, fmt.Sprintf("%s %s failed", method, resource))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			c.log(ctx, "error", resource, method, map[string]any{"error": err.Error()})
			return pkgerrors.Wrap(pkgerrors.CodeRemote, err, fmt.Sprintf("decode %s response", resource))
		}
	}

	c.log(ctx, "response", resource, method, map[string]any{"status": resp.StatusCode})
	return nil
}

func (c *Client) log(ctx context.Context, phase, resource, method string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{
		"resource": resource,
		"method":   method,
		"phase":    phase,
	}
	for k, v := range fields {
		logFields[k] = v
	}
	ctx = c.logger.WithFields(ctx, logFields)
	switch phase {
	case "error":
		c.logger.Error(ctx, fmt.Sprintf("remote %s %s", method, resource), errors.New(fmt.Sprint(fields["error"])))
	default:
		c.logger.Debug(ctx, fmt.Sprintf("remote %s", phase))
	}
}

func redactQuery(query url.Values) string {
	if len(query) == 0 {
		return ""
	}
	clean := url.Values{}
	for key, vals := range query {
		lower := strings.ToLower(key)
		if strings.Contains(lower, "password") || strings.Contains(lower, "email") || strings.Contains(lower, "token") {
			clean.Set(key, "[REDACTED]")
			continue
		}
		clean[key] = vals
	}
	return clean.Encode()
}

func codeForStatus(status int) pkgerrors.Code {
	switch status {
	case http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case http.StatusBadRequest:
		return pkgerrors.CodeValidation
	default:
		return pkgerrors.CodeRemote
	}
}

func joinPath(base, elem string) string {
	base = strings.TrimSuffix(base, "/")
	return base + "/" + strings.TrimPrefix(elem, "/")
}
