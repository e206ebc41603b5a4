package cartclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sasusavage/perfumeshop/internal/badge"
	"github.com/sasusavage/perfumeshop/internal/domain"
	"github.com/sasusavage/perfumeshop/internal/notify"
	"github.com/sasusavage/perfumeshop/pkg/circuitbreaker"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const (
	cartPath   = "/api/cart"
	addPath    = "/api/cart/add"
	updatePath = "/api/cart/update"
	removePath = "/api/cart/remove"
	clearPath  = "/api/cart/clear"

	maxResponseSize = 1 << 20 // 1MB
)

// Op names a cart mutation.
type Op string

const (
	OpAdd    Op = "add"
	OpUpdate Op = "update"
	OpRemove Op = "remove"
	OpClear  Op = "clear"
)

// Notifier shows user feedback. *notify.Notifier satisfies it.
type Notifier interface {
	Notify(message string, kind notify.Kind, duration time.Duration)
}

// BadgeSink receives item counts. *badge.Badge satisfies it.
type BadgeSink interface {
	Ticket() uint64
	Apply(ticket uint64, count int) bool
}

// MutateHook runs after every successful mutation with the cart the server returned.
type MutateHook func(ctx context.Context, op Op, cart domain.Cart)

type MutationResponse struct {
	Message string      `json:"message,omitempty"`
	Cart    domain.Cart `json:"cart"`
}

type mutationBody struct {
	Message string       `json:"message"`
	Cart    *domain.Cart `json:"cart"`
}

type addItemRequest struct {
	ID       int64        `json:"id"`
	Name     string       `json:"name"`
	Price    domain.Money `json:"price"`
	Image    string       `json:"image"`
	Quantity int          `json:"quantity"`
}

type updateItemRequest struct {
	ID       int64 `json:"id"`
	Quantity int   `json:"quantity"`
}

type removeItemRequest struct {
	ID int64 `json:"id"`
}

// Client talks to the session cart API and keeps the badge in sync with it.
// It never changes local state before the server confirms.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	breaker       *circuitbreaker.Settings
	badge         BadgeSink
	notifier      Notifier
	toastDuration time.Duration
	hooks         []MutateHook
	logger        *zap.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithBreaker wraps the HTTP transport in a circuit breaker.
func WithBreaker(s circuitbreaker.Settings) Option {
	return func(c *Client) { c.breaker = &s }
}

func WithBadge(b BadgeSink) Option {
	return func(c *Client) {
		if b != nil {
			c.badge = b
		}
	}
}

func WithNotifier(n Notifier) Option {
	return func(c *Client) { c.notifier = n }
}

func WithToastDuration(d time.Duration) Option {
	return func(c *Client) { c.toastDuration = d }
}

func WithMutateHook(h MutateHook) Option {
	return func(c *Client) {
		if h != nil {
			c.hooks = append(c.hooks, h)
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   30 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		badge:  badge.New(nil),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.breaker != nil {
		hc := *c.httpClient
		hc.Transport = circuitbreaker.NewTransport(hc.Transport, *c.breaker, c.logger)
		c.httpClient = &hc
	}
	return c
}

// OnInit refreshes the badge when the host starts.
func (c *Client) OnInit(ctx context.Context) {
	c.FetchCartCount(ctx)
}

// FetchCartCount refreshes the badge from the server cart. Failures are logged
// and the badge keeps its previous value.
func (c *Client) FetchCartCount(ctx context.Context) {
	ticket := c.badge.Ticket()

	var cart domain.Cart
	if err := c.do(ctx, http.MethodGet, cartPath, nil, &cart); err != nil {
		c.logger.Warn("failed to load cart", zap.Error(err))
		return
	}
	c.badge.Apply(ticket, cart.ItemCount())
}

// FetchCart returns the server cart, or an empty cart if it cannot be loaded.
func (c *Client) FetchCart(ctx context.Context) domain.Cart {
	var cart domain.Cart
	if err := c.do(ctx, http.MethodGet, cartPath, nil, &cart); err != nil {
		c.logger.Error("failed to get cart", zap.Error(err))
		return domain.Cart{}
	}
	if cart == nil {
		return domain.Cart{}
	}
	return cart
}

// AddItem adds one unit of p.
func (c *Client) AddItem(ctx context.Context, p domain.Product) (*MutationResponse, error) {
	resp, err := c.mutate(ctx, OpAdd, addPath, addItemRequest{
		ID:       p.ID,
		Name:     p.Name,
		Price:    p.Price,
		Image:    p.ImageURL,
		Quantity: 1,
	})
	if err != nil {
		c.notify("Failed to add item to cart", notify.KindError)
		return nil, fmt.Errorf("add item %d: %w", p.ID, err)
	}

	c.notify(fmt.Sprintf("%s added to cart", p.Name), notify.KindSuccess)
	return resp, nil
}

// SetItemQuantity sets the quantity of an item. The server removes the item
// when quantity is not positive.
func (c *Client) SetItemQuantity(ctx context.Context, id int64, quantity int) (*MutationResponse, error) {
	resp, err := c.mutate(ctx, OpUpdate, updatePath, updateItemRequest{ID: id, Quantity: quantity})
	if err != nil {
		c.notify("Failed to update cart", notify.KindError)
		return nil, fmt.Errorf("update item %d: %w", id, err)
	}
	return resp, nil
}

func (c *Client) RemoveItem(ctx context.Context, id int64) (*MutationResponse, error) {
	resp, err := c.mutate(ctx, OpRemove, removePath, removeItemRequest{ID: id})
	if err != nil {
		c.notify("Failed to remove item", notify.KindError)
		return nil, fmt.Errorf("remove item %d: %w", id, err)
	}
	return resp, nil
}

// ClearCart empties the cart. On success the badge goes to zero whatever the
// body contains, as long as it is JSON.
func (c *Client) ClearCart(ctx context.Context) (json.RawMessage, error) {
	ticket := c.badge.Ticket()

	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPost, clearPath, nil, &raw); err != nil {
		c.logger.Warn("cart request failed", zap.String("op", string(OpClear)), zap.Error(err))
		c.notify("Failed to clear cart", notify.KindError)
		return nil, fmt.Errorf("clear cart: %w", err)
	}

	c.badge.Apply(ticket, 0)
	c.runHooks(ctx, OpClear, domain.Cart{})
	return raw, nil
}

func (c *Client) mutate(ctx context.Context, op Op, path string, body any) (*MutationResponse, error) {
	ticket := c.badge.Ticket()

	var out mutationBody
	if err := c.do(ctx, http.MethodPost, path, body, &out); err != nil {
		c.logger.Warn("cart request failed", zap.String("op", string(op)), zap.Error(err))
		return nil, err
	}
	if out.Cart == nil {
		err := fmt.Errorf("%w: missing cart", ErrMalformedResponse)
		c.logger.Warn("cart request failed", zap.String("op", string(op)), zap.Error(err))
		return nil, err
	}

	cart := *out.Cart
	c.badge.Apply(ticket, cart.ItemCount())
	c.runHooks(ctx, op, cart)

	return &MutationResponse{Message: out.Message, Cart: cart}, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

func (c *Client) notify(message string, kind notify.Kind) {
	if c.notifier == nil {
		return
	}
	c.notifier.Notify(message, kind, c.toastDuration)
}

func (c *Client) runHooks(ctx context.Context, op Op, cart domain.Cart) {
	for _, h := range c.hooks {
		h(ctx, op, cart)
	}
}
