package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cenkalti/backoff/v4"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Config controls how the client reaches the order service.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// Retries bounds how often read calls are repeated after a transient failure.
	Retries       uint64
	RetryInterval time.Duration
}

// Client talks to the order service. Reads retry with backoff; writes never
// retry because finalize and delete are destructive.
type Client struct {
	cfg Config
	log *zap.Logger
}

func NewClient(cfg Config, log *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 200 * time.Millisecond
	}
	if log == nil {
		log = zap.NewNop()
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{cfg: cfg, log: log}
}

// Products fetches the catalog.
func (c *Client) Products(ctx context.Context) ([]Product, error) {
	var reply productsReply
	err := c.retry(ctx, "products.list", func() error {
		reply = productsReply{}
		return c.doJSON(ctx, "products.list", fiber.Get(c.url("products")), &reply)
	})
	if err != nil {
		return nil, err
	}
	return reply.ListProduct, nil
}

// Order fetches the raw instance list for table. A table without an order,
// including one already paid or removed (404/410), yields an empty Order.
func (c *Client) Order(ctx context.Context, table string) (Order, error) {
	var reply orderReply
	err := c.retry(ctx, "order.get", func() error {
		reply = orderReply{}
		return c.doJSON(ctx, "order.get", fiber.Get(c.url("orders", "get", table)), &reply)
	})
	if IsCleared(err) {
		return Order{Name: table}, nil
	}
	if err != nil {
		return Order{}, err
	}
	if reply.Order == nil {
		return Order{Name: table}, nil
	}
	return *reply.Order, nil
}

// CreateOrder appends instances to a table order.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrder) error {
	a := fiber.Post(c.url("orders", "create")).JSON(req)
	return c.doJSON(ctx, "order.create", a, &envelope{})
}

// FinalizeOrder marks the table order as paid.
func (c *Client) FinalizeOrder(ctx context.Context, table string) error {
	return c.doJSON(ctx, "order.finalize", fiber.Patch(c.url("orders", "update", table)), &envelope{})
}

// RemoveOrder deletes the table order.
func (c *Client) RemoveOrder(ctx context.Context, table string) error {
	return c.doJSON(ctx, "order.remove", fiber.Delete(c.url("orders", "delete", table)), &envelope{})
}

// RenderInvoice asks the order service to render the table's invoice and
// returns the raw document bytes.
func (c *Client) RenderInvoice(ctx context.Context, table string, customer Customer) ([]byte, error) {
	const op = "invoice.render"
	a := fiber.Post(c.url("orders", "invoice", table)).JSON(customer)
	code, body, err := c.send(ctx, op, a)
	if err != nil {
		return nil, err
	}
	if code != fiber.StatusOK {
		return nil, rejection(op, code, body)
	}
	return body, nil
}

func (c *Client) url(parts ...string) string {
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return c.cfg.BaseURL + "/" + strings.Join(parts, "/")
}

func (c *Client) send(ctx context.Context, op string, a *fiber.Agent) (int, []byte, error) {
	if err := ctx.Err(); err != nil {
		fiber.ReleaseAgent(a)
		return 0, nil, err
	}
	timeout := c.cfg.Timeout
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); left < timeout {
			timeout = left
		}
	}
	a.Timeout(timeout)
	if err := a.Parse(); err != nil {
		fiber.ReleaseAgent(a)
		return 0, nil, fmt.Errorf("%s: %w", op, err)
	}
	code, body, errs := a.Bytes()
	if len(errs) > 0 {
		return 0, nil, fmt.Errorf("%s: %w: %v", op, ErrTransient, errors.Join(errs...))
	}
	switch code {
	case fiber.StatusBadGateway, fiber.StatusServiceUnavailable, fiber.StatusGatewayTimeout:
		return code, nil, fmt.Errorf("%s: %w: http status %d", op, ErrTransient, code)
	}
	return code, body, nil
}

// doJSON performs the request and checks the embedded status field, which is
// authoritative over the transport status.
func (c *Client) doJSON(ctx context.Context, op string, a *fiber.Agent, out interface{ status() (int, string) }) error {
	code, body, err := c.send(ctx, op, a)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return rejection(op, code, body)
	}
	if status, msg := out.status(); status != StatusOK {
		return &RemoteError{Op: op, Status: status, Message: msg}
	}
	return nil
}

func (e *envelope) status() (int, string) { return e.Status, e.Message }

func rejection(op string, code int, body []byte) error {
	var env envelope
	msg := strings.TrimSpace(string(body))
	if json.Unmarshal(body, &env) == nil && env.Message != "" {
		msg = env.Message
	}
	return &RemoteError{Op: op, Status: code, Message: truncate(msg, maxMessageRunes)}
}

func (c *Client) retry(ctx context.Context, op string, fn func() error) error {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.cfg.RetryInterval
	b := backoff.WithContext(backoff.WithMaxRetries(eb, c.cfg.Retries), ctx)
	return backoff.RetryNotify(func() error {
		err := fn()
		if err == nil || errors.Is(err, ErrTransient) {
			return err
		}
		return backoff.Permanent(err)
	}, b, func(err error, wait time.Duration) {
		c.log.Warn("retrying order service call", zap.String("op", op), zap.Duration("wait", wait), zap.Error(err))
	})
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
