// Package catalog talks to the storefront's stock and product endpoints.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"storefront-cart/metrics"
	models "storefront-cart/model"
)

// ErrNotFound matches an APIError with status 404.
var ErrNotFound = errors.New("catalog: not found")

// APIError is a non-2xx response from the catalog API.
type APIError struct {
	StatusCode int
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("catalog API error: status=%d body=%s", e.StatusCode, strings.TrimSpace(string(e.Body)))
}

func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// Options tunes the client. Zero values fall back to defaults.
type Options struct {
	Timeout    time.Duration
	MaxRetries int
	BackoffMin time.Duration
	BackoffMax time.Duration
	Logger     logrus.FieldLogger
	Metrics    *metrics.Recorder
}

// Client is a Catalog over HTTP. Every request runs through a retry policy
// and a circuit breaker; the http.Client timeout bounds each attempt.
type Client struct {
	client   *http.Client
	baseURL  string
	pipeline failsafe.Executor[*http.Response]
	log      logrus.FieldLogger
	metrics  *metrics.Recorder
}

func NewClient(baseURL string, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.BackoffMin <= 0 {
		opts.BackoffMin = 100 * time.Millisecond
	}
	if opts.BackoffMax < opts.BackoffMin {
		opts.BackoffMax = 2 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}

	retryPolicy := retrypolicy.NewBuilder[*http.Response]().
		HandleIf(func(resp *http.Response, err error) bool {
			if err != nil {
				// an open breaker stays open for the whole backoff
				return !errors.Is(err, circuitbreaker.ErrOpen)
			}
			return resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
		}).
		WithBackoff(opts.BackoffMin, opts.BackoffMax).
		WithMaxRetries(opts.MaxRetries).
		Build()

	breaker := circuitbreaker.NewBuilder[*http.Response]().
		HandleIf(func(resp *http.Response, err error) bool {
			if err != nil {
				return true
			}
			return resp.StatusCode >= 500
		}).
		WithFailureThresholdRatio(5, 10).
		WithDelay(10 * time.Second).
		Build()

	return &Client{
		client:   &http.Client{Timeout: opts.Timeout},
		baseURL:  strings.TrimRight(baseURL, "/"),
		pipeline: failsafe.With[*http.Response](retryPolicy, breaker),
		log:      opts.Logger.WithField("component", "catalog"),
		metrics:  opts.Metrics,
	}
}

// Stock fetches GET /stock/{id}.
func (c *Client) Stock(ctx context.Context, productID int64) (models.Stock, error) {
	var s models.Stock
	if err := c.getJSON(ctx, "stock", fmt.Sprintf("/stock/%d", productID), &s); err != nil {
		return models.Stock{}, err
	}
	return s, nil
}

// Product fetches GET /products/{id}.
func (c *Client) Product(ctx context.Context, productID int64) (models.Product, error) {
	var p models.Product
	if err := c.getJSON(ctx, "products", fmt.Sprintf("/products/%d", productID), &p); err != nil {
		return models.Product{}, err
	}
	return p, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint, path string, out interface{}) error {
	body, err := c.get(ctx, path)
	if err != nil {
		c.metrics.RemoteRequest(endpoint, "error")
		c.log.WithError(err).WithField("path", path).Warn("catalog request failed")
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		c.metrics.RemoteRequest(endpoint, "decode_error")
		c.log.WithError(err).WithField("path", path).Warn("catalog response not decodable")
		return errors.Wrapf(err, "decode %s", path)
	}
	c.metrics.RemoteRequest(endpoint, "ok")
	return nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	resp, err := c.pipeline.WithContext(ctx).Get(func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		resp, err := c.client.Do(req)
		if err != nil {
			return nil, err
		}
		// buffer the body so a retried attempt never holds a connection
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, err
		}
		resp.Body = io.NopCloser(bytes.NewReader(body))
		return resp, nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "GET %s", path)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: body}
	}
	return body, nil
}
