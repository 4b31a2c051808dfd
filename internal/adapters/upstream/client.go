// Package upstream is the single outbound-call path shared by every third-party adapter:
// client-side rate limiting, a bounded per-call timeout, JSON encoding, and status translation.
package upstream

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

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"hotel_finder/internal/adapters/observability"
	"hotel_finder/internal/domain"
)

const (
	DefaultTimeout = 30 * time.Second
	maxErrBody     = 4096
)

type Client struct {
	service string
	hc      *http.Client
	rl      *rate.Limiter
	timeout time.Duration
	header  http.Header
}

type Option func(*Client)

func WithHeader(k, v string) Option {
	return func(c *Client) { c.header.Set(k, v) }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.hc = hc }
}

func New(service string, timeout time.Duration, rps int, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if rps <= 0 {
		rps = 5
	}
	c := &Client{
		service: service,
		// per-call deadlines come from the context; no client-wide timeout
		hc:      &http.Client{},
		rl:      rate.NewLimiter(rate.Limit(rps), rps),
		timeout: timeout,
		header:  http.Header{},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) Service() string { return c.service }

// Call describes one outbound request.
type Call struct {
	Method   string
	URL      string
	Query    url.Values
	Header   http.Header
	Body     any           // JSON-encoded when non-nil
	Form     url.Values    // form-encoded when non-nil
	Endpoint string        // metrics label
	Timeout  time.Duration // overrides the client default when > 0
}

// Do performs exactly one request and returns the body of a 2xx response.
// A non-2xx answer yields *domain.UpstreamError; an elapsed deadline yields domain.ErrTimeout.
func (c *Client) Do(ctx context.Context, call Call) ([]byte, error) {
	d := c.timeout
	if call.Timeout > 0 {
		d = call.Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	if err := c.rl.Wait(ctx); err != nil {
		return nil, c.classify(ctx, call, err)
	}

	req, err := c.newRequest(ctx, call)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		observability.ObserveExternal(c.service, call.Endpoint, 0, time.Since(start))
		return nil, c.classify(ctx, call, err)
	}
	defer resp.Body.Close()
	observability.ObserveExternal(c.service, call.Endpoint, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrBody))
		return nil, &domain.UpstreamError{
			Service: c.service,
			Status:  resp.StatusCode,
			Body:    strings.TrimSpace(string(b)),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.classify(ctx, call, err)
	}
	return body, nil
}

// JSON performs Do and decodes the body into out (skipped when out is nil or the body is empty).
func (c *Client) JSON(ctx context.Context, call Call, out any) error {
	body, err := c.Do(ctx, call)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", c.service, call.Endpoint, err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, call Call) (*http.Request, error) {
	u := call.URL
	if len(call.Query) > 0 {
		sep := "?"
		if strings.Contains(u, "?") {
			sep = "&"
		}
		u += sep + call.Query.Encode()
	}

	var body io.Reader
	contentType := ""
	switch {
	case call.Body != nil:
		b, err := json.Marshal(call.Body)
		if err != nil {
			return nil, fmt.Errorf("%s %s: encode request: %w", c.service, call.Endpoint, err)
		}
		body = bytes.NewReader(b)
		contentType = "application/json"
	case call.Form != nil:
		body = strings.NewReader(call.Form.Encode())
		contentType = "application/x-www-form-urlencoded"
	}

	method := call.Method
	if method == "" {
		method = http.MethodGet
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: build request: %w", c.service, call.Endpoint, withoutURL(err))
	}
	for k, vs := range c.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	for k, vs := range call.Header {
		req.Header[k] = vs
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "hotel-finder/1.0")

	reqID := chimw.GetReqID(ctx)
	if reqID == "" {
		reqID = uuid.NewString()
	}
	req.Header.Set("X-Request-ID", reqID)
	return req, nil
}

func (c *Client) classify(ctx context.Context, call Call, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%s %s: %w", c.service, call.Endpoint, domain.ErrTimeout)
	}
	return fmt.Errorf("%s %s: %w", c.service, call.Endpoint, withoutURL(err))
}

// withoutURL drops the request URL from transport errors. Query strings carry API keys.
func withoutURL(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return fmt.Errorf("%s: %w", ue.Op, ue.Err)
	}
	return err
}
