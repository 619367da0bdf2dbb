// Package cli implements quotectl, the command line client of the quotedesk
// server.
package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/jsamuelsen/quotedesk/internal/adapters/http/dto"
	"github.com/jsamuelsen/quotedesk/internal/adapters/http/handlers"
)

// ErrServer is wrapped by every error the server answered with.
var ErrServer = errors.New("server error")

// APIError is an error envelope returned by the server.
type APIError struct {
	Status  int
	Code    string
	Message string
	Details map[string]string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}

	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	return ErrServer
}

// Client talks to the quotedesk JSON API. It keeps the session cookie so
// consecutive calls act as the same visitor.
type Client struct {
	http *resty.Client
	jar  http.CookieJar
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("creating cookie jar: %w", err)
	}

	rc := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetCookieJar(jar).
		SetHeader("Accept", "application/json").
		SetError(&dto.ErrorResponse{})

	return &Client{http: rc, jar: jar}, nil
}

// Jar returns the cookie jar holding the visitor session.
func (c *Client) Jar() http.CookieJar {
	return c.jar
}

// BaseURL returns the server URL.
func (c *Client) BaseURL() string {
	return c.http.BaseURL
}

// RandomQuote picks a random quote for this visitor.
func (c *Client) RandomQuote(ctx context.Context) (handlers.QuoteResponse, error) {
	var out handlers.QuoteResponse

	resp, err := c.http.R().SetContext(ctx).SetResult(&out).Get("/api/v1/quotes/random")

	return out, check(resp, err)
}

// Quotes returns the whole catalog, following pagination cursors.
func (c *Client) Quotes(ctx context.Context) ([]handlers.QuoteResponse, error) {
	var (
		all    []handlers.QuoteResponse
		cursor string
	)

	for {
		var page dto.PaginatedResponse[handlers.QuoteResponse]

		req := c.http.R().SetContext(ctx).SetResult(&page).SetQueryParam("limit", strconv.Itoa(dto.MaxLimit))
		if cursor != "" {
			req.SetQueryParam("cursor", cursor)
		}

		if err := check(req.Get("/api/v1/quotes")); err != nil {
			return nil, err
		}

		all = append(all, page.Items...)

		if !page.HasMore || page.NextCursor == "" {
			return all, nil
		}

		cursor = page.NextCursor
	}
}

// Session returns the session snapshot. With wait it blocks server side
// until the pending transition has completed.
func (c *Client) Session(ctx context.Context, wait bool) (handlers.SessionResponse, error) {
	var out handlers.SessionResponse

	req := c.http.R().SetContext(ctx).SetResult(&out)
	if wait {
		req.SetQueryParam("wait", "true")
	}

	resp, err := req.Get("/api/v1/session")

	return out, check(resp, err)
}

// Transition starts a login ("in") or logout ("out").
func (c *Client) Transition(ctx context.Context, direction string) (handlers.SessionResponse, error) {
	var out handlers.SessionResponse

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(handlers.TransitionRequest{Direction: direction}).
		SetResult(&out).
		Post("/api/v1/session/transitions")

	return out, check(resp, err)
}

// check turns transport failures and error envelopes into errors.
func check(resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("calling server: %w", err)
	}

	if !resp.IsError() {
		return nil
	}

	apiErr := &APIError{Status: resp.StatusCode()}

	if envelope, ok := resp.Error().(*dto.ErrorResponse); ok && envelope != nil {
		apiErr.Code = envelope.Error.Code
		apiErr.Message = envelope.Error.Message
		apiErr.Details = envelope.Error.Details
	}

	return apiErr
}
