// Package client fetches electronic filings from the FEC docquery service.
package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"golang.org/x/time/rate"
)

const (
	// Posted electronic filings live under
	// https://docquery.fec.gov/dcdev/posted/<id>.fec
	docqueryBaseURL = "https://docquery.fec.gov/dcdev/posted"

	// docquery has no published rate policy; stay well under what the
	// service tolerates in practice.
	limitRate = 4
)

// HttpRequestDoer performs HTTP requests.
//
// The standard http.Client implements this interface.
type HttpRequestDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Limiter interface{ Wait(context.Context) error }

func New(opts ...ClientOption) *Client {
	c := &Client{}
	return c.applyOptions(opts...)
}

type ClientOption func(c *Client)

func WithHttpClient(client HttpRequestDoer) ClientOption {
	return func(c *Client) { c.client = client }
}

func WithRateLimiter(l Limiter) ClientOption {
	return func(c *Client) { c.limiter = l }
}

type Client struct {
	client  HttpRequestDoer
	limiter Limiter
	ua      string

	baseUrl string
}

func (self *Client) applyOptions(opts ...ClientOption) *Client {
	for _, fn := range opts {
		fn(self)
	}

	if self.client == nil {
		self.client = &http.Client{}
	}

	if self.limiter == nil {
		self.limiter = rate.NewLimiter(limitRate, limitRate)
	}

	return self
}

func (self *Client) WithBaseURL(url string) *Client {
	self.baseUrl = url
	return self
}

func (self *Client) BaseURL() string {
	if self.baseUrl == "" {
		return docqueryBaseURL
	}
	return self.baseUrl
}

func (self *Client) WithUserAgent(ua string) *Client {
	self.ua = ua
	return self
}

func (self *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create new GET request for %q: %w", url, err)
	}
	req.Header.Add("User-Agent", self.ua)

	if err := self.limitRate(ctx); err != nil {
		return nil, fmt.Errorf("rate limit GET %s: %w", url, err)
	}

	resp, err := self.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", url, err)
	}

	return resp, nil
}

func (self *Client) limitRate(ctx context.Context) error {
	if self.limiter != nil {
		if err := self.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("wait: %w", err)
		}
	}
	return nil
}

// GetFiling fetches the posted electronic filing with the given numeric id.
// The response body streams the raw .fec content; the caller owns closing it.
func (self *Client) GetFiling(ctx context.Context, id uint64,
) (*http.Response, error) {
	url, err := self.filingURL(id)
	if err != nil {
		return nil, err
	}

	resp, err := self.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode > maxExpectedStatusCode {
		resp.Body.Close()
		return nil, fmt.Errorf("GET %s: %w", url, newUnexpectedStatusError(resp))
	}
	return resp, nil
}

func (self *Client) filingURL(id uint64) (string, error) {
	url, err := url.JoinPath(self.BaseURL(), fmt.Sprintf("%d.fec", id))
	if err != nil {
		return "", fmt.Errorf("join filing id %d: %w", id, err)
	}
	return url, nil
}
