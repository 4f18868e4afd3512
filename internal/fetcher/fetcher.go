// Package fetcher implements the resilient HTTP layer used by every scraping
// source: randomized browser headers, retry with exponential backoff on
// transient statuses, bot-wall detection and a polite randomized delay
// between requests to the same host.
package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kvanticoder/jobscout/internal/utils"
)

const defaultTimeout = 10 * time.Second

// retryableStatuses are transient server-side statuses worth another attempt.
var retryableStatuses = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// botWallMarkers flag an anti-scraping interstitial in an otherwise 200 body.
var botWallMarkers = []string{
	"captcha",
	"access denied",
	"verify you are a human",
	"unusual traffic",
}

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 Chrome/121.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 Chrome/119.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 13_6) AppleWebKit/537.36 Chrome/121.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 13_5) AppleWebKit/537.36 Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 Chrome/121.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:122.0) Gecko/20100101 Firefox/122.0",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 13.6; rv:122.0) Gecko/20100101 Firefox/122.0",
	"Mozilla/5.0 (X11; Linux x86_64; rv:122.0) Gecko/20100101 Firefox/122.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 13_6) AppleWebKit/605.1.15 Version/17.1 Safari/605.1.15",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 13_5) AppleWebKit/605.1.15 Version/16.6 Safari/605.1.15",
}

var acceptLanguages = []string{"en-US,en;q=0.9", "en-GB,en;q=0.8"}

var connections = []string{"keep-alive", "close"}

// Policy controls retry and pacing behaviour of a Client.
type Policy struct {
	MaxRetries int
	Backoff    time.Duration
	MinDelay   time.Duration
	MaxDelay   time.Duration
}

// DefaultPolicy mirrors the defaults the scraping loops were tuned with.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries: 3,
		Backoff:    500 * time.Millisecond,
		MinDelay:   1800 * time.Millisecond,
		MaxDelay:   3600 * time.Millisecond,
	}
}

// Response is a fully read, clean HTTP response.
type Response struct {
	StatusCode int
	Body       string
}

type Client struct {
	// ctx used only for http requests right now
	ctx        context.Context
	logger     *zap.Logger
	policy     Policy
	HTTPClient *http.Client

	// lastVisit tracks the previous request time per host for pacing.
	// All access happens on the single pipeline goroutine.
	lastVisit map[string]time.Time
}

func New(ctx context.Context, logger *zap.Logger, policy Policy) *Client {
	if policy.MaxRetries <= 0 {
		policy.MaxRetries = DefaultPolicy().MaxRetries
	}
	if policy.Backoff <= 0 {
		policy.Backoff = DefaultPolicy().Backoff
	}
	return &Client{
		ctx:    ctx,
		logger: logger,
		policy: policy,
		// The default transport picks up HTTP_PROXY/HTTPS_PROXY from the
		// environment, which covers the optional proxy configuration.
		HTTPClient: &http.Client{
			Timeout: defaultTimeout,
		},
		lastVisit: make(map[string]time.Time),
	}
}

// Get issues a GET request with randomized browser headers. A nil error means
// the response is clean: status 200 and no bot-wall marker in the body. Any
// failure is reported as an error the caller should treat as "no data this
// round", not a hard stop.
func (c *Client) Get(rawURL string, params url.Values) (*Response, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url %q: %w", rawURL, err)
	}

	if err := c.pace(parsed.Host); err != nil {
		return nil, err
	}

	freshAgentUsed := false
	agent := randomUserAgent()

	for attempt := 1; attempt <= c.policy.MaxRetries; attempt++ {
		resp, err := c.do(rawURL, params, agent)
		if err != nil {
			c.logger.Warn("request failed",
				zap.String("url", rawURL),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			c.backoff(attempt)
			continue
		}

		switch {
		case resp.StatusCode == http.StatusOK && !c.botWalled(resp.Body):
			return resp, nil
		case resp.StatusCode == http.StatusOK && !freshAgentUsed:
			// A bot wall behind a 200. One more try with a fresh identity.
			c.logger.Debug("bot wall detected, rotating user agent", zap.String("url", rawURL))
			freshAgentUsed = true
			agent = randomUserAgent()
		case resp.StatusCode == http.StatusOK:
			return nil, fmt.Errorf("fetch %s: bot wall persisted after user agent rotation", rawURL)
		case retryableStatuses[resp.StatusCode]:
			c.logger.Debug("retryable status",
				zap.String("url", rawURL),
				zap.Int("status", resp.StatusCode),
				zap.Int("attempt", attempt),
			)
			c.backoff(attempt)
		default:
			return nil, fmt.Errorf("fetch %s: unusable response (status %d)", rawURL, resp.StatusCode)
		}
	}

	return nil, fmt.Errorf("fetch %s: no clean response after %d attempts", rawURL, c.policy.MaxRetries)
}

// GetJSON fetches the endpoint and decodes the clean body into target.
func (c *Client) GetJSON(rawURL string, params url.Values, target any) error {
	resp, err := c.Get(rawURL, params)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(resp.Body), target); err != nil {
		return fmt.Errorf("decode %s: %w", rawURL, err)
	}
	return nil
}

func (c *Client) do(rawURL string, params url.Values, agent string) (*Response, error) {
	req, err := http.NewRequestWithContext(c.ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", agent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/json")
	req.Header.Set("Accept-Language", acceptLanguages[rand.Intn(len(acceptLanguages))])
	req.Header.Set("Connection", connections[rand.Intn(len(connections))])
	if params != nil {
		req.URL.RawQuery = params.Encode()
	}

	c.logger.Debug("make request", zap.String("url", req.URL.String()))

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return &Response{StatusCode: resp.StatusCode, Body: string(body)}, nil
}

func (c *Client) botWalled(body string) bool {
	lowered := strings.ToLower(body)
	for _, marker := range botWallMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}

// pace sleeps a randomized delay when the host was visited recently. The
// sleep is deliberate rate-limit avoidance, not a yield point.
func (c *Client) pace(host string) error {
	if c.policy.MinDelay <= 0 || host == "" {
		return nil
	}

	defer func() { c.lastVisit[host] = time.Now() }()

	last, ok := c.lastVisit[host]
	if !ok {
		return nil
	}

	window := c.policy.MaxDelay - c.policy.MinDelay
	delay := c.policy.MinDelay
	if window > 0 {
		delay += time.Duration(rand.Int63n(int64(window)))
	}
	if elapsed := time.Since(last); elapsed < delay {
		remaining := delay - elapsed
		c.logger.Debug("pacing host", zap.String("host", host), zap.Duration("sleep", remaining))
		return utils.WaitFor(c.ctx, remaining)
	}
	return nil
}

func (c *Client) backoff(attempt int) {
	wait := c.policy.Backoff * (1 << (attempt - 1))
	_ = utils.WaitFor(c.ctx, wait)
}

func randomUserAgent() string {
	return userAgents[rand.Intn(len(userAgents))]
}
