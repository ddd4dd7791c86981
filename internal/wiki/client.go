package wiki

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// DefaultBaseURL is the Deadman Mode realtime price feed.
const DefaultBaseURL = "https://prices.runescape.wiki/api/v1/dmm"

const defaultUserAgent = "dmm-flipper/1.0 (market tracker)"

// Client is a rate-limited HTTP client for the wiki price feed.
// The feed asks for a descriptive User-Agent on every request.
type Client struct {
	http      *http.Client
	sem       chan struct{}
	base      string
	userAgent string

	mu     sync.Mutex
	lastOK time.Time

	catalog catalogCache
}

// NewClient creates a feed client. userAgent overrides the default
// contact string when non-empty.
func NewClient(userAgent string) *Client {
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &Client{
		http:      &http.Client{Timeout: 30 * time.Second},
		sem:       make(chan struct{}, 8),
		base:      DefaultBaseURL,
		userAgent: userAgent,
	}
}

// SetBaseURL points the client at a different feed host. Used by tests.
func (c *Client) SetBaseURL(base string) {
	c.base = base
}

// HealthCheck probes the feed with a single-item quote request.
func (c *Client) HealthCheck() bool {
	var resp latestResponse
	if err := c.getJSON(c.base+"/latest?id=2", &resp); err != nil {
		return false
	}
	return true
}

// HealthStatus reports whether the last fetch succeeded and when.
func (c *Client) HealthStatus() (bool, time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.lastOK.IsZero(), c.lastOK
}

func (c *Client) markOK() {
	c.mu.Lock()
	c.lastOK = time.Now()
	c.mu.Unlock()
}

// getJSON fetches a URL and decodes JSON into dst.
func (c *Client) getJSON(url string, dst interface{}) error {
	c.sem <- struct{}{}
	defer func() { <-c.sem }()

	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("feed %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	c.markOK()
	return nil
}
