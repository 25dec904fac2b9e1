// Package statusclient is a Go client for the StatusService admin endpoints.
package statusclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNotBlocked   = errors.New("ip not found in blocklist")
	ErrUnauthorized = errors.New("admin token missing or rejected")
)

// LogEntry is one request log record as served by /logs.
type LogEntry struct {
	ID          uint64    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	IP          string    `json:"ip"`
	Method      string    `json:"method"`
	Path        string    `json:"path"`
	StatusCode  int       `json:"status_code"`
	UserAgent   string    `json:"user_agent"`
	OverflowRef *string   `json:"overflow_ref"`
}

// BanEntry is one blocklist entry.
type BanEntry struct {
	BannedAt time.Time `json:"banned_at"`
	Reason   string    `json:"reason"`
}

// Limits reports a client's live window sizes.
type Limits struct {
	IP      string `json:"ip"`
	Banned  bool   `json:"banned"`
	Windows struct {
		Minute     int `json:"minute"`
		TenMinutes int `json:"ten_minutes"`
	} `json:"windows"`
	Limits struct {
		Minute     int `json:"minute"`
		TenMinutes int `json:"ten_minutes"`
	} `json:"limits"`
}

// Health is the /health body.
type Health struct {
	Status string            `json:"status"`
	Time   string            `json:"time"`
	Checks map[string]string `json:"checks"`
}

// Client is safe for concurrent use.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithToken sends token as a bearer credential.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient replaces the default client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a client for the service at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// MintAdminToken signs an HS256 token accepted by a server configured with secret.
func MintAdminToken(secret, subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func (c *Client) Logs(ctx context.Context, limit int) ([]LogEntry, error) {
	var out struct {
		Logs []LogEntry `json:"logs"`
	}
	q := url.Values{"limit": {strconv.Itoa(limit)}}
	if err := c.get(ctx, "/logs", q, &out); err != nil {
		return nil, err
	}
	return out.Logs, nil
}

func (c *Client) Blocklist(ctx context.Context) (map[string]BanEntry, error) {
	var out struct {
		BlockedIPs map[string]BanEntry `json:"blocked_ips"`
	}
	if err := c.get(ctx, "/blocklist", nil, &out); err != nil {
		return nil, err
	}
	return out.BlockedIPs, nil
}

// Unblock removes the ban on ip. It returns ErrNotBlocked when there was none.
func (c *Client) Unblock(ctx context.Context, ip string) error {
	return c.get(ctx, "/unblock", url.Values{"ip": {ip}}, nil)
}

func (c *Client) Limits(ctx context.Context, ip string) (*Limits, error) {
	var out Limits
	if err := c.get(ctx, "/limits", url.Values{"ip": {ip}}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health returns the health body. A degraded service is not an error.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var out Health
	err := c.get(ctx, "/health", nil, &out)
	var se *StatusError
	if err != nil && !(errors.As(err, &se) && se.Code == http.StatusServiceUnavailable) {
		return nil, err
	}
	return &out, nil
}

// StatusError is returned for unexpected HTTP statuses.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("statusservice: %d %s", e.Code, e.Message)
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out interface{}) error {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	// a degraded /health still carries its checks
	if resp.StatusCode == http.StatusOK || (resp.StatusCode == http.StatusServiceUnavailable && path == "/health") {
		if out != nil {
			if err := json.Unmarshal(raw, out); err != nil {
				return err
			}
		}
		if resp.StatusCode == http.StatusOK {
			return nil
		}
	}

	var body struct {
		Error string `json:"error"`
	}
	_ = json.Unmarshal(raw, &body)
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound && path == "/unblock":
		return ErrNotBlocked
	}
	return &StatusError{Code: resp.StatusCode, Message: body.Error}
}
