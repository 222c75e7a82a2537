// Package probe provides a lightweight HTTP reachability check against the
// scrape target, without spinning up a browser. It mimics a real Chrome
// client at the TLS layer so that the answer reflects what the browser
// session will actually see.
package probe

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/FranksOps/finch/pkg/useragent"
	utls "github.com/refraction-networking/utls"
)

// Profile selects the TLS ClientHello the probe presents.
type Profile string

const (
	// ProfileChrome mimics a current Chrome handshake via uTLS.
	ProfileChrome Profile = "chrome"
	// ProfileGo uses the standard library TLS stack. Mainly for tests.
	ProfileGo Profile = "go"
)

// Config sets up a probe Client. Zero values get defaults.
type Config struct {
	Timeout    time.Duration   // default 10s
	Profile    Profile         // default ProfileChrome
	UserAgents *useragent.Pool // default desktop Chrome pool
}

// Status is the outcome of a single probe.
type Status struct {
	StatusCode int           `json:"status_code"`
	Duration   time.Duration `json:"duration"`
	Challenged bool          `json:"challenged"`
	// Source names the bot-protection vendor when Challenged is true.
	Source string `json:"source,omitempty"`
}

// Reachable reports whether the target answered with a non-challenge,
// non-server-error response.
func (s *Status) Reachable() bool {
	return !s.Challenged && s.StatusCode > 0 && s.StatusCode < 500
}

// Client issues fingerprinted GET requests against the target.
type Client struct {
	hc  *http.Client
	uas *useragent.Pool
}

// NewClient builds a probe client with the configured TLS profile.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Profile == "" {
		cfg.Profile = ProfileChrome
	}
	if cfg.UserAgents == nil {
		cfg.UserAgents = useragent.NewPool(nil)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()

	switch cfg.Profile {
	case ProfileGo:
		// keep the stock TLS stack
	case ProfileChrome:
		transport.DialTLSContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			tcpConn, err := transport.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}

			host, _, err := net.SplitHostPort(addr)
			if err != nil {
				host = addr
			}

			uConn := utls.UClient(tcpConn, &utls.Config{ServerName: host}, utls.HelloChrome_Auto)
			if err := uConn.HandshakeContext(ctx); err != nil {
				_ = tcpConn.Close()
				return nil, fmt.Errorf("utls handshake: %w", err)
			}
			return uConn, nil
		}
	default:
		return nil, fmt.Errorf("unknown probe profile %q", cfg.Profile)
	}

	return &Client{
		hc: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		uas: cfg.UserAgents,
	}, nil
}

// Check fetches the target URL once and classifies the response.
func (c *Client) Check(ctx context.Context, targetURL string) (*Status, error) {
	start := time.Now()

	body, resp, err := c.get(ctx, targetURL)
	if err != nil {
		return nil, err
	}

	status := &Status{
		StatusCode: resp.StatusCode,
		Duration:   time.Since(start),
	}
	if source, detected := Detect(resp.StatusCode, resp.Header, body); detected {
		status.Challenged = true
		status.Source = source
	}

	return status, nil
}

// get performs one fingerprinted GET and returns the body (capped at 1 MiB)
// and response metadata.
func (c *Client) get(ctx context.Context, targetURL string) ([]byte, *http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("build probe request: %w", err)
	}

	req.Header.Set("User-Agent", c.uas.Next())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("probe request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, nil, fmt.Errorf("read probe body: %w", err)
	}

	return body, resp, nil
}
