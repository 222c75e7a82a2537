package proxy

import (
	"bufio"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"
)

// ErrUnknownProxy is returned when marking a proxy that was never added.
var ErrUnknownProxy = errors.New("proxy not in pool")

// entry tracks the health of a single proxy endpoint.
type entry struct {
	url          *url.URL
	failures     int
	benchedUntil time.Time
}

func (e *entry) benched(now time.Time) bool {
	return now.Before(e.benchedUntil)
}

// Pool is a round-robin proxy rotation with failure tracking. A proxy that
// fails MaxFailures times in a row sits out for the cooldown period before
// it is handed out again. Safe for concurrent use.
type Pool struct {
	mu          sync.Mutex
	entries     []*entry
	next        int
	maxFailures int
	cooldown    time.Duration
}

// Config defines pool behavior. Zero values get defaults (3 failures,
// 5 minute cooldown).
type Config struct {
	MaxFailures int
	Cooldown    time.Duration
}

// NewPool creates an empty pool.
func NewPool(cfg Config) *Pool {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 5 * time.Minute
	}
	return &Pool{
		maxFailures: cfg.MaxFailures,
		cooldown:    cfg.Cooldown,
	}
}

// Add parses and registers proxy URLs. A bare host:port defaults to http.
func (p *Pool) Add(rawURLs ...string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, raw := range rawURLs {
		if !strings.Contains(raw, "://") {
			raw = "http://" + raw
		}
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("invalid proxy url %q: %w", raw, err)
		}
		p.entries = append(p.entries, &entry{url: u})
	}
	return nil
}

// LoadFile reads one proxy URL per line; blank lines and '#' comments are
// skipped.
func (p *Pool) LoadFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open proxy file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	var urls []string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read proxy file: %w", err)
	}
	return p.Add(urls...)
}

// Next returns the next healthy proxy, or nil when the pool is empty or
// every proxy is benched.
func (p *Pool) Next() *url.URL {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.entries) == 0 {
		return nil
	}

	now := time.Now()
	for i := 0; i < len(p.entries); i++ {
		e := p.entries[p.next]
		p.next = (p.next + 1) % len(p.entries)

		if !e.benched(now) {
			return e.url
		}
	}
	return nil
}

// MarkSuccess resets the failure count for the given proxy.
func (p *Pool) MarkSuccess(proxyURL *url.URL) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	e := p.find(proxyURL)
	if e == nil {
		return ErrUnknownProxy
	}
	e.failures = 0
	return nil
}

// MarkFailure records a failure; once the proxy reaches MaxFailures it is
// benched for the cooldown period and its count reset.
func (p *Pool) MarkFailure(proxyURL *url.URL) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	e := p.find(proxyURL)
	if e == nil {
		return ErrUnknownProxy
	}
	e.failures++
	if e.failures >= p.maxFailures {
		e.benchedUntil = time.Now().Add(p.cooldown)
		e.failures = 0
	}
	return nil
}

// Size reports the number of registered proxies, benched or not.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

func (p *Pool) find(proxyURL *url.URL) *entry {
	if proxyURL == nil {
		return nil
	}
	for _, e := range p.entries {
		if e.url.String() == proxyURL.String() {
			return e
		}
	}
	return nil
}
