// Package browser resolves a usable Chrome/Chromium installation and turns
// it into live DevTools sessions for the scraper.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/exec"

	"github.com/FranksOps/finch/pkg/proxy"
	"github.com/FranksOps/finch/pkg/useragent"
	"github.com/chromedp/chromedp"
	"github.com/go-rod/rod/lib/launcher"
)

// executableNames are probed on PATH, in order.
var executableNames = []string{
	"google-chrome",
	"google-chrome-stable",
	"chromium-browser",
	"chromium",
}

// canonicalPaths are well-known install locations probed when PATH lookup
// fails, in order.
var canonicalPaths = []string{
	"/usr/bin/google-chrome",
	"/usr/bin/google-chrome-stable",
	"/usr/bin/chromium-browser",
	"/usr/bin/chromium",
	"/usr/local/bin/chrome",
	"/opt/google/chrome/chrome",
	"/usr/lib/chromium-browser/chromium-browser",
}

// ProvisioningError means no usable browser could be resolved. Its message
// lists remediation options for the operator.
type ProvisioningError struct {
	Err error
}

func (e *ProvisioningError) Error() string {
	msg := "no usable Chrome/Chromium found. Solutions:\n" +
		"1. Install Chromium: apt-get install chromium\n" +
		"2. Enable managed download (browser.allow_download: true)\n" +
		"3. Add the browser binary to PATH or set browser.binary"
	if e.Err != nil {
		msg += fmt.Sprintf("\nError: %v", e.Err)
	}
	return msg
}

func (e *ProvisioningError) Unwrap() error { return e.Err }

// Config sets up a Provisioner.
type Config struct {
	// BinaryPath pins the browser executable, skipping discovery.
	BinaryPath string
	// AllowDownload enables the managed-download fallback when no local
	// installation is found.
	AllowDownload bool
	UserAgents    *useragent.Pool
	Proxies       *proxy.Pool
}

// LaunchConfig is the resolved recipe for one browser session.
type LaunchConfig struct {
	BinaryPath string
	UserAgent  string
	ProxyURL   *url.URL
}

// AllocatorOptions renders the launch configuration into chromedp exec
// allocator options. The flag set targets unattended, containerized runs.
func (lc *LaunchConfig) AllocatorOptions(headless bool) []chromedp.ExecAllocatorOption {
	opts := []chromedp.ExecAllocatorOption{
		chromedp.ExecPath(lc.BinaryPath),
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-software-rasterizer", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-background-timer-throttling", true),
		chromedp.Flag("disable-backgrounding-occluded-windows", true),
		chromedp.Flag("disable-renderer-backgrounding", true),
		chromedp.Flag("disable-features", "TranslateUI"),
		chromedp.Flag("disable-ipc-flooding-protection", true),
		chromedp.WindowSize(1920, 1080),
		chromedp.UserAgent(lc.UserAgent),
	}
	if headless {
		opts = append(opts, chromedp.Flag("headless", "new"))
	}
	if lc.ProxyURL != nil {
		opts = append(opts, chromedp.ProxyServer(lc.ProxyURL.String()))
	}
	return opts
}

// Provisioner resolves browser executables. Resolution is filesystem probes
// only, unless the managed-download fallback is explicitly enabled.
type Provisioner struct {
	cfg    Config
	logger *slog.Logger

	// overridable for tests
	lookPath     func(file string) (string, error)
	isExecutable func(path string) bool
	download     func(ctx context.Context) (string, error)
}

// NewProvisioner creates a Provisioner with the given config.
func NewProvisioner(cfg Config, logger *slog.Logger) *Provisioner {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.UserAgents == nil {
		cfg.UserAgents = useragent.NewPool(nil)
	}
	return &Provisioner{
		cfg:          cfg,
		logger:       logger,
		lookPath:     exec.LookPath,
		isExecutable: isExecutable,
		download:     downloadBrowser,
	}
}

// Resolve locates a browser binary and assembles a LaunchConfig: pinned
// path, then PATH lookup, then canonical locations, then managed download.
func (p *Provisioner) Resolve(ctx context.Context) (*LaunchConfig, error) {
	bin, err := p.resolveBinary(ctx)
	if err != nil {
		return nil, err
	}

	lc := &LaunchConfig{
		BinaryPath: bin,
		UserAgent:  p.cfg.UserAgents.Pick(),
	}
	if p.cfg.Proxies != nil {
		lc.ProxyURL = p.cfg.Proxies.Next()
	}
	return lc, nil
}

func (p *Provisioner) resolveBinary(ctx context.Context) (string, error) {
	if p.cfg.BinaryPath != "" {
		if p.isExecutable(p.cfg.BinaryPath) {
			return p.cfg.BinaryPath, nil
		}
		return "", &ProvisioningError{Err: fmt.Errorf("configured binary %q is not executable", p.cfg.BinaryPath)}
	}

	for _, name := range executableNames {
		if path, err := p.lookPath(name); err == nil {
			p.logger.Debug("found browser on PATH", "path", path)
			return path, nil
		}
	}

	for _, path := range canonicalPaths {
		if p.isExecutable(path) {
			p.logger.Debug("found browser at canonical path", "path", path)
			return path, nil
		}
	}

	if p.cfg.AllowDownload {
		p.logger.Info("no local browser found, attempting managed download")
		path, err := p.download(ctx)
		if err != nil {
			return "", &ProvisioningError{Err: fmt.Errorf("managed download failed: %w", err)}
		}
		p.logger.Info("managed download complete", "path", path)
		return path, nil
	}

	return "", &ProvisioningError{}
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return info.Mode().Perm()&0o111 != 0
}

// downloadBrowser fetches a pinned Chromium revision into the user cache
// directory via rod's launcher and returns the binary path.
func downloadBrowser(ctx context.Context) (string, error) {
	b := launcher.NewBrowser()
	b.Context = ctx
	return b.Get()
}
