package probe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newGoClient(t *testing.T, timeout time.Duration) *Client {
	t.Helper()
	client, err := NewClient(Config{Timeout: timeout, Profile: ProfileGo})
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return client
}

func TestCheck_Healthy(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			t.Error("expected a User-Agent header")
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("<html>search page</html>"))
	}))
	defer ts.Close()

	client := newGoClient(t, 5*time.Second)

	status, err := client.Check(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", status.StatusCode)
	}
	if status.Challenged {
		t.Error("healthy page must not be flagged as challenged")
	}
	if !status.Reachable() {
		t.Error("expected Reachable() true")
	}
	if status.Duration == 0 {
		t.Error("expected non-zero duration")
	}
}

func TestCheck_CloudflareChallenge(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Server", "cloudflare")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("<html>Attention Required! | Cloudflare</html>"))
	}))
	defer ts.Close()

	client := newGoClient(t, 5*time.Second)

	status, err := client.Check(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !status.Challenged || status.Source != "Cloudflare" {
		t.Errorf("expected Cloudflare challenge, got %+v", status)
	}
	if status.Reachable() {
		t.Error("challenged target must not be reachable")
	}
}

func TestCheck_Timeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
	}))
	defer ts.Close()

	client := newGoClient(t, 10*time.Millisecond)

	if _, err := client.Check(context.Background(), ts.URL); err == nil {
		t.Fatal("expected a timeout error")
	}
}

func TestNewClient_UnknownProfile(t *testing.T) {
	if _, err := NewClient(Config{Profile: Profile("netscape")}); err == nil {
		t.Fatal("expected an error for unknown profile")
	}
}

func TestDetect_DataDomeHeader(t *testing.T) {
	header := http.Header{}
	header.Set("X-DataDome", "protected")

	source, detected := Detect(http.StatusForbidden, header, nil)
	if !detected || source != "DataDome" {
		t.Errorf("expected DataDome, got %q detected=%v", source, detected)
	}
}

func TestDetect_StatusGate(t *testing.T) {
	body := []byte("cf-browser-verification")

	// Challenge markers on a 200 page are ignored by Detect.
	if source, detected := Detect(http.StatusOK, http.Header{}, body); detected {
		t.Errorf("expected no detection on 200, got %q", source)
	}
	if source, detected := Detect(http.StatusServiceUnavailable, http.Header{}, body); !detected || source != "Cloudflare" {
		t.Errorf("expected Cloudflare on 503, got %q detected=%v", source, detected)
	}
}

func TestSniffHTML(t *testing.T) {
	cases := []struct {
		name   string
		html   string
		source string
	}{
		{"clean", "<html><body>suggestions</body></html>", ""},
		{"turnstile", "<html><div class='cf-turnstile'></div></html>", "Cloudflare"},
		{"datadome", "<script src='https://geo.captcha-delivery.com/x.js'></script>", "DataDome"},
		{"perimeterx", "<div id='px-captcha'></div>", "PerimeterX"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			source, detected := SniffHTML(tc.html)
			if tc.source == "" {
				if detected {
					t.Errorf("expected no detection, got %q", source)
				}
				return
			}
			if !detected || source != tc.source {
				t.Errorf("expected %q, got %q detected=%v", tc.source, source, detected)
			}
		})
	}
}

func TestRobots_Allowed(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/robots.txt") {
			_, _ = w.Write([]byte("User-agent: *\nDisallow: /private\n"))
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	robots := NewRobots(newGoClient(t, 5*time.Second), nil)
	ctx := context.Background()

	allowed, err := robots.Allowed(ctx, ts.URL+"/", "finch")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !allowed {
		t.Error("root path should be allowed")
	}

	allowed, err = robots.Allowed(ctx, ts.URL+"/private/page", "finch")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if allowed {
		t.Error("/private should be disallowed")
	}
}

func TestRobots_MissingFileAllowsAll(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	robots := NewRobots(newGoClient(t, 5*time.Second), nil)

	allowed, err := robots.Allowed(context.Background(), ts.URL+"/anything", "finch")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !allowed {
		t.Error("missing robots.txt should default to allow")
	}
}
