package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	pkghttp "github.com/BradenHooton/adminauth/pkg/http"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

// TestRateLimitByIP_BlocksAfterLimit verifies requests past the per-minute limit get 429
func TestRateLimitByIP_BlocksAfterLimit(t *testing.T) {
	handler := RateLimitByIP(RateLimitConfig{RequestsPerMinute: 3})(okHandler())

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest("POST", "/api/admin/login", nil)
		req.RemoteAddr = "192.168.1.1:8080"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: expected status 200, got %d", i+1, w.Code)
		}
	}

	req := httptest.NewRequest("POST", "/api/admin/login", nil)
	req.RemoteAddr = "192.168.1.1:8080"
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusTooManyRequests {
		t.Errorf("expected status 429, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected JSON body, got Content-Type %q", ct)
	}
}

// TestRateLimitByIP_SeparateBucketsPerIP verifies one client cannot exhaust another's budget
func TestRateLimitByIP_SeparateBucketsPerIP(t *testing.T) {
	handler := RateLimitByIP(RateLimitConfig{RequestsPerMinute: 1})(okHandler())

	for _, addr := range []string{"10.0.0.1:1000", "10.0.0.2:1000"} {
		req := httptest.NewRequest("POST", "/api/admin/login", nil)
		req.RemoteAddr = addr
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Errorf("%s: expected status 200, got %d", addr, w.Code)
		}
	}
}

// TestRateLimitByIP_IgnoresSpoofedHeaderFromUntrustedPeer verifies X-Forwarded-For
// cannot be used to rotate buckets unless the peer is a trusted proxy
func TestRateLimitByIP_IgnoresSpoofedHeaderFromUntrustedPeer(t *testing.T) {
	handler := RateLimitByIP(RateLimitConfig{RequestsPerMinute: 1})(okHandler())

	codes := make([]int, 0, 2)
	for _, spoofed := range []string{"1.1.1.1", "2.2.2.2"} {
		req := httptest.NewRequest("POST", "/api/admin/login", nil)
		req.RemoteAddr = "192.168.1.50:4000"
		req.Header.Set("X-Forwarded-For", spoofed)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	if codes[1] != http.StatusTooManyRequests {
		t.Errorf("expected second request to be limited, got %v", codes)
	}
}

// TestRateLimitByIP_TrustedProxyUsesForwardedClient verifies clients behind a proxy get their own bucket
func TestRateLimitByIP_TrustedProxyUsesForwardedClient(t *testing.T) {
	ipConfig, err := pkghttp.NewIPConfig([]string{"10.0.0.0/8"})
	if err != nil {
		t.Fatal(err)
	}
	handler := RateLimitByIP(RateLimitConfig{RequestsPerMinute: 1, IPConfig: ipConfig})(okHandler())

	for _, client := range []string{"203.0.113.1", "203.0.113.2"} {
		req := httptest.NewRequest("POST", "/api/admin/login", nil)
		req.RemoteAddr = "10.1.1.1:4000"
		req.Header.Set("X-Forwarded-For", client)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Errorf("client %s: expected status 200, got %d", client, w.Code)
		}
	}
}

func TestRateLimitByIP_DefaultLimit(t *testing.T) {
	handler := RateLimitByIP(RateLimitConfig{})(okHandler())

	for i := 0; i < DefaultLoginRequestsPerMinute; i++ {
		req := httptest.NewRequest("POST", "/api/admin/login", nil)
		req.RemoteAddr = "172.16.0.1:1"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: expected status 200, got %d", i+1, w.Code)
		}
	}
}
