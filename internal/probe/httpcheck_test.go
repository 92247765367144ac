package probe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPChecker_StatusOK(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
		w.Write([]byte("ok"))
	}))
	defer s.Close()

	chk := NewHTTPChecker(2 * time.Second)
	out := chk.Check(context.Background(), s.URL)
	if !out.Success {
		t.Fatalf("want success, got %+v", out)
	}
	if out.LatencyMS < 0 {
		t.Fatalf("latency should be >= 0, got %f", out.LatencyMS)
	}
}

func TestHTTPChecker_NonOKStatusIsFailure(t *testing.T) {
	// redirect-free 204 is "reachable" but not the 200 the battery requires
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(204)
	}))
	defer s.Close()

	chk := NewHTTPChecker(2 * time.Second)
	if out := chk.Check(context.Background(), s.URL); out.Success {
		t.Fatalf("want failure for non-200, got %+v", out)
	}
}

func TestHTTPChecker_Timeout(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(200)
	}))
	defer s.Close()

	chk := NewHTTPChecker(50 * time.Millisecond)
	out := chk.Check(context.Background(), s.URL)
	if out.Success {
		t.Fatalf("want failure due to timeout, got %+v", out)
	}
	if out.Message == "" {
		t.Fatalf("want non-empty error message")
	}
}

func TestDNSChecker_InvalidName(t *testing.T) {
	chk := NewDNSChecker()
	out := chk.Check(context.Background(), "http://not-a-hostname")
	if out.Success {
		t.Fatalf("want failure for URL-shaped input")
	}
	if out.Message != DNSInvalidName {
		t.Fatalf("want %s, got %s", DNSInvalidName, out.Message)
	}
}
