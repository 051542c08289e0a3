package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func testClient(opts ...Option) *Client {
	base := []Option{WithBaseDelay(time.Millisecond), WithMaxRetries(3)}
	return NewClient(append(base, opts...)...)
}

func TestGetJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			t.Error("expected a User-Agent header")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"name":"types-registry"}`))
	}))
	defer server.Close()

	var v struct {
		Name string `json:"name"`
	}
	if err := testClient().GetJSON(context.Background(), server.URL, &v); err != nil {
		t.Fatalf("GetJSON failed: %v", err)
	}
	if v.Name != "types-registry" {
		t.Errorf("unexpected name: %q", v.Name)
	}
}

func TestGetJSONRetriesServerErrors(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	var v struct {
		OK bool `json:"ok"`
	}
	if err := testClient().GetJSON(context.Background(), server.URL, &v); err != nil {
		t.Fatalf("GetJSON failed after retries: %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("expected 3 requests, got %d", got)
	}
	if !v.OK {
		t.Error("expected decoded response after retry")
	}
}

func TestGetJSONDoesNotRetryNotFound(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	err := testClient().GetJSON(context.Background(), server.URL, nil)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("404 must not be retried, got %d requests", got)
	}
}

func TestGetJSONExhaustsRetries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	err := testClient().GetJSON(context.Background(), server.URL, nil)
	if !errors.Is(err, ErrUpstreamDown) {
		t.Fatalf("expected ErrUpstreamDown, got %v", err)
	}
}

func TestPutJSONSendsBodyAndToken(t *testing.T) {
	var gotMethod, gotAuth, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotAuth = r.Header.Get("Authorization")
		buf := make([]byte, r.ContentLength)
		r.Body.Read(buf)
		gotBody = string(buf)
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	c := testClient(WithAuthToken("secret"))
	if err := c.PutJSON(context.Background(), server.URL, "0.1.6", nil); err != nil {
		t.Fatalf("PutJSON failed: %v", err)
	}

	if gotMethod != http.MethodPut {
		t.Errorf("expected PUT, got %s", gotMethod)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("unexpected Authorization header: %q", gotAuth)
	}
	if gotBody != `"0.1.6"` {
		t.Errorf("unexpected body: %s", gotBody)
	}
}

func TestUnexpectedStatusIsHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte("nope"))
	}))
	defer server.Close()

	err := testClient().GetJSON(context.Background(), server.URL, nil)
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected *HTTPError, got %v", err)
	}
	if httpErr.StatusCode != http.StatusForbidden {
		t.Errorf("unexpected status: %d", httpErr.StatusCode)
	}
	if httpErr.Body != "nope" {
		t.Errorf("unexpected body: %q", httpErr.Body)
	}
}

func TestDownload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("tarball-bytes"))
	}))
	defer server.Close()

	body, err := testClient().Download(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	defer body.Close()

	buf := make([]byte, 32)
	n, _ := body.Read(buf)
	if string(buf[:n]) != "tarball-bytes" {
		t.Errorf("unexpected content: %q", buf[:n])
	}
}

func TestTarballURL(t *testing.T) {
	tests := []struct {
		name, version, want string
	}{
		{"react", "18.3.1", "https://registry.npmjs.org/react/-/react-18.3.1.tgz"},
		{"@types/node", "20.11.1", "https://registry.npmjs.org/@types/node/-/node-20.11.1.tgz"},
	}
	for _, tt := range tests {
		if got := TarballURL("https://registry.npmjs.org/", tt.name, tt.version); got != tt.want {
			t.Errorf("TarballURL(%q, %q) = %q, want %q", tt.name, tt.version, got, tt.want)
		}
	}
}

func TestPackageURL(t *testing.T) {
	if got := PackageURL("types-registry", "0.1.6"); got != "https://www.npmjs.com/package/types-registry/v/0.1.6" {
		t.Errorf("unexpected package URL: %q", got)
	}
	if got := PackageURL("types-registry", ""); got != "https://www.npmjs.com/package/types-registry" {
		t.Errorf("unexpected package URL: %q", got)
	}
}

func TestPURL(t *testing.T) {
	if got := PURL("react", "18.3.1"); got != "pkg:npm/react@18.3.1" {
		t.Errorf("unexpected purl: %q", got)
	}
	if got := PURL("@types/react", ""); got != "pkg:npm/@types/react" {
		t.Errorf("unexpected scoped purl: %q", got)
	}
}
