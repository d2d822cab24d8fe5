package restclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestDo_SendsJSONAndBearer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/items" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("Content-Type = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"42"}`))
	}))
	defer srv.Close()

	c := New(srv.URL+"/api/", time.Second)
	var out struct {
		ID string `json:"id"`
	}
	if err := c.Do(context.Background(), http.MethodPost, "/items", "tok", map[string]string{"name": "x"}, &out); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if out.ID != "42" {
		t.Errorf("out.ID = %q", out.ID)
	}
}

func TestDo_ErrorDetail(t *testing.T) {
	testCases := []struct {
		name       string
		status     int
		body       string
		wantDetail string
	}{
		{"string detail", http.StatusUnauthorized, `{"detail":"Invalid email or password"}`, "Invalid email or password"},
		{"validation list", http.StatusUnprocessableEntity, `{"detail":[{"msg":"field required"},{"msg":"too short"}]}`, "field required; too short"},
		{"message field", http.StatusBadRequest, `{"message":"bad"}`, "bad"},
		{"no json", http.StatusInternalServerError, `oops`, ""},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			err := New(srv.URL, time.Second).Do(context.Background(), http.MethodPost, "/x", "", nil, nil)
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("err = %T %v, want *APIError", err, err)
			}
			if _, ok := err.(*APIError); !ok {
				t.Errorf("err should be a bare *APIError, got %T", err)
			}
			if apiErr.StatusCode != tc.status || apiErr.Detail != tc.wantDetail {
				t.Errorf("APIError = %+v", apiErr)
			}
			if tc.wantDetail != "" && err.Error() != tc.wantDetail {
				t.Errorf("Error() = %q, want detail verbatim", err.Error())
			}
			if tc.wantDetail == "" && err.Error() != http.StatusText(tc.status) {
				t.Errorf("Error() = %q, want status text", err.Error())
			}
		})
	}
}

func TestDo_RetriesGETOnly(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, WithMaxRetries(2), WithRetryWait(time.Millisecond))
	if err := c.Do(context.Background(), http.MethodGet, "/me", "", nil, &struct{}{}); err != nil {
		t.Fatalf("GET with retries: %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("GET attempts = %d, want 3", got)
	}

	calls.Store(0)
	err := c.Do(context.Background(), http.MethodPost, "/refresh", "", nil, nil)
	if StatusCode(err) != http.StatusServiceUnavailable {
		t.Errorf("POST err = %v, want 503", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("POST attempts = %d, want 1", got)
	}
}

func TestDo_NoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, WithMaxRetries(3), WithRetryWait(time.Millisecond))
	err := c.Do(context.Background(), http.MethodGet, "/me", "stale", nil, nil)
	if !IsUnauthorized(err) {
		t.Errorf("err = %v, want unauthorized", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("attempts = %d, want 1", got)
	}
}

func TestDo_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	err := New(srv.URL, 50*time.Millisecond).Do(context.Background(), http.MethodPost, "/slow", "", nil, nil)
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if StatusCode(err) != 0 {
		t.Errorf("timeout should not be an APIError, got %v", err)
	}
}

func TestDo_EmptyBodyWithOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()
	var out map[string]any
	if err := New(srv.URL, time.Second).Do(context.Background(), http.MethodGet, "/x", "", nil, &out); err == nil {
		t.Fatal("expected error for empty body")
	}
}

func TestIsUnauthorized(t *testing.T) {
	if IsUnauthorized(errors.New("network")) {
		t.Error("plain error is not unauthorized")
	}
	if !IsUnauthorized(&APIError{StatusCode: http.StatusForbidden}) {
		t.Error("403 should count as unauthorized")
	}
}
