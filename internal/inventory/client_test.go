package inventory

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"stockwatch/config"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(&config.InventoryConfig{
		BaseURL:           srv.URL,
		AccessToken:       "access",
		SecretToken:       "secret",
		Timeout:           2 * time.Second,
		RequestsPerMinute: 6000,
	}, nil)
}

func TestLookupPicksMatchingVariant(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Access-Token") != "access" || r.Header.Get("X-Secret-Token") != "secret" {
			t.Errorf("missing auth headers")
		}
		if got := r.URL.Query().Get("code"); got != "789" {
			t.Errorf("code = %q, want 789", got)
		}
		w.Write([]byte(`{"data":[
			{"id":1,"name":"Filter A","stock":4},
			{"id":2,"name":"Filter B","stock":"9"}
		]}`))
	})

	variant := "2"
	info, err := c.Lookup(context.Background(), "789", &variant)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if info.Name != "Filter B" || info.Stock != 9 || info.VariantID != "2" {
		t.Fatalf("unexpected info: %+v", info)
	}
}

func TestLookupFallsBackToFirstVariant(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{"id":1,"name":"Filter A","stock":4},{"id":2,"name":"Filter B","stock":9}]}`))
	})

	// Unknown variant id falls back to the first record.
	variant := "999"
	info, err := c.Lookup(context.Background(), "789", &variant)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if info.Name != "Filter A" || info.Stock != 4 {
		t.Fatalf("unexpected info: %+v", info)
	}

	// No variant id at all behaves the same.
	info, err = c.Lookup(context.Background(), "789", nil)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if info.VariantID != "1" {
		t.Fatalf("VariantID = %q, want 1", info.VariantID)
	}
}

func TestLookupNameFallback(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{"id":1,"stock":"not-a-number"}]}`))
	})

	info, err := c.Lookup(context.Background(), "555", nil)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if info.Name != "Product 555" {
		t.Fatalf("Name = %q", info.Name)
	}
	if info.Stock != 0 {
		t.Fatalf("Stock = %d, want 0 on parse failure", info.Stock)
	}
}

func TestLookupNotFound(t *testing.T) {
	t.Run("empty data", func(t *testing.T) {
		c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"data":[]}`))
		})
		_, err := c.Lookup(context.Background(), "000", nil)
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("err = %v, want ErrNotFound", err)
		}
	})

	t.Run("404 status", func(t *testing.T) {
		c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})
		_, err := c.Lookup(context.Background(), "000", nil)
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("err = %v, want ErrNotFound", err)
		}
	})
}

func TestLookupUpstreamError(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	_, err := c.Lookup(context.Background(), "789", nil)
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want transport error", err)
	}
}

func TestLookupTimeout(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	})
	c.httpClient.Timeout = 20 * time.Millisecond

	_, err := c.Lookup(context.Background(), "789", nil)
	if err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestConfigured(t *testing.T) {
	c := NewClient(&config.InventoryConfig{}, nil)
	if c.Configured() {
		t.Fatal("empty config should not be configured")
	}
	c = NewClient(&config.InventoryConfig{BaseURL: "http://x", AccessToken: "a", SecretToken: "s"}, nil)
	if !c.Configured() {
		t.Fatal("expected configured")
	}
}
