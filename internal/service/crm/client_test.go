package crm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	pkgcache "SellingView/pkg/cache"
)

func TestReferencePriceCachedAcrossCalls(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/pricebook-entry") {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		hits++
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"price": 12.5, "active": true}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "token", 2*time.Second, nil, 0, 0, nil)
	client.SetPriceCache(pkgcache.NewMemoryCache(pkgcache.WithMemoryMaxSize(16)))

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		price, ok, err := client.ReferencePrice(ctx, "prod-1")
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
		if !ok || price != 12.5 {
			t.Fatalf("call %d: got price=%v ok=%v, want 12.5 true", i, price, ok)
		}
	}
	if hits != 1 {
		t.Fatalf("expected a single upstream fetch, got %d", hits)
	}
}

func TestReferencePriceCachesInactiveEntry(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"price": 9.0, "active": false}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "token", 2*time.Second, nil, 0, 0, nil)
	client.SetPriceCache(pkgcache.NewMemoryCache(pkgcache.WithMemoryMaxSize(16)))

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		price, ok, err := client.ReferencePrice(ctx, "prod-2")
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
		if ok || price != 0 {
			t.Fatalf("call %d: got price=%v ok=%v, want 0 false", i, price, ok)
		}
	}
	if hits != 1 {
		t.Fatalf("expected a single upstream fetch, got %d", hits)
	}
}
