package enrich

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestLookupHappyPath(t *testing.T) {
	weather := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"daily":{"temperature_2m_max":[31.6]}}`))
	}))
	defer weather.Close()
	geo := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/41.") {
			t.Errorf("unexpected geo path %q", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"city":"Alexandria","latitude":31.2,"longitude":29.9}`))
	}))
	defer geo.Close()

	c := NewClientWith(http.DefaultClient, geo.URL, weather.URL)
	fact := c.Lookup(context.Background(), "41.33.12.7")
	if fact.City != "Alexandria" {
		t.Fatalf("city: want Alexandria, got %q", fact.City)
	}
	if fact.Temp != "32" {
		t.Fatalf("temp: want rounded 32, got %q", fact.Temp)
	}
}

func TestLookupGeoFailureFallsBack(t *testing.T) {
	geo := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer geo.Close()

	c := NewClientWith(http.DefaultClient, geo.URL, geo.URL)
	if fact := c.Lookup(context.Background(), "41.33.12.7"); fact != Default {
		t.Fatalf("want Default on geo failure, got %+v", fact)
	}
}

func TestLookupWeatherFailureKeepsCity(t *testing.T) {
	geo := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"city":"Giza","latitude":30.0,"longitude":31.2}`))
	}))
	defer geo.Close()
	weather := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer weather.Close()

	c := NewClientWith(http.DefaultClient, geo.URL, weather.URL)
	fact := c.Lookup(context.Background(), "41.33.12.7")
	if fact.City != "Giza" || fact.Temp != Default.Temp {
		t.Fatalf("want city with default temp, got %+v", fact)
	}
}

func TestLookupPrivateIPSkipsNetwork(t *testing.T) {
	called := false
	geo := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer geo.Close()

	c := NewClientWith(http.DefaultClient, geo.URL, geo.URL)
	for _, ip := range []string{"10.0.0.5", "172.16.1.1", "192.168.1.2", "127.0.0.1", ""} {
		if fact := c.Lookup(context.Background(), ip); fact != Default {
			t.Fatalf("ip %q: want Default, got %+v", ip, fact)
		}
	}
	if called {
		t.Fatalf("private IPs must not hit the geo service")
	}
}
