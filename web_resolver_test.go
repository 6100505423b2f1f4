package apexsync_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"

	"github.com/folded-dev/apexsync"
)

func TestLookupJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if format := r.URL.Query().Get("format"); format != "json" {
			t.Errorf("expected format=json query; got %q", format)
		}
		io.WriteString(w, `{"ip":"192.168.2.1"}`)
	}))
	defer srv.Close()

	wr, err := apexsync.WebResolver(srv.URL + "?format=json")
	if err != nil {
		t.Fatalf("WebResolver failed: %s", err)
	}
	res, err := wr.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve failed: %s", err)
	}
	if expected := netip.MustParseAddr("192.168.2.1"); res != expected {
		t.Fatalf("Expected %q; got %q", expected, res)
	}
}

func TestLookupPlainText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "192.168.2.1\n")
	}))
	defer srv.Close()

	wr, err := apexsync.WebResolver(srv.URL)
	if err != nil {
		t.Fatalf("WebResolver failed: %s", err)
	}
	res, err := wr.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve failed: %s", err)
	}
	if expected := netip.MustParseAddr("192.168.2.1"); res != expected {
		t.Fatalf("Expected %q; got %q", expected, res)
	}
}

func TestLookupNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		io.WriteString(w, "try later")
	}))
	defer srv.Close()

	wr, err := apexsync.WebResolver(srv.URL)
	if err != nil {
		t.Fatalf("WebResolver failed: %s", err)
	}
	_, err = wr.Resolve(context.Background())
	var statusErr apexsync.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected a StatusError; got %v", err)
	}
	if statusErr.Response.Status != http.StatusServiceUnavailable {
		t.Errorf("expected status 503; got %d", statusErr.Response.Status)
	}
}

func TestMismatch(t *testing.T) {
	ips := []string{"192.168.2.1", "10.0.0.10", "127.0.0.1"}
	var srvs []string
	for _, ip := range ips {
		ip := ip
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, ip)
		}))
		defer srv.Close()
		srvs = append(srvs, srv.URL)
	}
	wr, err := apexsync.WebResolver(srvs...)
	if err != nil {
		t.Fatalf("WebResolver failed: %s", err)
	}
	res, err := wr.Resolve(context.Background())
	if err == nil {
		t.Fatalf("Expected error response; got err == nil")
	}
	if (res != netip.Addr{}) {
		t.Fatalf("Expected the zero Addr; got %+v", res)
	}
}

func TestOneFailure(t *testing.T) {
	ips := []string{"192.168.2.1", "invalid ip", "192.168.2.1"}
	var srvs []string
	for _, ip := range ips {
		ip := ip
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, ip)
		}))
		defer srv.Close()
		srvs = append(srvs, srv.URL)
	}
	wr, err := apexsync.WebResolver(srvs...)
	if err != nil {
		t.Fatalf("WebResolver failed: %s", err)
	}
	res, err := wr.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve failed: %s", err)
	}
	if expected := netip.MustParseAddr("192.168.2.1"); res != expected {
		t.Fatalf("Expected %q; got %q", expected, res)
	}
}

func TestTwoFailures(t *testing.T) {
	ips := []string{"192.168.2.1", "a", "a"}
	var srvs []string
	for _, ip := range ips {
		ip := ip
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, ip)
		}))
		defer srv.Close()
		srvs = append(srvs, srv.URL)
	}
	wr, err := apexsync.WebResolver(srvs...)
	if err != nil {
		t.Fatalf("WebResolver failed: %s", err)
	}
	res, err := wr.Resolve(context.Background())
	if err == nil {
		t.Fatalf("Expected error response; got err == nil")
	}
	if (res != netip.Addr{}) {
		t.Fatalf("Expected the zero Addr; got %+v", res)
	}
}

func TestFromString(t *testing.T) {
	r, err := apexsync.FromString("5.6.7.8")
	if err != nil {
		t.Fatalf("FromString failed: %s", err)
	}
	res, err := r.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve failed: %s", err)
	}
	if expected := netip.MustParseAddr("5.6.7.8"); res != expected {
		t.Fatalf("Expected %q; got %q", expected, res)
	}

	r, _ = apexsync.FromString("not an ip")
	if _, err := r.Resolve(context.Background()); err == nil {
		t.Fatal("expected an error for an unparseable address; got err == nil")
	}
}
