package apexsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"sync"
)

// DefaultIPService is the public IP lookup endpoint used when no service URLs
// are configured.
const DefaultIPService = "https://api.ipify.org?format=json"

// Resolver finds the public IP address that the apex record should carry.
type Resolver interface {
	Resolve(context.Context) (netip.Addr, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(context.Context) (netip.Addr, error)

func (f ResolverFunc) Resolve(ctx context.Context) (netip.Addr, error) { return f(ctx) }

// WebResolver constructs a resolver which uses external web services to look
// up a "public" IP address. With no arguments it uses [DefaultIPService].
//
// Each serviceURL must speak http and return status "200 OK",
// with either an ipify-style JSON object ({"ip": "<address>"})
// or a valid address as the first line of the response body.
// All other responses are considered an error.
//
// If only one serviceURL is given,
// then the resolver will simply return the response.
// If multiple are given,
// then the resolver will request from up to three of them and only return
// successfully if the first two non-error responses agreed on the IP.
// This approach is taken due to the sensitive nature of having control over DNS records.
func WebResolver(serviceURL ...string) (Resolver, error) {
	if len(serviceURL) == 0 {
		serviceURL = []string{DefaultIPService}
	}
	var urls []*url.URL
	for _, u := range serviceURL {
		pu, err := url.Parse(u)
		if err != nil {
			return nil, fmt.Errorf("error parsing URL: %w", err)
		}
		urls = append(urls, pu)
	}
	return &webResolver{serviceURLs: urls, transport: &transport{}}, nil
}

type webResolver struct {
	transport   *transport
	serviceURLs []*url.URL
}

// Resolve implements apexsync.Resolver.
func (wr *webResolver) Resolve(ctx context.Context) (netip.Addr, error) {
	if len(wr.serviceURLs) == 0 {
		return netip.Addr{}, errors.New("no external IP lookup services were provided")
	}
	if len(wr.serviceURLs) == 1 {
		return wr.lookup(ctx, wr.serviceURLs[0])
	}

	// With multiple services configured, up to three are queried and the
	// answer only counts when the first two error-free responses match.
	// This keeps a single compromised or misbehaving service from steering
	// the zone somewhere else.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type result struct {
		addr netip.Addr
		err  error
	}

	results := make(chan result, 2)
	const useCount = 3

	resolvercount := len(wr.serviceURLs)
	var wg sync.WaitGroup
	wg.Add(useCount)
	for i := 0; i < useCount; i++ {
		u := wr.serviceURLs[i%resolvercount]
		go func() {
			defer wg.Done()
			r := result{}
			r.addr, r.err = wr.lookup(ctx, u)

			select {
			case results <- r:
			default:
			}
		}()
	}
	go func() { wg.Wait(); close(results) }()

	resultCount := 0
	var errs []error
	var ip netip.Addr
	for r := range results {
		if r.err != nil {
			errs = append(errs, r.err)
			continue
		}
		resultCount++ // don't increase the result count for errors
		if (ip == netip.Addr{}) {
			ip = r.addr
			continue
		}
		if ip == r.addr {
			return ip, nil
		}
	}
	if resultCount < 2 {
		return netip.Addr{}, fmt.Errorf("not enough IP services responded without errors: %w", errors.Join(errs...))
	}

	return netip.Addr{}, errors.New("IP services did not agree on our IP")
}

func (wr *webResolver) lookup(ctx context.Context, u *url.URL) (netip.Addr, error) {
	resp, err := wr.transport.exchange(ctx, http.MethodGet, u.String(), map[string]string{"Cache-Control": "no-cache"}, nil, nil)
	if err != nil {
		return netip.Addr{}, err
	}
	if resp.Status != http.StatusOK {
		return netip.Addr{}, StatusError{Method: http.MethodGet, URL: u.String(), Response: resp}
	}
	return parseAddrResponse(resp.Content)
}

// parseAddrResponse accepts either the ipify JSON shape or a bare address line.
func parseAddrResponse(content string) (netip.Addr, error) {
	trimmed := strings.TrimSpace(content)
	if strings.HasPrefix(trimmed, "{") {
		var body struct {
			IP string `json:"ip"`
		}
		if err := json.Unmarshal([]byte(trimmed), &body); err != nil {
			return netip.Addr{}, fmt.Errorf("error parsing JSON response body: %w", err)
		}
		trimmed = body.IP
	}
	if line, _, found := strings.Cut(trimmed, "\n"); found {
		trimmed = strings.TrimSpace(line)
	}
	addr, err := netip.ParseAddr(trimmed)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("error parsing IP address from response body: %w", err)
	}
	return addr, nil
}
