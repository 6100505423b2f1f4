package apexsync

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
)

var discard = log.New(io.Discard, "", log.LstdFlags)

// New assembles a Client that reconciles the apex record of the zone named
// by creds against this device's current public IP address.
func New(creds Credentials, options ...Option) (Client, error) {
	if creds.APIKey == "" || creds.ZoneName == "" || creds.ZoneID == "" {
		return nil, fmt.Errorf("apexsync.New: credentials are incomplete - use apexsync.ResolveCredentials")
	}
	c := &client{
		creds:    creds,
		provider: newCloudflareProvider(creds),
		logger:   discard,
	}
	for i, opt := range options {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("apexsync.New: option %d returned an error: %s", i, err)
		}
	}

	if c.resolver == nil {
		r, err := WebResolver()
		if err != nil {
			return nil, fmt.Errorf("apexsync.New: %w", err)
		}
		c.resolver = r
	}

	// this lets us propagate the logger and http client to dependencies that use them if the options were called before all of the dependencies were registered
	withLogger(c.logger)(c)
	withHTTPClient(c.httpClient)(c)
	return c, nil
}

type Option func(*client) error

// UsingResolver replaces the default public IP resolver.
// A nil resolver restores the default.
func UsingResolver(resolver Resolver) Option {
	return func(c *client) error {
		c.resolver = resolver
		return nil
	}
}

// UsingProvider replaces the Cloudflare provider, e.g. with a test double.
func UsingProvider(provider Provider) Option {
	return func(c *client) error {
		if provider == nil {
			return fmt.Errorf("provider cannot be nil")
		}
		c.provider = provider
		return nil
	}
}

// UsingEndpoint points the Cloudflare provider at an alternate API base URL.
func UsingEndpoint(endpoint string) Option {
	return func(c *client) error {
		if cf, ok := c.provider.(*cloudflareProvider); ok {
			cf.endpoint = endpoint
		}
		return nil
	}
}

// UsingHTTPClient supplies the *http.Client used for every exchange.
func UsingHTTPClient(httpclient *http.Client) Option {
	return func(c *client) error {
		if httpclient == nil {
			httpclient = http.DefaultClient
		}
		c.httpClient = httpclient
		return nil
	}
}

func withHTTPClient(httpclient *http.Client) Option {
	return func(c *client) error {
		if httpclient == nil {
			return nil
		}
		if cf, ok := c.provider.(*cloudflareProvider); ok {
			cf.transport.httpClient = httpclient
		}
		if wr, ok := c.resolver.(*webResolver); ok {
			wr.transport.httpClient = httpclient
		}
		return nil
	}
}

// WithDryRun makes Run report a divergence without patching the record.
func WithDryRun(dryRun bool) Option {
	return func(c *client) error {
		c.dryRun = dryRun
		return nil
	}
}

func WithLogger(logger *log.Logger) Option {
	return func(c *client) error {
		if logger == nil {
			logger = discard
		}
		c.logger = logger
		return nil
	}
}

func withLogger(logger *log.Logger) Option {
	return func(c *client) error {
		if logger == nil {
			logger = discard
		}
		type setLogger interface {
			SetLogger(*log.Logger)
		}

		switch p := c.provider.(type) {
		case *cloudflareProvider:
			p.logger = logger
		case setLogger:
			p.SetLogger(logger)
		}

		if r, ok := c.resolver.(setLogger); ok {
			r.SetLogger(logger)
		}
		return nil
	}
}

// Client runs the reconcile workflow.
type Client interface {
	Run(ctx context.Context) error
}

type client struct {
	resolver   Resolver
	provider   Provider
	creds      Credentials
	logger     *log.Logger
	httpClient *http.Client
	dryRun     bool
}

// Run performs one reconcile pass: resolve the public IP, read the apex
// record, and patch the record only when the two disagree.
// At most one mutating call is made, and any error stops the sequence.
func (c *client) Run(ctx context.Context) error {
	publicIP, err := c.resolver.Resolve(ctx)
	if err != nil {
		return fmt.Errorf("error resolving public IP: %w", err)
	}
	c.logger.Printf("got public IP: %s\n", publicIP)

	record, err := c.provider.ApexRecord(ctx)
	if err != nil {
		return fmt.Errorf("error reading apex record for %s: %w", c.creds.ZoneName, err)
	}

	if publicIP == record.IP {
		c.logger.Printf("IPs are consistent (apparent=%s | recorded=%s)\n", publicIP, record.IP)
		return nil
	}

	c.logger.Printf("IPs do not match (apparent=%s | recorded=%s)\n", publicIP, record.IP)
	if c.dryRun {
		c.logger.Printf("dry run: leaving record %s at %s\n", record.ID, record.IP)
		return nil
	}
	if err := c.provider.UpdateApexRecord(ctx, record, publicIP); err != nil {
		return fmt.Errorf("error updating %s with new IP: %w", c.creds.ZoneName, err)
	}
	c.logger.Println("record content and comment updated successfully")
	return nil
}
