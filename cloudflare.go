package apexsync

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/netip"
	"net/url"
	"time"
)

// DefaultAPIEndpoint is the base URL for Cloudflare API v4.
const DefaultAPIEndpoint = "https://api.cloudflare.com/client/v4"

// Record is a zone apex A record as currently published by the provider.
type Record struct {
	IP netip.Addr
	ID string
}

// Provider is implemented by DNS providers that manage a zone apex record.
type Provider interface {
	ApexRecord(ctx context.Context) (Record, error)
	UpdateApexRecord(ctx context.Context, current Record, addr netip.Addr) error
}

// dnsRecord mirrors the fields of a Cloudflare DNS record that this program reads.
type dnsRecord struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

type recordList struct {
	Result []dnsRecord `json:"result"`
}

// updateRequest is the PATCH body for a record update.
type updateRequest struct {
	Comment string `json:"comment"`
	Content string `json:"content"`
}

func newCloudflareProvider(creds Credentials) *cloudflareProvider {
	return &cloudflareProvider{
		endpoint:  DefaultAPIEndpoint,
		creds:     creds,
		transport: &transport{},
		logger:    discard,
		now:       time.Now,
	}
}

// cloudflareProvider implements Provider against the Cloudflare v4 REST API.
type cloudflareProvider struct {
	endpoint  string
	creds     Credentials
	transport *transport
	logger    *log.Logger
	now       func() time.Time
}

func (cf *cloudflareProvider) authHeaders() map[string]string {
	return map[string]string{"Authorization": "Bearer " + cf.creds.APIKey}
}

// ApexRecord looks up the zone's apex A record by exact name and type.
// The filtered query must match exactly one record:
// zero matches means there is nothing to update (records are never created here),
// and more than one means the zone holds duplicate apex records that an
// update could flap between.
func (cf *cloudflareProvider) ApexRecord(ctx context.Context) (Record, error) {
	u := fmt.Sprintf("%s/zones/%s/dns_records", cf.endpoint, cf.creds.ZoneID)
	params := url.Values{}
	params.Set("name", cf.creds.ZoneName)
	params.Set("type", "A")

	resp, err := cf.transport.exchange(ctx, http.MethodGet, u, cf.authHeaders(), nil, params)
	if err != nil {
		return Record{}, fmt.Errorf("error listing dns records: %w", err)
	}
	if resp.Status != http.StatusOK {
		return Record{}, StatusError{Method: http.MethodGet, URL: u, Response: resp}
	}

	var list recordList
	if err := json.Unmarshal([]byte(resp.Content), &list); err != nil {
		return Record{}, fmt.Errorf("error parsing dns record list: %w", err)
	}
	switch n := len(list.Result); {
	case n == 0:
		return Record{}, fmt.Errorf("no A record named %q exists in zone %s - nothing to update", cf.creds.ZoneName, cf.creds.ZoneID)
	case n > 1:
		return Record{}, fmt.Errorf("found %d A records named %q in zone %s; expected exactly one", n, cf.creds.ZoneName, cf.creds.ZoneID)
	}

	rec := list.Result[0]
	addr, err := netip.ParseAddr(rec.Content)
	if err != nil {
		return Record{}, fmt.Errorf("error parsing IP from record content: %w", err)
	}
	cf.logger.Printf("found apex record %s with content %s\n", rec.ID, addr)
	return Record{IP: addr, ID: rec.ID}, nil
}

// UpdateApexRecord patches the record's content with addr and leaves a
// comment recording the previous address and the local time of the change.
func (cf *cloudflareProvider) UpdateApexRecord(ctx context.Context, current Record, addr netip.Addr) error {
	u := fmt.Sprintf("%s/zones/%s/dns_records/%s", cf.endpoint, cf.creds.ZoneID, current.ID)
	headers := cf.authHeaders()
	headers["Content-Type"] = "application/json"
	body := updateRequest{
		Comment: fmt.Sprintf("Updated from %s on %s", current.IP, cf.now().Format("2006-01-02 at 15:04:05")),
		Content: addr.String(),
	}

	resp, err := cf.transport.exchange(ctx, http.MethodPatch, u, headers, body, nil)
	if err != nil {
		return fmt.Errorf("error updating dns record %s: %w", current.ID, err)
	}
	if resp.Status != http.StatusOK {
		return StatusError{Method: http.MethodPatch, URL: u, Response: resp}
	}
	cf.logger.Printf("record %s updated to %s\n", current.ID, addr)
	return nil
}
