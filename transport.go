package apexsync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// RequestTimeout bounds every HTTP exchange made by this package.
// It applies even when the caller supplied context.Background,
// so a single hung request can never wedge a run indefinitely.
const RequestTimeout = 30 * time.Second

// Response is the normalized result of a single HTTP exchange.
// Content holds the raw response body as text.
type Response struct {
	Status  int
	Header  http.Header
	Content string
}

type transport struct {
	httpClient *http.Client
}

func (t *transport) client() *http.Client {
	if t == nil || t.httpClient == nil {
		return http.DefaultClient
	}
	return t.httpClient
}

// exchange performs one HTTP request and reads the whole response.
// A non-nil body is JSON-encoded; non-nil params are appended to rawurl as a
// query string. The returned error covers transport failures only -
// a completed exchange always yields a Response, whatever its status.
func (t *transport) exchange(ctx context.Context, method, rawurl string, headers map[string]string, body any, params url.Values) (Response, error) {
	if params != nil {
		rawurl = rawurl + "?" + params.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return Response{}, fmt.Errorf("error encoding request body: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	ctx, cancel := context.WithTimeout(ctx, RequestTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, method, rawurl, reqBody)
	if err != nil {
		return Response{}, fmt.Errorf("error creating request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := t.client().Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("error reading response body: %w", err)
	}

	return Response{
		Status:  resp.StatusCode,
		Header:  resp.Header,
		Content: string(content),
	}, nil
}
