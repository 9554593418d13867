package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	vfs "github.com/themodernway/themodernway-server-core-sub001"
	"github.com/themodernway/themodernway-server-core-sub001/internal/util"
)

type HTTPMethod = string

const (
	HTTPMethodGet  HTTPMethod = "GET"
	HTTPMethodPost HTTPMethod = "POST"
)

var ErrHTTPStatus = errors.New("unexpected http status")

// HTTPClient is the part of *http.Client the http resources need
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPSource contains http-specific source fields
type HTTPSource struct {
	Type    string            `json:"type"`
	URL     string            `json:"url"`
	Method  *HTTPMethod       `json:"method,omitempty"` // Default is GET
	Headers map[string]string `json:"headers,omitempty"`
}

// HTTPProvider creates [HTTPResource]s that share one client
type HTTPProvider struct {
	client HTTPClient
}

func NewHTTPProvider(client HTTPClient) *HTTPProvider {
	return &HTTPProvider{client: client}
}

// RegisterHTTP registers an [HTTPProvider] under "http"
func RegisterHTTP(r *Registry, client HTTPClient) {
	r.Register(HTTPType, NewHTTPProvider(client))
}

func (p *HTTPProvider) NewResource(raw []byte) (vfs.Resource, error) {
	var src HTTPSource
	if err := json.Unmarshal(raw, &src); err != nil {
		return nil, err
	}
	u, err := validateURL(src.URL)
	if err != nil {
		return nil, err
	}
	src.URL = u
	if src.Method != nil {
		switch *src.Method {
		case HTTPMethodGet, HTTPMethodPost:
		default:
			return nil, fmt.Errorf("unsupported http method %q", *src.Method)
		}
	}
	return &HTTPResource{client: p.client, source: src}, nil
}

func validateURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("url is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("invalid url %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid url %q: missing host", raw)
	}
	if u.User != nil {
		return "", fmt.Errorf("invalid url %q: user info is not allowed", raw)
	}
	return u.String(), nil
}

// HTTPResource implements [vfs.Resource] by fetching a URL
type HTTPResource struct {
	client HTTPClient
	source HTTPSource
}

var _ vfs.Resource = (*HTTPResource)(nil)

func (h *HTTPResource) URL() string {
	return h.source.URL
}

func (h *HTTPResource) method() HTTPMethod {
	if h.source.Method != nil {
		return *h.source.Method
	}
	return HTTPMethodGet
}

func (h *HTTPResource) Open(ctx context.Context) (io.ReadCloser, error) {
	logger := util.GetLogger("HTTPResource")

	req, err := http.NewRequestWithContext(ctx, h.method(), h.source.URL, nil)
	if err != nil {
		return nil, err
	}
	// Add custom headers
	for k, v := range h.source.Headers {
		req.Header.Set(k, v)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s %s returned %d", ErrHTTPStatus, req.Method, h.source.URL, resp.StatusCode)
	}
	logger.Debug().Str("url", h.source.URL).Int64("contentLength", resp.ContentLength).Msg("Opened http resource")
	return resp.Body, nil
}
