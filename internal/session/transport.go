package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Hersthz/SWP391---EV-Charging-Station-Management-System-sub001/internal/shared"
)

const defaultBaseURL = "http://127.0.0.1:3000"

// Transport performs a single request/response exchange.
type Transport interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// HTTPTransport implements [Transport] over an [http.Client].
//
// Non-2xx responses are returned as [*StatusError].
type HTTPTransport struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

// NewHTTPTransport creates a transport rooted at baseURL.
func NewHTTPTransport(baseURL string, client *http.Client) *HTTPTransport {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &HTTPTransport{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
	}
}

// WithUserAgent sets the User-Agent header sent on every request.
func (t *HTTPTransport) WithUserAgent(ua string) *HTTPTransport {
	t.userAgent = ua
	return t
}

// NewHTTPClient builds the [http.Client] behind the transport.
//
// When sendCredentials is set the client carries jar, so session cookies set by the backend ride along on later calls.
func NewHTTPClient(timeout time.Duration, sendCredentials bool, jar http.CookieJar) *http.Client {
	client := &http.Client{Timeout: timeout}
	if sendCredentials {
		client.Jar = jar
	}
	return client
}

// Do sends req and returns the decoded response.
func (t *HTTPTransport) Do(ctx context.Context, req *Request) (*Response, error) {
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, t.baseURL+req.Path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, values := range req.Headers {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}

	if req.Body != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	if httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", acceptFor(req.Expect))
	}

	if req.ID != "" {
		httpReq.Header.Set("X-Request-ID", req.ID)
	}

	if t.userAgent != "" {
		httpReq.Header.Set("User-Agent", t.userAgent)
	}

	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrTransport, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{
			Method:     req.Method,
			Path:       req.Path,
			StatusCode: resp.StatusCode,
			Headers:    resp.Header,
			Body:       data,
		}
	}

	apiResp := &Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       data,
	}

	if req.Expect == ExpectJSON && len(data) > 0 {
		var jsonData any
		if err := json.Unmarshal(data, &jsonData); err == nil {
			apiResp.IsJSON = true
			apiResp.JSONData = jsonData
		}
	}

	return apiResp, nil
}

func acceptFor(e Expect) string {
	switch e {
	case ExpectText:
		return "text/plain, */*"
	case ExpectBinary:
		return "application/octet-stream, */*"
	default:
		return "application/json"
	}
}
