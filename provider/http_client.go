package provider

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/mstgnz/unipay/infra/config"
	"github.com/mstgnz/unipay/infra/errs"
	"github.com/mstgnz/unipay/infra/logger"
	"github.com/mstgnz/unipay/infra/opensearch"
)

// DefaultTimeout applies when a configuration leaves Timeout unset
const DefaultTimeout = 30 * time.Second

// HTTPClientConfig represents configuration for HTTP client
type HTTPClientConfig struct {
	Provider           string
	BaseURL            string
	Timeout            time.Duration
	InsecureSkipVerify bool
	ProxyURL           string
	RetryMax           int
	DefaultHeaders     map[string]string
}

// NewHTTPClientConfig binds a connector transport to baseURL
func NewHTTPClientConfig(provider, baseURL string, timeout time.Duration, transport config.TransportOptions) *HTTPClientConfig {
	headers := map[string]string{
		"User-Agent": "unipay/1.0",
	}
	for k, v := range transport.Headers {
		headers[k] = v
	}

	return &HTTPClientConfig{
		Provider:           provider,
		BaseURL:            baseURL,
		Timeout:            timeout,
		InsecureSkipVerify: transport.InsecureSkipVerify,
		ProxyURL:           transport.ProxyURL,
		RetryMax:           transport.RetryMax,
		DefaultHeaders:     headers,
	}
}

// HTTPRequest represents a standardized HTTP request
type HTTPRequest struct {
	Method      string
	Endpoint    string
	Headers     map[string]string
	Body        any
	QueryParams map[string]string
}

// HTTPResponse represents a standardized HTTP response
type HTTPResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// HTTPClient provides standardized HTTP operations for gateway connectors
type HTTPClient struct {
	config *HTTPClientConfig
	client *retryablehttp.Client
}

// NewHTTPClient creates a new connector HTTP client
func NewHTTPClient(cfg *HTTPClientConfig) (*HTTPClient, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{
		InsecureSkipVerify: cfg.InsecureSkipVerify,
	}
	if cfg.ProxyURL != "" {
		proxy, err := url.Parse(cfg.ProxyURL)
		if err != nil {
			return nil, errs.InvalidField("proxyUrl", "is not a valid URL")
		}
		transport.Proxy = http.ProxyURL(proxy)
	}

	client := retryablehttp.NewClient()
	client.HTTPClient = &http.Client{
		Timeout:   cfg.Timeout,
		Transport: transport,
	}
	client.RetryMax = cfg.RetryMax
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	client.Logger = leveledLogger{provider: cfg.Provider}

	return &HTTPClient{
		config: cfg,
		client: client,
	}, nil
}

// BaseURL returns the endpoint this client is bound to
func (c *HTTPClient) BaseURL() string {
	return c.config.BaseURL
}

// Timeout returns the per-request timeout
func (c *HTTPClient) Timeout() time.Duration {
	return c.config.Timeout
}

// SendJSON sends a JSON request and returns the response. A nil Body sends
// no payload.
func (c *HTTPClient) SendJSON(ctx context.Context, req *HTTPRequest) (*HTTPResponse, error) {
	var body []byte
	if req.Body != nil {
		var err error
		if body, err = json.Marshal(req.Body); err != nil {
			return nil, errors.Wrap(err, "failed to marshal JSON body")
		}
	}
	return c.send(ctx, req, body, "application/json")
}

// SendXML sends an XML request and returns the response
func (c *HTTPClient) SendXML(ctx context.Context, req *HTTPRequest) (*HTTPResponse, error) {
	body, err := xml.Marshal(req.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal XML body")
	}
	return c.send(ctx, req, append([]byte(xml.Header), body...), "text/xml; charset=utf-8")
}

// SendForm sends a form-encoded request and returns the response
func (c *HTTPClient) SendForm(ctx context.Context, req *HTTPRequest) (*HTTPResponse, error) {
	values := url.Values{}
	if form, ok := req.Body.(map[string]string); ok {
		for key, value := range form {
			values.Set(key, value)
		}
	}
	return c.send(ctx, req, []byte(values.Encode()), "application/x-www-form-urlencoded")
}

func (c *HTTPClient) send(ctx context.Context, req *HTTPRequest, body []byte, contentType string) (*HTTPResponse, error) {
	fullURL, err := c.buildURL(req.Endpoint, req.QueryParams)
	if err != nil {
		return nil, err
	}

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, req.Method, fullURL, body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create HTTP request")
	}

	for key, value := range c.config.DefaultHeaders {
		httpReq.Header.Set(key, value)
	}
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}
	httpReq.Header.Set("Content-Type", contentType)

	logger.Debug("Sending gateway request", logger.LogContext{
		Provider: c.config.Provider,
		Fields: map[string]any{
			"method": req.Method,
			"url":    fullURL,
			"body":   opensearch.SanitizeForLog(string(body)),
		},
	})

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, errs.Gateway(errors.Wrap(err, "HTTP request failed"), c.config.Provider)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Gateway(errors.Wrap(err, "failed to read response body"), c.config.Provider)
	}

	response := &HTTPResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       respBody,
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return response, errs.Gateway(errors.Newf("HTTP error %d: %s", resp.StatusCode, truncate(string(respBody), 512)), c.config.Provider)
	}

	return response, nil
}

func joinURL(base, endpoint string) string {
	if endpoint == "" {
		return base
	}
	if strings.HasSuffix(base, "/") && strings.HasPrefix(endpoint, "/") {
		return base + endpoint[1:]
	}
	if !strings.HasSuffix(base, "/") && !strings.HasPrefix(endpoint, "/") {
		return base + "/" + endpoint
	}
	return base + endpoint
}

// buildURL constructs the full URL with query parameters
func (c *HTTPClient) buildURL(endpoint string, queryParams map[string]string) (string, error) {
	fullURL := endpoint
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		fullURL = joinURL(c.config.BaseURL, endpoint)
	}

	if len(queryParams) == 0 {
		return fullURL, nil
	}

	u, err := url.Parse(fullURL)
	if err != nil {
		return "", errors.Wrapf(err, "invalid URL %s", fullURL)
	}
	q := u.Query()
	for key, value := range queryParams {
		q.Set(key, value)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ParseJSONResponse parses the response body as JSON into target
func (c *HTTPClient) ParseJSONResponse(response *HTTPResponse, target any) error {
	if err := json.Unmarshal(response.Body, target); err != nil {
		return errs.Gateway(errors.Wrap(err, "failed to decode JSON response"), c.config.Provider)
	}
	return nil
}

// ParseXMLResponse parses the response body as XML into target
func (c *HTTPClient) ParseXMLResponse(response *HTTPResponse, target any) error {
	if err := xml.Unmarshal(response.Body, target); err != nil {
		return errs.Gateway(errors.Wrap(err, "failed to decode XML response"), c.config.Provider)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// leveledLogger routes retryablehttp's logging into the system logger
type leveledLogger struct {
	provider string
}

func (l leveledLogger) context(keysAndValues []any) logger.LogContext {
	fields := make(map[string]any, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return logger.LogContext{Provider: l.provider, Fields: fields}
}

func (l leveledLogger) Error(msg string, keysAndValues ...any) {
	logger.Error(msg, nil, l.context(keysAndValues))
}

func (l leveledLogger) Info(msg string, keysAndValues ...any) {
	logger.Debug(msg, l.context(keysAndValues))
}

func (l leveledLogger) Debug(msg string, keysAndValues ...any) {
	logger.Debug(msg, l.context(keysAndValues))
}

func (l leveledLogger) Warn(msg string, keysAndValues ...any) {
	logger.Warn(msg, l.context(keysAndValues))
}
