package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/lexiqai/assist-gateway/internal/config"
	"github.com/lexiqai/assist-gateway/internal/observability"
)

// maxLoggedBody bounds how much of an upstream error body is written to logs.
const maxLoggedBody = 512

// Endpoint is where one capability's requests are sent.
type Endpoint struct {
	URL        string
	Credential string
}

// Endpoints maps each capability to its upstream.
type Endpoints struct {
	Summarize Endpoint
	Translate Endpoint
}

// provider knows the request and response shape of one upstream service.
type provider interface {
	// requiresCredential reports whether a missing credential is a configuration error.
	requiresCredential() bool
	validate(req Request) ErrorKind
	body(req Request, ep Endpoint) interface{}
	authorize(h http.Header, ep Endpoint)
	// extract returns the value to surface; ok=false means the body is not JSON.
	extract(body []byte) (value string, ok bool)
}

// Client sends normalized inference requests to external text-AI endpoints.
// It performs exactly one HTTP call per invocation and never retries.
// There is no client-side timeout; callers bound the call through ctx.
type Client struct {
	endpoints  Endpoints
	httpClient *http.Client
	providers  map[Capability]provider
	logger     zerolog.Logger
}

// NewClient creates a client for the given endpoints. A nil httpClient uses a
// fresh http.Client without a timeout.
func NewClient(endpoints Endpoints, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		endpoints:  endpoints,
		httpClient: httpClient,
		providers: map[Capability]provider{
			CapabilitySummarize: summarizeProvider{},
			CapabilityTranslate: translateProvider{},
		},
		logger: observability.WithComponent("inference"),
	}
}

// NewClientFromConfig creates a client wired to the configured providers.
func NewClientFromConfig(cfg *config.Config) *Client {
	return NewClient(Endpoints{
		Summarize: Endpoint{URL: cfg.HFSummarizeURL, Credential: cfg.HFAPIKey},
		Translate: Endpoint{URL: cfg.TranslateURL, Credential: cfg.TranslateAPIKey},
	}, nil)
}

// HasCredential reports whether a credential is configured for the capability.
func (c *Client) HasCredential(capability Capability) bool {
	ep, ok := c.endpoint(capability)
	return ok && ep.Credential != ""
}

func (c *Client) endpoint(capability Capability) (Endpoint, bool) {
	switch capability {
	case CapabilitySummarize:
		return c.endpoints.Summarize, true
	case CapabilityTranslate:
		return c.endpoints.Translate, true
	}
	return Endpoint{}, false
}

// Invoke validates the request, sends it to the capability's upstream and
// classifies the outcome. Failures are checked in order: transport, HTTP
// status, unparseable body. A parseable body missing the expected field
// yields a placeholder value rather than a failure.
func (c *Client) Invoke(ctx context.Context, req Request) Result {
	start := time.Now()
	result := c.invoke(ctx, req)
	observability.RecordInference(string(req.Capability), result.Outcome(), time.Since(start))
	return result
}

func (c *Client) invoke(ctx context.Context, req Request) Result {
	logger := c.logger.With().Str("capability", string(req.Capability)).Logger()

	if strings.TrimSpace(req.Payload) == "" {
		return failure(ErrorKindInvalidInput)
	}

	p, ok := c.providers[req.Capability]
	if !ok {
		logger.Error().Msg("Unknown inference capability")
		return failure(ErrorKindInvalidInput)
	}
	if kind := p.validate(req); kind != ErrorKindNone {
		return failure(kind)
	}

	ep, _ := c.endpoint(req.Capability)
	if ep.URL == "" || (p.requiresCredential() && ep.Credential == "") {
		logger.Error().Msg("Inference endpoint is not configured")
		return failure(ErrorKindMissingConfiguration)
	}

	jsonData, err := json.Marshal(p.body(req, ep))
	if err != nil {
		logger.Error().Err(err).Msg("Failed to marshal inference request")
		return failure(ErrorKindInvalidInput)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, ep.URL, bytes.NewReader(jsonData))
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create inference request")
		return failure(ErrorKindMissingConfiguration)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	p.authorize(httpReq.Header, ep)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		logger.Warn().Err(err).Msg("Inference request failed")
		observability.RecordError(string(ErrorKindTransport), "inference")
		return failure(ErrorKindTransport)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		logger.Warn().Err(err).Int("status", resp.StatusCode).Msg("Failed to read inference response")
		observability.RecordError(string(ErrorKindTransport), "inference")
		return failure(ErrorKindTransport)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logger.Warn().
			Int("status", resp.StatusCode).
			Str("upstream_body", truncate(string(body), maxLoggedBody)).
			Msg("Inference upstream returned an error")
		observability.RecordError(string(ErrorKindUpstream), "inference")
		return failure(ErrorKindUpstream)
	}

	value, ok := p.extract(body)
	if !ok {
		logger.Warn().
			Int("body_bytes", len(body)).
			Str("upstream_body", truncate(string(body), maxLoggedBody)).
			Msg("Inference response is not valid JSON")
		observability.RecordError(string(ErrorKindMalformedResponse), "inference")
		return failure(ErrorKindMalformedResponse)
	}

	return success(value)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return fmt.Sprintf("%s...(%d bytes)", s[:n], len(s))
}

// decodeJSON parses body into a generic value; ok=false only on invalid JSON.
func decodeJSON(body []byte) (interface{}, bool) {
	var v interface{}
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, false
	}
	return v, true
}
