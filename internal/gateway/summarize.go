package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/lexiqai/assist-gateway/internal/inference"
	"github.com/lexiqai/assist-gateway/internal/observability"
)

// User-facing summarize messages. Nothing else is ever returned on failure.
const (
	SummaryNoText          = "No text provided."
	SummaryMissingKey      = "Missing Hugging Face API key."
	SummaryUpstreamFailed  = "Failed to summarize. API returned an error."
	SummaryInvalidResponse = "Failed to summarize. Invalid response from API."
	SummaryTryAgain        = "Failed to summarize. Try again."
)

type summarizeRequest struct {
	Text string `json:"text"`
}

// SummarizeResponse is the body of every /api/summarize response.
type SummarizeResponse struct {
	Summary string `json:"summary"`
}

// SummarizeEndpoint handles POST /api/summarize.
type SummarizeEndpoint struct {
	client Invoker
	logger zerolog.Logger
}

// NewSummarizeEndpoint creates the summarize endpoint.
func NewSummarizeEndpoint(client Invoker) *SummarizeEndpoint {
	return &SummarizeEndpoint{
		client: client,
		logger: observability.WithComponent("gateway").With().Str("endpoint", "summarize").Logger(),
	}
}

func summarizeResponse(status int, summary string) Response {
	return Response{Status: status, Body: SummarizeResponse{Summary: summary}}
}

// Handle maps one raw request body to a response. It never panics.
func (e *SummarizeEndpoint) Handle(ctx context.Context, raw []byte) (resp Response) {
	defer func() {
		if rv := recover(); rv != nil {
			e.logger.Error().Interface("panic", rv).Msg("Recovered from panic while summarizing")
			observability.CapturePanic(rv, "gateway.summarize")
			resp = summarizeResponse(http.StatusInternalServerError, SummaryTryAgain)
		}
	}()

	var req summarizeRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		e.logger.Warn().Err(err).Msg("Invalid summarize request body")
		return summarizeResponse(http.StatusInternalServerError, SummaryTryAgain)
	}

	if strings.TrimSpace(req.Text) == "" {
		return summarizeResponse(http.StatusBadRequest, SummaryNoText)
	}

	if !e.client.HasCredential(inference.CapabilitySummarize) {
		e.logger.Error().Msg("Summarization credential is not configured")
		return summarizeResponse(http.StatusInternalServerError, SummaryMissingKey)
	}

	result := e.client.Invoke(ctx, inference.Request{
		Capability: inference.CapabilitySummarize,
		Payload:    req.Text,
	})
	if result.OK {
		return summarizeResponse(http.StatusOK, result.Value)
	}

	e.logger.Warn().Str("error_kind", string(result.ErrorKind)).Msg("Summarization failed")
	switch result.ErrorKind {
	case inference.ErrorKindMissingConfiguration:
		return summarizeResponse(http.StatusInternalServerError, SummaryMissingKey)
	case inference.ErrorKindUpstream:
		return summarizeResponse(http.StatusInternalServerError, SummaryUpstreamFailed)
	case inference.ErrorKindMalformedResponse:
		return summarizeResponse(http.StatusInternalServerError, SummaryInvalidResponse)
	default:
		return summarizeResponse(http.StatusInternalServerError, SummaryTryAgain)
	}
}

func (e *SummarizeEndpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := serveBody(w, r, e.Handle, summarizeResponse(http.StatusInternalServerError, SummaryTryAgain))
	observability.RecordGatewayResponse("summarize", resp.Status)
}

// serveBody reads the request body and runs handle on it. A body that cannot
// be read yields fallback.
func serveBody(w http.ResponseWriter, r *http.Request, handle func(context.Context, []byte) Response, fallback Response) Response {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	resp := fallback
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			observability.RecordError("request_too_large", "gateway")
		}
	} else {
		resp = handle(r.Context(), raw)
	}
	resp.write(w)
	return resp
}
