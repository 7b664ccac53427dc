package gateway

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/lexiqai/assist-gateway/internal/inference"
	"github.com/lexiqai/assist-gateway/internal/observability"
)

// TranslationFailed is the only message returned by /api/translate on failure.
const TranslationFailed = "Translation failed. Try again."

// DefaultTargetLanguage is used when the caller omits targetLang.
const DefaultTargetLanguage = "en"

type translateRequest struct {
	Text       string `json:"text"`
	TargetLang string `json:"targetLang"`
}

// TranslateResponse is the body of every /api/translate response.
type TranslateResponse struct {
	Translated string `json:"translated"`
}

// TranslateEndpoint handles POST /api/translate.
//
// Unlike summarize, blank text is not rejected here: it is passed on and the
// client's own validation turns it into a 500.
type TranslateEndpoint struct {
	client Invoker
	logger zerolog.Logger
}

// NewTranslateEndpoint creates the translate endpoint.
func NewTranslateEndpoint(client Invoker) *TranslateEndpoint {
	return &TranslateEndpoint{
		client: client,
		logger: observability.WithComponent("gateway").With().Str("endpoint", "translate").Logger(),
	}
}

func translateResponse(status int, translated string) Response {
	return Response{Status: status, Body: TranslateResponse{Translated: translated}}
}

// Handle maps one raw request body to a response. It never panics.
func (e *TranslateEndpoint) Handle(ctx context.Context, raw []byte) (resp Response) {
	defer func() {
		if rv := recover(); rv != nil {
			e.logger.Error().Interface("panic", rv).Msg("Recovered from panic while translating")
			observability.CapturePanic(rv, "gateway.translate")
			resp = translateResponse(http.StatusInternalServerError, TranslationFailed)
		}
	}()

	var req translateRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		e.logger.Warn().Err(err).Msg("Invalid translate request body")
		return translateResponse(http.StatusInternalServerError, TranslationFailed)
	}

	target := inference.NormalizeLanguage(req.TargetLang)
	if target == "" {
		target = DefaultTargetLanguage
	}
	if !inference.IsSupportedLanguage(target) {
		e.logger.Debug().Str("target", target).Msg("Target language outside the supported set, passing through")
	}

	result := e.client.Invoke(ctx, inference.Request{
		Capability: inference.CapabilityTranslate,
		Payload:    req.Text,
		Options: map[string]string{
			inference.OptionTargetLanguage: target,
			inference.OptionSourceLanguage: inference.DefaultSourceLanguage,
		},
	})
	if !result.OK {
		e.logger.Warn().Str("error_kind", string(result.ErrorKind)).Msg("Translation failed")
		return translateResponse(http.StatusInternalServerError, TranslationFailed)
	}
	return translateResponse(http.StatusOK, result.Value)
}

func (e *TranslateEndpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := serveBody(w, r, e.Handle, translateResponse(http.StatusInternalServerError, TranslationFailed))
	observability.RecordGatewayResponse("translate", resp.Status)
}

// LanguagesHandler lists the supported translate targets.
func LanguagesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"languages": inference.SupportedLanguages,
		})
	}
}
