package inference

import "net/http"

// TranslationPlaceholder is returned when the provider answers without a translation.
const TranslationPlaceholder = "Unable to translate"

type translateRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
	APIKey string `json:"api_key,omitempty"`
}

// translateProvider talks to a LibreTranslate-compatible endpoint. No
// credential is required; when one is configured it is sent as api_key.
type translateProvider struct{}

func (translateProvider) requiresCredential() bool { return false }

func (translateProvider) validate(req Request) ErrorKind {
	if NormalizeLanguage(req.Option(OptionTargetLanguage)) == "" {
		return ErrorKindInvalidInput
	}
	return ErrorKindNone
}

func (translateProvider) body(req Request, ep Endpoint) interface{} {
	source := req.Option(OptionSourceLanguage)
	if source == "" {
		source = DefaultSourceLanguage
	} else if source != DefaultSourceLanguage {
		source = NormalizeLanguage(source)
	}
	return translateRequest{
		Q:      req.Payload,
		Source: source,
		Target: NormalizeLanguage(req.Option(OptionTargetLanguage)),
		Format: "text",
		APIKey: ep.Credential,
	}
}

func (translateProvider) authorize(http.Header, Endpoint) {}

func (translateProvider) extract(body []byte) (string, bool) {
	v, ok := decodeJSON(body)
	if !ok {
		return "", false
	}
	obj, isObject := v.(map[string]interface{})
	if !isObject {
		return TranslationPlaceholder, true
	}
	translated, isString := obj["translatedText"].(string)
	if !isString {
		return TranslationPlaceholder, true
	}
	return translated, true
}
