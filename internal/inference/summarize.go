package inference

import "net/http"

// SummaryPlaceholder is returned when the provider answers without a summary.
const SummaryPlaceholder = "Unable to summarize"

type summarizeRequest struct {
	Inputs string `json:"inputs"`
}

// summarizeProvider talks to a Hugging Face summarization model. The expected
// response is an array of {"summary_text": "..."}.
type summarizeProvider struct{}

func (summarizeProvider) requiresCredential() bool { return true }

func (summarizeProvider) validate(Request) ErrorKind { return ErrorKindNone }

func (summarizeProvider) body(req Request, _ Endpoint) interface{} {
	return summarizeRequest{Inputs: req.Payload}
}

func (summarizeProvider) authorize(h http.Header, ep Endpoint) {
	h.Set("Authorization", "Bearer "+ep.Credential)
}

func (summarizeProvider) extract(body []byte) (string, bool) {
	v, ok := decodeJSON(body)
	if !ok {
		return "", false
	}
	items, isArray := v.([]interface{})
	if !isArray || len(items) == 0 {
		return SummaryPlaceholder, true
	}
	first, isObject := items[0].(map[string]interface{})
	if !isObject {
		return SummaryPlaceholder, true
	}
	if summary, _ := first["summary_text"].(string); summary != "" {
		return summary, true
	}
	return SummaryPlaceholder, true
}
