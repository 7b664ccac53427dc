package inference

// Capability selects which external text-AI service a request is sent to.
type Capability string

const (
	CapabilitySummarize Capability = "summarize"
	CapabilityTranslate Capability = "translate"
)

// Option keys understood by the translate capability.
const (
	OptionTargetLanguage = "targetLanguage"
	OptionSourceLanguage = "sourceLanguage"
)

// DefaultSourceLanguage asks the translation provider to detect the input language.
const DefaultSourceLanguage = "auto"

// ErrorKind classifies why an invocation did not produce a value.
type ErrorKind string

const (
	ErrorKindNone                 ErrorKind = ""
	ErrorKindInvalidInput         ErrorKind = "invalid_input"
	ErrorKindMissingConfiguration ErrorKind = "missing_configuration"
	ErrorKindTransport            ErrorKind = "transport_error"
	ErrorKindUpstream             ErrorKind = "upstream_error"
	ErrorKindMalformedResponse    ErrorKind = "malformed_response"
)

// Request is one normalized inference request.
type Request struct {
	Capability Capability
	Payload    string
	Options    map[string]string
}

// Option returns the named option, or "" when absent.
func (r Request) Option(key string) string {
	if r.Options == nil {
		return ""
	}
	return r.Options[key]
}

// Result is the normalized outcome of an invocation. Exactly one of Value
// (when OK) or ErrorKind (when not OK) is meaningful.
type Result struct {
	OK        bool
	Value     string
	ErrorKind ErrorKind
}

func success(value string) Result {
	return Result{OK: true, Value: value}
}

func failure(kind ErrorKind) Result {
	return Result{ErrorKind: kind}
}

// Outcome is the metrics label for the result.
func (r Result) Outcome() string {
	if r.OK {
		return "ok"
	}
	return string(r.ErrorKind)
}
