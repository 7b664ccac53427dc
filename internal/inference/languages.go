package inference

import (
	"strings"

	"golang.org/x/text/language"
)

// Language is a translation target offered to callers.
type Language struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// SupportedLanguages is the enumerated set of translate targets. The upstream
// provider accepts more; codes outside this list are passed through unchanged.
var SupportedLanguages = []Language{
	{Code: "en", Name: "English"},
	{Code: "es", Name: "Spanish"},
	{Code: "fr", Name: "French"},
	{Code: "de", Name: "German"},
	{Code: "zh", Name: "Chinese"},
	{Code: "ar", Name: "Arabic"},
	{Code: "hi", Name: "Hindi"},
}

// NormalizeLanguage reduces a BCP 47 tag such as "EN-us" or "zh-Hant" to its
// ISO 639-1 base ("en", "zh"). Deprecated two-letter codes take their current
// form ("iw" becomes "he"), but a code whose canonical form has no two-letter
// code keeps its own ("tl" stays "tl", not "fil"). Unparseable input is
// returned trimmed and lowercased.
func NormalizeLanguage(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return ""
	}
	tag, err := language.Parse(code)
	if err != nil {
		return strings.ToLower(code)
	}
	base, conf := tag.Base()
	if conf == language.No {
		return strings.ToLower(code)
	}
	if canonical := base.String(); len(canonical) == 2 {
		return canonical
	}
	if raw, err := language.Raw.Parse(code); err == nil {
		if rawBase, _ := raw.Base(); len(rawBase.String()) == 2 {
			return rawBase.String()
		}
	}
	return base.String()
}

// IsSupportedLanguage reports whether code normalizes to one of SupportedLanguages.
func IsSupportedLanguage(code string) bool {
	code = NormalizeLanguage(code)
	for _, l := range SupportedLanguages {
		if l.Code == code {
			return true
		}
	}
	return false
}
