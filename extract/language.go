package extract

import (
	"strings"

	"github.com/abadojack/whatlanggo"
	"golang.org/x/text/language"
)

const (
	// statisticalMinChars is the minimum extracted-text length before the
	// statistical detector is consulted.
	statisticalMinChars = 100

	declaredConfidence = 0.9
	ogLocaleConfidence = 0.6
	// corroborationBonus is added when the statistical detector agrees
	// with a declared signal.
	corroborationBonus = 0.2
)

// DetectLanguage combines three signals into one language choice: the page's
// declared lang attribute (highest prior), the Open Graph locale (medium),
// and statistical detection over the extracted text when it is long enough.
// The winner is the candidate with the highest combined confidence; ties
// resolve to the declared-language source. Returns "" when nothing matched.
func DetectLanguage(declaredLang, ogLocale, text string) string {
	type candidate struct {
		lang       string
		confidence float64
		declared   bool
	}

	var candidates []candidate

	if lang := normalizeLangTag(declaredLang); lang != "" {
		candidates = append(candidates, candidate{lang, declaredConfidence, true})
	}
	if lang := normalizeLangTag(ogLocale); lang != "" {
		candidates = append(candidates, candidate{lang, ogLocaleConfidence, false})
	}

	if len(strings.TrimSpace(text)) >= statisticalMinChars {
		info := whatlanggo.Detect(text)
		if lang := info.Lang.Iso6391(); lang != "" {
			conf := info.Confidence
			if conf > 1 {
				conf = 1
			}

			matched := false
			for i := range candidates {
				if candidates[i].lang == lang {
					candidates[i].confidence += corroborationBonus
					matched = true
				}
			}
			// Statistical detection stands alone only when no declared
			// signal exists; otherwise it corroborates.
			if !matched && len(candidates) == 0 {
				candidates = append(candidates, candidate{lang, conf, false})
			}
		}
	}

	best := candidate{}
	for _, c := range candidates {
		if c.confidence > best.confidence ||
			(c.confidence == best.confidence && c.declared && !best.declared) {
			best = c
		}
	}

	return best.lang
}

// normalizeLangTag reduces a BCP 47 tag or locale ("en-US", "pt_BR") to its
// base language subtag.
func normalizeLangTag(tag string) string {
	tag = strings.TrimSpace(strings.ReplaceAll(tag, "_", "-"))
	if tag == "" {
		return ""
	}

	parsed, err := language.Parse(tag)
	if err != nil {
		return ""
	}

	base, conf := parsed.Base()
	if conf == language.No {
		return ""
	}

	return base.String()
}
