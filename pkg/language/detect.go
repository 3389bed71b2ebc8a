// Package language detects a page's language and resolves content fields
// through language-specific alias tables, so extraction works on non-English
// sites without per-site configuration.
package language

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
)

// DetectionResult reports the detected language and how it was found
type DetectionResult struct {
	Language   string  `json:"language"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source"`
	Locale     string  `json:"locale,omitempty"`
}

// Detection sources in ladder order.
const (
	SourceHTMLLang        = "html-lang"
	SourceMetaContentLang = "meta-content-language"
	SourceOGLocale        = "og-locale"
	SourceURLPattern      = "url-pattern"
	SourceContentAnalysis = "content-analysis"
	SourceDefault         = "default"
)

var langSubdomain = regexp.MustCompile(`^([a-z]{2})\.`)
var langPathPrefix = regexp.MustCompile(`^/([a-z]{2})(/|$)`)

// DetectLanguage walks the detection ladder: declared markup first, then
// the URL, then the text itself, then the English default.
func DetectLanguage(html, pageURL string) DetectionResult {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err == nil {
		if result, ok := detectFromMarkup(doc); ok {
			return result
		}
	}
	if result, ok := detectFromURL(pageURL); ok {
		return result
	}
	var text string
	if err == nil {
		text = doc.Find("body").Text()
		if text == "" {
			text = doc.Text()
		}
	} else {
		text = html
	}
	if result, ok := detectFromContent(text); ok {
		return result
	}
	return DetectionResult{Language: "en", Confidence: 0.3, Source: SourceDefault}
}

func detectFromMarkup(doc *goquery.Document) (DetectionResult, bool) {
	if locale, ok := doc.Find("html").First().Attr("lang"); ok && locale != "" {
		return localeResult(locale, 0.95, SourceHTMLLang), true
	}
	var metaLang string
	doc.Find("meta[http-equiv]").EachWithBreak(func(_ int, meta *goquery.Selection) bool {
		if equiv, _ := meta.Attr("http-equiv"); strings.EqualFold(equiv, "content-language") {
			metaLang, _ = meta.Attr("content")
			return false
		}
		return true
	})
	if metaLang != "" {
		return localeResult(metaLang, 0.9, SourceMetaContentLang), true
	}
	if locale, ok := doc.Find(`meta[property="og:locale"]`).First().Attr("content"); ok && locale != "" {
		return localeResult(locale, 0.85, SourceOGLocale), true
	}
	return DetectionResult{}, false
}

func detectFromURL(pageURL string) (DetectionResult, bool) {
	u, err := url.Parse(pageURL)
	if err != nil || u.Host == "" {
		return DetectionResult{}, false
	}

	if m := langSubdomain.FindStringSubmatch(u.Hostname()); m != nil && isKnownLanguage(m[1]) {
		return DetectionResult{Language: m[1], Confidence: 0.75, Source: SourceURLPattern}, true
	}
	if m := langPathPrefix.FindStringSubmatch(u.Path); m != nil && isKnownLanguage(m[1]) {
		return DetectionResult{Language: m[1], Confidence: 0.75, Source: SourceURLPattern}, true
	}
	query := u.Query()
	for _, param := range []string{"lang", "locale", "hl"} {
		if value := query.Get(param); value != "" {
			code := normalizeLocale(value)
			if isKnownLanguage(code) {
				return DetectionResult{Language: code, Confidence: 0.75, Source: SourceURLPattern, Locale: value}, true
			}
		}
	}
	return DetectionResult{}, false
}

// localeResult splits a locale like es-ES or pt_BR into language + locale
func localeResult(locale string, confidence float64, source string) DetectionResult {
	return DetectionResult{
		Language:   normalizeLocale(locale),
		Confidence: confidence,
		Source:     source,
		Locale:     locale,
	}
}

func normalizeLocale(locale string) string {
	locale = strings.ToLower(strings.TrimSpace(locale))
	for _, sep := range []string{"-", "_"} {
		if idx := strings.Index(locale, sep); idx > 0 {
			return locale[:idx]
		}
	}
	return locale
}

// scriptRanges maps a dominant writing system to its language. Scripts are
// a far stronger signal than any word list, so they run first.
var scriptRanges = []struct {
	lang  string
	table *unicode.RangeTable
}{
	{"ja", unicode.Hiragana},
	{"ja", unicode.Katakana},
	{"ko", unicode.Hangul},
	{"zh", unicode.Han},
	{"ar", unicode.Arabic},
	{"he", unicode.Hebrew},
	{"th", unicode.Thai},
	{"hi", unicode.Devanagari},
	{"bn", unicode.Bengali},
	{"ta", unicode.Tamil},
	{"ru", unicode.Cyrillic},
	{"el", unicode.Greek},
}

func detectFromContent(text string) (DetectionResult, bool) {
	counts := make(map[string]int)
	letters := 0
	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		for _, sr := range scriptRanges {
			if unicode.Is(sr.table, r) {
				counts[sr.lang]++
				break
			}
		}
	}
	if letters == 0 {
		return DetectionResult{}, false
	}

	bestLang, bestCount := "", 0
	for lang, count := range counts {
		if count > bestCount {
			bestLang, bestCount = lang, count
		}
	}
	// Japanese text mixes Han with kana; kana presence decides.
	if bestLang == "zh" && counts["ja"] > 0 {
		bestLang = "ja"
	}
	if bestCount*5 >= letters {
		return DetectionResult{Language: bestLang, Confidence: 0.85, Source: SourceContentAnalysis}, true
	}

	return detectFromStopWords(text)
}

// detectFromStopWords scores Latin-script languages by stop-word overlap.
// Confidence scales with the overlap ratio, between 0.3 and 0.85.
func detectFromStopWords(text string) (DetectionResult, bool) {
	words := strings.Fields(strings.ToLower(text))
	if len(words) < 5 {
		return DetectionResult{}, false
	}

	bestLang, bestHits := "", 0
	for lang, set := range stopWords {
		hits := 0
		for _, word := range words {
			word = strings.Trim(word, ".,;:!?()\"'")
			if _, ok := set[word]; ok {
				hits++
			}
		}
		if hits > bestHits {
			bestLang, bestHits = lang, hits
		}
	}
	if bestHits == 0 {
		return DetectionResult{}, false
	}

	ratio := float64(bestHits) / float64(len(words))
	confidence := 0.3 + ratio*1.5
	if confidence > 0.85 {
		confidence = 0.85
	}
	return DetectionResult{Language: bestLang, Confidence: confidence, Source: SourceContentAnalysis}, true
}
