// Package authflow recognizes authentication challenges in responses and
// resolves them through login workflows, stored credentials, or a user
// callback, in that order.
package authflow

import (
	"net/http"
	"net/url"
	"regexp"
	"strings"
)

// ChallengeType classifies how a response demanded authentication
type ChallengeType string

// Challenge types
const (
	ChallengeNone           ChallengeType = ""
	ChallengeHTTP401        ChallengeType = "http_401"
	ChallengeHTTP403        ChallengeType = "http_403"
	ChallengeLoginRedirect  ChallengeType = "login_redirect"
	ChallengeSessionExpired ChallengeType = "session_expired"
	ChallengeAuthMessage    ChallengeType = "auth_message"
	ChallengeCaptcha        ChallengeType = "captcha_required"
)

// bodyScanLimit bounds how much of a body the message scan reads
const bodyScanLimit = 10 * 1024

var loginURLPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)/log-?in`),
	regexp.MustCompile(`(?i)/sign-?in`),
	regexp.MustCompile(`(?i)/auth(entication)?(/|$|\?)`),
	regexp.MustCompile(`(?i)/sso(/|$|\?)`),
	regexp.MustCompile(`(?i)/account/access`),
}

var redirectParams = []string{"redirect", "redirect_uri", "return", "returnto", "return_to", "next", "continue"}

var authPhrases = []string{
	"please log in",
	"please sign in",
	"sign in to continue",
	"login required",
	"authentication required",
	"session expired",
	"session has expired",
	"you must be logged in",
	"access denied",
}

var captchaMarkers = []string{
	"captcha",
	"recaptcha",
	"hcaptcha",
	"cf-challenge",
	"are you a robot",
}

// Detection is the outcome of challenge detection
type Detection struct {
	Challenged bool          `json:"challenged"`
	Type       ChallengeType `json:"type,omitempty"`
	LoginURL   string        `json:"loginUrl,omitempty"`
	Matched    string        `json:"matched,omitempty"`
}

// Detect classifies a response as an authentication challenge, or not.
// sessionHealthy comes from the session store; a stale session turns an
// otherwise unclassifiable response into session_expired.
func Detect(status int, headers http.Header, body string, sessionHealthy bool) Detection {
	if status == http.StatusUnauthorized {
		return Detection{Challenged: true, Type: ChallengeHTTP401}
	}

	scan := strings.ToLower(body)
	if len(scan) > bodyScanLimit {
		scan = scan[:bodyScanLimit]
	}

	if status == http.StatusForbidden {
		for _, marker := range captchaMarkers {
			if strings.Contains(scan, marker) {
				return Detection{Challenged: true, Type: ChallengeCaptcha, Matched: marker}
			}
		}
		return Detection{Challenged: true, Type: ChallengeHTTP403}
	}

	if status >= 300 && status < 400 {
		if location := headers.Get("Location"); location != "" && looksLikeLoginURL(location) {
			return Detection{Challenged: true, Type: ChallengeLoginRedirect, LoginURL: location}
		}
	}

	if !sessionHealthy {
		return Detection{Challenged: true, Type: ChallengeSessionExpired}
	}

	for _, phrase := range authPhrases {
		if strings.Contains(scan, phrase) {
			return Detection{Challenged: true, Type: ChallengeAuthMessage, Matched: phrase}
		}
	}
	for _, marker := range captchaMarkers {
		if strings.Contains(scan, marker) {
			return Detection{Challenged: true, Type: ChallengeCaptcha, Matched: marker}
		}
	}

	return Detection{}
}

// looksLikeLoginURL reports whether a redirect target is a login page:
// either its path matches a known login pattern or it carries a
// redirect/return query parameter.
func looksLikeLoginURL(location string) bool {
	for _, pattern := range loginURLPatterns {
		if pattern.MatchString(location) {
			return true
		}
	}
	u, err := url.Parse(location)
	if err != nil {
		return false
	}
	query := u.Query()
	for _, param := range redirectParams {
		if query.Has(param) {
			return true
		}
	}
	return false
}
