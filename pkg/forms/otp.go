package forms

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/pagelens/pagelens/pkg/models"
)

var (
	otpFieldRe   = regexp.MustCompile(`requires2FA|requiresOTP|twoFactorRequired|mfaRequired|verification_required|challenge_type`)
	otpMessageRe = regexp.MustCompile(`(?i)verification code|2FA|OTP|authentication code|one-time password`)
)

var otpStatuses = map[int]struct{}{202: {}, 401: {}, 403: {}, 428: {}}

// detectOTP examines a submission response for a verification challenge.
// Only the listed statuses can carry one; within those, either a response
// field name or a message phrase must indicate the challenge.
func detectOTP(status int, body []byte) (*models.OTPChallenge, bool) {
	if _, ok := otpStatuses[status]; !ok {
		return nil, false
	}

	text := string(body)
	var object map[string]interface{}
	fieldHit := false
	if err := json.Unmarshal(body, &object); err == nil {
		for key := range object {
			if otpFieldRe.MatchString(key) {
				fieldHit = true
				break
			}
		}
	}
	if !fieldHit && !otpMessageRe.MatchString(text) {
		return nil, false
	}

	challenge := &models.OTPChallenge{
		Kind:          inferOTPKind(text),
		CodeFieldName: "code",
	}
	if object != nil {
		if message, ok := object["message"].(string); ok {
			challenge.Message = message
		}
		for _, key := range []string{"verificationEndpoint", "verification_url", "verificationUrl"} {
			if endpoint, ok := object[key].(string); ok && endpoint != "" {
				challenge.VerificationEndpoint = endpoint
				break
			}
		}
		for _, key := range []string{"codeField", "code_field"} {
			if field, ok := object[key].(string); ok && field != "" {
				challenge.CodeFieldName = field
				break
			}
		}
	}
	return challenge, true
}

func inferOTPKind(text string) models.OTPKind {
	lowered := strings.ToLower(text)
	switch {
	case strings.Contains(lowered, "email"):
		return models.OTPEmail
	case strings.Contains(lowered, "sms") || strings.Contains(lowered, "phone") || strings.Contains(lowered, "text message"):
		return models.OTPSMS
	case strings.Contains(lowered, "authenticator"):
		return models.OTPAuthenticator
	}
	return models.OTPUnknownKind
}

// otpPatternFrom persists the detected challenge into the form pattern so
// later submissions recognize it without re-inference.
func otpPatternFrom(challenge *models.OTPChallenge, submitURL string) *models.OTPPattern {
	endpoint := challenge.VerificationEndpoint
	if endpoint == "" {
		endpoint = submitURL
	}
	return &models.OTPPattern{
		Indicators:           []string{otpFieldRe.String(), otpMessageRe.String()},
		VerificationEndpoint: endpoint,
		CodeFieldName:        challenge.CodeFieldName,
		Method:               "POST",
		Kind:                 challenge.Kind,
	}
}
