package authflow

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/pagelens/pagelens/pkg/observability"
)

// Outcome names how a challenge was resolved
type Outcome string

// Resolution outcomes
const (
	OutcomeWorkflow         Outcome = "workflow"
	OutcomeCredentials      Outcome = "credentials"
	OutcomeCredentialsRetry Outcome = "credentials_retry"
	OutcomeCallback         Outcome = "callback"
	OutcomeSkipped          Outcome = "skipped"
)

// Workflow is a stored login sequence for a domain. The caller executes
// it; the resolver only locates it.
type Workflow struct {
	Name   string   `json:"name"`
	Domain string   `json:"domain"`
	Tags   []string `json:"tags,omitempty"`
}

// Credential is one stored credential for a domain
type Credential struct {
	Type      string    `json:"type"`
	Domain    string    `json:"domain"`
	Validated bool      `json:"validated"`
	ExpiresAt time.Time `json:"expiresAt,omitempty"`
}

// CredentialStatus summarizes a domain's stored credentials
type CredentialStatus string

// Credential statuses
const (
	CredentialsConfigured          CredentialStatus = "configured"
	CredentialsPartiallyConfigured CredentialStatus = "partially_configured"
	CredentialsNotConfigured       CredentialStatus = "not_configured"
)

// WorkflowStore locates login workflows
type WorkflowStore interface {
	FindForDomain(domain string) (*Workflow, bool)
}

// CredentialStore reports the credential situation per domain
type CredentialStore interface {
	Status(domain string, now time.Time) CredentialStatus
}

// UserCallback is asked for help as the last resort. It returns whether
// the user handled the challenge.
type UserCallback func(ctx context.Context, challenge ChallengeType, suggestedTypes []string) (bool, error)

// Resolution is the resolver's report back to the caller
type Resolution struct {
	Outcome          Outcome   `json:"outcome"`
	Workflow         *Workflow `json:"workflow,omitempty"`
	RetryRecommended bool      `json:"retryRecommended"`
	SuggestedTypes   []string  `json:"suggestedTypes,omitempty"`
}

// suggestedCredentialTypes infers which credential kinds would answer a
// given challenge.
func suggestedCredentialTypes(challenge ChallengeType) []string {
	switch challenge {
	case ChallengeHTTP401:
		return []string{"api_token", "basic_auth"}
	case ChallengeHTTP403:
		return []string{"api_token"}
	case ChallengeLoginRedirect, ChallengeAuthMessage:
		return []string{"username_password"}
	case ChallengeSessionExpired:
		return []string{"session_cookie", "username_password"}
	case ChallengeCaptcha:
		return []string{"manual"}
	default:
		return []string{"username_password"}
	}
}

// Resolver walks the resolution order: workflow, stored credentials, user
// callback, skip.
type Resolver struct {
	workflows   WorkflowStore
	credentials CredentialStore
	callback    UserCallback
	logger      observability.Logger
	now         func() time.Time
}

// NewResolver creates a resolver; any collaborator may be nil, in which
// case its resolution step is skipped.
func NewResolver(workflows WorkflowStore, credentials CredentialStore, callback UserCallback, logger observability.Logger) *Resolver {
	return &Resolver{
		workflows:   workflows,
		credentials: credentials,
		callback:    callback,
		logger:      logger,
		now:         time.Now,
	}
}

// Resolve attempts each resolution method in order and reports the first
// that applies. When everything fails the result is OutcomeSkipped, not an
// error: skipping a protected resource is a normal outcome.
func (r *Resolver) Resolve(ctx context.Context, domain string, challenge ChallengeType) (*Resolution, error) {
	if r.workflows != nil {
		if workflow, ok := r.workflows.FindForDomain(domain); ok {
			r.logger.Info("Resolved auth challenge via login workflow", map[string]interface{}{
				"domain":   domain,
				"workflow": workflow.Name,
			})
			return &Resolution{Outcome: OutcomeWorkflow, Workflow: workflow}, nil
		}
	}

	if r.credentials != nil {
		switch r.credentials.Status(domain, r.now()) {
		case CredentialsConfigured:
			return &Resolution{Outcome: OutcomeCredentials, RetryRecommended: true}, nil
		case CredentialsPartiallyConfigured:
			// Unvalidated credentials are worth one retry but no promise.
			return &Resolution{Outcome: OutcomeCredentialsRetry, RetryRecommended: true}, nil
		}
	}

	if r.callback != nil {
		suggested := suggestedCredentialTypes(challenge)
		handled, err := r.callback(ctx, challenge, suggested)
		if err != nil {
			return nil, err
		}
		if handled {
			return &Resolution{Outcome: OutcomeCallback, RetryRecommended: true, SuggestedTypes: suggested}, nil
		}
	}

	r.logger.Debug("Auth challenge left unresolved", map[string]interface{}{
		"domain":    domain,
		"challenge": string(challenge),
	})
	return &Resolution{Outcome: OutcomeSkipped}, nil
}

// MemoryWorkflowStore is an in-memory WorkflowStore matching by domain,
// tag, or name regex.
type MemoryWorkflowStore struct {
	workflows []Workflow
}

// NewMemoryWorkflowStore creates a store over a fixed workflow list
func NewMemoryWorkflowStore(workflows ...Workflow) *MemoryWorkflowStore {
	return &MemoryWorkflowStore{workflows: workflows}
}

// FindForDomain implements WorkflowStore. A workflow matches when its
// domain equals the target, one of its tags equals the target, or its name
// compiles as a regex matching the target.
func (s *MemoryWorkflowStore) FindForDomain(domain string) (*Workflow, bool) {
	for i := range s.workflows {
		w := &s.workflows[i]
		if w.Domain == domain {
			return w, true
		}
		for _, tag := range w.Tags {
			if strings.EqualFold(tag, domain) {
				return w, true
			}
		}
		if re, err := regexp.Compile("(?i)" + w.Name); err == nil && re.MatchString(domain) {
			return w, true
		}
	}
	return nil, false
}

// MemoryCredentialStore is an in-memory CredentialStore
type MemoryCredentialStore struct {
	credentials []Credential
}

// NewMemoryCredentialStore creates a store over a fixed credential list
func NewMemoryCredentialStore(credentials ...Credential) *MemoryCredentialStore {
	return &MemoryCredentialStore{credentials: credentials}
}

// Status implements CredentialStore
func (s *MemoryCredentialStore) Status(domain string, now time.Time) CredentialStatus {
	status := CredentialsNotConfigured
	for _, c := range s.credentials {
		if c.Domain != domain {
			continue
		}
		expired := !c.ExpiresAt.IsZero() && c.ExpiresAt.Before(now)
		if c.Validated && !expired {
			return CredentialsConfigured
		}
		status = CredentialsPartiallyConfigured
	}
	return status
}
