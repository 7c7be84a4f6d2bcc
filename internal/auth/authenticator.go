package auth

import (
	"crypto/subtle"

	"pkgmcp/internal/logging"
)

// Mode is the active authentication strategy.
type Mode int

const (
	// ModeDisabled lets every request through without an identity.
	ModeDisabled Mode = iota
	// ModeLegacy compares the credential against one shared secret.
	ModeLegacy
	// ModeUser resolves the credential to a stored user by key hash.
	ModeUser
)

func (m Mode) String() string {
	switch m {
	case ModeLegacy:
		return "legacy"
	case ModeUser:
		return "user"
	default:
		return "disabled"
	}
}

// Settings are the configuration inputs to authentication.
type Settings struct {
	EnableAuth       bool
	EnableUserAuth   bool
	SingleAPIKeyMode bool
	LegacyKey        string
}

// Mode derives the strategy from the flags. Per-user authentication implies
// authentication is on.
func (s Settings) Mode() Mode {
	switch {
	case s.EnableUserAuth:
		return ModeUser
	case s.EnableAuth:
		return ModeLegacy
	default:
		return ModeDisabled
	}
}

// UserLookup resolves an API key hash to a stored user.
type UserLookup interface {
	FindByAPIKeyHash(hash string) (*User, bool)
}

// OutcomeKind discriminates an Outcome.
type OutcomeKind int

const (
	OutcomeAnonymous OutcomeKind = iota
	OutcomeAuthenticated
	OutcomeDenied
)

// Outcome is the result of presenting a credential.
//
//   - Authenticated: User is set
//   - Anonymous: authentication is disabled, no identity
//   - Denied: Reason says why
type Outcome struct {
	Kind   OutcomeKind
	User   *User
	Reason Reason
}

func authenticated(u *User) Outcome { return Outcome{Kind: OutcomeAuthenticated, User: u} }
func anonymous() Outcome            { return Outcome{Kind: OutcomeAnonymous} }
func denied(r Reason) Outcome       { return Outcome{Kind: OutcomeDenied, Reason: r} }

func (o Outcome) Authenticated() bool { return o.Kind == OutcomeAuthenticated }
func (o Outcome) Anonymous() bool     { return o.Kind == OutcomeAnonymous }
func (o Outcome) Denied() bool        { return o.Kind == OutcomeDenied }

// Err returns an *AuthError for denied outcomes and nil otherwise.
func (o Outcome) Err() error {
	if o.Kind != OutcomeDenied {
		return nil
	}
	return &AuthError{Reason: o.Reason}
}

// Authenticator turns raw credentials into outcomes.
type Authenticator struct {
	settings Settings
	users    UserLookup
	logger   *logging.AppLogger
}

// NewAuthenticator creates an authenticator. users may be nil unless
// settings select ModeUser.
func NewAuthenticator(settings Settings, users UserLookup, logger *logging.AppLogger) *Authenticator {
	if logger == nil {
		logger = logging.GetDefault()
	}
	return &Authenticator{
		settings: settings,
		users:    users,
		logger:   logger.With("component", "auth"),
	}
}

// Mode returns the active strategy.
func (a *Authenticator) Mode() Mode {
	return a.settings.Mode()
}

// Settings returns the configuration the authenticator was built with.
func (a *Authenticator) Settings() Settings {
	return a.settings
}

// Authenticate resolves credential into an Outcome. The credential is never logged.
func (a *Authenticator) Authenticate(credential string) Outcome {
	switch a.settings.Mode() {
	case ModeDisabled:
		return anonymous()
	case ModeLegacy:
		return a.authenticateLegacy(credential)
	default:
		return a.authenticateUser(credential)
	}
}

func (a *Authenticator) authenticateLegacy(credential string) Outcome {
	if a.settings.LegacyKey == "" {
		a.logger.Warn("Authentication enabled but no API key configured")
		return denied(ReasonNotConfigured)
	}
	if credential == "" {
		a.logger.Warn("Authentication required but no API key provided")
		return denied(ReasonAuthenticationRequired)
	}
	if subtle.ConstantTimeCompare([]byte(credential), []byte(a.settings.LegacyKey)) != 1 {
		a.logger.Warn("Invalid API key")
		return denied(ReasonInvalidCredential)
	}

	a.logger.Debug("Authentication successful", "mode", ModeLegacy)
	return authenticated(LegacyUser())
}

func (a *Authenticator) authenticateUser(credential string) Outcome {
	if credential == "" {
		a.logger.Warn("Authentication required but no API key provided")
		return denied(ReasonAuthenticationRequired)
	}
	if a.users == nil {
		a.logger.Error("User authentication enabled without a user store")
		return denied(ReasonNotConfigured)
	}

	user, ok := a.users.FindByAPIKeyHash(HashAPIKey(credential))
	if !ok {
		a.logger.Warn("Invalid API key")
		return denied(ReasonInvalidCredential)
	}

	a.logger.Debug("Authentication successful", "mode", ModeUser, "username", user.Username, "role", user.Role)
	return authenticated(user)
}

// AuthenticateUser returns the resolved identity, nil when authentication is
// disabled, or an *AuthError when a required credential is missing or wrong.
func (a *Authenticator) AuthenticateUser(credential string) (*User, error) {
	outcome := a.Authenticate(credential)
	if err := outcome.Err(); err != nil {
		return nil, err
	}
	return outcome.User, nil
}
