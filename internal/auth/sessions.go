package auth

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// DefaultTokenTTL applies when Config.TokenTTL is zero.
const DefaultTokenTTL = 24 * time.Hour

// Logger defines the logging interface used by Sessions.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}

// Config configures Sessions.
type Config struct {
	// UsersFile is re-read on every login so edits apply without a restart.
	UsersFile string

	// Secret signs tokens. Empty generates a random secret, which means
	// sessions do not survive a restart.
	Secret string

	// TokenTTL is the token lifetime.
	TokenTTL time.Duration
}

// Sessions issues and checks the single login session.
type Sessions struct {
	usersFile string
	secret    []byte
	ttl       time.Duration
	logger    Logger
	now       func() time.Time

	mu      sync.RWMutex
	current string // jti of the latest successful login
}

// NewSessions creates the session manager.
func NewSessions(cfg Config) (*Sessions, error) {
	secret := cfg.Secret
	if secret == "" {
		generated, err := GenerateSecret()
		if err != nil {
			return nil, err
		}
		secret = generated
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Sessions{
		usersFile: cfg.UsersFile,
		secret:    []byte(secret),
		ttl:       ttl,
		logger:    noopLogger{},
		now:       time.Now,
	}, nil
}

// SetLogger sets the logger for the session manager.
func (s *Sessions) SetLogger(logger Logger) {
	s.logger = logger
}

// LogIn checks the credentials and returns a new token, which supersedes
// any earlier one. A missing or corrupt users file makes every login fail
// with ErrInvalidCredentials; the cause is logged.
func (s *Sessions) LogIn(username, password string) (string, error) {
	users, err := LoadUsers(s.usersFile)
	if err != nil {
		s.logger.Warn("loading users failed", "path", s.usersFile, "error", err)
		return "", ErrInvalidCredentials
	}

	user, ok := authenticate(users, username, password)
	if !ok {
		s.logger.Info("login rejected", "username", username)
		return "", ErrInvalidCredentials
	}

	token, sessionID, err := generateToken(user.Username, s.secret, s.ttl, s.now())
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.current = sessionID
	s.mu.Unlock()

	s.logger.Info("login accepted", "username", user.Username, "session_id", sessionID)
	return token, nil
}

// Validate checks token and returns its claims. A token from an earlier
// login returns ErrTokenSuperseded.
func (s *Sessions) Validate(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("%w: empty", ErrTokenInvalid)
	}

	claims, err := parseToken(token, s.secret, s.now())
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	current := s.current
	s.mu.RUnlock()

	if current == "" || claims.ID != current {
		return nil, ErrTokenSuperseded
	}
	return claims, nil
}

// IsLoggedIn reports whether token belongs to the current session.
func (s *Sessions) IsLoggedIn(token string) bool {
	_, err := s.Validate(token)
	if err != nil && !errors.Is(err, ErrTokenSuperseded) {
		s.logger.Debug("token rejected", "error", err)
	}
	return err == nil
}

// LogOut ends the current session.
func (s *Sessions) LogOut() {
	s.mu.Lock()
	s.current = ""
	s.mu.Unlock()
}
