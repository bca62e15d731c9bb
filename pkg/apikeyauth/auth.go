// Package apikeyauth authenticates gin requests by an API key taken from a
// query parameter or a header and resolved against a configured key store.
package apikeyauth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

var (
	ErrUnknownScheme      = errors.New("unknown authentication scheme")
	ErrDuplicateScheme    = errors.New("authentication scheme already registered")
	ErrUnknownStrategy    = errors.New("unknown authentication strategy")
	ErrDuplicateStrategy  = errors.New("authentication strategy already registered")
	ErrNoStrategySelected = errors.New("no authentication strategy selected")
)

// Outcome is the terminal state of one authentication decision.
type Outcome string

const (
	OutcomeAccepted Outcome = "accepted"
	OutcomeMissing  Outcome = "missing"
	OutcomeInvalid  Outcome = "invalid"
)

// DecisionHook is called once per request and strategy with the outcome.
type DecisionHook func(c *gin.Context, strategy string, outcome Outcome)

// Strategy is a named, configured instance of a scheme.
type Strategy struct {
	name          string
	scheme        string
	mode          Mode
	authenticator Authenticator
}

func (s *Strategy) Name() string {
	return s.name
}

func (s *Strategy) Scheme() string {
	return s.scheme
}

func (s *Strategy) Mode() Mode {
	return s.mode
}

func (s *Strategy) Authenticator() Authenticator {
	return s.authenticator
}

// SetKeyStore replaces the key store of a strategy whose scheme supports it.
func (s *Strategy) SetKeyStore(store *KeyStore) error {
	r, ok := s.authenticator.(KeyStoreReloader)
	if !ok {
		return fmt.Errorf("strategy %q (scheme %q) does not support key store reloads", s.name, s.scheme)
	}
	r.SetKeyStore(store)
	return nil
}

// Auth holds the schemes and strategies available to a gin engine.
type Auth struct {
	mu              sync.RWMutex
	schemes         map[string]SchemeFactory
	strategies      map[string]*Strategy
	defaultStrategy string
	onDecision      DecisionHook

	// Context keys are random so other middleware cannot fake an
	// authenticated request.
	credentialsContextKey     string
	isAuthenticatedContextKey string
	strategyContextKey        string
}

func NewAuth() *Auth {
	return &Auth{
		schemes:                   make(map[string]SchemeFactory),
		strategies:                make(map[string]*Strategy),
		credentialsContextKey:     generateContextKey(),
		isAuthenticatedContextKey: generateContextKey(),
		strategyContextKey:        generateContextKey(),
	}
}

// OnDecision installs a hook observing every decision.
func (a *Auth) OnDecision(hook DecisionHook) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onDecision = hook
}

// Scheme registers a scheme under name.
func (a *Auth) Scheme(name string, factory SchemeFactory) error {
	if name == "" || factory == nil {
		return errors.New("scheme name and factory are required")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, exists := a.schemes[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateScheme, name)
	}
	a.schemes[name] = factory
	return nil
}

// Strategy creates a named strategy from a registered scheme. Options are
// handed to the scheme factory, so invalid configuration fails here rather
// than on the first request.
func (a *Auth) Strategy(name, scheme string, mode Mode, options any) (*Strategy, error) {
	if name == "" {
		return nil, errors.New("strategy name is required")
	}
	mode, err := ParseMode(string(mode))
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	factory, ok := a.schemes[scheme]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownScheme, scheme)
	}
	if _, exists := a.strategies[name]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateStrategy, name)
	}

	authenticator, err := factory(options)
	if err != nil {
		return nil, fmt.Errorf("strategy %q: %w", name, err)
	}

	strategy := &Strategy{
		name:          name,
		scheme:        scheme,
		mode:          mode,
		authenticator: authenticator,
	}
	a.strategies[name] = strategy
	if a.defaultStrategy == "" && mode != ModeNone {
		a.defaultStrategy = name
	}
	log.Debug().Str("strategy", name).Str("scheme", scheme).Str("mode", string(mode)).Msg("registered authentication strategy")
	return strategy, nil
}

// Default selects the strategy used by Middleware when called without names.
// The first registered strategy not in ModeNone is the default until this is
// called.
func (a *Auth) Default(name string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.strategies[name]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownStrategy, name)
	}
	a.defaultStrategy = name
	return nil
}

// Lookup returns a registered strategy.
func (a *Auth) Lookup(name string) (*Strategy, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	s, ok := a.strategies[name]
	return s, ok
}

// Middleware returns a gin middleware authenticating with the named
// strategies, tried in order. A strategy that finds no key hands over to the
// next one; the first strategy that finds a key decides. When all fail, the
// mode of the first strategy decides whether the request may continue.
func (a *Auth) Middleware(names ...string) (gin.HandlerFunc, error) {
	a.mu.RLock()
	if len(names) == 0 {
		if a.defaultStrategy == "" {
			a.mu.RUnlock()
			return nil, ErrNoStrategySelected
		}
		names = []string{a.defaultStrategy}
	}
	strategies := make([]*Strategy, 0, len(names))
	for _, name := range names {
		s, ok := a.strategies[name]
		if !ok {
			a.mu.RUnlock()
			return nil, fmt.Errorf("%w: %s", ErrUnknownStrategy, name)
		}
		strategies = append(strategies, s)
	}
	a.mu.RUnlock()

	return func(c *gin.Context) {
		var lastErr error
		for _, s := range strategies {
			creds, err := s.authenticator.Authenticate(c)
			if err == nil {
				a.decided(c, s.name, OutcomeAccepted)
				log.Trace().Str("strategy", s.name).Msg("request authenticated")
				c.Set(a.credentialsContextKey, creds)
				c.Set(a.isAuthenticatedContextKey, true)
				c.Set(a.strategyContextKey, s.name)
				c.Next()
				return
			}
			lastErr = err
			if errors.Is(err, ErrMissingKey) {
				a.decided(c, s.name, OutcomeMissing)
				continue
			}
			a.decided(c, s.name, OutcomeInvalid)
			break
		}

		if strategies[0].mode.allows(lastErr) {
			log.Trace().Err(lastErr).Str("mode", string(strategies[0].mode)).Msg("continuing unauthenticated")
			c.Next()
			return
		}

		log.Debug().Err(lastErr).Str("path", c.Request.URL.Path).Msg("rejecting unauthenticated request")
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"message": lastErr.Error(),
			"code":    "unauthorized",
		})
	}, nil
}

// MustMiddleware is like Middleware but panics on unknown strategies.
func (a *Auth) MustMiddleware(names ...string) gin.HandlerFunc {
	mw, err := a.Middleware(names...)
	if err != nil {
		panic("apikeyauth: " + err.Error())
	}
	return mw
}

func (a *Auth) decided(c *gin.Context, strategy string, outcome Outcome) {
	a.mu.RLock()
	hook := a.onDecision
	a.mu.RUnlock()
	if hook != nil {
		hook(c, strategy, outcome)
	}
}

// GetCredentials returns the credentials attached by the middleware.
func (a *Auth) GetCredentials(c *gin.Context) (Credentials, bool) {
	v, exists := c.Get(a.credentialsContextKey)
	if !exists {
		return nil, false
	}
	creds, ok := v.(Credentials)
	return creds, ok
}

// IsAuthenticated reports whether the middleware accepted the request.
func (a *Auth) IsAuthenticated(c *gin.Context) bool {
	v, exists := c.Get(a.isAuthenticatedContextKey)
	if !exists {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}

// GetStrategyName returns the strategy that authenticated the request.
func (a *Auth) GetStrategyName(c *gin.Context) string {
	return c.GetString(a.strategyContextKey)
}

func generateContextKey() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic("apikeyauth: failed to generate random context key: " + err.Error())
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
