package apikeyauth

import (
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

// Authenticator decides whether a request carries valid credentials.
type Authenticator interface {
	Authenticate(c *gin.Context) (Credentials, error)
}

// SchemeFactory builds an Authenticator from the options a strategy is
// registered with.
type SchemeFactory func(options any) (Authenticator, error)

// KeyStoreReloader is implemented by authenticators whose key store can be
// replaced at runtime.
type KeyStoreReloader interface {
	SetKeyStore(store *KeyStore)
}

// APIKeyScheme authenticates requests by query or header API key.
type APIKeyScheme struct {
	config atomic.Pointer[SchemeConfig]
}

// NewAPIKeyScheme is the SchemeFactory of the api-key scheme.
func NewAPIKeyScheme(options any) (Authenticator, error) {
	opts, err := schemeOptionsFrom(options)
	if err != nil {
		return nil, err
	}
	cfg, err := NewSchemeConfig(opts)
	if err != nil {
		return nil, err
	}
	s := &APIKeyScheme{}
	s.config.Store(cfg)
	return s, nil
}

// Config returns the configuration currently in use.
func (s *APIKeyScheme) Config() *SchemeConfig {
	return s.config.Load()
}

// SetKeyStore swaps in a new configuration using store. Requests already
// being evaluated keep the configuration they started with.
func (s *APIKeyScheme) SetKeyStore(store *KeyStore) {
	s.config.Store(s.config.Load().WithKeyStore(store))
}

func (s *APIKeyScheme) Authenticate(c *gin.Context) (Credentials, error) {
	return Authenticate(s.config.Load(), c.Request.URL.Query(), c.Request.Header)
}
