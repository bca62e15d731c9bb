package apikeyauth

import (
	"errors"
	"fmt"
	"strings"
)

const (
	DefaultQueryParamName  = "token"
	DefaultHeaderParamName = "x-api-key"
	DefaultSchemeName      = "api-key"
)

// SchemeOptions are the caller supplied options of one strategy.
// Zero values fall back to the defaults.
type SchemeOptions struct {
	QueryParamName  string
	HeaderParamName string
	KeyStore        *KeyStore
}

// SchemeConfig is the immutable configuration of one strategy instance.
type SchemeConfig struct {
	queryParamName  string
	headerParamName string
	keyStore        *KeyStore
}

// NewSchemeConfig merges options over the defaults.
func NewSchemeConfig(opts *SchemeOptions) (*SchemeConfig, error) {
	cfg := &SchemeConfig{
		queryParamName:  DefaultQueryParamName,
		headerParamName: DefaultHeaderParamName,
		keyStore:        NewMapStore(nil),
	}
	if opts == nil {
		return cfg, nil
	}

	if opts.QueryParamName != "" {
		cfg.queryParamName = opts.QueryParamName
	}
	if opts.HeaderParamName != "" {
		if strings.ContainsAny(opts.HeaderParamName, " \t\r\n:") {
			return nil, fmt.Errorf("invalid header parameter name %q", opts.HeaderParamName)
		}
		cfg.headerParamName = opts.HeaderParamName
	}
	if opts.KeyStore != nil {
		if err := opts.KeyStore.validate(); err != nil {
			return nil, err
		}
		cfg.keyStore = opts.KeyStore
	}
	return cfg, nil
}

func (c *SchemeConfig) QueryParamName() string {
	return c.queryParamName
}

func (c *SchemeConfig) HeaderParamName() string {
	return c.headerParamName
}

func (c *SchemeConfig) KeyStore() *KeyStore {
	return c.keyStore
}

// WithKeyStore returns a copy of the config using another key store.
func (c *SchemeConfig) WithKeyStore(store *KeyStore) *SchemeConfig {
	if store == nil {
		store = NewMapStore(nil)
	}
	return &SchemeConfig{
		queryParamName:  c.queryParamName,
		headerParamName: c.headerParamName,
		keyStore:        store,
	}
}

// schemeOptionsFrom accepts the option forms a strategy can be registered
// with: SchemeOptions (value or pointer), a bare *KeyStore, or a decoded
// settings map with queryParamName, headerParamName and keyStore fields.
func schemeOptionsFrom(raw any) (*SchemeOptions, error) {
	switch v := raw.(type) {
	case nil:
		return &SchemeOptions{}, nil
	case *SchemeOptions:
		if v == nil {
			return &SchemeOptions{}, nil
		}
		return v, nil
	case SchemeOptions:
		return &v, nil
	case *KeyStore:
		return &SchemeOptions{KeyStore: v}, nil
	case map[string]any:
		opts := &SchemeOptions{}
		for field, value := range v {
			switch field {
			case "queryParamName":
				s, ok := value.(string)
				if !ok {
					return nil, errors.New("queryParamName must be a string")
				}
				opts.QueryParamName = s
			case "headerParamName":
				s, ok := value.(string)
				if !ok {
					return nil, errors.New("headerParamName must be a string")
				}
				opts.HeaderParamName = s
			case "keyStore":
				store, err := ParseKeyStore(value)
				if err != nil {
					return nil, err
				}
				opts.KeyStore = store
			default:
				return nil, fmt.Errorf("unknown option %q", field)
			}
		}
		return opts, nil
	default:
		return nil, fmt.Errorf("unsupported scheme options type %T", raw)
	}
}
