package apikeyauth

import (
	"errors"
	"fmt"
)

// PluginOptions configure Register.
type PluginOptions struct {
	// SchemeName defaults to "api-key".
	SchemeName string

	// Strategy, when set, is registered right away so callers do not need a
	// separate Auth.Strategy call.
	Strategy *StrategyOptions
}

// StrategyOptions describe a pre-configured strategy.
type StrategyOptions struct {
	Name            string
	Mode            Mode
	KeyStore        *KeyStore
	QueryParamName  string
	HeaderParamName string
}

// Register adds the api-key scheme to auth and, when configured, the
// convenience strategy. The returned strategy is nil if none was configured.
func Register(auth *Auth, opts *PluginOptions) (*Strategy, error) {
	if auth == nil {
		return nil, errors.New("auth is required")
	}
	if opts == nil {
		opts = &PluginOptions{}
	}
	schemeName := opts.SchemeName
	if schemeName == "" {
		schemeName = DefaultSchemeName
	}

	if err := auth.Scheme(schemeName, NewAPIKeyScheme); err != nil {
		return nil, err
	}

	if opts.Strategy == nil {
		return nil, nil
	}
	if opts.Strategy.Name == "" {
		return nil, fmt.Errorf("strategy name is required for scheme %q", schemeName)
	}
	return auth.Strategy(opts.Strategy.Name, schemeName, opts.Strategy.Mode, &SchemeOptions{
		QueryParamName:  opts.Strategy.QueryParamName,
		HeaderParamName: opts.Strategy.HeaderParamName,
		KeyStore:        opts.Strategy.KeyStore,
	})
}
