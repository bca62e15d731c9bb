// Package keystore loads API key stores from files, the environment and
// redis, and watches key files for changes.
package keystore

import (
	"fmt"
	"os"

	"github.com/mxcd/apikey-fwd-auth/pkg/apikeyauth"
	"gopkg.in/yaml.v3"
)

// LoadFile reads a YAML (or JSON) key store. The document is either a
// mapping of key to credentials object or a sequence of single-entry
// {header: key} mappings.
func LoadFile(path string) (*apikeyauth.KeyStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key store file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML or JSON key store document.
func Parse(data []byte) (*apikeyauth.KeyStore, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode key store: %w", err)
	}
	return apikeyauth.ParseKeyStore(normalize(raw))
}

// normalize turns mappings with non-string keys into string keyed ones.
// Numeric looking keys such as 12345 decode as ints otherwise.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalize(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalize(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalize(val)
		}
		return out
	default:
		return v
	}
}
