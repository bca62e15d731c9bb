package apikeyauth

import (
	"errors"
	"net/http"
	"net/url"
)

var (
	ErrMissingKey = errors.New("missing API key")
	ErrInvalidKey = errors.New("invalid API key")
)

// Resolve maps a located key to its credentials.
//
// For map stores the raw value is the key into the map. For list stores an
// entry must exist for the located parameter name whose key equals the raw
// value; the credentials then name the matched header.
func Resolve(store *KeyStore, located *LocatedKey) (Credentials, bool) {
	if located == nil {
		return nil, false
	}
	switch located.Shape {
	case StoreKindList:
		header, ok := store.matchHeader(located.SourceParamName, located.RawValue)
		if !ok {
			return nil, false
		}
		return Credentials{"header": header}, true
	default:
		return store.lookup(located.RawValue)
	}
}

// Authenticate runs the locate and resolve phases for one request and
// returns ErrMissingKey or ErrInvalidKey on failure.
func Authenticate(cfg *SchemeConfig, query url.Values, header http.Header) (Credentials, error) {
	located, ok := Locate(cfg, query, header)
	if !ok {
		return nil, ErrMissingKey
	}
	creds, ok := Resolve(cfg.keyStore, located)
	if !ok {
		return nil, ErrInvalidKey
	}
	return creds, nil
}
