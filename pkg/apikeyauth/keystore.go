package apikeyauth

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/textproto"
)

// ErrInvalidKeyStore is returned when a key store definition has neither the
// map nor the list shape.
var ErrInvalidKeyStore = errors.New("invalid key store")

// Credentials is the opaque record attached to an authenticated request.
// Map stores require a non-nil record per key.
type Credentials map[string]any

// StoreKind tags the shape of a KeyStore.
type StoreKind string

const (
	StoreKindMap  StoreKind = "map"
	StoreKindList StoreKind = "list"
)

// HeaderKey pairs one header field name with the literal key it must carry.
type HeaderKey struct {
	Header string
	Key    string
}

type listEntry struct {
	header string
	digest [sha256.Size]byte
}

// KeyStore holds the acceptable keys. It is either a map of key to
// credentials or an ordered list of header/key pairs. A KeyStore is never
// mutated after construction.
type KeyStore struct {
	kind    StoreKind
	entries map[string]Credentials
	list    []listEntry
	headers []HeaderKey
}

// NewMapStore builds a map-shaped store. The map is copied.
func NewMapStore(entries map[string]Credentials) *KeyStore {
	copied := make(map[string]Credentials, len(entries))
	for k, v := range entries {
		copied[k] = v
	}
	return &KeyStore{kind: StoreKindMap, entries: copied}
}

// NewListStore builds a list-shaped store. An empty list yields an empty
// map store, since only a non-empty list selects the list shape.
func NewListStore(headerKeys []HeaderKey) *KeyStore {
	if len(headerKeys) == 0 {
		return NewMapStore(nil)
	}
	s := &KeyStore{
		kind:    StoreKindList,
		list:    make([]listEntry, len(headerKeys)),
		headers: make([]HeaderKey, len(headerKeys)),
	}
	copy(s.headers, headerKeys)
	for i, hk := range headerKeys {
		s.list[i] = listEntry{
			header: textproto.CanonicalMIMEHeaderKey(hk.Header),
			digest: hashAPIKey(hk.Key),
		}
	}
	return s
}

// ParseKeyStore converts a decoded YAML or JSON document into a KeyStore.
// A mapping of key to object becomes a map store, a sequence of single-entry
// {header: key} mappings becomes a list store.
func ParseKeyStore(raw any) (*KeyStore, error) {
	switch v := raw.(type) {
	case nil:
		return NewMapStore(nil), nil
	case map[string]any:
		entries := make(map[string]Credentials, len(v))
		for key, value := range v {
			creds, err := toCredentials(value)
			if err != nil {
				return nil, fmt.Errorf("%w: entry %q: %v", ErrInvalidKeyStore, key, err)
			}
			entries[key] = creds
		}
		return NewMapStore(entries), nil
	case []any:
		headerKeys := make([]HeaderKey, 0, len(v))
		for i, item := range v {
			m, ok := item.(map[string]any)
			if !ok || len(m) != 1 {
				return nil, fmt.Errorf("%w: list entry %d must be a single-entry mapping", ErrInvalidKeyStore, i)
			}
			for header, key := range m {
				s, ok := key.(string)
				if !ok {
					return nil, fmt.Errorf("%w: list entry %d: key for %q must be a string", ErrInvalidKeyStore, i, header)
				}
				headerKeys = append(headerKeys, HeaderKey{Header: header, Key: s})
			}
		}
		return NewListStore(headerKeys), nil
	default:
		return nil, fmt.Errorf("%w: unsupported type %T", ErrInvalidKeyStore, raw)
	}
}

func toCredentials(value any) (Credentials, error) {
	switch c := value.(type) {
	case map[string]any:
		return Credentials(c), nil
	case Credentials:
		return c, nil
	case nil:
		return nil, errors.New("credentials must not be empty")
	default:
		return nil, fmt.Errorf("credentials must be an object, got %T", value)
	}
}

// validate reports map entries without a credentials record.
func (s *KeyStore) validate() error {
	if s == nil {
		return nil
	}
	empty := 0
	for _, creds := range s.entries {
		if creds == nil {
			empty++
		}
	}
	if empty > 0 {
		return fmt.Errorf("%w: %d key(s) without credentials", ErrInvalidKeyStore, empty)
	}
	return nil
}

// Kind reports the shape of the store.
func (s *KeyStore) Kind() StoreKind {
	if s == nil {
		return StoreKindMap
	}
	return s.kind
}

// Len returns the number of configured keys.
func (s *KeyStore) Len() int {
	if s == nil {
		return 0
	}
	if s.kind == StoreKindList {
		return len(s.list)
	}
	return len(s.entries)
}

// HeaderKeys returns a copy of the list entries. It is empty for map stores.
func (s *KeyStore) HeaderKeys() []HeaderKey {
	if s == nil {
		return nil
	}
	out := make([]HeaderKey, len(s.headers))
	copy(out, s.headers)
	return out
}

func (s *KeyStore) lookup(key string) (Credentials, bool) {
	if s == nil {
		return nil, false
	}
	creds, ok := s.entries[key]
	if !ok || creds == nil {
		return nil, false
	}
	return creds, true
}

// matchHeader scans the list for an entry carrying header with the given key.
// Every entry for the header is compared so timing does not depend on which
// one matched.
func (s *KeyStore) matchHeader(header, key string) (string, bool) {
	if s == nil {
		return "", false
	}
	canonical := textproto.CanonicalMIMEHeaderKey(header)
	inputHash := hashAPIKey(key)
	matched := ""
	found := false
	for i, entry := range s.list {
		if entry.header != canonical {
			continue
		}
		if subtle.ConstantTimeCompare(inputHash[:], entry.digest[:]) == 1 && !found {
			matched = s.headers[i].Header
			found = true
		}
	}
	return matched, found
}

// Pre-hash keys so the constant-time compare works on fixed-length inputs.
func hashAPIKey(key string) [sha256.Size]byte {
	return sha256.Sum256([]byte(key))
}
