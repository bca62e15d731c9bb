package keystore

import (
	"fmt"
	"strings"

	"github.com/mxcd/apikey-fwd-auth/pkg/apikeyauth"
)

// FromKeyList builds a map store from "name:key" entries. The entry is split
// at the first colon, so a key containing a colon needs a name in front of it.
// Entries without a name get "api-key-<n>". Blank entries are skipped.
func FromKeyList(entries []string) (*apikeyauth.KeyStore, error) {
	store := make(map[string]apikeyauth.Credentials, len(entries))
	for i, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		name := fmt.Sprintf("api-key-%d", i+1)
		key := entry
		if n, k, ok := strings.Cut(entry, ":"); ok && n != "" {
			name = strings.TrimSpace(n)
			key = strings.TrimSpace(k)
		}
		if key == "" {
			return nil, fmt.Errorf("%w: entry %d has an empty key", apikeyauth.ErrInvalidKeyStore, i+1)
		}
		if _, exists := store[key]; exists {
			return nil, fmt.Errorf("%w: entry %d duplicates an earlier key", apikeyauth.ErrInvalidKeyStore, i+1)
		}
		store[key] = apikeyauth.Credentials{"name": name}
	}
	return apikeyauth.NewMapStore(store), nil
}
