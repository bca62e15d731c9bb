package apikeyauth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKeyStore_Map(t *testing.T) {
	store, err := ParseKeyStore(map[string]any{
		"knockknock": map[string]any{"name": "Who Is There"},
	})
	require.NoError(t, err)
	assert.Equal(t, StoreKindMap, store.Kind())
	assert.Equal(t, 1, store.Len())

	creds, ok := store.lookup("knockknock")
	require.True(t, ok)
	assert.Equal(t, "Who Is There", creds["name"])
}

func TestParseKeyStore_List(t *testing.T) {
	store, err := ParseKeyStore([]any{
		map[string]any{"X-API-KEY4": "abc"},
		map[string]any{"X-API-KEY5": "dev"},
	})
	require.NoError(t, err)
	assert.Equal(t, StoreKindList, store.Kind())
	assert.Equal(t, []HeaderKey{
		{Header: "X-API-KEY4", Key: "abc"},
		{Header: "X-API-KEY5", Key: "dev"},
	}, store.HeaderKeys())
}

func TestParseKeyStore_EmptyListIsMap(t *testing.T) {
	store, err := ParseKeyStore([]any{})
	require.NoError(t, err)
	assert.Equal(t, StoreKindMap, store.Kind())
}

func TestParseKeyStore_Nil(t *testing.T) {
	store, err := ParseKeyStore(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, store.Len())
}

func TestParseKeyStore_Invalid(t *testing.T) {
	tests := []struct {
		name string
		raw  any
	}{
		{name: "scalar", raw: "knockknock"},
		{name: "number", raw: 42},
		{name: "map with scalar credentials", raw: map[string]any{"k": "v"}},
		{name: "map with nil credentials", raw: map[string]any{"k": nil}},
		{name: "list with scalar", raw: []any{"abc"}},
		{name: "list with multi-entry map", raw: []any{map[string]any{"a": "1", "b": "2"}}},
		{name: "list with empty map", raw: []any{map[string]any{}}},
		{name: "list with non-string key", raw: []any{map[string]any{"a": 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseKeyStore(tt.raw)
			assert.ErrorIs(t, err, ErrInvalidKeyStore)
		})
	}
}

func TestNewMapStore_CopiesInput(t *testing.T) {
	entries := map[string]Credentials{"a": {"name": "A"}}
	store := NewMapStore(entries)
	entries["b"] = Credentials{"name": "B"}

	_, ok := store.lookup("b")
	assert.False(t, ok)
	assert.Equal(t, 1, store.Len())
}

func TestKeyStore_NilReceiver(t *testing.T) {
	var store *KeyStore
	assert.Equal(t, StoreKindMap, store.Kind())
	assert.Equal(t, 0, store.Len())
	assert.Nil(t, store.HeaderKeys())
	_, ok := store.lookup("x")
	assert.False(t, ok)
}

func TestMatchHeader_DuplicateHeaders(t *testing.T) {
	store := NewListStore([]HeaderKey{
		{Header: "X-Key", Key: "first"},
		{Header: "x-key", Key: "second"},
	})
	for _, key := range []string{"first", "second"} {
		header, ok := store.matchHeader("X-KEY", key)
		assert.True(t, ok, key)
		assert.NotEmpty(t, header)
	}
	_, ok := store.matchHeader("X-Key", "third")
	assert.False(t, ok)
}

func TestNewSchemeConfig_RejectsEmptyCredentials(t *testing.T) {
	store := NewMapStore(map[string]Credentials{
		"knockknock": {"name": "Who Is There"},
		"empty":      nil,
	})
	_, err := NewSchemeConfig(&SchemeOptions{KeyStore: store})
	assert.ErrorIs(t, err, ErrInvalidKeyStore)

	auth := NewAuth()
	_, err = Register(auth, &PluginOptions{Strategy: &StrategyOptions{Name: "keys", KeyStore: store}})
	assert.ErrorIs(t, err, ErrInvalidKeyStore)
}
