package apikeyauth

import (
	"net/http"
	"net/url"
)

// LocatedKey describes the candidate key found on one request.
type LocatedKey struct {
	SourceParamName string
	RawValue        string
	Shape           StoreKind
}

// Locate finds the candidate key on a request. The query parameter wins
// whenever it is present, even with an empty or unknown value; the header is
// only consulted when the query parameter is absent. It returns false when
// neither is present.
func Locate(cfg *SchemeConfig, query url.Values, header http.Header) (*LocatedKey, bool) {
	shape := cfg.keyStore.Kind()

	if values, ok := query[cfg.queryParamName]; ok {
		located := &LocatedKey{
			SourceParamName: cfg.queryParamName,
			Shape:           shape,
		}
		if len(values) > 0 {
			located.RawValue = values[0]
		}
		return located, true
	}

	if values := header.Values(cfg.headerParamName); len(values) > 0 {
		return &LocatedKey{
			SourceParamName: cfg.headerParamName,
			RawValue:        values[0],
			Shape:           shape,
		}, true
	}

	return nil, false
}
