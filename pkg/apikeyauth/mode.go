package apikeyauth

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidMode = errors.New("invalid strategy mode")

// Mode controls what happens to a request a strategy could not authenticate.
type Mode string

const (
	// ModeRequired rejects every request without valid credentials.
	ModeRequired Mode = "required"
	// ModeOptional lets requests without a key through unauthenticated but
	// rejects requests carrying an invalid key.
	ModeOptional Mode = "optional"
	// ModeTry lets every request through, authenticated or not.
	ModeTry Mode = "try"
	// ModeNone registers a strategy without making it the default. Routes
	// naming it explicitly treat it as required.
	ModeNone Mode = "false"
)

// ParseMode accepts required, optional, try and false. "true" and the empty
// string mean required.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "true", string(ModeRequired):
		return ModeRequired, nil
	case string(ModeOptional):
		return ModeOptional, nil
	case string(ModeTry):
		return ModeTry, nil
	case string(ModeNone):
		return ModeNone, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

// allows reports whether a failed authentication may still pass.
func (m Mode) allows(err error) bool {
	switch m {
	case ModeTry:
		return true
	case ModeOptional:
		return errors.Is(err, ErrMissingKey)
	default:
		return false
	}
}
