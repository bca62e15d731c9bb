package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

const defaultTTL = 5 * time.Minute

type SignerOptions struct {
	Algorithm string
	// PEM encoded private key (RSA, EC or Ed25519).
	JwtPrivateKey string
	JwtIssuer     string
	TTL           time.Duration
}

// Signer issues short lived tokens describing an authenticated caller and
// publishes the matching public key set.
type Signer struct {
	Jwks      jwk.Set
	Options   *SignerOptions
	algorithm jwa.SignatureAlgorithm
	key       jwk.Key
}

func NewSigner(options *SignerOptions) (*Signer, error) {
	if options.JwtPrivateKey == "" {
		return nil, errors.New("jwt private key is required")
	}
	if options.TTL <= 0 {
		options.TTL = defaultTTL
	}

	var algorithm jwa.SignatureAlgorithm
	if err := algorithm.Accept(options.Algorithm); err != nil {
		return nil, fmt.Errorf("invalid jwt algorithm %q: %w", options.Algorithm, err)
	}

	key, err := jwk.ParseKey([]byte(options.JwtPrivateKey), jwk.WithPEM(true))
	if err != nil {
		return nil, fmt.Errorf("failed to parse jwt private key: %w", err)
	}
	if key.KeyType() == jwa.OctetSeq {
		return nil, errors.New("jwt private key must be asymmetric")
	}
	if err := jwk.AssignKeyID(key); err != nil {
		return nil, err
	}

	publicKey, err := key.PublicKey()
	if err != nil {
		return nil, fmt.Errorf("failed to derive jwt public key: %w", err)
	}
	for field, value := range map[string]any{
		jwk.KeyIDKey:     key.KeyID(),
		jwk.AlgorithmKey: algorithm,
		jwk.KeyUsageKey:  "sig",
	} {
		if err := publicKey.Set(field, value); err != nil {
			return nil, err
		}
	}

	jwks := jwk.NewSet()
	if err := jwks.AddKey(publicKey); err != nil {
		return nil, err
	}

	return &Signer{
		Jwks:      jwks,
		Options:   options,
		algorithm: algorithm,
		key:       key,
	}, nil
}

// NewToken returns a token with issuer, subject, lifetime and id set.
func (s *Signer) NewToken(subject string) (jwt.Token, error) {
	now := time.Now()
	builder := jwt.NewBuilder().
		Subject(subject).
		IssuedAt(now).
		NotBefore(now).
		Expiration(now.Add(s.Options.TTL)).
		JwtID(uuid.NewString())
	if s.Options.JwtIssuer != "" {
		builder = builder.Issuer(s.Options.JwtIssuer)
	}
	return builder.Build()
}

func (s *Signer) SignToken(token jwt.Token) ([]byte, error) {
	return jwt.Sign(token, jwt.WithKey(s.algorithm, s.key))
}
