package server

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/mxcd/apikey-fwd-auth/pkg/apikeyauth"
	"github.com/rs/zerolog/log"
	"github.com/zeebo/blake3"
)

func (s *Server) addJwtHeader(c *gin.Context) error {
	creds, ok := s.Options.Auth.GetCredentials(c)
	if !ok {
		return fmt.Errorf("no credentials found for request")
	}
	strategy := s.Options.Auth.GetStrategyName(c)

	cacheKey, err := jwtCacheKey(strategy, creds)
	if err != nil {
		return err
	}
	if token, ok := s.JwtCache.Get(cacheKey); ok {
		log.Trace().Msg("using cached jwt")
		c.Header("Authorization", "Bearer "+token)
		return nil
	}

	log.Trace().Msg("signing new jwt")
	token, err := s.Options.JwtSigner.NewToken(subjectOf(strategy, creds))
	if err != nil {
		return err
	}
	if err := token.Set("strategy", strategy); err != nil {
		return err
	}
	if err := token.Set("credentials", map[string]any(creds)); err != nil {
		return err
	}

	tokenData, err := s.Options.JwtSigner.SignToken(token)
	if err != nil {
		return err
	}

	s.JwtCache.Add(cacheKey, string(tokenData))
	c.Header("Authorization", "Bearer "+string(tokenData))
	return nil
}

// jwtCacheKey identifies a caller by strategy and credentials. encoding/json
// sorts map keys, so equal credentials hash equally.
func jwtCacheKey(strategy string, creds apikeyauth.Credentials) (string, error) {
	data, err := json.Marshal(creds)
	if err != nil {
		return "", err
	}
	hasher := blake3.New()
	hasher.WriteString(strategy)
	hasher.Write([]byte{0})
	hasher.Write(data)
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

func subjectOf(strategy string, creds apikeyauth.Credentials) string {
	for _, field := range []string{"name", "header"} {
		if v, ok := creds[field].(string); ok && v != "" {
			return v
		}
	}
	return strategy
}
