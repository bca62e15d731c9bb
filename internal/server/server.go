package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/mxcd/apikey-fwd-auth/pkg/apikeyauth"
	"github.com/mxcd/apikey-fwd-auth/pkg/jwt"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

type ServerOptions struct {
	Port           int
	Auth           *apikeyauth.Auth
	StrategyName   string
	JwtSigner      *jwt.Signer
	MetricsEnabled bool
}

type Server struct {
	Options    *ServerOptions
	Engine     *gin.Engine
	HttpServer *http.Server
	JwtCache   *expirable.LRU[string, string]
}

func NewServer(options *ServerOptions) (*Server, error) {
	if options.Auth == nil {
		return nil, errors.New("auth is required")
	}

	var names []string
	if options.StrategyName != "" {
		names = append(names, options.StrategyName)
	}
	authMiddleware, err := options.Auth.Middleware(names...)
	if err != nil {
		return nil, err
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), requestID(), requestLogger())

	s := &Server{
		Options: options,
		Engine:  engine,
	}

	if options.JwtSigner != nil {
		// Cached tokens are dropped at half their lifetime so a token handed
		// out always has some validity left.
		s.JwtCache = expirable.NewLRU[string, string](1000, nil, options.JwtSigner.Options.TTL/2)
	}

	if options.MetricsEnabled {
		options.Auth.OnDecision(recordDecision)
		engine.Use(instrument())
		engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})

	if options.JwtSigner != nil {
		engine.GET("/JWKS", func(c *gin.Context) {
			c.JSON(http.StatusOK, s.Options.JwtSigner.Jwks)
		})
	}

	engine.GET("/api-auth", rewriteRequest, authMiddleware, s.handleFwdAuth)

	engine.GET("/whoami", authMiddleware, func(c *gin.Context) {
		creds, _ := s.Options.Auth.GetCredentials(c)
		c.JSON(http.StatusOK, gin.H{
			"strategy":    s.Options.Auth.GetStrategyName(c),
			"credentials": creds,
		})
	})

	s.HttpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.Options.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s, nil
}

func (s *Server) handleFwdAuth(c *gin.Context) {
	if !s.Options.Auth.IsAuthenticated(c) {
		// optional and try strategies let unauthenticated requests through
		c.Status(http.StatusOK)
		return
	}

	c.Header("X-Auth-Strategy", s.Options.Auth.GetStrategyName(c))

	if s.Options.JwtSigner != nil {
		if err := s.addJwtHeader(c); err != nil {
			log.Error().Err(err).Msg("failed to generate JWT")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"message": "failed to generate JWT",
				"code":    "internal_error",
			})
			return
		}
	}

	c.Status(http.StatusOK)
}

func (s *Server) Run() error {
	log.Info().Str("addr", s.HttpServer.Addr).Msg("starting http server")
	err := s.HttpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.HttpServer.Shutdown(ctx)
}
