package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mxcd/apikey-fwd-auth/internal/keystore"
	"github.com/mxcd/apikey-fwd-auth/internal/server"
	"github.com/mxcd/apikey-fwd-auth/internal/util"
	"github.com/mxcd/apikey-fwd-auth/pkg/apikeyauth"
	"github.com/mxcd/apikey-fwd-auth/pkg/jwt"
	"github.com/mxcd/go-config/config"
)

func main() {
	err := util.InitConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("unable to initialize config")
	}
	config.Print()
	if err := util.InitLogger(util.NewLoggerOptionsFromEnv()); err != nil {
		log.Fatal().Err(err).Msg("unable to initialize logger")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := loadKeyStore(ctx, config.Get().String("KEY_STORE_BACKEND"))
	if err != nil {
		log.Fatal().Err(err).Msg("unable to load key store")
	}
	log.Info().Int("keys", store.Len()).Str("shape", string(store.Kind())).Msg("key store loaded")

	mode, err := apikeyauth.ParseMode(config.Get().String("STRATEGY_MODE"))
	if err != nil {
		log.Fatal().Err(err).Msg("invalid strategy mode")
	}

	auth := apikeyauth.NewAuth()
	strategy, err := apikeyauth.Register(auth, &apikeyauth.PluginOptions{
		Strategy: &apikeyauth.StrategyOptions{
			Name:            config.Get().String("STRATEGY_NAME"),
			Mode:            mode,
			KeyStore:        store,
			QueryParamName:  config.Get().String("API_KEY_QUERY_PARAM"),
			HeaderParamName: config.Get().String("API_KEY_HEADER_PARAM"),
		},
	})
	if err != nil {
		log.Fatal().Err(err).Msg("unable to register authentication strategy")
	}

	if config.Get().String("KEY_STORE_BACKEND") == "file" && config.Get().Bool("KEY_STORE_WATCH") {
		watcher, err := keystore.NewWatcher(config.Get().String("KEY_STORE_FILE"), 0, func(store *apikeyauth.KeyStore) {
			if err := strategy.SetKeyStore(store); err != nil {
				log.Error().Err(err).Msg("unable to swap key store")
			}
		})
		if err != nil {
			log.Fatal().Err(err).Msg("unable to watch key store file")
		}
		go func() {
			if err := watcher.Run(ctx); err != nil {
				log.Error().Err(err).Msg("key store watcher stopped")
			}
		}()
	}

	// JWT signer (optional)
	var jwtSigner *jwt.Signer
	if config.Get().Bool("CREATE_JWT") {
		jwtSigner, err = jwt.NewSigner(&jwt.SignerOptions{
			Algorithm:     config.Get().String("JWT_ALGORITHM"),
			JwtPrivateKey: config.Get().String("JWT_PRIVATE_KEY"),
			JwtIssuer:     config.Get().String("JWT_ISSUER"),
			TTL:           time.Duration(config.Get().Int("JWT_TTL")) * time.Second,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("error initializing jwt signer")
		}
	}

	s, err := server.NewServer(&server.ServerOptions{
		Port:           config.Get().Int("PORT"),
		Auth:           auth,
		StrategyName:   strategy.Name(),
		JwtSigner:      jwtSigner,
		MetricsEnabled: config.Get().Bool("METRICS_ENABLED"),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("unable to create http server")
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("http server shutdown failed")
		}
	}()

	if err := s.Run(); err != nil {
		log.Fatal().Err(err).Msg("unable to start http server")
	}
}

func loadKeyStore(ctx context.Context, backend string) (*apikeyauth.KeyStore, error) {
	switch backend {
	case "file":
		return keystore.LoadFile(config.Get().String("KEY_STORE_FILE"))
	case "env":
		return keystore.FromKeyList(config.Get().StringArray("API_KEYS"))
	case "redis":
		loader := keystore.NewRedisLoader(&keystore.RedisConfig{
			Host:          config.Get().String("REDIS_HOST"),
			Port:          config.Get().Int("REDIS_PORT"),
			Password:      config.Get().String("REDIS_PASSWORD"),
			DatabaseIndex: config.Get().Int("REDIS_DB"),
			HashKey:       config.Get().String("REDIS_KEY_STORE_HASH"),
		})
		defer loader.Close()
		loadCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		return loader.Load(loadCtx)
	default:
		return nil, fmt.Errorf("unknown key store backend %q", backend)
	}
}
