package util

import "github.com/mxcd/go-config/config"

func InitConfig() error {
	err := config.LoadConfigWithOptions([]config.Value{
		config.String("LOG_LEVEL").NotEmpty().Default("info"),
		config.Bool("DEV").Default(false),
		config.Int("PORT").Default(8080),

		config.String("API_KEY_QUERY_PARAM").NotEmpty().Default("token"),
		config.String("API_KEY_HEADER_PARAM").NotEmpty().Default("x-api-key"),
		config.String("STRATEGY_NAME").NotEmpty().Default("api-key"),
		config.String("STRATEGY_MODE").NotEmpty().Default("required"),

		config.String("KEY_STORE_BACKEND").NotEmpty().Default("file"),
		config.String("KEY_STORE_FILE").Default("keys.yaml"),
		config.Bool("KEY_STORE_WATCH").Default(false),
		// comma separated "name:key" entries, split at the first colon
		config.StringArray("API_KEYS").Sensitive().Default([]string{}),

		config.String("REDIS_HOST").Default("localhost"),
		config.Int("REDIS_PORT").Default(6379),
		config.String("REDIS_PASSWORD").Sensitive().Default(""),
		config.Int("REDIS_DB").Default(0),
		config.String("REDIS_KEY_STORE_HASH").Default("apikeys"),

		config.Bool("CREATE_JWT").Default(false),
		config.String("JWT_ALGORITHM").Default("RS512"),
		config.String("JWT_PRIVATE_KEY").Sensitive(),
		config.String("JWT_ISSUER"),
		config.Int("JWT_TTL").Default(300),

		config.Bool("METRICS_ENABLED").Default(true),
	}, &config.LoadConfigOptions{
		DotEnvFile: "apikey-fwd-auth.env",
	})
	return err
}
