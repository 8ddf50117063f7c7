package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		AppName          string
		Env              string // DEV (local; default), TEST, QA, PROD
		Build            string
		Debug            bool
		TestMode         bool
		SecretKey        string
		FrontendBaseURL  string
		DefaultFromEmail mail.Address
		SendgridApiKey   string
		RollbarToken     string

		Server   ServerConfig
		Database DatabaseConfig
		Cache    CacheConfig
	}

	ServerConfig struct {
		Host                      string
		Address                   string
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		AllowedOrigins            []string
	}

	DatabaseConfig struct {
		Engine        string // postgres | memory
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
		QueryTimeout  time.Duration
	}

	CacheConfig struct {
		RedisURL   string
		CatalogTTL time.Duration
	}
)

func (dc DatabaseConfig) Address() string {
	return net.JoinHostPort(dc.Host, dc.Port)
}

// NewConfig loads the configuration of the current ENV.
// Values are read from the environment (prefixed with ENV, e.g. DEV_SECRET_KEY)
// after loading config/.env.<env> if it exists.
func NewConfig() *Config {
	v := viper.New()

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", env == "DEV" || env == "TEST")
	v.SetDefault("test_mode", env == "TEST")
	v.SetDefault("app_name", "Masomo")
	v.SetDefault("build", "develop")
	v.SetDefault("secret_key", "poq5-wer)enb$+57=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy")
	v.SetDefault("frontend_base_url", "http://localhost:5173")
	v.SetDefault("default_from_email", "Masomo <noreply@localhost>")
	v.SetDefault("sendgrid_api_key", "")
	v.SetDefault("rollbar_token", "")

	v.SetDefault("server_host", "localhost")
	v.SetDefault("server_address", ":5000")
	v.SetDefault("server_debug_host", ":5050")
	v.SetDefault("server_shutdown_timeout", 10*time.Second)
	v.SetDefault("jwt_expiration_delta", 24*time.Hour)
	v.SetDefault("jwt_refresh_expiration_delta", 7*24*time.Hour)
	v.SetDefault("allowed_origins", []string{"http://localhost:5173", "http://localhost:3000"})

	v.SetDefault("db_engine", "postgres")
	v.SetDefault("db_host", "localhost")
	v.SetDefault("db_port", "5432")
	v.SetDefault("db_name", "masomo")
	v.SetDefault("db_user", "masomo")
	v.SetDefault("db_password", "masomo")
	v.SetDefault("db_admin_user", "")
	v.SetDefault("db_admin_password", "")
	v.SetDefault("db_disable_tls", env == "DEV" || env == "TEST")
	v.SetDefault("db_query_timeout", 5*time.Second)

	v.SetDefault("redis_url", "")
	v.SetDefault("catalog_cache_ttl", time.Minute)

	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	fromEmail, err := mail.ParseAddress(v.GetString("default_from_email"))
	if err != nil {
		log.Fatalf("config.default_from_email: %v", err)
	}

	return &Config{
		AppName:          v.GetString("app_name"),
		Env:              env,
		Build:            v.GetString("build"),
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("test_mode"),
		SecretKey:        v.GetString("secret_key"),
		FrontendBaseURL:  v.GetString("frontend_base_url"),
		DefaultFromEmail: *fromEmail,
		SendgridApiKey:   v.GetString("sendgrid_api_key"),
		RollbarToken:     v.GetString("rollbar_token"),
		Server: ServerConfig{
			Host:                      v.GetString("server_host"),
			Address:                   v.GetString("server_address"),
			DebugHost:                 v.GetString("server_debug_host"),
			ShutdownTimeout:           v.GetDuration("server_shutdown_timeout"),
			JWTExpirationDelta:        v.GetDuration("jwt_expiration_delta"),
			JWTRefreshExpirationDelta: v.GetDuration("jwt_refresh_expiration_delta"),
			AllowedOrigins:            v.GetStringSlice("allowed_origins"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("db_engine"),
			Host:          v.GetString("db_host"),
			Port:          v.GetString("db_port"),
			Name:          v.GetString("db_name"),
			User:          v.GetString("db_user"),
			Password:      v.GetString("db_password"),
			AdminUser:     v.GetString("db_admin_user"),
			AdminPassword: v.GetString("db_admin_password"),
			DisableTLS:    v.GetBool("db_disable_tls"),
			QueryTimeout:  v.GetDuration("db_query_timeout"),
		},
		Cache: CacheConfig{
			RedisURL:   v.GetString("redis_url"),
			CatalogTTL: v.GetDuration("catalog_cache_ttl"),
		},
	}
}

// NewTestConfig returns a Config suitable for tests: no external services, in-memory database.
func NewTestConfig() *Config {
	return &Config{
		AppName:          "Masomo",
		Env:              "TEST",
		Build:            "test",
		TestMode:         true,
		SecretKey:        "secret",
		FrontendBaseURL:  "http://localhost:5173",
		DefaultFromEmail: mail.Address{Name: "Masomo", Address: "noreply@localhost"},
		Server: ServerConfig{
			Host:                      "localhost",
			ShutdownTimeout:           time.Second,
			JWTExpirationDelta:        24 * time.Hour,
			JWTRefreshExpirationDelta: 7 * 24 * time.Hour,
		},
		Database: DatabaseConfig{Engine: "memory", QueryTimeout: time.Second},
		Cache:    CacheConfig{CatalogTTL: time.Minute},
	}
}
