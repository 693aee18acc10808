package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

//go:embed config.yml
var embeddedConfig []byte

type Config struct {
	Mode     string `mapstructure:"mode"`
	Handlers struct {
		Prometheus struct {
			Port string `mapstructure:"port"`
		} `mapstructure:"prometheus"`
	} `mapstructure:"handlers"`
	Repositories struct {
		Postgres struct {
			URL      string `mapstructure:"url"`
			Host     string `mapstructure:"host"`
			Password string `mapstructure:"password"`
			Port     string `mapstructure:"port"`
			Username string `mapstructure:"username"`
			DB       string `mapstructure:"db"`
			SSLMODE  string `mapstructure:"SSLMODE"`
			// ConnectAttempts bounds the startup pings before giving up.
			ConnectAttempts int `mapstructure:"connectAttempts"`
		} `mapstructure:"postgres"`
	} `mapstructure:"repositories"`
	Server struct {
		HTTPPort       string        `mapstructure:"HTTPPort"`
		Timeout        time.Duration `mapstructure:"HTTPTimeout"`
		AllowedOrigins []string      `mapstructure:"allowedOrigins"`
		EnableTLS      bool          `mapstructure:"enableTLS"`
		CertFile       string        `mapstructure:"certFile"`
		KeyFile        string        `mapstructure:"keyFile"`
	} `mapstructure:"server"`
	JWT    JWTConfig    `mapstructure:"jwt"`
	Google GoogleConfig `mapstructure:"google"`
}

// JWTConfig controls session token issuing and the cookie that carries it.
type JWTConfig struct {
	SecretKey    string        `mapstructure:"secretKey"`
	TokenTTL     time.Duration `mapstructure:"tokenTTL"`
	CookieName   string        `mapstructure:"cookieName"`
	CookieSecure bool          `mapstructure:"cookieSecure"`
	// Revalidate reloads the user on every authenticated request instead of
	// trusting the admin flag embedded in the token.
	Revalidate bool `mapstructure:"revalidate"`
	BcryptCost int  `mapstructure:"bcryptCost"`
}

type GoogleConfig struct {
	ClientID      string `mapstructure:"clientID"`
	ClientSecret  string `mapstructure:"clientSecret"`
	CallbackURL   string `mapstructure:"callbackURL"`
	SessionSecret string `mapstructure:"sessionSecret"`
	// AllowClientAssertion mounts POST /api/auth/google, which trusts the
	// profile in the request body.
	AllowClientAssertion bool `mapstructure:"allowClientAssertion"`
}

// Enabled reports whether the server side Google OAuth flow can be mounted.
func (g GoogleConfig) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != "" && g.CallbackURL != ""
}

var envBindings = map[string]string{
	"mode":                        "APP_ENV",
	"server.HTTPPort":             "PORT",
	"server.enableTLS":            "TLS_ENABLED",
	"server.certFile":             "TLS_CERT_FILE",
	"server.keyFile":              "TLS_KEY_FILE",
	"repositories.postgres.url":   "DATABASE_URL",
	"jwt.secretKey":               "JWT_SECRET",
	"jwt.cookieSecure":            "COOKIE_SECURE",
	"google.clientID":             "GOOGLE_CLIENT_ID",
	"google.clientSecret":         "GOOGLE_CLIENT_SECRET",
	"google.callbackURL":          "GOOGLE_CALLBACK_URL",
	"google.sessionSecret":        "GOOGLE_SESSION_SECRET",
	"google.allowClientAssertion": "GOOGLE_ALLOW_CLIENT_ASSERTION",
}

func InitConfig() (Config, error) {
	var config Config
	v := viper.New()

	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.AddConfigPath("/app/config")

	v.SetConfigName("config")
	v.SetConfigType("yml")

	err := v.ReadInConfig()
	if err != nil {
		fmt.Printf("Warning: Failed to find file-based config: %s. Falling back to embedded config.\n", err)
		if err = v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
			return Config{}, fmt.Errorf("failed to read embedded config: %w", err)
		}
	}

	for key, env := range envBindings {
		if err = v.BindEnv(key, env); err != nil {
			return Config{}, fmt.Errorf("failed to bind env %s: %w", env, err)
		}
	}

	if err = v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err = config.Validate(); err != nil {
		return Config{}, err
	}
	fmt.Println("Successfully loaded app configs...")
	return config, nil
}

// Validate checks the settings the server cannot start without.
func (c Config) Validate() error {
	var errs []error
	if c.Repositories.Postgres.URL == "" && c.Repositories.Postgres.Host == "" {
		errs = append(errs, errors.New("database connection string is missing (set DATABASE_URL)"))
	}
	if c.JWT.SecretKey == "" {
		errs = append(errs, errors.New("jwt secret key is missing (set JWT_SECRET)"))
	}
	if c.Server.HTTPPort == "" {
		errs = append(errs, errors.New("server port is missing (set PORT)"))
	}
	if c.Server.EnableTLS && (c.Server.CertFile == "" || c.Server.KeyFile == "") {
		errs = append(errs, errors.New("tls is enabled but certificate or key file is missing (set TLS_CERT_FILE and TLS_KEY_FILE)"))
	}
	return errors.Join(errs...)
}
