package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. REGISTRY_HTTP_ADDR
const EnvPrefix = "REGISTRY"

type Config struct {
	App struct {
		Env string
	} `mapstructure:"app"`

	HTTP struct {
		Addr        string
		Prefix      string
		CORSOrigins string `mapstructure:"cors_origins"`
	} `mapstructure:"http"`

	Database struct {
		Driver string
		DSN    string
		Debug  bool
	} `mapstructure:"database"`

	Session struct {
		CookieName string        `mapstructure:"cookie_name"`
		TTL        time.Duration `mapstructure:"ttl"`
		Secure     bool
	} `mapstructure:"session"`

	Metrics struct {
		Enabled bool
	} `mapstructure:"metrics"`

	Auth struct {
		BcryptCost int `mapstructure:"bcrypt_cost"`
	} `mapstructure:"auth"`
}

// Load reads the optional .env file, the optional config file at path and
// the REGISTRY_ environment. An empty path skips the config file.
func Load(path string) (Config, error) {
	// a missing .env is fine
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var c Config
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return c, err
			}
		}
	}

	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}
	return c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "dev")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.prefix", "/api")
	v.SetDefault("http.cors_origins", "http://localhost:3000")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "file:registry.db?cache=shared")
	v.SetDefault("database.debug", false)
	v.SetDefault("session.cookie_name", "registry_session")
	v.SetDefault("session.ttl", "24h")
	v.SetDefault("session.secure", false)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("auth.bcrypt_cost", 0)
}

func (c Config) GetRoutePrefix() string {
	return c.HTTP.Prefix
}

func (c Config) GetSessionCookieName() string {
	return c.Session.CookieName
}

func (c Config) GetSessionTTL() time.Duration {
	return c.Session.TTL
}

func (c Config) GetSessionSecure() bool {
	return c.Session.Secure
}

func (c Config) GetCORSOrigins() string {
	return c.HTTP.CORSOrigins
}

func (c Config) GetBcryptCost() int {
	return c.Auth.BcryptCost
}

func (c Config) GetMetricsEnabled() bool {
	return c.Metrics.Enabled
}

func (c Config) IsDev() bool {
	return c.App.Env == "dev"
}
