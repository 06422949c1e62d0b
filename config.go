package session

import (
	"time"

	"github.com/goliatone/go-errors"
	"github.com/spf13/viper"
)

// DefaultPublicPrefixes are the path prefixes the route guard leaves open:
// the public pages plus the inspector/scanner entry points. "/" matches the
// home route only; every other prefix also covers its sub-routes.
var DefaultPublicPrefixes = []string{
	"/",
	"/login",
	"/register",
	"/email-confirmation",
	"/not-found",
	"/events",
	"/venues",
	"/organizations",
	"/inspector",
	"/scanner",
}

var _ Config = (*FileConfig)(nil)

// FileConfig is the concrete Config loaded from a file and the environment.
type FileConfig struct {
	APIBaseURL             string        `mapstructure:"api_base_url"`
	CookieName             string        `mapstructure:"cookie_name"`
	LoginRoute             string        `mapstructure:"login_route"`
	HomeRoute              string        `mapstructure:"home_route"`
	CookieDuration         time.Duration `mapstructure:"cookie_duration"`
	ExtendedCookieDuration time.Duration `mapstructure:"extended_cookie_duration"`
	CheckInterval          time.Duration `mapstructure:"check_interval"`
	MaxSessionAge          time.Duration `mapstructure:"max_session_age"`
	PublicPrefixes         []string      `mapstructure:"public_prefixes"`
}

func (c *FileConfig) GetAPIBaseURL() string { return c.APIBaseURL }
func (c *FileConfig) GetCookieName() string { return c.CookieName }
func (c *FileConfig) GetLoginRoute() string { return c.LoginRoute }
func (c *FileConfig) GetHomeRoute() string  { return c.HomeRoute }

func (c *FileConfig) GetCookieDuration() time.Duration         { return c.CookieDuration }
func (c *FileConfig) GetExtendedCookieDuration() time.Duration { return c.ExtendedCookieDuration }
func (c *FileConfig) GetCheckInterval() time.Duration          { return c.CheckInterval }
func (c *FileConfig) GetMaxSessionAge() time.Duration          { return c.MaxSessionAge }
func (c *FileConfig) GetPublicPrefixes() []string              { return c.PublicPrefixes }

// LoadConfig reads configuration from the given file (optional, any format
// Viper understands) with GIRAFFE_-prefixed environment variables taking
// precedence. Every knob has a working default except the API base URL.
func LoadConfig(path string) (*FileConfig, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(err, errors.CategoryValidation, "failed to read config file")
		}
	}

	v.SetEnvPrefix("GIRAFFE")
	v.AutomaticEnv()

	v.SetDefault("api_base_url", "")
	v.SetDefault("cookie_name", CookieAuthToken)
	v.SetDefault("login_route", "/login")
	v.SetDefault("home_route", "/")
	v.SetDefault("cookie_duration", 24*time.Hour)
	v.SetDefault("extended_cookie_duration", 30*24*time.Hour)
	v.SetDefault("check_interval", DefaultCheckInterval)
	v.SetDefault("max_session_age", DefaultMaxSessionAge)
	v.SetDefault("public_prefixes", DefaultPublicPrefixes)

	var cfg FileConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, errors.CategoryValidation, "failed to parse config")
	}

	if cfg.APIBaseURL == "" {
		return nil, errors.New("api_base_url must be set", errors.CategoryValidation).
			WithTextCode("CONFIG_MISSING_API_URL")
	}

	return &cfg, nil
}
