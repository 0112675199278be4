package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

// Prefix is prepended to every environment variable name.
const Prefix = "PROBDASH"

// Settings holds process configuration read from the environment.
type Settings struct {
	Port            string        `envconfig:"PORT" default:"8090"`
	APIBase         string        `envconfig:"API_BASE"`
	DataPath        string        `envconfig:"DATA_PATH" default:"./data"`
	WebDir          string        `envconfig:"WEB_DIR" default:"./web"`
	RefreshInterval time.Duration `envconfig:"REFRESH_INTERVAL" default:"5m"`
	HTTPTimeout     time.Duration `envconfig:"HTTP_TIMEOUT" default:"10s"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info"`
	DefaultMember   string        `envconfig:"DEFAULT_MEMBER"`
	MasterKey       string        `envconfig:"MASTER_KEY"`
	Passphrase      string        `envconfig:"PASSPHRASE"`
	AllowedOrigins  []string      `envconfig:"ALLOWED_ORIGINS" default:"*"`
}

// ErrNoAPIBase is returned by RequireRemote when no remote API is configured.
var ErrNoAPIBase = errors.New(Prefix + "_API_BASE is not set")

// Load reads Settings from the environment.
func Load() (Settings, error) {
	var s Settings
	if err := envconfig.Process(Prefix, &s); err != nil {
		return s, errors.Wrap(err, "envconfig")
	}
	return s, nil
}

// RequireRemote fails when commands that talk to the remote API have no
// base URL to talk to.
func (s Settings) RequireRemote() error {
	if s.APIBase == "" {
		return ErrNoAPIBase
	}
	return nil
}
