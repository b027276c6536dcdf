package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Host                 string `env:"HEARDDAT_HOST" envDefault:"0.0.0.0"`
	HTTPPort             int    `env:"HEARDDAT_HTTP_PORT" envDefault:"80"`
	HTTPSPort            int    `env:"HEARDDAT_HTTPS_PORT" envDefault:"81"`
	DataDir              string `env:"HEARDDAT_DATA_DIR" envDefault:"data"`
	CertFile             string `env:"HEARDDAT_CERT_FILE"`
	KeyFile              string `env:"HEARDDAT_KEY_FILE"`
	IPCheckIntervalSecs  int    `env:"HEARDDAT_IP_CHECK_INTERVAL" envDefault:"3600"`
	PairingTTLMinutes    int    `env:"HEARDDAT_PAIRING_TTL_MINUTES" envDefault:"10"`
	DiscoveryEnabled     bool   `env:"HEARDDAT_DISCOVERY" envDefault:"true"`
	LogLevel             string `env:"LOG_LEVEL" envDefault:"info"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if cfg.CertFile == "" {
		cfg.CertFile = filepath.Join(cfg.DataDir, "certs", "hearddat_cert.pem")
	}
	if cfg.KeyFile == "" {
		cfg.KeyFile = filepath.Join(cfg.DataDir, "certs", "hearddat_key.pem")
	}

	return cfg, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}

func (c *Config) TLSAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPSPort)
}

func (c *Config) IPCheckInterval() time.Duration {
	return time.Duration(c.IPCheckIntervalSecs) * time.Second
}

func (c *Config) PairingTTL() time.Duration {
	return time.Duration(c.PairingTTLMinutes) * time.Minute
}

func (c *Config) StorePath() string {
	return filepath.Join(c.DataDir, "pairings.json")
}
