package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/codesync/codesync-backend/internal/postgres"
	"github.com/codesync/codesync-backend/internal/store"

	"gopkg.in/yaml.v3"
)

const DefaultPath = "./config/config.yaml"

type HTTP struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	IdleTimeout     time.Duration `yaml:"idleTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

type GRPC struct {
	Addr       string        `yaml:"addr"`
	ProbeEvery time.Duration `yaml:"probeEvery"`
}

type Logging struct {
	Env       string `yaml:"env"`       // dev|prod
	Service   string `yaml:"service"`   // codesync
	Version   string `yaml:"version"`   // v0.1.0
	Backend   string `yaml:"backend"`   // std|zap
	AddSource bool   `yaml:"addSource"` // false|true
	Debug     bool   `yaml:"debug"`     // false|true
}

type Postgres struct {
	DSN               string        `yaml:"dsn"`
	MaxConns          int32         `yaml:"maxConns"`
	MinConns          int32         `yaml:"minConns"`
	MaxConnLifetime   time.Duration `yaml:"maxConnLifetime"`
	MaxConnIdleTime   time.Duration `yaml:"maxConnIdleTime"`
	HealthCheckPeriod time.Duration `yaml:"healthCheckPeriod"`
	ApplicationName   string        `yaml:"applicationName"`
}

func (p Postgres) ToPGConfig() postgres.Config {
	return postgres.Config{
		DSN:               p.DSN,
		MaxConns:          p.MaxConns,
		MinConns:          p.MinConns,
		MaxConnLifetime:   p.MaxConnLifetime,
		MaxConnIdleTime:   p.MaxConnIdleTime,
		HealthCheckPeriod: p.HealthCheckPeriod,
		ApplicationName:   p.ApplicationName,
	}
}

type SQLite struct {
	Path string `yaml:"path"`
}

type Storage struct {
	Driver   string   `yaml:"driver"` // postgres|sqlite
	Postgres Postgres `yaml:"postgres"`
	SQLite   SQLite   `yaml:"sqlite"`
}

func (s *Storage) Validate() error {
	if s.Driver == "" {
		s.Driver = store.DriverPostgres
	}
	switch s.Driver {
	case store.DriverPostgres:
		if s.Postgres.DSN == "" {
			return errors.New("storage.postgres.dsn is required")
		}
	case store.DriverSQLite:
		if s.SQLite.Path == "" {
			s.SQLite.Path = "./data/codesync.db"
		}
	default:
		return fmt.Errorf("storage.driver %q is not one of postgres|sqlite", s.Driver)
	}
	return nil
}

type JWT struct {
	Secret    string        `yaml:"secret"`    // required outside dev
	Issuer    string        `yaml:"issuer"`    // codesync
	TTL       time.Duration `yaml:"ttl"`       // 168h
	ClockSkew time.Duration `yaml:"clockSkew"` // 30s
}

func (j *JWT) Validate(env string) error {
	if j.Secret == "" && env != "dev" {
		return errors.New("security.jwt.secret is required")
	}
	if j.Issuer == "" {
		j.Issuer = "codesync"
	}
	if j.TTL == 0 {
		j.TTL = 7 * 24 * time.Hour
	}
	if j.TTL < 0 {
		return errors.New("security.jwt.ttl must be > 0")
	}
	if j.ClockSkew < 0 || j.ClockSkew > time.Minute {
		return errors.New("security.jwt.clockSkew must be in [0..1m]")
	}
	return nil
}

type Password struct {
	MinLength  int `yaml:"minLength"`
	BcryptCost int `yaml:"bcryptCost"`
}

func (p *Password) Validate() error {
	if p.MinLength == 0 {
		p.MinLength = 6
	}
	if p.MinLength < 6 {
		return errors.New("security.password.minLength must be >= 6")
	}
	if p.BcryptCost != 0 && (p.BcryptCost < 4 || p.BcryptCost > 18) {
		return errors.New("security.password.bcryptCost must be in [4..18]")
	}
	return nil
}

type Security struct {
	JWT      JWT      `yaml:"jwt"`
	Password Password `yaml:"password"`
}

type CORS struct {
	AllowedOrigins []string `yaml:"allowedOrigins"`
}

type WS struct {
	SendBuffer     int           `yaml:"sendBuffer"`
	PingPeriod     time.Duration `yaml:"pingPeriod"`
	MaxMessageSize int64         `yaml:"maxMessageSize"`
}

type Config struct {
	HTTP     HTTP     `yaml:"http"`
	GRPC     GRPC     `yaml:"grpc"`
	Logging  Logging  `yaml:"logging"`
	Storage  Storage  `yaml:"storage"`
	Security Security `yaml:"security"`
	CORS     CORS     `yaml:"cors"`
	WS       WS       `yaml:"ws"`
}

// ResolvePath picks the config file: explicit flag, then CONFIG_PATH, then
// DefaultPath.
func ResolvePath(flag string) string {
	if p := strings.TrimSpace(flag); p != "" {
		return p
	}
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return DefaultPath
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes YAML, applies environment overrides and validates.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv honours the variables hosting platforms inject.
func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		c.HTTP.Addr = ":" + v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.Security.JWT.Secret = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Storage.Postgres.DSN = v
	}
}

func (c *Config) Validate() error {
	// defaults first, the JWT rule depends on env
	if c.Logging.Service == "" {
		c.Logging.Service = "codesync"
	}
	if c.Logging.Env == "" {
		c.Logging.Env = "dev"
	}
	if c.Logging.Version == "" {
		c.Logging.Version = "v0.1.0"
	}
	if c.Logging.Backend == "" {
		c.Logging.Backend = "std"
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":5000"
	}
	if c.HTTP.ReadTimeout == 0 {
		c.HTTP.ReadTimeout = 10 * time.Second
	}
	if c.HTTP.IdleTimeout == 0 {
		c.HTTP.IdleTimeout = 60 * time.Second
	}
	if c.HTTP.ShutdownTimeout == 0 {
		c.HTTP.ShutdownTimeout = 10 * time.Second
	}
	if c.GRPC.Addr == "" {
		c.GRPC.Addr = ":9090"
	}
	if len(c.CORS.AllowedOrigins) == 0 {
		c.CORS.AllowedOrigins = []string{"http://localhost:3000", "https://code-editor-seven-tawny.vercel.app"}
	}
	if c.WS.SendBuffer == 0 {
		c.WS.SendBuffer = 256
	}
	if c.WS.PingPeriod == 0 {
		c.WS.PingPeriod = 25 * time.Second
	}
	if c.WS.MaxMessageSize == 0 {
		c.WS.MaxMessageSize = 1 << 20
	}

	if err := c.Storage.Validate(); err != nil {
		return err
	}
	if err := c.Security.JWT.Validate(c.Logging.Env); err != nil {
		return err
	}
	if err := c.Security.Password.Validate(); err != nil {
		return err
	}
	if c.WS.SendBuffer < 0 || c.WS.PingPeriod < 0 || c.WS.MaxMessageSize < 0 {
		return errors.New("ws settings must be positive")
	}
	return nil
}
