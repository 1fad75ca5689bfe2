package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort string `long:"port" env:"SERVER_PORT" default:"8080" description:"http listen port"`
	Store      string `long:"store" env:"STORE" choice:"postgres" choice:"badger" default:"badger" description:"channel and message storage backend"`

	DB     DBConfig     `group:"postgres" namespace:"db" env-namespace:"DB"`
	Badger BadgerConfig `group:"badger" namespace:"badger" env-namespace:"BADGER"`
	Files  FilesConfig  `group:"files" namespace:"files" env-namespace:"FILES"`

	LogLevel  string `long:"log-level" env:"LOG_LEVEL" choice:"debug" choice:"info" choice:"warn" choice:"error" default:"info" description:"log level"`
	LogFormat string `long:"log-format" env:"LOG_FORMAT" choice:"text" choice:"json" default:"text" description:"log output format"`

	JWTSecret string `long:"jwt-secret" env:"JWT_SECRET" description:"accept HS256 bearer tokens signed with this secret in addition to raw names"`
	SentryDSN string `long:"sentry-dsn" env:"SENTRY_DSN" description:"report internal errors to sentry"`
	Metrics   bool   `long:"metrics" env:"METRICS" description:"expose prometheus metrics on /metrics"`

	ShutdownTimeout time.Duration `long:"shutdown-timeout" env:"SHUTDOWN_TIMEOUT" default:"10s" description:"graceful shutdown timeout"`
}

type DBConfig struct {
	Host     string `long:"host" env:"HOST" default:"localhost"`
	Port     string `long:"port" env:"PORT" default:"5432"`
	User     string `long:"user" env:"USER" default:"xchat"`
	Password string `long:"password" env:"PASSWORD" default:"xchat_dev_password"`
	Name     string `long:"name" env:"NAME" default:"xchat"`
	MaxConns int32  `long:"max-conns" env:"MAX_CONNS" default:"10"`
}

type BadgerConfig struct {
	Dir string `long:"dir" env:"DIR" default:"./data/badger" description:"badger data directory"`
}

type FilesConfig struct {
	Dir           string        `long:"dir" env:"DIR" default:"./data/files" description:"uploaded files directory"`
	PartialMaxAge time.Duration `long:"partial-max-age" env:"PARTIAL_MAX_AGE" default:"1h" description:"abandoned partial uploads older than this are deleted"`
	SweepSchedule string        `long:"sweep-schedule" env:"SWEEP_SCHEDULE" default:"@every 10m" description:"cron schedule of the partial upload sweeper"`
}

// Load reads a .env file when present, then flags and environment variables.
// Flags win over the environment.
func Load(args []string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	parser := flags.NewParser(&cfg, flags.Default)
	if _, err := parser.ParseArgs(args); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// IsHelp reports whether err was produced by --help.
func IsHelp(err error) bool {
	var ferr *flags.Error
	return errors.As(err, &ferr) && ferr.Type == flags.ErrHelp
}

func (c *Config) validate() error {
	if c.Files.Dir == "" {
		return errors.New("files directory is required")
	}
	if c.Store == "badger" && c.Badger.Dir == "" {
		return errors.New("badger directory is required")
	}
	if c.Files.PartialMaxAge <= 0 {
		return fmt.Errorf("partial upload max age must be positive, got %s", c.Files.PartialMaxAge)
	}
	return nil
}

func (c *Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name)
}

func (c *Config) Addr() string {
	return ":" + c.ServerPort
}
