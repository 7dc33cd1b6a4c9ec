package conf

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the runtime configuration of the judging server.
// Values come from .env, DUEL_* environment variables and built-in defaults.
type Config struct {
	Port             int           `mapstructure:"port"`
	SchedulerURL     string        `mapstructure:"scheduler_url"`
	SchedulerTimeout time.Duration `mapstructure:"scheduler_timeout"`
	JwtKey           string        `mapstructure:"jwt_key"`
	AwsRegion        string        `mapstructure:"aws_region"`
	S3Endpoint       string        `mapstructure:"s3_endpoint"`
	Store            string        `mapstructure:"store"` // memory | pebble | dynamodb
	PebblePath       string        `mapstructure:"pebble_path"`
	DdbTable         string        `mapstructure:"ddb_table"`
	Queue            string        `mapstructure:"queue"` // store | sqs
	SqsQueueUrl      string        `mapstructure:"sqs_queue_url"`
	ContestFile      string        `mapstructure:"contest_file"`
	PollInterval     time.Duration `mapstructure:"poll_interval"`
	RateLimit        time.Duration `mapstructure:"rate_limit"`
	MaxSourceBytes   int64         `mapstructure:"max_source_bytes"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 8080)
	v.SetDefault("scheduler_url", "http://localhost:8081")
	v.SetDefault("scheduler_timeout", 5*time.Minute)
	v.SetDefault("jwt_key", "")
	v.SetDefault("aws_region", "eu-central-1")
	v.SetDefault("s3_endpoint", "")
	v.SetDefault("store", "pebble")
	v.SetDefault("pebble_path", "data.db")
	v.SetDefault("ddb_table", "duel")
	v.SetDefault("queue", "store")
	v.SetDefault("sqs_queue_url", "")
	v.SetDefault("contest_file", "contest.toml")
	v.SetDefault("poll_interval", 100*time.Millisecond)
	v.SetDefault("rate_limit", 5*time.Minute)
	v.SetDefault("max_source_bytes", 4*1024*1024)
}

// Load reads .env (when present) and the environment.
func Load() (Config, error) {
	if err := loadEnvFile(".env"); err != nil {
		return Config{}, err
	}
	return load(viper.New())
}

// loadEnvFile exports the variables of path; a missing file is not an error.
func loadEnvFile(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Debug("no env file, using environment only", "path", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func load(v *viper.Viper) (Config, error) {
	setDefaults(v)
	v.SetEnvPrefix("DUEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Store {
	case "memory", "pebble", "dynamodb":
	default:
		return fmt.Errorf("unknown store %q", c.Store)
	}
	switch c.Queue {
	case "store":
	case "sqs":
		if c.SqsQueueUrl == "" {
			return fmt.Errorf("DUEL_SQS_QUEUE_URL must be set when queue is sqs")
		}
	default:
		return fmt.Errorf("unknown queue %q", c.Queue)
	}
	if c.SchedulerURL == "" {
		return fmt.Errorf("DUEL_SCHEDULER_URL not set")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}
	return nil
}
