package config

import (
	"fmt"
	"time"

	"github.com/gothenburg-taxi/dispatch-service/pkg/configparser"
)

// Config contains all configuration variables of the application
type (
	Config struct {
		Server   ServerConfig
		Backend  BackendConfig
		RabbitMQ RabbitMQConfig
		Matching MatchingConfig
		Log      LogConfig
	}

	ServerConfig struct {
		Port string `env:"SERVER_PORT" default:"3001"`
	}

	// BackendConfig points at the persistence backend that owns trip
	// requests and their source of record.
	BackendConfig struct {
		BaseURL string `env:"BACKEND_API_URL" default:"http://localhost:8081"`
	}

	RabbitMQConfig struct {
		Host     string `env:"RABBITMQ_HOST" default:"localhost"`
		Port     string `env:"RABBITMQ_PORT" default:"5672"`
		User     string `env:"RABBITMQ_USER" default:"guest"`
		Password string `env:"RABBITMQ_PASSWORD" default:"guest"`
	}

	MatchingConfig struct {
		TimeWindow    time.Duration `env:"MATCHING_TIME_WINDOW" default:"30m"`
		RadiusKm      float64       `env:"MATCHING_RADIUS_KM" default:"5"`
		MaxCompanions int           `env:"MATCHING_MAX_COMPANIONS" default:"3"`
	}

	LogConfig struct {
		Level string `env:"LOG_LEVEL" default:"INFO"`
	}
)

func (c RabbitMQConfig) GetDSN() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s/",
		c.User,
		c.Password,
		c.Host,
		c.Port,
	)
}

func NewConfig(filepath string) (*Config, error) {
	cfg := &Config{}

	// Loading enviromental variables and parsing to config struct.
	if err := configparser.LoadAndParseYaml(filepath, cfg); err != nil {
		return nil, fmt.Errorf("failed to load and parse config: %w", err)
	}

	return cfg, nil
}
