package config

import (
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env        string `yaml:"env" env:"ENV" env-default:"local"`
	BaseURL    string `yaml:"base_url" env:"BASE_URL" env-default:"http://localhost:8080"`
	Tokens     `yaml:"tokens"`
	Mongo      `yaml:"mongo"`
	SMTP       `yaml:"smtp"`
	RabbitMQ   `yaml:"rabbitmq"`
	HTTPServer `yaml:"http_server"`
	BcryptCost int `yaml:"bcrypt_cost" env-default:"10"`
}

type HTTPServer struct {
	Address     string        `yaml:"address" env-default:"localhost:8080"`
	Timeout     time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

type Mongo struct {
	URI    string `yaml:"uri" env:"MONGODB_URI" env-required:"true"`
	DBName string `yaml:"dbname" env-default:"eduauth"`
}

type Tokens struct {
	Secret               string        `yaml:"secret" env:"JWT_SECRET_KEY" env-required:"true"`
	Algorithm            string        `yaml:"algorithm" env-default:"HS256"`
	AccessTokenTTL       time.Duration `yaml:"access_token_ttl" env-default:"30m"`
	RefreshTokenTTL      time.Duration `yaml:"refresh_token_ttl" env-default:"168h"`
	VerificationTokenTTL time.Duration `yaml:"verification_token_ttl" env-default:"24h"`
	ResetTokenTTL        time.Duration `yaml:"reset_token_ttl" env-default:"1h"`
}

type SMTP struct {
	Host        string `yaml:"host" env:"SMTP_HOST"`
	Port        int    `yaml:"port" env:"SMTP_PORT" env-default:"587"`
	User        string `yaml:"user" env:"SMTP_USER"`
	Password    string `yaml:"password" env:"SMTP_PASSWORD"`
	FromName    string `yaml:"from_name" env-default:"EduAuth Support"`
	FromAddress string `yaml:"from_address" env-default:"no-reply@eduauth.com"`
}

// RabbitMQ is optional: with an empty URL the API sends mail over SMTP
// directly instead of publishing to the queue.
type RabbitMQ struct {
	URL       string `yaml:"url" env:"RABBITMQ_URL"`
	QueueName string `yaml:"queue_name" env-default:"emails"`
}

func MustLoad(configPath string) *Config {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("Config file does not exist: " + configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		panic("Failed to read config: " + err.Error())
	}

	return &cfg
}
