package config

import (
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env        string `yaml:"env" env:"ENV" env-default:"local"`
	App        `yaml:"app"`
	Tokens     `yaml:"tokens"`
	Google     `yaml:"google"`
	RabbitMQ   `yaml:"rabbitmq"`
	Postgres   `yaml:"postgres"`
	Redis      `yaml:"redis"`
	Email      `yaml:"email"`
	HTTPServer `yaml:"http_server"`
}

type HTTPServer struct {
	Address     string        `yaml:"address" env-default:"localhost:8080"`
	Timeout     time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

type App struct {
	// BaseURL is the public address of this service, used to build the links
	// embedded in verification and reset mail.
	BaseURL string `yaml:"base_url" env-required:"true"`
	// FrontendURL is where OAuth callbacks redirect the browser.
	FrontendURL string `yaml:"frontend_url" env-required:"true"`
	BcryptCost  int    `yaml:"bcrypt_cost" env-default:"12"`
	// TrustProviderEmailVerified refuses OAuth linking when the provider does
	// not assert ownership of the email address.
	TrustProviderEmailVerified bool `yaml:"trust_provider_email_verified" env-default:"true"`
}

type Postgres struct {
	Host     string `yaml:"host" env-default:"postgres"`
	Port     int    `yaml:"port" env-default:"5432"`
	User     string `yaml:"user" env-required:"true"`
	Password string `yaml:"password" env-required:"true"`
	DBName   string `yaml:"dbname" env-required:"true"`
	SSLMode  string `yaml:"sslmode" env-default:"disable"`
}

type Redis struct {
	Address  string `yaml:"address" env-default:"redis:6379"`
	Password string `yaml:"password" env-default:""`
	DB       int    `yaml:"db" env-default:"0"`
}

type Tokens struct {
	Secret              string        `yaml:"secret" env:"TOKEN_SECRET" env-required:"true"`
	SessionRegisterTTL  time.Duration `yaml:"session_register_ttl" env-default:"12h"`
	SessionLoginTTL     time.Duration `yaml:"session_login_ttl" env-default:"24h"`
	EmailVerifyTokenTTL time.Duration `yaml:"email_verify_token_ttl" env-default:"1h"`
	ResetTokenTTL       time.Duration `yaml:"reset_token_ttl" env-default:"1h"`
}

type Google struct {
	ClientID     string `yaml:"client_id" env:"GOOGLE_CLIENT_ID"`
	ClientSecret string `yaml:"client_secret" env:"GOOGLE_CLIENT_SECRET"`
	RedirectURL  string `yaml:"redirect_url"`
}

// Email configures the SMTP relay used by the email_sender worker. The auth
// service itself never talks SMTP.
type Email struct {
	Host     string `yaml:"host" env-default:"localhost"`
	Port     int    `yaml:"port" env-default:"587"`
	Username string `yaml:"username" env:"SMTP_USERNAME"`
	Password string `yaml:"password" env:"SMTP_PASSWORD"`
}

type RabbitMQ struct {
	URL       string `yaml:"url" env-required:"true"`
	QueueName string `yaml:"queue_name" env-required:"true"`
}

func MustLoad(configPath string) *Config {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file does not exist: " + configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		panic("failed to read config: " + err.Error())
	}

	return &cfg
}
