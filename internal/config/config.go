// config предоставляет структуру конфигурации портала и функции
// загрузки из файла/переменных окружения с предсказуемым приоритетом.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Константы для определения окружения.
const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvTest  = "test"
	EnvProd  = "prod"
)

// Config — корневая конфигурация сервиса.
// Источники значений (по убыванию приоритета):
//  1. явный путь через флаг --config;
//  2. путь в переменной окружения CONFIG_PATH;
//  3. файл local.yaml из рабочей директории;
//  4. переменные окружения (cleanenv), в т.ч. подгруженные из .env.
type Config struct {
	Env      string        `yaml:"env" env:"ENV" env-default:"local"`
	HTTP     HTTPConfig    `yaml:"http"`
	Ops      OpsConfig     `yaml:"ops"`
	Auth     AuthConfig    `yaml:"auth"`
	DB       DBConfig      `yaml:"db"`
	Redis    RedisConfig   `yaml:"redis"`
	Limits   LimitsConfig  `yaml:"limits"`
	Timeouts TimeoutConfig `yaml:"timeouts"`
}

// IsProduction сообщает, запущен ли сервис в боевом окружении.
// От этого зависят Secure-флаг cookie и детализация ошибок.
func (c Config) IsProduction() bool {
	return c.Env == EnvProd
}

// TimeoutConfig — таймауты сервиса.
type TimeoutConfig struct {
	Service time.Duration `yaml:"service" env:"SERVICE" env-default:"15s"`
}

// HTTPConfig — сетевые настройки HTTP-сервера.
type HTTPConfig struct {
	Host string `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"HTTP_PORT" env-default:"3000"`
}

// Addr возвращает адрес в формате host:port.
func (h HTTPConfig) Addr() string {
	return net.JoinHostPort(h.Host, h.Port)
}

// OpsConfig — служебный HTTP (health/metrics), отдельный от публичного адреса.
type OpsConfig struct {
	Host string `yaml:"host" env:"OPS_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"OPS_PORT" env-default:"9090"`
}

// Addr возвращает адрес в формате host:port.
func (o OpsConfig) Addr() string {
	return net.JoinHostPort(o.Host, o.Port)
}

// AuthConfig содержит параметры выпуска/проверки сессий и жизненного цикла учётных данных.
type AuthConfig struct {
	SessionSecret  string `yaml:"session_secret" env:"SESSION_SECRET" env-required:"true"`
	SessionExpires string `yaml:"session_expires" env:"SESSION_EXPIRES" env-default:"7d"`
	Issuer         string `yaml:"issuer" env:"SESSION_ISSUER" env-default:"student-portal"`

	CookieName    string   `yaml:"cookie_name" env:"COOKIE_NAME" env-default:"__session"`
	CookieSecrets []string `yaml:"cookie_secrets" env:"COOKIE_SECRETS" env-required:"true"`

	// ChangeSkew — на сколько «назад» сдвигается отметка смены пароля/email (не меньше 1s).
	ChangeSkew    time.Duration `yaml:"change_skew" env:"AUTH_CHANGE_SKEW" env-default:"5s"`
	ResetTokenTTL time.Duration `yaml:"reset_token_ttl" env:"AUTH_RESET_TOKEN_TTL" env-default:"10m"`
}

// SessionTTL возвращает срок жизни сессии, разобранный из SessionExpires.
func (a AuthConfig) SessionTTL() (time.Duration, error) {
	return ParseExpiry(a.SessionExpires)
}

// DBConfig — настройки подключения к MongoDB.
type DBConfig struct {
	URL                    string        `yaml:"db_url" env:"DATABASE_URL" env-required:"true"`
	ConnectAttempts        uint          `yaml:"connect_attempts" env:"DB_CONNECT_ATTEMPTS" env-default:"3"`
	RetryDelay             time.Duration `yaml:"retry_delay" env:"DB_RETRY_DELAY" env-default:"2s"`
	ServerSelectionTimeout time.Duration `yaml:"server_selection_timeout" env:"DB_SERVER_SELECTION_TIMEOUT" env-default:"5s"`
}

// RedisConfig — опциональный Redis для учёта неудачных попыток входа.
// Пустой URL отключает блокировку.
type RedisConfig struct {
	URL             string        `yaml:"redis_url" env:"REDIS_URL"`
	LockoutAttempts int64         `yaml:"lockout_attempts" env:"LOCKOUT_ATTEMPTS" env-default:"5"`
	LockoutWindow   time.Duration `yaml:"lockout_window" env:"LOCKOUT_WINDOW" env-default:"15m"`
}

// LimitsConfig — ограничение частоты запросов к формам аутентификации (на IP).
type LimitsConfig struct {
	AuthRPS   float64 `yaml:"auth_rps" env:"AUTH_RPS" env-default:"1"`
	AuthBurst int     `yaml:"auth_burst" env:"AUTH_BURST" env-default:"10"`
}

// MustLoad — обёртка над Load с panic при ошибке.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}

	return cfg
}

// Load загружает конфигурацию по приоритету:
// 1) явный путь; 2) CONFIG_PATH; 3) ./local.yaml; 4) ENV.
// Перед этим подгружается .env (если есть); уже выставленные переменные не перетираются.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg, err := read(path)
	if err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func read(path string) (*Config, error) {
	var cfg Config

	// чтение файла + overlay ENV.
	tryRead := func(p string) (*Config, error) {
		if p == "" {
			return nil, fmt.Errorf("empty config path")
		}

		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("config file %q stat failed: %w", p, err)
		}

		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}

		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to overlay env: %w", err)
		}

		return &cfg, nil
	}

	// 1) Явный путь.
	if path != "" {
		return tryRead(path)
	}

	// 2) CONFIG_PATH.
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		return tryRead(envPath)
	}

	// 3) ./local.yaml.
	if _, err := os.Stat("local.yaml"); err == nil {
		return tryRead("local.yaml")
	}

	// 4) Только ENV.
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", err)
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Env {
	case EnvLocal, EnvDev, EnvTest, EnvProd:
	default:
		return fmt.Errorf("config: unknown env %q", c.Env)
	}

	if c.Ops.Port == c.HTTP.Port {
		return fmt.Errorf("config: ops port must differ from http port %q", c.HTTP.Port)
	}

	if _, err := c.Auth.SessionTTL(); err != nil {
		return fmt.Errorf("config: session_expires: %w", err)
	}

	secrets := c.Auth.CookieSecrets[:0]
	for _, s := range c.Auth.CookieSecrets {
		if s = strings.TrimSpace(s); s != "" {
			secrets = append(secrets, s)
		}
	}
	if len(secrets) == 0 {
		return fmt.Errorf("config: at least one cookie secret is required")
	}
	c.Auth.CookieSecrets = secrets

	// iat в JWT хранится с точностью до секунды: при меньшем сдвиге сессия,
	// выпущенная сразу после смены пароля/email, окажется «старше» отметки.
	if c.Auth.ChangeSkew < time.Second {
		return fmt.Errorf("config: change_skew must be at least 1s, got %s", c.Auth.ChangeSkew)
	}

	return nil
}

// ParseExpiry разбирает строку срока жизни в формате окружения: помимо
// единиц time.ParseDuration поддерживает дни ("7d"). Число без единицы
// трактуется как миллисекунды ("3600000" = 1h).
func ParseExpiry(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty expiry")
	}

	var d time.Duration
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.ParseFloat(days, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid expiry %q: %w", s, err)
		}
		d = time.Duration(n * float64(24*time.Hour))
	} else if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		d = time.Duration(n) * time.Millisecond
	} else {
		d, err = time.ParseDuration(s)
		if err != nil {
			return 0, fmt.Errorf("invalid expiry %q: %w", s, err)
		}
	}

	if d <= 0 {
		return 0, fmt.Errorf("expiry %q must be positive", s)
	}

	return d, nil
}
