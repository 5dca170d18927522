package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
		Env  string `yaml:"env"`
	} `yaml:"server"`

	Database struct {
		DSN string `yaml:"url"`
	} `yaml:"database"`

	Redis struct {
		URL string `yaml:"url"` // пусто - лимитер в памяти процесса
	} `yaml:"redis"`

	JWT struct {
		Secret string `yaml:"secret"`
	} `yaml:"jwt"`

	WebSocket struct {
		SendBuffer      int           `yaml:"send_buffer"`
		PingInterval    time.Duration `yaml:"ping_interval"`
		PongWait        time.Duration `yaml:"pong_wait"`
		WriteWait       time.Duration `yaml:"write_wait"`
		MaxMessageBytes int64         `yaml:"max_message_bytes"`
		AllowedOrigins  []string      `yaml:"allowed_origins"`
	} `yaml:"websocket"`

	Chat struct {
		RateLimitPerMinute int    `yaml:"rate_limit_per_minute"`
		AppURL             string `yaml:"app_url"` // для ссылок в push и в боте
		DefaultLocale      string `yaml:"default_locale"`
	} `yaml:"chat"`

	Push struct {
		VAPIDPublicKey  string `yaml:"vapid_public_key"`
		VAPIDPrivateKey string `yaml:"vapid_private_key"`
		Subscriber      string `yaml:"subscriber"`
		TTL             int    `yaml:"ttl"`
	} `yaml:"push"`

	Telegram struct {
		BotToken string `yaml:"bot_token"`
	} `yaml:"telegram"`

	Presence struct {
		ReconcileInterval time.Duration `yaml:"reconcile_interval"`
	} `yaml:"presence"`
}

var AppConfig *Config

// LoadConfig читает config.yaml или, если задан DATABASE_URL, переменные окружения
func LoadConfig() {
	var cfg Config

	dbURL := os.Getenv("DATABASE_URL")

	if dbURL == "" {
		log.Println("Загрузка из config.yaml")

		configPath := os.Getenv("CONFIG_PATH")
		if configPath == "" {
			configPath = "config/config.yaml"
		}

		f, err := os.Open(configPath)
		if err != nil {
			log.Fatalf("Failed to open config file at %s: %v", configPath, err)
		}
		defer f.Close()

		decoder := yaml.NewDecoder(f)
		if err := decoder.Decode(&cfg); err != nil {
			log.Fatalf("Failed to parse config file at %s: %v", configPath, err)
		}

		cfg.Defaults()
		AppConfig = &cfg
		return
	}

	log.Println("Загрузка конфигурации из переменных окружения")

	cfg.Database.DSN = dbURL
	cfg.Server.Env = os.Getenv("SERVER_ENV")
	cfg.Server.Port, _ = strconv.Atoi(os.Getenv("SERVER_PORT"))
	cfg.Redis.URL = os.Getenv("REDIS_URL")
	cfg.JWT.Secret = os.Getenv("JWT_SECRET")
	cfg.Chat.AppURL = os.Getenv("APP_URL")
	cfg.Push.VAPIDPublicKey = os.Getenv("VAPID_PUBLIC_KEY")
	cfg.Push.VAPIDPrivateKey = os.Getenv("VAPID_PRIVATE_KEY")
	cfg.Push.Subscriber = os.Getenv("VAPID_SUBSCRIBER")
	cfg.Telegram.BotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	if v, err := strconv.Atoi(os.Getenv("RATE_LIMIT_PER_MINUTE")); err == nil {
		cfg.Chat.RateLimitPerMinute = v
	}

	cfg.Defaults()
	AppConfig = &cfg
}

// Defaults заполняет незаданные значения
func (c *Config) Defaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 4000
	}
	if c.Server.Env == "" {
		c.Server.Env = "development"
	}
	if c.WebSocket.SendBuffer <= 0 {
		c.WebSocket.SendBuffer = 256
	}
	if c.WebSocket.PongWait <= 0 {
		c.WebSocket.PongWait = 60 * time.Second
	}
	if c.WebSocket.PingInterval <= 0 || c.WebSocket.PingInterval >= c.WebSocket.PongWait {
		c.WebSocket.PingInterval = c.WebSocket.PongWait * 9 / 10
	}
	if c.WebSocket.WriteWait <= 0 {
		c.WebSocket.WriteWait = 10 * time.Second
	}
	if c.WebSocket.MaxMessageBytes <= 0 {
		c.WebSocket.MaxMessageBytes = 64 * 1024
	}
	if c.Chat.DefaultLocale == "" {
		c.Chat.DefaultLocale = "ru"
	}
	if c.Push.TTL <= 0 {
		c.Push.TTL = 60 * 60 * 24
	}
	if c.Presence.ReconcileInterval <= 0 {
		c.Presence.ReconcileInterval = time.Minute
	}
}

func GetConfig() *Config {
	if AppConfig == nil {
		LoadConfig()
	}
	return AppConfig
}
