package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "config/config.yaml"

type FilesConfig struct {
	RootDir   string `yaml:"root_dir"`
	PublicURL string `yaml:"public_url"`
	// максимальный размер скана документа, байт
	MaxDocumentSize int64 `yaml:"max_document_size"`
}

type S3Config struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	PublicURL string `yaml:"public_url"`
}

type StorageConfig struct {
	Driver string   `yaml:"driver"` // local | s3
	S3     S3Config `yaml:"s3"`
}

type SMSAeroConfig struct {
	Email  string `yaml:"email"`
	APIKey string `yaml:"api_key"`
	Sign   string `yaml:"sign"`
	DryRun bool   `yaml:"dry_run"`
}

type AuthConfig struct {
	JWTSecret    string        `yaml:"jwt_secret"`
	CookieName   string        `yaml:"cookie_name"`
	CookieSecure bool          `yaml:"cookie_secure"`
	SessionTTL   time.Duration `yaml:"session_ttl"`
}

type VerificationConfig struct {
	CodeTTL         time.Duration `yaml:"code_ttl"`
	ResendCooldown  time.Duration `yaml:"resend_cooldown"`
	MaxSendAttempts int           `yaml:"max_send_attempts"`
	CodeLength      int           `yaml:"code_length"`
	PurchaseCodeTTL time.Duration `yaml:"purchase_code_ttl"`
}

type TelegramConfig struct {
	BotToken    string `yaml:"bot_token"`
	AdminChatID int64  `yaml:"admin_chat_id"`
}

type Config struct {
	Server struct {
		Port   int    `yaml:"port"`
		AppURL string `yaml:"app_url"`
	} `yaml:"server"`
	Database struct {
		DSN string `yaml:"url"`
	} `yaml:"database"`
	Email struct {
		SMTPHost     string `yaml:"smtp_host"`
		SMTPPort     int    `yaml:"smtp_port"`
		SMTPUser     string `yaml:"smtp_user"`
		SMTPPassword string `yaml:"smtp_password"`
		FromEmail    string `yaml:"from_email"`
		FromName     string `yaml:"from_name"`
		DryRun       bool   `yaml:"dry_run"`
	} `yaml:"email"`
	Log struct {
		Debug bool `yaml:"debug"`
	} `yaml:"log"`
	PDF struct {
		FontPath string `yaml:"font_path"`
		City     string `yaml:"city"`
	} `yaml:"pdf"`
	Auth         AuthConfig         `yaml:"auth"`
	Verification VerificationConfig `yaml:"verification"`
	Files        FilesConfig        `yaml:"files"`
	Storage      StorageConfig      `yaml:"storage"`
	SMSAero      SMSAeroConfig      `yaml:"sms_aero"`
	Telegram     TelegramConfig     `yaml:"telegram"`
}

// Load читает YAML, затем .env (если есть) и переменные окружения.
// Отсутствующий файл конфигурации не ошибка: всё можно задать окружением.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}
	_ = godotenv.Load() // .env необязателен

	var cfg Config
	f, err := os.Open(path)
	switch {
	case err == nil:
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("auth.jwt_secret (JWT_SECRET) is required")
	}
	return &cfg, nil
}

// LoadConfig паникует вместо возврата ошибки.
func LoadConfig(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic("Failed to load config: " + err.Error())
	}
	return cfg
}

func (c *Config) applyEnv() {
	setString(&c.Database.DSN, "DATABASE_URL")
	setString(&c.Auth.JWTSecret, "JWT_SECRET")
	setString(&c.Email.SMTPPassword, "SMTP_PASSWORD")
	setString(&c.SMSAero.APIKey, "SMS_AERO_API_KEY")
	setString(&c.SMSAero.Email, "SMS_AERO_EMAIL")
	setString(&c.Storage.S3.AccessKey, "S3_ACCESS_KEY")
	setString(&c.Storage.S3.SecretKey, "S3_SECRET_KEY")
	setString(&c.Telegram.BotToken, "TELEGRAM_BOT_TOKEN")
	setString(&c.Server.AppURL, "APP_URL")
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Files.RootDir == "" {
		c.Files.RootDir = "./files"
	}
	if c.Files.PublicURL == "" {
		c.Files.PublicURL = "/files"
	}
	if c.Files.MaxDocumentSize == 0 {
		c.Files.MaxDocumentSize = 5 << 20
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "local"
	}
	if c.Auth.CookieName == "" {
		c.Auth.CookieName = "shopemx_auth"
	}
	if c.Auth.SessionTTL == 0 {
		c.Auth.SessionTTL = 7 * 24 * time.Hour
	}
	v := &c.Verification
	if v.CodeTTL == 0 {
		v.CodeTTL = 15 * time.Minute
	}
	if v.ResendCooldown == 0 {
		v.ResendCooldown = 5 * time.Minute
	}
	if v.MaxSendAttempts == 0 {
		v.MaxSendAttempts = 5
	}
	if v.CodeLength == 0 {
		v.CodeLength = 6
	}
	if v.PurchaseCodeTTL == 0 {
		v.PurchaseCodeTTL = 24 * time.Hour
	}
	if c.Email.SMTPPort == 0 {
		c.Email.SMTPPort = 587
	}
	if c.Email.FromName == "" {
		c.Email.FromName = "ShopEMX"
	}
	if c.PDF.City == "" {
		c.PDF.City = "Москва"
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
