package utils

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Redis    RedisConfig
	SePay    SePayConfig
	Payment  PaymentConfig
}

type AppConfig struct {
	Name    string
	Port    string
	Debug   bool
	LogPath string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	MaxConns int32
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// SePayConfig holds the bank account payers transfer to and the processor credentials.
type SePayConfig struct {
	AccountNumber    string
	BankCode         string
	QRHost           string
	APIBaseURL       string
	APIToken         string
	WebhookSecret    string
	SignatureHeader  string
	SignatureSchemes []string
	Timeout          time.Duration
	BreakerThreshold int64
	WebhookTimeout   time.Duration
}

type PaymentConfig struct {
	LockTTL time.Duration
}

func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")

	// Set defaults
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("DEBUG", false)
	viper.SetDefault("DB_MAX_CONNS", 10)
	viper.SetDefault("LOG_PATH", "logs/")
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("SEPAY_QR_HOST", "qr.sepay.vn")
	viper.SetDefault("SEPAY_API_BASE_URL", "https://my.sepay.vn/userapi")
	viper.SetDefault("SEPAY_SIGNATURE_HEADER", "X-Sepay-Signature")
	viper.SetDefault("SEPAY_SIGNATURE_SCHEMES", "fields,sorted,json")
	viper.SetDefault("SEPAY_TIMEOUT_SECONDS", 5)
	viper.SetDefault("SEPAY_BREAKER_THRESHOLD", 5)
	viper.SetDefault("SEPAY_WEBHOOK_TIMEOUT_SECONDS", 10)
	viper.SetDefault("PAYMENT_LOCK_SECONDS", 10)

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	viper.AutomaticEnv()

	config := &Config{
		App: AppConfig{
			Name:    viper.GetString("APP_NAME"),
			Port:    viper.GetString("PORT"),
			Debug:   viper.GetBool("DEBUG"),
			LogPath: viper.GetString("LOG_PATH"),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			Name:     viper.GetString("DB_NAME"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASS"),
			MaxConns: viper.GetInt32("DB_MAX_CONNS"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		SePay: SePayConfig{
			AccountNumber:    viper.GetString("SEPAY_ACCOUNT_NUMBER"),
			BankCode:         viper.GetString("SEPAY_BANK_CODE"),
			QRHost:           viper.GetString("SEPAY_QR_HOST"),
			APIBaseURL:       viper.GetString("SEPAY_API_BASE_URL"),
			APIToken:         viper.GetString("SEPAY_API_TOKEN"),
			WebhookSecret:    viper.GetString("SEPAY_WEBHOOK_SECRET"),
			SignatureHeader:  viper.GetString("SEPAY_SIGNATURE_HEADER"),
			SignatureSchemes: splitList(viper.GetString("SEPAY_SIGNATURE_SCHEMES")),
			Timeout:          time.Duration(viper.GetInt("SEPAY_TIMEOUT_SECONDS")) * time.Second,
			BreakerThreshold: viper.GetInt64("SEPAY_BREAKER_THRESHOLD"),
			WebhookTimeout:   time.Duration(viper.GetInt("SEPAY_WEBHOOK_TIMEOUT_SECONDS")) * time.Second,
		},
		Payment: PaymentConfig{
			LockTTL: time.Duration(viper.GetInt("PAYMENT_LOCK_SECONDS")) * time.Second,
		},
	}

	return config, nil
}

func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
