package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/victorcanash/EcommerceAPI-sub000/domain"
)

type Postgres struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

type Braintree struct {
	APIURL     string
	MerchantID string
	PublicKey  string
	PrivateKey string
}

type PayPal struct {
	APIURL       string
	ClientID     string
	ClientSecret string
}

type Supplier struct {
	APIURL string
	Token  string
}

type Config struct {
	HTTPPort        string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration

	Currency            string
	VATPercent          decimal.Decimal
	FirstBuyDiscountPct decimal.Decimal

	PaymentProvider domain.Provider
	Braintree       Braintree
	PayPal          PayPal
	Supplier        Supplier

	Postgres      Postgres
	MongoURI      string
	MongoDBName   string
	RedisAddr     string
	RedisPassword string
	CartCacheTTL  time.Duration
	KafkaBrokers  []string
	MailTopic     string
	OperatorEmail string

	StockSyncInterval time.Duration
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Load reads configuration from the environment. Invalid numeric values are
// an error; missing values fall back to development defaults.
func Load() (*Config, error) {
	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	vatPct, err := decimal.NewFromString(getEnv("VAT_PERCENT", "21"))
	if err != nil {
		return nil, fmt.Errorf("invalid VAT_PERCENT: %w", err)
	}

	discountPct, err := decimal.NewFromString(getEnv("FIRST_BUY_DISCOUNT_PERCENT", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid FIRST_BUY_DISCOUNT_PERCENT: %w", err)
	}

	provider := domain.Provider(getEnv("PAYMENT_PROVIDER", string(domain.ProviderBraintree)))
	if provider != domain.ProviderBraintree && provider != domain.ProviderPayPal {
		return nil, fmt.Errorf("unknown PAYMENT_PROVIDER %q", provider)
	}

	syncInterval, err := time.ParseDuration(getEnv("STOCK_SYNC_INTERVAL", "15m"))
	if err != nil {
		return nil, fmt.Errorf("invalid STOCK_SYNC_INTERVAL: %w", err)
	}

	cartCacheTTL, err := time.ParseDuration(getEnv("CART_CACHE_TTL", "15m"))
	if err != nil {
		return nil, fmt.Errorf("invalid CART_CACHE_TTL: %w", err)
	}

	return &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		RequestTimeout:  30 * time.Second,
		ShutdownTimeout: 10 * time.Second,

		Currency:            getEnv("CURRENCY", "EUR"),
		VATPercent:          vatPct,
		FirstBuyDiscountPct: discountPct,

		PaymentProvider: provider,
		Braintree: Braintree{
			APIURL:     getEnv("BRAINTREE_API_URL", "https://api.sandbox.braintreegateway.com"),
			MerchantID: getEnv("BRAINTREE_MERCHANT_ID", ""),
			PublicKey:  getEnv("BRAINTREE_PUBLIC_KEY", ""),
			PrivateKey: getEnv("BRAINTREE_PRIVATE_KEY", ""),
		},
		PayPal: PayPal{
			APIURL:       getEnv("PAYPAL_API_URL", "https://api-m.sandbox.paypal.com"),
			ClientID:     getEnv("PAYPAL_CLIENT_ID", ""),
			ClientSecret: getEnv("PAYPAL_CLIENT_SECRET", ""),
		},
		Supplier: Supplier{
			APIURL: getEnv("SUPPLIER_API_URL", "http://localhost:9090"),
			Token:  getEnv("SUPPLIER_API_TOKEN", ""),
		},

		Postgres: Postgres{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              dbPort,
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", "postgres"),
			DBName:            getEnv("DB_NAME", "ecommerce"),
			MigrationsDirPath: getEnv("MIGRATIONS_PATH", "./internal/database/migrations"),
		},
		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName:   getEnv("MONGO_DB_NAME", "cartdb"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		CartCacheTTL:  cartCacheTTL,
		KafkaBrokers:  strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
		MailTopic:     getEnv("MAIL_TOPIC", "mail-outbox"),
		OperatorEmail: getEnv("OPERATOR_EMAIL", "ops@localhost"),

		StockSyncInterval: syncInterval,
	}, nil
}
