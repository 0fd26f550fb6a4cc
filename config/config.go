package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Server      ServerConfig
	Logger      LoggerConfig
	Postgres    PostgresConfig
	JWT         JWTConfig
	Redis       RedisConfig
	Kafka       KafkaConfig
	Elastic     ElasticsearchConfig
	Dejavoo     DejavooConfig
	AlpineIQ    AlpineIQConfig
	WooCommerce WooCommerceConfig
}

type ServerConfig struct {
	AppEnv            string `envconfig:"APP_ENV" default:"development"`
	HTTPPort          string `envconfig:"HTTP_PORT" default:":8080"`
	GRPCPort          string `envconfig:"GRPC_PORT" default:":8082"`
	StorefrontDomain  string `envconfig:"STOREFRONT_BASE_DOMAIN" default:"localhost"`
	ReadHeaderTimeout int    `envconfig:"HTTP_READ_HEADER_TIMEOUT" default:"5"`
	ShutdownTimeout   int    `envconfig:"SHUTDOWN_TIMEOUT" default:"15"`
}

type LoggerConfig struct {
	Level             string `envconfig:"LOGGER_LEVEL" default:"debug"`
	Encoding          string `envconfig:"LOGGER_ENCODING" default:"console"`
	DisableCaller     bool   `envconfig:"LOGGER_DISABLE_CALLER" default:"false"`
	DisableStacktrace bool   `envconfig:"LOGGER_DISABLE_STACKTRACE" default:"true"`
}

type PostgresConfig struct {
	Host            string `envconfig:"POSTGRES_HOST" default:"localhost"`
	Port            string `envconfig:"POSTGRES_PORT" default:"5432"`
	User            string `envconfig:"POSTGRES_USER" default:"omnipos"`
	Password        string `envconfig:"POSTGRES_PASSWORD" default:"omnipos"`
	DBName          string `envconfig:"POSTGRES_DB" default:"omnipos_marketplace"`
	SSLMode         string `envconfig:"POSTGRES_SSLMODE" default:"disable"`
	MaxOpenConns    int    `envconfig:"POSTGRES_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int    `envconfig:"POSTGRES_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime int    `envconfig:"POSTGRES_CONN_MAX_LIFETIME" default:"300"`
	ConnMaxIdleTime int    `envconfig:"POSTGRES_CONN_MAX_IDLE_TIME" default:"60"`
}

type JWTConfig struct {
	SecretKey string `envconfig:"JWT_SECRET_KEY" default:"your-secret-key-change-this-in-prod"`
	Issuer    string `envconfig:"JWT_ISSUER" default:"omnipos"`
}

type RedisConfig struct {
	Addr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Password string `envconfig:"REDIS_PASSWORD" default:""`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

type KafkaConfig struct {
	Brokers []string `envconfig:"KAFKA_BROKERS" default:"localhost:9092"`
	Topic   string   `envconfig:"KAFKA_TOPIC_ORDERS" default:"orders.events"`
	GroupID string   `envconfig:"KAFKA_GROUP_INVENTORY" default:"inventory"`
}

type ElasticsearchConfig struct {
	Addresses []string `envconfig:"ELASTICSEARCH_ADDRESSES" default:"http://localhost:9200"`
	Username  string   `envconfig:"ELASTICSEARCH_USERNAME" default:""`
	Password  string   `envconfig:"ELASTICSEARCH_PASSWORD" default:""`
}

// DejavooConfig holds the SPIN endpoints. Per-vendor credentials live in the
// payment_processors table, not here.
type DejavooConfig struct {
	ProductionURL string `envconfig:"DEJAVOO_PRODUCTION_URL" default:"https://spinpos.net/v2"`
	SandboxURL    string `envconfig:"DEJAVOO_SANDBOX_URL" default:"https://test.spinpos.net/spin/v2"`
	// Seconds the terminal waits for the customer.
	ProxyTimeout int `envconfig:"DEJAVOO_PROXY_TIMEOUT" default:"120"`
	// Seconds for the whole HTTP round trip; must exceed ProxyTimeout.
	HTTPTimeout int `envconfig:"DEJAVOO_HTTP_TIMEOUT" default:"150"`
}

type AlpineIQConfig struct {
	BaseURL string `envconfig:"ALPINEIQ_BASE_URL" default:"https://lab.alpineiq.com/api"`
	APIKey  string `envconfig:"ALPINEIQ_API_KEY" default:""`
	Timeout int    `envconfig:"ALPINEIQ_TIMEOUT" default:"10"`
}

type WooCommerceConfig struct {
	Timeout int `envconfig:"WOOCOMMERCE_TIMEOUT" default:"20"`
}

func (c *Config) IsDevelopment() bool {
	return c.Server.AppEnv == "development" || c.Server.AppEnv == "dev"
}

func Seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// LoadEnv reads an optional .env file and then the process environment.
func LoadEnv() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.Dejavoo.HTTPTimeout <= cfg.Dejavoo.ProxyTimeout {
		return nil, fmt.Errorf("load config: DEJAVOO_HTTP_TIMEOUT (%d) must exceed DEJAVOO_PROXY_TIMEOUT (%d)",
			cfg.Dejavoo.HTTPTimeout, cfg.Dejavoo.ProxyTimeout)
	}
	return &cfg, nil
}
