package config

import (
	"errors"
	"os"
	"strings"

	"github.com/Darshan-360/service-checkout/internal/platform/database"
	"github.com/spf13/viper"
)

// GatewayConfig holds Razorpay credentials.
type GatewayConfig struct {
	Driver    string
	KeyID     string
	KeySecret string
}

// AppwriteConfig holds the admin document store settings.
type AppwriteConfig struct {
	Endpoint             string
	ProjectID            string
	APIKey               string
	DatabaseID           string
	BookingsCollectionID string
	PaymentsCollectionID string
}

// Complete reports whether an admin-privileged store handle can be built.
func (c AppwriteConfig) Complete() bool {
	return c.Endpoint != "" && c.ProjectID != "" && c.APIKey != "" && c.DatabaseID != ""
}

// KafkaConfig holds event bus settings. No brokers disables publishing.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// RedisConfig holds the cache used for rate limiting and once-only event guards.
type RedisConfig struct {
	Addr               string
	Password           string
	DB                 int
	RateLimitPerMinute int
}

// ServiceConfig holds all configuration for the checkout service.
type ServiceConfig struct {
	Port        string
	AppEnv      string
	StoreDriver string
	// EnableReadAPI mounts the unauthenticated booking and payment reads.
	EnableReadAPI bool
	Gateway       GatewayConfig
	Appwrite      AppwriteConfig
	DBConfig      database.PostgresConfig
	KafkaConfig   KafkaConfig
	RedisConfig   RedisConfig
}

// Store drivers.
const (
	StoreAppwrite = "appwrite"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Gateway drivers.
const (
	GatewayRazorpay = "razorpay"
	GatewayMock     = "mock"
)

// envAliases maps a config key to the environment variables that may carry it, in priority order.
var envAliases = map[string][]string{
	"service_port":                    {"SERVICE_PORT", "PORT"},
	"app_env":                         {"APP_ENV"},
	"enable_read_api":                 {"ENABLE_READ_API"},
	"store_driver":                    {"STORE_DRIVER"},
	"gateway_driver":                  {"GATEWAY_DRIVER"},
	"razorpay_key_id":                 {"RAZORPAY_KEY_ID"},
	"razorpay_key_secret":             {"RAZORPAY_KEY_SECRET"},
	"appwrite_endpoint":               {"APPWRITE_ENDPOINT", "VITE_API_ENDPOINT"},
	"appwrite_project_id":             {"APPWRITE_PROJECT_ID", "VITE_PROJECT_ID"},
	"appwrite_api_key":                {"APPWRITE_API_KEY", "SERVER_APPWRITE_API_KEY"},
	"appwrite_database_id":            {"APPWRITE_DATABASE_ID", "VITE_DATABASE_ID"},
	"appwrite_bookings_collection_id": {"APPWRITE_BOOKINGS_COLLECTION_ID", "VITE_BOOKINGS_COLLECTION_ID"},
	"appwrite_payments_collection_id": {"APPWRITE_PAYMENTS_COLLECTION_ID", "VITE_PAYMENTS_COLLECTION_ID"},
	"db_host":                         {"DB_HOST"},
	"db_port":                         {"DB_PORT"},
	"db_user":                         {"DB_USER"},
	"db_password":                     {"DB_PASSWORD"},
	"db_name":                         {"DB_NAME"},
	"db_sslmode":                      {"DB_SSLMODE"},
	"kafka_brokers":                   {"KAFKA_BROKERS"},
	"kafka_topic":                     {"KAFKA_TOPIC"},
	"redis_addr":                      {"REDIS_ADDR"},
	"redis_password":                  {"REDIS_PASSWORD"},
	"redis_db":                        {"REDIS_DB"},
	"rate_limit_per_minute":           {"RATE_LIMIT_PER_MINUTE"},
}

// Load reads configuration from the environment and an optional .env file in the working directory.
func Load() (*ServiceConfig, error) {
	return LoadFile(".env")
}

// LoadFile is Load with an explicit env file path. A missing file is not an error.
func LoadFile(envFile string) (*ServiceConfig, error) {
	v, err := newViper(envFile)
	if err != nil {
		return nil, err
	}

	port := v.GetString("service_port")
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}

	return &ServiceConfig{
		Port:          port,
		AppEnv:        v.GetString("app_env"),
		StoreDriver:   strings.ToLower(v.GetString("store_driver")),
		EnableReadAPI: v.GetBool("enable_read_api"),
		Gateway:       loadGatewayConfig(v),
		Appwrite:      loadAppwriteConfig(v),
		DBConfig:      loadDatabaseConfig(v),
		KafkaConfig:   loadKafkaConfig(v),
		RedisConfig:   loadRedisConfig(v),
	}, nil
}

func newViper(envFile string) (*viper.Viper, error) {
	v := viper.New()

	v.SetDefault("service_port", "8787")
	v.SetDefault("app_env", "production")
	v.SetDefault("enable_read_api", false)
	v.SetDefault("store_driver", StoreAppwrite)
	v.SetDefault("gateway_driver", GatewayRazorpay)
	v.SetDefault("db_host", "localhost")
	v.SetDefault("db_port", "5432")
	v.SetDefault("db_user", "postgres")
	v.SetDefault("db_name", "checkout")
	v.SetDefault("db_sslmode", "disable")
	v.SetDefault("kafka_topic", "payment.events")
	v.SetDefault("rate_limit_per_minute", 30)

	for key, envs := range envAliases {
		args := append([]string{key}, envs...)
		if err := v.BindEnv(args...); err != nil {
			return nil, err
		}
	}

	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			v.SetConfigFile(envFile)
			v.SetConfigType("env")
			if err := v.ReadInConfig(); err != nil {
				return nil, err
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	return v, nil
}

func loadGatewayConfig(v *viper.Viper) GatewayConfig {
	return GatewayConfig{
		Driver:    strings.ToLower(v.GetString("gateway_driver")),
		KeyID:     v.GetString("razorpay_key_id"),
		KeySecret: v.GetString("razorpay_key_secret"),
	}
}

func loadAppwriteConfig(v *viper.Viper) AppwriteConfig {
	return AppwriteConfig{
		Endpoint:             strings.TrimRight(v.GetString("appwrite_endpoint"), "/"),
		ProjectID:            v.GetString("appwrite_project_id"),
		APIKey:               v.GetString("appwrite_api_key"),
		DatabaseID:           v.GetString("appwrite_database_id"),
		BookingsCollectionID: v.GetString("appwrite_bookings_collection_id"),
		PaymentsCollectionID: v.GetString("appwrite_payments_collection_id"),
	}
}

func loadDatabaseConfig(v *viper.Viper) database.PostgresConfig {
	return database.PostgresConfig{
		Host:     v.GetString("db_host"),
		Port:     v.GetString("db_port"),
		User:     v.GetString("db_user"),
		Password: v.GetString("db_password"),
		DBName:   v.GetString("db_name"),
		SSLMode:  v.GetString("db_sslmode"),
	}
}

func loadKafkaConfig(v *viper.Viper) KafkaConfig {
	var brokers []string
	for _, b := range strings.Split(v.GetString("kafka_brokers"), ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return KafkaConfig{
		Brokers: brokers,
		Topic:   v.GetString("kafka_topic"),
	}
}

func loadRedisConfig(v *viper.Viper) RedisConfig {
	return RedisConfig{
		Addr:               v.GetString("redis_addr"),
		Password:           v.GetString("redis_password"),
		DB:                 v.GetInt("redis_db"),
		RateLimitPerMinute: v.GetInt("rate_limit_per_minute"),
	}
}
