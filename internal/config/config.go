package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	// HTTP server
	ServerAddr string
	TLSCert    string
	TLSKey     string

	// Auth
	JWTSecret     string
	JWTExpiry     time.Duration
	RefreshExpiry time.Duration

	// Kafka
	KafkaBroker    string
	KafkaTopic     string
	KafkaGroupID   string
	KafkaPartition int
	KafkaReadTO    time.Duration
	KafkaWriteTO   time.Duration

	// Cassandra
	CassandraHost     string
	CassandraKeyspace string
	CassandraUsername string
	CassandraPassword string
	CassandraTimeout  time.Duration
	CassandraDC       string
	MigrationsDir     string

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Setup / bootstrap
	DataDir        string
	EnvFile        string
	EnvExampleFile string
}

var cfg *Config

// Init loads the config using Viper and returns it
func Init() *Config {
	viper.SetDefault("SERVER_ADDR", ":8080")
	viper.SetDefault("TLS_CERT", "")
	viper.SetDefault("TLS_KEY", "")

	viper.SetDefault("JWT_EXPIRY", "24h")
	viper.SetDefault("REFRESH_EXPIRY", "168h")

	viper.SetDefault("KAFKA_BROKER", "localhost:29092")
	viper.SetDefault("KAFKA_TOPIC", "socialconnect-events")
	viper.SetDefault("KAFKA_GROUP_ID", "socialconnect-worker")
	viper.SetDefault("KAFKA_PARTITION", 0)
	viper.SetDefault("KAFKA_READ_TIMEOUT", "10s")
	viper.SetDefault("KAFKA_WRITE_TIMEOUT", "10s")

	viper.SetDefault("CASSANDRA_HOST", "localhost")
	viper.SetDefault("CASSANDRA_KEYSPACE", "socialconnect")
	viper.SetDefault("CASSANDRA_TIMEOUT", "10s")
	viper.SetDefault("MIGRATIONS_DIR", "./migrations/cassandra")
	// Optional: Cassandra username/password/DC can be empty

	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)

	viper.SetDefault("DATA_DIR", "./data")
	viper.SetDefault("ENV_FILE", ".env")
	viper.SetDefault("ENV_EXAMPLE_FILE", "env.example")

	// Load env variables
	viper.AutomaticEnv()

	// Optional config file support
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	_ = viper.ReadInConfig() // ignore error if no file

	cfg = &Config{
		ServerAddr:        viper.GetString("SERVER_ADDR"),
		TLSCert:           viper.GetString("TLS_CERT"),
		TLSKey:            viper.GetString("TLS_KEY"),
		JWTSecret:         viper.GetString("JWT_SECRET"),
		JWTExpiry:         parseDuration(viper.GetString("JWT_EXPIRY"), 24*time.Hour),
		RefreshExpiry:     parseDuration(viper.GetString("REFRESH_EXPIRY"), 7*24*time.Hour),
		KafkaBroker:       viper.GetString("KAFKA_BROKER"),
		KafkaTopic:        viper.GetString("KAFKA_TOPIC"),
		KafkaGroupID:      viper.GetString("KAFKA_GROUP_ID"),
		KafkaPartition:    viper.GetInt("KAFKA_PARTITION"),
		KafkaReadTO:       parseDuration(viper.GetString("KAFKA_READ_TIMEOUT"), 10*time.Second),
		KafkaWriteTO:      parseDuration(viper.GetString("KAFKA_WRITE_TIMEOUT"), 10*time.Second),
		CassandraHost:     viper.GetString("CASSANDRA_HOST"),
		CassandraKeyspace: viper.GetString("CASSANDRA_KEYSPACE"),
		CassandraUsername: viper.GetString("CASSANDRA_USERNAME"),
		CassandraPassword: viper.GetString("CASSANDRA_PASSWORD"),
		CassandraTimeout:  parseDuration(viper.GetString("CASSANDRA_TIMEOUT"), 10*time.Second),
		CassandraDC:       viper.GetString("CASSANDRA_DC"),
		MigrationsDir:     viper.GetString("MIGRATIONS_DIR"),
		RedisAddr:         viper.GetString("REDIS_ADDR"),
		RedisPassword:     viper.GetString("REDIS_PASSWORD"),
		RedisDB:           viper.GetInt("REDIS_DB"),
		DataDir:           viper.GetString("DATA_DIR"),
		EnvFile:           viper.GetString("ENV_FILE"),
		EnvExampleFile:    viper.GetString("ENV_EXAMPLE_FILE"),
	}

	return cfg
}

func parseDuration(s string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return def
}

// Get returns the loaded config instance
func Get() *Config {
	if cfg == nil {
		return Init()
	}
	return cfg
}
