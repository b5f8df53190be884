package config

import (
	"time"

	"github.com/spf13/viper"

	pkgconfig "github.com/weiawesome/streamchat/pkg/config"
	"github.com/weiawesome/streamchat/pkg/database"
	"github.com/weiawesome/streamchat/pkg/log"
	"github.com/weiawesome/streamchat/pkg/pubsub"
)

type Config struct {
	Server     ServerConfig
	Log        log.Config
	Platform   PlatformConfig
	Moderation ModerationConfig
	WebSocket  WebSocketConfig
	Relay      RelayConfig
	PubSub     pubsub.Config
	Database   DatabaseConfig
}

type ServerConfig struct {
	Host            string
	Port            int
	Mode            string        // gin mode: debug, release, test
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

type PlatformConfig struct {
	AccountSID   string        `mapstructure:"account_sid"`
	APIKeySID    string        `mapstructure:"api_key_sid"`
	APIKeySecret string        `mapstructure:"api_key_secret"`
	VideoBaseURL string        `mapstructure:"video_base_url"`
	MediaBaseURL string        `mapstructure:"media_base_url"`
	Timeout      time.Duration `mapstructure:"timeout"`
	PlaybackTTL  time.Duration `mapstructure:"playback_ttl"`
	TokenTTL     time.Duration `mapstructure:"token_ttl"`
}

type ModerationConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type WebSocketConfig struct {
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
	WriteWait      time.Duration `mapstructure:"write_wait"`
	MaxMessageSize int64         `mapstructure:"max_message_size"`
	SendBuffer     int           `mapstructure:"send_buffer"`
}

type RelayConfig struct {
	Namespace string
}

type DatabaseConfig struct {
	Enabled         bool
	database.Config `mapstructure:",squash"`
}

// Load reads config.yaml from configPath, then .env and the environment.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "./config"
	}
	v, err := pkgconfig.Load(configPath, "config")
	if err != nil {
		return nil, err
	}

	setDefaults(v)
	bindEnv(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Parse durations
	cfg.Server.ShutdownTimeout = parseDuration(v, "server.shutdown_timeout", 10*time.Second)
	cfg.Platform.Timeout = parseDuration(v, "platform.timeout", 10*time.Second)
	cfg.Platform.PlaybackTTL = parseDuration(v, "platform.playback_ttl", 60*time.Second)
	cfg.Platform.TokenTTL = parseDuration(v, "platform.token_ttl", time.Hour)
	cfg.Moderation.Timeout = parseDuration(v, "moderation.timeout", 10*time.Second)
	cfg.WebSocket.PingInterval = parseDuration(v, "websocket.ping_interval", 30*time.Second)
	cfg.WebSocket.PongWait = parseDuration(v, "websocket.pong_wait", 60*time.Second)
	cfg.WebSocket.WriteWait = parseDuration(v, "websocket.write_wait", 10*time.Second)
	cfg.PubSub.Redis.ReadTimeout = parseDuration(v, "pubsub.redis.read_timeout", 3*time.Second)
	cfg.PubSub.Redis.WriteTimeout = parseDuration(v, "pubsub.redis.write_timeout", 3*time.Second)

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("log.service_name", "streamchat")

	v.SetDefault("platform.video_base_url", "https://video.twilio.com")
	v.SetDefault("platform.media_base_url", "https://media.twilio.com")
	v.SetDefault("platform.timeout", "10s")
	v.SetDefault("platform.playback_ttl", "60s")
	v.SetDefault("platform.token_ttl", "1h")

	v.SetDefault("moderation.base_url", "")
	v.SetDefault("moderation.model", "cohere-toxicity")
	v.SetDefault("moderation.timeout", "10s")

	v.SetDefault("websocket.ping_interval", "30s")
	v.SetDefault("websocket.pong_wait", "60s")
	v.SetDefault("websocket.write_wait", "10s")
	v.SetDefault("websocket.max_message_size", 4096)
	v.SetDefault("websocket.send_buffer", 256)

	v.SetDefault("relay.namespace", pubsub.DefaultNamespace)

	def := pubsub.DefaultConfig()
	v.SetDefault("pubsub.driver", def.Driver)
	v.SetDefault("pubsub.buffer", def.Buffer)
	v.SetDefault("pubsub.redis.address", def.Redis.Address)
	v.SetDefault("pubsub.redis.password", "")
	v.SetDefault("pubsub.redis.db", 0)
	v.SetDefault("pubsub.redis.pool_size", def.Redis.PoolSize)
	v.SetDefault("pubsub.redis.read_timeout", "3s")
	v.SetDefault("pubsub.redis.write_timeout", "3s")
	v.SetDefault("pubsub.kafka.brokers", def.Kafka.Brokers)
	v.SetDefault("pubsub.kafka.group_id", def.Kafka.GroupID)
	v.SetDefault("pubsub.kafka.partitions", def.Kafka.Partitions)
	v.SetDefault("pubsub.nats.url", def.NATS.URL)
	v.SetDefault("pubsub.nats.name", def.NATS.Name)

	v.SetDefault("database.enabled", true)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.name", "streamchat")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.time_zone", "UTC")
	v.SetDefault("database.file_path", "./data/streamchat.db")
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", 60)
}

func bindEnv(v *viper.Viper) {
	v.BindEnv("server.port", "PORT")
	v.BindEnv("server.mode", "GIN_MODE")
	v.BindEnv("log.level", "LOG_LEVEL")

	v.BindEnv("platform.account_sid", "TWILIO_ACCOUNT_SID")
	v.BindEnv("platform.api_key_sid", "TWILIO_API_KEY_SID")
	v.BindEnv("platform.api_key_secret", "TWILIO_API_KEY_SECRET")
	v.BindEnv("moderation.api_key", "COHERE_API_KEY_SECRET")

	v.BindEnv("pubsub.driver", "RELAY_DRIVER")
	v.BindEnv("pubsub.redis.address", "REDIS_ADDRESS")
	v.BindEnv("pubsub.redis.password", "REDIS_PASSWORD")
	v.BindEnv("pubsub.kafka.brokers", "KAFKA_BROKERS")
	v.BindEnv("pubsub.nats.url", "NATS_URL")

	v.BindEnv("database.enabled", "DB_ENABLED")
	v.BindEnv("database.driver", "DB_DRIVER")
	v.BindEnv("database.host", "DB_HOST")
	v.BindEnv("database.port", "DB_PORT")
	v.BindEnv("database.user", "DB_USER")
	v.BindEnv("database.password", "DB_PASSWORD")
	v.BindEnv("database.name", "DB_NAME")
	v.BindEnv("database.ssl_mode", "DB_SSLMODE")
	v.BindEnv("database.file_path", "DB_FILE_PATH")
}

func parseDuration(v *viper.Viper, key string, defaultVal time.Duration) time.Duration {
	d, err := time.ParseDuration(v.GetString(key))
	if err != nil {
		return defaultVal
	}
	return d
}
