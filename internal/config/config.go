package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type AppConf struct {
	Name            string        `mapstructure:"name"`
	Env             string        `mapstructure:"env"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	BodyLimitMB     int           `mapstructure:"body_limit_mb"`
}

func (a AppConf) Addr() string { return fmt.Sprintf("%s:%d", a.Host, a.Port) }

type MongoConf struct {
	URI            string        `mapstructure:"uri"`
	Database       string        `mapstructure:"database"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	QueryTimeout   time.Duration `mapstructure:"query_timeout"`
}

type RedisConf struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type JWTConf struct {
	Algorithm      string        `mapstructure:"algorithm"`
	Secret         string        `mapstructure:"secret"`
	PrivateKeyPath string        `mapstructure:"private_key_path"`
	PublicKeyPath  string        `mapstructure:"public_key_path"`
	TTL            time.Duration `mapstructure:"ttl"`
}

type UploadsConf struct {
	Driver          string `mapstructure:"driver"`
	Dir             string `mapstructure:"dir"`
	URLPrefix       string `mapstructure:"url_prefix"`
	MaxFileMB       int    `mapstructure:"max_file_mb"`
	MaxPhotoMB      int    `mapstructure:"max_photo_mb"`
	ThumbnailWidth  int    `mapstructure:"thumbnail_width"`
	PhotoSize       int    `mapstructure:"photo_size"`
	S3Region        string `mapstructure:"s3_region"`
	S3Bucket        string `mapstructure:"s3_bucket"`
	S3PublicBaseURL string `mapstructure:"s3_public_base_url"`
}

type KafkaConf struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type RateLimitConf struct {
	PerMinute int `mapstructure:"per_minute"`
	Burst     int `mapstructure:"burst"`
}

type ConsulConf struct {
	Addr        string `mapstructure:"addr"`
	ServiceName string `mapstructure:"service_name"`
	ServiceHost string `mapstructure:"service_host"`
}

type Config struct {
	App       AppConf       `mapstructure:"app"`
	Mongo     MongoConf     `mapstructure:"mongo"`
	Redis     RedisConf     `mapstructure:"redis"`
	JWT       JWTConf       `mapstructure:"jwt"`
	Uploads   UploadsConf   `mapstructure:"uploads"`
	Kafka     KafkaConf     `mapstructure:"kafka"`
	RateLimit RateLimitConf `mapstructure:"rate_limit"`
	Consul    ConsulConf    `mapstructure:"consul"`
}

func (c *Config) IsDevelopment() bool { return c.App.Env == "development" }

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "chat-backend")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 5000)
	v.SetDefault("app.read_timeout", 15*time.Second)
	v.SetDefault("app.write_timeout", 15*time.Second)
	v.SetDefault("app.idle_timeout", 60*time.Second)
	v.SetDefault("app.shutdown_timeout", 10*time.Second)
	v.SetDefault("app.body_limit_mb", 12)

	v.SetDefault("mongo.database", "chat")
	v.SetDefault("mongo.connect_timeout", 15*time.Second)
	v.SetDefault("mongo.query_timeout", 5*time.Second)

	v.SetDefault("jwt.algorithm", "HS256")
	v.SetDefault("jwt.ttl", 7*24*time.Hour)

	v.SetDefault("uploads.driver", "local")
	v.SetDefault("uploads.dir", "uploads")
	v.SetDefault("uploads.url_prefix", "/uploads")
	v.SetDefault("uploads.max_file_mb", 10)
	v.SetDefault("uploads.max_photo_mb", 5)
	v.SetDefault("uploads.thumbnail_width", 320)
	v.SetDefault("uploads.photo_size", 256)

	v.SetDefault("kafka.topic", "chat-events")

	v.SetDefault("rate_limit.per_minute", 120)
	v.SetDefault("rate_limit.burst", 20)

	v.SetDefault("consul.service_name", "chat-backend")
}

// Load reads the YAML file at path (optional), then applies environment overrides:
// MONGO_URI, JWT_SECRET, APP_PORT and so on, i.e. the upper-cased key with dots replaced by "_".
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	// AutomaticEnv only applies to keys viper already knows about.
	for _, key := range []string{"mongo.uri", "redis.addr", "redis.password", "jwt.secret", "jwt.private_key_path",
		"jwt.public_key_path", "uploads.s3_region", "uploads.s3_bucket", "uploads.s3_public_base_url", "consul.addr",
		"consul.service_host", "kafka.brokers"} {
		_ = v.BindEnv(key)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Kafka.Brokers = splitList(strings.Join(cfg.Kafka.Brokers, ","))

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.App.Port <= 0 {
		return errors.New("app.port is missing or invalid")
	}
	if cfg.Mongo.URI == "" {
		return errors.New("mongo.uri is empty (set MONGO_URI)")
	}
	if cfg.Mongo.Database == "" {
		return errors.New("mongo.database is missing")
	}

	switch strings.ToUpper(cfg.JWT.Algorithm) {
	case "HS256":
		if cfg.JWT.Secret == "" {
			return errors.New("jwt.secret required for HS256 (set JWT_SECRET)")
		}
	case "RS256":
		if cfg.JWT.PrivateKeyPath == "" || cfg.JWT.PublicKeyPath == "" {
			return errors.New("jwt.private_key_path and jwt.public_key_path required for RS256")
		}
	default:
		return errors.New("jwt.algorithm must be RS256 or HS256")
	}

	switch cfg.Uploads.Driver {
	case "local":
		if cfg.Uploads.Dir == "" {
			return errors.New("uploads.dir is missing")
		}
	case "s3":
		if cfg.Uploads.S3Bucket == "" || cfg.Uploads.S3Region == "" {
			return errors.New("uploads.s3_bucket and uploads.s3_region required for s3 driver")
		}
	default:
		return errors.New("uploads.driver must be local or s3")
	}

	if cfg.Uploads.MaxFileMB <= 0 || cfg.Uploads.MaxPhotoMB <= 0 {
		return errors.New("uploads size limits must be positive")
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
