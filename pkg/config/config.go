package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port        string
	Env         string
	MetricsPort string

	LogLevel  string
	LogPretty bool

	// StoreDriver selects the repository backend: "mongo" or "postgres".
	StoreDriver   string
	PostgresURL   string
	MongoURI      string
	MongoDatabase string

	AuthProvider            string // "jwt" or "firebase"
	JWTSecret               string
	FirebaseCredentialsPath string
	FCMEnabled              bool

	RedisAddr     string
	RedisPassword string

	BlobDriver    string // "s3" or "local"
	BlobLocalDir  string
	BlobPublicURL string
	S3Endpoint    string
	S3Region      string
	S3Bucket      string
	S3AccessKey   string
	S3SecretKey   string
	S3PathStyle   bool

	MaxUploadBytes  int64
	MaxImageEdge    int
	OnlineThreshold time.Duration
}

// Load reads .env (if present), an optional config.yaml and the environment.
// Environment variables win over file values.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	return &Config{
		Port:        v.GetString("PORT"),
		Env:         v.GetString("ENV"),
		MetricsPort: v.GetString("METRICS_PORT"),

		LogLevel:  v.GetString("LOG_LEVEL"),
		LogPretty: v.GetBool("LOG_PRETTY"),

		StoreDriver:   strings.ToLower(v.GetString("STORE_DRIVER")),
		PostgresURL:   v.GetString("POSTGRES_URL"),
		MongoURI:      v.GetString("MONGO_URI"),
		MongoDatabase: v.GetString("MONGO_DATABASE"),

		AuthProvider:            strings.ToLower(v.GetString("AUTH_PROVIDER")),
		JWTSecret:               v.GetString("JWT_SECRET"),
		FirebaseCredentialsPath: v.GetString("FIREBASE_CREDENTIALS_PATH"),
		FCMEnabled:              v.GetBool("FCM_ENABLED"),

		RedisAddr:     v.GetString("REDIS_ADDR"),
		RedisPassword: v.GetString("REDIS_PASSWORD"),

		BlobDriver:    strings.ToLower(v.GetString("BLOB_DRIVER")),
		BlobLocalDir:  v.GetString("BLOB_LOCAL_DIR"),
		BlobPublicURL: v.GetString("BLOB_PUBLIC_URL"),
		S3Endpoint:    v.GetString("S3_ENDPOINT"),
		S3Region:      v.GetString("S3_REGION"),
		S3Bucket:      v.GetString("S3_BUCKET"),
		S3AccessKey:   v.GetString("S3_ACCESS_KEY_ID"),
		S3SecretKey:   v.GetString("S3_SECRET_ACCESS_KEY"),
		S3PathStyle:   v.GetBool("S3_USE_PATH_STYLE"),

		MaxUploadBytes:  v.GetInt64("MAX_UPLOAD_BYTES"),
		MaxImageEdge:    v.GetInt("MAX_IMAGE_EDGE"),
		OnlineThreshold: v.GetDuration("ONLINE_THRESHOLD"),
	}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("METRICS_PORT", "9090")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", false)
	v.SetDefault("STORE_DRIVER", "mongo")
	v.SetDefault("POSTGRES_URL", "postgres://localhost:5432/krealgram?sslmode=disable")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017/?replicaSet=rs0")
	v.SetDefault("MONGO_DATABASE", "krealgram")
	v.SetDefault("AUTH_PROVIDER", "jwt")
	v.SetDefault("FCM_ENABLED", false)
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("BLOB_DRIVER", "local")
	v.SetDefault("BLOB_LOCAL_DIR", "./uploads")
	v.SetDefault("BLOB_PUBLIC_URL", "/uploads")
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("MAX_UPLOAD_BYTES", 50<<20)
	v.SetDefault("MAX_IMAGE_EDGE", 1080)
	v.SetDefault("ONLINE_THRESHOLD", 5*time.Minute)
}

// Validate checks the combinations Load cannot default.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case "mongo", "postgres":
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	switch c.AuthProvider {
	case "jwt":
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required when AUTH_PROVIDER=jwt")
		}
	case "firebase":
		if c.FirebaseCredentialsPath == "" {
			return fmt.Errorf("FIREBASE_CREDENTIALS_PATH is required when AUTH_PROVIDER=firebase")
		}
	default:
		return fmt.Errorf("unknown AUTH_PROVIDER %q", c.AuthProvider)
	}
	if c.FCMEnabled && c.FirebaseCredentialsPath == "" {
		return fmt.Errorf("FIREBASE_CREDENTIALS_PATH is required when FCM_ENABLED=true")
	}
	switch c.BlobDriver {
	case "local":
	case "s3":
		if c.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required when BLOB_DRIVER=s3")
		}
	default:
		return fmt.Errorf("unknown BLOB_DRIVER %q", c.BlobDriver)
	}
	return nil
}
