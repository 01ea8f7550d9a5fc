package config

import (
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
}

// JWTConfig carries the signing material for both token classes. The secrets
// and TTLs are deliberately separate per class: an access token must never
// verify under the refresh secret, and vice versa.
type JWTConfig struct {
	AccessTokenSecret  string        `mapstructure:"access_token_secret"`
	AccessTokenTTL     time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenSecret string        `mapstructure:"refresh_token_secret"`
	RefreshTokenTTL    time.Duration `mapstructure:"refresh_token_ttl"`
}

// MediaConfig configures the S3-compatible object store holding uploaded
// avatars and cover images. Endpoint is only set for S3-compatible services
// such as MinIO.
type MediaConfig struct {
	Region        string `mapstructure:"region"`
	Bucket        string `mapstructure:"bucket"`
	Endpoint      string `mapstructure:"endpoint"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	PublicBaseURL string `mapstructure:"public_base_url"`
}

type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Server   ServerConfig   `mapstructure:"server"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Media    MediaConfig    `mapstructure:"media"`
}

var AppConfig Config

func LoadConfig(path string) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yml")

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Canonical environment names for the token secrets and TTLs.
	viper.BindEnv("jwt.access_token_secret", "ACCESS_TOKEN_SECRET")
	viper.BindEnv("jwt.access_token_ttl", "ACCESS_TOKEN_TTL")
	viper.BindEnv("jwt.refresh_token_secret", "REFRESH_TOKEN_SECRET")
	viper.BindEnv("jwt.refresh_token_ttl", "REFRESH_TOKEN_TTL")

	if err := viper.ReadInConfig(); err != nil {
		log.Fatalf("Error reading config file, %s", err)
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Unable to decode into struct, %v", err)
	}

	validateJWTConfig()
}

func validateJWTConfig() {
	jwt := AppConfig.JWT
	if jwt.AccessTokenSecret == "" || jwt.RefreshTokenSecret == "" {
		log.Fatal("Both access and refresh token secrets must be configured")
	}
	if jwt.AccessTokenSecret == jwt.RefreshTokenSecret {
		log.Fatal("Access and refresh token secrets must be distinct")
	}
	if jwt.AccessTokenTTL <= 0 || jwt.RefreshTokenTTL <= 0 {
		log.Fatal("Token TTLs must be positive durations")
	}
}
