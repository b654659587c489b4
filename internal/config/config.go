package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	CORS       CORSConfig       `mapstructure:"cors"`
	Log        LogConfig        `mapstructure:"log"`
	Remote     RemoteConfig     `mapstructure:"remote"`
	Auth       AuthConfig       `mapstructure:"auth"`
	DraftStore DraftStoreConfig `mapstructure:"draft_store"`
	Redis      RedisConfig      `mapstructure:"redis"`
	SQL        SQLConfig        `mapstructure:"sql"`
	Upload     UploadConfig     `mapstructure:"upload"`
	S3         S3Config         `mapstructure:"s3"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type RemoteConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	WrittenTypeTag string `mapstructure:"written_type_tag"`
	DurationUnit   string `mapstructure:"duration_unit"`
}

type AuthConfig struct {
	StaticToken string `mapstructure:"static_token"`
}

type DraftStoreConfig struct {
	Driver    string `mapstructure:"driver"`
	FilePath  string `mapstructure:"file_path"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	// DraftTTLHours expires untouched drafts; 0 keeps them until cleared.
	DraftTTLHours int `mapstructure:"draft_ttl_hours"`
}

type SQLConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type UploadConfig struct {
	Driver string `mapstructure:"driver"`
}

type S3Config struct {
	Endpoint      string `mapstructure:"endpoint"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	UseSSL        bool   `mapstructure:"use_ssl"`
	Bucket        string `mapstructure:"bucket"`
	PublicBaseURL string `mapstructure:"public_base_url"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", ":8080")
	v.SetDefault("cors.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("remote.base_url", "http://localhost:9000/api")
	v.SetDefault("remote.timeout_seconds", 30)
	v.SetDefault("remote.written_type_tag", "WRITTEN")
	v.SetDefault("remote.duration_unit", "minutes")
	v.SetDefault("auth.static_token", "")
	v.SetDefault("draft_store.driver", "file")
	v.SetDefault("draft_store.file_path", "./data/drafts.json")
	v.SetDefault("draft_store.key_prefix", "")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.draft_ttl_hours", 0)
	v.SetDefault("sql.driver", "sqlite")
	v.SetDefault("sql.dsn", "")
	v.SetDefault("upload.driver", "remote")
	v.SetDefault("s3.endpoint", "localhost:9001")
	v.SetDefault("s3.access_key", "")
	v.SetDefault("s3.secret_key", "")
	v.SetDefault("s3.use_ssl", false)
	v.SetDefault("s3.bucket", "template-images")
	v.SetDefault("s3.public_base_url", "")
}

// Load reads config.yaml from ./config or the working directory, or the
// file at path when one is given, then applies TPL_APP_* environment
// overrides. A missing config file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}
	v.SetEnvPrefix("TPL_APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		logrus.Warn("config.yaml not found, using defaults and environment variables")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.DraftStore.Driver {
	case "memory", "file", "redis", "sql":
	default:
		return fmt.Errorf("unsupported draft_store.driver %q", c.DraftStore.Driver)
	}
	switch c.Upload.Driver {
	case "remote", "s3":
	default:
		return fmt.Errorf("unsupported upload.driver %q", c.Upload.Driver)
	}
	c.Remote.DurationUnit = strings.ToLower(strings.TrimSpace(c.Remote.DurationUnit))
	switch c.Remote.DurationUnit {
	case "minutes", "seconds":
	default:
		return fmt.Errorf("unsupported remote.duration_unit %q", c.Remote.DurationUnit)
	}
	if c.DraftStore.Driver == "sql" && c.SQL.Driver != "sqlite" && c.SQL.Driver != "postgres" {
		return fmt.Errorf("unsupported sql.driver %q", c.SQL.Driver)
	}
	if c.Remote.BaseURL == "" {
		return errors.New("remote.base_url is required")
	}
	return nil
}
