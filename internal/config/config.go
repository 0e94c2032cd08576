package config

import (
	"time"

	"github.com/spf13/viper"
)

type AppConf struct {
	Env            string `mapstructure:"env"`
	Port           int    `mapstructure:"port"`
	ShutdownSecond int    `mapstructure:"shutdown_seconds"`
}

type MongoConf struct {
	URI        string `mapstructure:"uri"`
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`
}

type AWSConf struct {
	Region   string `mapstructure:"region"`
	Bucket   string `mapstructure:"bucket"`
	Endpoint string `mapstructure:"endpoint"`
}

type S3Conf struct {
	PublicRead    bool   `mapstructure:"public_read"`
	PublicBaseURL string `mapstructure:"public_base_url"`
	PresignTTL    int    `mapstructure:"presign_ttl_seconds"`
}

type RedisConf struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	SignedTTL int    `mapstructure:"signed_url_cache_ttl_seconds"`
}

type UploadConf struct {
	MaxFileBytes    int64 `mapstructure:"max_file_bytes"`
	MaxEncodedBytes int64 `mapstructure:"max_encoded_bytes"`
}

type LifecycleConf struct {
	DeleteAfterDays int `mapstructure:"delete_after_days"`
	ReapConcurrency int `mapstructure:"reap_concurrency"`
}

type FetchConf struct {
	TimeoutSeconds   int `mapstructure:"timeout_seconds"`
	RetryElapsedSecs int `mapstructure:"retry_max_elapsed_seconds"`
}

type Config struct {
	App       AppConf       `mapstructure:"app"`
	Mongo     MongoConf     `mapstructure:"mongodb"`
	AWS       AWSConf       `mapstructure:"aws"`
	S3        S3Conf        `mapstructure:"s3"`
	Redis     RedisConf     `mapstructure:"redis"`
	Upload    UploadConf    `mapstructure:"upload"`
	Lifecycle LifecycleConf `mapstructure:"lifecycle"`
	Fetch     FetchConf     `mapstructure:"fetch"`
	Log       struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`

	// derived
	ShutdownTimeout time.Duration
	FetchTimeout    time.Duration
	FetchRetryMax   time.Duration
	PresignTTL      time.Duration
	SignedCacheTTL  time.Duration
	DeleteAfter     time.Duration
}

func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if cfg.App.ShutdownSecond == 0 {
		cfg.App.ShutdownSecond = 15
	}
	if cfg.S3.PresignTTL == 0 {
		cfg.S3.PresignTTL = 600
	}
	if cfg.Redis.SignedTTL == 0 {
		cfg.Redis.SignedTTL = cfg.S3.PresignTTL
	}
	if cfg.Upload.MaxFileBytes == 0 {
		cfg.Upload.MaxFileBytes = 50 << 20
	}
	if cfg.Upload.MaxEncodedBytes == 0 {
		cfg.Upload.MaxEncodedBytes = 2 << 20
	}
	if cfg.Fetch.TimeoutSeconds == 0 {
		cfg.Fetch.TimeoutSeconds = 10
	}
	if cfg.Fetch.RetryElapsedSecs == 0 {
		cfg.Fetch.RetryElapsedSecs = 15
	}
	if cfg.Lifecycle.ReapConcurrency == 0 {
		cfg.Lifecycle.ReapConcurrency = 2
	}
	cfg.ShutdownTimeout = time.Duration(cfg.App.ShutdownSecond) * time.Second
	cfg.FetchTimeout = time.Duration(cfg.Fetch.TimeoutSeconds) * time.Second
	cfg.FetchRetryMax = time.Duration(cfg.Fetch.RetryElapsedSecs) * time.Second
	cfg.PresignTTL = time.Duration(cfg.S3.PresignTTL) * time.Second
	cfg.SignedCacheTTL = time.Duration(cfg.Redis.SignedTTL) * time.Second
	cfg.DeleteAfter = time.Duration(cfg.Lifecycle.DeleteAfterDays) * 24 * time.Hour
	return &cfg, nil
}
