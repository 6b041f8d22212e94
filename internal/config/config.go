package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig
	Logger  LoggerConfig
	DB      DBConfig
	Redis   RedisConfig
	Storage StorageConfig
	Sweep   SweepConfig
}

type ServerConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type LoggerConfig struct {
	Level string
	Env   string
}

type DBConfig struct {
	// Path of the sqlite question bank file.
	Path string
}

type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

type StorageConfig struct {
	// Backend selects the session store: "file" or "redis".
	Backend string
	// SessionsPath is the JSON document holding all sessions when the
	// file backend is active.
	SessionsPath string
	// TagsPath is the JSON document holding the tag hierarchy.
	TagsPath string
}

type SweepConfig struct {
	// Interval between stale-session sweeps. Zero disables the sweeper.
	Interval time.Duration
	// MaxAge after which an incomplete session is expired.
	MaxAge time.Duration
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	if os.Getenv("ENV") == "test" {
		viper.AddConfigPath("../../config")
		viper.AddConfigPath("../../")
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
	}

	viper.AutomaticEnv()

	viper.SetDefault("server.port", 8090)
	viper.SetDefault("server.read_timeout", 20)
	viper.SetDefault("server.write_timeout", 20)
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("db.path", "data/questions.db")
	viper.SetDefault("storage.backend", "file")
	viper.SetDefault("storage.sessions_path", "data/sessions.json")
	viper.SetDefault("storage.tags_path", "data/tags.json")
	viper.SetDefault("sweep.interval", 300)
	viper.SetDefault("sweep.max_age", 86400)

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is fine; defaults and env vars apply.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	config := &Config{
		Server: ServerConfig{
			Port:         viper.GetInt("server.port"),
			ReadTimeout:  viper.GetDuration("server.read_timeout") * time.Second,
			WriteTimeout: viper.GetDuration("server.write_timeout") * time.Second,
		},
		Logger: LoggerConfig{
			Level: viper.GetString("logger.level"),
			Env:   viper.GetString("logger.env"),
		},
		DB: DBConfig{
			Path: viper.GetString("db.path"),
		},
		Redis: RedisConfig{
			Address:  viper.GetString("redis.address"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		Storage: StorageConfig{
			Backend:      viper.GetString("storage.backend"),
			SessionsPath: viper.GetString("storage.sessions_path"),
			TagsPath:     viper.GetString("storage.tags_path"),
		},
		Sweep: SweepConfig{
			Interval: viper.GetDuration("sweep.interval") * time.Second,
			MaxAge:   viper.GetDuration("sweep.max_age") * time.Second,
		},
	}

	// Override with environment variables if set
	if env := os.Getenv("ENV"); env != "" {
		config.Logger.Env = env
	}
	if dbPath := os.Getenv("DB_PATH"); dbPath != "" {
		config.DB.Path = dbPath
	}
	if sessionsPath := os.Getenv("SESSIONS_PATH"); sessionsPath != "" {
		config.Storage.SessionsPath = sessionsPath
	}
	if tagsPath := os.Getenv("TAGS_PATH"); tagsPath != "" {
		config.Storage.TagsPath = tagsPath
	}
	if backend := os.Getenv("STORAGE_BACKEND"); backend != "" {
		config.Storage.Backend = backend
	}
	if redisAddress := os.Getenv("REDIS_ADDRESS"); redisAddress != "" {
		config.Redis.Address = redisAddress
	}
	if redisPassword := os.Getenv("REDIS_PASSWORD"); redisPassword != "" {
		config.Redis.Password = redisPassword
	}

	return config, nil
}
