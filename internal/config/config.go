package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	defaultPort            = "8080"
	defaultDatabasePath    = "habitlog.db"
	defaultGinMode         = "release"
	defaultLogLevel        = "info"
	defaultStreakChunkDays = 30
)

// AppConfig 汇总运行服务所需的基础配置。
type AppConfig struct {
	ListenAddr      string
	Port            string
	DatabasePath    string
	GinMode         string
	LogLevel        string
	LogFile         string
	Timezone        string
	StreakChunkDays int
}

// Load 从环境变量（以及可选的 habitlog.yaml）读取应用配置，并为缺失项提供默认值。
// configDir 为空时只读取环境变量。
func Load(configDir string) (AppConfig, error) {
	v := viper.New()
	v.SetDefault("PORT", defaultPort)
	v.SetDefault("DATABASE_PATH", defaultDatabasePath)
	v.SetDefault("GIN_MODE", defaultGinMode)
	v.SetDefault("LOG_LEVEL", defaultLogLevel)
	v.SetDefault("STREAK_CHUNK_DAYS", defaultStreakChunkDays)
	v.AutomaticEnv()

	if dir := strings.TrimSpace(configDir); dir != "" {
		v.SetConfigName("habitlog")
		v.SetConfigType("yaml")
		v.AddConfigPath(dir)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return AppConfig{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	port := strings.TrimSpace(v.GetString("PORT"))
	if port == "" {
		port = defaultPort
	}

	listenAddr := strings.TrimSpace(v.GetString("LISTEN_ADDR"))
	if listenAddr == "" {
		listenAddr = fmt.Sprintf(":%s", port)
	}

	databasePath := strings.TrimSpace(v.GetString("DATABASE_PATH"))
	if databasePath == "" {
		databasePath = defaultDatabasePath
	}

	ginMode := strings.TrimSpace(v.GetString("GIN_MODE"))
	if ginMode == "" {
		ginMode = defaultGinMode
	}

	logLevel := strings.ToLower(strings.TrimSpace(v.GetString("LOG_LEVEL")))
	if logLevel == "" {
		logLevel = defaultLogLevel
	}

	chunk := v.GetInt("STREAK_CHUNK_DAYS")
	if chunk <= 0 {
		chunk = defaultStreakChunkDays
	}

	cfg := AppConfig{
		ListenAddr:      listenAddr,
		Port:            port,
		DatabasePath:    databasePath,
		GinMode:         ginMode,
		LogLevel:        logLevel,
		LogFile:         strings.TrimSpace(v.GetString("LOG_FILE")),
		Timezone:        strings.TrimSpace(v.GetString("TIMEZONE")),
		StreakChunkDays: chunk,
	}

	if _, err := cfg.Location(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

// Location 返回计算“今天”所使用的时区，未配置时使用服务器本地时区。
func (c AppConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}
