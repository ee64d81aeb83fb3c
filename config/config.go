package config

import (
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Address  string
		HTTPPort string
	}
	Database struct {
		Driver string // "mysql" | "postgres" | "sqlite" | "" (без БД)
		DSN    string
	}
	Logging struct {
		Level  string
		Format string // "text" | "json"
		File   string
	}
	Session struct {
		Secret string // hex/base64, любые 32+ байта
		MaxAge int    // секунды
	}
}

// Load читает конфиг из файла (если указан) и из окружения PULSE_*.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.address", "0.0.0.0")
	v.SetDefault("server.httpport", "8080")
	v.SetDefault("database.driver", "")
	v.SetDefault("database.dsn", "")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.file", "")
	v.SetDefault("session.secret", "")
	v.SetDefault("session.maxage", 24*60*60) // 24h

	v.SetEnvPrefix("PULSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
