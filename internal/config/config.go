package config

import "time"

// Config holds arena server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	DatabasePath      string        `mapstructure:"database_path" yaml:"database_path"`
	JWTSecret         string        `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	JWTIssuer         string        `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	BoardSize         int           `mapstructure:"board_size" yaml:"board_size"`
	CallTimeout       time.Duration `mapstructure:"call_timeout" yaml:"call_timeout"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		DatabasePath:      "gomoku.db",
		JWTSecret:         "dev-secret-change-me",
		JWTIssuer:         "gomoku-arena",
		LogLevel:          "info",
		BoardSize:         15,
		CallTimeout:       10 * time.Second,
	}
}
