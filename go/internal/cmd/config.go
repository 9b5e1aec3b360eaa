package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds process configuration. Values come from an optional yaml
// file with environment variable overrides on top.
type Config struct {
	Server struct {
		Port           string   `yaml:"port"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"server"`
	Websocket struct {
		WriteTimeoutSec int `yaml:"write_timeout_sec"`
		ReadTimeoutSec  int `yaml:"read_timeout_sec"`
		PingIntervalSec int `yaml:"ping_interval_sec"`
		SendBuffer      int `yaml:"send_buffer"`
	} `yaml:"websocket"`
	Relay struct {
		// Empty URL disables the NATS snapshot relay.
		URL           string `yaml:"url"`
		SubjectPrefix string `yaml:"subject_prefix"`
	} `yaml:"relay"`
	LogLevel string `yaml:"log_level"`
}

func defaultConfig() *Config {
	var config Config
	config.Server.Port = "8080"
	config.Server.AllowedOrigins = []string{"*"}
	config.Websocket.WriteTimeoutSec = 10
	config.Websocket.ReadTimeoutSec = 60
	config.Websocket.PingIntervalSec = 30
	config.Websocket.SendBuffer = 256
	config.Relay.SubjectPrefix = "votify.rooms"
	config.LogLevel = "info"
	return &config
}

func loadConfig(path string) (*Config, error) {
	config := defaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Config file is optional; env overrides still apply.
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	config.Server.Port = getEnv("PORT", config.Server.Port)
	config.Relay.URL = getEnv("NATS_URL", config.Relay.URL)
	config.LogLevel = getEnv("LOG_LEVEL", config.LogLevel)

	return config, nil
}

func (c *Config) writeTimeout() time.Duration {
	return time.Duration(c.Websocket.WriteTimeoutSec) * time.Second
}

func (c *Config) readTimeout() time.Duration {
	return time.Duration(c.Websocket.ReadTimeoutSec) * time.Second
}

func (c *Config) pingInterval() time.Duration {
	return time.Duration(c.Websocket.PingIntervalSec) * time.Second
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
