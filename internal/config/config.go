// This file defines the configuration structure for the application.
package config

import (
	// use Viper for loading the config.yml file.
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration settings for the application.
// It maps directly to the structure of config.yml.
type Config struct {
	Port    int `mapstructure:"port"`
	Trainer struct {
		URL                 string `mapstructure:"url"`
		WebSocketURL        string `mapstructure:"websocket_url"`
		StatusPollInterval  int    `mapstructure:"status_poll_interval"` // seconds
		StatsPollInterval   int    `mapstructure:"stats_poll_interval"`  // seconds
		MinEngineAPIVersion string `mapstructure:"min_engine_api_version"`
	} `mapstructure:"trainer"`
	Database struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"database"`
	Presets struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"presets"`
	Runs struct {
		Retention int `mapstructure:"retention"` // number of run summaries to keep
	} `mapstructure:"runs"`
}

// Load reads configuration from a file named "config.yml" in the
// current directory and unmarshals it into a Config struct.
func Load() (*Config, error) {
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yml")    // or "yaml"
	viper.AddConfigPath(".")      // looking for config in the current directory

	// --- Environment Variable Overrides ---
	// This tells Viper to look for environment variables with a "TRAINWATCH_" prefix.
	// e.g., TRAINWATCH_TRAINER_URL will override the `trainer.url` key.
	viper.SetEnvPrefix("TRAINWATCH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Set default values
	viper.SetDefault("port", 8085)
	viper.SetDefault("trainer.url", "http://localhost:8000")
	viper.SetDefault("trainer.websocket_url", "ws://localhost:8000/ws")
	viper.SetDefault("trainer.status_poll_interval", 10)
	viper.SetDefault("trainer.stats_poll_interval", 5)
	viper.SetDefault("trainer.min_engine_api_version", "1.0.0")
	viper.SetDefault("database.path", "./trainwatch.db")
	viper.SetDefault("presets.path", "./presets")
	viper.SetDefault("runs.retention", 200)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; ignore error and use defaults
		} else {
			// Config file was found but another error was produced
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
