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
	Port     int `mapstructure:"port"`
	Database struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"database"`
	Photos struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"photos"`
	Import struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"import"`
	Backup struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"backup"`
	Mebbis struct {
		BaseURL           string `mapstructure:"base_url"`
		AuthTimeoutMins   int    `mapstructure:"auth_timeout_mins"`
		ItemTimeoutMins   int    `mapstructure:"item_timeout_mins"`
		RetentionMins     int    `mapstructure:"retention_mins"`
		SweepIntervalMins int    `mapstructure:"sweep_interval_mins"`
	} `mapstructure:"mebbis"`
	Analytics struct {
		CacheTTLMins int `mapstructure:"cache_ttl_mins"`
	} `mapstructure:"analytics"`
}

// Load reads configuration from a file named "config.yml" in the
// current directory and unmarshals it into a Config struct.
func Load() (*Config, error) {
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yml")    // or "yaml"
	viper.AddConfigPath(".")      // looking for config in the current directory

	// --- Environment Variable Overrides ---
	// This tells Viper to look for environment variables with a "REHBER_" prefix.
	// e.g., REHBER_DATABASE_PATH will override the `database.path` key.
	viper.SetEnvPrefix("REHBER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Set default values
	viper.SetDefault("port", 8080)
	viper.SetDefault("database.path", "./rehber.db")
	viper.SetDefault("photos.path", "./photos")
	viper.SetDefault("import.path", "./import")
	viper.SetDefault("backup.path", "./backups")
	viper.SetDefault("mebbis.base_url", "https://mebbis.meb.gov.tr")
	viper.SetDefault("mebbis.auth_timeout_mins", 3)
	viper.SetDefault("mebbis.item_timeout_mins", 2)
	viper.SetDefault("mebbis.retention_mins", 10)
	viper.SetDefault("mebbis.sweep_interval_mins", 1)
	viper.SetDefault("analytics.cache_ttl_mins", 15)

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
