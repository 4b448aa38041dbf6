package server

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds the server configuration.
type Config struct {
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
	DataDir string `mapstructure:"data_dir"`
}

// Addr returns the listen address as host:port.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LoadConfig reads configuration from file and environment variables.
func LoadConfig(configPath string) (*viper.Viper, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.data_dir", "./data")
	v.SetDefault("server.demo_mode", false)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("database.path", "./data/cropsense.db")

	// Module defaults
	v.SetDefault("plugins.field.enabled", true)
	v.SetDefault("plugins.field.reading_retention", "2160h")
	v.SetDefault("plugins.field.maintenance_interval", "1h")
	v.SetDefault("plugins.detect.enabled", true)
	v.SetDefault("plugins.detect.trees", 100)
	v.SetDefault("plugins.detect.contamination", 0.1)
	v.SetDefault("plugins.detect.subsample_size", 256)
	v.SetDefault("plugins.detect.seed", 42)
	v.SetDefault("plugins.detect.min_train_samples", 50)
	v.SetDefault("plugins.detect.train_lookback", "168h")
	v.SetDefault("plugins.detect.model_path", "./data/models/detector.json")
	v.SetDefault("plugins.detect.anomaly_retention", "720h")
	v.SetDefault("plugins.detect.maintenance_interval", "1h")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("cropsense")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/cropsense")
	}

	// Environment variable support: CS_SERVER_PORT=9090
	v.SetEnvPrefix("CS")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// Config file not found is fine -- use defaults
	}

	return v, nil
}
