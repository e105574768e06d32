package config

// Config represents the complete configuration structure
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig holds the demos.tf endpoint and credentials
type ServerConfig struct {
	URL string `mapstructure:"url"`
	// Key is the access key used for uploads and private demos, optional for
	// read-only use.
	Key string `mapstructure:"key"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Color  bool   `mapstructure:"color"`
}
