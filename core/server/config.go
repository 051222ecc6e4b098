package server

// Config holds configuration for the HTTP query API.
type Config struct {
	// Host is the listen address.
	Host string `mapstructure:"host" default:"0.0.0.0"`
	// Port is the listen port.
	Port int `mapstructure:"port" default:"8080"`
	// ReadTimeoutSeconds bounds slow request reads.
	ReadTimeoutSeconds int `mapstructure:"read_timeout_seconds" default:"30"`
}
