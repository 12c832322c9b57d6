package common

import "github.com/spf13/viper"

// ===============================================================================
// Middleware Connection Related Config

// NATSReconnectConfig defines reconnect parameters
type NATSReconnectConfig struct {
	// MaxAttempts sets the max number of reconnect attempts (-1 is unlimited)
	MaxAttempts int `mapstructure:"max_attempts" json:"max_attempts" validate:"gte=-1"`
	// WaitInterval is the duration between reconnect attempts in seconds
	WaitInterval int `mapstructure:"wait_interval_sec" json:"wait_interval_sec" validate:"gte=1"`
}

// ConnectConfig defines parameters for connecting to the NATS messaging backbone
type ConnectConfig struct {
	// Endpoints are the NATS server endpoints to connect against
	Endpoints []string `mapstructure:"endpoints" json:"endpoints" validate:"required,min=1,dive,uri"`
	// ConnectTimeout is the max duration for connecting to a server in seconds
	ConnectTimeout int `mapstructure:"connect_timeout_sec" json:"connect_timeout_sec" validate:"gte=1"`
	// Reconnect defines reconnect parameters
	Reconnect NATSReconnectConfig `mapstructure:"reconnect" json:"reconnect" validate:"required,dive"`
}

// ===============================================================================
// Subscriber Related Config

// SubscriberConfig defines the tap subscriber parameters
type SubscriberConfig struct {
	// KeyExpression is the key-expression pattern the tap listens on
	KeyExpression string `mapstructure:"key_expression" json:"key_expression" validate:"required"`
	// ReportInterval is the interval between received-count reports in
	// seconds. Zero disables the report.
	ReportInterval int `mapstructure:"report_interval_sec" json:"report_interval_sec" validate:"gte=0"`
}

// ===============================================================================
// Monitor Server Related Config

// HTTPServerConfig defines the HTTP server parameters
type HTTPServerConfig struct {
	// ListenOn is the interface the HTTP server will listen on
	ListenOn string `mapstructure:"listen_on" json:"listen_on" validate:"required,ip"`
	// Port is the port the HTTP server will listen on
	Port uint16 `mapstructure:"listen_port" json:"listen_port" validate:"required,gt=0,lt=65536"`
	// ReadTimeout is the maximum duration for reading the entire
	// request, including the body in seconds. A zero or negative
	// value means there will be no timeout.
	ReadTimeout int `mapstructure:"read_timeout_sec" json:"read_timeout_sec" validate:"gte=0"`
	// WriteTimeout is the maximum duration before timing out
	// writes of the response in seconds. A zero or negative value
	// means there will be no timeout.
	WriteTimeout int `mapstructure:"write_timeout_sec" json:"write_timeout_sec" validate:"gte=0"`
}

// HTTPRequestLogging defines HTTP request logging parameters
type HTTPRequestLogging struct {
	// RequestIDHeader is the HTTP header containing the API request ID
	RequestIDHeader string `mapstructure:"request_id_header" json:"request_id_header"`
	// DoNotLogHeaders is the list of headers to not include in logging metadata
	DoNotLogHeaders []string `mapstructure:"do_not_log_headers" json:"do_not_log_headers"`
}

// MonitorServerConfig defines configuration for the embedded monitor API server
type MonitorServerConfig struct {
	// Enabled controls whether the monitor API server runs alongside the tap
	Enabled bool `mapstructure:"enabled" json:"enabled"`
	// Server defines HTTP server parameters
	Server HTTPServerConfig `mapstructure:"server_config" json:"server_config" validate:"required,dive"`
	// Logging defines operation logging parameters
	Logging HTTPRequestLogging `mapstructure:"logging_config" json:"logging_config" validate:"required,dive"`
	// PathPrefix is the end-point path prefix for the monitor APIs
	PathPrefix string `mapstructure:"path_prefix" json:"path_prefix" validate:"required"`
}

// ===============================================================================
// Complete Config

// SystemConfig defines the complete system config for the tap client
type SystemConfig struct {
	// Connect are the middleware connection config parameters
	Connect ConnectConfig `mapstructure:"connect" json:"connect" validate:"required,dive"`
	// Subscriber are the tap subscriber configs
	Subscriber SubscriberConfig `mapstructure:"subscriber" json:"subscriber" validate:"required,dive"`
	// Monitor are the embedded monitor API server configs
	Monitor MonitorServerConfig `mapstructure:"monitor" json:"monitor" validate:"required,dive"`
}

// ===============================================================================

// InstallDefaultConfigValues installs default config parameters in viper
func InstallDefaultConfigValues() {
	// Default connection settings
	viper.SetDefault("connect.endpoints", []string{"nats://127.0.0.1:4222"})
	viper.SetDefault("connect.connect_timeout_sec", 30)
	viper.SetDefault("connect.reconnect.max_attempts", -1)
	viper.SetDefault("connect.reconnect.wait_interval_sec", 15)

	// Default subscriber settings
	viper.SetDefault("subscriber.key_expression", "**")
	viper.SetDefault("subscriber.report_interval_sec", 60)

	// Default monitor server settings
	viper.SetDefault("monitor.enabled", false)
	viper.SetDefault("monitor.path_prefix", "/")
	viper.SetDefault("monitor.server_config.listen_on", "0.0.0.0")
	viper.SetDefault("monitor.server_config.listen_port", 3000)
	viper.SetDefault("monitor.server_config.read_timeout_sec", 60)
	viper.SetDefault("monitor.server_config.write_timeout_sec", 60)
	viper.SetDefault("monitor.logging_config.request_id_header", "Kxtap-Request-ID")
	viper.SetDefault(
		"monitor.logging_config.do_not_log_headers", []string{
			"WWW-Authenticate", "Authorization", "Proxy-Authenticate", "Proxy-Authorization",
		},
	)
}
