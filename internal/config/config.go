// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Gateway   GatewayConfig   `mapstructure:"gateway"`
	RPC       RPCConfig       `mapstructure:"rpc"`
	Network   NetworkConfig   `mapstructure:"network"`
	ChatBot   ChatBotConfig   `mapstructure:"chatbot"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Health    HealthConfig    `mapstructure:"health"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
}

// GatewayConfig points at the wallet agent. EndpointURL is the JSON-RPC
// endpoint the ledger client dials through the agent; when empty it is
// derived from URL.
type GatewayConfig struct {
	URL               string        `mapstructure:"url"`
	EndpointURL       string        `mapstructure:"endpoint_url"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	MaxReconnects     int           `mapstructure:"max_reconnects"`
	InitialBackoff    time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff        time.Duration `mapstructure:"max_backoff"`
}

// RPCConfig holds the read-only node used when no wallet is connected.
type RPCConfig struct {
	FallbackURL    string        `mapstructure:"fallback_url"`
	GasPriceTTL    time.Duration `mapstructure:"gas_price_ttl"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// NetworkConfig configures the network directory.
type NetworkConfig struct {
	DefaultChainID uint64        `mapstructure:"default_chain_id"`
	ChainlistURL   string        `mapstructure:"chainlist_url"`
	ChainlistTTL   time.Duration `mapstructure:"chainlist_ttl"`
}

// ChatBotConfig holds the chatbot contract settings.
type ChatBotConfig struct {
	ContractAddress          string        `mapstructure:"contract_address"`
	ClearGasLimit            uint64        `mapstructure:"clear_gas_limit"`
	ConfirmationPollInterval time.Duration `mapstructure:"confirmation_poll_interval"`
	ConfirmationTimeout      time.Duration `mapstructure:"confirmation_timeout"`
}

// ContractAddressHex returns the contract address as common.Address.
func (c *ChatBotConfig) ContractAddressHex() common.Address {
	return common.HexToAddress(c.ContractAddress)
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	TraceProvider  string `mapstructure:"trace_provider"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	OTLPHeaders    string `mapstructure:"otlp_headers"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
}

// HealthConfig holds the health server settings.
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("PCHAIN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnvVars(v)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	_ = v.BindEnv("app.name", "PCHAIN_APP_NAME", "SERVICE_NAME")
	_ = v.BindEnv("app.environment", "PCHAIN_ENVIRONMENT", "ENVIRONMENT")
	_ = v.BindEnv("app.log_level", "PCHAIN_LOG_LEVEL", "LOG_LEVEL")

	_ = v.BindEnv("gateway.url", "PCHAIN_GATEWAY_URL", "GATEWAY_URL")
	_ = v.BindEnv("gateway.endpoint_url", "PCHAIN_GATEWAY_ENDPOINT_URL")

	_ = v.BindEnv("rpc.fallback_url", "PCHAIN_RPC_FALLBACK_URL", "RPC_URL")

	_ = v.BindEnv("network.default_chain_id", "PCHAIN_DEFAULT_CHAIN_ID")
	_ = v.BindEnv("network.chainlist_url", "PCHAIN_CHAINLIST_URL")

	_ = v.BindEnv("chatbot.contract_address", "PCHAIN_CHATBOT_ADDRESS", "CHATBOT_ADDRESS")

	_ = v.BindEnv("telemetry.enabled", "PCHAIN_OTEL_ENABLED", "OTEL_ENABLED")
	_ = v.BindEnv("telemetry.service_name", "PCHAIN_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	_ = v.BindEnv("telemetry.otlp_endpoint", "PCHAIN_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "promptchain")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("gateway.request_timeout", "2m")
	v.SetDefault("gateway.requests_per_second", 10)
	v.SetDefault("gateway.burst", 5)
	v.SetDefault("gateway.max_reconnects", 0) // infinite
	v.SetDefault("gateway.initial_backoff", "1s")
	v.SetDefault("gateway.max_backoff", "30s")

	v.SetDefault("rpc.fallback_url", "https://sapphire.oasis.io")
	v.SetDefault("rpc.gas_price_ttl", "6s")
	v.SetDefault("rpc.request_timeout", "15s")

	v.SetDefault("network.default_chain_id", 0x5afe) // Sapphire mainnet
	v.SetDefault("network.chainlist_ttl", "1h")

	v.SetDefault("chatbot.clear_gas_limit", 1_000_000)
	v.SetDefault("chatbot.confirmation_poll_interval", "1s")
	v.SetDefault("chatbot.confirmation_timeout", "2m")

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "promptchain")
	v.SetDefault("telemetry.trace_provider", "zipkin")
	v.SetDefault("telemetry.prometheus_port", 9090)

	v.SetDefault("health.enabled", true)
	v.SetDefault("health.port", 8081)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Gateway.URL == "" {
		return fmt.Errorf("gateway.url is required")
	}
	if !common.IsHexAddress(c.ChatBot.ContractAddress) {
		return fmt.Errorf("invalid chatbot.contract_address: %q", c.ChatBot.ContractAddress)
	}
	if c.ChatBot.ClearGasLimit == 0 {
		return fmt.Errorf("chatbot.clear_gas_limit must be positive")
	}
	if c.ChatBot.ConfirmationPollInterval <= 0 {
		return fmt.Errorf("chatbot.confirmation_poll_interval must be positive")
	}
	if c.Network.DefaultChainID == 0 {
		return fmt.Errorf("network.default_chain_id is required")
	}
	return nil
}

// LedgerEndpoint returns the JSON-RPC URL the ledger client dials through
// the gateway.
func (c *GatewayConfig) LedgerEndpoint() string {
	if c.EndpointURL != "" {
		return c.EndpointURL
	}
	return strings.TrimSuffix(c.URL, "/") + "/rpc"
}
