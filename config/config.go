// Package config loads and validates node configuration for the uplink
// validation core.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the main configuration for an uplink node.
type Config struct {
	Node    NodeConfig    `toml:"node"`
	Storage StorageConfig `toml:"storage"`
	Network NetworkConfig `toml:"network"`
	RPC     RPCConfig     `toml:"rpc"`
	Metrics MetricsConfig `toml:"metrics"`
	Logging LoggingConfig `toml:"logging"`
}

// NodeConfig contains node identity and chain configuration.
type NodeConfig struct {
	// ChainID is the unique identifier for the ledger network.
	ChainID string `toml:"chain_id"`

	// PrivateKeyPath is the path to the node's secp256k1 private key file.
	PrivateKeyPath string `toml:"private_key_path"`

	// Timezone is the node operator's IANA timezone, used when creating
	// the node's own account.
	Timezone string `toml:"timezone"`
}

// StorageConfig contains ledger storage configuration.
type StorageConfig struct {
	// DBPath is the directory for the block database and world snapshots.
	DBPath string `toml:"dbpath"`

	// Backend is the block storage backend ("leveldb" or "badgerdb").
	Backend string `toml:"backend"`

	// CacheSize is the world snapshot tree node cache size.
	CacheSize int `toml:"cache_size"`

	// BlockSize is the maximum number of transactions per block.
	BlockSize int `toml:"block_size"`
}

// NetworkConfig contains the peer networking configuration consumed by
// the external networking component.
type NetworkConfig struct {
	// Host is the address to bind.
	Host string `toml:"host"`

	// Port is the peer listen port.
	Port int `toml:"port"`

	// Bootnodes are peers to dial at startup.
	Bootnodes []string `toml:"bootnodes"`

	// MaxPeers is the connection limit.
	MaxPeers int `toml:"max_peers"`
}

// RPCConfig contains the RPC server configuration consumed by the
// external RPC component.
type RPCConfig struct {
	// Port is the RPC listen port.
	Port int `toml:"port"`

	// ReadTimeout bounds request reads.
	ReadTimeout Duration `toml:"read_timeout"`

	// TLS enables TLS on the RPC listener.
	TLS bool `toml:"tls"`
}

// MetricsConfig contains metrics configuration.
type MetricsConfig struct {
	// Enabled determines whether metrics collection is active.
	Enabled bool `toml:"enabled"`

	// Namespace is the Prometheus metrics namespace prefix.
	Namespace string `toml:"namespace"`

	// ListenAddr is the address to serve metrics on (e.g., ":9090").
	ListenAddr string `toml:"listen_addr"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level ("debug", "info", "warn", "error").
	Level string `toml:"level"`

	// Format is the log output format ("text" or "json").
	Format string `toml:"format"`

	// Output is the log output destination ("stdout", "stderr", or a file path).
	Output string `toml:"output"`
}

// Duration is a wrapper around time.Duration for TOML unmarshaling.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for Duration.
func (d *Duration) UnmarshalText(text []byte) error {
	duration, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(duration)
	return nil
}

// MarshalText implements encoding.TextMarshaler for Duration.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Node: NodeConfig{
			ChainID:        "uplink-testnet-1",
			PrivateKeyPath: "node_key.json",
			Timezone:       "UTC",
		},
		Storage: StorageConfig{
			DBPath:    "data",
			Backend:   "leveldb",
			CacheSize: 10000,
			BlockSize: 100,
		},
		Network: NetworkConfig{
			Host:     "0.0.0.0",
			Port:     8001,
			MaxPeers: 50,
		},
		RPC: RPCConfig{
			Port:        8545,
			ReadTimeout: Duration(10 * time.Second),
			TLS:         false,
		},
		Metrics: MetricsConfig{
			Enabled:    false,
			Namespace:  "uplink",
			ListenAddr: ":9090",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// LoadConfig loads configuration from a TOML file.
// Missing values are filled with defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to a TOML file.
func (c *Config) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return nil
}

// Validation errors.
var (
	ErrEmptyChainID           = errors.New("chain_id cannot be empty")
	ErrEmptyPrivateKeyPath    = errors.New("private_key_path cannot be empty")
	ErrEmptyDBPath            = errors.New("storage dbpath cannot be empty")
	ErrInvalidStorageBackend  = errors.New("storage backend must be 'leveldb' or 'badgerdb'")
	ErrInvalidCacheSize       = errors.New("storage cache_size must be non-negative")
	ErrInvalidBlockSize       = errors.New("storage block_size must be positive")
	ErrInvalidNetworkPort     = errors.New("network port must be in 1..65535")
	ErrInvalidMaxPeers        = errors.New("network max_peers must be non-negative")
	ErrInvalidRPCPort         = errors.New("rpc port must be in 1..65535")
	ErrInvalidRPCReadTimeout  = errors.New("rpc read_timeout must be positive")
	ErrEmptyMetricsNamespace  = errors.New("metrics namespace cannot be empty when enabled")
	ErrEmptyMetricsListenAddr = errors.New("metrics listen_addr cannot be empty when enabled")
	ErrInvalidLogLevel        = errors.New("log level must be one of: debug, info, warn, error")
	ErrInvalidLogFormat       = errors.New("log format must be 'text' or 'json'")
	ErrEmptyLogOutput         = errors.New("log output cannot be empty")
)

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if err := c.Node.Validate(); err != nil {
		return fmt.Errorf("node config: %w", err)
	}
	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("storage config: %w", err)
	}
	if err := c.Network.Validate(); err != nil {
		return fmt.Errorf("network config: %w", err)
	}
	if err := c.RPC.Validate(); err != nil {
		return fmt.Errorf("rpc config: %w", err)
	}
	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("metrics config: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}
	return nil
}

// Validate checks node configuration.
func (c *NodeConfig) Validate() error {
	if c.ChainID == "" {
		return ErrEmptyChainID
	}
	if c.PrivateKeyPath == "" {
		return ErrEmptyPrivateKeyPath
	}
	return nil
}

// Validate checks storage configuration.
func (c *StorageConfig) Validate() error {
	if c.DBPath == "" {
		return ErrEmptyDBPath
	}
	if c.Backend != "leveldb" && c.Backend != "badgerdb" {
		return ErrInvalidStorageBackend
	}
	if c.CacheSize < 0 {
		return ErrInvalidCacheSize
	}
	if c.BlockSize <= 0 {
		return ErrInvalidBlockSize
	}
	return nil
}

// Validate checks network configuration.
func (c *NetworkConfig) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return ErrInvalidNetworkPort
	}
	if c.MaxPeers < 0 {
		return ErrInvalidMaxPeers
	}
	return nil
}

// Validate checks RPC configuration.
func (c *RPCConfig) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return ErrInvalidRPCPort
	}
	if c.ReadTimeout.Duration() <= 0 {
		return ErrInvalidRPCReadTimeout
	}
	return nil
}

// Validate checks metrics configuration.
func (c *MetricsConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Namespace == "" {
		return ErrEmptyMetricsNamespace
	}
	if c.ListenAddr == "" {
		return ErrEmptyMetricsListenAddr
	}
	return nil
}

// Validate checks logging configuration.
func (c *LoggingConfig) Validate() error {
	switch c.Level {
	case "debug", "info", "warn", "error":
	default:
		return ErrInvalidLogLevel
	}
	switch c.Format {
	case "text", "json":
	default:
		return ErrInvalidLogFormat
	}
	if c.Output == "" {
		return ErrEmptyLogOutput
	}
	return nil
}
