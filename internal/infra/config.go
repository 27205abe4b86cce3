package infra

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds all node and client settings. LoadConfig reads the YAML
// file first, then lets environment variables override individual values.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Node struct {
		ListenAddr   string `yaml:"listen_addr"`
		ContractName string `yaml:"contract_name"`
		InboxSize    int    `yaml:"inbox_size"`
		SnapshotKeep int    `yaml:"snapshot_keep"`
	} `yaml:"node"`

	Client struct {
		NodeURL  string `yaml:"node_url"`
		Identity string `yaml:"identity"`
	} `yaml:"client"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// DefaultConfig returns a config usable without any file on disk.
func DefaultConfig() *Config {
	var cfg Config
	cfg.App.Name = AppName
	cfg.Node.ListenAddr = ":8080"
	cfg.Node.ContractName = "orderbook"
	cfg.Node.InboxSize = 256
	cfg.Node.SnapshotKeep = 3
	cfg.Client.NodeURL = "http://localhost:8080"
	cfg.Logging.Level = "info"
	return &cfg
}

// LoadConfig reads and parses the config file. A missing file is not an
// error: defaults plus environment overrides are enough to run a node.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	overrideWithEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks configuration validity.
func (c *Config) Validate() error {
	if c.Node.ListenAddr == "" {
		return fmt.Errorf("node listen address is required")
	}
	if c.Node.ContractName == "" {
		return fmt.Errorf("contract name is required")
	}
	if c.Node.InboxSize <= 0 {
		return fmt.Errorf("inbox size must be positive")
	}
	if c.Node.SnapshotKeep <= 0 {
		return fmt.Errorf("snapshot keep count must be positive")
	}
	return nil
}

// overrideWithEnv applies environment variables over file values.
// Environment takes precedence so deployments never have to edit the file.
func overrideWithEnv(cfg *Config) {
	if addr := os.Getenv("ORDERBOOK_LISTEN_ADDR"); addr != "" {
		cfg.Node.ListenAddr = addr
	}
	if name := os.Getenv("ORDERBOOK_CONTRACT_NAME"); name != "" {
		cfg.Node.ContractName = name
	}
	if url := os.Getenv("ORDERBOOK_NODE_URL"); url != "" {
		cfg.Client.NodeURL = url
	}
	if id := os.Getenv("ORDERBOOK_IDENTITY"); id != "" {
		cfg.Client.Identity = id
	}
	if level := os.Getenv("ORDERBOOK_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
}
