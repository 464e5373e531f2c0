package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/JeremyLWright/uplink/config"
	"github.com/JeremyLWright/uplink/keys"
)

var (
	initChainID  string
	initDataDir  string
	initOverride bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new node",
	Long: `Initialize a new Uplink node with configuration files and keys.

This command creates:
  - config.toml: Node configuration
  - node_key.json: Node signing key
  - data/: Data directory for blocks and world snapshots

Example:
  uplink init --chain-id mychain`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().StringVar(&initChainID, "chain-id", "uplink-testnet-1", "chain ID for the network")
	initCmd.Flags().StringVar(&initDataDir, "data-dir", ".", "directory for configuration and data")
	initCmd.Flags().BoolVar(&initOverride, "force", false, "override existing configuration")
}

func runInit(cmd *cobra.Command, args []string) error {
	dataDir := initDataDir
	if dataDir == "" {
		dataDir = "."
	}

	configPath := filepath.Join(dataDir, "config.toml")
	if _, err := os.Stat(configPath); err == nil && !initOverride {
		return fmt.Errorf("config.toml already exists; use --force to override")
	}

	cfg := config.DefaultConfig()
	cfg.Node.ChainID = initChainID
	cfg.Node.PrivateKeyPath = filepath.Join(dataDir, "node_key.json")
	cfg.Storage.DBPath = filepath.Join(dataDir, "data")

	dirs := []string{
		dataDir,
		filepath.Join(dataDir, "data"),
		filepath.Join(dataDir, "data", "blocks"),
		filepath.Join(dataDir, "data", "state"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	keyPath := cfg.Node.PrivateKeyPath
	if _, err := os.Stat(keyPath); os.IsNotExist(err) || initOverride {
		addr, err := generateNodeKey(keyPath)
		if err != nil {
			return fmt.Errorf("generating node key: %w", err)
		}
		fmt.Printf("Generated node key: %s\n", keyPath)
		fmt.Printf("Account address:    %s\n", addr)
	}

	if err := cfg.Save(configPath); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	fmt.Printf("Initialized Uplink node\n")
	fmt.Printf("  Chain ID:    %s\n", initChainID)
	fmt.Printf("  Config:      %s\n", configPath)
	fmt.Printf("  Data dir:    %s\n", filepath.Join(dataDir, "data"))

	return nil
}

// NodeKey is the on-disk keypair format.
type NodeKey struct {
	PrivKey string `json:"priv_key"`
	PubKey  string `json:"pub_key"`
}

// generateNodeKey generates a new secp256k1 keypair and saves it.
// Returns the derived account address.
func generateNodeKey(path string) (string, error) {
	priv, err := keys.GeneratePrivateKey()
	if err != nil {
		return "", fmt.Errorf("generating key: %w", err)
	}

	key := NodeKey{
		PrivKey: hex.EncodeToString(priv.Serialize()),
		PubKey:  hex.EncodeToString(keys.EncodePubKey(priv.PubKey())),
	}
	data, err := json.MarshalIndent(key, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling key: %w", err)
	}

	// Write with restricted permissions
	if err := os.WriteFile(path, append(data, '\n'), 0o600); err != nil {
		return "", fmt.Errorf("writing key file: %w", err)
	}
	return keys.AddressFromPubKey(priv.PubKey()).String(), nil
}

// loadNodeKey reads a keypair from disk.
func loadNodeKey(path string) (*keys.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading key file: %w", err)
	}
	var key NodeKey
	if err := json.Unmarshal(data, &key); err != nil {
		return nil, fmt.Errorf("parsing key file: %w", err)
	}
	privBytes, err := hex.DecodeString(key.PrivKey)
	if err != nil {
		return nil, fmt.Errorf("decoding private key: %w", err)
	}
	return keys.PrivateKeyFromBytes(privBytes), nil
}
