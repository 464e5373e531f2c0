package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/JeremyLWright/uplink/statestore"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show stored chain state",
	Long: `Display the stored block height and world snapshot version.

Example:
  uplink status`,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	blocks, err := openBlockStore(cfg)
	if err != nil {
		return fmt.Errorf("opening block store: %w", err)
	}
	defer blocks.Close()

	store, err := statestore.NewIAVLStore(filepath.Join(cfg.Storage.DBPath, "state"), cfg.Storage.CacheSize)
	if err != nil {
		return fmt.Errorf("opening state store: %w", err)
	}
	defer store.Close()

	fmt.Printf("Chain ID:        %s\n", cfg.Node.ChainID)
	fmt.Printf("Block height:    %d\n", blocks.Height())
	fmt.Printf("Block base:      %d\n", blocks.Base())
	fmt.Printf("World version:   %d\n", store.Version())
	fmt.Printf("World root hash: %x\n", store.RootHash())
	return nil
}
