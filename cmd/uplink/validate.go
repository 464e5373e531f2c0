package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/JeremyLWright/uplink/applier"
	"github.com/JeremyLWright/uplink/blockstore"
	"github.com/JeremyLWright/uplink/config"
	"github.com/JeremyLWright/uplink/fcl"
	"github.com/JeremyLWright/uplink/statestore"
	"github.com/JeremyLWright/uplink/types"
	"github.com/JeremyLWright/uplink/validation"
)

var validateCommit bool

var validateCmd = &cobra.Command{
	Use:   "validate <block-file>",
	Short: "Verify and validate a block against the stored world",
	Long: `Read a canonically encoded block from a file, verify its signatures
against the stored world state, apply its transactions, and report any
invalid transactions.

With --commit, the resulting world snapshot and the block are persisted.

Example:
  uplink validate block-0042.bin
  uplink validate --commit block-0042.bin`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().BoolVar(&validateCommit, "commit", false, "persist the block and resulting world snapshot")
}

// externalParser stands in for the FCL parser, which ships as a separate
// component. Contract deployments cannot be validated without it.
type externalParser struct{}

var errParserNotBundled = errors.New("FCL parser is not bundled with this binary")

func (externalParser) Parse(src []byte) (*fcl.Script, error) {
	return nil, errParserNotBundled
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := buildLogger(cfg)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading block file: %w", err)
	}
	block, err := types.DecodeBlock(data)
	if err != nil {
		return fmt.Errorf("decoding block: %w", err)
	}
	if err := types.ValidateHeight(block.Header.Index); err != nil {
		return fmt.Errorf("block header: %w", err)
	}

	store, err := statestore.NewIAVLStore(filepath.Join(cfg.Storage.DBPath, "state"), cfg.Storage.CacheSize)
	if err != nil {
		return fmt.Errorf("opening state store: %w", err)
	}
	worldStore := statestore.NewWorldStore(store)
	defer worldStore.Close()

	parser := externalParser{}
	w, err := worldStore.Load(parser)
	if err != nil {
		return fmt.Errorf("loading world snapshot: %w", err)
	}

	nodeKey, err := loadNodeKey(cfg.Node.PrivateKeyPath)
	if err != nil {
		return fmt.Errorf("loading node key: %w", err)
	}

	bctx := &applier.BlockContext{
		Block:      block,
		Validators: types.NewValidatorSet(block.ValidatorAddresses()),
		PrivKey:    nodeKey,
	}

	v := validation.New(applier.New(parser, log, nil), log, nil)
	res, err := v.Process(bctx, w)
	if err != nil && res == nil {
		// Verification failed; the block was never applied.
		return fmt.Errorf("block rejected: %w", err)
	}

	fmt.Printf("Block %d (%s)\n", block.Header.Index, block.Hash())
	fmt.Printf("  Transactions: %d\n", len(block.Transactions))
	fmt.Printf("  Invalid:      %d\n", len(res.Invalid))
	for _, invalid := range res.Invalid {
		fmt.Printf("    - %v\n", invalid)
	}
	for contract, deltas := range res.Deltas {
		fmt.Printf("  Deltas for %s:\n", types.Address(contract))
		for _, d := range deltas {
			fmt.Printf("    - %s\n", d)
		}
	}

	if !validateCommit {
		return nil
	}

	appHash, version, err := worldStore.Commit(res.World)
	if err != nil {
		return fmt.Errorf("committing world snapshot: %w", err)
	}

	blocks, err := openBlockStore(cfg)
	if err != nil {
		return err
	}
	defer blocks.Close()
	if err := blocks.SaveBlock(block.Header.Index.Int64(), block.Hash(), data); err != nil {
		return fmt.Errorf("persisting block: %w", err)
	}

	fmt.Printf("Committed world version %d (app hash %s)\n", version, appHash)
	return nil
}

func openBlockStore(cfg *config.Config) (blockstore.BlockStore, error) {
	path := filepath.Join(cfg.Storage.DBPath, "blocks")
	switch cfg.Storage.Backend {
	case "badgerdb":
		return blockstore.NewBadgerDBBlockStore(path)
	default:
		return blockstore.NewLevelDBBlockStore(path)
	}
}
