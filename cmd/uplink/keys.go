package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/JeremyLWright/uplink/keys"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage account keys",
	Long:  `Commands for managing secp256k1 account keys.`,
}

var keysGenerateCmd = &cobra.Command{
	Use:   "generate [output-file]",
	Short: "Generate a new account key",
	Long: `Generate a new secp256k1 keypair.

If no output file is specified, the key is printed to stdout.

Example:
  uplink keys generate
  uplink keys generate node_key.json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runKeysGenerate,
}

var keysShowCmd = &cobra.Command{
	Use:   "show <key-file>",
	Short: "Show public key and address from a key file",
	Long: `Display the public key and derived account address from a key file.

Example:
  uplink keys show node_key.json`,
	Args: cobra.ExactArgs(1),
	RunE: runKeysShow,
}

func init() {
	keysCmd.AddCommand(keysGenerateCmd)
	keysCmd.AddCommand(keysShowCmd)
	rootCmd.AddCommand(keysCmd)
}

func runKeysGenerate(cmd *cobra.Command, args []string) error {
	priv, err := keys.GeneratePrivateKey()
	if err != nil {
		return fmt.Errorf("generating key: %w", err)
	}

	key := NodeKey{
		PrivKey: hex.EncodeToString(priv.Serialize()),
		PubKey:  hex.EncodeToString(keys.EncodePubKey(priv.PubKey())),
	}
	data, err := json.MarshalIndent(key, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling key: %w", err)
	}

	addr := keys.AddressFromPubKey(priv.PubKey())
	if len(args) == 0 {
		fmt.Println(string(data))
		fmt.Fprintf(cmd.ErrOrStderr(), "\nAddress: %s\n", addr)
	} else {
		outputPath := args[0]
		if err := os.WriteFile(outputPath, append(data, '\n'), 0o600); err != nil {
			return fmt.Errorf("writing key file: %w", err)
		}
		fmt.Printf("Generated key: %s\n", outputPath)
		fmt.Printf("Address: %s\n", addr)
	}

	return nil
}

func runKeysShow(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading key file: %w", err)
	}

	var key NodeKey
	if err := json.Unmarshal(data, &key); err != nil {
		return fmt.Errorf("parsing key file: %w", err)
	}

	pubBytes, err := hex.DecodeString(key.PubKey)
	if err != nil {
		return fmt.Errorf("decoding public key: %w", err)
	}
	pub, err := keys.DecodePubKey(pubBytes)
	if err != nil {
		return fmt.Errorf("invalid public key: %w", err)
	}

	fmt.Printf("Public Key: %s\n", key.PubKey)
	fmt.Printf("Address:    %s\n", keys.AddressFromPubKey(pub))

	return nil
}
