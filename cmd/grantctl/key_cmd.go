package main

import (
	"encoding/hex"
	"fmt"
	"io"

	"grantchain/crypto"
)

func runKeyCommand(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, "Usage: grantctl key generate [file] | show <file>")
		return 1
	}
	switch args[0] {
	case "generate":
		path := "signer.key"
		if len(args) > 1 {
			path = args[1]
		}
		key, err := crypto.GenerateSignerKey()
		if err != nil {
			return printCommandError(stderr, fmt.Sprintf("generate key: %v", err))
		}
		if err := crypto.SaveSignerKey(path, key); err != nil {
			return printCommandError(stderr, fmt.Sprintf("save key to %s: %v", path, err))
		}
		pub := key.PubKey()
		fmt.Fprintf(stdout, "Generated new signer key and saved to %s\n", path)
		fmt.Fprintf(stdout, "Address:    %s\n", key.Address())
		fmt.Fprintf(stdout, "Public key: %s\n", hex.EncodeToString(pub[:]))
		fmt.Fprintln(stdout, "Store this file securely; it cannot be recovered.")
		return 0
	case "show":
		if len(args) < 2 {
			return printCommandError(stderr, "key show requires a file argument")
		}
		key, err := crypto.LoadSignerKey(args[1])
		if err != nil {
			return printCommandError(stderr, fmt.Sprintf("load key: %v", err))
		}
		pub := key.PubKey()
		fmt.Fprintf(stdout, "Address:    %s\n", key.Address())
		fmt.Fprintf(stdout, "Public key: %s\n", hex.EncodeToString(pub[:]))
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown key subcommand: %s\n", args[0])
		return 1
	}
}
