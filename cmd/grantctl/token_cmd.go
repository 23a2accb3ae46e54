package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"net/http"

	"grantchain/crypto"
)

func runTokenCommand(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, "Usage: grantctl token register|mint ...")
		return 1
	}
	switch args[0] {
	case "register":
		return runTokenRegister(args[1:], stdout, stderr)
	case "mint":
		return runTokenMint(args[1:], stdout, stderr)
	default:
		fmt.Fprintf(stderr, "Unknown token subcommand: %s\n", args[0])
		return 1
	}
}

func newCommandFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

func runTokenRegister(args []string, stdout, stderr io.Writer) int {
	fs := newCommandFlagSet("token register", stderr)
	var (
		symbol   string
		name     string
		decimals uint
	)
	fs.StringVar(&symbol, "symbol", "", "token symbol")
	fs.StringVar(&name, "name", "", "token display name")
	fs.UintVar(&decimals, "decimals", 0, "token decimal places")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if symbol == "" {
		return printCommandError(stderr, "--symbol is required")
	}
	if decimals > 18 {
		return printCommandError(stderr, "--decimals must be <= 18")
	}

	result, err := gatewayCall(http.MethodPost, "/v1/tokens", map[string]any{
		"symbol":   symbol,
		"name":     name,
		"decimals": decimals,
	})
	if err != nil {
		return printCommandError(stderr, err.Error())
	}
	writeResult(stdout, result)
	return 0
}

func runTokenMint(args []string, stdout, stderr io.Writer) int {
	fs := newCommandFlagSet("token mint", stderr)
	var (
		symbol  string
		address string
		amount  uint64
	)
	fs.StringVar(&symbol, "symbol", "", "token symbol")
	fs.StringVar(&address, "address", "", "recipient address (bech32 or hex)")
	fs.Uint64Var(&amount, "amount", 0, "amount in base units")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if symbol == "" {
		return printCommandError(stderr, "--symbol is required")
	}
	if address == "" {
		return printCommandError(stderr, "--address is required")
	}
	if amount == 0 {
		return printCommandError(stderr, "--amount must be positive")
	}
	addr, err := crypto.ParseAddress(address)
	if err != nil {
		return printCommandError(stderr, err.Error())
	}
	raw := addr.Bytes()

	result, err := gatewayCall(http.MethodPost, "/v1/tokens/"+symbol+"/mint", map[string]any{
		"address": hex.EncodeToString(raw[:]),
		"amount":  amount,
	})
	if err != nil {
		return printCommandError(stderr, err.Error())
	}
	writeResult(stdout, result)
	return 0
}
