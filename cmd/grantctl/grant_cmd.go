package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strings"

	"grantchain/crypto"
	"grantchain/native/grant"
)

func runGrantCommand(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, grantUsage())
		return 1
	}
	switch args[0] {
	case "create":
		return runGrantCreate(args[1:], stdout, stderr)
	case "get":
		return runGrantGet(args[1:], stdout, stderr)
	case "fund":
		return runGrantFund(args[1:], stdout, stderr)
	case "pause":
		return runGrantSetPaused(args[1:], stdout, stderr, true)
	case "resume":
		return runGrantSetPaused(args[1:], stdout, stderr, false)
	case "set-root":
		return runGrantSetRoot(args[1:], stdout, stderr)
	case "close":
		return runGrantClose(args[1:], stdout, stderr)
	case "configure-signer":
		return runGrantConfigureSigner(args[1:], stdout, stderr)
	default:
		fmt.Fprintf(stderr, "Unknown grant subcommand: %s\n", args[0])
		fmt.Fprintln(stderr, grantUsage())
		return 1
	}
}

func grantUsage() string {
	return strings.Join([]string{
		"Usage: grantctl grant <subcommand>",
		"  create --authority A --token T --id N --amount N --period SECS [--start TS] [--expires TS]",
		"  get --grant KEY",
		"  fund --grant KEY --funder A --amount N",
		"  pause --grant KEY --authority A",
		"  resume --grant KEY --authority A",
		"  set-root --grant KEY --authority A --root HEX",
		"  close --grant KEY --authority A",
		"  configure-signer --authority A --signer PUBKEY",
	}, "\n")
}

func parseAddressFlag(stderr io.Writer, name, value string) (string, bool) {
	if value == "" {
		printCommandError(stderr, fmt.Sprintf("--%s is required", name))
		return "", false
	}
	addr, err := crypto.ParseAddress(value)
	if err != nil {
		printCommandError(stderr, fmt.Sprintf("--%s: %v", name, err))
		return "", false
	}
	raw := addr.Bytes()
	return hex.EncodeToString(raw[:]), true
}

func runGrantCreate(args []string, stdout, stderr io.Writer) int {
	fs := newCommandFlagSet("grant create", stderr)
	var (
		authority string
		token     string
		id        uint64
		amount    uint64
		period    int64
		start     int64
		expires   int64
	)
	fs.StringVar(&authority, "authority", "", "grant authority address")
	fs.StringVar(&token, "token", "", "token symbol")
	fs.Uint64Var(&id, "id", 0, "grant identifier")
	fs.Uint64Var(&amount, "amount", 0, "amount per period in base units")
	fs.Int64Var(&period, "period", grant.DefaultMonthSeconds, "period length in seconds")
	fs.Int64Var(&start, "start", 0, "start timestamp (default: now)")
	fs.Int64Var(&expires, "expires", 0, "expiry timestamp (0 = no expiry)")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	authorityHex, ok := parseAddressFlag(stderr, "authority", authority)
	if !ok {
		return 1
	}
	if token == "" {
		return printCommandError(stderr, "--token is required")
	}
	if amount == 0 {
		return printCommandError(stderr, "--amount must be positive")
	}
	if start == 0 {
		start = grantctlNow().Unix()
	}

	result, err := gatewayCall(http.MethodPost, "/v1/grants", map[string]any{
		"authority":       authorityHex,
		"token":           token,
		"grantId":         id,
		"amountPerPeriod": amount,
		"periodSeconds":   period,
		"startTs":         start,
		"expiresAt":       expires,
	})
	if err != nil {
		return printCommandError(stderr, err.Error())
	}
	writeResult(stdout, result)
	return 0
}

func runGrantGet(args []string, stdout, stderr io.Writer) int {
	fs := newCommandFlagSet("grant get", stderr)
	var grantKey string
	fs.StringVar(&grantKey, "grant", "", "grant key (hex)")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if grantKey == "" {
		return printCommandError(stderr, "--grant is required")
	}

	result, err := gatewayCall(http.MethodGet, "/v1/grants/"+grantKey, nil)
	if err != nil {
		return printCommandError(stderr, err.Error())
	}
	writeResult(stdout, result)
	return 0
}

func runGrantFund(args []string, stdout, stderr io.Writer) int {
	fs := newCommandFlagSet("grant fund", stderr)
	var (
		grantKey string
		funder   string
		amount   uint64
	)
	fs.StringVar(&grantKey, "grant", "", "grant key (hex)")
	fs.StringVar(&funder, "funder", "", "funder address")
	fs.Uint64Var(&amount, "amount", 0, "amount in base units")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if grantKey == "" {
		return printCommandError(stderr, "--grant is required")
	}
	funderHex, ok := parseAddressFlag(stderr, "funder", funder)
	if !ok {
		return 1
	}
	if amount == 0 {
		return printCommandError(stderr, "--amount must be positive")
	}

	result, err := gatewayCall(http.MethodPost, "/v1/grants/"+grantKey+"/fund", map[string]any{
		"funder": funderHex,
		"amount": amount,
	})
	if err != nil {
		return printCommandError(stderr, err.Error())
	}
	writeResult(stdout, result)
	return 0
}

func runGrantSetPaused(args []string, stdout, stderr io.Writer, paused bool) int {
	name := "grant resume"
	if paused {
		name = "grant pause"
	}
	fs := newCommandFlagSet(name, stderr)
	var (
		grantKey  string
		authority string
	)
	fs.StringVar(&grantKey, "grant", "", "grant key (hex)")
	fs.StringVar(&authority, "authority", "", "grant authority address")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if grantKey == "" {
		return printCommandError(stderr, "--grant is required")
	}
	authorityHex, ok := parseAddressFlag(stderr, "authority", authority)
	if !ok {
		return 1
	}

	result, err := gatewayCall(http.MethodPost, "/v1/grants/"+grantKey+"/pause", map[string]any{
		"authority": authorityHex,
		"paused":    paused,
	})
	if err != nil {
		return printCommandError(stderr, err.Error())
	}
	writeResult(stdout, result)
	return 0
}

func runGrantSetRoot(args []string, stdout, stderr io.Writer) int {
	fs := newCommandFlagSet("grant set-root", stderr)
	var (
		grantKey  string
		authority string
		root      string
	)
	fs.StringVar(&grantKey, "grant", "", "grant key (hex)")
	fs.StringVar(&authority, "authority", "", "grant authority address")
	fs.StringVar(&root, "root", "", "allowlist merkle root (hex, all zeroes disables)")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if grantKey == "" {
		return printCommandError(stderr, "--grant is required")
	}
	authorityHex, ok := parseAddressFlag(stderr, "authority", authority)
	if !ok {
		return 1
	}
	if root == "" {
		return printCommandError(stderr, "--root is required")
	}

	result, err := gatewayCall(http.MethodPost, "/v1/grants/"+grantKey+"/allowlist-root", map[string]any{
		"authority": authorityHex,
		"root":      root,
	})
	if err != nil {
		return printCommandError(stderr, err.Error())
	}
	writeResult(stdout, result)
	return 0
}

func runGrantClose(args []string, stdout, stderr io.Writer) int {
	fs := newCommandFlagSet("grant close", stderr)
	var (
		grantKey  string
		authority string
	)
	fs.StringVar(&grantKey, "grant", "", "grant key (hex)")
	fs.StringVar(&authority, "authority", "", "grant authority address")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if grantKey == "" {
		return printCommandError(stderr, "--grant is required")
	}
	authorityHex, ok := parseAddressFlag(stderr, "authority", authority)
	if !ok {
		return 1
	}

	result, err := gatewayCall(http.MethodPost, "/v1/grants/"+grantKey+"/close", map[string]any{
		"authority": authorityHex,
	})
	if err != nil {
		return printCommandError(stderr, err.Error())
	}
	writeResult(stdout, result)
	return 0
}

func runGrantConfigureSigner(args []string, stdout, stderr io.Writer) int {
	fs := newCommandFlagSet("grant configure-signer", stderr)
	var (
		authority string
		signer    string
	)
	fs.StringVar(&authority, "authority", "", "grant authority address")
	fs.StringVar(&signer, "signer", "", "trusted proof signer public key")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	authorityHex, ok := parseAddressFlag(stderr, "authority", authority)
	if !ok {
		return 1
	}
	signerHex, ok := parseAddressFlag(stderr, "signer", signer)
	if !ok {
		return 1
	}

	result, err := gatewayCall(http.MethodPost, "/v1/pop-config", map[string]any{
		"authority": authorityHex,
		"signer":    signerHex,
	})
	if err != nil {
		return printCommandError(stderr, err.Error())
	}
	writeResult(stdout, result)
	return 0
}
