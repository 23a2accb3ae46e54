package main

import (
	"fmt"
	"os"
	"strings"
)

var gatewayURL = defaultGatewayURL() // Defaults to localhost, can be overridden via GRANTCTL_GATEWAY or --gateway flag

func defaultGatewayURL() string {
	if url := strings.TrimSpace(os.Getenv("GRANTCTL_GATEWAY")); url != "" {
		return url
	}
	return "http://127.0.0.1:8080"
}

func main() {
	args := os.Args[1:]
	var err error
	gatewayURL = defaultGatewayURL()
	args, err = applyGlobalFlags(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if len(args) < 1 {
		printUsage()
		return
	}

	var code int
	switch args[0] {
	case "key":
		code = runKeyCommand(args[1:], os.Stdout, os.Stderr)
	case "token":
		code = runTokenCommand(args[1:], os.Stdout, os.Stderr)
	case "grant":
		code = runGrantCommand(args[1:], os.Stdout, os.Stderr)
	case "claim":
		code = runClaimCommand(args[1:], os.Stdout, os.Stderr)
	case "allowlist":
		code = runAllowlistCommand(args[1:], os.Stdout, os.Stderr)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
		printUsage()
		code = 1
	}
	if code != 0 {
		os.Exit(code)
	}
}

// applyGlobalFlags strips leading --gateway flags so subcommands only see
// their own arguments.
func applyGlobalFlags(args []string) ([]string, error) {
	for len(args) > 0 {
		switch {
		case args[0] == "--gateway":
			if len(args) < 2 {
				return nil, fmt.Errorf("--gateway requires a value")
			}
			gatewayURL = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--gateway="):
			gatewayURL = strings.TrimPrefix(args[0], "--gateway=")
			args = args[1:]
		default:
			return args, nil
		}
	}
	return args, nil
}

func printUsage() {
	fmt.Println("Usage: grantctl [--gateway URL] <command> [args]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  key generate [file]          Generate a proof signer key")
	fmt.Println("  key show <file>              Show the address of a signer key")
	fmt.Println("  token register ...           Register a token with the gateway")
	fmt.Println("  token mint ...               Mint tokens to an address")
	fmt.Println("  grant create|get|fund|pause|resume|close|set-root ...")
	fmt.Println("  claim submit ...             Sign and submit a period claim")
	fmt.Println("  allowlist root|proof ...     Build allowlist roots and proofs")
	fmt.Println()
	fmt.Println("The gateway URL defaults to http://127.0.0.1:8080 and can be set")
	fmt.Println("via GRANTCTL_GATEWAY. Authenticated commands read the shared API")
	fmt.Println("secret from GRANTCTL_API_SECRET.")
}
