package main

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"grantchain/crypto"
	"grantchain/native/grant"
)

func runAllowlistCommand(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, "Usage: grantctl allowlist root <file> | proof <file> <member>")
		return 1
	}
	switch args[0] {
	case "root":
		if len(args) < 2 {
			return printCommandError(stderr, "allowlist root requires a member file")
		}
		tree, code := loadAllowlistTree(args[1], stderr)
		if code != 0 {
			return code
		}
		root := tree.Root()
		fmt.Fprintf(stdout, "%s\n", hex.EncodeToString(root[:]))
		return 0
	case "proof":
		if len(args) < 3 {
			return printCommandError(stderr, "allowlist proof requires a member file and a member address")
		}
		tree, code := loadAllowlistTree(args[1], stderr)
		if code != 0 {
			return code
		}
		member, err := crypto.ParseAddress(args[2])
		if err != nil {
			return printCommandError(stderr, err.Error())
		}
		proof, ok := tree.Proof(member.Bytes())
		if !ok {
			return printCommandError(stderr, fmt.Sprintf("%s is not in the allowlist", args[2]))
		}
		elements := make([]string, 0, len(proof))
		for _, element := range proof {
			elements = append(elements, hex.EncodeToString(element[:]))
		}
		fmt.Fprintf(stdout, "%s\n", strings.Join(elements, ","))
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown allowlist subcommand: %s\n", args[0])
		return 1
	}
}

// loadAllowlistTree reads one address per line, blank lines and #-comments
// ignored, and builds the allowlist tree.
func loadAllowlistTree(path string, stderr io.Writer) (*grant.AllowlistTree, int) {
	file, err := os.Open(path)
	if err != nil {
		return nil, printCommandError(stderr, fmt.Sprintf("open member file: %v", err))
	}
	defer file.Close()

	var members [][32]byte
	scanner := bufio.NewScanner(file)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		addr, err := crypto.ParseAddress(text)
		if err != nil {
			return nil, printCommandError(stderr, fmt.Sprintf("%s:%d: %v", path, line, err))
		}
		members = append(members, addr.Bytes())
	}
	if err := scanner.Err(); err != nil {
		return nil, printCommandError(stderr, fmt.Sprintf("read member file: %v", err))
	}
	if len(members) == 0 {
		return nil, printCommandError(stderr, "member file is empty")
	}
	return grant.BuildAllowlistTree(members), 0
}
