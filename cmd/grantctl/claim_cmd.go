package main

import (
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"strings"

	"grantchain/crypto"
	"grantchain/native/grant"
)

func runClaimCommand(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] != "submit" {
		fmt.Fprintln(stderr, "Usage: grantctl claim submit --grant KEY --claimer A --key-file FILE [--period N] [--audit HEX] [--proof H1,H2,...]")
		return 1
	}
	return runClaimSubmit(args[1:], stdout, stderr)
}

// grantStatus mirrors the fields of the gateway's grant response the claim
// builder needs.
type grantStatus struct {
	StartTs       int64 `json:"startTs"`
	PeriodSeconds int64 `json:"periodSeconds"`
	ExpiresAt     int64 `json:"expiresAt"`
	PopState      *struct {
		LastGlobalHash string `json:"lastGlobalHash"`
		LastStreamHash string `json:"lastStreamHash"`
	} `json:"popState"`
}

func runClaimSubmit(args []string, stdout, stderr io.Writer) int {
	fs := newCommandFlagSet("claim submit", stderr)
	var (
		grantKey string
		claimer  string
		keyFile  string
		period   int64
		audit    string
		proofCSV string
	)
	fs.StringVar(&grantKey, "grant", "", "grant key (hex)")
	fs.StringVar(&claimer, "claimer", "", "claimer address")
	fs.StringVar(&keyFile, "key-file", "", "proof signer key file")
	fs.Int64Var(&period, "period", -1, "period index (default: current)")
	fs.StringVar(&audit, "audit", "", "optional audit hash (hex); selects the v2 message format")
	fs.StringVar(&proofCSV, "proof", "", "comma-separated allowlist proof elements (hex); pass even when empty for a single-member allowlist")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	proofSet := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "proof" {
			proofSet = true
		}
	})
	if grantKey == "" {
		return printCommandError(stderr, "--grant is required")
	}
	if keyFile == "" {
		return printCommandError(stderr, "--key-file is required")
	}
	claimerHex, ok := parseAddressFlag(stderr, "claimer", claimer)
	if !ok {
		return 1
	}

	key, err := crypto.LoadSignerKey(keyFile)
	if err != nil {
		return printCommandError(stderr, fmt.Sprintf("load signer key: %v", err))
	}

	statusRaw, err := gatewayCall(http.MethodGet, "/v1/grants/"+grantKey, nil)
	if err != nil {
		return printCommandError(stderr, err.Error())
	}
	var status grantStatus
	if err := json.Unmarshal(statusRaw, &status); err != nil {
		return printCommandError(stderr, fmt.Sprintf("decode grant status: %v", err))
	}

	now := grantctlNow().Unix()
	if period < 0 {
		if status.PeriodSeconds <= 0 || now < status.StartTs {
			return printCommandError(stderr, "grant has not started; pass --period explicitly")
		}
		period = (now - status.StartTs) / status.PeriodSeconds
	}

	msg := &grant.PopMessage{
		Version:     grant.PopMessageVersionV1,
		PeriodIndex: uint64(period),
		IssuedAt:    now,
	}
	grantBytes, err := hex.DecodeString(strings.TrimPrefix(grantKey, "0x"))
	if err != nil || len(grantBytes) != 32 {
		return printCommandError(stderr, "--grant must be a 32-byte hex key")
	}
	copy(msg.Grant[:], grantBytes)
	claimerBytes, _ := hex.DecodeString(claimerHex)
	copy(msg.Claimer[:], claimerBytes)

	if audit != "" {
		auditBytes, err := hex.DecodeString(strings.TrimPrefix(audit, "0x"))
		if err != nil || len(auditBytes) != 32 {
			return printCommandError(stderr, "--audit must be a 32-byte hex value")
		}
		msg.Version = grant.PopMessageVersionV2
		copy(msg.AuditHash[:], auditBytes)
	}

	if status.PopState != nil {
		if err := decodeHash32(status.PopState.LastGlobalHash, &msg.PrevHash); err != nil {
			return printCommandError(stderr, fmt.Sprintf("grant status: %v", err))
		}
		if err := decodeHash32(status.PopState.LastStreamHash, &msg.StreamPrevHash); err != nil {
			return printCommandError(stderr, fmt.Sprintf("grant status: %v", err))
		}
	}

	entry, err := grant.ComputeEntryHash(msg)
	if err != nil {
		return printCommandError(stderr, fmt.Sprintf("compute entry hash: %v", err))
	}
	msg.EntryHash = entry
	encoded, err := grant.EncodePopMessage(msg)
	if err != nil {
		return printCommandError(stderr, fmt.Sprintf("encode proof message: %v", err))
	}
	signature := key.Sign(encoded)
	pub := key.PubKey()

	payload := map[string]any{
		"claimer":         claimerHex,
		"periodIndex":     uint64(period),
		"signerPublicKey": hex.EncodeToString(pub[:]),
		"signature":       hex.EncodeToString(signature[:]),
		"message":         hex.EncodeToString(encoded),
	}
	if proofSet {
		proof := []string{}
		if proofCSV != "" {
			for _, element := range strings.Split(proofCSV, ",") {
				proof = append(proof, strings.TrimSpace(element))
			}
		}
		payload["proof"] = proof
	}

	result, err := gatewayCall(http.MethodPost, "/v1/grants/"+grantKey+"/claims", payload)
	if err != nil {
		return printCommandError(stderr, err.Error())
	}
	writeResult(stdout, result)
	return 0
}

func decodeHash32(raw string, out *[32]byte) error {
	data, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(raw), "0x"))
	if err != nil {
		return fmt.Errorf("invalid hash %q", raw)
	}
	if len(data) != 32 {
		return fmt.Errorf("hash must be 32 bytes, got %d", len(data))
	}
	copy(out[:], data)
	return nil
}
