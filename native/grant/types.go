package grant

import (
	"crypto/sha256"
	"encoding/binary"
	"strings"
)

// DefaultMonthSeconds is the recommended period length for monthly grants.
const DefaultMonthSeconds int64 = 2_592_000 // 30 days

// maxStartLead bounds how far in the future a grant may be scheduled to
// start. Anything further out is almost certainly an operator mistake.
const maxStartLead int64 = 365 * 24 * 60 * 60

var zeroHash [32]byte

// Grant captures the configuration of a recurring distribution campaign. The
// authority, token and grant id are fixed at creation; admin operations only
// touch the paused flag and the allowlist root.
type Grant struct {
	Authority [32]byte
	Token     string
	Vault     [32]byte
	GrantID   uint64

	AmountPerPeriod uint64
	PeriodSeconds   int64
	StartTs         int64
	ExpiresAt       int64 // 0 = no expiry

	// MerkleRoot gates claimers when non-zero. All zeroes disables the
	// allowlist.
	MerkleRoot [32]byte

	Paused bool
}

// Key returns the deterministic storage identity of the grant.
func (g *Grant) Key() [32]byte {
	return GrantKey(g.Authority, g.Token, g.GrantID)
}

// Clone returns a copy the caller can mutate without affecting the stored
// instance.
func (g *Grant) Clone() *Grant {
	if g == nil {
		return nil
	}
	clone := *g
	return &clone
}

// AllowlistEnabled reports whether claims must carry a membership proof.
func (g *Grant) AllowlistEnabled() bool {
	return g.MerkleRoot != zeroHash
}

// ClaimReceipt proves a single period's withdrawal. Exactly one receipt may
// exist per (grant, claimer, period); the storage key is derived from that
// triple so a duplicate claim fails on insert.
type ClaimReceipt struct {
	Grant       [32]byte
	Claimer     [32]byte
	PeriodIndex uint64
	ClaimedAt   int64
}

// Key returns the deterministic storage identity of the receipt.
func (r *ClaimReceipt) Key() [32]byte {
	return ReceiptKey(r.Grant, r.Claimer, r.PeriodIndex)
}

// PopConfig registers the trusted proof-of-process signer for an authority.
type PopConfig struct {
	Authority [32]byte
	Signer    [32]byte
}

// PopState is the per-grant rolling proof-of-process verification state. Once
// initialised both strands must always equal the entry hash of the most
// recently accepted proof message.
type PopState struct {
	Grant           [32]byte
	LastGlobalHash  [32]byte
	LastStreamHash  [32]byte
	LastPeriodIndex uint64
	LastIssuedAt    int64
	Initialized     bool
}

// Clone returns a copy of the pop state.
func (s *PopState) Clone() *PopState {
	if s == nil {
		return nil
	}
	clone := *s
	return &clone
}

// NormalizeToken canonicalises a token symbol. Symbols are uppercase and must
// be non-empty.
func NormalizeToken(symbol string) (string, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(symbol))
	if trimmed == "" {
		return "", ErrTokenMismatch
	}
	return trimmed, nil
}

// --- Deterministic address derivation ---
//
// Storage identities mirror the seed scheme of the original deployment: a
// domain-separated sha256 over the record's identifying fields. Uniqueness
// constraints (one receipt per period, one pop state per grant) fall out of
// the derivation.

func deriveKey(domain string, seeds ...[]byte) [32]byte {
	h := sha256.New()
	h.Write([]byte(domain))
	for _, seed := range seeds {
		h.Write(seed)
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// GrantKey derives the storage identity of a grant from its immutable fields.
func GrantKey(authority [32]byte, token string, grantID uint64) [32]byte {
	var idBytes [8]byte
	binary.LittleEndian.PutUint64(idBytes[:], grantID)
	return deriveKey("we-ne:grant", authority[:], []byte(token), idBytes[:])
}

// VaultAddress derives the ledger address holding a grant's funds.
func VaultAddress(grantKey [32]byte) [32]byte {
	return deriveKey("we-ne:vault", grantKey[:])
}

// ReceiptKey derives the unique storage identity of a claim receipt.
func ReceiptKey(grantKey, claimer [32]byte, periodIndex uint64) [32]byte {
	var idxBytes [8]byte
	binary.LittleEndian.PutUint64(idxBytes[:], periodIndex)
	return deriveKey("we-ne:receipt", grantKey[:], claimer[:], idxBytes[:])
}
