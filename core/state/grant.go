package state

import (
	"fmt"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"grantchain/native/grant"
	"grantchain/storage"
)

func grantStorageKey(id [32]byte) []byte {
	buf := make([]byte, len(grantRecordPrefix)+len(id))
	copy(buf, grantRecordPrefix)
	copy(buf[len(grantRecordPrefix):], id[:])
	return ethcrypto.Keccak256(buf)
}

func popStateStorageKey(id [32]byte) []byte {
	buf := make([]byte, len(grantPopStatePrefix)+len(id))
	copy(buf, grantPopStatePrefix)
	copy(buf[len(grantPopStatePrefix):], id[:])
	return ethcrypto.Keccak256(buf)
}

func receiptStorageKey(id [32]byte) []byte {
	buf := make([]byte, len(grantReceiptPrefix)+len(id))
	copy(buf, grantReceiptPrefix)
	copy(buf[len(grantReceiptPrefix):], id[:])
	return ethcrypto.Keccak256(buf)
}

func popConfigStorageKey(authority [32]byte) []byte {
	buf := make([]byte, len(grantPopConfPrefix)+len(authority))
	copy(buf, grantPopConfPrefix)
	copy(buf[len(grantPopConfPrefix):], authority[:])
	return ethcrypto.Keccak256(buf)
}

// RLP cannot encode signed integers, so stored records carry timestamps as
// big.Int the way the balance ledger does.
type storedGrant struct {
	Authority       [32]byte
	Token           string
	Vault           [32]byte
	GrantID         uint64
	AmountPerPeriod uint64
	PeriodSeconds   *big.Int
	StartTs         *big.Int
	ExpiresAt       *big.Int
	MerkleRoot      [32]byte
	Paused          bool
}

func newStoredGrant(g *grant.Grant) *storedGrant {
	return &storedGrant{
		Authority:       g.Authority,
		Token:           g.Token,
		Vault:           g.Vault,
		GrantID:         g.GrantID,
		AmountPerPeriod: g.AmountPerPeriod,
		PeriodSeconds:   big.NewInt(g.PeriodSeconds),
		StartTs:         big.NewInt(g.StartTs),
		ExpiresAt:       big.NewInt(g.ExpiresAt),
		MerkleRoot:      g.MerkleRoot,
		Paused:          g.Paused,
	}
}

func (s *storedGrant) toGrant() (*grant.Grant, error) {
	if s == nil {
		return nil, fmt.Errorf("state: nil grant record")
	}
	normalized, err := grant.NormalizeToken(s.Token)
	if err != nil {
		return nil, err
	}
	out := &grant.Grant{
		Authority:       s.Authority,
		Token:           normalized,
		Vault:           s.Vault,
		GrantID:         s.GrantID,
		AmountPerPeriod: s.AmountPerPeriod,
		MerkleRoot:      s.MerkleRoot,
		Paused:          s.Paused,
	}
	if s.PeriodSeconds != nil {
		out.PeriodSeconds = s.PeriodSeconds.Int64()
	}
	if s.StartTs != nil {
		out.StartTs = s.StartTs.Int64()
	}
	if s.ExpiresAt != nil {
		out.ExpiresAt = s.ExpiresAt.Int64()
	}
	return out, nil
}

// GrantPut stores a grant record under its deterministic key.
func (m *Manager) GrantPut(g *grant.Grant) error {
	if g == nil {
		return fmt.Errorf("state: nil grant")
	}
	encoded, err := rlp.EncodeToBytes(newStoredGrant(g))
	if err != nil {
		return fmt.Errorf("state: encode grant: %w", err)
	}
	return m.db.Put(grantStorageKey(g.Key()), encoded)
}

// GrantGet loads a grant record by its deterministic key.
func (m *Manager) GrantGet(key [32]byte) (*grant.Grant, bool, error) {
	data, err := m.db.Get(grantStorageKey(key))
	if err != nil {
		if err == storage.ErrNotFound {
			return nil, false, nil
		}
		return nil, false, err
	}
	var stored storedGrant
	if err := rlp.DecodeBytes(data, &stored); err != nil {
		return nil, false, fmt.Errorf("state: decode grant: %w", err)
	}
	g, err := stored.toGrant()
	if err != nil {
		return nil, false, err
	}
	return g, true, nil
}

// GrantDelete removes a grant record.
func (m *Manager) GrantDelete(key [32]byte) error {
	return m.db.Delete(grantStorageKey(key))
}

type storedPopState struct {
	Grant           [32]byte
	LastGlobalHash  [32]byte
	LastStreamHash  [32]byte
	LastPeriodIndex uint64
	LastIssuedAt    *big.Int
	Initialized     bool
}

// PopStatePut stores the rolling proof-of-process state for a grant.
func (m *Manager) PopStatePut(s *grant.PopState) error {
	if s == nil {
		return fmt.Errorf("state: nil pop state")
	}
	stored := &storedPopState{
		Grant:           s.Grant,
		LastGlobalHash:  s.LastGlobalHash,
		LastStreamHash:  s.LastStreamHash,
		LastPeriodIndex: s.LastPeriodIndex,
		LastIssuedAt:    big.NewInt(s.LastIssuedAt),
		Initialized:     s.Initialized,
	}
	encoded, err := rlp.EncodeToBytes(stored)
	if err != nil {
		return fmt.Errorf("state: encode pop state: %w", err)
	}
	return m.db.Put(popStateStorageKey(s.Grant), encoded)
}

// PopStateGet loads the rolling proof-of-process state for a grant.
func (m *Manager) PopStateGet(grantKey [32]byte) (*grant.PopState, bool, error) {
	data, err := m.db.Get(popStateStorageKey(grantKey))
	if err != nil {
		if err == storage.ErrNotFound {
			return nil, false, nil
		}
		return nil, false, err
	}
	var stored storedPopState
	if err := rlp.DecodeBytes(data, &stored); err != nil {
		return nil, false, fmt.Errorf("state: decode pop state: %w", err)
	}
	out := &grant.PopState{
		Grant:           stored.Grant,
		LastGlobalHash:  stored.LastGlobalHash,
		LastStreamHash:  stored.LastStreamHash,
		LastPeriodIndex: stored.LastPeriodIndex,
		Initialized:     stored.Initialized,
	}
	if stored.LastIssuedAt != nil {
		out.LastIssuedAt = stored.LastIssuedAt.Int64()
	}
	return out, true, nil
}

type storedReceipt struct {
	Grant       [32]byte
	Claimer     [32]byte
	PeriodIndex uint64
	ClaimedAt   *big.Int
}

// ReceiptCreate inserts a claim receipt if absent. The receipt key is derived
// from (grant, claimer, period), so this is the replay guard: a second claim
// for the same period fails with ErrAlreadyClaimed and writes nothing.
func (m *Manager) ReceiptCreate(r *grant.ClaimReceipt) error {
	if r == nil {
		return fmt.Errorf("state: nil receipt")
	}
	key := receiptStorageKey(r.Key())
	exists, err := m.db.Has(key)
	if err != nil {
		return err
	}
	if exists {
		return grant.ErrAlreadyClaimed
	}
	stored := &storedReceipt{
		Grant:       r.Grant,
		Claimer:     r.Claimer,
		PeriodIndex: r.PeriodIndex,
		ClaimedAt:   big.NewInt(r.ClaimedAt),
	}
	encoded, err := rlp.EncodeToBytes(stored)
	if err != nil {
		return fmt.Errorf("state: encode receipt: %w", err)
	}
	return m.db.Put(key, encoded)
}

// ReceiptExists reports whether a receipt exists for a (grant, claimer,
// period) triple.
func (m *Manager) ReceiptExists(grantKey, claimer [32]byte, periodIndex uint64) (bool, error) {
	return m.db.Has(receiptStorageKey(grant.ReceiptKey(grantKey, claimer, periodIndex)))
}

// ReceiptGet loads a claim receipt for a (grant, claimer, period) triple.
func (m *Manager) ReceiptGet(grantKey, claimer [32]byte, periodIndex uint64) (*grant.ClaimReceipt, bool, error) {
	key := receiptStorageKey(grant.ReceiptKey(grantKey, claimer, periodIndex))
	data, err := m.db.Get(key)
	if err != nil {
		if err == storage.ErrNotFound {
			return nil, false, nil
		}
		return nil, false, err
	}
	var stored storedReceipt
	if err := rlp.DecodeBytes(data, &stored); err != nil {
		return nil, false, fmt.Errorf("state: decode receipt: %w", err)
	}
	out := &grant.ClaimReceipt{
		Grant:       stored.Grant,
		Claimer:     stored.Claimer,
		PeriodIndex: stored.PeriodIndex,
	}
	if stored.ClaimedAt != nil {
		out.ClaimedAt = stored.ClaimedAt.Int64()
	}
	return out, true, nil
}

type storedPopConfig struct {
	Authority [32]byte
	Signer    [32]byte
}

// PopConfigPut stores the trusted proof-of-process signer for an authority.
func (m *Manager) PopConfigPut(cfg *grant.PopConfig) error {
	if cfg == nil {
		return fmt.Errorf("state: nil pop config")
	}
	encoded, err := rlp.EncodeToBytes(&storedPopConfig{Authority: cfg.Authority, Signer: cfg.Signer})
	if err != nil {
		return fmt.Errorf("state: encode pop config: %w", err)
	}
	return m.db.Put(popConfigStorageKey(cfg.Authority), encoded)
}

// PopConfigGet loads the trusted proof-of-process signer for an authority.
func (m *Manager) PopConfigGet(authority [32]byte) (*grant.PopConfig, bool, error) {
	data, err := m.db.Get(popConfigStorageKey(authority))
	if err != nil {
		if err == storage.ErrNotFound {
			return nil, false, nil
		}
		return nil, false, err
	}
	var stored storedPopConfig
	if err := rlp.DecodeBytes(data, &stored); err != nil {
		return nil, false, fmt.Errorf("state: decode pop config: %w", err)
	}
	return &grant.PopConfig{Authority: stored.Authority, Signer: stored.Signer}, true, nil
}
