package state

import (
	"fmt"
	"math/big"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"grantchain/native/grant"
	"grantchain/storage"
)

// Manager provides the persistent state backend for the grant engine: the
// token registry, the balance ledger and the grant, receipt, pop-state and
// pop-config records. All records are RLP encoded and keyed by keccak256 of
// a prefixed identity.
type Manager struct {
	db storage.Database
}

// NewManager creates a state manager operating on the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

// TokenMetadata describes a registered token.
type TokenMetadata struct {
	Symbol   string
	Name     string
	Decimals uint8
}

func tokenMetadataKey(symbol string) []byte {
	buf := make([]byte, len(tokenPrefix)+len(symbol))
	copy(buf, tokenPrefix)
	copy(buf[len(tokenPrefix):], symbol)
	return ethcrypto.Keccak256(buf)
}

func balanceKey(addr [32]byte, symbol string) []byte {
	buf := make([]byte, len(balancePrefix)+len(symbol)+1+len(addr))
	copy(buf, balancePrefix)
	copy(buf[len(balancePrefix):], symbol)
	buf[len(balancePrefix)+len(symbol)] = ':'
	copy(buf[len(balancePrefix)+len(symbol)+1:], addr[:])
	return ethcrypto.Keccak256(buf)
}

// RegisterToken adds a token to the registry. Registering an existing symbol
// overwrites its metadata.
func (m *Manager) RegisterToken(symbol, name string, decimals uint8) error {
	normalized, err := grant.NormalizeToken(symbol)
	if err != nil {
		return err
	}
	encoded, err := rlp.EncodeToBytes(&TokenMetadata{Symbol: normalized, Name: strings.TrimSpace(name), Decimals: decimals})
	if err != nil {
		return fmt.Errorf("state: encode token metadata: %w", err)
	}
	return m.db.Put(tokenMetadataKey(normalized), encoded)
}

// Token returns the metadata for a registered symbol.
func (m *Manager) Token(symbol string) (*TokenMetadata, bool, error) {
	data, err := m.db.Get(tokenMetadataKey(symbol))
	if err != nil {
		if err == storage.ErrNotFound {
			return nil, false, nil
		}
		return nil, false, err
	}
	var meta TokenMetadata
	if err := rlp.DecodeBytes(data, &meta); err != nil {
		return nil, false, fmt.Errorf("state: decode token metadata: %w", err)
	}
	return &meta, true, nil
}

// TokenDecimals returns the registered decimals for a symbol.
func (m *Manager) TokenDecimals(symbol string) (uint8, bool, error) {
	meta, ok, err := m.Token(symbol)
	if err != nil || !ok {
		return 0, ok, err
	}
	return meta.Decimals, true, nil
}

// Balance returns the ledger balance for an address. Unknown addresses hold
// zero.
func (m *Manager) Balance(token string, addr [32]byte) (*big.Int, error) {
	data, err := m.db.Get(balanceKey(addr, token))
	if err != nil {
		if err == storage.ErrNotFound {
			return big.NewInt(0), nil
		}
		return nil, err
	}
	balance := new(big.Int)
	if err := rlp.DecodeBytes(data, balance); err != nil {
		return nil, fmt.Errorf("state: decode balance: %w", err)
	}
	return balance, nil
}

func (m *Manager) setBalance(token string, addr [32]byte, balance *big.Int) error {
	encoded, err := rlp.EncodeToBytes(balance)
	if err != nil {
		return fmt.Errorf("state: encode balance: %w", err)
	}
	return m.db.Put(balanceKey(addr, token), encoded)
}

// Mint credits freshly issued tokens to an address. The token must be
// registered.
func (m *Manager) Mint(token string, addr [32]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return grant.ErrInvalidAmount
	}
	if _, ok, err := m.Token(token); err != nil {
		return err
	} else if !ok {
		return grant.ErrTokenMismatch
	}
	balance, err := m.Balance(token, addr)
	if err != nil {
		return err
	}
	return m.setBalance(token, addr, new(big.Int).Add(balance, amount))
}

// Transfer is the checked transfer primitive: the token must be registered,
// the supplied decimals must match the registry and the sender must hold the
// amount. Either both balances move or neither does.
func (m *Manager) Transfer(token string, from, to [32]byte, amount *big.Int, decimals uint8) error {
	if amount == nil || amount.Sign() <= 0 {
		return grant.ErrInvalidAmount
	}
	meta, ok, err := m.Token(token)
	if err != nil {
		return err
	}
	if !ok || meta.Decimals != decimals {
		return grant.ErrTokenMismatch
	}
	fromBalance, err := m.Balance(token, from)
	if err != nil {
		return err
	}
	if fromBalance.Cmp(amount) < 0 {
		return grant.ErrInsufficientFunds
	}
	if from == to {
		// Debit and credit cancel out; writing either would double-count.
		return nil
	}
	toBalance, err := m.Balance(token, to)
	if err != nil {
		return err
	}
	if err := m.setBalance(token, from, new(big.Int).Sub(fromBalance, amount)); err != nil {
		return err
	}
	if err := m.setBalance(token, to, new(big.Int).Add(toBalance, amount)); err != nil {
		// Restore the sender so a failed credit cannot burn funds.
		if restoreErr := m.setBalance(token, from, fromBalance); restoreErr != nil {
			return fmt.Errorf("state: credit failed (%v) and sender restore failed: %w", err, restoreErr)
		}
		return err
	}
	return nil
}
