package grant

import (
	"math/big"
	"time"

	"grantchain/core/events"
)

// engineState describes the functionality the grant engine needs from the
// surrounding state implementation. core/state.Manager provides the
// production implementation; tests use an in-memory mock.
type engineState interface {
	GrantPut(*Grant) error
	GrantGet(key [32]byte) (*Grant, bool, error)
	GrantDelete(key [32]byte) error

	PopConfigPut(*PopConfig) error
	PopConfigGet(authority [32]byte) (*PopConfig, bool, error)

	PopStateGet(grantKey [32]byte) (*PopState, bool, error)
	PopStatePut(*PopState) error

	// ReceiptCreate inserts a receipt if and only if no receipt exists for
	// the same (grant, claimer, period) triple. A duplicate returns
	// ErrAlreadyClaimed.
	ReceiptCreate(*ClaimReceipt) error
	ReceiptExists(grantKey, claimer [32]byte, periodIndex uint64) (bool, error)

	TokenDecimals(symbol string) (uint8, bool, error)
	Balance(token string, addr [32]byte) (*big.Int, error)
	Transfer(token string, from, to [32]byte, amount *big.Int, decimals uint8) error
}

// Engine wires the grant business logic with external state and event
// emitters. Every operation is a single synchronous accept/reject decision;
// nothing is retried internally.
type Engine struct {
	state   engineState
	emitter events.Emitter
	nowFn   func() int64
}

// NewEngine creates a grant engine with a no-op emitter. Callers can override
// the emitter via SetEmitter.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source used by the engine. Primarily intended
// for tests to provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

func (e *Engine) emit(event events.Event) {
	if e == nil || e.emitter == nil || event == nil {
		return
	}
	e.emitter.Emit(event)
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) requireState() error {
	if e == nil || e.state == nil {
		return ErrGrantNotFound
	}
	return nil
}

func (e *Engine) loadGrant(key [32]byte) (*Grant, error) {
	if err := e.requireState(); err != nil {
		return nil, err
	}
	g, ok, err := e.state.GrantGet(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrGrantNotFound
	}
	return g, nil
}

// CreateGrant registers a new distribution campaign and derives its vault
// address. The (authority, token, grant id) triple is the grant's immutable
// identity; creating the same triple twice fails.
func (e *Engine) CreateGrant(authority [32]byte, token string, grantID, amountPerPeriod uint64, periodSeconds, startTs, expiresAt int64) (*Grant, error) {
	if err := e.requireState(); err != nil {
		return nil, err
	}
	if amountPerPeriod == 0 {
		return nil, ErrInvalidAmount
	}
	if periodSeconds <= 0 {
		return nil, ErrInvalidPeriod
	}
	normalized, err := NormalizeToken(token)
	if err != nil {
		return nil, err
	}
	if _, ok, err := e.state.TokenDecimals(normalized); err != nil {
		return nil, err
	} else if !ok {
		return nil, ErrTokenMismatch
	}

	now := e.now()
	// A future start is fine (the vault can be funded ahead of time), but a
	// start more than a year out is treated as operator error.
	if startTs > now+maxStartLead {
		return nil, ErrInvalidStartTs
	}

	key := GrantKey(authority, normalized, grantID)
	if _, ok, err := e.state.GrantGet(key); err != nil {
		return nil, err
	} else if ok {
		return nil, ErrGrantExists
	}

	g := &Grant{
		Authority:       authority,
		Token:           normalized,
		Vault:           VaultAddress(key),
		GrantID:         grantID,
		AmountPerPeriod: amountPerPeriod,
		PeriodSeconds:   periodSeconds,
		StartTs:         startTs,
		ExpiresAt:       expiresAt,
	}
	if err := e.state.GrantPut(g); err != nil {
		return nil, err
	}
	e.emit(events.GrantCreated{
		Authority:       authority,
		Token:           normalized,
		GrantID:         grantID,
		AmountPerPeriod: amountPerPeriod,
		PeriodSeconds:   periodSeconds,
		StartTs:         startTs,
		ExpiresAt:       expiresAt,
	})
	return g.Clone(), nil
}

// FundGrant moves tokens from the funder into the grant vault. Anyone may
// top up a grant; only the token must match.
func (e *Engine) FundGrant(funder [32]byte, grantKey [32]byte, amount uint64) error {
	g, err := e.loadGrant(grantKey)
	if err != nil {
		return err
	}
	if amount == 0 {
		return ErrInvalidAmount
	}
	decimals, ok, err := e.state.TokenDecimals(g.Token)
	if err != nil {
		return err
	}
	if !ok {
		return ErrTokenMismatch
	}
	value := new(big.Int).SetUint64(amount)
	if err := e.state.Transfer(g.Token, funder, g.Vault, value, decimals); err != nil {
		return err
	}
	e.emit(events.GrantFunded{Grant: grantKey, Funder: funder, Token: g.Token, Amount: amount})
	return nil
}

// SetPaused toggles the paused flag. Only the grant authority may call it.
func (e *Engine) SetPaused(authority [32]byte, grantKey [32]byte, paused bool) error {
	g, err := e.loadGrant(grantKey)
	if err != nil {
		return err
	}
	if g.Authority != authority {
		return ErrUnauthorized
	}
	g.Paused = paused
	if err := e.state.GrantPut(g); err != nil {
		return err
	}
	e.emit(events.GrantPauseChanged{Grant: grantKey, Paused: paused})
	return nil
}

// SetAllowlistRoot installs or rotates the allowlist Merkle root. The zero
// root disables the allowlist.
func (e *Engine) SetAllowlistRoot(authority [32]byte, grantKey [32]byte, root [32]byte) error {
	g, err := e.loadGrant(grantKey)
	if err != nil {
		return err
	}
	if g.Authority != authority {
		return ErrUnauthorized
	}
	g.MerkleRoot = root
	if err := e.state.GrantPut(g); err != nil {
		return err
	}
	e.emit(events.GrantRootUpdated{Grant: grantKey, Root: root})
	return nil
}

// UpsertPopConfig registers or updates the trusted proof-of-process signer
// for an authority. Claim processing only reads this record.
func (e *Engine) UpsertPopConfig(authority, signer [32]byte) error {
	if err := e.requireState(); err != nil {
		return err
	}
	if err := e.state.PopConfigPut(&PopConfig{Authority: authority, Signer: signer}); err != nil {
		return err
	}
	e.emit(events.GrantPopConfigured{Authority: authority, Signer: signer})
	return nil
}

// CloseGrant sweeps any remaining vault balance back to the authority and
// removes the grant record. Receipts and pop state are left in place as an
// audit trail.
func (e *Engine) CloseGrant(authority [32]byte, grantKey [32]byte) (uint64, error) {
	g, err := e.loadGrant(grantKey)
	if err != nil {
		return 0, err
	}
	if g.Authority != authority {
		return 0, ErrUnauthorized
	}
	remaining, err := e.state.Balance(g.Token, g.Vault)
	if err != nil {
		return 0, err
	}
	refunded := uint64(0)
	if remaining.Sign() > 0 {
		decimals, ok, err := e.state.TokenDecimals(g.Token)
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, ErrTokenMismatch
		}
		if err := e.state.Transfer(g.Token, g.Vault, g.Authority, remaining, decimals); err != nil {
			return 0, err
		}
		refunded = remaining.Uint64()
	}
	if err := e.state.GrantDelete(grantKey); err != nil {
		return 0, err
	}
	e.emit(events.GrantClosed{Grant: grantKey, Token: g.Token, Refunded: refunded})
	return refunded, nil
}

// Claim admits a withdrawal for a grant without an allowlist. Grants with an
// allowlist root installed must use ClaimWithProof instead.
func (e *Engine) Claim(claimer [32]byte, grantKey [32]byte, periodIndex uint64, reader InstructionReader) (*ClaimReceipt, error) {
	return e.claim(claimer, grantKey, periodIndex, nil, false, reader)
}

// ClaimWithProof admits a withdrawal gated by allowlist membership.
func (e *Engine) ClaimWithProof(claimer [32]byte, grantKey [32]byte, periodIndex uint64, proof [][32]byte, reader InstructionReader) (*ClaimReceipt, error) {
	return e.claim(claimer, grantKey, periodIndex, proof, true, reader)
}

// claim runs the full admission sequence. All checks complete before any
// state is written; the receipt insert is the first mutation so a racing
// duplicate fails before funds move.
func (e *Engine) claim(claimer [32]byte, grantKey [32]byte, periodIndex uint64, proof [][32]byte, withProof bool, reader InstructionReader) (*ClaimReceipt, error) {
	g, err := e.loadGrant(grantKey)
	if err != nil {
		return nil, err
	}
	now := e.now()

	if g.Paused {
		return nil, ErrPaused
	}
	if withProof {
		if !g.AllowlistEnabled() {
			return nil, ErrAllowlistNotEnabled
		}
		leaf := AllowlistLeaf(claimer)
		if !VerifyMerkleSorted(g.MerkleRoot, leaf, proof) {
			return nil, ErrNotInAllowlist
		}
	} else if g.AllowlistEnabled() {
		return nil, ErrAllowlistRequired
	}

	// Reject replays up front so an already-claimed period surfaces as such
	// rather than as a chain-continuity failure. ReceiptCreate below remains
	// the authoritative gate for racing duplicates.
	if claimed, err := e.state.ReceiptExists(grantKey, claimer, periodIndex); err != nil {
		return nil, err
	} else if claimed {
		return nil, ErrAlreadyClaimed
	}

	popState, err := e.verifyPopProof(g, grantKey, claimer, periodIndex, now, reader)
	if err != nil {
		return nil, err
	}
	if err := checkTiming(g, now, periodIndex); err != nil {
		return nil, err
	}

	decimals, ok, err := e.state.TokenDecimals(g.Token)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrTokenMismatch
	}
	amount := new(big.Int).SetUint64(g.AmountPerPeriod)
	vaultBalance, err := e.state.Balance(g.Token, g.Vault)
	if err != nil {
		return nil, err
	}
	if vaultBalance.Cmp(amount) < 0 {
		return nil, ErrInsufficientFunds
	}

	// Commit phase. The receipt is the uniqueness gate for the period, so it
	// goes in first; a replay stops here with no other state touched.
	receipt := &ClaimReceipt{
		Grant:       grantKey,
		Claimer:     claimer,
		PeriodIndex: periodIndex,
		ClaimedAt:   now,
	}
	if err := e.state.ReceiptCreate(receipt); err != nil {
		return nil, err
	}
	if err := e.state.Transfer(g.Token, g.Vault, claimer, amount, decimals); err != nil {
		return nil, err
	}
	if err := e.state.PopStatePut(popState); err != nil {
		return nil, err
	}

	e.emit(events.GrantClaimed{
		Grant:       grantKey,
		Claimer:     claimer,
		Token:       g.Token,
		Amount:      g.AmountPerPeriod,
		PeriodIndex: periodIndex,
		ClaimedAt:   now,
		EntryHash:   popState.LastGlobalHash,
	})
	return receipt, nil
}

// verifyPopProof runs the proof-of-process admission checks and returns the
// advanced chain state. Nothing is written here; the caller commits the
// returned state together with the receipt.
func (e *Engine) verifyPopProof(g *Grant, grantKey, claimer [32]byte, periodIndex uint64, now int64, reader InstructionReader) (*PopState, error) {
	cfg, ok, err := e.state.PopConfigGet(g.Authority)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrPopConfigNotFound
	}

	signer, messageBytes, err := loadCompanionSignature(reader)
	if err != nil {
		return nil, err
	}
	if signer != cfg.Signer {
		return nil, ErrInvalidPopSigner
	}

	msg, err := ParsePopMessage(messageBytes)
	if err != nil {
		return nil, err
	}
	if msg.Grant != grantKey {
		return nil, ErrPopProofGrantMismatch
	}
	if msg.Claimer != claimer {
		return nil, ErrPopProofClaimerMismatch
	}
	if msg.PeriodIndex != periodIndex {
		return nil, ErrPopProofPeriodMismatch
	}
	if msg.Version == PopMessageVersionV2 && msg.AuditHash == zeroHash {
		return nil, ErrPopAuditHashMissing
	}

	expectedEntryHash, err := ComputeEntryHash(msg)
	if err != nil {
		return nil, err
	}
	if expectedEntryHash != msg.EntryHash {
		return nil, ErrPopEntryHashMismatch
	}

	skew, err := absoluteDiff(now, msg.IssuedAt)
	if err != nil {
		return nil, err
	}
	if skew > PopMaxSkewSeconds {
		return nil, ErrPopProofExpired
	}

	state, ok, err := e.state.PopStateGet(grantKey)
	if err != nil {
		return nil, err
	}
	if ok && state.Initialized {
		if state.Grant != grantKey {
			return nil, ErrPopStateGrantMismatch
		}
		// A broken strand is never resynced; the submitter must rebuild the
		// chain from the recorded state.
		if state.LastGlobalHash != msg.PrevHash {
			return nil, ErrPopHashChainBroken
		}
		if state.LastStreamHash != msg.StreamPrevHash {
			return nil, ErrPopStreamChainBroken
		}
		state = state.Clone()
	} else {
		if msg.PrevHash != zeroHash || msg.StreamPrevHash != zeroHash {
			return nil, ErrPopGenesisMismatch
		}
		state = &PopState{Grant: grantKey, Initialized: true}
	}

	state.LastGlobalHash = msg.EntryHash
	state.LastStreamHash = msg.EntryHash
	state.LastPeriodIndex = msg.PeriodIndex
	state.LastIssuedAt = msg.IssuedAt
	return state, nil
}
