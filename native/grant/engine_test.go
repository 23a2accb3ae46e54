package grant

import (
	"errors"
	"math/big"
	"testing"

	"grantchain/core/events"
)

type mockState struct {
	grants     map[[32]byte]*Grant
	popConfigs map[[32]byte]*PopConfig
	popStates  map[[32]byte]*PopState
	receipts   map[[32]byte]*ClaimReceipt
	tokens     map[string]uint8
	balances   map[string]map[[32]byte]*big.Int

	// receiptExistsHook, when set, overrides ReceiptExists. Used to simulate
	// a racing duplicate that slips past the early replay check.
	receiptExistsHook func() (bool, error)
}

func newMockState() *mockState {
	return &mockState{
		grants:     make(map[[32]byte]*Grant),
		popConfigs: make(map[[32]byte]*PopConfig),
		popStates:  make(map[[32]byte]*PopState),
		receipts:   make(map[[32]byte]*ClaimReceipt),
		tokens:     make(map[string]uint8),
		balances:   make(map[string]map[[32]byte]*big.Int),
	}
}

func (m *mockState) GrantPut(g *Grant) error {
	m.grants[g.Key()] = g.Clone()
	return nil
}

func (m *mockState) GrantGet(key [32]byte) (*Grant, bool, error) {
	g, ok := m.grants[key]
	if !ok {
		return nil, false, nil
	}
	return g.Clone(), true, nil
}

func (m *mockState) GrantDelete(key [32]byte) error {
	delete(m.grants, key)
	return nil
}

func (m *mockState) PopConfigPut(cfg *PopConfig) error {
	m.popConfigs[cfg.Authority] = &PopConfig{Authority: cfg.Authority, Signer: cfg.Signer}
	return nil
}

func (m *mockState) PopConfigGet(authority [32]byte) (*PopConfig, bool, error) {
	cfg, ok := m.popConfigs[authority]
	if !ok {
		return nil, false, nil
	}
	return &PopConfig{Authority: cfg.Authority, Signer: cfg.Signer}, true, nil
}

func (m *mockState) PopStateGet(grantKey [32]byte) (*PopState, bool, error) {
	s, ok := m.popStates[grantKey]
	if !ok {
		return nil, false, nil
	}
	return s.Clone(), true, nil
}

func (m *mockState) PopStatePut(s *PopState) error {
	m.popStates[s.Grant] = s.Clone()
	return nil
}

func (m *mockState) ReceiptCreate(r *ClaimReceipt) error {
	key := r.Key()
	if _, ok := m.receipts[key]; ok {
		return ErrAlreadyClaimed
	}
	clone := *r
	m.receipts[key] = &clone
	return nil
}

func (m *mockState) ReceiptExists(grantKey, claimer [32]byte, periodIndex uint64) (bool, error) {
	if m.receiptExistsHook != nil {
		return m.receiptExistsHook()
	}
	_, ok := m.receipts[ReceiptKey(grantKey, claimer, periodIndex)]
	return ok, nil
}

func (m *mockState) TokenDecimals(symbol string) (uint8, bool, error) {
	decimals, ok := m.tokens[symbol]
	return decimals, ok, nil
}

func (m *mockState) Balance(token string, addr [32]byte) (*big.Int, error) {
	balances, ok := m.balances[token]
	if !ok {
		return big.NewInt(0), nil
	}
	balance, ok := balances[addr]
	if !ok {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(balance), nil
}

func (m *mockState) setBalance(token string, addr [32]byte, amount int64) {
	if m.balances[token] == nil {
		m.balances[token] = make(map[[32]byte]*big.Int)
	}
	m.balances[token][addr] = big.NewInt(amount)
}

func (m *mockState) Transfer(token string, from, to [32]byte, amount *big.Int, decimals uint8) error {
	registered, ok := m.tokens[token]
	if !ok || registered != decimals {
		return ErrTokenMismatch
	}
	fromBalance, _ := m.Balance(token, from)
	if fromBalance.Cmp(amount) < 0 {
		return ErrInsufficientFunds
	}
	toBalance, _ := m.Balance(token, to)
	if m.balances[token] == nil {
		m.balances[token] = make(map[[32]byte]*big.Int)
	}
	m.balances[token][from] = new(big.Int).Sub(fromBalance, amount)
	m.balances[token][to] = new(big.Int).Add(toBalance, amount)
	return nil
}

type recordingEmitter struct {
	events []events.Event
}

func (r *recordingEmitter) Emit(evt events.Event) {
	r.events = append(r.events, evt)
}

func (r *recordingEmitter) lastType() string {
	if len(r.events) == 0 {
		return ""
	}
	return r.events[len(r.events)-1].EventType()
}

// --- fixture ---

const (
	testToken    = "WNE"
	testDecimals = uint8(6)
)

func fillAddr(fill byte) [32]byte {
	var addr [32]byte
	for i := range addr {
		addr[i] = fill
	}
	return addr
}

type claimFixture struct {
	t        *testing.T
	engine   *Engine
	state    *mockState
	emitter  *recordingEmitter
	now      int64
	grant    *Grant
	grantKey [32]byte

	authority [32]byte
	claimer   [32]byte
	funder    [32]byte
	popSigner [32]byte
}

func newClaimFixture(t *testing.T) *claimFixture {
	t.Helper()
	f := &claimFixture{
		t:         t,
		state:     newMockState(),
		emitter:   &recordingEmitter{},
		now:       1_700_000_000,
		authority: fillAddr(0xA1),
		claimer:   fillAddr(0xC1),
		funder:    fillAddr(0xF1),
		popSigner: fillAddr(0x51),
	}
	f.engine = NewEngine()
	f.engine.SetState(f.state)
	f.engine.SetEmitter(f.emitter)
	f.engine.SetNowFunc(func() int64 { return f.now })

	f.state.tokens[testToken] = testDecimals
	f.state.setBalance(testToken, f.funder, 1_000_000)

	g, err := f.engine.CreateGrant(f.authority, testToken, 1, 100, DefaultMonthSeconds, f.now-10, 0)
	if err != nil {
		t.Fatalf("CreateGrant: %v", err)
	}
	f.grant = g
	f.grantKey = g.Key()

	if err := f.engine.FundGrant(f.funder, f.grantKey, 10_000); err != nil {
		t.Fatalf("FundGrant: %v", err)
	}
	if err := f.engine.UpsertPopConfig(f.authority, f.popSigner); err != nil {
		t.Fatalf("UpsertPopConfig: %v", err)
	}
	return f
}

// proofMessage builds a correctly hashed proof message chained from the
// current pop state.
func (f *claimFixture) proofMessage(version uint8, periodIndex uint64, issuedAt int64) *PopMessage {
	f.t.Helper()
	msg := &PopMessage{
		Version:     version,
		Grant:       f.grantKey,
		Claimer:     f.claimer,
		PeriodIndex: periodIndex,
		IssuedAt:    issuedAt,
	}
	if state, ok := f.state.popStates[f.grantKey]; ok && state.Initialized {
		msg.PrevHash = state.LastGlobalHash
		msg.StreamPrevHash = state.LastStreamHash
	}
	if version == PopMessageVersionV2 {
		msg.AuditHash = fillAddr(0xAD)
	}
	entry, err := ComputeEntryHash(msg)
	if err != nil {
		f.t.Fatalf("ComputeEntryHash: %v", err)
	}
	msg.EntryHash = entry
	return msg
}

func (f *claimFixture) readerFor(msg *PopMessage) InstructionReader {
	return f.readerSignedBy(f.popSigner, msg)
}

func (f *claimFixture) readerSignedBy(signer [32]byte, msg *PopMessage) InstructionReader {
	f.t.Helper()
	encoded, err := EncodePopMessage(msg)
	if err != nil {
		f.t.Fatalf("EncodePopMessage: %v", err)
	}
	var signature [64]byte // signature bytes are checked by the native verifier, not the engine
	return fakeReader{
		instructions: []Instruction{
			{ProgramID: Ed25519ProgramID, Data: EncodeEd25519Instruction(signer, signature, encoded)},
			{ProgramID: deriveProgramID("test:claim")},
		},
		current: 1,
	}
}

func (f *claimFixture) balance(addr [32]byte) int64 {
	balance, _ := f.state.Balance(testToken, addr)
	return balance.Int64()
}

func (f *claimFixture) popState() *PopState {
	return f.state.popStates[f.grantKey]
}

// --- claim tests ---

func TestClaimGenesisV1(t *testing.T) {
	f := newClaimFixture(t)
	msg := f.proofMessage(PopMessageVersionV1, 0, f.now)

	receipt, err := f.engine.Claim(f.claimer, f.grantKey, 0, f.readerFor(msg))
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if receipt.PeriodIndex != 0 || receipt.Claimer != f.claimer || receipt.ClaimedAt != f.now {
		t.Fatalf("unexpected receipt: %+v", receipt)
	}
	if got := f.balance(f.claimer); got != 100 {
		t.Fatalf("claimer balance = %d, want 100", got)
	}
	if got := f.balance(f.grant.Vault); got != 9_900 {
		t.Fatalf("vault balance = %d, want 9900", got)
	}
	state := f.popState()
	if state == nil || !state.Initialized {
		t.Fatal("pop state not initialized")
	}
	if state.LastGlobalHash != msg.EntryHash || state.LastStreamHash != msg.EntryHash {
		t.Fatal("pop state strands must advance to the entry hash")
	}
	if state.LastPeriodIndex != 0 || state.LastIssuedAt != f.now {
		t.Fatalf("unexpected pop state: %+v", state)
	}
	if f.emitter.lastType() != events.TypeGrantClaimed {
		t.Fatalf("last event = %q, want %q", f.emitter.lastType(), events.TypeGrantClaimed)
	}
}

func TestClaimGenesisV2(t *testing.T) {
	f := newClaimFixture(t)
	msg := f.proofMessage(PopMessageVersionV2, 0, f.now)
	if _, err := f.engine.Claim(f.claimer, f.grantKey, 0, f.readerFor(msg)); err != nil {
		t.Fatalf("Claim: %v", err)
	}
}

func TestClaimV2MissingAuditHash(t *testing.T) {
	f := newClaimFixture(t)
	msg := f.proofMessage(PopMessageVersionV2, 0, f.now)
	msg.AuditHash = [32]byte{}
	entry, _ := ComputeEntryHash(msg)
	msg.EntryHash = entry

	if _, err := f.engine.Claim(f.claimer, f.grantKey, 0, f.readerFor(msg)); !errors.Is(err, ErrPopAuditHashMissing) {
		t.Fatalf("got %v, want %v", err, ErrPopAuditHashMissing)
	}
}

func TestClaimIdenticalReplayRejected(t *testing.T) {
	f := newClaimFixture(t)
	msg := f.proofMessage(PopMessageVersionV1, 0, f.now)
	reader := f.readerFor(msg)
	if _, err := f.engine.Claim(f.claimer, f.grantKey, 0, reader); err != nil {
		t.Fatalf("first claim: %v", err)
	}
	stateBefore := f.popState().Clone()
	claimerBefore := f.balance(f.claimer)
	vaultBefore := f.balance(f.grant.Vault)

	if _, err := f.engine.Claim(f.claimer, f.grantKey, 0, reader); !errors.Is(err, ErrAlreadyClaimed) {
		t.Fatalf("got %v, want %v", err, ErrAlreadyClaimed)
	}

	if *f.popState() != *stateBefore {
		t.Fatal("pop state changed on rejected replay")
	}
	if f.balance(f.claimer) != claimerBefore || f.balance(f.grant.Vault) != vaultBefore {
		t.Fatal("balances changed on rejected replay")
	}
}

func TestClaimFreshProofSamePeriodRejected(t *testing.T) {
	f := newClaimFixture(t)
	first := f.proofMessage(PopMessageVersionV1, 0, f.now)
	if _, err := f.engine.Claim(f.claimer, f.grantKey, 0, f.readerFor(first)); err != nil {
		t.Fatalf("first claim: %v", err)
	}
	// A correctly chained second proof for the same period still trips the
	// replay guard.
	second := f.proofMessage(PopMessageVersionV1, 0, f.now+1)
	f.now++
	if _, err := f.engine.Claim(f.claimer, f.grantKey, 0, f.readerFor(second)); !errors.Is(err, ErrAlreadyClaimed) {
		t.Fatalf("got %v, want %v", err, ErrAlreadyClaimed)
	}
}

func TestClaimChainContinuity(t *testing.T) {
	f := newClaimFixture(t)
	genesis := f.proofMessage(PopMessageVersionV1, 0, f.now)
	if _, err := f.engine.Claim(f.claimer, f.grantKey, 0, f.readerFor(genesis)); err != nil {
		t.Fatalf("genesis claim: %v", err)
	}
	stateBefore := f.popState().Clone()

	// Advance into the next period.
	f.now += DefaultMonthSeconds

	broken := f.proofMessage(PopMessageVersionV1, 1, f.now)
	broken.PrevHash[0] ^= 0x01
	entry, _ := ComputeEntryHash(broken)
	broken.EntryHash = entry
	if _, err := f.engine.Claim(f.claimer, f.grantKey, 1, f.readerFor(broken)); !errors.Is(err, ErrPopHashChainBroken) {
		t.Fatalf("got %v, want %v", err, ErrPopHashChainBroken)
	}
	if *f.popState() != *stateBefore {
		t.Fatal("pop state changed on rejected claim")
	}

	brokenStream := f.proofMessage(PopMessageVersionV1, 1, f.now)
	brokenStream.StreamPrevHash[0] ^= 0x01
	entry, _ = ComputeEntryHash(brokenStream)
	brokenStream.EntryHash = entry
	if _, err := f.engine.Claim(f.claimer, f.grantKey, 1, f.readerFor(brokenStream)); !errors.Is(err, ErrPopStreamChainBroken) {
		t.Fatalf("got %v, want %v", err, ErrPopStreamChainBroken)
	}

	chained := f.proofMessage(PopMessageVersionV1, 1, f.now)
	if _, err := f.engine.Claim(f.claimer, f.grantKey, 1, f.readerFor(chained)); err != nil {
		t.Fatalf("chained claim: %v", err)
	}
	if f.popState().LastGlobalHash != chained.EntryHash {
		t.Fatal("chain did not advance to the new entry hash")
	}
}

func TestClaimGenesisRequiresZeroPrevHashes(t *testing.T) {
	f := newClaimFixture(t)
	msg := f.proofMessage(PopMessageVersionV1, 0, f.now)
	msg.PrevHash[3] = 0x42
	entry, _ := ComputeEntryHash(msg)
	msg.EntryHash = entry

	if _, err := f.engine.Claim(f.claimer, f.grantKey, 0, f.readerFor(msg)); !errors.Is(err, ErrPopGenesisMismatch) {
		t.Fatalf("got %v, want %v", err, ErrPopGenesisMismatch)
	}
	if f.popState() != nil {
		t.Fatal("pop state must stay uninitialized after a rejected genesis")
	}
}

func TestClaimEntryHashMismatch(t *testing.T) {
	f := newClaimFixture(t)
	msg := f.proofMessage(PopMessageVersionV1, 0, f.now)
	msg.EntryHash[0] ^= 0x01

	if _, err := f.engine.Claim(f.claimer, f.grantKey, 0, f.readerFor(msg)); !errors.Is(err, ErrPopEntryHashMismatch) {
		t.Fatalf("got %v, want %v", err, ErrPopEntryHashMismatch)
	}
}

func TestClaimSkewBoundary(t *testing.T) {
	t.Run("at limit", func(t *testing.T) {
		f := newClaimFixture(t)
		msg := f.proofMessage(PopMessageVersionV1, 0, f.now-PopMaxSkewSeconds)
		if _, err := f.engine.Claim(f.claimer, f.grantKey, 0, f.readerFor(msg)); err != nil {
			t.Fatalf("claim at skew limit: %v", err)
		}
	})
	t.Run("beyond limit", func(t *testing.T) {
		f := newClaimFixture(t)
		msg := f.proofMessage(PopMessageVersionV1, 0, f.now-PopMaxSkewSeconds-1)
		if _, err := f.engine.Claim(f.claimer, f.grantKey, 0, f.readerFor(msg)); !errors.Is(err, ErrPopProofExpired) {
			t.Fatalf("got %v, want %v", err, ErrPopProofExpired)
		}
	})
	t.Run("future proof beyond limit", func(t *testing.T) {
		f := newClaimFixture(t)
		msg := f.proofMessage(PopMessageVersionV1, 0, f.now+PopMaxSkewSeconds+1)
		if _, err := f.engine.Claim(f.claimer, f.grantKey, 0, f.readerFor(msg)); !errors.Is(err, ErrPopProofExpired) {
			t.Fatalf("got %v, want %v", err, ErrPopProofExpired)
		}
	})
}

func TestClaimBindingMismatches(t *testing.T) {
	f := newClaimFixture(t)

	wrongGrant := f.proofMessage(PopMessageVersionV1, 0, f.now)
	wrongGrant.Grant[0] ^= 0x01
	entry, _ := ComputeEntryHash(wrongGrant)
	wrongGrant.EntryHash = entry
	if _, err := f.engine.Claim(f.claimer, f.grantKey, 0, f.readerFor(wrongGrant)); !errors.Is(err, ErrPopProofGrantMismatch) {
		t.Fatalf("got %v, want %v", err, ErrPopProofGrantMismatch)
	}

	wrongClaimer := f.proofMessage(PopMessageVersionV1, 0, f.now)
	wrongClaimer.Claimer[0] ^= 0x01
	entry, _ = ComputeEntryHash(wrongClaimer)
	wrongClaimer.EntryHash = entry
	if _, err := f.engine.Claim(f.claimer, f.grantKey, 0, f.readerFor(wrongClaimer)); !errors.Is(err, ErrPopProofClaimerMismatch) {
		t.Fatalf("got %v, want %v", err, ErrPopProofClaimerMismatch)
	}

	wrongPeriod := f.proofMessage(PopMessageVersionV1, 5, f.now)
	if _, err := f.engine.Claim(f.claimer, f.grantKey, 0, f.readerFor(wrongPeriod)); !errors.Is(err, ErrPopProofPeriodMismatch) {
		t.Fatalf("got %v, want %v", err, ErrPopProofPeriodMismatch)
	}
}

func TestClaimWrongPeriodIndexRejected(t *testing.T) {
	f := newClaimFixture(t)
	// Proof and request agree on the index, but the index is not current.
	msg := f.proofMessage(PopMessageVersionV1, 1, f.now)
	if _, err := f.engine.Claim(f.claimer, f.grantKey, 1, f.readerFor(msg)); !errors.Is(err, ErrInvalidPeriodIndex) {
		t.Fatalf("got %v, want %v", err, ErrInvalidPeriodIndex)
	}
}

func TestClaimWrongSigner(t *testing.T) {
	f := newClaimFixture(t)
	msg := f.proofMessage(PopMessageVersionV1, 0, f.now)
	if _, err := f.engine.Claim(f.claimer, f.grantKey, 0, f.readerSignedBy(fillAddr(0xEE), msg)); !errors.Is(err, ErrInvalidPopSigner) {
		t.Fatalf("got %v, want %v", err, ErrInvalidPopSigner)
	}
}

func TestClaimPopConfigMissing(t *testing.T) {
	f := newClaimFixture(t)
	delete(f.state.popConfigs, f.authority)
	msg := f.proofMessage(PopMessageVersionV1, 0, f.now)
	if _, err := f.engine.Claim(f.claimer, f.grantKey, 0, f.readerFor(msg)); !errors.Is(err, ErrPopConfigNotFound) {
		t.Fatalf("got %v, want %v", err, ErrPopConfigNotFound)
	}
}

func TestClaimPaused(t *testing.T) {
	f := newClaimFixture(t)
	if err := f.engine.SetPaused(f.authority, f.grantKey, true); err != nil {
		t.Fatalf("SetPaused: %v", err)
	}
	msg := f.proofMessage(PopMessageVersionV1, 0, f.now)
	if _, err := f.engine.Claim(f.claimer, f.grantKey, 0, f.readerFor(msg)); !errors.Is(err, ErrPaused) {
		t.Fatalf("got %v, want %v", err, ErrPaused)
	}
}

func TestClaimInsufficientVault(t *testing.T) {
	f := newClaimFixture(t)
	f.state.setBalance(testToken, f.grant.Vault, 99)
	msg := f.proofMessage(PopMessageVersionV1, 0, f.now)
	if _, err := f.engine.Claim(f.claimer, f.grantKey, 0, f.readerFor(msg)); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("got %v, want %v", err, ErrInsufficientFunds)
	}
	if exists, _ := f.state.ReceiptExists(f.grantKey, f.claimer, 0); exists {
		t.Fatal("receipt must not be created when the vault cannot pay")
	}
	if f.popState() != nil {
		t.Fatal("pop state must not advance when the vault cannot pay")
	}
}

// --- allowlist tests ---

func TestClaimAllowlistBranches(t *testing.T) {
	f := newClaimFixture(t)
	member := f.claimer
	tree := BuildAllowlistTree([][32]byte{member, fillAddr(0xB2), fillAddr(0xB3)})
	if err := f.engine.SetAllowlistRoot(f.authority, f.grantKey, tree.Root()); err != nil {
		t.Fatalf("SetAllowlistRoot: %v", err)
	}

	msg := f.proofMessage(PopMessageVersionV1, 0, f.now)

	// Plain claim is rejected while the allowlist is enabled.
	if _, err := f.engine.Claim(member, f.grantKey, 0, f.readerFor(msg)); !errors.Is(err, ErrAllowlistRequired) {
		t.Fatalf("got %v, want %v", err, ErrAllowlistRequired)
	}

	// A bad proof is rejected.
	proof, ok := tree.Proof(member)
	if !ok {
		t.Fatal("missing proof")
	}
	tampered := make([][32]byte, len(proof))
	copy(tampered, proof)
	tampered[0][0] ^= 0x01
	if _, err := f.engine.ClaimWithProof(member, f.grantKey, 0, tampered, f.readerFor(msg)); !errors.Is(err, ErrNotInAllowlist) {
		t.Fatalf("got %v, want %v", err, ErrNotInAllowlist)
	}

	// The valid proof is accepted.
	if _, err := f.engine.ClaimWithProof(member, f.grantKey, 0, proof, f.readerFor(msg)); err != nil {
		t.Fatalf("ClaimWithProof: %v", err)
	}
}

func TestClaimWithProofAllowlistDisabled(t *testing.T) {
	f := newClaimFixture(t)
	msg := f.proofMessage(PopMessageVersionV1, 0, f.now)
	if _, err := f.engine.ClaimWithProof(f.claimer, f.grantKey, 0, [][32]byte{fillAddr(0x01)}, f.readerFor(msg)); !errors.Is(err, ErrAllowlistNotEnabled) {
		t.Fatalf("got %v, want %v", err, ErrAllowlistNotEnabled)
	}
}

// --- admin operation tests ---

func TestCreateGrantValidation(t *testing.T) {
	f := newClaimFixture(t)

	if _, err := f.engine.CreateGrant(f.authority, testToken, 2, 0, DefaultMonthSeconds, f.now, 0); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("zero amount: got %v, want %v", err, ErrInvalidAmount)
	}
	if _, err := f.engine.CreateGrant(f.authority, testToken, 2, 100, 0, f.now, 0); !errors.Is(err, ErrInvalidPeriod) {
		t.Fatalf("zero period: got %v, want %v", err, ErrInvalidPeriod)
	}
	if _, err := f.engine.CreateGrant(f.authority, testToken, 2, 100, DefaultMonthSeconds, f.now+maxStartLead+1, 0); !errors.Is(err, ErrInvalidStartTs) {
		t.Fatalf("far-future start: got %v, want %v", err, ErrInvalidStartTs)
	}
	if _, err := f.engine.CreateGrant(f.authority, "UNKNOWN", 2, 100, DefaultMonthSeconds, f.now, 0); !errors.Is(err, ErrTokenMismatch) {
		t.Fatalf("unregistered token: got %v, want %v", err, ErrTokenMismatch)
	}
	if _, err := f.engine.CreateGrant(f.authority, testToken, 1, 100, DefaultMonthSeconds, f.now, 0); !errors.Is(err, ErrGrantExists) {
		t.Fatalf("duplicate: got %v, want %v", err, ErrGrantExists)
	}

	// A future start inside the lead window is accepted.
	if _, err := f.engine.CreateGrant(f.authority, testToken, 3, 100, DefaultMonthSeconds, f.now+maxStartLead, 0); err != nil {
		t.Fatalf("future start: %v", err)
	}
}

func TestAdminOperationsRequireAuthority(t *testing.T) {
	f := newClaimFixture(t)
	imposter := fillAddr(0x99)

	if err := f.engine.SetPaused(imposter, f.grantKey, true); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("SetPaused: got %v, want %v", err, ErrUnauthorized)
	}
	if err := f.engine.SetAllowlistRoot(imposter, f.grantKey, fillAddr(0x01)); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("SetAllowlistRoot: got %v, want %v", err, ErrUnauthorized)
	}
	if _, err := f.engine.CloseGrant(imposter, f.grantKey); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("CloseGrant: got %v, want %v", err, ErrUnauthorized)
	}
}

func TestFundGrantValidation(t *testing.T) {
	f := newClaimFixture(t)
	if err := f.engine.FundGrant(f.funder, f.grantKey, 0); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("zero amount: got %v, want %v", err, ErrInvalidAmount)
	}
	broke := fillAddr(0x77)
	if err := f.engine.FundGrant(broke, f.grantKey, 10); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("empty funder: got %v, want %v", err, ErrInsufficientFunds)
	}
	if err := f.engine.FundGrant(f.funder, fillAddr(0x00), 10); !errors.Is(err, ErrGrantNotFound) {
		t.Fatalf("unknown grant: got %v, want %v", err, ErrGrantNotFound)
	}
}

func TestCloseGrantSweepsVault(t *testing.T) {
	f := newClaimFixture(t)
	authorityBefore := f.balance(f.authority)

	refunded, err := f.engine.CloseGrant(f.authority, f.grantKey)
	if err != nil {
		t.Fatalf("CloseGrant: %v", err)
	}
	if refunded != 10_000 {
		t.Fatalf("refunded = %d, want 10000", refunded)
	}
	if got := f.balance(f.authority); got != authorityBefore+10_000 {
		t.Fatalf("authority balance = %d, want %d", got, authorityBefore+10_000)
	}
	if got := f.balance(f.grant.Vault); got != 0 {
		t.Fatalf("vault balance = %d, want 0", got)
	}
	if _, ok, _ := f.state.GrantGet(f.grantKey); ok {
		t.Fatal("grant record must be deleted")
	}
	if f.emitter.lastType() != events.TypeGrantClosed {
		t.Fatalf("last event = %q, want %q", f.emitter.lastType(), events.TypeGrantClosed)
	}
}

func TestCloseGrantEmptyVault(t *testing.T) {
	f := newClaimFixture(t)
	f.state.setBalance(testToken, f.grant.Vault, 0)
	refunded, err := f.engine.CloseGrant(f.authority, f.grantKey)
	if err != nil {
		t.Fatalf("CloseGrant: %v", err)
	}
	if refunded != 0 {
		t.Fatalf("refunded = %d, want 0", refunded)
	}
}

func TestClaimRacingDuplicateStopsAtReceipt(t *testing.T) {
	// Simulate two submissions racing for the same period: the early replay
	// check sees no receipt for either, so the insert-if-absent receipt gate
	// must stop the loser before funds move.
	f := newClaimFixture(t)
	msg := f.proofMessage(PopMessageVersionV1, 0, f.now)

	f.state.receiptExistsHook = func() (bool, error) { return false, nil }
	if err := f.state.ReceiptCreate(&ClaimReceipt{Grant: f.grantKey, Claimer: f.claimer, PeriodIndex: 0, ClaimedAt: f.now}); err != nil {
		t.Fatalf("seed racing receipt: %v", err)
	}
	vaultBefore := f.balance(f.grant.Vault)

	if _, err := f.engine.Claim(f.claimer, f.grantKey, 0, f.readerFor(msg)); !errors.Is(err, ErrAlreadyClaimed) {
		t.Fatalf("got %v, want %v", err, ErrAlreadyClaimed)
	}
	if f.balance(f.grant.Vault) != vaultBefore || f.balance(f.claimer) != 0 {
		t.Fatal("funds moved for the losing duplicate")
	}
	if f.popState() != nil {
		t.Fatal("pop state advanced for the losing duplicate")
	}
}
