package main

import (
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"grantchain/core/state"
	"grantchain/native/grant"
	"grantchain/observability/metrics"
)

const maxBodyBytes = 1 << 20 // 1 MiB

// Server exposes the grant engine over authenticated JSON endpoints.
type Server struct {
	engine  *grant.Engine
	state   *state.Manager
	logger  *slog.Logger
	metrics *metrics.GrantMetrics

	apiSecret []byte
	skew      time.Duration
	now       func() time.Time

	// Every mutating handler writes the same unsynchronised key-value
	// ledger, and a claim's pre-checks must see the balances it later
	// commits against. Serialise all writes behind one lock.
	stateMu sync.Mutex

	router http.Handler
}

// NewServer wires the engine, state manager and HTTP router.
func NewServer(engine *grant.Engine, mgr *state.Manager, logger *slog.Logger, apiSecret string, skew time.Duration) *Server {
	srv := &Server{
		engine:    engine,
		state:     mgr,
		logger:    logger,
		metrics:   metrics.Grant(),
		apiSecret: []byte(apiSecret),
		skew:      skew,
		now:       time.Now,
	}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Get("/healthz", srv.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Group(func(r chi.Router) {
		r.Use(srv.authenticate)
		r.Post("/v1/tokens", srv.handleRegisterToken)
		r.Post("/v1/tokens/{symbol}/mint", srv.handleMint)
		r.Post("/v1/pop-config", srv.handleUpsertPopConfig)
		r.Post("/v1/grants", srv.handleCreateGrant)
		r.Get("/v1/grants/{key}", srv.handleGetGrant)
		r.Post("/v1/grants/{key}/fund", srv.handleFundGrant)
		r.Post("/v1/grants/{key}/pause", srv.handleSetPaused)
		r.Post("/v1/grants/{key}/allowlist-root", srv.handleSetAllowlistRoot)
		r.Post("/v1/grants/{key}/close", srv.handleCloseGrant)
		r.Post("/v1/grants/{key}/claims", srv.handleClaim)
	})
	srv.router = r
	return srv
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// authenticate verifies the request HMAC: hex(HMAC-SHA256(secret,
// timestamp||method||path||body)) in X-Signature, with X-Timestamp within the
// allowed skew.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tsHeader := strings.TrimSpace(r.Header.Get("X-Timestamp"))
		sigHeader := strings.TrimSpace(r.Header.Get("X-Signature"))
		if tsHeader == "" || sigHeader == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing auth headers")
			return
		}
		ts, err := strconv.ParseInt(tsHeader, 10, 64)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized", "invalid timestamp")
			return
		}
		now := s.now()
		if drift := now.Sub(time.Unix(ts, 0)); drift > s.skew || drift < -s.skew {
			writeError(w, http.StatusUnauthorized, "unauthorized", "timestamp outside allowed skew")
			return
		}
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
		if err != nil || len(body) > maxBodyBytes {
			writeError(w, http.StatusBadRequest, "bad_request", "request body too large")
			return
		}
		r.Body = io.NopCloser(strings.NewReader(string(body)))

		mac := hmac.New(sha256.New, s.apiSecret)
		mac.Write([]byte(tsHeader))
		mac.Write([]byte(r.Method))
		mac.Write([]byte(r.URL.Path))
		mac.Write(body)
		expected := hex.EncodeToString(mac.Sum(nil))
		if !hmac.Equal([]byte(expected), []byte(strings.ToLower(sigHeader))) {
			writeError(w, http.StatusUnauthorized, "unauthorized", "signature mismatch")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type registerTokenRequest struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Decimals uint8  `json:"decimals"`
}

func (s *Server) handleRegisterToken(w http.ResponseWriter, r *http.Request) {
	var req registerTokenRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	s.stateMu.Lock()
	err := s.state.RegisterToken(req.Symbol, req.Name, req.Decimals)
	s.stateMu.Unlock()
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"symbol": strings.ToUpper(strings.TrimSpace(req.Symbol))})
}

type mintRequest struct {
	Address string `json:"address"`
	Amount  uint64 `json:"amount"`
}

func (s *Server) handleMint(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	var req mintRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	addr, err := parseHash32(req.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid address")
		return
	}
	s.stateMu.Lock()
	err = s.state.Mint(symbol, addr, new(big.Int).SetUint64(req.Amount))
	s.stateMu.Unlock()
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "minted"})
}

type popConfigRequest struct {
	Authority string `json:"authority"`
	Signer    string `json:"signer"`
}

func (s *Server) handleUpsertPopConfig(w http.ResponseWriter, r *http.Request) {
	var req popConfigRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	authority, err := parseHash32(req.Authority)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid authority")
		return
	}
	signer, err := parseHash32(req.Signer)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid signer")
		return
	}
	s.stateMu.Lock()
	err = s.engine.UpsertPopConfig(authority, signer)
	s.stateMu.Unlock()
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "configured"})
}

type createGrantRequest struct {
	Authority       string `json:"authority"`
	Token           string `json:"token"`
	GrantID         uint64 `json:"grantId"`
	AmountPerPeriod uint64 `json:"amountPerPeriod"`
	PeriodSeconds   int64  `json:"periodSeconds"`
	StartTs         int64  `json:"startTs"`
	ExpiresAt       int64  `json:"expiresAt"`
}

func (s *Server) handleCreateGrant(w http.ResponseWriter, r *http.Request) {
	var req createGrantRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	authority, err := parseHash32(req.Authority)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid authority")
		return
	}
	s.stateMu.Lock()
	g, err := s.engine.CreateGrant(authority, req.Token, req.GrantID, req.AmountPerPeriod, req.PeriodSeconds, req.StartTs, req.ExpiresAt)
	s.stateMu.Unlock()
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.metrics.ObserveGrantCreated()
	key := g.Key()
	writeJSON(w, http.StatusCreated, map[string]string{
		"grantKey": hex.EncodeToString(key[:]),
		"vault":    hex.EncodeToString(g.Vault[:]),
	})
}

func (s *Server) handleGetGrant(w http.ResponseWriter, r *http.Request) {
	key, err := parseHash32(chi.URLParam(r, "key"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid grant key")
		return
	}
	g, ok, err := s.state.GrantGet(key)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "grant_not_found", grant.ErrGrantNotFound.Error())
		return
	}
	balance, err := s.state.Balance(g.Token, g.Vault)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	resp := map[string]any{
		"authority":       hex.EncodeToString(g.Authority[:]),
		"token":           g.Token,
		"vault":           hex.EncodeToString(g.Vault[:]),
		"grantId":         g.GrantID,
		"amountPerPeriod": g.AmountPerPeriod,
		"periodSeconds":   g.PeriodSeconds,
		"startTs":         g.StartTs,
		"expiresAt":       g.ExpiresAt,
		"merkleRoot":      hex.EncodeToString(g.MerkleRoot[:]),
		"paused":          g.Paused,
		"vaultBalance":    balance.String(),
	}
	if popState, ok, err := s.state.PopStateGet(key); err == nil && ok {
		resp["popState"] = map[string]any{
			"lastGlobalHash":  hex.EncodeToString(popState.LastGlobalHash[:]),
			"lastStreamHash":  hex.EncodeToString(popState.LastStreamHash[:]),
			"lastPeriodIndex": popState.LastPeriodIndex,
			"lastIssuedAt":    popState.LastIssuedAt,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type fundGrantRequest struct {
	Funder string `json:"funder"`
	Amount uint64 `json:"amount"`
}

func (s *Server) handleFundGrant(w http.ResponseWriter, r *http.Request) {
	key, err := parseHash32(chi.URLParam(r, "key"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid grant key")
		return
	}
	var req fundGrantRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	funder, err := parseHash32(req.Funder)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid funder")
		return
	}
	s.stateMu.Lock()
	err = s.engine.FundGrant(funder, key, req.Amount)
	s.stateMu.Unlock()
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	g, ok, err := s.state.GrantGet(key)
	if err == nil && ok {
		s.metrics.ObserveVaultFunded(g.Token, req.Amount)
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "funded"})
}

type setPausedRequest struct {
	Authority string `json:"authority"`
	Paused    bool   `json:"paused"`
}

func (s *Server) handleSetPaused(w http.ResponseWriter, r *http.Request) {
	key, err := parseHash32(chi.URLParam(r, "key"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid grant key")
		return
	}
	var req setPausedRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	authority, err := parseHash32(req.Authority)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid authority")
		return
	}
	s.stateMu.Lock()
	err = s.engine.SetPaused(authority, key, req.Paused)
	s.stateMu.Unlock()
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"paused": req.Paused})
}

type setAllowlistRootRequest struct {
	Authority string `json:"authority"`
	Root      string `json:"root"`
}

func (s *Server) handleSetAllowlistRoot(w http.ResponseWriter, r *http.Request) {
	key, err := parseHash32(chi.URLParam(r, "key"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid grant key")
		return
	}
	var req setAllowlistRootRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	authority, err := parseHash32(req.Authority)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid authority")
		return
	}
	root, err := parseHash32(req.Root)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid root")
		return
	}
	s.stateMu.Lock()
	err = s.engine.SetAllowlistRoot(authority, key, root)
	s.stateMu.Unlock()
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"root": req.Root})
}

type closeGrantRequest struct {
	Authority string `json:"authority"`
}

func (s *Server) handleCloseGrant(w http.ResponseWriter, r *http.Request) {
	key, err := parseHash32(chi.URLParam(r, "key"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid grant key")
		return
	}
	var req closeGrantRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	authority, err := parseHash32(req.Authority)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid authority")
		return
	}
	s.stateMu.Lock()
	refunded, err := s.engine.CloseGrant(authority, key)
	s.stateMu.Unlock()
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"refunded": refunded})
}

type claimRequest struct {
	Claimer     string `json:"claimer"`
	PeriodIndex uint64 `json:"periodIndex"`
	// Proof distinguishes absent from empty: a single-member allowlist has
	// an empty proof, so presence of the field selects the allowlist path.
	Proof           *[]string `json:"proof,omitempty"`
	SignerPublicKey string    `json:"signerPublicKey"`
	Signature       string    `json:"signature"`
	Message         string    `json:"message"`
}

// handleClaim admits a withdrawal. The gateway reassembles the companion
// ed25519 instruction from the submitted envelope and verifies the signature
// itself before handing the pair to the engine, standing in for the
// runtime-native verifier the original deployment trusts.
func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request) {
	key, err := parseHash32(chi.URLParam(r, "key"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid grant key")
		return
	}
	var req claimRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	claimer, err := parseHash32(req.Claimer)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid claimer")
		return
	}
	signerKey, err := parseHash32(req.SignerPublicKey)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid signer public key")
		return
	}
	signature, err := parseHash64(req.Signature)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid signature")
		return
	}
	message, err := hex.DecodeString(strings.TrimPrefix(req.Message, "0x"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid message")
		return
	}

	if !ed25519.Verify(ed25519.PublicKey(signerKey[:]), message, signature[:]) {
		s.metrics.ObserveClaimRejected("invalid_signature")
		writeError(w, http.StatusUnprocessableEntity, "invalid_signature", "ed25519 signature verification failed")
		return
	}

	var proof [][32]byte
	if req.Proof != nil {
		proof = make([][32]byte, 0, len(*req.Proof))
		for _, element := range *req.Proof {
			parsed, err := parseHash32(element)
			if err != nil {
				writeError(w, http.StatusBadRequest, "bad_request", "invalid proof element")
				return
			}
			proof = append(proof, parsed)
		}
	}

	reader := claimInstructionReader{
		instructions: []grant.Instruction{
			{ProgramID: grant.Ed25519ProgramID, Data: grant.EncodeEd25519Instruction(signerKey, signature, message)},
			{ProgramID: claimProgramID, Data: nil},
		},
		current: 1,
	}

	s.stateMu.Lock()
	var receipt *grant.ClaimReceipt
	if req.Proof != nil {
		receipt, err = s.engine.ClaimWithProof(claimer, key, req.PeriodIndex, proof, reader)
	} else {
		receipt, err = s.engine.Claim(claimer, key, req.PeriodIndex, reader)
	}
	s.stateMu.Unlock()
	if err != nil {
		s.metrics.ObserveClaimRejected(errorCode(err))
		s.writeEngineError(w, err)
		return
	}

	g, ok, gerr := s.state.GrantGet(key)
	if gerr == nil && ok {
		s.metrics.ObserveClaimAdmitted(g.Token, g.AmountPerPeriod)
	}
	s.logger.Info("claim admitted",
		"grant", hex.EncodeToString(key[:]),
		"claimer", req.Claimer,
		"periodIndex", req.PeriodIndex,
	)
	writeJSON(w, http.StatusCreated, map[string]any{
		"grant":       hex.EncodeToString(receipt.Grant[:]),
		"claimer":     hex.EncodeToString(receipt.Claimer[:]),
		"periodIndex": receipt.PeriodIndex,
		"claimedAt":   receipt.ClaimedAt,
	})
}

// claimProgramID identifies the gateway's own claim instruction in the
// reconstructed transaction.
var claimProgramID = sha256.Sum256([]byte("we-ne:program:grant"))

// claimInstructionReader exposes the reconstructed two-instruction
// transaction to the engine.
type claimInstructionReader struct {
	instructions []grant.Instruction
	current      int
}

func (r claimInstructionReader) CurrentIndex() (int, error) { return r.current, nil }

func (r claimInstructionReader) InstructionAt(index int) (grant.Instruction, error) {
	if index < 0 || index >= len(r.instructions) {
		return grant.Instruction{}, fmt.Errorf("instruction index %d out of range", index)
	}
	return r.instructions[index], nil
}

// --- helpers ---

func decodeJSON(r *http.Request, out any) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func parseHash32(raw string) ([32]byte, error) {
	var out [32]byte
	data, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(raw), "0x"))
	if err != nil {
		return out, err
	}
	if len(data) != 32 {
		return out, fmt.Errorf("expected 32 bytes, got %d", len(data))
	}
	copy(out[:], data)
	return out, nil
}

func parseHash64(raw string) ([64]byte, error) {
	var out [64]byte
	data, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(raw), "0x"))
	if err != nil {
		return out, err
	}
	if len(data) != 64 {
		return out, fmt.Errorf("expected 64 bytes, got %d", len(data))
	}
	copy(out[:], data)
	return out, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"error": code, "message": message})
}

// errorCode maps engine errors to stable, enumerable codes used in responses
// and metrics labels.
func errorCode(err error) string {
	switch {
	case errors.Is(err, grant.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, grant.ErrGrantNotFound):
		return "grant_not_found"
	case errors.Is(err, grant.ErrGrantExists):
		return "grant_exists"
	case errors.Is(err, grant.ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, grant.ErrInvalidPeriod):
		return "invalid_period"
	case errors.Is(err, grant.ErrInvalidStartTs):
		return "invalid_start_ts"
	case errors.Is(err, grant.ErrInvalidPeriodIndex):
		return "invalid_period_index"
	case errors.Is(err, grant.ErrTokenMismatch):
		return "token_mismatch"
	case errors.Is(err, grant.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, grant.ErrPaused):
		return "paused"
	case errors.Is(err, grant.ErrGrantExpired):
		return "grant_expired"
	case errors.Is(err, grant.ErrGrantNotStarted):
		return "grant_not_started"
	case errors.Is(err, grant.ErrMathOverflow):
		return "math_overflow"
	case errors.Is(err, grant.ErrAlreadyClaimed):
		return "already_claimed"
	case errors.Is(err, grant.ErrAllowlistRequired):
		return "allowlist_required"
	case errors.Is(err, grant.ErrAllowlistNotEnabled):
		return "allowlist_not_enabled"
	case errors.Is(err, grant.ErrNotInAllowlist):
		return "not_in_allowlist"
	case errors.Is(err, grant.ErrPopConfigNotFound):
		return "pop_config_not_found"
	case errors.Is(err, grant.ErrMissingPopSignatureInstruction):
		return "missing_pop_signature_instruction"
	case errors.Is(err, grant.ErrInvalidPopSignatureProgram):
		return "invalid_pop_signature_program"
	case errors.Is(err, grant.ErrInvalidPopSignatureData):
		return "invalid_pop_signature_data"
	case errors.Is(err, grant.ErrInvalidPopSigner):
		return "invalid_pop_signer"
	case errors.Is(err, grant.ErrInvalidPopMessageVersion):
		return "invalid_pop_message_version"
	case errors.Is(err, grant.ErrInvalidPopMessageLength):
		return "invalid_pop_message_length"
	case errors.Is(err, grant.ErrPopProofGrantMismatch):
		return "pop_proof_grant_mismatch"
	case errors.Is(err, grant.ErrPopProofClaimerMismatch):
		return "pop_proof_claimer_mismatch"
	case errors.Is(err, grant.ErrPopProofPeriodMismatch):
		return "pop_proof_period_mismatch"
	case errors.Is(err, grant.ErrPopProofExpired):
		return "pop_proof_expired"
	case errors.Is(err, grant.ErrPopEntryHashMismatch):
		return "pop_entry_hash_mismatch"
	case errors.Is(err, grant.ErrPopHashChainBroken):
		return "pop_hash_chain_broken"
	case errors.Is(err, grant.ErrPopStreamChainBroken):
		return "pop_stream_chain_broken"
	case errors.Is(err, grant.ErrPopGenesisMismatch):
		return "pop_genesis_mismatch"
	case errors.Is(err, grant.ErrPopStateGrantMismatch):
		return "pop_state_grant_mismatch"
	case errors.Is(err, grant.ErrPopAuditHashMissing):
		return "pop_audit_hash_missing"
	default:
		return "internal_error"
	}
}

func errorStatus(code string) int {
	switch code {
	case "unauthorized":
		return http.StatusForbidden
	case "grant_not_found", "pop_config_not_found":
		return http.StatusNotFound
	case "grant_exists", "already_claimed":
		return http.StatusConflict
	case "internal_error":
		return http.StatusInternalServerError
	default:
		return http.StatusUnprocessableEntity
	}
}

func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	code := errorCode(err)
	if code == "internal_error" {
		s.logger.Error("internal error", "error", err.Error())
		writeError(w, http.StatusInternalServerError, code, "internal error")
		return
	}
	writeError(w, errorStatus(code), code, err.Error())
}
