package grant

import "errors"

var (
	ErrUnauthorized       = errors.New("grant: unauthorized")
	ErrGrantNotFound      = errors.New("grant: grant not found")
	ErrGrantExists        = errors.New("grant: grant already exists")
	ErrInvalidAmount      = errors.New("grant: amount must be positive")
	ErrInvalidPeriod      = errors.New("grant: period length must be positive")
	ErrInvalidStartTs     = errors.New("grant: invalid start timestamp")
	ErrInvalidPeriodIndex = errors.New("grant: invalid period index")
	ErrTokenMismatch      = errors.New("grant: token mismatch")
	ErrInsufficientFunds  = errors.New("grant: insufficient funds")
	ErrPaused             = errors.New("grant: grant is paused")
	ErrGrantExpired       = errors.New("grant: grant expired")
	ErrGrantNotStarted    = errors.New("grant: grant not started")
	ErrMathOverflow       = errors.New("grant: math overflow")
	ErrAlreadyClaimed     = errors.New("grant: period already claimed")

	ErrAllowlistRequired   = errors.New("grant: allowlist proof required")
	ErrAllowlistNotEnabled = errors.New("grant: allowlist not enabled")
	ErrNotInAllowlist      = errors.New("grant: claimer not in allowlist")

	ErrPopConfigNotFound              = errors.New("grant: pop signer not configured")
	ErrMissingPopSignatureInstruction = errors.New("grant: missing pop signature instruction")
	ErrInvalidPopSignatureProgram     = errors.New("grant: invalid pop signature program")
	ErrInvalidPopSignatureData        = errors.New("grant: invalid pop signature data")
	ErrInvalidPopSigner               = errors.New("grant: invalid pop signer")
	ErrInvalidPopMessageVersion       = errors.New("grant: invalid pop message version")
	ErrInvalidPopMessageLength        = errors.New("grant: invalid pop message length")
	ErrPopProofGrantMismatch          = errors.New("grant: pop proof grant mismatch")
	ErrPopProofClaimerMismatch        = errors.New("grant: pop proof claimer mismatch")
	ErrPopProofPeriodMismatch         = errors.New("grant: pop proof period mismatch")
	ErrPopProofExpired                = errors.New("grant: pop proof expired")
	ErrPopEntryHashMismatch           = errors.New("grant: pop entry hash mismatch")
	ErrPopHashChainBroken             = errors.New("grant: pop hash chain continuity broken")
	ErrPopStreamChainBroken           = errors.New("grant: pop stream chain continuity broken")
	ErrPopGenesisMismatch             = errors.New("grant: pop genesis hash mismatch")
	ErrPopStateGrantMismatch          = errors.New("grant: pop state grant mismatch")
	ErrPopAuditHashMissing            = errors.New("grant: pop audit hash missing")
)
